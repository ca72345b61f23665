package sdk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the wei exponent of one ether.
const EtherDecimals = 18

// ErrInvalidAmount is returned for negative, fractional-wei or oversized amounts.
var ErrInvalidAmount = errors.New("invalid amount")

var weiPerEther = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(EtherDecimals))

// Wei wraps a raw wei count.
// Example payload: sdk.Wei(21000)
func Wei(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Ether scales whole ether units to wei, mostly handy in tests and defaults.
// Example payload: sdk.Ether(5)
func Ether(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), weiPerEther)
}

// EtherToWei parses a human decimal ether string ("0.5") into wei.
// Example payload: sdk.EtherToWei("1.25")
func EtherToWei(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return DecimalToWei(d)
}

// DecimalToWei converts an ether-denominated decimal into wei.
func DecimalToWei(d decimal.Decimal) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative %s", ErrInvalidAmount, d.String())
	}
	wei := d.Shift(EtherDecimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%w: %s has sub-wei precision", ErrInvalidAmount, d.String())
	}
	out, overflow := uint256.FromBig(wei.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %s overflows 256 bits", ErrInvalidAmount, d.String())
	}
	return out, nil
}

// WeiToEther renders wei as a trimmed ether decimal for logs and CLI output.
// Example payload: sdk.WeiToEther(sdk.Ether(2)) == "2"
func WeiToEther(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -EtherDecimals).String()
}

// Zero returns a fresh zero amount.
func Zero() *uint256.Int { return new(uint256.Int) }

// Clone copies v and maps nil to zero so callers never share pointers.
func Clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}

// MinOf returns a copy of the smallest argument.
func MinOf(first *uint256.Int, rest ...*uint256.Int) *uint256.Int {
	m := first
	for _, v := range rest {
		if v.Lt(m) {
			m = v
		}
	}
	return m.Clone()
}

// SubFloor subtracts b from a and floors at zero.
func SubFloor(a, b *uint256.Int) *uint256.Int {
	if !a.Gt(b) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// AddChecked adds and reports overflow as ErrInvalidAmount.
func AddChecked(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: sum overflows 256 bits", ErrInvalidAmount)
	}
	return sum, nil
}
