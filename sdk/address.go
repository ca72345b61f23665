package sdk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies a pool participant or collaborator.
type Address = common.Address

// ZeroAddress is never a valid caller.
var ZeroAddress = Address{}

// ErrInvalidAddress is returned for malformed or zero addresses.
var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress accepts 0x-prefixed hex (any case) and rejects the zero address.
// Example payload: sdk.ParseAddress("0x00000000000000000000000000000000000000aa")
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return ZeroAddress, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	addr := common.HexToAddress(s)
	if addr == ZeroAddress {
		return ZeroAddress, fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	return addr, nil
}

// ParseAddresses parses a list and stops at the first bad entry.
func ParseAddresses(in []string) ([]Address, error) {
	out := make([]Address, 0, len(in))
	for _, s := range in {
		addr, err := ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// ShortAddress trims an address to 0x1234..abcd so event lines stay short.
func ShortAddress(a Address) string {
	hex := strings.ToLower(a.Hex())
	return hex[:6] + ".." + hex[len(hex)-4:]
}
