package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"presale_pool/sdk"
)

// FeeRateProvider quotes the service fee for a given pool balance.
type FeeRateProvider interface {
	Fee(ctx context.Context, poolBalance *uint256.Int) (*uint256.Int, error)
}

// DistributionTarget is the presale sink receiving forwarded funds.
type DistributionTarget interface {
	Accept(ctx context.Context, payment Payment) error
}

// GasCostEstimator prices the token drop settlement deducted from refunds.
type GasCostEstimator interface {
	Estimate(numContributors, numDrops uint64) (*uint256.Int, error)
}

// Transferer moves funds out of the pool to an address.
type Transferer interface {
	Transfer(ctx context.Context, to sdk.Address, amount *uint256.Int) error
}

// -----------------------------------------------------------------------------
// FeeSchedule
// -----------------------------------------------------------------------------

// FeeSchedule charges RateBps basis points of the pool balance, clamped to [MinFee, MaxFee].
type FeeSchedule struct {
	RateBps uint64
	MinFee  *uint256.Int
	MaxFee  *uint256.Int
}

// NewFeeSchedule validates the bounds. A zero rate falls back to FallbackFeeRateBps.
func NewFeeSchedule(rateBps uint64, minFee, maxFee *uint256.Int) (*FeeSchedule, error) {
	if rateBps == 0 {
		rateBps = FallbackFeeRateBps
	}
	if rateBps > BasisPoints {
		return nil, fmt.Errorf("%w: fee rate %d bps above 100%%", ErrInvalidPolicy, rateBps)
	}
	minFee, maxFee = sdk.Clone(minFee), sdk.Clone(maxFee)
	if !maxFee.IsZero() && minFee.Gt(maxFee) {
		return nil, fmt.Errorf("%w: min fee above max fee", ErrInvalidPolicy)
	}
	return &FeeSchedule{RateBps: rateBps, MinFee: minFee, MaxFee: maxFee}, nil
}

// Fee computes balance*rate/10000 and clamps it. A zero MaxFee means uncapped.
func (f *FeeSchedule) Fee(_ context.Context, poolBalance *uint256.Int) (*uint256.Int, error) {
	fee := new(uint256.Int).Mul(poolBalance, uint256.NewInt(f.RateBps))
	fee.Div(fee, uint256.NewInt(BasisPoints))
	if f.MinFee != nil && fee.Lt(f.MinFee) {
		fee.Set(f.MinFee)
	}
	if f.MaxFee != nil && !f.MaxFee.IsZero() && fee.Gt(f.MaxFee) {
		fee.Set(f.MaxFee)
	}
	return fee, nil
}

// -----------------------------------------------------------------------------
// LinearGasEstimator
// -----------------------------------------------------------------------------

// LinearGasEstimator prices (BaseGas + PerDropGas*numDrops) at GasPrice and
// splits it over the contributors sharing the drop.
type LinearGasEstimator struct {
	BaseGas    uint64
	PerDropGas uint64
	GasPrice   *uint256.Int
}

// Estimate returns the per-recipient deduction in wei.
func (e *LinearGasEstimator) Estimate(numContributors, numDrops uint64) (*uint256.Int, error) {
	if numContributors == 0 {
		return nil, errors.New("gas estimate needs at least one contributor")
	}
	gas := new(uint256.Int).Mul(uint256.NewInt(e.PerDropGas), uint256.NewInt(numDrops))
	gas.Add(gas, uint256.NewInt(e.BaseGas))
	price := e.GasPrice
	if price == nil {
		price = uint256.NewInt(FallbackGasPriceWei)
	}
	cost, overflow := new(uint256.Int).MulOverflow(gas, price)
	if overflow {
		return nil, errors.New("gas estimate overflows")
	}
	return cost.Div(cost, uint256.NewInt(numContributors)), nil
}

// -----------------------------------------------------------------------------
// Refund deduction
// -----------------------------------------------------------------------------

// RefundPayout splits a gross refund into the token drop gas deduction and the
// net payout. Only recipients owed a drop that still hold a contribution pay,
// and the deduction never exceeds the refund. Both the single and the batch
// refund path go through here.
func RefundPayout(gross, contribution *uint256.Int, receivesDrop bool, dropGas *uint256.Int) (gas, net *uint256.Int) {
	if !receivesDrop || contribution.IsZero() || dropGas == nil || dropGas.IsZero() {
		return sdk.Zero(), gross.Clone()
	}
	gas = sdk.MinOf(dropGas, gross)
	return gas, new(uint256.Int).Sub(gross, gas)
}
