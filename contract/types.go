package contract

import (
	"github.com/holiman/uint256"

	"presale_pool/sdk"
)

// PoolState captures the pool lifecycle.
type PoolState uint8

const (
	StateUnspecified PoolState = 0
	StateOpen        PoolState = 1
	StateFailed      PoolState = 2
	StatePaid        PoolState = 3
)

// String prints the state as lower-case text for events and logs.
// Example payload: StateFailed.String()
func (s PoolState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFailed:
		return "failed"
	case StatePaid:
		return "paid"
	default:
		return "unspecified"
	}
}

// Participant is one depositor's split. Seq is the deposit order and never changes.
type Participant struct {
	Address      sdk.Address
	Seq          uint64
	Remaining    *uint256.Int
	Contribution *uint256.Int
}

// Balance is remaining + contribution.
func (p *Participant) Balance() *uint256.Int {
	return new(uint256.Int).Add(p.Remaining, p.Contribution)
}

// Override replaces the global limits for one address. A nil bound falls back to the global one.
type Override struct {
	Address sdk.Address
	Min     *uint256.Int
	Max     *uint256.Int
}

// Policy is the mutable contribution settings record.
type Policy struct {
	MinContribution *uint256.Int
	MaxContribution *uint256.Int
	MaxPoolBalance  *uint256.Int
	// AllowListOnly restricts contributions to addresses on the override list.
	AllowListOnly bool
	Overrides     []Override
}

// Settings is the input of SetContributionSettings.
type Settings = Policy

// Aggregates are the pool-wide totals.
type Aggregates struct {
	TotalDeposited    *uint256.Int
	TotalContribution *uint256.Int
	TotalRemaining    *uint256.Int
	TotalWithdrawn    *uint256.Int
	TotalForwarded    *uint256.Int
	TotalFees         *uint256.Int
	TotalGasDeducted  *uint256.Int
	Participants      uint64
}

// PoolConfig is fixed at creation.
type PoolConfig struct {
	Administrator sdk.Address
	// TokenDrops is the number of token drops the pool was set up for. When
	// nonzero, failed-state refunds to contributors carry a drop gas deduction.
	TokenDrops uint32
	CreatedAt  int64
}

// PayArgs is the input of PayToPresale.
type PayArgs struct {
	Target sdk.Address
	// FeeOverride replaces the fee provider quote when set.
	FeeOverride *uint256.Int
	// MinPoolBalance aborts the payment when the pool holds less.
	MinPoolBalance *uint256.Int
	Payload        []byte
}

// Payment is what the distribution target receives.
type Payment struct {
	Payer   sdk.Address
	Target  sdk.Address
	Amount  *uint256.Int
	Fee     *uint256.Int
	Payload []byte
}

// Refund reports one payout of WithdrawAll or WithdrawAllForMany.
type Refund struct {
	Address sdk.Address
	Gross   *uint256.Int
	Gas     *uint256.Int
	Net     *uint256.Int
}
