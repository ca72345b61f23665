package contract

// -----------------------------------------------------------------------------
// Storage Key Prefixes
// -----------------------------------------------------------------------------

const (
	// kPoolConfig stores the immutable PoolConfig.
	kPoolConfig byte = 0x01
	// kPoolState stores the lifecycle byte.
	kPoolState byte = 0x02
	// kPoolPolicy stores the encoded Policy including overrides.
	kPoolPolicy byte = 0x03
	// kPoolAggregates stores the pool-wide totals.
	kPoolAggregates byte = 0x04
	// kDropCutoff stores the last deposit seq owed a token drop, fixed at fail().
	kDropCutoff byte = 0x05
	// kParticipant houses encoded Participant records keyed by address.
	kParticipant byte = 0x10
	// kParticipantOrder maps a deposit sequence number to an address.
	kParticipantOrder byte = 0x11
)

// -----------------------------------------------------------------------------
// Token Drop Gas
// -----------------------------------------------------------------------------

const (
	// refundDropContributors is the contributor count priced into one refund deduction.
	refundDropContributors = 1
	// refundDropCount is the number of drop settlements priced into one refund deduction.
	refundDropCount = 1
)

// -----------------------------------------------------------------------------
// Fee Defaults
// -----------------------------------------------------------------------------

const (
	// BasisPoints is the denominator of FeeSchedule.RateBps.
	BasisPoints = 10_000
	// FallbackFeeRateBps is used when no rate is configured (0.5%).
	FallbackFeeRateBps = 50
)

// -----------------------------------------------------------------------------
// Gas Defaults
// -----------------------------------------------------------------------------

const (
	FallbackBaseGas    = 21_000
	FallbackPerDropGas = 50_000
	// FallbackGasPriceWei is 20 gwei.
	FallbackGasPriceWei = 20_000_000_000
)
