package contract_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presale_pool/contract"
	"presale_pool/sdk"
)

// =============================================================================
// Batch refund
// =============================================================================

// TestBatchRefundRepeatIsNoop checks refunding the same list twice pays once.
func TestBatchRefundRepeatIsNoop(t *testing.T) {
	h := setupPool(t, 0, defaultSettings())
	h.deposit(t, alice, eth(4))
	h.deposit(t, bob, eth(2))
	require.NoError(t, h.pool.Fail(h.ctx, admin))

	list := []sdk.Address{alice, bob, alice, keeper}
	refunds, err := h.pool.WithdrawAllForMany(h.ctx, keeper, list)
	require.NoError(t, err)
	assert.Len(t, refunds, 2)
	calls := h.bank.calls
	before := h.dump(t)

	refunds, err = h.pool.WithdrawAllForMany(h.ctx, keeper, list)
	require.NoError(t, err)
	assert.Empty(t, refunds)
	assert.Equal(t, calls, h.bank.calls)
	assert.Equal(t, before, h.dump(t))
	assert.Equal(t, eth(4).Dec(), h.bank.Received(alice).Dec())
	h.checkInvariants(t)
}

// TestBatchRefundStopsAtFirstFailure checks the processed prefix stays paid,
// the failing recipient and everyone after it are untouched.
func TestBatchRefundStopsAtFirstFailure(t *testing.T) {
	h := setupPool(t, 0, defaultSettings())
	h.deposit(t, alice, eth(4))
	h.deposit(t, bob, eth(2))
	h.deposit(t, carol, eth(3))
	require.NoError(t, h.pool.Fail(h.ctx, admin))
	h.bank.reject[bob] = true

	refunds, err := h.pool.WithdrawAllForMany(h.ctx, keeper, []sdk.Address{alice, bob, carol})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrExternalCallFailed)
	assert.ErrorIs(t, err, errBankDown)
	assert.Contains(t, err.Error(), bob.Hex())
	require.Len(t, refunds, 1)
	assert.Equal(t, alice, refunds[0].Address)

	h.requireSplit(t, alice, sdk.Zero(), sdk.Zero())
	h.requireSplit(t, bob, sdk.Zero(), eth(2))
	h.requireSplit(t, carol, sdk.Zero(), eth(3))
	assert.Equal(t, eth(4).Dec(), h.bank.Received(alice).Dec())
	assert.True(t, h.bank.Received(carol).IsZero())
	assert.Len(t, h.eventsWithPrefix("rf|"), 1)
	h.checkInvariants(t)

	// once the bank recovers the rest can be refunded
	delete(h.bank.reject, bob)
	refunds, err = h.pool.WithdrawAllForMany(h.ctx, keeper, []sdk.Address{alice, bob, carol})
	require.NoError(t, err)
	assert.Len(t, refunds, 2)
	h.checkInvariants(t)
}

// TestBatchRefundFirstFailureCommitsNothing checks a failure on the first entry is a plain rejection.
func TestBatchRefundFirstFailureCommitsNothing(t *testing.T) {
	h := setupPool(t, 0, defaultSettings())
	h.deposit(t, alice, eth(4))
	require.NoError(t, h.pool.Fail(h.ctx, admin))
	before := h.dump(t)
	h.bank.reject[alice] = true

	refunds, err := h.pool.WithdrawAllForMany(h.ctx, keeper, []sdk.Address{alice})
	assert.ErrorIs(t, err, contract.ErrExternalCallFailed)
	assert.Empty(t, refunds)
	assert.Equal(t, before, h.dump(t))
}

// TestBatchRefundPricesGasOnce checks one estimate serves the whole batch.
func TestBatchRefundPricesGasOnce(t *testing.T) {
	h := setupPool(t, 2, defaultSettings())
	h.deposit(t, alice, eth(4))
	h.deposit(t, bob, eth(2))
	require.NoError(t, h.pool.Fail(h.ctx, admin))

	refunds, err := h.pool.WithdrawAllForMany(h.ctx, keeper, []sdk.Address{alice, bob})
	require.NoError(t, err)
	require.Len(t, refunds, 2)
	assert.Equal(t, 1, h.gas.calls)
	for _, r := range refunds {
		assert.Equal(t, milliEth(100).Dec(), r.Gas.Dec())
		assert.Equal(t, r.Gross.Dec(), r.Gas.Clone().Add(r.Gas, r.Net).Dec())
	}
}

// TestBatchRefundDropsOnlyFirstContributors checks only the first TokenDrops
// contributors in deposit order pay the drop gas, whatever order refunds come in.
func TestBatchRefundDropsOnlyFirstContributors(t *testing.T) {
	h := setupPool(t, 1, defaultSettings())
	h.deposit(t, alice, milliEth(500))
	h.deposit(t, bob, eth(2))
	h.deposit(t, carol, eth(3))
	h.requireSplit(t, alice, milliEth(500), sdk.Zero())
	require.NoError(t, h.pool.Fail(h.ctx, admin))

	// carol refunds first and still gets everything back
	r, err := h.pool.WithdrawAll(h.ctx, carol)
	require.NoError(t, err)
	assert.True(t, r.Gas.IsZero())
	assert.Equal(t, eth(3).Dec(), r.Net.Dec())

	refunds, err := h.pool.WithdrawAllForMany(h.ctx, keeper, []sdk.Address{alice, bob})
	require.NoError(t, err)
	require.Len(t, refunds, 2)
	assert.True(t, refunds[0].Gas.IsZero(), "alice never contributed")
	assert.Equal(t, milliEth(100).Dec(), refunds[1].Gas.Dec())
	assert.Equal(t, milliEth(1900).Dec(), h.bank.Received(bob).Dec())

	totals, err := h.pool.Totals(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, milliEth(100).Dec(), totals.TotalGasDeducted.Dec())
	h.checkInvariants(t)
}

// TestBatchRefundGasEstimateFailure checks an estimator error keeps its cause and moves nothing.
func TestBatchRefundGasEstimateFailure(t *testing.T) {
	h := setupPool(t, 1, defaultSettings())
	h.deposit(t, alice, eth(4))
	require.NoError(t, h.pool.Fail(h.ctx, admin))
	before := h.dump(t)

	errNoPrice := errors.New("no gas price")
	h.gas.err = errNoPrice
	_, err := h.pool.WithdrawAllForMany(h.ctx, keeper, []sdk.Address{alice})
	assert.ErrorIs(t, err, contract.ErrExternalCallFailed)
	assert.ErrorIs(t, err, errNoPrice)
	_, err = h.pool.WithdrawAll(h.ctx, alice)
	assert.ErrorIs(t, err, errNoPrice)
	assert.Equal(t, before, h.dump(t))
	assert.Zero(t, h.bank.calls)
}

// =============================================================================
// Pay to presale
// =============================================================================

// TestPayToPresaleFeeOverride checks the override replaces the provider quote.
func TestPayToPresaleFeeOverride(t *testing.T) {
	h := setupPool(t, 0, defaultSettings())
	h.deposit(t, alice, eth(10))

	payment, err := h.pool.PayToPresale(h.ctx, admin, contract.PayArgs{Target: target, FeeOverride: eth(1)})
	require.NoError(t, err)
	assert.Equal(t, eth(1).Dec(), payment.Fee.Dec())
	assert.Equal(t, eth(9).Dec(), payment.Amount.Dec())
	assert.Equal(t, admin, payment.Payer)
	assert.Len(t, h.eventsWithPrefix("pay|"), 1)
	assert.Equal(t, []string{"st|s:paid"}, h.eventsWithPrefix("st|"))
	h.checkInvariants(t)
}

// TestPayToPresaleGuards checks balance floors and fee bounds abort before anything moves.
func TestPayToPresaleGuards(t *testing.T) {
	h := setupPool(t, 0, defaultSettings())
	h.deposit(t, alice, eth(10))
	before := h.dump(t)

	_, err := h.pool.PayToPresale(h.ctx, admin, contract.PayArgs{Target: target, MinPoolBalance: eth(11)})
	assert.ErrorIs(t, err, contract.ErrInsufficientBalance)

	_, err = h.pool.PayToPresale(h.ctx, admin, contract.PayArgs{Target: target, FeeOverride: eth(11)})
	assert.ErrorIs(t, err, contract.ErrInsufficientBalance)

	_, err = h.pool.PayToPresale(h.ctx, admin, contract.PayArgs{})
	assert.ErrorIs(t, err, contract.ErrInvalidAddress)

	errClosed := errors.New("presale closed")
	h.target.err = errClosed
	_, err = h.pool.PayToPresale(h.ctx, admin, contract.PayArgs{Target: target})
	assert.ErrorIs(t, err, contract.ErrExternalCallFailed)
	assert.ErrorIs(t, err, errClosed)

	assert.Equal(t, before, h.dump(t))
	s, err := h.pool.State(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, contract.StateOpen, s)
}

// TestPayToPresaleFeeProviderFailure checks the provider's own error stays in the chain.
func TestPayToPresaleFeeProviderFailure(t *testing.T) {
	h := setupPool(t, 0, defaultSettings())
	h.deposit(t, alice, eth(10))
	before := h.dump(t)

	errLookup := errors.New("fee lookup timed out")
	pool, err := contract.Load(h.ctx, contract.Dependencies{
		Backend: h.backend,
		Bank:    h.bank,
		Fees:    brokenFees{err: errLookup},
		Target:  h.target,
	})
	require.NoError(t, err)
	_, err = pool.PayToPresale(h.ctx, admin, contract.PayArgs{Target: target})
	assert.ErrorIs(t, err, contract.ErrExternalCallFailed)
	assert.ErrorIs(t, err, errLookup)
	assert.Equal(t, before, h.dump(t))
	assert.Empty(t, h.target.payments)
}

// TestPayToPresaleWithoutCollaborators checks missing fee provider or target fail cleanly.
func TestPayToPresaleWithoutCollaborators(t *testing.T) {
	h := setupPool(t, 0, defaultSettings())
	h.deposit(t, alice, eth(10))

	bare, err := contract.Load(h.ctx, contract.Dependencies{Backend: h.backend, Bank: h.bank})
	require.NoError(t, err)
	_, err = bare.PayToPresale(h.ctx, admin, contract.PayArgs{Target: target})
	assert.ErrorIs(t, err, contract.ErrExternalCallFailed)
	_, err = bare.PayToPresale(h.ctx, admin, contract.PayArgs{Target: target, FeeOverride: sdk.Zero()})
	assert.ErrorIs(t, err, contract.ErrExternalCallFailed)
}
