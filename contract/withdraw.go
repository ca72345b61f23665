package contract

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"presale_pool/sdk"
)

// -----------------------------------------------------------------------------
// Deposit
// -----------------------------------------------------------------------------

// Deposit credits amount to the caller and allocates as much of it as the
// policy allows. First-time depositors join the end of the deposit order.
// A zero amount is a no-op.
// Example payload: pool.Deposit(ctx, alice, sdk.Ether(10))
func (p *Pool) Deposit(ctx context.Context, caller sdk.Address, amount *uint256.Int) error {
	return p.exec(ctx, OpDeposit, caller, func(t *txn) error {
		if _, _, err := t.guard(caller, OpDeposit); err != nil {
			return err
		}
		if amount == nil {
			return fmt.Errorf("%w: deposit amount required", ErrInvalidAmount)
		}
		t.note(sdk.AmountField("amount", amount))
		if amount.IsZero() {
			return nil
		}
		policy, err := t.loadPolicy()
		if err != nil {
			return err
		}
		agg, err := t.loadAggregates()
		if err != nil {
			return err
		}
		deposited, err := sdk.AddChecked(agg.TotalDeposited, amount)
		if err != nil {
			return err
		}

		part, ok, err := t.loadParticipant(caller)
		if err != nil {
			return err
		}
		if !ok {
			if part, err = t.createParticipant(caller, agg); err != nil {
				return err
			}
		}

		// every balance is bounded by TotalDeposited, so these cannot overflow
		agg.TotalDeposited = deposited
		part.Remaining = new(uint256.Int).Add(part.Remaining, amount)
		agg.TotalRemaining = new(uint256.Int).Add(agg.TotalRemaining, amount)
		allocateOne(part, newPolicyView(policy), agg)

		if err := t.saveParticipant(part); err != nil {
			return err
		}
		if err := t.saveAggregates(agg); err != nil {
			return err
		}
		emitDeposit(t, part, amount)
		return nil
	})
}

// -----------------------------------------------------------------------------
// Withdraw
// -----------------------------------------------------------------------------

// Withdraw pays amount back to the caller, taking it from remaining first and
// then from contribution. A contribution left nonzero must still meet the
// caller's minimum, otherwise the call fails with ErrBelowMinimumContribution.
// Example payload: pool.Withdraw(ctx, alice, sdk.Ether(4))
func (p *Pool) Withdraw(ctx context.Context, caller sdk.Address, amount *uint256.Int) error {
	return p.exec(ctx, OpWithdraw, caller, func(t *txn) error {
		if _, _, err := t.guard(caller, OpWithdraw); err != nil {
			return err
		}
		if amount == nil {
			return fmt.Errorf("%w: withdraw amount required", ErrInvalidAmount)
		}
		t.note(sdk.AmountField("amount", amount))
		if amount.IsZero() {
			return nil
		}
		part, ok, err := t.loadParticipant(caller)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no record for %s", ErrUnauthorized, caller.Hex())
		}
		if amount.Gt(part.Balance()) {
			return fmt.Errorf("%w: withdraw %s above balance %s", ErrInsufficientBalance,
				sdk.WeiToEther(amount), sdk.WeiToEther(part.Balance()))
		}
		policy, err := t.loadPolicy()
		if err != nil {
			return err
		}
		agg, err := t.loadAggregates()
		if err != nil {
			return err
		}

		prevRemaining, prevContribution := part.Remaining, part.Contribution
		debit(part, amount)
		floor := newPolicyView(policy).limitsFor(caller).min
		if !part.Contribution.IsZero() && part.Contribution.Lt(floor) {
			return fmt.Errorf("%w: contribution %s would drop below %s", ErrBelowMinimumContribution,
				sdk.WeiToEther(part.Contribution), sdk.WeiToEther(floor))
		}

		agg.TotalRemaining = replaceShare(agg.TotalRemaining, prevRemaining, part.Remaining)
		agg.TotalContribution = replaceShare(agg.TotalContribution, prevContribution, part.Contribution)
		agg.TotalWithdrawn = new(uint256.Int).Add(agg.TotalWithdrawn, amount)

		if err := t.saveParticipant(part); err != nil {
			return err
		}
		if err := t.saveAggregates(agg); err != nil {
			return err
		}
		if err := p.transfer(t.ctx, caller, amount); err != nil {
			return err
		}
		emitWithdraw(t, part, amount)
		return nil
	})
}

// -----------------------------------------------------------------------------
// WithdrawAll
// -----------------------------------------------------------------------------

// WithdrawAll pays the caller their whole balance and zeroes the record. In a
// failed pool with token drops the drop gas is deducted first. Once the pool
// is paid only the remaining part is left to claim. Returns nil when there is
// nothing to pay.
func (p *Pool) WithdrawAll(ctx context.Context, caller sdk.Address) (*Refund, error) {
	var out *Refund
	err := p.exec(ctx, OpWithdrawAll, caller, func(t *txn) error {
		cfg, s, err := t.guard(caller, OpWithdrawAll)
		if err != nil {
			return err
		}
		agg, err := t.loadAggregates()
		if err != nil {
			return err
		}
		drops, err := p.planDrops(t, cfg, s)
		if err != nil {
			return err
		}
		r, err := p.refund(t, s, caller, agg, drops)
		if err != nil || r == nil {
			return err
		}
		t.note(sdk.AmountField("amount", r.Net), sdk.AmountField("gas", r.Gas))
		if err := t.saveAggregates(agg); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// refund empties one record and pays it out. The participant write is queued
// before the transfer, aggregates only move once the transfer went through,
// so a failed payout can be undone with a savepoint rollback.
func (p *Pool) refund(t *txn, s PoolState, addr sdk.Address, agg *Aggregates, drops dropPlan) (*Refund, error) {
	part, ok, err := t.loadParticipant(addr)
	if err != nil || !ok {
		return nil, err
	}

	paid := s == StatePaid
	gross := part.Balance()
	if paid {
		// the contribution already went to the presale
		gross = part.Remaining.Clone()
	}
	if gross.IsZero() {
		return nil, nil
	}
	gas, net := RefundPayout(gross, part.Contribution, drops.covers(part), drops.gas)

	prevRemaining, prevContribution := part.Remaining, part.Contribution
	part.Remaining = sdk.Zero()
	if !paid {
		part.Contribution = sdk.Zero()
	}
	if err := t.saveParticipant(part); err != nil {
		return nil, err
	}
	if err := p.transfer(t.ctx, addr, net); err != nil {
		return nil, err
	}

	agg.TotalRemaining = new(uint256.Int).Sub(agg.TotalRemaining, prevRemaining)
	if !paid {
		agg.TotalContribution = new(uint256.Int).Sub(agg.TotalContribution, prevContribution)
	}
	agg.TotalWithdrawn = new(uint256.Int).Add(agg.TotalWithdrawn, net)
	agg.TotalGasDeducted = new(uint256.Int).Add(agg.TotalGasDeducted, gas)

	r := &Refund{Address: addr, Gross: gross, Gas: gas, Net: net}
	emitRefund(t, r)
	return r, nil
}

// transfer wraps the bank call so every payout failure reads the same.
func (p *Pool) transfer(ctx context.Context, to sdk.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := p.bank.Transfer(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: transfer %s to %s: %w", ErrExternalCallFailed, sdk.WeiToEther(amount), to.Hex(), err)
	}
	return nil
}

// replaceShare swaps one participant's old share of a total for the new one.
func replaceShare(total, prev, next *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Sub(total, prev)
	return out.Add(out, next)
}
