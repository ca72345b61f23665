package contract

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"presale_pool/sdk"
)

// -----------------------------------------------------------------------------
// Batch refund
// -----------------------------------------------------------------------------

// WithdrawAllForMany refunds every listed address in a failed pool, in the
// given order. Anyone may call it since funds only go back to their owners.
// Addresses without a balance are skipped, so repeating a call is harmless.
// The first failed payout stops the batch: the refunds before it stay
// committed and are returned together with the error.
// Example payload: pool.WithdrawAllForMany(ctx, keeper, []sdk.Address{alice, bob})
func (p *Pool) WithdrawAllForMany(ctx context.Context, caller sdk.Address, addrs []sdk.Address) ([]Refund, error) {
	var out []Refund
	err := p.exec(ctx, OpWithdrawAllForMany, caller, func(t *txn) error {
		cfg, s, err := t.guard(caller, OpWithdrawAllForMany)
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

		for i, addr := range addrs {
			sp := t.savepoint()
			r, err := p.refund(t, s, addr, agg, drops)
			if err != nil {
				t.rollbackTo(sp)
				err = fmt.Errorf("refund %d/%d to %s: %w", i+1, len(addrs), addr.Hex(), err)
				if len(out) == 0 {
					return err
				}
				if serr := t.saveAggregates(agg); serr != nil {
					return serr
				}
				return &partialCommit{err: err}
			}
			if r != nil {
				out = append(out, *r)
			}
		}
		t.note(zap.Int("refunds", len(out)))
		return t.saveAggregates(agg)
	})
	return out, err
}

// dropPlan decides who pays the token drop gas in this operation.
type dropPlan struct {
	// gas is the per-recipient deduction, nil when nothing is deducted.
	gas *uint256.Int
	// cutoff is the last deposit seq that receives a drop.
	cutoff uint64
}

// covers reports whether part is one of the recipients owed a drop.
func (d dropPlan) covers(part *Participant) bool {
	return d.gas != nil && part.Seq <= d.cutoff && !part.Contribution.IsZero()
}

// planDrops prices the token drop deduction once per operation so every
// recipient in a batch pays the same as they would alone.
func (p *Pool) planDrops(t *txn, cfg *PoolConfig, s PoolState) (dropPlan, error) {
	if s != StateFailed || cfg.TokenDrops == 0 {
		return dropPlan{}, nil
	}
	cutoff, err := t.loadDropCutoff()
	if err != nil {
		return dropPlan{}, err
	}
	est := p.gas
	if est == nil {
		est = &LinearGasEstimator{BaseGas: FallbackBaseGas, PerDropGas: FallbackPerDropGas}
	}
	gas, err := est.Estimate(refundDropContributors, refundDropCount)
	if err != nil {
		return dropPlan{}, fmt.Errorf("%w: gas estimate: %w", ErrExternalCallFailed, err)
	}
	return dropPlan{gas: gas, cutoff: cutoff}, nil
}

// -----------------------------------------------------------------------------
// Pay to presale
// -----------------------------------------------------------------------------

// PayToPresale forwards the pooled contributions, less the fee, to the
// presale target and moves the pool to Paid. Remaining balances stay
// claimable through WithdrawAll; contributions are kept as the record of
// each participant's share.
// Example payload: pool.PayToPresale(ctx, admin, PayArgs{Target: presale, Payload: []byte("buy")})
func (p *Pool) PayToPresale(ctx context.Context, caller sdk.Address, args PayArgs) (*Payment, error) {
	var out *Payment
	err := p.exec(ctx, OpPayToPresale, caller, func(t *txn) error {
		if _, _, err := t.guard(caller, OpPayToPresale); err != nil {
			return err
		}
		if args.Target == sdk.ZeroAddress {
			return fmt.Errorf("%w: presale target required", ErrInvalidAddress)
		}
		agg, err := t.loadAggregates()
		if err != nil {
			return err
		}
		balance := agg.TotalContribution.Clone()
		if args.MinPoolBalance != nil && balance.Lt(args.MinPoolBalance) {
			return fmt.Errorf("%w: pool holds %s, need %s", ErrInsufficientBalance,
				sdk.WeiToEther(balance), sdk.WeiToEther(args.MinPoolBalance))
		}
		fee, err := p.quoteFee(t.ctx, balance, args.FeeOverride)
		if err != nil {
			return err
		}
		if fee.Gt(balance) {
			return fmt.Errorf("%w: fee %s above pool balance %s", ErrInsufficientBalance,
				sdk.WeiToEther(fee), sdk.WeiToEther(balance))
		}
		if p.target == nil {
			return fmt.Errorf("%w: no distribution target configured", ErrExternalCallFailed)
		}

		payment := Payment{
			Payer:   caller,
			Target:  args.Target,
			Amount:  new(uint256.Int).Sub(balance, fee),
			Fee:     fee,
			Payload: append([]byte(nil), args.Payload...),
		}
		t.note(sdk.AmountField("amount", payment.Amount), sdk.AmountField("fee", fee))
		agg.TotalForwarded = new(uint256.Int).Add(agg.TotalForwarded, payment.Amount)
		agg.TotalFees = new(uint256.Int).Add(agg.TotalFees, fee)
		if err := t.saveAggregates(agg); err != nil {
			return err
		}
		if err := t.transition(StatePaid); err != nil {
			return err
		}
		// the one external call comes last so a rejection discards everything above
		if err := p.target.Accept(t.ctx, payment); err != nil {
			return fmt.Errorf("%w: presale %s rejected payment: %w", ErrExternalCallFailed, args.Target.Hex(), err)
		}
		emitPaid(t, &payment)
		out = &payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// quoteFee prefers the caller's override, then the configured provider.
func (p *Pool) quoteFee(ctx context.Context, balance, override *uint256.Int) (*uint256.Int, error) {
	if override != nil {
		return override.Clone(), nil
	}
	if p.fees == nil {
		return nil, fmt.Errorf("%w: no fee provider configured", ErrExternalCallFailed)
	}
	fee, err := p.fees.Fee(ctx, balance)
	if err != nil {
		return nil, fmt.Errorf("%w: fee quote: %w", ErrExternalCallFailed, err)
	}
	if fee == nil {
		return sdk.Zero(), nil
	}
	return fee, nil
}
