package contract

import (
	"context"
	"fmt"
	"math"

	"presale_pool/sdk"
)

// -----------------------------------------------------------------------------
// State Guard
// -----------------------------------------------------------------------------

// legalStates lists, per operation, the lifecycle states it may run in.
var legalStates = map[Operation][]PoolState{
	OpDeposit:                 {StateOpen},
	OpWithdraw:                {StateOpen},
	OpWithdrawAll:             {StateOpen, StateFailed, StatePaid},
	OpWithdrawAllForMany:      {StateFailed},
	OpSetContributionSettings: {StateOpen},
	OpFail:                    {StateOpen},
	OpPayToPresale:            {StateOpen},
}

// CheckState returns ErrInvalidState when op is not legal in s.
func CheckState(s PoolState, op Operation) error {
	for _, allowed := range legalStates[op] {
		if allowed == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not allowed while %s", ErrInvalidState, op, s)
}

// guard runs the state check then the access check, in that order, and
// hands back the config the caller almost always needs next.
func (t *txn) guard(caller sdk.Address, op Operation) (*PoolConfig, PoolState, error) {
	cfg, err := t.loadConfig()
	if err != nil {
		return nil, StateUnspecified, err
	}
	s, err := t.loadState()
	if err != nil {
		return nil, StateUnspecified, err
	}
	if err := CheckState(s, op); err != nil {
		return nil, s, err
	}
	if err := t.accessControl(cfg).Check(caller, op); err != nil {
		return nil, s, err
	}
	return cfg, s, nil
}

// transition moves the pool to next and logs the flip.
func (t *txn) transition(next PoolState) error {
	if err := t.saveState(next); err != nil {
		return err
	}
	emitStateChanged(t, next)
	return nil
}

// -----------------------------------------------------------------------------
// Fail
// -----------------------------------------------------------------------------

// Fail moves an open pool to Failed. Deposits and settings freeze, refunds open up.
// With token drops configured it also fixes which contributors are owed a drop.
func (p *Pool) Fail(ctx context.Context, caller sdk.Address) error {
	return p.exec(ctx, OpFail, caller, func(t *txn) error {
		cfg, _, err := t.guard(caller, OpFail)
		if err != nil {
			return err
		}
		if cfg.TokenDrops > 0 {
			if err := t.recordDropCutoff(cfg.TokenDrops); err != nil {
				return err
			}
		}
		return t.transition(StateFailed)
	})
}

// recordDropCutoff stores the deposit seq of the last of the first drops
// contributors. Contributors after it, and everyone without a contribution,
// are refunded in full.
func (t *txn) recordDropCutoff(drops uint32) error {
	agg, err := t.loadAggregates()
	if err != nil {
		return err
	}
	cutoff := uint64(math.MaxUint64)
	var seen uint32
	err = t.forEachParticipant(agg.Participants, func(p *Participant) error {
		if p.Contribution.IsZero() || seen == drops {
			return nil
		}
		seen++
		if seen == drops {
			cutoff = p.Seq
		}
		return nil
	})
	if err != nil {
		return err
	}
	return t.saveDropCutoff(cutoff)
}
