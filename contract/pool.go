package contract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"presale_pool/sdk"
	"presale_pool/state"
)

// Dependencies wires a pool to its store and its external collaborators.
// Backend and Bank are required; the rest are only needed by the operations
// that call them.
type Dependencies struct {
	Backend state.Backend
	Bank    Transferer
	Fees    FeeRateProvider
	Gas     GasCostEstimator
	Target  DistributionTarget
	Events  EventSink
	Logger  *zap.Logger
	Now     func() time.Time
}

// Pool is the single writer over one presale pool. Every operation runs under
// the mutex inside its own journal, and either commits fully or leaves the
// store untouched.
type Pool struct {
	mu      sync.Mutex
	backend state.Backend
	bank    Transferer
	fees    FeeRateProvider
	gas     GasCostEstimator
	target  DistributionTarget
	events  EventSink
	log     *zap.Logger
	now     func() time.Time
}

// CreateArgs is the input of Create.
type CreateArgs struct {
	Administrator sdk.Address
	TokenDrops    uint32
	Settings      Settings
}

func newPool(deps Dependencies) (*Pool, error) {
	if deps.Backend == nil {
		return nil, errors.New("pool needs a state backend")
	}
	if deps.Bank == nil {
		return nil, errors.New("pool needs a transferer")
	}
	p := &Pool{
		backend: deps.Backend,
		bank:    deps.Bank,
		fees:    deps.Fees,
		gas:     deps.Gas,
		target:  deps.Target,
		events:  deps.Events,
		log:     deps.Logger,
		now:     deps.Now,
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.events == nil {
		p.events = zapSink{log: p.log.Named("events")}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Create initializes a fresh pool in Open state with the administrator and
// initial settings. It fails with ErrAlreadyInitialized when the backend
// already holds a pool.
func Create(ctx context.Context, deps Dependencies, args CreateArgs) (*Pool, error) {
	p, err := newPool(deps)
	if err != nil {
		return nil, err
	}
	err = p.exec(ctx, opName("create"), args.Administrator, func(t *txn) error {
		ok, err := t.isInitialized()
		if err != nil {
			return err
		}
		if ok {
			return ErrAlreadyInitialized
		}
		if args.Administrator == sdk.ZeroAddress {
			return fmt.Errorf("%w: administrator required", ErrInvalidAddress)
		}
		if err := ValidatePolicy(&args.Settings); err != nil {
			return err
		}
		cfg := &PoolConfig{
			Administrator: args.Administrator,
			TokenDrops:    args.TokenDrops,
			CreatedAt:     p.now().Unix(),
		}
		if err := t.saveConfig(cfg); err != nil {
			return err
		}
		if err := t.saveState(StateOpen); err != nil {
			return err
		}
		if err := t.savePolicy(clonePolicy(&args.Settings)); err != nil {
			return err
		}
		if err := t.saveAggregates(newAggregates()); err != nil {
			return err
		}
		emitInitEvent(t, cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Load attaches to a pool that Create already wrote to the backend.
func Load(ctx context.Context, deps Dependencies) (*Pool, error) {
	p, err := newPool(deps)
	if err != nil {
		return nil, err
	}
	t := newTxn(ctx, p.backend)
	if _, err := t.loadConfig(); err != nil {
		return nil, err
	}
	return p, nil
}

func newAggregates() *Aggregates {
	return &Aggregates{
		TotalDeposited:    sdk.Zero(),
		TotalContribution: sdk.Zero(),
		TotalRemaining:    sdk.Zero(),
		TotalWithdrawn:    sdk.Zero(),
		TotalForwarded:    sdk.Zero(),
		TotalFees:         sdk.Zero(),
		TotalGasDeducted:  sdk.Zero(),
	}
}

// -----------------------------------------------------------------------------
// Execution
// -----------------------------------------------------------------------------

// partialCommit tells exec to keep the writes made so far and still report err.
// The batch refund uses it once some payouts already left the pool.
type partialCommit struct {
	err error
}

func (e *partialCommit) Error() string { return e.err.Error() }
func (e *partialCommit) Unwrap() error { return e.err }

// exec runs fn in a fresh journal under the pool lock. A nil result commits
// and then publishes the queued events; any other error discards everything.
func (p *Pool) exec(ctx context.Context, op fmt.Stringer, caller sdk.Address, fn func(t *txn) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := newTxn(ctx, p.backend)
	err := fn(t)
	log := p.log.With(zap.Stringer("op", op), shortCaller(caller))

	var partial *partialCommit
	if err != nil && !errors.As(err, &partial) {
		t.j.Discard()
		log.Info("operation rejected", append(t.fields, zap.Error(err))...)
		return err
	}

	writes := t.j.Len()
	if cerr := t.j.Commit(ctx, p.backend); cerr != nil {
		// external calls inside fn may already have happened, this needs an operator
		log.Error("commit failed", append(t.fields, zap.Error(cerr))...)
		return fmt.Errorf("commit %s: %w", op, cerr)
	}
	for _, line := range t.events {
		p.events.Emit(line)
	}

	if partial != nil {
		log.Warn("operation partially applied", append(t.fields, zap.Error(partial.err))...)
		return partial.err
	}
	log.Debug("operation applied", append(t.fields, zap.Int("writes", writes))...)
	return nil
}

// read runs fn against a throwaway journal under the lock, for the views.
func (p *Pool) read(ctx context.Context, fn func(t *txn) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := newTxn(ctx, p.backend)
	defer t.j.Discard()
	return fn(t)
}

type opName string

func (o opName) String() string { return string(o) }
