package contract

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"presale_pool/state"
)

// txn is the per-operation view of the store. Every write goes into the
// journal; the pool commits or discards it once the operation returns.
type txn struct {
	ctx    context.Context
	j      *state.Journal
	events []string
	fields []zap.Field
}

type savepoint struct {
	journal int
	events  int
}

func newTxn(ctx context.Context, r state.Reader) *txn {
	return &txn{ctx: ctx, j: state.NewJournal(r)}
}

// note attaches fields to the operation's log line.
func (t *txn) note(fields ...zap.Field) {
	t.fields = append(t.fields, fields...)
}

// get returns (nil, false, nil) for absent keys.
func (t *txn) get(key string) ([]byte, bool, error) {
	val, err := t.j.Get(t.ctx, key)
	if errors.Is(err, state.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// set writes only when the encoded value differs from what is stored.
func (t *txn) set(key string, value []byte) error {
	return t.j.SetIfChanged(t.ctx, key, value)
}

// emit queues an event line, published after commit.
func (t *txn) emit(line string) {
	t.events = append(t.events, line)
}

func (t *txn) savepoint() savepoint {
	return savepoint{journal: t.j.Savepoint(), events: len(t.events)}
}

// rollbackTo undoes writes and events made after sp.
func (t *txn) rollbackTo(sp savepoint) {
	t.j.RollbackTo(sp.journal)
	if sp.events < len(t.events) {
		t.events = t.events[:sp.events]
	}
}

// -----------------------------------------------------------------------------
// Pool records
// -----------------------------------------------------------------------------

func (t *txn) isInitialized() (bool, error) {
	_, ok, err := t.get(poolConfigKey())
	return ok, err
}

func (t *txn) loadConfig() (*PoolConfig, error) {
	raw, ok, err := t.get(poolConfigKey())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return DecodePoolConfig(raw)
}

func (t *txn) saveConfig(c *PoolConfig) error {
	return t.set(poolConfigKey(), EncodePoolConfig(c))
}

func (t *txn) loadState() (PoolState, error) {
	raw, ok, err := t.get(poolStateKey())
	if err != nil {
		return StateUnspecified, err
	}
	if !ok {
		return StateUnspecified, ErrNotInitialized
	}
	if len(raw) != 1 || PoolState(raw[0]) < StateOpen || PoolState(raw[0]) > StatePaid {
		return StateUnspecified, fmt.Errorf("%w: state byte %x", ErrCorruptState, raw)
	}
	return PoolState(raw[0]), nil
}

func (t *txn) saveState(s PoolState) error {
	return t.set(poolStateKey(), []byte{byte(s)})
}

func (t *txn) loadPolicy() (*Policy, error) {
	raw, ok, err := t.get(poolPolicyKey())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return DecodePolicy(raw)
}

func (t *txn) savePolicy(p *Policy) error {
	return t.set(poolPolicyKey(), EncodePolicy(p))
}

func (t *txn) loadAggregates() (*Aggregates, error) {
	raw, ok, err := t.get(poolAggregatesKey())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return DecodeAggregates(raw)
}

func (t *txn) saveAggregates(a *Aggregates) error {
	return t.set(poolAggregatesKey(), EncodeAggregates(a))
}

// loadDropCutoff returns the last deposit seq that receives a token drop.
// A pool that never recorded one caps nobody.
func (t *txn) loadDropCutoff() (uint64, error) {
	raw, ok, err := t.get(dropCutoffKey())
	if err != nil {
		return 0, err
	}
	if !ok {
		return math.MaxUint64, nil
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("%w: drop cutoff %x", ErrCorruptState, raw)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (t *txn) saveDropCutoff(seq uint64) error {
	return t.set(dropCutoffKey(), packU64BE(seq, nil))
}
