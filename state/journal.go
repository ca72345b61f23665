package state

import (
	"bytes"
	"context"
	"errors"
)

// Journal buffers writes on top of a Reader. Reads see the buffered writes
// first. Nothing reaches the backend until Commit.
type Journal struct {
	r      Reader
	writes []Op
	index  map[string]int
}

// NewJournal starts an empty journal over r.
func NewJournal(r Reader) *Journal {
	return &Journal{r: r, index: make(map[string]int)}
}

// Get returns the buffered value if any, otherwise reads through.
func (j *Journal) Get(ctx context.Context, key string) ([]byte, error) {
	if i, ok := j.index[key]; ok {
		op := j.writes[i]
		if op.Delete {
			return nil, ErrNotFound
		}
		return op.Value, nil
	}
	return j.r.Get(ctx, key)
}

// Set buffers a write; the value is copied.
func (j *Journal) Set(key string, value []byte) {
	j.push(Op{Key: key, Value: append([]byte(nil), value...)})
}

// SetIfChanged skips the write when the current value is identical so
// commits only carry real changes.
func (j *Journal) SetIfChanged(ctx context.Context, key string, value []byte) error {
	cur, err := j.Get(ctx, key)
	switch {
	case err == nil && bytes.Equal(cur, value):
		return nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}
	j.Set(key, value)
	return nil
}

// Delete buffers a delete.
func (j *Journal) Delete(key string) {
	j.push(Op{Key: key, Delete: true})
}

func (j *Journal) push(op Op) {
	j.writes = append(j.writes, op)
	j.index[op.Key] = len(j.writes) - 1
}

// Savepoint marks the current position for RollbackTo.
func (j *Journal) Savepoint() int {
	return len(j.writes)
}

// RollbackTo drops every write made after sp.
func (j *Journal) RollbackTo(sp int) {
	if sp < 0 || sp >= len(j.writes) {
		return
	}
	j.writes = j.writes[:sp]
	j.index = make(map[string]int, len(j.writes))
	for i, op := range j.writes {
		j.index[op.Key] = i
	}
}

// Ops returns the latest write per key, in first-write order.
func (j *Journal) Ops() []Op {
	out := make([]Op, 0, len(j.index))
	seen := make(map[string]struct{}, len(j.index))
	for _, op := range j.writes {
		if _, ok := seen[op.Key]; ok {
			continue
		}
		seen[op.Key] = struct{}{}
		out = append(out, j.writes[j.index[op.Key]])
	}
	return out
}

// Len reports how many distinct keys are dirty.
func (j *Journal) Len() int {
	return len(j.index)
}

// Commit applies the buffered ops atomically and resets the journal.
func (j *Journal) Commit(ctx context.Context, b Backend) error {
	ops := j.Ops()
	if len(ops) == 0 {
		return nil
	}
	if err := b.Apply(ctx, ops); err != nil {
		return err
	}
	j.Discard()
	return nil
}

// Discard forgets every buffered write.
func (j *Journal) Discard() {
	j.writes = nil
	j.index = make(map[string]int)
}
