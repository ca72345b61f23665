package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBBackend stores pool state in a local leveldb directory.
type LevelDBBackend struct {
	db   *leveldb.DB
	sync bool
}

// OpenLevelDB opens (or creates) the database at path. With sync set every
// Apply is fsynced before returning.
func OpenLevelDB(path string, sync bool) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBBackend{db: db, sync: sync}, nil
}

// Get maps leveldb's not-found onto ErrNotFound.
func (l *LevelDBBackend) Get(_ context.Context, key string) ([]byte, error) {
	val, err := l.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return val, nil
}

// Apply writes the ops as one leveldb batch.
func (l *LevelDBBackend) Apply(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.Delete {
			batch.Delete([]byte(op.Key))
			continue
		}
		batch.Put([]byte(op.Key), op.Value)
	}
	if err := l.db.Write(batch, &opt.WriteOptions{Sync: l.sync}); err != nil {
		return fmt.Errorf("leveldb write batch: %w", err)
	}
	return nil
}

// Close releases the database lock.
func (l *LevelDBBackend) Close() error {
	return l.db.Close()
}
