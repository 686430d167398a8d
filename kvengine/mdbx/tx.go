package mdbx

import (
	"errors"
	"fmt"

	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/erigontech/graphlayer/kvengine"
)

// Tx wraps an *mdbx.Txn to satisfy kvengine.Tx.
type Tx struct {
	txn   *mdbx.Txn
	write bool
}

func (t *Tx) Writable() bool { return t.write }

func (t *Tx) Get(db kvengine.DBI, key []byte) ([]byte, bool, error) {
	val, err := t.txn.Get(dbiOf(db), key)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mdbx: get: %w", err)
	}
	return val, true, nil
}

func (t *Tx) Put(db kvengine.DBI, key, val []byte, dupData bool) error {
	// dupData is advisory here: on a DupSort DBI, mdbx always appends a
	// new (key, val) duplicate unless it already exists; on a non-dupsort
	// DBI a Put always replaces. Both match what PropSet/byprop need.
	if err := t.txn.Put(dbiOf(db), key, val, 0); err != nil {
		return fmt.Errorf("mdbx: put: %w", err)
	}
	return nil
}

func (t *Tx) Replace(db kvengine.DBI, key, val []byte) ([]byte, error) {
	prior, _, err := t.Get(db, key)
	if err != nil {
		return nil, err
	}
	if err := t.txn.Put(dbiOf(db), key, val, 0); err != nil {
		return nil, fmt.Errorf("mdbx: replace: %w", err)
	}
	return prior, nil
}

func (t *Tx) Pop(db kvengine.DBI, key []byte) ([]byte, error) {
	prior, found, err := t.Get(db, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if err := t.txn.Del(dbiOf(db), key, nil); err != nil {
		return nil, fmt.Errorf("mdbx: pop: %w", err)
	}
	return prior, nil
}

func (t *Tx) Delete(db kvengine.DBI, key, val []byte) error {
	if err := t.txn.Del(dbiOf(db), key, val); err != nil {
		if mdbx.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("mdbx: delete: %w", err)
	}
	return nil
}

func (t *Tx) Cursor(db kvengine.DBI) (kvengine.Cursor, error) {
	c, err := t.txn.OpenCursor(dbiOf(db))
	if err != nil {
		return nil, fmt.Errorf("mdbx: open cursor: %w", err)
	}
	return &Cursor{c: c}, nil
}

func (t *Tx) Commit() error {
	if _, err := t.txn.Commit(); err != nil {
		return fmt.Errorf("mdbx: commit: %w", err)
	}
	return nil
}

func (t *Tx) Abort() error {
	t.txn.Abort()
	return nil
}

func dbiOf(db kvengine.DBI) mdbx.DBI {
	h, ok := db.(*dbiHandle)
	if !ok {
		panic(errors.New("mdbx: foreign kvengine.DBI passed to mdbx adapter"))
	}
	return h.dbi
}
