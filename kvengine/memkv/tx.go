package memkv

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/btree"

	"github.com/erigontech/graphlayer/kvengine"
)

// Tx is a read or read-write transaction over an in-memory Env.
type Tx struct {
	env     *Env
	write   bool
	base    *state // snapshot in effect when this tx began
	working *state // write-only: this tx's private clones, published on Commit
	done    bool
}

func (t *Tx) Writable() bool { return t.write }

func (t *Tx) activeState() *state {
	if t.write {
		return t.working
	}
	return t.base
}

func (t *Tx) tree(db kvengine.DBI) *btree.BTree {
	return t.activeState().trees[db.Name()]
}

func (t *Tx) requireWrite() error {
	if !t.write {
		return fmt.Errorf("memkv: write operation on a read-only transaction")
	}
	if t.done {
		return fmt.Errorf("memkv: transaction already closed")
	}
	return nil
}

func (t *Tx) Get(db kvengine.DBI, key []byte) ([]byte, bool, error) {
	tr := t.tree(db)
	found := tr.Get(newItem(key))
	if found == nil {
		return nil, false, nil
	}
	it := found.(*item)
	if len(it.vals) == 0 {
		return nil, false, nil
	}
	return it.vals[0], true, nil
}

func (t *Tx) Put(db kvengine.DBI, key, val []byte, dupData bool) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	tr := t.tree(db)
	existing := tr.Get(newItem(key))

	if existing == nil {
		it := &item{key: append([]byte{}, key...)}
		it.vals = append(it.vals, append([]byte{}, val...))
		tr.ReplaceOrInsert(it)
		return nil
	}

	// Items are shared with older snapshots' trees, so a changed key gets a
	// fresh item rather than an in-place edit.
	it := existing.(*item)
	if !db.DupSort() || !dupData {
		tr.ReplaceOrInsert(&item{key: it.key, vals: [][]byte{append([]byte{}, val...)}})
		return nil
	}

	for _, v := range it.vals {
		if bytes.Equal(v, val) {
			return nil // duplicate of an existing duplicate, no-op
		}
	}
	vals := make([][]byte, 0, len(it.vals)+1)
	vals = append(vals, it.vals...)
	vals = append(vals, append([]byte{}, val...))
	sort.Slice(vals, func(i, j int) bool { return bytes.Compare(vals[i], vals[j]) < 0 })
	tr.ReplaceOrInsert(&item{key: it.key, vals: vals})
	return nil
}

func (t *Tx) Replace(db kvengine.DBI, key, val []byte) ([]byte, error) {
	if err := t.requireWrite(); err != nil {
		return nil, err
	}
	prior, _, err := t.Get(db, key)
	if err != nil {
		return nil, err
	}
	tr := t.tree(db)
	it := &item{key: append([]byte{}, key...), vals: [][]byte{append([]byte{}, val...)}}
	tr.ReplaceOrInsert(it)
	return prior, nil
}

func (t *Tx) Pop(db kvengine.DBI, key []byte) ([]byte, error) {
	if err := t.requireWrite(); err != nil {
		return nil, err
	}
	prior, found, err := t.Get(db, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	t.tree(db).Delete(newItem(key))
	return prior, nil
}

func (t *Tx) Delete(db kvengine.DBI, key, val []byte) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	tr := t.tree(db)
	existing := tr.Get(newItem(key))
	if existing == nil {
		return nil
	}
	it := existing.(*item)
	out := make([][]byte, 0, len(it.vals))
	for _, v := range it.vals {
		if !bytes.Equal(v, val) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		tr.Delete(newItem(key))
		return nil
	}
	tr.ReplaceOrInsert(&item{key: it.key, vals: out})
	return nil
}

func (t *Tx) Cursor(db kvengine.DBI) (kvengine.Cursor, error) {
	return &Cursor{tree: t.tree(db)}, nil
}

func (t *Tx) Commit() error {
	if !t.write {
		t.done = true
		return nil
	}
	if t.done {
		return fmt.Errorf("memkv: transaction already closed")
	}
	t.env.cur.Store(t.working)
	t.env.writeLock.Unlock()
	t.done = true
	return nil
}

func (t *Tx) Abort() error {
	if t.done {
		return nil
	}
	if t.write {
		t.env.writeLock.Unlock()
	}
	t.done = true
	return nil
}
