// Package memkv is an in-memory kvengine.Env backed by
// github.com/google/btree, used by the test suite so it can exercise
// layer's transaction and indexing logic without requiring cgo/libmdbx.
// It honors the same single-writer/multi-reader, stable-snapshot contract
// as kvengine/mdbx by relying on google/btree's copy-on-write Clone: a
// write transaction mutates its own clone of each
// sub-database's tree, and only publishes it atomically on Commit, so
// readers that began before the commit keep seeing the pre-commit trees.
package memkv

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/erigontech/graphlayer/kvengine"
)

// item is one key's worth of values in a sub-database's tree. Plain (no
// duplicates) DBIs keep exactly one entry in vals; dupSort DBIs may keep
// several, stored in engine (sorted) order.
type item struct {
	key  []byte
	vals [][]byte
}

func (a *item) Less(than btree.Item) bool {
	b := than.(*item)
	return bytes.Compare(a.key, b.key) < 0
}

func newItem(key []byte) *item { return &item{key: key} }

type dbi struct {
	name    string
	dupSort bool
}

func (d *dbi) Name() string  { return d.name }
func (d *dbi) DupSort() bool { return d.dupSort }

type state struct {
	dbis  map[string]*dbi
	trees map[string]*btree.BTree
}

func (s *state) clone() *state {
	ns := &state{
		dbis:  make(map[string]*dbi, len(s.dbis)),
		trees: make(map[string]*btree.BTree, len(s.trees)),
	}
	for k, v := range s.dbis {
		ns.dbis[k] = v
	}
	for k, v := range s.trees {
		ns.trees[k] = v
	}
	return ns
}

// Env is an in-memory, MDBX-shaped key-value environment.
type Env struct {
	writeLock sync.Mutex
	cur       atomic.Pointer[state]
}

// New returns an empty in-memory environment.
func New() *Env {
	e := &Env{}
	e.cur.Store(&state{dbis: map[string]*dbi{}, trees: map[string]*btree.BTree{}})
	return e
}

func (e *Env) OpenDBI(name string, dupSort bool) (kvengine.DBI, error) {
	e.writeLock.Lock()
	defer e.writeLock.Unlock()

	st := e.cur.Load()
	if d, ok := st.dbis[name]; ok {
		return d, nil
	}

	ns := st.clone()
	d := &dbi{name: name, dupSort: dupSort}
	ns.dbis[name] = d
	ns.trees[name] = btree.New(32)
	e.cur.Store(ns)
	return d, nil
}

func (e *Env) DBI(name string) (kvengine.DBI, error) {
	st := e.cur.Load()
	d, ok := st.dbis[name]
	if !ok {
		return nil, fmt.Errorf("memkv: %w: %q", kvengine.ErrDBINotFound, name)
	}
	return d, nil
}

func (e *Env) Begin(write bool) (kvengine.Tx, error) {
	if write {
		e.writeLock.Lock()
	}
	base := e.cur.Load()

	var working *state
	if write {
		working = base.clone()
		for name, tr := range working.trees {
			working.trees[name] = tr.Clone()
		}
	}

	return &Tx{env: e, write: write, base: base, working: working}, nil
}

func (e *Env) Sync() error { return nil }

func (e *Env) Close() error { return nil }
