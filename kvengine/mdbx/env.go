// Package mdbx implements kvengine.Env/Tx/Cursor over
// github.com/erigontech/mdbx-go, a memory-mapped B-tree engine binding.
// This is the production adapter; kvengine/memkv provides the same
// interface over an in-memory btree for tests that should not need
// cgo/libmdbx.
package mdbx

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/erigontech/graphlayer/kvengine"
)

// Config is the environment's tunable surface: map size and read-ahead,
// renamed to Go fields since config parsing itself is out of scope for this
// layer (the caller parses whatever config format it uses and fills this
// struct in).
type Config struct {
	// MapSize is the environment's maximum map size. Typed as
	// datasize.ByteSize so callers can build it from strings like "64GB".
	MapSize datasize.ByteSize

	// ReadAhead enables the engine's read-ahead hint for sequential scans.
	ReadAhead bool

	// MaxDBs bounds the number of named sub-databases the environment can
	// hold. The layer only ever needs five, but a little headroom avoids
	// surprising callers who add sub-databases of their own.
	MaxDBs int
}

// DefaultMapSize is used when Config.MapSize is zero.
const DefaultMapSize = 16 * datasize.GB

// Env opens an MDBX environment at dir, creating it if absent.
type Env struct {
	env  *mdbx.Env
	dbis map[string]*dbiHandle
}

type dbiHandle struct {
	dbi     mdbx.DBI
	name    string
	dupSort bool
}

func (d *dbiHandle) Name() string   { return d.name }
func (d *dbiHandle) DupSort() bool  { return d.dupSort }

// Open opens (creating if absent) an MDBX environment rooted at dir.
func Open(dir string, cfg Config) (*Env, error) {
	if cfg.MapSize == 0 {
		cfg.MapSize = DefaultMapSize
	}
	if cfg.MaxDBs == 0 {
		cfg.MaxDBs = 128
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mdbx: create layer dir %q: %w", dir, err)
	}

	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("mdbx: new env: %w", err)
	}

	if err := env.SetOption(mdbx.OptMaxDB, uint64(cfg.MaxDBs)); err != nil {
		return nil, fmt.Errorf("mdbx: set max dbs: %w", err)
	}

	if err := env.SetGeometry(-1, -1, int(cfg.MapSize.Bytes()), -1, -1, -1); err != nil {
		return nil, fmt.Errorf("mdbx: set geometry: %w", err)
	}

	flags := uint(mdbx.WriteMap)
	if !cfg.ReadAhead {
		flags |= mdbx.NoReadahead
	}

	if err := env.Open(dir, flags, 0o644); err != nil {
		return nil, fmt.Errorf("mdbx: open %q: %w", dir, err)
	}

	return &Env{env: env, dbis: make(map[string]*dbiHandle)}, nil
}

// OpenDBI opens (creating if absent) a named sub-database.
func (e *Env) OpenDBI(name string, dupSort bool) (kvengine.DBI, error) {
	if h, ok := e.dbis[name]; ok {
		return h, nil
	}

	flags := uint(mdbx.Create)
	if dupSort {
		flags |= mdbx.DupSort
	}

	var dbi mdbx.DBI
	err := e.env.Update(func(txn *mdbx.Txn) error {
		var err error
		dbi, err = txn.OpenDBI(name, flags, nil, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("mdbx: open dbi %q: %w", name, err)
	}

	h := &dbiHandle{dbi: dbi, name: name, dupSort: dupSort}
	e.dbis[name] = h
	return h, nil
}

// DBI looks up a previously opened sub-database by name.
func (e *Env) DBI(name string) (kvengine.DBI, error) {
	h, ok := e.dbis[name]
	if !ok {
		return nil, fmt.Errorf("mdbx: %w: %q", kvengine.ErrDBINotFound, name)
	}
	return h, nil
}

// Begin starts a read or read-write transaction.
func (e *Env) Begin(write bool) (kvengine.Tx, error) {
	flags := uint(0)
	if !write {
		flags = mdbx.Readonly
	}
	txn, err := e.env.BeginTxn(nil, flags)
	if err != nil {
		return nil, fmt.Errorf("mdbx: begin txn(write=%v): %w", write, err)
	}
	return &Tx{txn: txn, write: write}, nil
}

// Sync flushes buffered writes to stable storage.
func (e *Env) Sync() error {
	if err := e.env.Sync(true, false); err != nil {
		return fmt.Errorf("mdbx: sync: %w", err)
	}
	return nil
}

// Close releases the environment. Callers must ensure every transaction
// has ended first.
func (e *Env) Close() error {
	e.env.Close()
	return nil
}
