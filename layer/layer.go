// Package layer implements the storage layer's two central objects: Layer,
// which owns the engine environment and the shared per-layer state, and
// Xact, the thread-pinned transaction object through which all reads and
// writes flow.
package layer

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/erigontech/graphlayer/encoding"
	"github.com/erigontech/graphlayer/kvengine"
	"github.com/erigontech/graphlayer/kvengine/mdbx"
	"github.com/erigontech/graphlayer/offsets"
	"github.com/erigontech/graphlayer/splicelog"
)

// Config is the caller-supplied configuration consumed by Open.
type Config struct {
	MapSize   datasize.ByteSize
	ReadAhead bool
}

// Layer owns the engine environment, the five sub-database handles, the
// encoder/utf8 interner tables, the offset store, and the splice log. It
// issues transactions and is the unit of lifecycle (Open/Fini).
type Layer struct {
	env    kvengine.Env
	bybuid kvengine.DBI
	byprop kvengine.DBI
	byuniv kvengine.DBI

	encoder *encoding.Encoder
	utf8    *encoding.Utf8Cache

	offsets *offsets.Store
	splices *splicelog.Log

	log log.Logger
}

// Open opens (creating if absent) the five sub-databases inside dir using
// the production mdbx-backed engine, with headroom for a few more
// sub-databases than the layer itself needs.
func Open(dir string, cfg Config) (*Layer, error) {
	env, err := mdbx.Open(dir, mdbx.Config{
		MapSize:   cfg.MapSize,
		ReadAhead: cfg.ReadAhead,
		MaxDBs:    128,
	})
	if err != nil {
		return nil, fmt.Errorf("layer: open environment at %s: %w", dir, err)
	}

	l, err := OpenWithEnv(env)
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	l.log.Info("layer opened", "dir", dir, "mapsize", cfg.MapSize.String())
	return l, nil
}

// OpenWithEnv builds a Layer over an already-open kvengine.Env, creating
// the five sub-databases if absent. It is the seam tests use to run
// against kvengine/memkv instead of the mdbx-backed production engine.
func OpenWithEnv(env kvengine.Env) (*Layer, error) {
	bybuid, err := env.OpenDBI(DBBybuid, false)
	if err != nil {
		return nil, fmt.Errorf("layer: open %s: %w", DBBybuid, err)
	}
	byprop, err := env.OpenDBI(DBByprop, true)
	if err != nil {
		return nil, fmt.Errorf("layer: open %s: %w", DBByprop, err)
	}
	byuniv, err := env.OpenDBI(DBByuniv, true)
	if err != nil {
		return nil, fmt.Errorf("layer: open %s: %w", DBByuniv, err)
	}
	offsDB, err := env.OpenDBI(DBOffsets, false)
	if err != nil {
		return nil, fmt.Errorf("layer: open %s: %w", DBOffsets, err)
	}
	splicesDB, err := env.OpenDBI(DBSplices, false)
	if err != nil {
		return nil, fmt.Errorf("layer: open %s: %w", DBSplices, err)
	}

	offsStore := offsets.Open(env, offsDB)

	return &Layer{
		env:     env,
		bybuid:  bybuid,
		byprop:  byprop,
		byuniv:  byuniv,
		encoder: encoding.NewEncoder(),
		utf8:    encoding.NewUtf8Cache(),
		offsets: offsStore,
		splices: splicelog.Open(splicesDB, offsStore),
		log:     log.New("component", "graphlayer"),
	}, nil
}

// Xact opens a new transaction pinned to the calling goroutine.
func (l *Layer) Xact(write bool) (*Xact, error) {
	return newXact(l, write)
}

// GetOffset reads iden's offset in its own read transaction.
func (l *Layer) GetOffset(iden string) (uint64, error) {
	return l.offsets.Get(iden)
}

// SetOffset writes iden's offset in its own write transaction.
func (l *Layer) SetOffset(iden string, offs uint64) error {
	return l.offsets.Set(iden, offs)
}

// Splices opens a read transaction and streams up to size splice records
// starting at offs.
func (l *Layer) Splices(offs uint64, size int) ([]splicelog.Record, error) {
	tx, err := l.env.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("layer: begin splices read txn: %w", err)
	}
	defer tx.Abort()

	return l.splices.Slice(tx, offs, size)
}

// DB looks up a sub-database handle by name.
func (l *Layer) DB(name string) (kvengine.DBI, error) {
	return l.env.DBI(name)
}

// Fini syncs and closes the environment. The caller must ensure every
// outstanding transaction has ended first.
func (l *Layer) Fini() error {
	if err := l.env.Sync(); err != nil {
		l.log.Warn("layer sync failed during fini", "err", err)
		return fmt.Errorf("layer: sync: %w", err)
	}
	if err := l.env.Close(); err != nil {
		return fmt.Errorf("layer: close: %w", err)
	}
	l.log.Info("layer closed")
	return nil
}
