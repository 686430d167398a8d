// Package kvengine defines a thin adapter interface over a memory-mapped
// B-tree key-value engine: named sub-databases, optional duplicate-key
// support, cursors, and read/read-write transactions. Two implementations
// satisfy it: kvengine/mdbx (backed by github.com/erigontech/mdbx-go, for
// production use) and kvengine/memkv (backed by github.com/google/btree,
// for tests that should not require cgo/libmdbx).
package kvengine

import "errors"

// ErrDBINotFound is returned by Env.DBI when no sub-database with that
// name has been opened.
var ErrDBINotFound = errors.New("kvengine: no such sub-database")

// Env is an open storage environment: a directory of sub-databases shared
// by every transaction.
type Env interface {
	// OpenDBI opens (creating if absent) a named sub-database. dupSort
	// enables duplicate keys (multiple values per key, engine-ordered).
	OpenDBI(name string, dupSort bool) (DBI, error)

	// DBI looks up a previously opened sub-database by name.
	DBI(name string) (DBI, error)

	// Begin starts a transaction. Only one write transaction may be active
	// at a time; any number of read transactions may run concurrently
	// with it and with each other.
	Begin(write bool) (Tx, error)

	// Sync flushes any buffered writes to stable storage.
	Sync() error

	// Close releases the environment. Callers must ensure every
	// transaction has ended first.
	Close() error
}

// DBI is a handle to one named sub-database within an Env.
type DBI interface {
	Name() string
	DupSort() bool
}

// Tx is a single read or read-write transaction.
type Tx interface {
	Writable() bool

	// Get returns the value for key, or found=false if key is absent.
	Get(db DBI, key []byte) (val []byte, found bool, err error)

	// Put inserts or overwrites key -> val. For a dupSort DBI with
	// dupData=true, (key, val) is added alongside any existing duplicates
	// instead of replacing them.
	Put(db DBI, key, val []byte, dupData bool) error

	// Replace is Put for a non-dupSort DBI that also returns the prior
	// value (nil if key was absent).
	Replace(db DBI, key, val []byte) (prior []byte, err error)

	// Pop deletes key and returns its prior value (nil if key was
	// absent).
	Pop(db DBI, key []byte) (prior []byte, err error)

	// Delete removes exactly the (key, val) duplicate from a dupSort DBI.
	Delete(db DBI, key, val []byte) error

	// Cursor opens a cursor over db, scoped to this transaction's
	// lifetime.
	Cursor(db DBI) (Cursor, error)

	// Commit finalizes a write transaction (no-op semantics for read
	// transactions beyond releasing resources).
	Commit() error

	// Abort discards the transaction and releases its resources.
	Abort() error
}

// Cursor walks a DBI's keys in engine (lexicographic) order.
type Cursor interface {
	// SetKey seeks exactly to key. found is false if no such key exists;
	// the cursor position is then undefined for Next/NextDup.
	SetKey(key []byte) (val []byte, found bool, err error)

	// SetRange seeks to the first key >= key. found is false if the
	// engine has no key >= key.
	SetRange(key []byte) (k, v []byte, found bool, err error)

	// Next advances to the very next record in engine order: for a
	// dupSort DBI this yields the current key's remaining duplicate
	// values before moving on to the next distinct key (mirroring plain
	// MDB_NEXT, not MDB_NEXT_NODUP). found is false at end-of-database.
	Next() (k, v []byte, found bool, err error)

	// NextDup advances to the next duplicate value of the current key.
	// found is false once duplicates of the current key are exhausted.
	NextDup() (v []byte, found bool, err error)

	// Close releases the cursor. Safe to call multiple times.
	Close()
}
