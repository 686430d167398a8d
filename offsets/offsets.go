// Package offsets implements the per-iden offset store: a dedicated
// sub-database mapping a consumer identifier to a monotonic
// u64 progress marker, with both stand-alone (self-opened-txn) and
// transactional (caller-supplied-txn) accessors.
package offsets

import (
	"encoding/binary"
	"fmt"

	"github.com/erigontech/graphlayer/kvengine"
)

// Store wraps the "offsets" sub-database.
type Store struct {
	env kvengine.Env
	db  kvengine.DBI
}

// Open wraps an already-opened "offsets" sub-database.
func Open(env kvengine.Env, db kvengine.DBI) *Store {
	return &Store{env: env, db: db}
}

// Get returns the offset for iden, or 0 if it has never been set.
func (s *Store) Get(iden string) (uint64, error) {
	tx, err := s.env.Begin(false)
	if err != nil {
		return 0, fmt.Errorf("offsets: begin read txn: %w", err)
	}
	defer tx.Abort()

	return s.XGet(tx, iden)
}

// Set overwrites the offset for iden, opening and committing its own
// write transaction.
func (s *Store) Set(iden string, offs uint64) error {
	tx, err := s.env.Begin(true)
	if err != nil {
		return fmt.Errorf("offsets: begin write txn: %w", err)
	}

	if err := s.XSet(tx, iden, offs); err != nil {
		_ = tx.Abort()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("offsets: commit: %w", err)
	}
	return nil
}

// XGet returns the offset for iden within an externally managed
// transaction, so a writer can coalesce an offset read with other work in
// the same txn.
func (s *Store) XGet(tx kvengine.Tx, iden string) (uint64, error) {
	val, found, err := tx.Get(s.db, []byte(iden))
	if err != nil {
		return 0, fmt.Errorf("offsets: get %q: %w", iden, err)
	}
	if !found {
		return 0, nil
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("offsets: corrupt offset record for %q: want 8 bytes, got %d", iden, len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// XSet overwrites the offset for iden within an externally managed
// transaction.
func (s *Store) XSet(tx kvengine.Tx, iden string, offs uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], offs)
	if err := tx.Put(s.db, []byte(iden), buf[:], false); err != nil {
		return fmt.Errorf("offsets: set %q: %w", iden, err)
	}
	return nil
}
