// Package splicelog implements the append-only splice change log: messages
// keyed by an 8-byte big-endian offset so lexicographic cursor order equals
// numeric order, plus an edge-triggered signal tailers can wait on.
package splicelog

import (
	"encoding/binary"
	"fmt"

	"github.com/erigontech/graphlayer/codec"
	"github.com/erigontech/graphlayer/internal/mathutil"
	"github.com/erigontech/graphlayer/kvengine"
	"github.com/erigontech/graphlayer/offsets"
)

// nextOffsetIden is the reserved key, inside the offsets sub-database,
// holding the next offset Save will assign. Rather than carve out a sixth
// sub-database purely to hold one counter, the counter is a single
// reserved iden in the offsets store.
const nextOffsetIden = "splices"

// Log wraps the "splices" sub-database.
type Log struct {
	db     kvengine.DBI
	offs   *offsets.Store
	waiter *Waiter
}

// Open wraps an already-opened "splices" sub-database. offs must be backed
// by the same Env's "offsets" sub-database.
func Open(db kvengine.DBI, offs *offsets.Store) *Log {
	return &Log{db: db, offs: offs, waiter: NewWaiter()}
}

// Waiter returns the edge-triggered signal that fires once per committing
// write transaction that appended at least one splice.
func (l *Log) Waiter() *Waiter { return l.waiter }

// Save assigns consecutive offsets starting at the log's next free offset,
// writes each message, and advances the counter — all within tx, so the
// assignment is atomic with whatever else tx is doing. It does not commit
// tx or signal the waiter; the caller (layer.Xact.Commit) does that after
// the engine transaction itself commits.
func (l *Log) Save(tx kvengine.Tx, messages []interface{}) error {
	if len(messages) == 0 {
		return nil
	}

	next, err := l.offs.XGet(tx, nextOffsetIden)
	if err != nil {
		return fmt.Errorf("splicelog: read next offset: %w", err)
	}

	for i, msg := range messages {
		offs, overflow := mathutil.SafeAdd(next, uint64(i))
		if overflow {
			return fmt.Errorf("splicelog: offset counter overflow")
		}

		enc, err := codec.EncodeMessage(msg)
		if err != nil {
			return fmt.Errorf("splicelog: encode message at offset %d: %w", offs, err)
		}

		var key [8]byte
		binary.BigEndian.PutUint64(key[:], offs)
		if err := tx.Put(l.db, key[:], enc, false); err != nil {
			return fmt.Errorf("splicelog: put offset %d: %w", offs, err)
		}
	}

	newNext, overflow := mathutil.SafeAdd(next, uint64(len(messages)))
	if overflow {
		return fmt.Errorf("splicelog: offset counter overflow")
	}
	if err := l.offs.XSet(tx, nextOffsetIden, newNext); err != nil {
		return fmt.Errorf("splicelog: advance next offset: %w", err)
	}

	return nil
}

// Record is one (offset, message) pair read back from the log.
type Record struct {
	Offs uint64
	Msg  interface{}
}

// Slice opens a cursor on tx, seeks to offs, and reads up to size records
// in order. The returned slice is finite and not restartable — callers
// re-slice to restart a tail from a later offset.
func (l *Log) Slice(tx kvengine.Tx, offs uint64, size int) ([]Record, error) {
	if size <= 0 {
		return nil, nil
	}

	curs, err := tx.Cursor(l.db)
	if err != nil {
		return nil, fmt.Errorf("splicelog: open cursor: %w", err)
	}
	defer curs.Close()

	var startKey [8]byte
	binary.BigEndian.PutUint64(startKey[:], offs)

	k, v, found, err := curs.SetRange(startKey[:])
	if err != nil {
		return nil, fmt.Errorf("splicelog: seek to offset %d: %w", offs, err)
	}

	var out []Record
	for found && len(out) < size {
		if len(k) != 8 {
			return nil, fmt.Errorf("splicelog: corrupt key length %d at record %d", len(k), len(out))
		}
		msg, err := codec.DecodeMessage(v)
		if err != nil {
			return nil, fmt.Errorf("splicelog: decode record at offset %d: %w", binary.BigEndian.Uint64(k), err)
		}
		out = append(out, Record{Offs: binary.BigEndian.Uint64(k), Msg: msg})

		k, v, found, err = curs.Next()
		if err != nil {
			return nil, fmt.Errorf("splicelog: advance cursor: %w", err)
		}
	}

	return out, nil
}
