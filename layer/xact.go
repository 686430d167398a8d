package layer

import (
	"bytes"
	"fmt"

	"github.com/petermattis/goid"

	"github.com/erigontech/graphlayer/codec"
	"github.com/erigontech/graphlayer/encoding"
	"github.com/erigontech/graphlayer/kvengine"
)

// maxIndxLen is the index-byte-string length bound: PropSet rejects any
// Indx longer than this.
const maxIndxLen = 256

// Xact is a read or read-write scoped view over a Layer. It is pinned to
// the goroutine that created it via its goid; every mutating or terminal
// method checks it.
type Xact struct {
	layer *Layer
	tx    kvengine.Tx
	write bool

	ownerGoid int64
	cache     *rowCache
	pending   []interface{}
	closed    bool
}

func newXact(l *Layer, write bool) (*Xact, error) {
	tx, err := l.env.Begin(write)
	if err != nil {
		return nil, fmt.Errorf("layer: begin txn(write=%v): %w", write, err)
	}

	x := &Xact{
		layer:     l,
		tx:        tx,
		write:     write,
		ownerGoid: goid.Get(),
	}
	x.cache = newRowCache(x.fillBuidProps)
	return x, nil
}

func (x *Xact) guard() error {
	if goid.Get() != x.ownerGoid {
		return ErrBadThread
	}
	if x.closed {
		return ErrXactClosed
	}
	return nil
}

// Stor executes a batch of storage operations in order. An error aborts
// the current operation and is returned; operations already applied in
// this txn remain buffered — callers that do not handle the error
// explicitly should Abort.
func (x *Xact) Stor(ops []StorOp) error {
	if err := x.guard(); err != nil {
		return err
	}
	for i, op := range ops {
		var err error
		switch v := op.(type) {
		case PropSet:
			err = x.propSet(v)
		case PropDel:
			err = x.propDel(v)
		default:
			err = ErrNoSuchStorOp
		}
		if err != nil {
			return fmt.Errorf("layer: stor op %d: %w", i, err)
		}
	}
	return nil
}

func (x *Xact) propSet(op PropSet) error {
	if len(op.Indx) > maxIndxLen {
		return fmt.Errorf("%w: %d bytes", ErrBadIndxValu, len(op.Indx))
	}

	prop := resolveProp(op.Form, op.Prop)
	fenc := x.layer.encoder.Token(op.Form)
	penc := x.layer.encoder.Token(prop)
	propUtf8 := x.layer.utf8.Bytes(prop)

	x.cache.set(op.Buid, prop, op.Valu)

	buidEnc, err := codec.EncodeBuid(op.Buid[:])
	if err != nil {
		return fmt.Errorf("encode buid: %w", err)
	}

	encoded, err := codec.EncodeValuIndx(op.Valu, op.Indx)
	if err != nil {
		return fmt.Errorf("encode (valu, indx): %w", err)
	}

	bpkey := bybuidKey(op.Buid, propUtf8)
	prior, err := x.tx.Replace(x.layer.bybuid, bpkey, encoded)
	if err != nil {
		return fmt.Errorf("bybuid replace: %w", err)
	}

	if prior != nil {
		_, oldIndx, err := codec.DecodeValuIndx(prior)
		if err != nil {
			return fmt.Errorf("decode prior (valu, indx): %w", err)
		}
		if err := x.tx.Delete(x.layer.byprop, bypropKey(fenc, penc, oldIndx), buidEnc); err != nil {
			return fmt.Errorf("byprop delete stale: %w", err)
		}
		if op.Info.Univ {
			if err := x.tx.Delete(x.layer.byuniv, byunivKey(penc, oldIndx), buidEnc); err != nil {
				return fmt.Errorf("byuniv delete stale: %w", err)
			}
		}
	}

	if err := x.tx.Put(x.layer.byprop, bypropKey(fenc, penc, op.Indx), buidEnc, true); err != nil {
		return fmt.Errorf("byprop put: %w", err)
	}
	if op.Info.Univ {
		if err := x.tx.Put(x.layer.byuniv, byunivKey(penc, op.Indx), buidEnc, true); err != nil {
			return fmt.Errorf("byuniv put: %w", err)
		}
	}

	return nil
}

func (x *Xact) propDel(op PropDel) error {
	x.cache.evict(op.Buid)

	prop := resolveProp(op.Form, op.Prop)
	fenc := x.layer.encoder.Token(op.Form)
	penc := x.layer.encoder.Token(prop)
	propUtf8 := x.layer.utf8.Bytes(prop)

	bpkey := bybuidKey(op.Buid, propUtf8)
	prior, err := x.tx.Pop(x.layer.bybuid, bpkey)
	if err != nil {
		return fmt.Errorf("bybuid pop: %w", err)
	}
	if prior == nil {
		return nil
	}

	_, oldIndx, err := codec.DecodeValuIndx(prior)
	if err != nil {
		return fmt.Errorf("decode prior (valu, indx): %w", err)
	}

	buidEnc, err := codec.EncodeBuid(op.Buid[:])
	if err != nil {
		return fmt.Errorf("encode buid: %w", err)
	}

	if err := x.tx.Delete(x.layer.byprop, bypropKey(fenc, penc, oldIndx), buidEnc); err != nil {
		return fmt.Errorf("byprop delete: %w", err)
	}
	if op.Info.Univ {
		if err := x.tx.Delete(x.layer.byuniv, byunivKey(penc, oldIndx), buidEnc); err != nil {
			return fmt.Errorf("byuniv delete: %w", err)
		}
	}
	return nil
}

// Lift executes a single lift operation and returns its matching rows.
// Indx results carry a Buid with no Valu; the regex variants carry both
// (they are built over iter_prop_rows/iter_univ_rows/iter_form_rows).
func (x *Xact) Lift(op LiftOp) ([]Row, error) {
	if err := x.guard(); err != nil {
		return nil, err
	}

	switch v := op.(type) {
	case Indx:
		return x.liftIndx(v)
	case PropRe:
		rows, err := x.iterPropRows(v.Form, v.Prop)
		if err != nil {
			return nil, err
		}
		re, err := compileRe(v.Pattern)
		if err != nil {
			return nil, err
		}
		return filterRows(rows, re), nil
	case UnivRe:
		rows, err := x.iterUnivRows(v.Prop)
		if err != nil {
			return nil, err
		}
		re, err := compileRe(v.Pattern)
		if err != nil {
			return nil, err
		}
		return filterRows(rows, re), nil
	case FormRe:
		rows, err := x.iterFormRows(v.Form)
		if err != nil {
			return nil, err
		}
		re, err := compileRe(v.Pattern)
		if err != nil {
			return nil, err
		}
		return filterRows(rows, re), nil
	default:
		return nil, ErrNoSuchName
	}
}

func (x *Xact) liftIndx(op Indx) ([]Row, error) {
	db, err := x.layer.env.DBI(op.DBName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchName, op.DBName)
	}

	var out []Row
	for _, iop := range op.Ops {
		rows, err := x.liftIndxOp(db, op.Prefix, iop)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (x *Xact) liftIndxOp(db kvengine.DBI, prefix []byte, iop IndxOp) ([]Row, error) {
	curs, err := x.tx.Cursor(db)
	if err != nil {
		return nil, fmt.Errorf("open cursor on %s: %w", db.Name(), err)
	}
	defer curs.Close()

	var out []Row
	appendBuid := func(v []byte) error {
		buidBytes, err := codec.DecodeBuid(v)
		if err != nil {
			return fmt.Errorf("decode buid: %w", err)
		}
		buid, err := NewBuid(buidBytes)
		if err != nil {
			return err
		}
		out = append(out, Row{Buid: buid})
		return nil
	}

	switch o := iop.(type) {
	case Eq:
		key := concat(prefix, o.Indx)
		v, found, err := curs.SetKey(key)
		if err != nil {
			return nil, fmt.Errorf("set key: %w", err)
		}
		for found {
			if err := appendBuid(v); err != nil {
				return nil, err
			}
			v, found, err = curs.NextDup()
			if err != nil {
				return nil, fmt.Errorf("next dup: %w", err)
			}
		}

	case Pref:
		key := concat(prefix, o.Indx)
		k, v, found, err := curs.SetRange(key)
		if err != nil {
			return nil, fmt.Errorf("set range: %w", err)
		}
		for found && bytes.HasPrefix(k, key) {
			if err := appendBuid(v); err != nil {
				return nil, err
			}
			k, v, found, err = curs.Next()
			if err != nil {
				return nil, fmt.Errorf("next: %w", err)
			}
		}

	case Range:
		loKey := concat(prefix, o.Lo)
		hiKey := concat(prefix, o.Hi)
		k, v, found, err := curs.SetRange(loKey)
		if err != nil {
			return nil, fmt.Errorf("set range: %w", err)
		}
		for found {
			cmpKey := k
			if len(cmpKey) > len(hiKey) {
				cmpKey = cmpKey[:len(hiKey)]
			}
			if bytes.Compare(cmpKey, hiKey) > 0 {
				break
			}
			if err := appendBuid(v); err != nil {
				return nil, err
			}
			k, v, found, err = curs.Next()
			if err != nil {
				return nil, fmt.Errorf("next: %w", err)
			}
		}

	default:
		return nil, ErrNoSuchName
	}

	return out, nil
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// GetBuidProps returns every prop -> valu set on buid, via the bounded
// per-xact row cache.
func (x *Xact) GetBuidProps(buid Buid) (map[string][]byte, error) {
	if err := x.guard(); err != nil {
		return nil, err
	}
	return x.cache.get(buid)
}

// fillBuidProps is the row cache's miss-filler: a set_range scan over
// bybuid for buid's 32-byte prefix.
func (x *Xact) fillBuidProps(buid Buid) (map[string][]byte, error) {
	curs, err := x.tx.Cursor(x.layer.bybuid)
	if err != nil {
		return nil, fmt.Errorf("open bybuid cursor: %w", err)
	}
	defer curs.Close()

	props := make(map[string][]byte)
	prefix := buid[:]

	k, v, found, err := curs.SetRange(prefix)
	if err != nil {
		return nil, fmt.Errorf("set range: %w", err)
	}
	for found && bytes.HasPrefix(k, prefix) {
		valu, _, err := codec.DecodeValuIndx(v)
		if err != nil {
			return nil, fmt.Errorf("decode (valu, indx): %w", err)
		}
		props[string(k[len(prefix):])] = valu

		k, v, found, err = curs.Next()
		if err != nil {
			return nil, fmt.Errorf("next: %w", err)
		}
	}
	return props, nil
}

// iterFormRows implements iter_form_rows: every buid with any prop set on
// form, joined back to its primary-prop row.
func (x *Xact) iterFormRows(form string) ([]Row, error) {
	fenc := x.layer.encoder.Token(form)
	prefix := formScanPrefix(fenc)
	primaryUtf8 := x.layer.utf8.Bytes(encoding.PrimaryProp(form))

	curs, err := x.tx.Cursor(x.layer.byprop)
	if err != nil {
		return nil, fmt.Errorf("open byprop cursor: %w", err)
	}
	defer curs.Close()

	seen := make(map[Buid]bool)
	var out []Row

	k, v, found, err := curs.SetRange(prefix)
	if err != nil {
		return nil, fmt.Errorf("set range: %w", err)
	}
	for found && bytes.HasPrefix(k, prefix) {
		buidBytes, err := codec.DecodeBuid(v)
		if err != nil {
			return nil, fmt.Errorf("decode buid: %w", err)
		}
		buid, err := NewBuid(buidBytes)
		if err != nil {
			return nil, err
		}

		if !seen[buid] {
			seen[buid] = true
			row, ok, err := x.joinPrimary(buid, primaryUtf8)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, row)
			}
		}

		k, v, found, err = curs.Next()
		if err != nil {
			return nil, fmt.Errorf("next: %w", err)
		}
	}
	return out, nil
}

// iterPropRows implements iter_prop_rows: every buid with the given
// (form, prop) set, joined back to that prop's own bybuid row.
func (x *Xact) iterPropRows(form, prop string) ([]Row, error) {
	resolved := resolveProp(form, prop)
	fenc := x.layer.encoder.Token(form)
	penc := x.layer.encoder.Token(resolved)
	prefix := bypropPrefix(fenc, penc)
	propUtf8 := x.layer.utf8.Bytes(resolved)

	return x.walkJoin(x.layer.byprop, prefix, propUtf8)
}

// iterUnivRows implements iter_univ_rows: every buid with prop set under
// any form, via the universal secondary index.
func (x *Xact) iterUnivRows(prop string) ([]Row, error) {
	penc := x.layer.encoder.Token(prop)
	propUtf8 := x.layer.utf8.Bytes(prop)

	return x.walkJoin(x.layer.byuniv, penc, propUtf8)
}

// walkJoin scans db for keys sharing prefix, decodes the (buid,) value of
// each, and joins to bybuid at buid||propUtf8; a join miss is skipped
// silently.
func (x *Xact) walkJoin(db kvengine.DBI, prefix, propUtf8 []byte) ([]Row, error) {
	curs, err := x.tx.Cursor(db)
	if err != nil {
		return nil, fmt.Errorf("open %s cursor: %w", db.Name(), err)
	}
	defer curs.Close()

	var out []Row
	k, v, found, err := curs.SetRange(prefix)
	if err != nil {
		return nil, fmt.Errorf("set range: %w", err)
	}
	for found && bytes.HasPrefix(k, prefix) {
		buidBytes, err := codec.DecodeBuid(v)
		if err != nil {
			return nil, fmt.Errorf("decode buid: %w", err)
		}
		buid, err := NewBuid(buidBytes)
		if err != nil {
			return nil, err
		}

		row, ok, err := x.joinPrimary(buid, propUtf8)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}

		k, v, found, err = curs.Next()
		if err != nil {
			return nil, fmt.Errorf("next: %w", err)
		}
	}
	return out, nil
}

func (x *Xact) joinPrimary(buid Buid, propUtf8 []byte) (Row, bool, error) {
	val, found, err := x.tx.Get(x.layer.bybuid, bybuidKey(buid, propUtf8))
	if err != nil {
		return Row{}, false, fmt.Errorf("bybuid get: %w", err)
	}
	if !found {
		return Row{}, false, nil
	}
	valu, _, err := codec.DecodeValuIndx(val)
	if err != nil {
		return Row{}, false, fmt.Errorf("decode (valu, indx): %w", err)
	}
	return Row{Buid: buid, Valu: valu}, true, nil
}

// GetOffset reads iden's offset within this transaction.
func (x *Xact) GetOffset(iden string) (uint64, error) {
	if err := x.guard(); err != nil {
		return 0, err
	}
	return x.layer.offsets.XGet(x.tx, iden)
}

// SetOffset writes iden's offset within this transaction.
func (x *Xact) SetOffset(iden string, offs uint64) error {
	if err := x.guard(); err != nil {
		return err
	}
	return x.layer.offsets.XSet(x.tx, iden, offs)
}

// Splice queues an opaque caller-supplied change record to be written to
// the splice log on Commit. The storage layer never produces splices on
// its own — only callers queue them.
func (x *Xact) Splice(msg interface{}) error {
	if err := x.guard(); err != nil {
		return err
	}
	x.pending = append(x.pending, msg)
	return nil
}

// Commit flushes any queued splices, commits the engine transaction, and
// signals the splice waiter if at least one splice was written. Fails
// with ErrBadThread if called from a goroutine other than the one that
// created this Xact.
func (x *Xact) Commit() error {
	if err := x.guard(); err != nil {
		return err
	}

	if len(x.pending) > 0 {
		if err := x.layer.splices.Save(x.tx, x.pending); err != nil {
			return fmt.Errorf("layer: save splices: %w", err)
		}
	}

	if err := x.tx.Commit(); err != nil {
		return fmt.Errorf("layer: commit: %w", err)
	}
	x.closed = true

	if len(x.pending) > 0 {
		x.layer.splices.Waiter().Set()
	}
	return nil
}

// Abort discards all work done in this transaction. Fails with
// ErrBadThread if called from a goroutine other than the one that
// created this Xact.
func (x *Xact) Abort() error {
	if err := x.guard(); err != nil {
		return err
	}
	if err := x.tx.Abort(); err != nil {
		return fmt.Errorf("layer: abort: %w", err)
	}
	x.closed = true
	return nil
}
