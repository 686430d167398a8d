package layer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// PropSet is immediately visible to get_buid_props and an Eq lift in the
// same transaction.
func TestPropSetThenGetAndLift(t *testing.T) {
	l := newTestLayer(t)
	b := buid(0x01)

	xa, err := l.Xact(true)
	require.NoError(t, err)

	require.NoError(t, xa.Stor([]StorOp{
		PropSet{Buid: b, Form: "f", Prop: "p", Valu: []byte("v1"), Indx: []byte{0x10}},
	}))

	props, err := xa.GetBuidProps(b)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), props["p"])

	fenc := xa.layer.encoder.Token("f")
	penc := xa.layer.encoder.Token("p")
	rows, err := xa.Lift(Indx{
		DBName: DBByprop,
		Prefix: bypropPrefix(fenc, penc),
		Ops:    []IndxOp{Eq{Indx: []byte{0x10}}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, b, rows[0].Buid)

	require.NoError(t, xa.Commit())
}

// An empty Prop routes to the form's primary sentinel.
func TestPrimarySentinelViaEmptyProp(t *testing.T) {
	l := newTestLayer(t)
	b0 := buid(0x00)

	xa, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xa.Stor([]StorOp{
		PropSet{Buid: b0, Form: "f", Prop: "", Valu: []byte("A"), Indx: []byte{0x01}},
	}))
	require.NoError(t, xa.Commit())

	xb, err := l.Xact(false)
	require.NoError(t, err)
	defer xb.Abort()

	rows, err := xb.iterFormRows("f")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, b0, rows[0].Buid)
	require.Equal(t, []byte("A"), rows[0].Valu)

	props, err := xb.GetBuidProps(b0)
	require.NoError(t, err)
	require.Equal(t, []byte("A"), props["*f"])
}

// Overwriting a prop's indx leaves no stale secondary entry behind.
func TestOverwriteIndxLeavesNoStaleSecondary(t *testing.T) {
	l := newTestLayer(t)
	b0 := buid(0x02)

	xa, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xa.Stor([]StorOp{
		PropSet{Buid: b0, Form: "f", Prop: "p", Valu: []byte("v"), Indx: []byte{0x10}},
	}))
	require.NoError(t, xa.Commit())

	xb, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xb.Stor([]StorOp{
		PropSet{Buid: b0, Form: "f", Prop: "p", Valu: []byte("v2"), Indx: []byte{0x20}},
	}))
	require.NoError(t, xb.Commit())

	xc, err := l.Xact(false)
	require.NoError(t, err)
	defer xc.Abort()

	fenc := xc.layer.encoder.Token("f")
	penc := xc.layer.encoder.Token("p")
	prefix := bypropPrefix(fenc, penc)

	rowsOld, err := xc.Lift(Indx{DBName: DBByprop, Prefix: prefix, Ops: []IndxOp{Eq{Indx: []byte{0x10}}}})
	require.NoError(t, err)
	require.Empty(t, rowsOld)

	rowsNew, err := xc.Lift(Indx{DBName: DBByprop, Prefix: prefix, Ops: []IndxOp{Eq{Indx: []byte{0x20}}}})
	require.NoError(t, err)
	require.Len(t, rowsNew, 1)
	require.Equal(t, b0, rowsNew[0].Buid)
}

// A universal prop set on two buids with the same indx lifts both.
func TestUniversalPropTwoBuids(t *testing.T) {
	l := newTestLayer(t)
	b1, b2 := buid(0x11), buid(0x22)

	xa, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xa.Stor([]StorOp{
		PropSet{Buid: b1, Form: "f", Prop: "u", Valu: []byte("v1"), Indx: []byte{0x55}, Info: StorInfo{Univ: true}},
		PropSet{Buid: b2, Form: "g", Prop: "u", Valu: []byte("v2"), Indx: []byte{0x55}, Info: StorInfo{Univ: true}},
	}))
	require.NoError(t, xa.Commit())

	xb, err := l.Xact(false)
	require.NoError(t, err)
	defer xb.Abort()

	rows, err := xb.iterUnivRows("u")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

// Deleting a prop that was never set is a no-op.
func TestPropDelNeverSetIsNoop(t *testing.T) {
	l := newTestLayer(t)
	b0 := buid(0x03)

	xa, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xa.Stor([]StorOp{
		PropDel{Buid: b0, Form: "f", Prop: "p"},
	}))
	require.NoError(t, xa.Commit())

	xb, err := l.Xact(false)
	require.NoError(t, err)
	defer xb.Abort()
	props, err := xb.GetBuidProps(b0)
	require.NoError(t, err)
	require.Empty(t, props)
}

// PropDel removes the primary row and its secondary entries.
func TestPropDelRemovesSecondaryEntries(t *testing.T) {
	l := newTestLayer(t)
	b0 := buid(0x04)

	xa, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xa.Stor([]StorOp{
		PropSet{Buid: b0, Form: "f", Prop: "p", Valu: []byte("v"), Indx: []byte{0x30}, Info: StorInfo{Univ: true}},
	}))
	require.NoError(t, xa.Commit())

	xb, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xb.Stor([]StorOp{
		PropDel{Buid: b0, Form: "f", Prop: "p", Info: StorInfo{Univ: true}},
	}))
	require.NoError(t, xb.Commit())

	xc, err := l.Xact(false)
	require.NoError(t, err)
	defer xc.Abort()

	props, err := xc.GetBuidProps(b0)
	require.NoError(t, err)
	require.Empty(t, props)

	fenc := xc.layer.encoder.Token("f")
	penc := xc.layer.encoder.Token("p")
	rows, err := xc.Lift(Indx{DBName: DBByprop, Prefix: bypropPrefix(fenc, penc), Ops: []IndxOp{Eq{Indx: []byte{0x30}}}})
	require.NoError(t, err)
	require.Empty(t, rows)

	univRows, err := xc.iterUnivRows("p")
	require.NoError(t, err)
	require.Empty(t, univRows)
}

// Boundaries: len(indx) == 256 succeeds, 257 fails bad-indx-valu.
func TestIndxLengthBoundary(t *testing.T) {
	l := newTestLayer(t)

	xa, err := l.Xact(true)
	require.NoError(t, err)
	ok := make([]byte, 256)
	require.NoError(t, xa.Stor([]StorOp{
		PropSet{Buid: buid(0x05), Form: "f", Prop: "p", Valu: []byte("v"), Indx: ok},
	}))
	require.NoError(t, xa.Abort())

	xb, err := l.Xact(true)
	require.NoError(t, err)
	bad := make([]byte, 257)
	err = xb.Stor([]StorOp{
		PropSet{Buid: buid(0x06), Form: "f", Prop: "p", Valu: []byte("v"), Indx: bad},
	})
	require.ErrorIs(t, err, ErrBadIndxValu)
	require.NoError(t, xb.Abort())
}

// no-such-storage-op for an unrecognized tag.
type bogusStorOp struct{}

func (bogusStorOp) storOp() {}

func TestUnknownStorOpFails(t *testing.T) {
	l := newTestLayer(t)
	xa, err := l.Xact(true)
	require.NoError(t, err)
	err = xa.Stor([]StorOp{bogusStorOp{}})
	require.ErrorIs(t, err, ErrNoSuchStorOp)
	require.NoError(t, xa.Abort())
}

// no-such-name for an unknown sub-database in a lift.
func TestUnknownDBNameFails(t *testing.T) {
	l := newTestLayer(t)
	xa, err := l.Xact(false)
	require.NoError(t, err)
	defer xa.Abort()

	_, err = xa.Lift(Indx{DBName: "nonesuch", Prefix: nil, Ops: []IndxOp{Eq{Indx: []byte{0x01}}}})
	require.ErrorIs(t, err, ErrNoSuchName)
}

// A reader opened before a writer's commit does not observe it.
func TestSnapshotIsolationAcrossXact(t *testing.T) {
	l := newTestLayer(t)
	b0 := buid(0x07)

	reader, err := l.Xact(false)
	require.NoError(t, err)
	defer reader.Abort()

	writer, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, writer.Stor([]StorOp{
		PropSet{Buid: b0, Form: "f", Prop: "p", Valu: []byte("v"), Indx: []byte{0x01}},
	}))
	require.NoError(t, writer.Commit())

	props, err := reader.GetBuidProps(b0)
	require.NoError(t, err)
	require.Empty(t, props)

	fresh, err := l.Xact(false)
	require.NoError(t, err)
	defer fresh.Abort()
	props, err = fresh.GetBuidProps(b0)
	require.NoError(t, err)
	require.Equal(t, []byte("v"), props["p"])
}

// An Xact used from another goroutine fails bad-thread; its owner can still
// abort it afterward.
func TestBadThreadFailsStorAndCommit(t *testing.T) {
	l := newTestLayer(t)

	xa, err := l.Xact(true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var commitErr, storErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		storErr = xa.Stor([]StorOp{
			PropSet{Buid: buid(0x08), Form: "f", Prop: "p", Valu: []byte("v"), Indx: []byte{0x01}},
		})
		commitErr = xa.Commit()
	}()
	wg.Wait()

	require.ErrorIs(t, storErr, ErrBadThread)
	require.ErrorIs(t, commitErr, ErrBadThread)

	require.NoError(t, xa.Abort())
}

// Once closed, further operations fail xact-closed.
func TestClosedXactRejectsFurtherOps(t *testing.T) {
	l := newTestLayer(t)
	xa, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xa.Commit())

	err = xa.Stor([]StorOp{PropDel{Buid: buid(0x09), Form: "f", Prop: "p"}})
	require.ErrorIs(t, err, ErrXactClosed)

	err = xa.Commit()
	require.ErrorIs(t, err, ErrXactClosed)
}

// Range(lo, hi) with lo == hi reduces to Eq(lo).
func TestRangeEqualBoundsActsLikeEq(t *testing.T) {
	l := newTestLayer(t)
	b0 := buid(0x0a)

	xa, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xa.Stor([]StorOp{
		PropSet{Buid: b0, Form: "f", Prop: "p", Valu: []byte("v"), Indx: []byte{0x40}},
	}))
	require.NoError(t, xa.Commit())

	xb, err := l.Xact(false)
	require.NoError(t, err)
	defer xb.Abort()

	fenc := xb.layer.encoder.Token("f")
	penc := xb.layer.encoder.Token("p")
	rows, err := xb.Lift(Indx{
		DBName: DBByprop,
		Prefix: bypropPrefix(fenc, penc),
		Ops:    []IndxOp{Range{Lo: []byte{0x40}, Hi: []byte{0x40}}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, b0, rows[0].Buid)
}

// Range's upper bound compares at the length of prefix||hi, not the full
// stored key: a longer indx that shares hi as a prefix must still be
// included, even though the raw on-disk key compares greater than hi.
func TestRangeWithVariableLengthIndx(t *testing.T) {
	l := newTestLayer(t)
	bLo, bHiExact, bHiLonger, bAboveHi := buid(0x10), buid(0x11), buid(0x12), buid(0x13)

	xa, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xa.Stor([]StorOp{
		PropSet{Buid: bLo, Form: "f", Prop: "p", Valu: []byte("lo"), Indx: []byte{0x10}},
		PropSet{Buid: bHiExact, Form: "f", Prop: "p", Valu: []byte("hi-exact"), Indx: []byte{0x20}},
		PropSet{Buid: bHiLonger, Form: "f", Prop: "p", Valu: []byte("hi-longer"), Indx: []byte{0x20, 0x00}},
		PropSet{Buid: bAboveHi, Form: "f", Prop: "p", Valu: []byte("above"), Indx: []byte{0x21}},
	}))
	require.NoError(t, xa.Commit())

	xb, err := l.Xact(false)
	require.NoError(t, err)
	defer xb.Abort()

	fenc := xb.layer.encoder.Token("f")
	penc := xb.layer.encoder.Token("p")
	rows, err := xb.Lift(Indx{
		DBName: DBByprop,
		Prefix: bypropPrefix(fenc, penc),
		Ops:    []IndxOp{Range{Lo: []byte{0x10}, Hi: []byte{0x20}}},
	})
	require.NoError(t, err)

	got := make(map[Buid]bool)
	for _, r := range rows {
		got[r.Buid] = true
	}
	require.Len(t, rows, 3)
	require.True(t, got[bLo])
	require.True(t, got[bHiExact])
	require.True(t, got[bHiLonger])
	require.False(t, got[bAboveHi])
}

// PropRe filters iter_prop_rows results by a regex over the value bytes.
func TestPropReFiltersByValue(t *testing.T) {
	l := newTestLayer(t)
	b1, b2 := buid(0x0b), buid(0x0c)

	xa, err := l.Xact(true)
	require.NoError(t, err)
	require.NoError(t, xa.Stor([]StorOp{
		PropSet{Buid: b1, Form: "f", Prop: "p", Valu: []byte("apple"), Indx: []byte{0x01}},
		PropSet{Buid: b2, Form: "f", Prop: "p", Valu: []byte("banana"), Indx: []byte{0x02}},
	}))
	require.NoError(t, xa.Commit())

	xb, err := l.Xact(false)
	require.NoError(t, err)
	defer xb.Abort()

	rows, err := xb.Lift(PropRe{Form: "f", Prop: "p", Pattern: "^a"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, b1, rows[0].Buid)
}
