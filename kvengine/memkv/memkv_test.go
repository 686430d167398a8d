package memkv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetReplace(t *testing.T) {
	env := New()
	db, err := env.OpenDBI("bybuid", false)
	require.NoError(t, err)

	tx, err := env.Begin(true)
	require.NoError(t, err)

	require.NoError(t, tx.Put(db, []byte("k1"), []byte("v1"), false))

	prior, err := tx.Replace(db, []byte("k1"), []byte("v2"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), prior)

	val, found, err := tx.Get(db, []byte("k1"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v2"), val)

	require.NoError(t, tx.Commit())
}

func TestDupSortAndCursor(t *testing.T) {
	env := New()
	db, err := env.OpenDBI("byprop", true)
	require.NoError(t, err)

	tx, err := env.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.Put(db, []byte("k"), []byte("a"), true))
	require.NoError(t, tx.Put(db, []byte("k"), []byte("b"), true))
	require.NoError(t, tx.Commit())

	rtx, err := env.Begin(false)
	require.NoError(t, err)
	defer rtx.Abort()

	curs, err := rtx.Cursor(db)
	require.NoError(t, err)
	defer curs.Close()

	v, ok, err := curs.SetKey([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("a"), v)

	v2, ok, err := curs.NextDup()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("b"), v2)

	_, ok, err = curs.NextDup()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSnapshotIsolation(t *testing.T) {
	env := New()
	db, err := env.OpenDBI("bybuid", false)
	require.NoError(t, err)

	wtx, err := env.Begin(true)
	require.NoError(t, err)
	require.NoError(t, wtx.Put(db, []byte("k"), []byte("orig"), false))
	require.NoError(t, wtx.Commit())

	rtx, err := env.Begin(false)
	require.NoError(t, err)
	defer rtx.Abort()

	wtx2, err := env.Begin(true)
	require.NoError(t, err)
	require.NoError(t, wtx2.Put(db, []byte("k"), []byte("new"), false))
	require.NoError(t, wtx2.Commit())

	// Reader opened before the second write must not observe it.
	v, found, err := rtx.Get(db, []byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("orig"), v)

	rtx2, err := env.Begin(false)
	require.NoError(t, err)
	defer rtx2.Abort()
	v2, _, err := rtx2.Get(db, []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v2)
}
