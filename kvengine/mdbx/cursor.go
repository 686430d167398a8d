package mdbx

import (
	"fmt"

	"github.com/erigontech/mdbx-go/mdbx"
)

// Cursor wraps an *mdbx.Cursor to satisfy kvengine.Cursor.
type Cursor struct {
	c *mdbx.Cursor
}

func (c *Cursor) SetKey(key []byte) ([]byte, bool, error) {
	_, val, err := c.c.Get(key, nil, mdbx.Set)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mdbx: cursor set_key: %w", err)
	}
	return val, true, nil
}

func (c *Cursor) SetRange(key []byte) ([]byte, []byte, bool, error) {
	k, v, err := c.c.Get(key, nil, mdbx.SetRange)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("mdbx: cursor set_range: %w", err)
	}
	return k, v, true, nil
}

func (c *Cursor) Next() ([]byte, []byte, bool, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Next)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("mdbx: cursor next: %w", err)
	}
	return k, v, true, nil
}

func (c *Cursor) NextDup() ([]byte, bool, error) {
	_, v, err := c.c.Get(nil, nil, mdbx.NextDup)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mdbx: cursor next_dup: %w", err)
	}
	return v, true, nil
}

func (c *Cursor) Close() {
	c.c.Close()
}
