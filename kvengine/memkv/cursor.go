package memkv

import "github.com/google/btree"

// Cursor walks an in-memory tree's keys in sorted order, emulating
// set_key/set_range/iternext/iternext_dup over google/btree's
// AscendGreaterOrEqual.
type Cursor struct {
	tree    *btree.BTree
	curKey  []byte
	dupIdx  int
	haveCur bool
}

func (c *Cursor) itemAt(key []byte) *item {
	found := c.tree.Get(newItem(key))
	if found == nil {
		return nil
	}
	return found.(*item)
}

func (c *Cursor) SetKey(key []byte) ([]byte, bool, error) {
	it := c.itemAt(key)
	if it == nil || len(it.vals) == 0 {
		c.haveCur = false
		return nil, false, nil
	}
	c.curKey = append([]byte{}, key...)
	c.dupIdx = 0
	c.haveCur = true
	return it.vals[0], true, nil
}

func (c *Cursor) SetRange(key []byte) ([]byte, []byte, bool, error) {
	var foundKey, foundVal []byte
	ok := false
	c.tree.AscendGreaterOrEqual(newItem(key), func(bi btree.Item) bool {
		it := bi.(*item)
		if len(it.vals) == 0 {
			return true // skip emptied keys, keep scanning
		}
		foundKey = append([]byte{}, it.key...)
		foundVal = it.vals[0]
		ok = true
		return false
	})
	if !ok {
		c.haveCur = false
		return nil, nil, false, nil
	}
	c.curKey = foundKey
	c.dupIdx = 0
	c.haveCur = true
	return foundKey, foundVal, true, nil
}

// Next advances to the very next record in key order, same as MDBX's
// plain MDB_NEXT: if the current key has further duplicate values, it
// yields the next one before moving on to the next distinct key. Callers
// that want to skip straight past a key's remaining duplicates use
// SetRange/SetKey again instead.
func (c *Cursor) Next() ([]byte, []byte, bool, error) {
	if !c.haveCur {
		return nil, nil, false, nil
	}

	if it := c.itemAt(c.curKey); it != nil && c.dupIdx+1 < len(it.vals) {
		c.dupIdx++
		return append([]byte{}, c.curKey...), it.vals[c.dupIdx], true, nil
	}

	var foundKey, foundVal []byte
	ok := false
	skippedCur := false
	c.tree.AscendGreaterOrEqual(newItem(c.curKey), func(bi btree.Item) bool {
		it := bi.(*item)
		if !skippedCur {
			skippedCur = true
			return true // this is the current key itself, skip it
		}
		if len(it.vals) == 0 {
			return true
		}
		foundKey = append([]byte{}, it.key...)
		foundVal = it.vals[0]
		ok = true
		return false
	})
	if !ok {
		c.haveCur = false
		return nil, nil, false, nil
	}
	c.curKey = foundKey
	c.dupIdx = 0
	c.haveCur = true
	return foundKey, foundVal, true, nil
}

func (c *Cursor) NextDup() ([]byte, bool, error) {
	if !c.haveCur {
		return nil, false, nil
	}
	it := c.itemAt(c.curKey)
	if it == nil {
		return nil, false, nil
	}
	next := c.dupIdx + 1
	if next >= len(it.vals) {
		return nil, false, nil
	}
	c.dupIdx = next
	return it.vals[next], true, nil
}

func (c *Cursor) Close() {}
