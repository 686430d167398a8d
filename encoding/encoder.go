// Package encoding interns form and property names to stable, short byte
// tokens so keys in the storage layer's sub-databases stay compact and
// prefix-unambiguous across concatenation.
//
// Tokens must be deterministic across process restarts: a database written
// by one process and reopened by another must resolve the same name to the
// same bytes. Encoder therefore mints tokens as a pure function of the name
// (its UTF-8 bytes, length-prefixed) rather than an incrementing counter.
package encoding

import (
	"encoding/binary"
	"sync"
)

// Encoder interns form/property names to a length-prefixed byte token: a
// varint-free 2-byte big-endian length header followed by the name's UTF-8
// bytes. Framing this way keeps fenc+penc+indx concatenations prefix-safe
// (a scan over byprop can never mistake one token's tail for the next
// token's head) without needing a delimiter byte that might collide with
// caller-supplied index bytes.
type Encoder struct {
	mu    sync.RWMutex
	cache map[string][]byte
}

// NewEncoder returns an empty, ready-to-use Encoder.
func NewEncoder() *Encoder {
	return &Encoder{cache: make(map[string][]byte)}
}

// Token returns the stable encoder token for name, minting and caching it on
// first use. Safe for concurrent use by multiple transactions.
func (e *Encoder) Token(name string) []byte {
	e.mu.RLock()
	tok, ok := e.cache[name]
	e.mu.RUnlock()
	if ok {
		return tok
	}

	tok = mintToken(name)

	e.mu.Lock()
	if existing, ok := e.cache[name]; ok {
		e.mu.Unlock()
		return existing
	}
	e.cache[name] = tok
	e.mu.Unlock()

	return tok
}

// mintToken is a pure function of name: same name always yields the same
// bytes, in this run and in any other run against the same on-disk layer.
func mintToken(name string) []byte {
	nb := []byte(name)
	tok := make([]byte, 2+len(nb))
	binary.BigEndian.PutUint16(tok[:2], uint16(len(nb)))
	copy(tok[2:], nb)
	return tok
}
