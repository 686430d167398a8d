package encoding

import "sync"

// Utf8Cache caches the raw UTF-8 byte form of a name. Unlike Encoder's
// tokens, these bytes are not length-framed: they back bybuid row keys
// (buid || utf8[prop]), where the 32-byte buid prefix alone is enough to
// make keys unambiguous, so no extra framing is needed here.
type Utf8Cache struct {
	mu    sync.RWMutex
	cache map[string][]byte
}

// NewUtf8Cache returns an empty, ready-to-use Utf8Cache.
func NewUtf8Cache() *Utf8Cache {
	return &Utf8Cache{cache: make(map[string][]byte)}
}

// Bytes returns the UTF-8 bytes of name, caching on first use.
func (u *Utf8Cache) Bytes(name string) []byte {
	u.mu.RLock()
	b, ok := u.cache[name]
	u.mu.RUnlock()
	if ok {
		return b
	}

	b = []byte(name)

	u.mu.Lock()
	if existing, ok := u.cache[name]; ok {
		u.mu.Unlock()
		return existing
	}
	u.cache[name] = b
	u.mu.Unlock()

	return b
}

// PrimaryProp returns the sentinel property name for a form's primary
// value: "*" + form.
func PrimaryProp(form string) string {
	return "*" + form
}
