package layer

import "fmt"

// Buid is a 32-byte opaque node identifier.
type Buid [32]byte

// NewBuid copies b into a Buid, erroring if it is not exactly 32 bytes.
func NewBuid(b []byte) (Buid, error) {
	var out Buid
	if len(b) != len(out) {
		return out, fmt.Errorf("layer: buid must be %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Row is a (buid, valu) pair yielded by iter_form_rows, iter_prop_rows, and
// iter_univ_rows. An Indx lift yields Rows with Valu left nil.
type Row struct {
	Buid Buid
	Valu []byte
}
