package layer

// Sub-database names. These are the literal UTF-8 names passed to
// kvengine.Env.OpenDBI; layer.Open creates all five on first open and
// keeps no others.
const (
	DBBybuid  = "bybuid"
	DBByprop  = "byprop"
	DBByuniv  = "byuniv"
	DBOffsets = "offsets"
	DBSplices = "splices"
)

// formScanByte is appended directly to an fenc to build the iter_form_rows
// prefix. It is not minted through the Encoder: every
// encoder token's first byte is the high byte of its 2-byte length header,
// which is 0x00 for any name under 256 bytes (true of every form/prop name
// in practice), so fenc+formScanByte is a prefix of every prop's byprop
// entries for that form, primary prop included. iter_form_rows relies on
// exactly that breadth — it joins every match back to the form's primary
// row, so duplicate secondary hits for the same buid collapse naturally.
const formScanByte = 0x00

// bybuidKey builds the bybuid row key: buid || utf8[prop].
func bybuidKey(buid Buid, propUtf8 []byte) []byte {
	k := make([]byte, 0, len(buid)+len(propUtf8))
	k = append(k, buid[:]...)
	k = append(k, propUtf8...)
	return k
}

// bypropKey builds a byprop row key: fenc || penc || indx.
func bypropKey(fenc, penc, indx []byte) []byte {
	k := make([]byte, 0, len(fenc)+len(penc)+len(indx))
	k = append(k, fenc...)
	k = append(k, penc...)
	k = append(k, indx...)
	return k
}

// bypropPrefix builds the fenc||penc prefix shared by every indx under one
// (form, prop) pair.
func bypropPrefix(fenc, penc []byte) []byte {
	p := make([]byte, 0, len(fenc)+len(penc))
	p = append(p, fenc...)
	p = append(p, penc...)
	return p
}

// formScanPrefix builds the fenc||0x00 prefix iter_form_rows scans byprop
// with.
func formScanPrefix(fenc []byte) []byte {
	return append(append([]byte{}, fenc...), formScanByte)
}

// byunivKey builds a byuniv row key: penc || indx.
func byunivKey(penc, indx []byte) []byte {
	k := make([]byte, 0, len(penc)+len(indx))
	k = append(k, penc...)
	k = append(k, indx...)
	return k
}
