package layer

import "github.com/erigontech/graphlayer/encoding"

// StorInfo is the options bag attached to a storage operation. The only
// recognized option is Univ, which additionally indexes the property
// across all forms.
type StorInfo struct {
	Univ bool
}

// StorOp is one tagged operation in a Stor batch.
type StorOp interface {
	storOp()
}

// PropSet sets a property on buid. An empty Prop routes to the form's
// primary sentinel ("*"+Form).
type PropSet struct {
	Buid Buid
	Form string
	Prop string
	Valu []byte
	Indx []byte
	Info StorInfo
}

// PropDel deletes a property from buid. An empty Prop routes to the form's
// primary sentinel, same as PropSet.
type PropDel struct {
	Buid Buid
	Form string
	Prop string
	Info StorInfo
}

func (PropSet) storOp() {}
func (PropDel) storOp() {}

// resolveProp applies the empty-prop-routes-to-primary-sentinel rule.
func resolveProp(form, prop string) string {
	if prop == "" {
		return encoding.PrimaryProp(form)
	}
	return prop
}
