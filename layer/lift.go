package layer

// LiftOp is one tagged operation a Lift call accepts.
type LiftOp interface {
	liftOp()
}

// Indx lifts rows from a dupsort secondary index (byprop or byuniv) by
// applying each IndxOp in order against keys sharing Prefix.
type Indx struct {
	DBName string
	Prefix []byte
	Ops    []IndxOp
}

// IndxOp is one index-key operator within an Indx lift.
type IndxOp interface {
	indxOp()
}

// Eq seeks exactly to Prefix||Indx and walks its duplicates.
type Eq struct {
	Indx []byte
}

// Pref seeks to the first key >= Prefix||Indx and walks while the key
// continues to start with Prefix||Indx.
type Pref struct {
	Indx []byte
}

// Range seeks to the first key >= Prefix||Lo and walks while the key,
// cut to the length of Prefix||Hi, is lexicographically <= Prefix||Hi.
// With Lo == Hi it yields the same rows as Eq, plus any longer indx that
// starts with Lo.
type Range struct {
	Lo []byte
	Hi []byte
}

func (Indx) liftOp()  {}
func (PropRe) liftOp() {}
func (UnivRe) liftOp() {}
func (FormRe) liftOp() {}

func (Eq) indxOp()    {}
func (Pref) indxOp()  {}
func (Range) indxOp() {}
