package keytrans

// guide drives the guided binary search a search verifier replays: the
// server chose which log positions to open a proof for, and the client
// must confirm those were exactly the positions an honest server would
// have picked, rather than some other set chosen to hide a rewrite.
//
// When target is nil, the guide is searching for the greatest version of
// a key: every observed entry becomes the new tentative result and the
// search keeps moving right. When target is set, the guide bisects for
// the earliest position holding that exact version, moving right past
// entries with a smaller counter, left past entries with a larger one,
// and continuing left after a match to find the earliest occurrence.
type guide struct {
	lo, hi uint64
	target *uint32

	have   bool
	result uint64
}

// newGuide starts a guide over positions [pos, treeSize-1].
func newGuide(pos, treeSize uint64, target *uint32) *guide {
	return &guide{lo: pos, hi: treeSize - 1, target: target}
}

// done reports whether the guide has no more positions left to probe.
func (g *guide) done() bool {
	return g.lo > g.hi
}

// next returns the next position the guide expects to be probed.
func (g *guide) next() uint64 {
	return g.lo + (g.hi-g.lo)/2
}

// insert folds in the counter observed at id, which must equal next().
// It reports an error if the server's step sequence diverges from what
// an honest guided search would have produced.
func (g *guide) insert(id uint64, counter uint32) error {
	if g.done() {
		return errBadData("guided search received a step after it should have terminated")
	}
	if id != g.next() {
		return errBadData("guided search step is not at the expected position")
	}

	if g.target == nil {
		g.result, g.have = id, true
		g.lo = id + 1
		return nil
	}

	switch {
	case counter < *g.target:
		g.lo = id + 1
	case counter > *g.target:
		if id == 0 {
			g.hi = 0
			g.lo = 1
			return nil
		}
		g.hi = id - 1
	default:
		g.result, g.have = id, true
		if id == 0 {
			g.hi = 0
			g.lo = 1
			return nil
		}
		g.hi = id - 1
	}
	return nil
}

// finish reports the position the guide landed on, if any, once the
// caller has confirmed done() and checked the step count matched the
// number of steps consumed.
func (g *guide) finish() (uint64, bool) {
	return g.result, g.have
}
