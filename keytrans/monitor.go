package keytrans

import "github.com/Bren2010/ktverify/tree/log/math"

// updateMonitoringData folds a batch of newly observed (position, version
// counter) pairs into data, following data's monitoring path out to the
// current tree size. A key's version counter can only move forward as
// the log grows, so counters along the path must be non-decreasing, and
// a position already recorded must not be reported under a different
// counter than before.
func updateMonitoringData(data *MonitoringData, path []uint64, steps []ProofStep) (*MonitoringData, error) {
	if len(path) != len(steps) {
		return nil, errBadData("monitoring path length does not match number of proof steps")
	}
	out := data.Clone()
	if out.Ptrs == nil {
		out.Ptrs = make(map[uint64]uint32)
	}

	prev, havePrev := uint32(0), false
	bestPos := uint64(0)
	for pos, counter := range out.Ptrs {
		if pos <= out.Pos && (!havePrev || pos > bestPos) {
			bestPos, prev, havePrev = pos, counter, true
		}
	}

	for i, pos := range path {
		counter := proofStepCounter(&steps[i])
		if havePrev && counter < prev {
			return nil, errVerification("monitoring path counters are not non-decreasing")
		}
		if existing, ok := out.Ptrs[pos]; ok && existing != counter {
			return nil, errVerification("inconsistent versions found for the same log position")
		}
		out.Ptrs[pos] = counter
		prev, havePrev = counter, true
	}
	if len(path) > 0 {
		last := path[len(path)-1]
		if last > out.Pos {
			out.Pos = last
		}
	}
	return out, nil
}

// checkSearchConsistency folds a search result (the key found at verPos,
// holding version, starting from the guide's zeroPos) into data, which
// may be nil if this is the first time the key has been observed. owned
// records whether the caller holds the private key material that
// produced this result (e.g. it performed the search on its own behalf);
// Owned is sticky once set.
func checkSearchConsistency(data *MonitoringData, index [32]byte, zeroPos, verPos uint64, version uint32, owned bool) (*MonitoringData, error) {
	out := data
	if out == nil {
		out = &MonitoringData{Index: index, Pos: zeroPos, Ptrs: make(map[uint64]uint32)}
	} else {
		if out.Index != index {
			return nil, errBadData("search result index does not match previously recorded monitoring data")
		}
		if zeroPos != out.Pos {
			return nil, errBadData("search result start position does not match previously recorded monitoring data")
		}
		out = out.Clone()
	}

	var nearestPos uint64
	var nearestCounter uint32
	found := false
	for pos, counter := range out.Ptrs {
		if pos <= verPos && (!found || pos > nearestPos) {
			nearestPos, nearestCounter, found = pos, counter, true
		}
	}
	if found && version < nearestCounter {
		return nil, errVerification("observed key version is older than a previously recorded version")
	}

	out.Ptrs[verPos] = version
	out.Owned = out.Owned || owned
	return out, nil
}

// foldSearchSteps opportunistically advances every pointer already
// recorded in data as far forward as the newly observed search steps
// allow, walking each pointer's monitoring path until a step for the
// next position isn't among those the search opened. This keeps
// monitoring data fresh using every step a search touched, not just the
// one step the search actually resolved to. steps is keyed by log
// position, as collected while replaying the guided search. data may be
// nil if the key isn't being monitored, in which case this is a no-op.
func foldSearchSteps(data *MonitoringData, treeSize uint64, steps map[uint64]ProofStep) (*MonitoringData, error) {
	if data == nil {
		return nil, nil
	}
	out := data.Clone()
	ptrs := make(map[uint64]uint32, len(out.Ptrs))
	for entry, ver := range out.Ptrs {
		cur, curVer := entry, ver
		for _, x := range math.MonitoringPath(out.Pos, cur, treeSize) {
			step, ok := steps[x]
			if !ok {
				break
			}
			ctr := proofStepCounter(&step)
			if ctr < curVer {
				return nil, errVerification("prefix tree has unexpectedly low version counter")
			}
			cur, curVer = x, ctr
		}
		if existing, ok := ptrs[cur]; ok && existing != curVer {
			return nil, errVerification("inconsistent versions found for the same log position")
		}
		ptrs[cur] = curVer
	}
	out.Ptrs = ptrs
	return out, nil
}
