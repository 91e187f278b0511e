package keytrans

import (
	"testing"

	"github.com/Bren2010/ktverify/tree/prefix"
)

// stepWithCounter builds a ProofStep whose authenticated inclusion
// counter is c, for tests that only care about counter bookkeeping and
// not prefix-proof evaluation itself.
func stepWithCounter(c uint32) ProofStep {
	return ProofStep{Prefix: &prefix.Proof{Result: prefix.SearchResult{Kind: prefix.Inclusion, Counter: c}}}
}

func TestUpdateMonitoringDataAcceptsNonDecreasingCounters(t *testing.T) {
	data := &MonitoringData{Pos: 0, Ptrs: map[uint64]uint32{0: 1}}
	path := []uint64{1, 3, 7}
	steps := []ProofStep{stepWithCounter(1), stepWithCounter(2), stepWithCounter(2)}

	next, err := updateMonitoringData(data, path, steps)
	if err != nil {
		t.Fatalf("updateMonitoringData: %v", err)
	}
	if next.Pos != 7 {
		t.Fatalf("expected Pos=7, got %d", next.Pos)
	}
	for _, pos := range path {
		if _, ok := next.Ptrs[pos]; !ok {
			t.Fatalf("expected position %d to be recorded", pos)
		}
	}
	// Original must be untouched.
	if _, ok := data.Ptrs[1]; ok {
		t.Fatal("updateMonitoringData mutated its input")
	}
}

func TestUpdateMonitoringDataRejectsDecreasingCounter(t *testing.T) {
	data := &MonitoringData{Pos: 0, Ptrs: map[uint64]uint32{0: 5}}
	path := []uint64{1}
	steps := []ProofStep{stepWithCounter(2)}

	if _, err := updateMonitoringData(data, path, steps); err == nil {
		t.Fatal("expected an error for a decreasing counter")
	}
}

func TestUpdateMonitoringDataRejectsConflictingRecord(t *testing.T) {
	data := &MonitoringData{Pos: 0, Ptrs: map[uint64]uint32{3: 2}}
	path := []uint64{3}
	steps := []ProofStep{stepWithCounter(9)}

	if _, err := updateMonitoringData(data, path, steps); err == nil {
		t.Fatal("expected an error for a conflicting record at the same position")
	}
}

func TestCheckSearchConsistencyFirstObservation(t *testing.T) {
	var index [32]byte
	index[0] = 0x01

	data, err := checkSearchConsistency(nil, index, 10, 12, 3, true)
	if err != nil {
		t.Fatalf("checkSearchConsistency: %v", err)
	}
	if data.Pos != 10 || data.Ptrs[12] != 3 || !data.Owned {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestCheckSearchConsistencyRejectsVersionRegression(t *testing.T) {
	var index [32]byte
	data := &MonitoringData{Index: index, Pos: 5, Ptrs: map[uint64]uint32{5: 4}}

	if _, err := checkSearchConsistency(data, index, 5, 6, 2, false); err == nil {
		t.Fatal("expected an error for an observed version older than a recorded one")
	}
}

func TestCheckSearchConsistencyOwnedIsSticky(t *testing.T) {
	var index [32]byte
	data := &MonitoringData{Index: index, Pos: 5, Owned: true, Ptrs: map[uint64]uint32{5: 1}}

	next, err := checkSearchConsistency(data, index, 5, 9, 2, false)
	if err != nil {
		t.Fatalf("checkSearchConsistency: %v", err)
	}
	if !next.Owned {
		t.Fatal("Owned should remain true once set")
	}
}

func TestCheckSearchConsistencyRejectsMismatchedZeroPos(t *testing.T) {
	var index [32]byte
	data := &MonitoringData{Index: index, Pos: 5, Ptrs: map[uint64]uint32{}}

	if _, err := checkSearchConsistency(data, index, 6, 9, 2, false); err == nil {
		t.Fatal("expected an error for a mismatched start position")
	}
}
