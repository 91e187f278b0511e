package prefix

import (
	"bytes"
	"testing"

	"github.com/Bren2010/ktverify/crypto/suites"
)

func TestEvaluateInclusionSingleLevel(t *testing.T) {
	cs := suites.KTSha256Ristretto255Ed25519{}

	index := make([]byte, cs.HashSize())
	index[0] = 0x00 // first bit 0 -> left child

	value := bytes.Repeat([]byte{0x42}, cs.HashSize())
	sibling := bytes.Repeat([]byte{0x24}, cs.HashSize())

	leaf := leafHash(cs, 0, value)
	wantRoot := parentHash(cs, leaf, sibling)

	proof := &Proof{
		Result:   SearchResult{Kind: Inclusion, Depth: 1, Counter: 0, Value: value},
		Elements: [][]byte{sibling},
	}

	got, err := Evaluate(cs, index, 0, proof)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !bytes.Equal(got, wantRoot) {
		t.Fatalf("root mismatch: got %x, want %x", got, wantRoot)
	}
}

func TestEvaluateNonInclusionParent(t *testing.T) {
	cs := suites.KTSha256Ristretto255Ed25519{}
	index := make([]byte, cs.HashSize())

	proof := &Proof{
		Result:   SearchResult{Kind: NonInclusionParent, Depth: 0},
		Elements: nil,
	}

	got, err := Evaluate(cs, index, 0, proof)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !bytes.Equal(got, emptyHash(cs)) {
		t.Fatalf("root mismatch for empty-subtree proof")
	}
}

func TestEvaluateRejectsProofBeyondDepthBound(t *testing.T) {
	cs := suites.KTSha256Ristretto255Ed25519{}
	index := make([]byte, cs.HashSize())

	proof := &Proof{
		Result:   SearchResult{Kind: NonInclusionParent, Depth: 5},
		Elements: make([][]byte, 5),
	}
	// pos=0 -> maxDepth(0) = 1, so depth 5 must be rejected.
	if _, err := Evaluate(cs, index, 0, proof); err == nil {
		t.Fatal("expected an error for a proof exceeding the depth bound")
	}
}

func TestEvaluateRejectsDivergentNonInclusionLeaf(t *testing.T) {
	cs := suites.KTSha256Ristretto255Ed25519{}
	index := make([]byte, cs.HashSize())
	index[0] = 0x00

	other := make([]byte, cs.HashSize())
	other[0] = 0x80 // diverges at bit 0, but proof claims depth 1 (shared bit 0)

	proof := &Proof{
		Result: SearchResult{
			Kind:         NonInclusionLeaf,
			Depth:        1,
			OtherIndex:   other,
			OtherCounter: 0,
			OtherValue:   bytes.Repeat([]byte{0x01}, cs.HashSize()),
		},
		Elements: [][]byte{bytes.Repeat([]byte{0x02}, cs.HashSize())},
	}

	if _, err := Evaluate(cs, index, 10, proof); err == nil {
		t.Fatal("expected an error for a non-inclusion proof whose leaf doesn't share the claimed prefix")
	}
}
