// Package prefix implements a client-side evaluator for proofs against the
// VRF-indexed prefix tree (a sparse Merkle tree keyed by VRF output) that a
// Key Transparency log uses to answer search queries.
//
// Unlike the log tree (see tree/log), node hashes here are domain-separated:
// a leaf and a parent each hash under a distinct tag, and an empty subtree
// is the all-zero value, so a proof element can never be reinterpreted as
// the wrong kind of node.
package prefix

import (
	"encoding/binary"
	"errors"

	"github.com/Bren2010/ktverify/crypto/suites"
)

const (
	leafTag   = 0x01
	parentTag = 0x02
)

func leafHash(cs suites.CipherSuite, counter uint32, value []byte) []byte {
	h := cs.Hash()
	h.Write([]byte{leafTag})
	var counterBytes [4]byte
	binary.BigEndian.PutUint32(counterBytes[:], counter)
	h.Write(counterBytes[:])
	h.Write(value)
	return h.Sum(nil)
}

func parentHash(cs suites.CipherSuite, left, right []byte) []byte {
	h := cs.Hash()
	h.Write([]byte{parentTag})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func emptyHash(cs suites.CipherSuite) []byte {
	return make([]byte, cs.HashSize())
}

// ResultKind identifies which of the three shapes a prefix-tree search
// result can take.
type ResultKind uint8

const (
	// Inclusion means a leaf for the queried index was found.
	Inclusion ResultKind = iota
	// NonInclusionLeaf means the search ran into a leaf for a different
	// index, proving the queried index is absent.
	NonInclusionLeaf
	// NonInclusionParent means the search ran into an empty subtree,
	// proving the queried index is absent.
	NonInclusionParent
)

// SearchResult is the terminal node a prefix-tree proof resolves to, plus
// the depth (number of bits of the index consumed to reach it) at which it
// sits.
type SearchResult struct {
	Kind  ResultKind
	Depth int

	// Counter and Value apply when Kind == Inclusion: Value is the
	// commitment hash stored at the leaf, and Counter lets the same index
	// be re-inserted at a later log position without colliding hashes.
	Counter uint32
	Value   []byte

	// OtherIndex, OtherCounter, and OtherValue apply when
	// Kind == NonInclusionLeaf: the existing leaf that was found instead,
	// which must share the queried index's first Depth bits and then
	// diverge.
	OtherIndex   []byte
	OtherCounter uint32
	OtherValue   []byte
}

// Proof is a prefix-tree search proof for a single index.
type Proof struct {
	Result SearchResult
	// Elements holds sibling hashes from the terminal node's depth up to
	// the root, i.e. Elements[0] is the sibling needed to combine at depth
	// Result.Depth, and Elements[len-1] is the sibling of the root's
	// immediate child.
	Elements [][]byte
}

// maxDepth returns the maximum depth a prefix-tree proof may legitimately
// reach for a log of size pos+1: logarithmic in the number of entries, the
// way an append-only sparse tree stays shallow in practice even though its
// addressable depth is the full width of the index.
func maxDepth(pos uint64) int {
	n := pos + 1
	d := 0
	for (uint64(1) << uint(d)) < n {
		d++
	}
	return d + 1
}

func bitAt(index []byte, level int) int {
	byteIdx, bitIdx := level/8, level%8
	if byteIdx >= len(index) {
		return 0
	}
	return int((index[byteIdx] >> (7 - bitIdx)) & 1)
}

// Evaluate checks a prefix-tree proof for index against the log position
// pos it was returned alongside, and returns the root hash it implies.
func Evaluate(cs suites.CipherSuite, index []byte, pos uint64, proof *Proof) ([]byte, error) {
	if len(index) != cs.HashSize() {
		return nil, errors.New("index has unexpected length")
	}
	depth := proof.Result.Depth
	bound := maxDepth(pos)
	if depth < 0 || depth > bound {
		return nil, errors.New("prefix proof depth exceeds bound for this log position")
	}
	if len(proof.Elements) != depth {
		return nil, errors.New("malformed prefix proof: wrong number of sibling elements")
	}

	var cur []byte
	switch proof.Result.Kind {
	case Inclusion:
		if len(proof.Result.Value) != cs.HashSize() {
			return nil, errors.New("malformed prefix proof: leaf value has wrong length")
		}
		cur = leafHash(cs, proof.Result.Counter, proof.Result.Value)

	case NonInclusionLeaf:
		if len(proof.Result.OtherIndex) != cs.HashSize() {
			return nil, errors.New("malformed prefix proof: other index has wrong length")
		}
		if len(proof.Result.OtherValue) != cs.HashSize() {
			return nil, errors.New("malformed prefix proof: other value has wrong length")
		}
		for level := 0; level < depth; level++ {
			if bitAt(index, level) != bitAt(proof.Result.OtherIndex, level) {
				return nil, errors.New("non-inclusion leaf does not share the claimed prefix")
			}
		}
		if depth < bound && bitAt(index, depth) == bitAt(proof.Result.OtherIndex, depth) {
			return nil, errors.New("non-inclusion leaf terminates before indices actually diverge")
		}
		cur = leafHash(cs, proof.Result.OtherCounter, proof.Result.OtherValue)

	case NonInclusionParent:
		cur = emptyHash(cs)

	default:
		return nil, errors.New("unknown prefix proof result kind")
	}

	for level := depth - 1; level >= 0; level-- {
		sibling := proof.Elements[depth-1-level]
		if len(sibling) != cs.HashSize() {
			return nil, errors.New("malformed prefix proof: sibling has wrong length")
		}
		if bitAt(index, level) == 0 {
			cur = parentHash(cs, cur, sibling)
		} else {
			cur = parentHash(cs, sibling, cur)
		}
	}

	return cur, nil
}
