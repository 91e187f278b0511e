package log

import (
	"bytes"
	"errors"
	"slices"

	"github.com/Bren2010/ktverify/crypto/suites"
	"github.com/Bren2010/ktverify/tree/log/math"
)

// EvaluateBatchProof reconstructs the root of a tree of size n from a set of
// leaves at known positions (entries, with values parallel to it) plus the
// sibling hashes the tree does not already know (proof). entries must be
// sorted ascending with no duplicates and in range.
func EvaluateBatchProof(
	cs suites.CipherSuite,
	entries []uint64,
	values [][]byte,
	n uint64,
	proof [][]byte,
) ([]byte, error) {
	if n == 0 {
		return nil, errors.New("invalid value for current tree size")
	} else if len(entries) != len(values) {
		return nil, errors.New("number of leaf indices must equal number of leaf values")
	}
	for i, x := range entries {
		if x >= n {
			return nil, errors.New("leaf is beyond right edge of tree")
		} else if i > 0 && entries[i-1] >= x {
			return nil, errors.New("leaf indices must be strictly ascending with no duplicates")
		}
	}

	copath := math.BatchCopath(entries, n, nil)
	if len(proof) != len(copath) {
		return nil, errors.New("malformed proof")
	}

	valuesMap := make(map[uint64][]byte)
	nodes := make([]uint64, 0, len(entries))
	for i, x := range entries {
		id := 2 * x
		if err := addToMap(cs, valuesMap, id, values[i]); err != nil {
			return nil, err
		}
		nodes = append(nodes, id)
	}

	proofMap := make(map[uint64][]byte)
	for i, x := range copath {
		if err := addToMap(cs, proofMap, x, proof[i]); err != nil {
			return nil, err
		}
	}

	out := make([][]byte, 0)
	root := math.Root(n)
	offset := 0

	for {
		if math.IsFullSubtree(root, n) {
			elem, err := evaluate(cs, root, n, nodes[offset:], valuesMap, proofMap)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
			break
		}
		i, _ := slices.BinarySearch(nodes, root)
		elem, err := evaluate(cs, math.Left(root), n, nodes[offset:i], valuesMap, proofMap)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
		root = math.Right(root, n)
		offset = i
	}

	acc := out[len(out)-1]
	for i := len(out) - 2; i >= 0; i-- {
		acc = treeHash(cs, out[i], acc)
	}
	return acc, nil
}

// VerifyInclusionProof checks that leaf (at position x) with the given
// value is included in the tree of size n with root treeRoot.
func VerifyInclusionProof(
	cs suites.CipherSuite,
	x uint64,
	value []byte,
	n uint64,
	treeRoot []byte,
	proof [][]byte,
) error {
	root, err := EvaluateBatchProof(cs, []uint64{x}, [][]byte{value}, n, proof)
	if err != nil {
		return err
	}
	if !bytes.Equal(root, treeRoot) {
		return errors.New("inclusion proof does not lead to the expected root")
	}
	return nil
}

func addToMap(cs suites.CipherSuite, m map[uint64][]byte, x uint64, val []byte) error {
	if len(val) != cs.HashSize() {
		return errors.New("value is unexpected size")
	} else if expected, ok := m[x]; ok && !bytes.Equal(val, expected) {
		return errors.New("different values presented for same node index")
	} else if !ok {
		m[x] = val
	}
	return nil
}

func evaluate(cs suites.CipherSuite, x, n uint64, nodes []uint64, values, proof map[uint64][]byte) ([]byte, error) {
	if len(nodes) == 0 {
		if math.IsFullSubtree(x, n) {
			v, ok := proof[x]
			if !ok {
				return nil, errors.New("malformed proof")
			}
			return v, nil
		}
		left, ok := proof[math.Left(x)]
		if !ok {
			return nil, errors.New("malformed proof")
		}
		right, err := evaluate(cs, math.Right(x, n), n, nil, nil, proof)
		if err != nil {
			return nil, err
		}
		return treeHash(cs, left, right), nil
	} else if len(nodes) == 1 && nodes[0] == x {
		return values[x], nil
	}

	i, found := slices.BinarySearch(nodes, x)
	j := i
	if found {
		j++
	}
	left, err := evaluate(cs, math.Left(x), n, nodes[:i], values, proof)
	if err != nil {
		return nil, err
	}
	right, err := evaluate(cs, math.Right(x, n), n, nodes[j:], values, proof)
	if err != nil {
		return nil, err
	}
	intermediate := treeHash(cs, left, right)

	if found && !bytes.Equal(intermediate, values[x]) {
		return nil, errors.New("unexpected value computed for intermediate node")
	}
	return intermediate, nil
}

// VerifyConsistencyProof checks that a tree of size m with root1 is a
// genuine prefix of a tree of size n with root2, per the classic RFC 6962
// consistency-proof algorithm. Unlike EvaluateBatchProof, this needs no
// retained frontier: the proof is self-contained given just the two root
// hashes, which is what a client that only pins TreeRoot (not a frontier)
// between verifications needs.
//
// m == 0 or m == n are special-cased to require an empty proof.
func VerifyConsistencyProof(cs suites.CipherSuite, m, n uint64, root1, root2 []byte, proof [][]byte) error {
	switch {
	case m > n:
		return errors.New("previous tree size is greater than current tree size")
	case m == n:
		if len(proof) != 0 {
			return errors.New("consistency proof must be empty when tree size is unchanged")
		}
		if !bytes.Equal(root1, root2) {
			return errors.New("tree root changed without a change in tree size")
		}
		return nil
	case m == 0:
		if len(proof) != 0 {
			return errors.New("consistency proof must be empty when previous tree was empty")
		}
		return nil
	}
	if len(proof) == 0 {
		return errors.New("consistency proof is empty")
	}

	node, lastNode := m-1, n-1
	for node%2 == 1 {
		node /= 2
		lastNode /= 2
	}

	var oldHash, newHash []byte
	if node > 0 {
		oldHash, newHash = proof[0], proof[0]
		proof = proof[1:]
	} else {
		oldHash, newHash = root1, root1
	}

	for len(proof) > 0 {
		if lastNode == 0 {
			return errors.New("consistency proof has too many elements")
		}
		next := proof[0]
		proof = proof[1:]

		if node%2 == 1 || node == lastNode {
			newHash = treeHash(cs, next, newHash)
			oldHash = treeHash(cs, next, oldHash)
			for node%2 == 0 && node != 0 {
				node /= 2
				lastNode /= 2
			}
		} else {
			newHash = treeHash(cs, newHash, next)
		}
		node /= 2
		lastNode /= 2
	}

	if lastNode != 0 {
		return errors.New("consistency proof has too few elements")
	}
	if !bytes.Equal(oldHash, root1) {
		return errors.New("consistency proof does not lead to the previous root")
	}
	if !bytes.Equal(newHash, root2) {
		return errors.New("consistency proof does not lead to the current root")
	}
	return nil
}
