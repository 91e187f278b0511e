// Package log implements the append-only Log Tree used to anchor a Key
// Transparency log's history: every update is appended as the rightmost
// leaf, and the tree's signed root binds the full sequence of updates ever
// made.
//
// Unlike the prefix tree (see tree/prefix), log tree node hashes carry no
// domain-separation tag: a leaf and an intermediate node are combined the
// same way a certificate transparency log combines them, since the caller
// always knows from context (the entries being fetched) which node is
// which.
package log

import (
	"errors"

	"github.com/Bren2010/ktverify/crypto/suites"
	"github.com/Bren2010/ktverify/tree/log/math"
)

// treeHash returns the intermediate hash of left and right.
func treeHash(cs suites.CipherSuite, left, right []byte) []byte {
	h := cs.Hash()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// Root takes the tree size and frontier (the hashes of the full subtrees
// making up the tree, ordered left to right) as input and returns the root
// hash of the tree.
func Root(cs suites.CipherSuite, n uint64, frontier [][]byte) ([]byte, error) {
	if n == 0 {
		return nil, errors.New("invalid value for current tree size")
	}
	subtrees := math.FullSubtrees(math.Root(n), n)
	if len(frontier) != len(subtrees) {
		return nil, errors.New("frontier is unexpected size")
	}
	for _, elem := range frontier {
		if len(elem) != cs.HashSize() {
			return nil, errors.New("frontier element is unexpected size")
		}
	}

	acc := frontier[len(frontier)-1]
	for i := len(frontier) - 2; i >= 0; i-- {
		acc = treeHash(cs, frontier[i], acc)
	}
	return acc, nil
}
