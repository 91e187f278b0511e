package keytrans

import (
	"bytes"
	"sort"

	"github.com/Bren2010/ktverify/crypto/commitments"
	"github.com/Bren2010/ktverify/crypto/suites"
	logtree "github.com/Bren2010/ktverify/tree/log"
	"github.com/Bren2010/ktverify/tree/log/math"
	"github.com/Bren2010/ktverify/tree/prefix"
)

// distinguishedSearchKey is the reserved search key clients use to look
// up the log's "distinguished" marker: a well-known position every
// client can cross-check, so that a malicious server can't show
// different clients different views of the tree without eventually being
// caught comparing notes.
const distinguishedSearchKey = "distinguished"

func logLeafHash(cs suites.CipherSuite, prefixRoot, commitment []byte) []byte {
	h := cs.Hash()
	h.Write(prefixRoot)
	h.Write(commitment)
	return h.Sum(nil)
}

// sortedEntries sorts a set of (log position -> leaf hash) observations
// by position, the order EvaluateBatchProof/VerifyInclusionProof expect.
// Conflicting hashes for one position are rejected earlier, by addLeaf;
// this function never returns an error.
func sortedEntries(leaves map[uint64][]byte) ([]uint64, [][]byte, error) {
	ids := make([]uint64, 0, len(leaves))
	for id := range leaves {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	values := make([][]byte, len(ids))
	for i, id := range ids {
		values[i] = leaves[id]
	}
	return ids, values, nil
}

func addLeaf(leaves map[uint64][]byte, id uint64, leaf []byte) error {
	if existing, ok := leaves[id]; ok && !bytes.Equal(existing, leaf) {
		return errVerification("multiple values presented for the same log position")
	}
	leaves[id] = leaf
	return nil
}

// proofStepCounter returns the single authenticated version counter a
// step carries: the prefix tree's own leaf counter when the proof proves
// inclusion, since that's the value the leaf hash actually commits to,
// and 0 (the log hasn't written any version of this key yet) for a
// non-inclusion proof, since there is no leaf of ours for the proof to
// authenticate a counter against.
func proofStepCounter(step *ProofStep) uint32 {
	if step.Prefix.Result.Kind == prefix.Inclusion {
		return step.Prefix.Result.Counter
	}
	return 0
}

// VerifySearch checks a server's response to a SlimSearchRequest: that the
// guided search it ran was the one an honest server would have run, that
// every step it opened is genuinely included in the log, that the
// returned value matches its commitment, and that the log's tree head is
// properly signed and consistent with what the client has pinned before.
// owned should be true when the caller controls the key material this
// search key belongs to (as opposed to looking up someone else's key).
func VerifySearch(cfg *PublicConfig, req SlimSearchRequest, resp FullSearchResponse, ctx SearchContext, owned bool, now int64) (*SearchStateUpdate, error) {
	cs := cfg.Suite

	index, err := cfg.VrfKey.ProofToHash(req.SearchKey, resp.Condensed.VrfProof)
	if err != nil {
		return nil, errVerification("vrf proof is invalid: " + err.Error())
	}

	treeSize := resp.TreeHead.TreeHead.TreeSize
	searchPos := resp.Condensed.Search.Pos
	g := newGuide(searchPos, treeSize, req.Version)

	leaves := make(map[uint64][]byte)
	steps := make(map[uint64]ProofStep)
	var resultStep *ProofStep
	var resultID uint64

	for i := range resp.Condensed.Search.Steps {
		if g.done() {
			return nil, errBadData("search returned more steps than the guided search requires")
		}
		id := g.next()
		step := &resp.Condensed.Search.Steps[i]

		prefixRoot, err := prefix.Evaluate(cs, index[:], searchPos, step.Prefix)
		if err != nil {
			return nil, errVerification("prefix tree proof is invalid: " + err.Error())
		}
		leaf := logLeafHash(cs, prefixRoot, step.Commitment)
		if err := addLeaf(leaves, id, leaf); err != nil {
			return nil, err
		}
		steps[id] = *step

		if err := g.insert(id, proofStepCounter(step)); err != nil {
			return nil, err
		}
		if last, ok := g.finish(); ok && last == id {
			resultStep, resultID = step, id
		}
	}
	if !g.done() {
		return nil, errBadData("search did not return enough steps to complete the guided search")
	}
	if _, ok := g.finish(); !ok {
		return nil, errVerification("key was not found in the log")
	}
	if resultStep == nil {
		return nil, errBadData("no proof step corresponds to the reported search result")
	}

	entries, values, err := sortedEntries(leaves)
	if err != nil {
		return nil, err
	}
	root, err := logtree.EvaluateBatchProof(cs, entries, values, treeSize, resp.Condensed.Search.Inclusion)
	if err != nil {
		return nil, errVerification("batch inclusion proof is invalid: " + err.Error())
	}

	marshaledValue, err := commitments.MarshalUpdateValue(resp.Condensed.Value.Value)
	if err != nil {
		return nil, errBadData(err.Error())
	}
	if !commitments.Verify(cs, req.SearchKey, resp.Condensed.Opening, marshaledValue, resultStep.Commitment) {
		return nil, errVerification("commitment opening does not match the update value")
	}

	if err := verifyFullTreeHead(cfg, resp.TreeHead, root, ctx.LastTreeHead, ctx.LastDistinguishedTreeHead, now); err != nil {
		return nil, err
	}

	size := treeSize
	if string(req.SearchKey) == distinguishedSearchKey {
		size = resultID + 1
	}
	counter := proofStepCounter(resultStep)

	var data *MonitoringData
	if ctx.Data != nil || owned || cfg.Mode.Kind == ContactMonitoring {
		data, err = checkSearchConsistency(ctx.Data, index, searchPos, resultID, counter, owned)
		if err != nil {
			return nil, err
		}
		data, err = foldSearchSteps(data, size, steps)
		if err != nil {
			return nil, err
		}
	}

	var treeRoot TreeRoot
	copy(treeRoot[:], root)
	return &SearchStateUpdate{
		TreeHead:       resp.TreeHead.TreeHead,
		TreeRoot:       treeRoot,
		MonitoringData: data,
	}, nil
}

// VerifyMonitor checks a server's response to a MonitorRequest: that each
// key's version history is consistent with what the client has recorded
// for it, that the proofs opening those positions are genuinely included
// in the log, and that the log's tree head is properly signed and
// consistent.
func VerifyMonitor(cfg *PublicConfig, req MonitorRequest, resp MonitorResponse, ctx MonitorContext, now int64) (*MonitorStateUpdate, error) {
	cs := cfg.Suite
	if len(req.Keys) != len(ctx.Data) {
		return nil, errBadData("number of monitored keys does not match number of monitoring data entries")
	}
	if len(req.Keys) != len(resp.Proofs) {
		return nil, errBadData("number of monitoring proofs does not match number of requested keys")
	}
	if ctx.LastDistinguishedTreeHead == nil {
		return nil, errMissing("last distinguished tree head")
	}

	treeSize := resp.TreeHead.TreeHead.TreeSize
	leaves := make(map[uint64][]byte)
	paths := make([][]uint64, len(req.Keys))

	for i, key := range req.Keys {
		data := ctx.Data[i]
		if data == nil {
			return nil, errMissing("monitoring data for a requested key")
		}

		size := treeSize
		if string(key.SearchKey) == distinguishedSearchKey {
			if req.Consistency == nil || req.Consistency.Last == nil {
				return nil, errMissing("consistency.last for the distinguished key")
			}
			size = *req.Consistency.Last
		}

		path := math.FullMonitoringPath(data.Pos, key.EntryPosition, size)
		paths[i] = path
		if len(path) != len(resp.Proofs[i].Steps) {
			return nil, errBadData("monitoring proof step count does not match expected monitoring path")
		}

		for j, pos := range path {
			step := &resp.Proofs[i].Steps[j]
			prefixRoot, err := prefix.Evaluate(cs, data.Index[:], data.Pos, step.Prefix)
			if err != nil {
				return nil, errVerification("prefix tree proof is invalid: " + err.Error())
			}
			leaf := logLeafHash(cs, prefixRoot, step.Commitment)
			if err := addLeaf(leaves, pos, leaf); err != nil {
				return nil, err
			}
		}
	}

	var root []byte
	if len(leaves) == 0 {
		if len(resp.Inclusion) != 1 {
			return nil, errBadData("monitoring response is malformed: inclusion proof should be a single root")
		}
		root = resp.Inclusion[0]
	} else {
		entries, values, err := sortedEntries(leaves)
		if err != nil {
			return nil, err
		}
		var err2 error
		root, err2 = logtree.EvaluateBatchProof(cs, entries, values, treeSize, resp.Inclusion)
		if err2 != nil {
			return nil, errVerification("batch inclusion proof is invalid: " + err2.Error())
		}
	}

	if err := verifyFullTreeHead(cfg, resp.TreeHead, root, ctx.LastTreeHead, ctx.LastDistinguishedTreeHead, now); err != nil {
		return nil, err
	}

	updated := make([]*MonitoringData, len(req.Keys))
	for i, data := range ctx.Data {
		next, err := updateMonitoringData(data, paths[i], resp.Proofs[i].Steps)
		if err != nil {
			return nil, err
		}
		updated[i] = next
	}

	var treeRoot TreeRoot
	copy(treeRoot[:], root)
	return &MonitorStateUpdate{
		TreeHead:       resp.TreeHead.TreeHead,
		TreeRoot:       treeRoot,
		MonitoringData: updated,
	}, nil
}

// VerifyDistinguished checks that a newly observed distinguished tree
// head is consistent with one the client has already pinned. It is
// vacuously successful if the client has no pinned distinguished head
// yet, since there is nothing to compare against.
func VerifyDistinguished(pinned *LastTreeHead, head TreeHead, root []byte) error {
	if pinned == nil {
		return nil
	}
	if pinned.TreeHead.TreeSize != head.TreeSize {
		return errVerification("distinguished tree head size does not match the pinned value")
	}
	if !bytes.Equal(pinned.TreeRoot[:], root) {
		return errVerification("distinguished tree head root does not match the pinned value")
	}
	return nil
}
