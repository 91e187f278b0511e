package keytrans

import "github.com/Bren2010/ktverify/tree/prefix"

// TreeHeadSignature is one log operator signature over a TreeHead's
// to-be-signed bytes. AuditorPublicKey is the third-party key those bytes
// embed (nil when they embed none, as in ContactMonitoring), letting a
// verifier pick out the signature that matches its configured
// DeploymentMode; the signature is checked against the log's own
// signature key.
type TreeHeadSignature struct {
	AuditorPublicKey []byte
	Signature        []byte
}

// TreeHead is a signed statement about the size and contents of a log at
// a point in time.
type TreeHead struct {
	TreeSize   uint64
	Timestamp  int64 // milliseconds since the Unix epoch
	Signatures []TreeHeadSignature
}

// TreeRoot is the 32-byte root hash of the log tree at some TreeHead's
// TreeSize.
type TreeRoot [32]byte

// LastTreeHead is the most recent (TreeHead, TreeRoot) pair a client has
// verified and pinned, to be presented as a baseline on the next request.
type LastTreeHead struct {
	TreeHead TreeHead
	TreeRoot TreeRoot
}

// AuditorTreeHead is one third-party auditor's view of the log, included
// in a FullTreeHead when operating in ThirdPartyAuditing mode. It carries
// its own signature over its own (tree size, timestamp, root) triplet,
// entirely separate from the log operator's TreeHead signature.
type AuditorTreeHead struct {
	PublicKey []byte
	TreeSize  uint64
	Timestamp int64
	// RootValue is the auditor's root hash at its own tree size. It is
	// nil when the auditor's tree size equals the log's tree size, since
	// in that case it's provably the same root and need not be resent.
	RootValue   []byte
	Consistency [][]byte
	Signature   []byte
}

// FullTreeHead bundles a TreeHead with the consistency proofs a client
// needs to fold it into its pinned state, plus any auditor views.
type FullTreeHead struct {
	TreeHead FullTreeHeadSource

	// Last is a consistency proof from the client's previously pinned
	// tree to this one. Empty if the client has no previous tree head.
	Last [][]byte
	// Distinguished is a consistency proof from the client's previously
	// pinned distinguished tree head to this one. Empty if the client
	// has no previous distinguished head.
	Distinguished [][]byte

	FullAuditorTreeHeads []AuditorTreeHead
}

// FullTreeHeadSource is satisfied by TreeHead; kept as a named type so
// call sites read naturally as "fth.TreeHead.TreeSize" etc.
type FullTreeHeadSource = TreeHead

// UpdateValue is the opaque, server-supplied value a search leaf commits
// to, in raw form: VerifySearch adds the length prefix itself before
// checking the commitment.
type UpdateValue struct {
	Value []byte
}

// ProofStep is one step of a guided binary search through the log: the
// prefix-tree proof found at this position and the leaf commitment it
// opens. The version number a step carries is never trusted as a bare
// field — it is read out of Prefix.Result, the part the proof's own hash
// chain authenticates, so a server can't steer the search or a client's
// recorded version history with an uninspected counter.
type ProofStep struct {
	Prefix     *prefix.Proof
	Commitment []byte
}

// CondensedTreeSearch is the log-tree side of a search response: the
// position the guided search starts from (the lower bound of its
// bracket), the guided-search steps, and a single batch inclusion proof
// covering every step's leaf.
type CondensedTreeSearch struct {
	Pos       uint64
	Steps     []ProofStep
	Inclusion [][]byte
}

// Condensed is the condensed (index-free) half of a search response.
type Condensed struct {
	VrfProof []byte
	Search   CondensedTreeSearch
	Opening  []byte
	Value    UpdateValue
}

// SlimSearchRequest is a request for the version history of a search key,
// optionally pinned to one specific version.
type SlimSearchRequest struct {
	SearchKey []byte
	Version   *uint32
}

// FullSearchResponse is a server's complete answer to a SlimSearchRequest.
type FullSearchResponse struct {
	Condensed Condensed
	TreeHead  FullTreeHead
}

// MonitorKey asks the log to prove the version history of SearchKey is
// consistent between the client's previously recorded position and
// EntryPosition, a more recent position the client knows about (e.g. by
// having performed a search).
type MonitorKey struct {
	SearchKey     []byte
	EntryPosition uint64
}

// MonitorProof answers one MonitorKey with one prefix-tree proof per
// position in that key's full monitoring path.
type MonitorProof struct {
	Steps []ProofStep
}

// ConsistencyRequest asks the server to prove consistency against the
// client's previously pinned tree heads.
type ConsistencyRequest struct {
	Last          *uint64
	Distinguished *uint64
}

// MonitorRequest asks the log to prove a batch of keys' version histories
// remain consistent with what the client has already recorded.
type MonitorRequest struct {
	Keys        []MonitorKey
	Consistency *ConsistencyRequest
}

// MonitorResponse answers a MonitorRequest with one MonitorProof per key,
// plus a single batch inclusion proof covering every step of every proof.
type MonitorResponse struct {
	TreeHead  FullTreeHead
	Proofs    []MonitorProof
	Inclusion [][]byte
}

// MonitoringData is the state a client retains between monitoring calls
// for one search key, so it can detect a version being rewritten or
// skipped over.
type MonitoringData struct {
	// Index is the VRF output for this key.
	Index [32]byte
	// Pos is the earliest log position the client has confirmed holds
	// this key (at some version).
	Pos uint64
	// Ptrs maps a log position the client has checked to the version
	// counter found at that position.
	Ptrs map[uint64]uint32
	// Owned records whether the client has ever confirmed it holds the
	// current version of this key (rather than just observing a log
	// entry written by someone else). Sticky: once true, stays true.
	Owned bool
}

// Clone returns a deep copy, so callers can attempt a speculative update
// and discard it on failure without corrupting the original.
func (d *MonitoringData) Clone() *MonitoringData {
	if d == nil {
		return nil
	}
	out := &MonitoringData{Index: d.Index, Pos: d.Pos, Owned: d.Owned}
	out.Ptrs = make(map[uint64]uint32, len(d.Ptrs))
	for k, v := range d.Ptrs {
		out.Ptrs[k] = v
	}
	return out
}

// AccountData is everything a client retains for one monitored account:
// its identifiers (only ACI is required) and the last tree head it has
// pinned.
type AccountData struct {
	ACI          []byte
	E164         []byte
	UsernameHash []byte
	LastTreeHead *LastTreeHead
}

// SearchContext is the state a client presents to, and receives back
// from, a search verification call.
type SearchContext struct {
	LastTreeHead              *LastTreeHead
	LastDistinguishedTreeHead *LastTreeHead
	Data                      *MonitoringData // nil if not monitoring this key
}

// SearchStateUpdate is the state a client should retain after a
// successful search verification.
type SearchStateUpdate struct {
	TreeHead       TreeHead
	TreeRoot       TreeRoot
	MonitoringData *MonitoringData // nil if the request did not monitor
}

// MonitorContext is the state a client presents to, and receives back
// from, a monitor verification call: one MonitoringData per search key,
// keyed the same way as the request's Keys, by index.
type MonitorContext struct {
	LastTreeHead              *LastTreeHead
	LastDistinguishedTreeHead *LastTreeHead
	Data                      []*MonitoringData
}

// MonitorStateUpdate is the state a client should retain after a
// successful monitor verification.
type MonitorStateUpdate struct {
	TreeHead       TreeHead
	TreeRoot       TreeRoot
	MonitoringData []*MonitoringData
}
