package keytrans

import (
	"bytes"
	"testing"

	"github.com/Bren2010/ktverify/crypto/commitments"
	"github.com/Bren2010/ktverify/crypto/suites"
	"github.com/Bren2010/ktverify/crypto/vrf/ristretto255"
	"github.com/Bren2010/ktverify/tree/prefix"
)

// searchFixture builds a minimal but fully genuine one-entry log: a single
// search key at log position 0, with a real VRF proof, a real commitment,
// and a real tree-head signature, so VerifySearch exercises its entire
// pipeline (VRF, prefix proof, log inclusion, commitment opening,
// signature, consistency gating) rather than stubbed-out pieces.
func searchFixture(t *testing.T) (*PublicConfig, SlimSearchRequest, FullSearchResponse) {
	return searchFixtureWithMode(t, DeploymentMode{Kind: ContactMonitoring})
}

// searchFixtureWithMode is searchFixture generalized over deployment mode,
// so tests can exercise the monitoring-gate condition's ContactMonitoring
// special case against a mode where it does not apply.
func searchFixtureWithMode(t *testing.T, mode DeploymentMode) (*PublicConfig, SlimSearchRequest, FullSearchResponse) {
	t.Helper()
	cs := suites.KTSha256Ristretto255Ed25519{}

	vrfSeed := bytes.Repeat([]byte{0x11}, 32)
	vrfPriv, err := ristretto255.NewPrivateKey(vrfSeed)
	if err != nil {
		t.Fatalf("ristretto255.NewPrivateKey: %v", err)
	}

	sigSeed := bytes.Repeat([]byte{0x22}, 32)
	sigPriv, err := cs.ParseSigningPrivateKey(sigSeed)
	if err != nil {
		t.Fatalf("ParseSigningPrivateKey: %v", err)
	}

	cfg := &PublicConfig{
		Suite:             cs,
		Mode:              mode,
		SignatureKey:      sigPriv.Public(),
		VrfKey:            vrfPriv.Public(),
		SignatureKeyBytes: sigPriv.Public().Bytes(),
		VrfKeyBytes:       vrfPriv.Public().Bytes(),
	}

	searchKey := []byte("alice")
	vrfProof, _, err := vrfPriv.Prove(searchKey)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	updateValue := []byte("alice's current key material")
	marshaled, err := commitments.MarshalUpdateValue(updateValue)
	if err != nil {
		t.Fatalf("MarshalUpdateValue: %v", err)
	}
	opening := commitments.GenerateOpening(cs)
	commitment := commitments.Commit(cs, searchKey, opening, marshaled)

	// A single inclusion leaf at depth 0: the only position in a
	// one-entry prefix tree, so Evaluate needs no sibling elements.
	step := ProofStep{
		Prefix: &prefix.Proof{
			Result:   prefix.SearchResult{Kind: prefix.Inclusion, Depth: 0, Counter: 1, Value: commitment},
			Elements: nil,
		},
		Commitment: commitment,
	}
	const treeSize = uint64(1)
	timestamp := int64(1_700_000_000_000)

	var auxKey []byte
	if mode.HasAssociatedKey() {
		auxKey = mode.Key
	}
	tbs, err := marshalTreeHeadTBS(cfg, auxKey, treeSize, timestamp, mustLeafHash(cs, &step))
	if err != nil {
		t.Fatalf("marshalTreeHeadTBS: %v", err)
	}
	sig, err := sigPriv.Sign(tbs)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	resp := FullSearchResponse{
		Condensed: Condensed{
			VrfProof: vrfProof,
			Search: CondensedTreeSearch{
				Pos:       0,
				Steps:     []ProofStep{step},
				Inclusion: nil,
			},
			Opening: opening,
			Value:   UpdateValue{Value: updateValue},
		},
		TreeHead: FullTreeHead{
			TreeHead: TreeHead{
				TreeSize:   treeSize,
				Timestamp:  timestamp,
				Signatures: []TreeHeadSignature{{AuditorPublicKey: auxKey, Signature: sig}},
			},
		},
	}
	req := SlimSearchRequest{SearchKey: searchKey}
	return cfg, req, resp
}

// mustLeafHash computes the log leaf hash a single-entry tree's root
// equals: logLeafHash(prefixRoot, commitment), where prefixRoot is just
// the inclusion leaf hash itself since the fixture's proof has depth 0.
func mustLeafHash(cs suites.CipherSuite, step *ProofStep) []byte {
	prefixRoot, err := prefix.Evaluate(cs, make([]byte, cs.HashSize()), 0, step.Prefix)
	if err != nil {
		panic(err)
	}
	return logLeafHash(cs, prefixRoot, step.Commitment)
}

func TestVerifySearchHappyPath(t *testing.T) {
	cfg, req, resp := searchFixture(t)

	update, err := VerifySearch(cfg, req, resp, SearchContext{}, true, 1_700_000_001_000)
	if err != nil {
		t.Fatalf("VerifySearch: %v", err)
	}
	if update.TreeHead.TreeSize != 1 {
		t.Fatalf("expected tree size 1, got %d", update.TreeHead.TreeSize)
	}
	if update.MonitoringData == nil {
		t.Fatal("expected monitoring data to be populated when owned=true")
	}
	if update.MonitoringData.Ptrs[0] != 1 {
		t.Fatalf("expected counter 1 recorded at position 0, got %v", update.MonitoringData.Ptrs)
	}
	if !update.MonitoringData.Owned {
		t.Fatal("expected Owned to be set for a search the caller owns")
	}
}

func TestVerifySearchRejectsTamperedSignature(t *testing.T) {
	cfg, req, resp := searchFixture(t)
	tampered := append([]byte{}, resp.TreeHead.TreeHead.Signatures[0].Signature...)
	tampered[0] ^= 0xff
	resp.TreeHead.TreeHead.Signatures[0].Signature = tampered

	_, err := VerifySearch(cfg, req, resp, SearchContext{}, true, 1_700_000_001_000)
	if err == nil {
		t.Fatal("expected a signature verification failure")
	}
	verr, ok := err.(*Error)
	if !ok || verr.Kind != VerificationFailed {
		t.Fatalf("expected a VerificationFailed error, got: %v", err)
	}
}

func TestVerifySearchRejectsWrongCommitmentOpening(t *testing.T) {
	cfg, req, resp := searchFixture(t)
	resp.Condensed.Value.Value = []byte("a different update value entirely")

	if _, err := VerifySearch(cfg, req, resp, SearchContext{}, true, 1_700_000_001_000); err == nil {
		t.Fatal("expected commitment verification to fail for a mismatched update value")
	}
}

func TestVerifySearchNotOwnedDoesNotMonitor(t *testing.T) {
	// Under ContactMonitoring, a client always monitors its own search
	// keys regardless of the owned flag (that's the point of the mode),
	// so this needs a mode where a third party can do the monitoring
	// instead to observe the owned=false, no-prior-data case actually
	// skip the fold.
	mode := DeploymentMode{Kind: ThirdPartyManagement, Key: bytes.Repeat([]byte{0x33}, 32)}
	cfg, req, resp := searchFixtureWithMode(t, mode)

	update, err := VerifySearch(cfg, req, resp, SearchContext{}, false, 1_700_000_001_000)
	if err != nil {
		t.Fatalf("VerifySearch: %v", err)
	}
	if update.MonitoringData != nil {
		t.Fatal("expected no monitoring data when not owned and not already monitoring")
	}
}
