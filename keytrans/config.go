// Package keytrans implements client-side verification of a Key
// Transparency log: checking that a server's answers to search and
// monitor requests are backed by genuine, internally consistent proofs
// against a log the server has committed to via signed tree heads.
//
// Every exported function here is pure: no I/O, no shared mutable state,
// and no retries. Callers own persistence of the LastTreeHead and
// MonitoringData values these functions return, and are expected to pass
// the current time in explicitly rather than have it read implicitly.
package keytrans

import (
	"github.com/Bren2010/ktverify/crypto/suites"
	"github.com/Bren2010/ktverify/crypto/vrf"
)

// ModeKind identifies which of the three deployment modes a log runs in.
// It controls whether a tree head carries an auxiliary public key (a
// third party's management or auditing key) alongside the log operator's
// own signature.
type ModeKind uint8

const (
	// ContactMonitoring is the mode where clients monitor their own
	// entries directly against the log, with no third party involved.
	ContactMonitoring ModeKind = 1
	// ThirdPartyManagement is the mode where a separate management
	// service countersigns every update on a user's behalf.
	ThirdPartyManagement ModeKind = 2
	// ThirdPartyAuditing is the mode where an independent auditor
	// periodically cosigns the log's tree heads.
	ThirdPartyAuditing ModeKind = 3
)

// DeploymentMode pairs a ModeKind with the auxiliary key it carries, if
// any. Key is nil for ContactMonitoring and must be set for the other two
// kinds.
type DeploymentMode struct {
	Kind ModeKind
	Key  []byte
}

// HasAssociatedKey reports whether this mode carries an auxiliary key in
// the tree-head-to-be-signed byte layout.
func (m DeploymentMode) HasAssociatedKey() bool {
	return m.Kind == ThirdPartyManagement || m.Kind == ThirdPartyAuditing
}

// PublicConfig is the fixed, out-of-band-distributed configuration a
// client needs to verify a log's responses: which cipher suite it uses,
// which deployment mode it runs in, and the log's long-term signing and
// VRF public keys.
type PublicConfig struct {
	Suite        suites.CipherSuite
	Mode         DeploymentMode
	SignatureKey suites.SigningPublicKey
	VrfKey       vrf.PublicKey

	// SignatureKeyBytes and VrfKeyBytes are the exact encodings the
	// tree-head-to-be-signed layout embeds by length-prefixed byte
	// string, retained here so that layout can be reconstructed without
	// re-deriving an encoding from SignatureKey/VrfKey (which only
	// expose it via Bytes(), already equal to these by construction).
	SignatureKeyBytes []byte
	VrfKeyBytes        []byte
}

// NewPublicConfig parses the wire encodings of a log's signature and VRF
// public keys under the given cipher suite and deployment mode.
func NewPublicConfig(suite suites.CipherSuite, mode DeploymentMode, signatureKeyBytes, vrfKeyBytes []byte) (*PublicConfig, error) {
	sigKey, err := suite.ParseSigningPublicKey(signatureKeyBytes)
	if err != nil {
		return nil, errBadData("malformed signature public key: " + err.Error())
	}
	vrfKey, err := suite.ParseVRFPublicKey(vrfKeyBytes)
	if err != nil {
		return nil, errBadData("malformed vrf public key: " + err.Error())
	}
	if mode.HasAssociatedKey() && len(mode.Key) == 0 {
		return nil, errMissing("deployment mode auxiliary key")
	}
	return &PublicConfig{
		Suite:             suite,
		Mode:              mode,
		SignatureKey:      sigKey,
		VrfKey:            vrfKey,
		SignatureKeyBytes: signatureKeyBytes,
		VrfKeyBytes:       vrfKeyBytes,
	}, nil
}
