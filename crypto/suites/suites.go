// Package suites implements each supported cipher suite.
package suites

import (
	"hash"

	"github.com/Bren2010/ktverify/crypto/vrf"
)

// CipherSuite is the interface implemented by each supported cipher suite.
//
// All of the methods that start with "Parse" expect their input to come from
// locally stored configuration, such as a PublicConfig pinned by a client.
type CipherSuite interface {
	Id() uint16
	Hash() hash.Hash
	HashSize() int
	CommitmentOpeningSize() int
	CommitmentFixedBytes() []byte
	VrfProofSize() int

	ParseSigningPrivateKey(raw []byte) (SigningPrivateKey, error)
	ParseSigningPublicKey(raw []byte) (SigningPublicKey, error)

	ParseVRFPrivateKey(raw []byte) (vrf.PrivateKey, error)
	ParseVRFPublicKey(raw []byte) (vrf.PublicKey, error)
}

// SigningPrivateKey is the interface implemented by signature private keys.
type SigningPrivateKey interface {
	Sign(message []byte) ([]byte, error)
	Public() SigningPublicKey
}

// SigningPublicKey is the interface implemented by signature public keys.
type SigningPublicKey interface {
	Verify(message, sig []byte) bool
	// Bytes returns the encoded public key, following protocol rules.
	Bytes() []byte
}

// ById returns the cipher suite registered under id, or false if none is.
func ById(id uint16) (CipherSuite, bool) {
	switch id {
	case KTSha256Ristretto255Ed25519{}.Id():
		return KTSha256Ristretto255Ed25519{}, true
	case KTSha256P256{}.Id():
		return KTSha256P256{}, true
	case KTSha256Edwards25519{}.Id():
		return KTSha256Edwards25519{}, true
	default:
		return nil, false
	}
}
