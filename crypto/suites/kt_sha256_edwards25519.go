package suites

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/Bren2010/ktverify/crypto/vrf"
	"github.com/Bren2010/ktverify/crypto/vrf/edwards25519"
)

// KTSha256Edwards25519 implements the KT cipher suite using SHA-256 for
// hashing, ed25519 for tree-head signatures, and the edwards25519 curve
// (ECVRF-EDWARDS25519-SHA512-TAI) for the VRF. A deployment that wants its
// signature key and VRF key on the same curve, rather than the
// Ed25519/Ristretto255 pairing of KTSha256Ristretto255Ed25519, uses this
// suite instead.
type KTSha256Edwards25519 struct{}

var _ CipherSuite = KTSha256Edwards25519{}

func (s KTSha256Edwards25519) Id() uint16                { return 0x03 }
func (s KTSha256Edwards25519) Hash() hash.Hash            { return sha256.New() }
func (s KTSha256Edwards25519) HashSize() int              { return 32 }
func (s KTSha256Edwards25519) CommitmentOpeningSize() int { return 32 }
func (s KTSha256Edwards25519) VrfProofSize() int          { return 32 + 16 + 32 }

func (s KTSha256Edwards25519) CommitmentFixedBytes() []byte {
	return []byte{
		0x4f, 0x21, 0x9a, 0x1a, 0x3e, 0x6b, 0x4d, 0x06,
		0x8c, 0x9e, 0x71, 0x52, 0xb0, 0x4d, 0xaf, 0x33,
	}
}

func (s KTSha256Edwards25519) ParseSigningPrivateKey(raw []byte) (SigningPrivateKey, error) {
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("encoded signing key is unexpected size")
	}
	return ed25519PrivateKey{ed25519.NewKeyFromSeed(raw)}, nil
}

func (s KTSha256Edwards25519) ParseSigningPublicKey(raw []byte) (SigningPublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("encoded signing key is unexpected size")
	}
	return ed25519PublicKey{ed25519.PublicKey(raw)}, nil
}

func (s KTSha256Edwards25519) ParseVRFPrivateKey(raw []byte) (vrf.PrivateKey, error) {
	return edwards25519.NewPrivateKey(raw)
}

func (s KTSha256Edwards25519) ParseVRFPublicKey(raw []byte) (vrf.PublicKey, error) {
	return edwards25519.NewPublicKey(raw)
}
