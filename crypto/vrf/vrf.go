// Package vrf defines the interface to a Verifiable Random Function.
//
// The VRF primitive itself — encoding to curve, nonce generation, and the
// elliptic-curve arithmetic underneath proof-to-hash — is treated as an
// external collaborator by the verifier; this package only fixes the shape
// the rest of the module depends on.
package vrf

import "errors"

// ErrInvalidProof is returned by PublicKey.ProofToHash when the supplied
// proof does not verify against the given input under the key.
var ErrInvalidProof = errors.New("vrf: proof does not verify")

// PublicKey represents a VRF public key capable of checking a proof and
// recovering the deterministic hash it attests to.
type PublicKey interface {
	// ProofToHash checks that proof is a valid VRF proof of input under this
	// key, and if so returns the 32-byte deterministic output.
	ProofToHash(input, proof []byte) ([32]byte, error)

	// Bytes returns the encoded public key.
	Bytes() []byte
}

// PrivateKey represents a VRF private key, used only to build test
// fixtures; the verifier itself never proves.
type PrivateKey interface {
	// Prove returns the VRF proof for input and the 32-byte hash it attests
	// to.
	Prove(input []byte) (proof []byte, hash [32]byte, err error)
	Public() PublicKey
}
