// Package commitments implements the commitment scheme a Key Transparency
// log uses to hide a search key's update value behind a public leaf, while
// letting a client that already knows the value confirm a leaf opens to it.
package commitments

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math"

	"github.com/Bren2010/ktverify/crypto/suites"
)

// GenerateOpening returns randomly generated opening material for a
// commitment, sized according to cs.
func GenerateOpening(cs suites.CipherSuite) []byte {
	out := make([]byte, cs.CommitmentOpeningSize())
	if _, err := rand.Read(out); err != nil {
		panic(err)
	}
	return out
}

// MarshalUpdateValue encodes value the way a commitment's message is
// expected to carry it: a big-endian u32 length prefix followed by the raw
// bytes. Values too long to fit the length prefix are rejected.
func MarshalUpdateValue(value []byte) ([]byte, error) {
	if uint64(len(value)) > math.MaxUint32 {
		return nil, errors.New("update value is too long to marshal")
	}
	out := make([]byte, 4+len(value))
	binary.BigEndian.PutUint32(out[:4], uint32(len(value)))
	copy(out[4:], value)
	return out, nil
}

// Commit returns a cryptographic commitment to (searchKey, marshaledValue)
// using the given opening. The fixed, suite-specific key prevents the
// commitment from being repurposed as a MAC under an attacker-chosen key.
func Commit(cs suites.CipherSuite, searchKey, opening, marshaledValue []byte) []byte {
	mac := hmac.New(cs.Hash, cs.CommitmentFixedBytes())
	mac.Write(searchKey)
	mac.Write(opening)
	mac.Write(marshaledValue)
	return mac.Sum(nil)
}

// Verify reports whether commitment opens to (searchKey, marshaledValue)
// under opening.
func Verify(cs suites.CipherSuite, searchKey, opening, marshaledValue, commitment []byte) bool {
	return hmac.Equal(commitment, Commit(cs, searchKey, opening, marshaledValue))
}
