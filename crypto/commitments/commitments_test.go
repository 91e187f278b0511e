package commitments

import (
	"bytes"
	"testing"

	"github.com/Bren2010/ktverify/crypto/suites"
)

func TestCommitVerify(t *testing.T) {
	cs := suites.KTSha256Ristretto255Ed25519{}

	opening := GenerateOpening(cs)
	if len(opening) != cs.CommitmentOpeningSize() {
		t.Fatalf("opening is %d bytes, want %d", len(opening), cs.CommitmentOpeningSize())
	}

	searchKey := []byte("a90c979fd-eab4-4a08-b6da-69dedeab9b29")
	value, err := MarshalUpdateValue([]byte("the update value a search leaf hides"))
	if err != nil {
		t.Fatalf("MarshalUpdateValue: %v", err)
	}
	c := Commit(cs, searchKey, opening, value)

	if !Verify(cs, searchKey, opening, value, c) {
		t.Fatal("Verify rejected a valid opening")
	}
}

func TestMarshalUpdateValue(t *testing.T) {
	got, err := MarshalUpdateValue([]byte("abc"))
	if err != nil {
		t.Fatalf("MarshalUpdateValue: %v", err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x03, 'a', 'b', 'c'}
	if !bytes.Equal(got, want) {
		t.Fatalf("MarshalUpdateValue = %x, want %x", got, want)
	}
}

func TestVerifyRejectsTamperedCommitment(t *testing.T) {
	cs := suites.KTSha256Ristretto255Ed25519{}
	opening := GenerateOpening(cs)
	searchKey := []byte("key")
	value, _ := MarshalUpdateValue([]byte("value"))
	c := Commit(cs, searchKey, opening, value)

	tampered := append([]byte{}, c...)
	tampered[0] ^= 0x01
	if Verify(cs, searchKey, opening, value, tampered) {
		t.Fatal("Verify accepted a tampered commitment")
	}
}

func TestVerifyRejectsWrongSearchKey(t *testing.T) {
	cs := suites.KTSha256Ristretto255Ed25519{}
	opening := GenerateOpening(cs)
	value, _ := MarshalUpdateValue([]byte("value"))
	c := Commit(cs, []byte("key"), opening, value)

	if Verify(cs, []byte("other key"), opening, value, c) {
		t.Fatal("Verify accepted the wrong search key")
	}
}

func TestVerifyRejectsWrongValue(t *testing.T) {
	cs := suites.KTSha256Ristretto255Ed25519{}
	opening := GenerateOpening(cs)
	searchKey := []byte("key")
	value, _ := MarshalUpdateValue([]byte("value"))
	c := Commit(cs, searchKey, opening, value)

	other, _ := MarshalUpdateValue([]byte("other value"))
	if Verify(cs, searchKey, opening, other, c) {
		t.Fatal("Verify accepted the wrong value")
	}
}

func TestVerifyRejectsWrongOpening(t *testing.T) {
	cs := suites.KTSha256Ristretto255Ed25519{}
	opening := GenerateOpening(cs)
	searchKey := []byte("key")
	value, _ := MarshalUpdateValue([]byte("value"))
	c := Commit(cs, searchKey, opening, value)

	other := GenerateOpening(cs)
	if bytes.Equal(opening, other) {
		t.Fatal("two random openings collided")
	}
	if Verify(cs, searchKey, other, value, c) {
		t.Fatal("Verify accepted the wrong opening")
	}
}
