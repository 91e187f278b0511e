package keytrans

import (
	"bytes"
	"encoding/binary"
	"errors"

	logtree "github.com/Bren2010/ktverify/tree/log"
)

// ciphersuite is the literal constant embedded in every tree-head
// to-be-signed byte string. It identifies the wire format of the TBS
// layout itself, and is unrelated to (and must not be confused with) a
// suites.CipherSuite's Id(), which only selects local key parsing.
const ciphersuite uint16 = 0x0000

// Clock windows servers and auditors are allowed to drift from a
// verifier's local time, in milliseconds, and the number of entries an
// auditor's tree may lag behind the log's.
const (
	serverMaxBehindMillis  = int64(24 * 60 * 60 * 1000)
	serverMaxAheadMillis   = int64(10 * 1000)
	auditorMaxBehindMillis = int64(7 * 24 * 60 * 60 * 1000)
	auditorMaxAheadMillis  = int64(10 * 1000)
	maxAuditorLag          = uint64(10_000_000)
)

func writeU16Bytes(buf *bytes.Buffer, b []byte) error {
	if len(b) > 0xffff {
		return errors.New("value is too long to marshal with a u16 length prefix")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(b))); err != nil {
		return err
	}
	_, err := buf.Write(b)
	return err
}

// marshalTreeHeadTBS encodes the exact byte layout a log operator or
// auditor signs over: ciphersuite, deployment mode, signature and VRF
// public keys, an optional auxiliary key, then the tree size, timestamp,
// and root being attested to.
func marshalTreeHeadTBS(cfg *PublicConfig, auxKey []byte, treeSize uint64, timestamp int64, root []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.BigEndian, ciphersuite); err != nil {
		return nil, err
	}
	if err := buf.WriteByte(byte(cfg.Mode.Kind)); err != nil {
		return nil, err
	}
	if err := writeU16Bytes(buf, cfg.SignatureKeyBytes); err != nil {
		return nil, err
	}
	if err := writeU16Bytes(buf, cfg.VrfKeyBytes); err != nil {
		return nil, err
	}
	if cfg.Mode.HasAssociatedKey() {
		if err := writeU16Bytes(buf, auxKey); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(buf, binary.BigEndian, treeSize); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, timestamp); err != nil {
		return nil, err
	}
	if len(root) != 32 {
		return nil, errors.New("root must be 32 bytes")
	}
	buf.Write(root)
	return buf.Bytes(), nil
}

// selectTreeHeadSignature picks the signature in sigs matching cfg's
// deployment mode: the one whose AuditorPublicKey equals the mode's
// configured auxiliary key (nil for ContactMonitoring).
func selectTreeHeadSignature(cfg *PublicConfig, sigs []TreeHeadSignature) (*TreeHeadSignature, error) {
	var want []byte
	if cfg.Mode.HasAssociatedKey() {
		want = cfg.Mode.Key
	}
	for i := range sigs {
		if bytes.Equal(sigs[i].AuditorPublicKey, want) {
			return &sigs[i], nil
		}
	}
	return nil, errMissing("tree head signature for configured deployment mode")
}

func verifyTimestamp(ts, maxBehind, maxAhead, now int64) error {
	if ts < now-maxBehind {
		return errBadData("timestamp is too far in the past")
	}
	if ts > now+maxAhead {
		return errBadData("timestamp is too far in the future")
	}
	return nil
}

// verifyTreeHeadSignature checks the log operator's signature over head,
// given the log root at head.TreeSize.
func verifyTreeHeadSignature(cfg *PublicConfig, head TreeHead, root []byte) error {
	sig, err := selectTreeHeadSignature(cfg, head.Signatures)
	if err != nil {
		return err
	}
	var auxKey []byte
	if cfg.Mode.HasAssociatedKey() {
		auxKey = cfg.Mode.Key
	}
	tbs, err := marshalTreeHeadTBS(cfg, auxKey, head.TreeSize, head.Timestamp, root)
	if err != nil {
		return errBadData(err.Error())
	}
	if !cfg.SignatureKey.Verify(tbs, sig.Signature) {
		return errVerification("tree head signature is invalid")
	}
	return nil
}

// verifyAuditorTreeHead checks one auditor's cosignature and its
// consistency with the log operator's tree, per the cross-check rules: an
// auditor may lag behind the log by at most maxAuditorLag entries, and
// must supply a root value and consistency proof unless its tree size
// exactly matches the log's (in which case both must be absent, since the
// root is then provably identical).
func verifyAuditorTreeHead(cfg *PublicConfig, ath AuditorTreeHead, serverTreeSize uint64, serverRoot []byte, now int64) error {
	if ath.TreeSize > serverTreeSize {
		return errVerification("auditor tree size is greater than the log's tree size")
	}
	if serverTreeSize-ath.TreeSize > maxAuditorLag {
		return errVerification("auditor has fallen too far behind the log")
	}
	if err := verifyTimestamp(ath.Timestamp, auditorMaxBehindMillis, auditorMaxAheadMillis, now); err != nil {
		return err
	}

	var root []byte
	if ath.TreeSize == serverTreeSize {
		if ath.RootValue != nil {
			return errBadData("auditor supplied a root value despite matching the log's tree size")
		}
		if len(ath.Consistency) != 0 {
			return errBadData("auditor supplied a consistency proof despite matching the log's tree size")
		}
		root = serverRoot
	} else {
		if ath.RootValue == nil {
			return errMissing("auditor root value")
		}
		if err := logtree.VerifyConsistencyProof(cfg.Suite, ath.TreeSize, serverTreeSize, ath.RootValue, serverRoot, ath.Consistency); err != nil {
			return errVerification("auditor tree is not consistent with the log: " + err.Error())
		}
		root = ath.RootValue
	}

	auditorKey, err := cfg.Suite.ParseSigningPublicKey(ath.PublicKey)
	if err != nil {
		return errBadData("malformed auditor public key: " + err.Error())
	}
	tbs, err := marshalTreeHeadTBS(cfg, ath.PublicKey, ath.TreeSize, ath.Timestamp, root)
	if err != nil {
		return errBadData(err.Error())
	}
	if !auditorKey.Verify(tbs, ath.Signature) {
		return errVerification("auditor signature is invalid")
	}
	return nil
}

// checkConsistencyMetadata verifies that the current tree head is
// consistent with a previously pinned baseline, per the consistency
// gating rules: an absent baseline requires an empty proof (nothing to
// check yet); equal tree sizes require matching roots, matching
// timestamps, and an empty proof; a larger current tree requires a
// timestamp at least as recent as the baseline's and a valid consistency
// proof; a baseline larger than the current tree is always an error.
func checkConsistencyMetadata(cfg *PublicConfig, baseline *LastTreeHead, current TreeHead, currentRoot []byte, proof [][]byte) error {
	if baseline == nil {
		if len(proof) != 0 {
			return errBadData("consistency proof supplied with no baseline to check against")
		}
		return nil
	}
	if baseline.TreeHead.TreeSize > current.TreeSize {
		return errVerification("tree size has shrunk since the last observed tree head")
	}
	if baseline.TreeHead.TreeSize == current.TreeSize {
		if len(proof) != 0 {
			return errBadData("consistency proof supplied despite an unchanged tree size")
		}
		if !bytes.Equal(baseline.TreeRoot[:], currentRoot) {
			return errVerification("tree root changed without a change in tree size")
		}
		if baseline.TreeHead.Timestamp != current.Timestamp {
			return errVerification("tree head timestamp changed without a change in tree size")
		}
		return nil
	}
	if current.Timestamp < baseline.TreeHead.Timestamp {
		return errVerification("tree head timestamp moved backwards")
	}
	return logtree.VerifyConsistencyProof(
		cfg.Suite, baseline.TreeHead.TreeSize, current.TreeSize,
		baseline.TreeRoot[:], currentRoot, proof,
	)
}

// verifyFullTreeHead runs the complete tree-head check (Component G): the
// operator's signature, the timestamp window, consistency against the
// client's last and last-distinguished pins, and, in ThirdPartyAuditing
// mode, the tree head of the configured auditor.
func verifyFullTreeHead(
	cfg *PublicConfig,
	fth FullTreeHead,
	root []byte,
	last *LastTreeHead,
	lastDistinguished *LastTreeHead,
	now int64,
) error {
	if err := verifyTreeHeadSignature(cfg, fth.TreeHead, root); err != nil {
		return err
	}
	if err := verifyTimestamp(fth.TreeHead.Timestamp, serverMaxBehindMillis, serverMaxAheadMillis, now); err != nil {
		return err
	}
	if err := checkConsistencyMetadata(cfg, last, fth.TreeHead, root, fth.Last); err != nil {
		return err
	}
	if err := checkConsistencyMetadata(cfg, lastDistinguished, fth.TreeHead, root, fth.Distinguished); err != nil {
		return err
	}
	if cfg.Mode.Kind == ThirdPartyAuditing {
		found := false
		for _, ath := range fth.FullAuditorTreeHeads {
			if bytes.Equal(ath.PublicKey, cfg.Mode.Key) {
				found = true
				if err := verifyAuditorTreeHead(cfg, ath, fth.TreeHead.TreeSize, root, now); err != nil {
					return err
				}
			}
		}
		if !found {
			return errMissing("cosignature from the configured auditor")
		}
	}
	return nil
}
