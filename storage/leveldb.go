// Package storage persists the client-side state a Key Transparency
// verifier needs between runs: each monitored account's last-known tree
// head and monitoring data, and the log's last-known distinguished tree
// head. The protocol itself has no notion of storage, by design (see
// keytrans); this package is a demonstration of one reasonable way a
// caller might keep that state durable.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/Bren2010/ktverify/keytrans"
)

const distinguishedKey = "distinguished"

// Store persists verifier state for a single deployment configuration in
// a LevelDB database on disk.
type Store struct {
	conn *leveldb.DB
}

// Open opens (or creates) a LevelDB database at file.
func Open(file string) (*Store, error) {
	conn, err := leveldb.OpenFile(file, nil)
	if ldberrors.IsCorrupted(err) {
		conn, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &Store{conn}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.conn.Close()
}

type accountRecord struct {
	Account        keytrans.AccountData
	MonitoringKeys []string
	MonitoringData []*keytrans.MonitoringData
}

// PutAccount persists an account's data and the monitoring data for each
// of its search keys, keyed by searchKeys[i] <-> data[i].
func (s *Store) PutAccount(account keytrans.AccountData, searchKeys []string, data []*keytrans.MonitoringData) error {
	if len(searchKeys) != len(data) {
		return fmt.Errorf("number of search keys does not match number of monitoring data entries")
	}
	raw, err := json.Marshal(accountRecord{account, searchKeys, data})
	if err != nil {
		return err
	}
	return s.conn.Put(accountKey(account.ACI), raw, nil)
}

// GetAccount returns a previously persisted account's data, its monitored
// search keys, and the monitoring data for each, in the order PutAccount
// stored them. Returns (nil, nil, nil, nil) if no record is found.
func (s *Store) GetAccount(aci []byte) (*keytrans.AccountData, []string, []*keytrans.MonitoringData, error) {
	raw, err := s.conn.Get(accountKey(aci), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil, nil, nil
	} else if err != nil {
		return nil, nil, nil, err
	}
	var rec accountRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil, nil, err
	}
	return &rec.Account, rec.MonitoringKeys, rec.MonitoringData, nil
}

// PutDistinguished persists the most recently verified distinguished tree
// head.
func (s *Store) PutDistinguished(head *keytrans.LastTreeHead) error {
	raw, err := json.Marshal(head)
	if err != nil {
		return err
	}
	return s.conn.Put([]byte(distinguishedKey), raw, nil)
}

// GetDistinguished returns the most recently persisted distinguished tree
// head, or nil if none has been recorded yet.
func (s *Store) GetDistinguished() (*keytrans.LastTreeHead, error) {
	raw, err := s.conn.Get([]byte(distinguishedKey), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var head keytrans.LastTreeHead
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	return &head, nil
}

func accountKey(aci []byte) []byte {
	return append([]byte("a"), aci...)
}
