package statestore

import (
	"path/filepath"
	"time"

	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/iota-go/client/iotaerr"
)

const (
	dbFileName    = "iota-client-state.db"
	stateBucket   = "state"
	openTimeout   = 10 * time.Second
)

// KVStore is a bolt-backed Adapter built on the teacher's own lnd/kvdb
// abstraction (the same one channeldb/db.go uses for lnd's persistent
// state), kept behind this package's narrow Adapter interface so the core
// never depends on kvdb directly (spec.md §9).
type KVStore struct {
	backend kvdb.Backend
}

// OpenKVStore opens (creating if necessary) a bolt-backed state store under
// dir.
func OpenKVStore(dir string) (*KVStore, error) {
	path := filepath.Join(dir, dbFileName)
	backend, err := kvdb.Create(kvdb.BoltBackendName, path, true, openTimeout)
	if err != nil {
		return nil, iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	return &KVStore{backend: backend}, nil
}

// Close releases the underlying database handle.
func (s *KVStore) Close() error {
	return s.backend.Close()
}

// Load returns the value saved under key, if any.
func (s *KVStore) Load(key string) ([]byte, bool, error) {
	var (
		out []byte
		ok  bool
	)
	err := kvdb.View(s.backend, func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket([]byte(stateBucket))
		if bucket == nil {
			return nil
		}
		v := bucket.Get([]byte(key))
		if v == nil {
			return nil
		}
		out = make([]byte, len(v))
		copy(out, v)
		ok = true
		return nil
	}, func() {})
	if err != nil {
		return nil, false, iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	return out, ok, nil
}

// Save persists value under key, creating the backing bucket on first use.
func (s *KVStore) Save(key string, value []byte) error {
	err := kvdb.Update(s.backend, func(tx kvdb.RwTx) error {
		bucket, err := tx.CreateTopLevelBucket([]byte(stateBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	}, func() {})
	if err != nil {
		return iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	return nil
}

// Delete removes key. Deleting a key that was never saved is a no-op.
func (s *KVStore) Delete(key string) error {
	err := kvdb.Update(s.backend, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket([]byte(stateBucket))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	}, func() {})
	if err != nil {
		return iotaerr.Wrap(iotaerr.KindTransport, err)
	}
	return nil
}
