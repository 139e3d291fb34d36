// Package keystore interns field names to 64-bit key-ids. The mapping is
// append-only and first-writer-wins: once a key has an id, that id is never
// reused. The in-memory map is a per-collection handle (no process-global
// state, per the governing design notes); it is persisted to a bbolt bucket
// so the mapping survives restarts.
package keystore

import (
	"encoding/binary"
	"fmt"
	"sync"

	"ferret/ferrerr"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("keys")

// Store interns field names to key-ids for one collection.
type Store struct {
	mu   sync.RWMutex
	db   *bbolt.DB
	byID map[uint64]string
	ids  map[string]uint64
	next uint64
}

// Open opens (creating if absent) the bbolt-backed key store at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, ferrerr.IO(fmt.Sprintf("opening keystore %s", path), err)
	}

	s := &Store{db: db, byID: map[uint64]string{}, ids: map[string]uint64{}}
	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			id := binary.BigEndian.Uint64(v)
			name := string(k)
			s.byID[id] = name
			s.ids[name] = id
			if id >= s.next {
				s.next = id + 1
			}
			return nil
		})
	})
	if err != nil {
		return nil, ferrerr.IO("loading keystore", err)
	}
	return s, nil
}

// Intern returns the key-id for name, assigning and persisting a fresh one
// if name has never been seen.
func (s *Store) Intern(name string) (uint64, error) {
	s.mu.RLock()
	if id, ok := s.ids[name]; ok {
		s.mu.RUnlock()
		return id, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[name]; ok {
		return id, nil
	}

	id := s.next
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], id)
		return b.Put([]byte(name), buf[:])
	})
	if err != nil {
		return 0, ferrerr.IO(fmt.Sprintf("interning key %q", name), err)
	}

	s.ids[name] = id
	s.byID[id] = name
	s.next++
	return id, nil
}

// Lookup reverses Intern: the field name for a previously interned key-id.
func (s *Store) Lookup(id uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.byID[id]
	return name, ok
}

// LookupID returns name's key-id without interning it, for read-only callers
// (the evaluator) that must not mint a key-id for a field that was never
// written.
func (s *Store) LookupID(name string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[name]
	return id, ok
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return ferrerr.IO("closing keystore", err)
	}
	return nil
}
