// Package collection wires together the on-disk stores (keystore,
// valuestore, docstore, postings) for one named collection, rooted at the
// configured data directory, and owns the exclusive write lock a write
// session must hold.
package collection

import (
	"fmt"
	"os"
	"path/filepath"

	"ferret/docstore"
	"ferret/ferrerr"
	"ferret/keystore"
	"ferret/postings"
	"ferret/valuestore"

	"github.com/cespare/xxhash/v2"
)

// ID derives a collection's 64-bit id from its name.
func ID(name string) uint64 {
	return xxhash.Sum64String(name)
}

// Collection is one collection's opened stores.
type Collection struct {
	Name  string
	ID    uint64
	Dir   string
	Keys  *keystore.Store
	Values *valuestore.Store
	Docs  *docstore.Store
	Pos   *postings.Store

	lock *fileLock
}

// Open opens every store belonging to name under dataDir, creating files on
// first use. PostingsCacheSize bounds the postings read cache.
func Open(dataDir, name string, postingsCacheSize int) (*Collection, error) {
	id := ID(name)
	prefix := filepath.Join(dataDir, fmt.Sprintf("%d", id))

	keys, err := keystore.Open(prefix + ".key.db")
	if err != nil {
		return nil, err
	}
	values, err := valuestore.Open(prefix + ".val")
	if err != nil {
		return nil, err
	}
	docs, err := docstore.Open(prefix+".docs", prefix+".dix", prefix+".del")
	if err != nil {
		return nil, err
	}
	pos, err := postings.Open(prefix+".pos", id, postingsCacheSize)
	if err != nil {
		return nil, err
	}

	versionDir := filepath.Join(dataDir, fmt.Sprintf("%d", id))
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return nil, ferrerr.IO(fmt.Sprintf("creating version directory %s", versionDir), err)
	}

	return &Collection{
		Name:   name,
		ID:     id,
		Dir:    dataDir,
		Keys:   keys,
		Values: values,
		Docs:   docs,
		Pos:    pos,
	}, nil
}

// Prefix returns the collection-id-prefixed path stem all of its flat store
// files (key.db, val, docs, dix, del, pos) share.
func (c *Collection) Prefix() string {
	return filepath.Join(c.Dir, fmt.Sprintf("%d", c.ID))
}

// VersionDir returns the collection's dedicated subdirectory for batch-info
// files (`<version-id>.ix`) and per-key trie/vector-tree files
// (`<version-id>.<key-id>.{tri,vec,ix1}`), distinct from Prefix's flat
// store-file stem.
func (c *Collection) VersionDir() string {
	return filepath.Join(c.Dir, fmt.Sprintf("%d", c.ID))
}

// AcquireWriteLock takes the collection's exclusive lock file for the
// duration of a write session, failing immediately with ConflictingWrite if
// another writer already holds it.
func (c *Collection) AcquireWriteLock() error {
	lock, err := acquireLock(c.Prefix() + ".lock")
	if err != nil {
		return err
	}
	c.lock = lock
	return nil
}

// ReleaseWriteLock releases a previously acquired write lock.
func (c *Collection) ReleaseWriteLock() error {
	if c.lock == nil {
		return nil
	}
	err := c.lock.release()
	c.lock = nil
	return err
}

// Close closes every opened store.
func (c *Collection) Close() error {
	_ = c.ReleaseWriteLock()
	if err := c.Keys.Close(); err != nil {
		return err
	}
	if err := c.Values.Close(); err != nil {
		return err
	}
	if err := c.Docs.Close(); err != nil {
		return err
	}
	return c.Pos.Close()
}
