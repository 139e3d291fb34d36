// Package postings implements the paged, append-only, singly-linked
// doc-id lists described by the engine's postings store: per-term pages
// with head/tail pointer maintenance, a bounded read cache, and the
// boolean (AND/OR/NOT) reduction used to compose multi-term queries.
//
// This is the engine's own persistence format — distinct from the
// roaring-bitmap segment format bitmap/ is grounded on — chosen because the
// spec's postings contract is explicitly a linked page list, not a
// compressed bitmap.
package postings

import (
	"encoding/binary"
	"fmt"
	"sort"

	"ferret/ferrerr"
	"ferret/stream"

	lru "github.com/hashicorp/golang-lru/v2"
)

// pageHeaderSize is the fixed (count, next, last) triple every page starts
// with; last is only meaningful on the head page of a list.
const pageHeaderSize = 24

// cacheKey identifies a resolved list in the read cache.
type cacheKey struct {
	Collection uint64
	HeadOffset int64
}

// Store is the postings file for one collection, plus its resolved-list
// read cache.
type Store struct {
	collection uint64
	s          *stream.Stream
	cache      *lru.Cache[cacheKey, []uint64]
}

// Open opens the postings stream at path with a bounded resolved-list cache
// of the given size.
func Open(path string, collection uint64, cacheSize int) (*Store, error) {
	s, err := stream.Open(path)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[cacheKey, []uint64](cacheSize)
	if err != nil {
		return nil, ferrerr.IO("creating postings cache", err)
	}
	return &Store{collection: collection, s: s, cache: cache}, nil
}

// WriteNewList appends a brand new list containing ids and returns its head
// offset.
func (st *Store) WriteNewList(ids []uint64) (int64, error) {
	off, err := st.s.Append(encodePage(ids, -1, -1))
	if err != nil {
		return 0, err
	}
	// the head page is its own tail until a second page is appended; patch
	// the `last` field now that the head's own offset is known.
	if err := st.patchInt64(off+16, off); err != nil {
		return 0, err
	}
	return off, nil
}

// Append adds ids to the existing list headed at offset, per the
// new-page-then-patch-two-pointers write path. The returned offset is
// unchanged (the head never moves).
func (st *Store) Append(offset int64, ids []uint64) (int64, error) {
	tailOff, err := st.readInt64(offset + 16)
	if err != nil {
		return 0, err
	}

	newOff, err := st.s.Append(encodePage(ids, -1, -1))
	if err != nil {
		return 0, err
	}

	st.cache.Remove(cacheKey{Collection: st.collection, HeadOffset: offset})
	if err := st.patchInt64(tailOff+8, newOff); err != nil {
		return 0, err
	}
	if err := st.patchInt64(offset+16, newOff); err != nil {
		return 0, err
	}
	return offset, nil
}

func encodePage(ids []uint64, next, last int64) []byte {
	buf := make([]byte, pageHeaderSize+8*len(ids))
	binary.BigEndian.PutUint64(buf[0:8], uint64(len(ids)))
	binary.BigEndian.PutUint64(buf[8:16], uint64(next))
	binary.BigEndian.PutUint64(buf[16:24], uint64(last))
	for i, id := range ids {
		binary.BigEndian.PutUint64(buf[pageHeaderSize+8*i:], id)
	}
	return buf
}

func (st *Store) readInt64(offset int64) (int64, error) {
	buf := make([]byte, 8)
	if err := st.s.ReadAt(buf, offset); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf)), nil
}

func (st *Store) patchInt64(offset, value int64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(value))
	return st.s.WriteAt(buf, offset)
}

// Read resolves the full list headed at offset, following the page chain; a
// doc-id that appears twice fails the read with DataMisaligned. A cache hit
// skips the disk entirely.
func (st *Store) Read(offset int64) ([]uint64, error) {
	key := cacheKey{Collection: st.collection, HeadOffset: offset}
	if cached, ok := st.cache.Get(key); ok {
		return cached, nil
	}

	seen := map[uint64]struct{}{}
	var ids []uint64

	cur := offset
	for cur != -1 {
		header := make([]byte, pageHeaderSize)
		if err := st.s.ReadAt(header, cur); err != nil {
			return nil, err
		}
		count := binary.BigEndian.Uint64(header[0:8])
		next := int64(binary.BigEndian.Uint64(header[8:16]))

		body := make([]byte, 8*count)
		if err := st.s.ReadAt(body, cur+pageHeaderSize); err != nil {
			return nil, err
		}
		for i := uint64(0); i < count; i++ {
			id := binary.BigEndian.Uint64(body[8*i:])
			if _, dup := seen[id]; dup {
				return nil, ferrerr.DataMisaligned(fmt.Sprintf("duplicate doc-id %d in posting list at %d", id, offset), nil)
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		cur = next
	}

	st.cache.Add(key, ids)
	return ids, nil
}

// Flush syncs the underlying stream.
func (st *Store) Flush() error { return st.s.Flush() }

// Close closes the underlying stream.
func (st *Store) Close() error { return st.s.Close() }

// Op is a boolean composition operator for Reduce.
type Op uint8

const (
	OpAND Op = iota
	OpOR
	OpNOT
)

// Cursor names one list to fold into Reduce's accumulator, plus the score
// every doc-id in that list contributes (e.g. a term's idf weight).
type Cursor struct {
	HeadOffset int64
	Op         Op
	Score      float64
}

// ScoredDoc is one (doc-id, score) pair in Reduce's output.
type ScoredDoc struct {
	DocID uint64
	Score float64
}

// Reduce resolves every cursor's list and folds them left to right into a
// single scored accumulator: AND intersects and sums scores, OR unions and
// sums scores where present in both, NOT removes. The result is sorted
// descending by score with a stable ascending doc-id as tie-break.
func (st *Store) Reduce(cursors []Cursor) ([]ScoredDoc, error) {
	if len(cursors) == 0 {
		return nil, nil
	}

	acc := map[uint64]float64{}
	for i, c := range cursors {
		ids, err := st.Read(c.HeadOffset)
		if err != nil {
			return nil, err
		}
		list := map[uint64]float64{}
		for _, id := range ids {
			list[id] = c.Score
		}

		if i == 0 {
			for id, s := range list {
				acc[id] = s
			}
			continue
		}

		switch c.Op {
		case OpAND:
			for id := range acc {
				if s, ok := list[id]; ok {
					acc[id] += s
				} else {
					delete(acc, id)
				}
			}
		case OpOR:
			for id, s := range list {
				if _, ok := acc[id]; ok {
					acc[id] += s
				} else {
					acc[id] = s
				}
			}
		case OpNOT:
			for id := range list {
				delete(acc, id)
			}
		}
	}

	out := make([]ScoredDoc, 0, len(acc))
	for id, score := range acc {
		out = append(out, ScoredDoc{DocID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	return out, nil
}
