// Package docstore maps doc-id to an ordered list of (key-id, value-id)
// pairs: the append-only doc-map file plus its parallel fixed-stride
// doc-index file (one block.Header per doc-id, giving O(1) lookup) and the
// deleted-doc-id set consulted on every read.
package docstore

import (
	"bytes"
	"fmt"
	"os"

	"ferret/block"
	"ferret/ferrerr"
	"ferret/stream"

	"github.com/RoaringBitmap/roaring/v2"
)

// Field is one (key-id, value-id) pair in a document's field order.
type Field struct {
	KeyID uint64
	Value block.Header
}

// DocMap is the ordered field list for one document.
type DocMap []Field

// Store is the doc-map stream, its doc-index, and the deleted-doc-id set.
type Store struct {
	docs      *stream.Stream
	index     *stream.Stream
	deleted   *roaring.Bitmap
	deletedAt string
}

// Open opens the doc-map stream at docsPath, the index stream at indexPath,
// and loads the deleted-doc-id set from deletedPath if present.
func Open(docsPath, indexPath, deletedPath string) (*Store, error) {
	docs, err := stream.Open(docsPath)
	if err != nil {
		return nil, err
	}
	index, err := stream.Open(indexPath)
	if err != nil {
		return nil, err
	}

	deleted := roaring.New()
	if data, statErr := os.ReadFile(deletedPath); statErr == nil {
		if _, err := deleted.ReadFrom(bytes.NewReader(data)); err != nil {
			return nil, ferrerr.IO(fmt.Sprintf("loading deleted-doc-id set %s", deletedPath), err)
		}
	} else if !os.IsNotExist(statErr) {
		return nil, ferrerr.IO(fmt.Sprintf("stat deleted-doc-id set %s", deletedPath), statErr)
	}

	return &Store{docs: docs, index: index, deleted: deleted, deletedAt: deletedPath}, nil
}

// NextDocID returns the first unassigned doc-id, derived from the index
// stream's length, so a new write session resumes numbering after every
// doc-id a prior session already committed rather than restarting at zero.
func (s *Store) NextDocID() (int64, error) {
	size, err := s.index.Size()
	if err != nil {
		return 0, err
	}
	return size / block.Size, nil
}

// Append writes doc's field list and records its (offset, length) in the
// index stream at position docID * block.Size. When compress is true the
// encoded doc-map body is snappy-compressed before being written.
func (s *Store) Append(docID int64, doc DocMap, compress bool) error {
	var buf bytes.Buffer
	if err := block.WriteVarint(&buf, uint64(len(doc))); err != nil {
		return err
	}
	for _, f := range doc {
		if err := block.WriteVarint(&buf, f.KeyID); err != nil {
			return err
		}
		if err := f.Value.Encode(&buf); err != nil {
			return err
		}
	}

	body := buf.Bytes()
	if compress {
		body = block.Compress(body)
	}

	off, err := s.docs.Append(body)
	if err != nil {
		return err
	}

	h := block.Header{Offset: off, Length: int32(len(body)), Compressed: compress}
	var hbuf bytes.Buffer
	if err := h.Encode(&hbuf); err != nil {
		return err
	}
	return s.index.WriteAt(hbuf.Bytes(), docID*block.Size)
}

// Read reconstitutes the field list for docID, O(1) via the index stream.
func (s *Store) Read(docID int64) (DocMap, error) {
	if s.deleted.Contains(uint32(docID)) {
		return nil, ferrerr.DataMisaligned(fmt.Sprintf("doc %d is deleted", docID), nil)
	}

	hbuf := make([]byte, block.Size)
	if err := s.index.ReadAt(hbuf, docID*block.Size); err != nil {
		return nil, err
	}
	h, err := block.DecodeHeader(bytes.NewReader(hbuf))
	if err != nil {
		return nil, err
	}

	body := make([]byte, h.Length)
	if err := s.docs.ReadAt(body, h.Offset); err != nil {
		return nil, err
	}
	if h.Compressed {
		decoded, err := block.Decompress(body)
		if err != nil {
			return nil, err
		}
		body = decoded
	}
	r := bytes.NewReader(body)

	count, err := block.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	doc := make(DocMap, 0, count)
	for i := uint64(0); i < count; i++ {
		keyID, err := block.ReadVarint(r)
		if err != nil {
			return nil, err
		}
		vh, err := block.DecodeHeader(r)
		if err != nil {
			return nil, err
		}
		doc = append(doc, Field{KeyID: keyID, Value: vh})
	}
	return doc, nil
}

// Delete marks docID as removed; every subsequent Read of it fails. The mark
// is held in memory until PersistDeleted writes the set to its side file.
func (s *Store) Delete(docID int64) {
	s.deleted.Add(uint32(docID))
}

// IsDeleted reports whether docID has been marked removed.
func (s *Store) IsDeleted(docID int64) bool {
	return s.deleted.Contains(uint32(docID))
}

// PersistDeleted writes the deleted-doc-id set to its side file.
func (s *Store) PersistDeleted() error {
	data, err := s.deleted.ToBytes()
	if err != nil {
		return ferrerr.IO("serializing deleted-doc-id set", err)
	}
	if err := os.WriteFile(s.deletedAt, data, 0o644); err != nil {
		return ferrerr.IO(fmt.Sprintf("writing deleted-doc-id set %s", s.deletedAt), err)
	}
	return nil
}

// Flush syncs both streams.
func (s *Store) Flush() error {
	if err := s.docs.Flush(); err != nil {
		return err
	}
	return s.index.Flush()
}

// Close closes both streams.
func (s *Store) Close() error {
	if err := s.docs.Close(); err != nil {
		return err
	}
	return s.index.Close()
}
