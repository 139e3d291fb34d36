// Package stream implements the paged append stream every on-disk store is
// built on: open a named file, append bytes and get back the offset they
// landed at, flush, and read back positionally. Concurrent appenders must be
// serialized by the caller; reads are stateless.
package stream

import (
	"fmt"
	"os"
	"sync"

	"ferret/ferrerr"
)

// Stream is a single append-only file shared by one writer and any number
// of concurrent positional readers.
type Stream struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open opens (creating if absent) the file at path for append and read.
func Open(path string) (*Stream, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, ferrerr.IO(fmt.Sprintf("opening stream %s", path), err)
	}
	return &Stream{path: path, file: f}, nil
}

// Append writes b at the current end of file and returns the offset it was
// written at.
func (s *Stream) Append(b []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	off, err := s.file.Seek(0, os.SEEK_END)
	if err != nil {
		return 0, ferrerr.IO(fmt.Sprintf("seeking stream %s", s.path), err)
	}
	if _, err := s.file.Write(b); err != nil {
		return 0, ferrerr.IO(fmt.Sprintf("appending to stream %s", s.path), err)
	}
	return off, nil
}

// WriteAt writes b at offset, used for the postings store's pointer-word
// patches and the doc-index's fixed-stride entries. Writing past the current
// end extends the file.
func (s *Stream) WriteAt(b []byte, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.WriteAt(b, offset); err != nil {
		return ferrerr.IO(fmt.Sprintf("patching stream %s at %d", s.path, offset), err)
	}
	return nil
}

// ReadAt reads len(b) bytes starting at offset.
func (s *Stream) ReadAt(b []byte, offset int64) error {
	if _, err := s.file.ReadAt(b, offset); err != nil {
		return ferrerr.IO(fmt.Sprintf("reading stream %s at %d", s.path, offset), err)
	}
	return nil
}

// Size returns the current length of the stream.
func (s *Stream) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := s.file.Stat()
	if err != nil {
		return 0, ferrerr.IO(fmt.Sprintf("stat stream %s", s.path), err)
	}
	return fi.Size(), nil
}

// Flush syncs the stream to stable storage.
func (s *Stream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Sync(); err != nil {
		return ferrerr.IO(fmt.Sprintf("flushing stream %s", s.path), err)
	}
	return nil
}

// Close closes the underlying file without syncing it (see Flush).
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Close(); err != nil {
		return ferrerr.IO(fmt.Sprintf("closing stream %s", s.path), err)
	}
	return nil
}
