// Package version implements batch/version bookkeeping: the batch-info file
// a write session commits last, and the chronological enumeration readers
// use to discover published versions. A version is published the instant
// its `<version-id>.ix` file exists; a commit that crashes before writing it
// leaves the batch invisible and its bytes dead space for compaction.
package version

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"ferret/block"
	"ferret/ferrerr"
)

// Info is the batch-info file's contents.
type Info struct {
	VersionID      int64
	DocumentCount  int64
	Compression    string // "none" or "snappy"
	PrimaryKey     string
	PostingsOffset int64
}

// Next returns a version-id guaranteed greater than any previously issued
// in dir, derived from the current time in nanoseconds and bumped past the
// latest on-disk version if the clock has not advanced.
func Next(dir string) (int64, error) {
	existing, err := List(dir)
	if err != nil {
		return 0, err
	}
	now := time.Now().UnixNano()
	if len(existing) > 0 && existing[len(existing)-1] >= now {
		return existing[len(existing)-1] + 1, nil
	}
	return now, nil
}

// Write serializes info to <dir>/<version-id>.ix — writing this file is the
// publication signal, so callers must call it last in a commit.
func Write(dir string, info Info) error {
	var buf bytes.Buffer
	if err := block.WriteVarint(&buf, uint64(info.VersionID)); err != nil {
		return err
	}
	if err := block.WriteVarint(&buf, uint64(info.DocumentCount)); err != nil {
		return err
	}
	if err := block.EncodeUTF16String(&buf, info.Compression); err != nil {
		return err
	}
	if err := block.EncodeUTF16String(&buf, info.PrimaryKey); err != nil {
		return err
	}
	if err := block.WriteVarint(&buf, uint64(info.PostingsOffset)); err != nil {
		return err
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.ix", info.VersionID))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return ferrerr.IO(fmt.Sprintf("writing batch-info %s", path), err)
	}
	return nil
}

// Read loads the batch-info file for versionID.
func Read(dir string, versionID int64) (Info, error) {
	path := filepath.Join(dir, fmt.Sprintf("%d.ix", versionID))
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, ferrerr.IO(fmt.Sprintf("reading batch-info %s", path), err)
	}
	r := bytes.NewReader(data)

	vID, err := block.ReadVarint(r)
	if err != nil {
		return Info{}, err
	}
	count, err := block.ReadVarint(r)
	if err != nil {
		return Info{}, err
	}
	compression, err := block.DecodeUTF16String(r)
	if err != nil {
		return Info{}, err
	}
	primaryKey, err := block.DecodeUTF16String(r)
	if err != nil {
		return Info{}, err
	}
	postingsOffset, err := block.ReadVarint(r)
	if err != nil {
		return Info{}, err
	}

	return Info{
		VersionID:      int64(vID),
		DocumentCount:  int64(count),
		Compression:    compression,
		PrimaryKey:     primaryKey,
		PostingsOffset: int64(postingsOffset),
	}, nil
}

// List enumerates published version-ids in dir, chronologically ascending.
// A batch whose other files exist but whose .ix is absent is skipped: it is
// not yet, or never will be, visible to readers.
func List(dir string) ([]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ferrerr.IO(fmt.Sprintf("listing collection dir %s", dir), err)
	}

	var versions []int64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".ix") {
			continue
		}
		trimmed := strings.TrimSuffix(name, ".ix")
		if strings.Contains(trimmed, ".") {
			continue // e.g. "<version>.<key-id>.ix" never matches a bare version-id
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			continue
		}
		versions = append(versions, id)
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}
