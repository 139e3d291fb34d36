// Package session implements the write session and indexing pipeline: per
// document, it assigns a doc-id, interns fields, appends values and the
// doc-map, then fans tokenized fields out to a bounded model-builder worker
// pool that inserts into per-key term trees. Flush serializes dirty trees
// and posts their postings; Commit publishes the batch.
package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ferret/analyzer"
	"ferret/bitmap"
	"ferret/block"
	"ferret/collection"
	"ferret/docstore"
	"ferret/ferrerr"
	"ferret/media"
	"ferret/stream"
	"ferret/trie"
	"ferret/valuestore"
	"ferret/vectortree"
	"ferret/version"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config bounds the session's worker pools and vector-tree thresholds.
type Config struct {
	ModelBuilderWorkers int
	ValidatorEnabled    bool
	IdenticalAngle      float64
	FoldAngle           float64

	// ValidatorSampleKeyIDs restricts the deferred validator to these
	// key-ids. Empty means validate every key.
	ValidatorSampleKeyIDs []uint64

	// CompressBodies snappy-compresses every doc-map and value body this
	// session appends. Compression is recorded per block.Header, so a
	// collection can mix compressed and uncompressed batches freely.
	CompressBodies bool
}

func (c Config) validates(keyID uint64) bool {
	if !c.ValidatorEnabled {
		return false
	}
	if len(c.ValidatorSampleKeyIDs) == 0 {
		return true
	}
	for _, id := range c.ValidatorSampleKeyIDs {
		if id == keyID {
			return true
		}
	}
	return false
}

type modelTask struct {
	docID    int64
	keyID    uint64
	analyzed analyzer.Analyzed
}

type validatorTask struct {
	keyID uint64
	docID int64
	term  string
}

// tree bundles one key's two term-tree generations plus the mutex that
// serializes inserts into it.
type tree struct {
	mu     sync.Mutex
	trie   *trie.Trie
	vector *vectortree.Tree
}

// Session is one write session against a collection.
type Session struct {
	col    *collection.Collection
	cfg    Config
	logger *zap.SugaredLogger

	nextDocID int64

	treesMu sync.Mutex
	trees   map[uint64]*tree

	tasks chan modelTask
	group *errgroup.Group

	validatorTasks chan validatorTask
	validatorGroup *errgroup.Group

	mu       sync.Mutex
	flushed  bool
	flushing bool
}

// Open acquires the collection's exclusive write lock and starts the
// model-builder worker pool.
func Open(col *collection.Collection, cfg Config, logger *zap.SugaredLogger) (*Session, error) {
	if err := col.AcquireWriteLock(); err != nil {
		return nil, err
	}

	nextDocID, err := col.Docs.NextDocID()
	if err != nil {
		_ = col.ReleaseWriteLock()
		return nil, err
	}

	s := &Session{
		col:       col,
		cfg:       cfg,
		logger:    logger,
		trees:     map[uint64]*tree{},
		tasks:     make(chan modelTask, cfg.ModelBuilderWorkers*4),
		nextDocID: nextDocID,
	}

	g, ctx := errgroup.WithContext(context.Background())
	s.group = g
	for i := 0; i < cfg.ModelBuilderWorkers; i++ {
		g.Go(func() error { return s.modelBuilderWorker(ctx) })
	}

	if cfg.ValidatorEnabled {
		s.validatorTasks = make(chan validatorTask, cfg.ModelBuilderWorkers*4)
		vg, vctx := errgroup.WithContext(context.Background())
		s.validatorGroup = vg
		vg.Go(func() error { return s.validatorWorker(vctx) })
	}

	return s, nil
}

func (s *Session) treeFor(keyID uint64) *tree {
	s.treesMu.Lock()
	defer s.treesMu.Unlock()
	t, ok := s.trees[keyID]
	if !ok {
		t = &tree{trie: trie.New(), vector: vectortree.New(s.cfg.IdenticalAngle, s.cfg.FoldAngle)}
		s.trees[keyID] = t
	}
	return t
}

func (s *Session) modelBuilderWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-s.tasks:
			if !ok {
				return nil
			}
			if err := s.indexTask(task); err != nil {
				return err
			}
		}
	}
}

func (s *Session) indexTask(task modelTask) error {
	tr := s.treeFor(task.keyID)
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for i, span := range task.analyzed.Spans {
		term := task.analyzed.TokenString(span)
		tr.trie.Insert(term, uint32(task.docID))
		tr.vector.Insert(task.analyzed.Embeddings[i], uint32(task.docID))

		if s.cfg.validates(task.keyID) {
			s.validatorTasks <- validatorTask{keyID: task.keyID, docID: task.docID, term: term}
		}
	}
	return nil
}

func (s *Session) validatorWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-s.validatorTasks:
			if !ok {
				return nil
			}
			tr := s.treeFor(task.keyID)
			tr.mu.Lock()
			found := tr.trie.Has(task.term)
			tr.mu.Unlock()
			if !found {
				return ferrerr.DataMisaligned(fmt.Sprintf("validator miss: key %d doc %d term %q unreachable after insert", task.keyID, task.docID, task.term), nil)
			}
		}
	}
}

// Ingest indexes one record: assigns a doc-id, interns keys, appends values
// and the doc-map, then submits each analyzed field to the model-builder
// queue. `__docid`, if present upstream, is preserved as `_original`; the
// engine always assigns its own `__docid`/doc-id.
func (s *Session) Ingest(rec media.Record) (int64, error) {
	docID := s.nextDocID
	s.nextDocID++

	var doc docstore.DocMap
	for _, f := range rec {
		if len(f.Key) >= 2 && f.Key[:2] == "__" {
			if f.Key == "__docid" {
				if err := s.appendField(&doc, "_original", f.Value); err != nil {
					return 0, err
				}
			}
			continue
		}

		keyID, err := s.col.Keys.Intern(f.Key)
		if err != nil {
			return 0, err
		}
		val, valType, err := toValue(f.Value)
		if err != nil {
			return 0, err
		}
		h, err := s.col.Values.Append(valuestore.Value{Type: valType, Int64: val.Int64, Float64: val.Float64, String: val.String, Timestamp: val.Timestamp}, s.cfg.CompressBodies)
		if err != nil {
			return 0, err
		}
		doc = append(doc, docstore.Field{KeyID: keyID, Value: h})

		single := len(f.Key) > 0 && f.Key[0] == '_'
		analyzed := analyzer.Analyze(stringOf(f.Value), single)
		s.tasks <- modelTask{docID: docID, keyID: keyID, analyzed: analyzed}
	}

	if err := s.appendField(&doc, "_created", time.Now()); err != nil {
		return 0, err
	}

	if err := s.col.Docs.Append(docID, doc, s.cfg.CompressBodies); err != nil {
		return 0, err
	}
	return docID, nil
}

func (s *Session) appendField(doc *docstore.DocMap, key string, value any) error {
	keyID, err := s.col.Keys.Intern(key)
	if err != nil {
		return err
	}
	val, valType, err := toValue(value)
	if err != nil {
		return err
	}
	h, err := s.col.Values.Append(valuestore.Value{Type: valType, Int64: val.Int64, Float64: val.Float64, String: val.String, Timestamp: val.Timestamp}, s.cfg.CompressBodies)
	if err != nil {
		return err
	}
	*doc = append(*doc, docstore.Field{KeyID: keyID, Value: h})
	return nil
}

func toValue(v any) (valuestore.Value, block.TypeTag, error) {
	switch x := v.(type) {
	case string:
		return valuestore.Value{String: x}, block.TypeString, nil
	case float64:
		return valuestore.Value{Float64: x}, block.TypeFloat64, nil
	case int64:
		return valuestore.Value{Int64: x}, block.TypeInt64, nil
	case int:
		return valuestore.Value{Int64: int64(x)}, block.TypeInt64, nil
	case time.Time:
		return valuestore.Value{Timestamp: x}, block.TypeTimestamp, nil
	default:
		return valuestore.Value{}, 0, ferrerr.DataMisaligned(fmt.Sprintf("unsupported field value type %T", v), nil)
	}
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Flush joins the model-builder queue, optionally runs the validator queue
// to completion, serializes every dirty tree in parallel, posts each
// term's/vector's postings and records the returned addresses. dir is the
// collection's directory; per-key trie/vector-tree files are named
// <version-id>.<key-id>.{tri,vec,ix1} beneath it. Flush is idempotent and
// refuses to run concurrently with itself.
func (s *Session) Flush(dir string, versionID int64) error {
	s.mu.Lock()
	if s.flushed {
		s.mu.Unlock()
		return nil
	}
	if s.flushing {
		s.mu.Unlock()
		return ferrerr.DataMisaligned("Flush called concurrently with itself", nil)
	}
	s.flushing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.flushing = false
		s.mu.Unlock()
	}()

	close(s.tasks)
	if err := s.group.Wait(); err != nil {
		return err
	}

	if s.cfg.ValidatorEnabled {
		close(s.validatorTasks)
		if err := s.validatorGroup.Wait(); err != nil {
			return err
		}
	}

	s.treesMu.Lock()
	keyIDs := make([]uint64, 0, len(s.trees))
	for id := range s.trees {
		keyIDs = append(keyIDs, id)
	}
	s.treesMu.Unlock()

	g := new(errgroup.Group)
	for _, keyID := range keyIDs {
		keyID := keyID
		g.Go(func() error { return s.flushTree(dir, versionID, keyID) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	s.flushed = true
	s.mu.Unlock()
	return nil
}

// flushTree posts the postings for one key's trie and vector tree, then
// serializes both to their per-version files.
func (s *Session) flushTree(dir string, versionID int64, keyID uint64) error {
	s.treesMu.Lock()
	t := s.trees[keyID]
	s.treesMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	var walkErr error
	t.trie.Walk(func(docs *bitmap.RoaringBitmap, setPostings func(block.Header)) {
		if walkErr != nil || docs == nil {
			return
		}
		ids := docIDs(docs)
		off, err := s.col.Pos.WriteNewList(ids)
		if err != nil {
			walkErr = err
			return
		}
		setPostings(block.Header{Offset: off, Length: int32(len(ids))})
	})
	if walkErr != nil {
		return walkErr
	}

	t.vector.Walk(func(docs *bitmap.RoaringBitmap, setPostings func(block.Header)) {
		if walkErr != nil || docs == nil {
			return
		}
		ids := docIDs(docs)
		off, err := s.col.Pos.WriteNewList(ids)
		if err != nil {
			walkErr = err
			return
		}
		setPostings(block.Header{Offset: off, Length: int32(len(ids))})
	})
	if walkErr != nil {
		return walkErr
	}

	var trieBuf bytes.Buffer
	if err := t.trie.Serialize(&trieBuf); err != nil {
		return err
	}
	triePath := filepath.Join(dir, fmt.Sprintf("%d.%d.tri", versionID, keyID))
	if err := os.WriteFile(triePath, trieBuf.Bytes(), 0o644); err != nil {
		return ferrerr.IO("writing trie file", err)
	}

	vecPath := filepath.Join(dir, fmt.Sprintf("%d.%d.vec", versionID, keyID))
	vecStream, err := stream.Open(vecPath)
	if err != nil {
		return err
	}
	defer vecStream.Close()

	var treeBuf bytes.Buffer
	if err := t.vector.Serialize(&treeBuf, vecStream); err != nil {
		return err
	}
	ix1Path := filepath.Join(dir, fmt.Sprintf("%d.%d.ix1", versionID, keyID))
	if err := os.WriteFile(ix1Path, treeBuf.Bytes(), 0o644); err != nil {
		return ferrerr.IO("writing vector tree file", err)
	}
	return vecStream.Flush()
}

func docIDs(docs *bitmap.RoaringBitmap) []uint64 {
	it := docs.Iterator()
	var ids []uint64
	for {
		more, err := it.Next()
		if err != nil || !more {
			break
		}
		id, err := it.DocID()
		if err != nil {
			break
		}
		ids = append(ids, uint64(id))
	}
	return ids
}

// Commit writes the batch-info file for versionID last; its presence is the
// publication signal readers use to include the batch. Compression records
// whether this batch's doc-map and value bodies were snappy-compressed, so
// a reader doesn't need it to decode them (block.Header.Compressed already
// carries that per entry) but can report it back via stats.
func (s *Session) Commit(dir string, versionID int64, docCount int64, primaryKey string) error {
	compression := "none"
	if s.cfg.CompressBodies {
		compression = "snappy"
	}
	return version.Write(dir, version.Info{
		VersionID:     versionID,
		DocumentCount: docCount,
		Compression:   compression,
		PrimaryKey:    primaryKey,
	})
}

// Close releases the write lock.
func (s *Session) Close() error {
	return s.col.ReleaseWriteLock()
}
