package session

import (
	"testing"

	"ferret/collection"
	"ferret/media"
	"ferret/version"

	"github.com/stretchr/testify/require"
)

func openTestCollection(t *testing.T) *collection.Collection {
	t.Helper()
	dir := t.TempDir()
	col, err := collection.Open(dir, "movies", 64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = col.Close() })
	return col
}

func testConfig() Config {
	return Config{
		ModelBuilderWorkers: 2,
		IdenticalAngle:      0.999,
		FoldAngle:           0.8,
	}
}

func TestIngestFlushCommitRoundTrip(t *testing.T) {
	col := openTestCollection(t)

	sess, err := Open(col, testConfig(), nil)
	require.NoError(t, err)

	docID, err := sess.Ingest(media.Record{
		{Key: "title", Value: "first blood"},
		{Key: "year", Value: float64(1982)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), docID)

	docID2, err := sess.Ingest(media.Record{
		{Key: "title", Value: "rocky balboa"},
		{Key: "year", Value: float64(2006)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), docID2)

	colDir := col.VersionDir()
	require.NoError(t, sess.Flush(colDir, 1))
	// Flush is idempotent.
	require.NoError(t, sess.Flush(colDir, 1))

	require.NoError(t, sess.Commit(colDir, 1, 2, "title"))
	require.NoError(t, sess.Close())

	doc, err := col.Docs.Read(0)
	require.NoError(t, err)
	require.Len(t, doc, 3) // title, year, _created

	keyID, err := col.Keys.Intern("title")
	require.NoError(t, err)
	found := false
	for _, f := range doc {
		if f.KeyID == keyID {
			found = true
			val, err := col.Values.Read(f.Value)
			require.NoError(t, err)
			require.Equal(t, "first blood", val.String)
		}
	}
	require.True(t, found)
}

func TestIngestPreservesOriginalDocID(t *testing.T) {
	col := openTestCollection(t)
	sess, err := Open(col, testConfig(), nil)
	require.NoError(t, err)

	_, err = sess.Ingest(media.Record{
		{Key: "__docid", Value: "imdb-tt0083944"},
		{Key: "title", Value: "first blood"},
	})
	require.NoError(t, err)

	require.NoError(t, sess.Flush(col.VersionDir(), 1))
	require.NoError(t, sess.Close())

	doc, err := col.Docs.Read(0)
	require.NoError(t, err)

	keyID, err := col.Keys.Intern("_original")
	require.NoError(t, err)
	found := false
	for _, f := range doc {
		if f.KeyID == keyID {
			found = true
			val, err := col.Values.Read(f.Value)
			require.NoError(t, err)
			require.Equal(t, "imdb-tt0083944", val.String)
		}
	}
	require.True(t, found)
}

func TestIngestCompressedBodiesRoundTripAndCommitRecordsCompression(t *testing.T) {
	col := openTestCollection(t)

	cfg := testConfig()
	cfg.CompressBodies = true
	sess, err := Open(col, cfg, nil)
	require.NoError(t, err)

	_, err = sess.Ingest(media.Record{
		{Key: "title", Value: "rambo rambo rambo rambo rambo rambo rambo"},
	})
	require.NoError(t, err)

	colDir := col.VersionDir()
	require.NoError(t, sess.Flush(colDir, 1))
	require.NoError(t, sess.Commit(colDir, 1, 1, "title"))
	require.NoError(t, sess.Close())

	doc, err := col.Docs.Read(0)
	require.NoError(t, err)

	keyID, err := col.Keys.Intern("title")
	require.NoError(t, err)
	found := false
	for _, f := range doc {
		if f.KeyID == keyID {
			found = true
			require.True(t, f.Value.Compressed)
			val, err := col.Values.Read(f.Value)
			require.NoError(t, err)
			require.Equal(t, "rambo rambo rambo rambo rambo rambo rambo", val.String)
		}
	}
	require.True(t, found)

	info, err := version.Read(colDir, 1)
	require.NoError(t, err)
	require.Equal(t, "snappy", info.Compression)
}

func TestFlushConcurrentWithItselfRejected(t *testing.T) {
	col := openTestCollection(t)
	sess, err := Open(col, testConfig(), nil)
	require.NoError(t, err)

	_, err = sess.Ingest(media.Record{{Key: "title", Value: "rambo"}})
	require.NoError(t, err)

	sess.mu.Lock()
	sess.flushing = true
	sess.mu.Unlock()

	err = sess.Flush(col.VersionDir(), 1)
	require.Error(t, err)

	sess.mu.Lock()
	sess.flushing = false
	sess.mu.Unlock()
	require.NoError(t, sess.Flush(col.VersionDir(), 1))
	require.NoError(t, sess.Close())
}
