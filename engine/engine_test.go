package engine

import (
	"testing"

	"ferret/collection"
	"ferret/media"
	"ferret/session"

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

func ingestAndCommit(t *testing.T, col *collection.Collection, versionID int64, primaryKey string, records ...media.Record) {
	t.Helper()
	sess, err := session.Open(col, session.Config{ModelBuilderWorkers: 2, IdenticalAngle: 0.999, FoldAngle: 0.8}, nil)
	require.NoError(t, err)

	for _, rec := range records {
		_, err := sess.Ingest(rec)
		require.NoError(t, err)
	}

	require.NoError(t, sess.Flush(col.VersionDir(), versionID))
	require.NoError(t, sess.Commit(col.VersionDir(), versionID, int64(len(records)), primaryKey))
	require.NoError(t, sess.Close())
}

func TestEvaluateExactMatch(t *testing.T) {
	col := openTestCollection(t)
	ingestAndCommit(t, col, 1, "title",
		media.Record{{Key: "title", Value: "first blood"}},
		media.Record{{Key: "title", Value: "rocky balboa"}},
	)

	ev := New(col)
	results, err := ev.Evaluate("title:blood", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint64(0), results[0].DocID)
}

func TestEvaluateAndNot(t *testing.T) {
	col := openTestCollection(t)
	ingestAndCommit(t, col, 1, "title",
		media.Record{{Key: "title", Value: "the good"}},
		media.Record{{Key: "title", Value: "the ugly"}},
		media.Record{{Key: "title", Value: "the bad"}},
	)

	ev := New(col)
	results, err := ev.Evaluate("+title:the\n-title:ugly", 10)
	require.NoError(t, err)

	var ids []uint64
	for _, r := range results {
		ids = append(ids, r.DocID)
	}
	require.ElementsMatch(t, []uint64{0, 2}, ids)
}

func TestEvaluatePrefix(t *testing.T) {
	col := openTestCollection(t)
	ingestAndCommit(t, col, 1, "title",
		media.Record{{Key: "title", Value: "rambo"}},
		media.Record{{Key: "title", Value: "rocky"}},
	)

	ev := New(col)
	results, err := ev.Evaluate("title:ra*", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint64(0), results[0].DocID)
}

func TestEvaluateFuzzy(t *testing.T) {
	col := openTestCollection(t)
	ingestAndCommit(t, col, 1, "title",
		media.Record{{Key: "title", Value: "rambo"}},
	)

	ev := New(col)
	results, err := ev.Evaluate("title:ramdo~", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestEvaluateLaterVersionShadowsPrimaryKey(t *testing.T) {
	col := openTestCollection(t)
	ingestAndCommit(t, col, 1, "imdb_id",
		media.Record{{Key: "imdb_id", Value: "tt0083944"}, {Key: "title", Value: "first blood"}},
	)
	ingestAndCommit(t, col, 2, "imdb_id",
		media.Record{{Key: "imdb_id", Value: "tt0083944"}, {Key: "title", Value: "rambo first blood"}},
	)

	ev := New(col)
	results, err := ev.Evaluate("title:blood", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint64(1), results[0].DocID) // v2's doc shadows v1's
}

func TestEvaluateEmptyQuery(t *testing.T) {
	col := openTestCollection(t)
	ev := New(col)
	results, err := ev.Evaluate("", 10)
	require.NoError(t, err)
	require.Nil(t, results)
}
