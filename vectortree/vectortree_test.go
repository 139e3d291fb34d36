package vectortree

import (
	"bytes"
	"path/filepath"
	"testing"

	"ferret/stream"

	"github.com/stretchr/testify/require"
)

func TestInsertMergesIdenticalVectors(t *testing.T) {
	tr := New(0.99, 0.5)
	tr.Insert([]float32{1, 0, 0}, 1)
	tr.Insert([]float32{1, 0, 0}, 2)
	tr.Insert([]float32{0, 1, 0}, 3)

	m, ok := tr.ClosestMatch([]float32{1, 0, 0})
	require.True(t, ok)
	require.True(t, m.InMemoryDocs.Contains(1))
	require.True(t, m.InMemoryDocs.Contains(2))
	require.False(t, m.InMemoryDocs.Contains(3))
}

func TestSerializeRoundTrip(t *testing.T) {
	tr := New(0.99, 0.5)
	tr.Insert([]float32{1, 0, 0}, 1)
	tr.Insert([]float32{0, 1, 0}, 2)
	tr.Insert([]float32{-1, 0, 0}, 3)

	vecPath := filepath.Join(t.TempDir(), "t.vec")
	vecStream, err := stream.Open(vecPath)
	require.NoError(t, err)
	defer vecStream.Close()

	var buf bytes.Buffer
	require.NoError(t, tr.Serialize(&buf, vecStream))

	reloaded, err := Deserialize(&buf, vecStream, 0.99, 0.5)
	require.NoError(t, err)

	m, ok := reloaded.ClosestMatch([]float32{1, 0, 0})
	require.True(t, ok)
	require.Greater(t, m.Score, 0.9)
}
