package keystore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternIsFirstWriterWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")
	s, err := Open(path)
	require.NoError(t, err)

	id1, err := s.Intern("title")
	require.NoError(t, err)
	id2, err := s.Intern("title")
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	id3, err := s.Intern("_id")
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	id1Again, err := s2.Intern("title")
	require.NoError(t, err)
	require.Equal(t, id1, id1Again)

	name, ok := s2.Lookup(id1)
	require.True(t, ok)
	require.Equal(t, "title", name)
}
