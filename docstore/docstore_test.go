package docstore

import (
	"path/filepath"
	"testing"

	"ferret/block"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(
		filepath.Join(dir, "c.docs"),
		filepath.Join(dir, "c.dix"),
		filepath.Join(dir, "c.del"),
	)
	require.NoError(t, err)
	return s
}

func TestAppendReadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	doc := DocMap{
		{KeyID: 1, Value: block.Header{Offset: 0, Length: 5, Type: block.TypeString}},
		{KeyID: 2, Value: block.Header{Offset: 5, Length: 8, Type: block.TypeFloat64}},
	}
	require.NoError(t, s.Append(0, doc, false))

	got, err := s.Read(0)
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestAppendReadRoundTripCompressed(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	doc := DocMap{
		{KeyID: 1, Value: block.Header{Offset: 0, Length: 5, Type: block.TypeString}},
		{KeyID: 2, Value: block.Header{Offset: 5, Length: 8, Type: block.TypeFloat64}},
	}
	require.NoError(t, s.Append(0, doc, true))

	got, err := s.Read(0)
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestDeletedDocIsFiltered(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	doc := DocMap{{KeyID: 1, Value: block.Header{Offset: 0, Length: 1, Type: block.TypeInt64}}}
	require.NoError(t, s.Append(0, doc, false))
	s.Delete(0)

	_, err := s.Read(0)
	require.Error(t, err)
}

func TestDeletedSetSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	docsPath := filepath.Join(dir, "c.docs")
	idxPath := filepath.Join(dir, "c.dix")
	delPath := filepath.Join(dir, "c.del")

	s, err := Open(docsPath, idxPath, delPath)
	require.NoError(t, err)
	s.Delete(7)
	require.NoError(t, s.PersistDeleted())
	require.NoError(t, s.Close())

	s2, err := Open(docsPath, idxPath, delPath)
	require.NoError(t, err)
	defer s2.Close()
	require.True(t, s2.IsDeleted(7))
}
