package postings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "c.pos"), 1, 64)
	require.NoError(t, err)
	return st
}

func TestAppendSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.pos")

	st, err := Open(path, 1, 64)
	require.NoError(t, err)
	head, err := st.WriteNewList([]uint64{1, 2, 3})
	require.NoError(t, err)
	_, err = st.Append(head, []uint64{4, 5})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := Open(path, 1, 64)
	require.NoError(t, err)
	defer st2.Close()
	ids, err := st2.Read(head)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{1, 2, 3, 4, 5}, ids)
}

func TestReduceAndNot(t *testing.T) {
	st := openTestStore(t)
	defer st.Close()

	theHead, err := st.WriteNewList([]uint64{3, 4, 5})
	require.NoError(t, err)
	uglyHead, err := st.WriteNewList([]uint64{5})
	require.NoError(t, err)

	out, err := st.Reduce([]Cursor{
		{HeadOffset: theHead, Score: 1.0},
		{HeadOffset: uglyHead, Op: OpNOT, Score: 1.0},
	})
	require.NoError(t, err)

	var ids []uint64
	for _, sd := range out {
		ids = append(ids, sd.DocID)
	}
	require.ElementsMatch(t, []uint64{3, 4}, ids)
}

func TestReadDuplicateIsFatal(t *testing.T) {
	st := openTestStore(t)
	defer st.Close()

	head, err := st.WriteNewList([]uint64{1})
	require.NoError(t, err)
	_, err = st.Append(head, []uint64{1})
	require.NoError(t, err)

	_, err = st.Read(head)
	require.Error(t, err)
}
