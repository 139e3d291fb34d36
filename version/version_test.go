package version

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	info := Info{VersionID: 42, DocumentCount: 6, Compression: "none", PrimaryKey: "_id", PostingsOffset: 128}
	require.NoError(t, Write(dir, info))

	got, err := Read(dir, 42)
	require.NoError(t, err)
	require.Equal(t, info, got)
}

func TestListSkipsUnpublishedAndOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, Info{VersionID: 1}))
	require.NoError(t, Write(dir, Info{VersionID: 3}))
	require.NoError(t, Write(dir, Info{VersionID: 2}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.7.ixp1"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "4.7.tri"), []byte("x"), 0o644))

	versions, err := List(dir)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, versions)
}
