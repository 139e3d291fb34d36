package fetcher

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title":"rambo"}]`), 0o644))

	data, err := Fetch(path)
	require.NoError(t, err)
	require.Equal(t, `[{"title":"rambo"}]`, string(data))
}

func TestFetchURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"title":"rocky"}]`))
	}))
	defer ts.Close()

	data, err := Fetch(ts.URL)
	require.NoError(t, err)
	require.Equal(t, `[{"title":"rocky"}]`, string(data))
}

func TestFetchMissingFile(t *testing.T) {
	_, err := Fetch(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
