// Package fetcher loads a raw ingest payload from either an http(s) URL or
// a local file path, the one piece of "where do the bytes come from"
// plumbing the CLI needs before handing them to a media.Decoder.
package fetcher

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Fetch returns the raw bytes at source: an HTTP GET if source looks like a
// URL, otherwise a local file read.
func Fetch(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", source, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching %s: non-ok response %s", source, resp.Status)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response body for %s: %w", source, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return data, nil
}
