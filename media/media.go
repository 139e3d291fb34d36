// Package media decodes an ingest payload into records, dispatching on the
// HTTP front end's Content-Type the way the teacher's fetcher dispatches on
// "http(s) URL vs local path": a small registry of capability objects keyed
// by a string, rather than an inheritance chain.
package media

import (
	"fmt"
	"io"

	"ferret/ferrerr"
)

// Field is one (name, value) pair in a record, order preserved as read.
type Field struct {
	Key   string
	Value any
}

// Record is an ordered mapping from field name to a tagged comparable value
// (string, float64, bool, or nil), exactly as spec's "dynamic document"
// design note calls for.
type Record []Field

// Decoder turns a payload into a sequence of records.
type Decoder interface {
	Decode(r io.Reader) ([]Record, error)
}

// Registry maps a MIME type string to the Decoder that handles it.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns a Registry pre-populated with the JSON and CSV
// decoders.
func NewRegistry() *Registry {
	reg := &Registry{decoders: map[string]Decoder{}}
	reg.Register("application/json", JSONDecoder{})
	reg.Register("text/csv", CSVDecoder{})
	return reg
}

// Register installs decoder for mediaType, overwriting any previous entry.
func (reg *Registry) Register(mediaType string, decoder Decoder) {
	reg.decoders[mediaType] = decoder
}

// Lookup returns the decoder for mediaType, or ferrerr.ErrNotSupported if no
// plugin matches.
func (reg *Registry) Lookup(mediaType string) (Decoder, error) {
	d, ok := reg.decoders[mediaType]
	if !ok {
		return nil, ferrerr.NotSupported(fmt.Sprintf("no decoder registered for media type %q", mediaType))
	}
	return d, nil
}
