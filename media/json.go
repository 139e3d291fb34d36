package media

import (
	"encoding/json"
	"fmt"
	"io"

	"ferret/ferrerr"
)

// JSONDecoder decodes a top-level JSON array of objects into records,
// reading token-by-token (rather than into a map) so field order survives,
// since encoding/json's map decoding does not preserve key order.
type JSONDecoder struct{}

// Decode implements Decoder.
func (JSONDecoder) Decode(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, ferrerr.Parse("reading json array start", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, ferrerr.Parse("expected a top-level json array of records", nil)
	}

	var records []Record
	for dec.More() {
		rec, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		return nil, ferrerr.Parse("reading json array end", err)
	}
	return records, nil
}

func decodeObject(dec *json.Decoder) (Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, ferrerr.Parse("reading json object start", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ferrerr.Parse("expected a json object record", nil)
	}

	var rec Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, ferrerr.Parse("reading json field name", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, ferrerr.Parse(fmt.Sprintf("expected string field name, got %v", keyTok), nil)
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, ferrerr.Parse("reading json field value", err)
		}
		if d, ok := valTok.(json.Delim); ok {
			return nil, ferrerr.Parse(fmt.Sprintf("nested %v values are not supported", d), nil)
		}
		rec = append(rec, Field{Key: key, Value: valTok})
	}

	if _, err := dec.Token(); err != nil {
		return nil, ferrerr.Parse("reading json object end", err)
	}
	return rec, nil
}
