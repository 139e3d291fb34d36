package media

import (
	"encoding/csv"
	"io"

	"ferret/ferrerr"
)

// CSVDecoder decodes a CSV payload into records, the header row naming each
// column's field and column order preserved as read order.
type CSVDecoder struct{}

// Decode implements Decoder.
func (CSVDecoder) Decode(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, ferrerr.Parse("parsing csv payload", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var rec Record
		for i, value := range row {
			if i >= len(header) {
				break
			}
			rec = append(rec, Field{Key: header[i], Value: value})
		}
		records = append(records, rec)
	}
	return records, nil
}
