package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONDecoderPreservesFieldOrder(t *testing.T) {
	records, err := JSONDecoder{}.Decode(strings.NewReader(`[{"title":"rambo","year":1982}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "title", records[0][0].Key)
	require.Equal(t, "year", records[0][1].Key)
}

func TestCSVDecoder(t *testing.T) {
	records, err := CSVDecoder{}.Decode(strings.NewReader("title,year\nrambo,1982\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "title", records[0][0].Key)
	require.Equal(t, "rambo", records[0][0].Value)
}

func TestRegistryUnknownMediaType(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Lookup("application/xml")
	require.Error(t, err)
}
