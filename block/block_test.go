package block

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Header{
		{Offset: 0, Length: 0, Type: TypeInt64},
		{Offset: 1 << 40, Length: 1 << 20, Type: TypeString, Compressed: true},
	}
	for _, h := range cases {
		var buf bytes.Buffer
		require.NoError(t, h.Encode(&buf))
		require.Equal(t, Size, buf.Len())

		got, err := DecodeHeader(&buf)
		require.NoError(t, err)
		require.Equal(t, h, got)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 1 << 32, ^uint64(0)} {
		var buf bytes.Buffer
		require.NoError(t, WriteVarint(&buf, v))
		got, err := ReadVarint(&buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestUTF16StringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "rambo", "日本語"} {
		var buf bytes.Buffer
		require.NoError(t, EncodeUTF16String(&buf, s))
		got, err := DecodeUTF16String(&buf)
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	data := []byte("rambo rambo rambo rambo rambo rambo rambo rambo")
	compressed := Compress(data)
	got, err := Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestDecompressCorruptDataIsError(t *testing.T) {
	_, err := Decompress([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}
