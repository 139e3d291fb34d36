// Package block implements the fixed-width block header used throughout the
// on-disk stores: a 17-byte (offset, length, type-tag) triple, plus the
// varint and UTF-16 codecs the value store and trie serializer build on.
//
// The layout is deliberately the smallest unit every append-only store
// shares: value store entries, doc-map entries and trie postings addresses
// are all just (offset, length) pairs with an optional type tag.
package block

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/golang/snappy"
)

// Size is the encoded byte width of a Header: 8 (offset) + 4 (length) + 1 (type tag) + 1 (compressed flag) + 3 reserved.
const Size = 17

// TypeTag identifies the encoding of a value store entry.
type TypeTag uint8

const (
	TypeInt64 TypeTag = iota + 1
	TypeFloat64
	TypeString
	TypeTimestamp
)

// Header is the fixed-width (offset, length, type-tag) triple that every
// append-only store uses to address a variable-length payload. Compressed
// marks that the addressed bytes are a snappy block and must be
// decompressed before use; Length is always the on-disk (possibly
// compressed) byte count.
type Header struct {
	Offset     int64
	Length     int32
	Type       TypeTag
	Compressed bool
}

// Encode writes the header in its fixed 17-byte wire form.
func (h Header) Encode(w io.Writer) error {
	var buf [Size]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(h.Offset))
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.Length))
	buf[12] = byte(h.Type)
	if h.Compressed {
		buf[13] = 1
	}
	// bytes 14-16 reserved, zero-filled
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("writing block header: %w", err)
	}
	return nil
}

// DecodeHeader reads a fixed 17-byte header from r.
func DecodeHeader(r io.Reader) (Header, error) {
	var buf [Size]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("reading block header: %w", err)
	}
	return Header{
		Offset:     int64(binary.BigEndian.Uint64(buf[0:8])),
		Length:     int32(binary.BigEndian.Uint32(buf[8:12])),
		Type:       TypeTag(buf[12]),
		Compressed: buf[13] != 0,
	}, nil
}

// Compress snappy-block-compresses data for a store that wants its payload
// bodies compressed; the caller records Header.Compressed so Decompress
// knows to reverse it on read.
func Compress(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("decompressing snappy block: %w", err)
	}
	return out, nil
}

// WriteVarint writes v using Go's standard unsigned varint encoding.
func WriteVarint(w io.Writer, v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	if _, err := w.Write(buf[:n]); err != nil {
		return fmt.Errorf("writing varint: %w", err)
	}
	return nil
}

// ReadVarint reads a single varint-encoded uint64 from r.
func ReadVarint(r io.Reader) (uint64, error) {
	var buf [1]byte
	var value uint64
	var shift uint
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, fmt.Errorf("reading varint: %w", err)
		}
		b := buf[0]
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("reading varint: overflow")
		}
	}
	return value, nil
}

// EncodeUTF16String length-prefixes s (varint of UTF-16 code unit count)
// followed by its big-endian UTF-16 code units, per spec's "strings are
// length-prefixed UTF-16".
func EncodeUTF16String(w io.Writer, s string) error {
	units := utf16.Encode([]rune(s))
	if err := WriteVarint(w, uint64(len(units))); err != nil {
		return err
	}
	buf := make([]byte, 2*len(units))
	for i, u := range units {
		binary.BigEndian.PutUint16(buf[2*i:], u)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing utf16 string body: %w", err)
	}
	return nil
}

// DecodeUTF16String is the inverse of EncodeUTF16String.
func DecodeUTF16String(r io.Reader) (string, error) {
	count, err := ReadVarint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 2*count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading utf16 string body: %w", err)
	}
	units := make([]uint16, count)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(buf[2*i:])
	}
	return string(utf16.Decode(units)), nil
}
