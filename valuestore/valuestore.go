// Package valuestore appends typed comparable values (int64, float64,
// string, timestamp) to a stream and reconstitutes them by (offset, length,
// type-tag), mirroring the teacher's block-header conventions but for the
// engine's value file rather than a roaring-bitmap segment.
package valuestore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"ferret/block"
	"ferret/ferrerr"
	"ferret/stream"
)

// Value is the tagged union of primitives the engine indexes.
type Value struct {
	Int64     int64
	Float64   float64
	String    string
	Timestamp time.Time
	Type      block.TypeTag
}

// Store is the append-only value file plus its deterministic encoding.
type Store struct {
	s *stream.Stream
}

// Open opens the value stream at path.
func Open(path string) (*Store, error) {
	s, err := stream.Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{s: s}, nil
}

// Append encodes v and appends it, returning the block.Header that locates
// it. When compress is true the encoded body is snappy-compressed before
// being written and the returned header's Compressed flag is set.
func (st *Store) Append(v Value, compress bool) (block.Header, error) {
	var buf bytes.Buffer
	switch v.Type {
	case block.TypeInt64:
		if err := binary.Write(&buf, binary.BigEndian, v.Int64); err != nil {
			return block.Header{}, ferrerr.IO("encoding int64 value", err)
		}
	case block.TypeFloat64:
		if err := binary.Write(&buf, binary.BigEndian, v.Float64); err != nil {
			return block.Header{}, ferrerr.IO("encoding float64 value", err)
		}
	case block.TypeString:
		if err := block.EncodeUTF16String(&buf, v.String); err != nil {
			return block.Header{}, err
		}
	case block.TypeTimestamp:
		if err := binary.Write(&buf, binary.BigEndian, v.Timestamp.UnixNano()); err != nil {
			return block.Header{}, ferrerr.IO("encoding timestamp value", err)
		}
	default:
		return block.Header{}, ferrerr.DataMisaligned(fmt.Sprintf("unknown value type tag %d", v.Type), nil)
	}

	body := buf.Bytes()
	if compress {
		body = block.Compress(body)
	}

	off, err := st.s.Append(body)
	if err != nil {
		return block.Header{}, err
	}
	return block.Header{Offset: off, Length: int32(len(body)), Type: v.Type, Compressed: compress}, nil
}

// Read decodes the value addressed by h.
func (st *Store) Read(h block.Header) (Value, error) {
	buf := make([]byte, h.Length)
	if err := st.s.ReadAt(buf, h.Offset); err != nil {
		return Value{}, err
	}
	if h.Compressed {
		decoded, err := block.Decompress(buf)
		if err != nil {
			return Value{}, err
		}
		buf = decoded
	}
	r := bytes.NewReader(buf)

	switch h.Type {
	case block.TypeInt64:
		var v int64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return Value{}, ferrerr.IO("decoding int64 value", err)
		}
		return Value{Int64: v, Type: h.Type}, nil
	case block.TypeFloat64:
		var v float64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return Value{}, ferrerr.IO("decoding float64 value", err)
		}
		return Value{Float64: v, Type: h.Type}, nil
	case block.TypeString:
		s, err := block.DecodeUTF16String(r)
		if err != nil {
			return Value{}, err
		}
		return Value{String: s, Type: h.Type}, nil
	case block.TypeTimestamp:
		var nanos int64
		if err := binary.Read(r, binary.BigEndian, &nanos); err != nil {
			return Value{}, ferrerr.IO("decoding timestamp value", err)
		}
		return Value{Timestamp: time.Unix(0, nanos).UTC(), Type: h.Type}, nil
	default:
		return Value{}, ferrerr.DataMisaligned(fmt.Sprintf("corrupt type tag %d while reading value", h.Type), nil)
	}
}

// Flush syncs the underlying stream.
func (st *Store) Flush() error { return st.s.Flush() }

// Close closes the underlying stream.
func (st *Store) Close() error { return st.s.Close() }
