package vectortree

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"ferret/block"
	"ferret/ferrerr"
	"ferret/stream"
)

const (
	flagHasLeft  = 0x1
	flagHasRight = 0x2
)

// Serialize writes the tree as a preorder stream of (vector-address,
// postings-address, has-left, has-right) records into w, appending each
// node's vector to vecStream and recording the returned byte offset rather
// than the vector bytes themselves, keeping the index file small.
func (t *Tree) Serialize(w io.Writer, vecStream *stream.Stream) error {
	hasRoot := byte(0)
	if t.root != nil {
		hasRoot = 1
	}
	if _, err := w.Write([]byte{hasRoot}); err != nil {
		return ferrerr.IO("writing vector tree root marker", err)
	}
	if t.root == nil {
		return nil
	}
	return serializeNode(w, vecStream, t.root)
}

func serializeNode(w io.Writer, vecStream *stream.Stream, n *node) error {
	vecBytes := encodeVector(n.vector)
	vecOffset, err := vecStream.Append(vecBytes)
	if err != nil {
		return err
	}

	flags := byte(0)
	if n.left != nil {
		flags |= flagHasLeft
	}
	if n.right != nil {
		flags |= flagHasRight
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, vecOffset); err != nil {
		return ferrerr.IO("writing vector offset", err)
	}
	if err := binary.Write(&buf, binary.BigEndian, int32(len(vecBytes))); err != nil {
		return ferrerr.IO("writing vector length", err)
	}
	if err := n.postings.Encode(&buf); err != nil {
		return err
	}
	buf.WriteByte(flags)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return ferrerr.IO("writing vector tree node", err)
	}

	if n.left != nil {
		if err := serializeNode(w, vecStream, n.left); err != nil {
			return err
		}
	}
	if n.right != nil {
		if err := serializeNode(w, vecStream, n.right); err != nil {
			return err
		}
	}
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.BigEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.BigEndian.Uint32(b[4*i:]))
	}
	return v
}

// Deserialize reconstructs a Tree from a stream written by Serialize,
// resolving each node's vector from vecStream by its recorded offset.
func Deserialize(r io.Reader, vecStream *stream.Stream, identicalAngle, foldAngle float64) (*Tree, error) {
	var hasRoot [1]byte
	if _, err := io.ReadFull(r, hasRoot[:]); err != nil {
		return nil, ferrerr.IO("reading vector tree root marker", err)
	}
	t := &Tree{IdenticalAngle: identicalAngle, FoldAngle: foldAngle}
	if hasRoot[0] == 0 {
		return t, nil
	}

	n, err := deserializeNode(r, vecStream)
	if err != nil {
		return nil, err
	}
	t.root = n
	return t, nil
}

func deserializeNode(r io.Reader, vecStream *stream.Stream) (*node, error) {
	var head [8 + 4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, ferrerr.IO("reading vector tree node", err)
	}
	vecOffset := int64(binary.BigEndian.Uint64(head[0:8]))
	vecLen := int32(binary.BigEndian.Uint32(head[8:12]))

	postings, err := block.DecodeHeader(r)
	if err != nil {
		return nil, err
	}

	var flagByte [1]byte
	if _, err := io.ReadFull(r, flagByte[:]); err != nil {
		return nil, ferrerr.IO("reading vector tree node flags", err)
	}

	vecBytes := make([]byte, vecLen)
	if err := vecStream.ReadAt(vecBytes, vecOffset); err != nil {
		return nil, err
	}

	n := &node{vector: decodeVector(vecBytes), postings: postings, docs: nil}

	if flagByte[0]&flagHasLeft != 0 {
		left, err := deserializeNode(r, vecStream)
		if err != nil {
			return nil, err
		}
		n.left = left
	}
	if flagByte[0]&flagHasRight != 0 {
		right, err := deserializeNode(r, vecStream)
		if err != nil {
			return nil, err
		}
		n.right = right
	}
	return n, nil
}
