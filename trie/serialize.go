package trie

import (
	"encoding/binary"
	"io"

	"ferret/block"
	"ferret/ferrerr"
)

const (
	flagHasChild   = 0x1
	flagHasSibling = 0x2
	flagEndOfWord  = 0x4
)

// record is one serialized trie node: code unit, flags, and (only when
// end-of-word is set) its postings address.
type record struct {
	codeUnit  uint16
	hasChild  bool
	hasSibling bool
	endOfWord bool
	postings  block.Header
}

// Serialize writes the trie as a depth-first, left-child-first preorder
// stream: one record per node, each carrying enough flags (child-present,
// sibling-present, end-of-word) for the reader to reconstruct structure
// without separate null markers.
func (t *Trie) Serialize(w io.Writer) error {
	hasRoot := byte(0)
	if t.root.child != nil {
		hasRoot = 1
	}
	if _, err := w.Write([]byte{hasRoot}); err != nil {
		return ferrerr.IO("writing trie root marker", err)
	}
	if t.root.child == nil {
		return nil
	}
	return serializeNode(w, t.root.child)
}

func serializeNode(w io.Writer, n *node) error {
	flags := byte(0)
	if n.child != nil {
		flags |= flagHasChild
	}
	if n.sibling != nil {
		flags |= flagHasSibling
	}
	if n.endOfWord {
		flags |= flagEndOfWord
	}

	var header [3]byte
	binary.BigEndian.PutUint16(header[0:2], n.codeUnit)
	header[2] = flags
	if _, err := w.Write(header[:]); err != nil {
		return ferrerr.IO("writing trie node", err)
	}
	if n.endOfWord {
		if err := n.postings.Encode(w); err != nil {
			return err
		}
	}

	if n.child != nil {
		if err := serializeNode(w, n.child); err != nil {
			return err
		}
	}
	if n.sibling != nil {
		if err := serializeNode(w, n.sibling); err != nil {
			return err
		}
	}
	return nil
}

// cursor is a streaming reader over a serialized trie with a one-record
// lookahead (replay buffer), letting the decoder backtrack across a sibling
// boundary without re-seeking the underlying reader.
type cursor struct {
	r       io.Reader
	buf     *record
	bufErr  error
	hasBuf  bool
}

func newCursor(r io.Reader) *cursor {
	return &cursor{r: r}
}

func (c *cursor) peek() (*record, error) {
	if !c.hasBuf {
		rec, err := readRecord(c.r)
		c.buf, c.bufErr, c.hasBuf = rec, err, true
	}
	return c.buf, c.bufErr
}

func (c *cursor) next() (*record, error) {
	rec, err := c.peek()
	c.hasBuf = false
	c.buf = nil
	return rec, err
}

func readRecord(r io.Reader) (*record, error) {
	var header [3]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, ferrerr.IO("reading trie node", err)
	}
	flags := header[2]
	rec := &record{
		codeUnit:   binary.BigEndian.Uint16(header[0:2]),
		hasChild:   flags&flagHasChild != 0,
		hasSibling: flags&flagHasSibling != 0,
		endOfWord:  flags&flagEndOfWord != 0,
	}
	if rec.endOfWord {
		h, err := block.DecodeHeader(r)
		if err != nil {
			return nil, err
		}
		rec.postings = h
	}
	return rec, nil
}

// Deserialize reconstructs a Trie from a stream written by Serialize, using
// a cursor with lookahead to rebuild child/sibling pointers as it decodes.
func Deserialize(r io.Reader) (*Trie, error) {
	var hasRoot [1]byte
	if _, err := io.ReadFull(r, hasRoot[:]); err != nil {
		return nil, ferrerr.IO("reading trie root marker", err)
	}
	t := &Trie{}
	if hasRoot[0] == 0 {
		return t, nil
	}

	c := newCursor(r)
	n, err := deserializeChain(c)
	if err != nil {
		return nil, err
	}
	t.root.child = n
	return t, nil
}

// deserializeChain decodes one sibling chain (a node plus every sibling
// reachable from it), recursing into each node's child chain first.
func deserializeChain(c *cursor) (*node, error) {
	rec, err := c.next()
	if err != nil {
		return nil, err
	}
	n := &node{codeUnit: rec.codeUnit, endOfWord: rec.endOfWord, postings: rec.postings}

	if rec.hasChild {
		child, err := deserializeChain(c)
		if err != nil {
			return nil, err
		}
		n.child = child
	}
	if rec.hasSibling {
		sibling, err := deserializeChain(c)
		if err != nil {
			return nil, err
		}
		n.sibling = sibling
	}
	return n, nil
}
