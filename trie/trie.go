// Package trie implements the first-generation term tree: a left-child,
// right-sibling (LCRS) trie over UTF-16 code units supporting exact, prefix
// and fuzzy (Levenshtein) lookup, plus a postings address at each
// end-of-word node.
package trie

import (
	"sort"
	"unicode/utf16"

	"ferret/bitmap"
	"ferret/block"
)

// node is one LCRS trie node. child/sibling encode the multi-way trie as a
// binary tree: child descends a depth, sibling stays at the same depth.
// docs accumulates the build-time doc-id set for an end-of-word node; it is
// posted to the postings store (and replaced by the address in postings) at
// flush time.
type node struct {
	codeUnit  uint16
	endOfWord bool
	docs      *bitmap.RoaringBitmap
	postings  block.Header
	child     *node
	sibling   *node
}

// Trie is an in-memory LCRS trie. The zero value is an empty trie.
type Trie struct {
	root node // root never itself represents a code unit; root.child is depth 1
}

// New returns an empty Trie.
func New() *Trie {
	return &Trie{}
}

func toUnits(term string) []uint16 {
	return utf16.Encode([]rune(term))
}

func toString(units []uint16) string {
	return string(utf16.Decode(units))
}

// Insert adds term to the trie, indexed by docID.
func (t *Trie) Insert(term string, docID uint32) {
	units := toUnits(term)
	parent := &t.root
	for _, u := range units {
		parent = insertChild(parent, u)
	}
	parent.endOfWord = true
	if parent.docs == nil {
		parent.docs = bitmap.NewRoaringBitmap()
	}
	parent.docs.Add(docID)
}

// SetPostings attaches a postings address to term's end-of-word node. Insert
// must have been called for term first.
func (t *Trie) SetPostings(term string, h block.Header) bool {
	units := toUnits(term)
	n := descend(&t.root, units)
	if n == nil || !n.endOfWord {
		return false
	}
	n.postings = h
	return true
}

// insertChild finds or creates the child of parent carrying code unit u,
// keeping parent's sibling chain sorted ascending by code unit so depth-first
// enumeration is naturally lexicographic.
func insertChild(parent *node, u uint16) *node {
	if parent.child == nil {
		parent.child = &node{codeUnit: u}
		return parent.child
	}

	var prev *node
	n := parent.child
	for n != nil {
		if n.codeUnit == u {
			return n
		}
		if n.codeUnit > u {
			break
		}
		prev = n
		n = n.sibling
	}

	fresh := &node{codeUnit: u, sibling: n}
	if prev == nil {
		parent.child = fresh
	} else {
		prev.sibling = fresh
	}
	return fresh
}

// descend walks the sibling chain at each depth looking for a matching code
// unit, returning nil if the path does not exist.
func descend(from *node, units []uint16) *node {
	cur := from
	for _, u := range units {
		if cur.child == nil {
			return nil
		}
		n := cur.child
		for n != nil && n.codeUnit != u {
			n = n.sibling
		}
		if n == nil {
			return nil
		}
		cur = n
	}
	return cur
}

// Has reports whether term was indexed.
func (t *Trie) Has(term string) bool {
	n := descend(&t.root, toUnits(term))
	return n != nil && n.endOfWord
}

// Postings returns the postings address for an indexed term.
func (t *Trie) Postings(term string) (block.Header, bool) {
	n := descend(&t.root, toUnits(term))
	if n == nil || !n.endOfWord {
		return block.Header{}, false
	}
	return n.postings, true
}

// Walk visits every end-of-word node, giving the write session's flush path
// access to its build-time doc set and a setter for its resolved postings
// address.
func (t *Trie) Walk(visit func(docs *bitmap.RoaringBitmap, setPostings func(block.Header))) {
	var walk func(n *node)
	walk = func(n *node) {
		for ; n != nil; n = n.sibling {
			if n.endOfWord {
				visit(n.docs, func(h block.Header) { n.postings = h })
			}
			walk(n.child)
		}
	}
	walk(t.root.child)
}

// StartsWith enumerates every indexed term beginning with prefix, in
// lexicographic order of code units.
func (t *Trie) StartsWith(prefix string) []string {
	prefixUnits := toUnits(prefix)

	var start *node
	var base []uint16
	if len(prefixUnits) == 0 {
		start = t.root.child
		base = nil
	} else {
		n := descend(&t.root, prefixUnits)
		if n == nil {
			return nil
		}
		base = prefixUnits
		if n.endOfWord {
			// fall through: still need to enumerate n's children below,
			// but emit n's own term first.
		}
		var out []string
		if n.endOfWord {
			out = append(out, toString(base))
		}
		out = append(out, enumerate(n.child, base)...)
		return out
	}
	return enumerate(start, base)
}

// enumerate performs the depth-first, left-child-first preorder walk,
// emitting every end-of-word term reachable from n's sibling chain.
func enumerate(n *node, prefix []uint16) []string {
	var out []string
	for ; n != nil; n = n.sibling {
		path := make([]uint16, len(prefix)+1)
		copy(path, prefix)
		path[len(prefix)] = n.codeUnit

		if n.endOfWord {
			out = append(out, toString(path))
		}
		if n.child != nil {
			out = append(out, enumerate(n.child, path)...)
		}
	}
	return out
}

// Range enumerates indexed terms in [lo, hi] lexicographically. Endpoints
// need not themselves be indexed; the comparison is inclusive wherever an
// endpoint happens to match an indexed term and strict-lexicographic
// otherwise, since it is applied uniformly as lo <= term <= hi.
func (t *Trie) Range(lo, hi string) []string {
	all := enumerate(t.root.child, nil)
	var out []string
	for _, term := range all {
		if term >= lo && term <= hi {
			out = append(out, term)
		}
	}
	sort.Strings(out)
	return out
}

// NearResult is one fuzzy match: the indexed term and its edit distance from
// the query.
type NearResult struct {
	Term     string
	Distance int
}

// Near returns every indexed term within maxEdits Levenshtein distance of
// term, sorted ascending by distance (ties in encounter order of the
// depth-first cursor). It walks the trie maintaining a rolling Levenshtein
// DP row per depth, pruning subtrees whose minimum achievable distance
// already exceeds maxEdits.
func (t *Trie) Near(term string, maxEdits int) []NearResult {
	queryUnits := toUnits(term)
	initialRow := make([]int, len(queryUnits)+1)
	for i := range initialRow {
		initialRow[i] = i
	}

	var results []NearResult
	var walk func(n *node, prefix []uint16, prevRow []int)
	walk = func(n *node, prefix []uint16, prevRow []int) {
		for ; n != nil; n = n.sibling {
			row := make([]int, len(queryUnits)+1)
			row[0] = prevRow[0] + 1
			for col := 1; col <= len(queryUnits); col++ {
				insertCost := row[col-1] + 1
				deleteCost := prevRow[col] + 1
				replaceCost := prevRow[col-1]
				if queryUnits[col-1] != n.codeUnit {
					replaceCost++
				}
				row[col] = minOf(insertCost, deleteCost, replaceCost)
			}

			path := make([]uint16, len(prefix)+1)
			copy(path, prefix)
			path[len(prefix)] = n.codeUnit

			if n.endOfWord && row[len(queryUnits)] <= maxEdits {
				results = append(results, NearResult{Term: toString(path), Distance: row[len(queryUnits)]})
			}

			if minInRow(row) <= maxEdits && n.child != nil {
				walk(n.child, path, row)
			}
		}
	}
	walk(t.root.child, nil, initialRow)

	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	return results
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func minInRow(row []int) int {
	m := row[0]
	for _, v := range row[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
