// Package query parses the engine's field/value query language into a
// linked chain of query nodes and exposes the modifiers (exact, fuzzy,
// prefix) and boolean operators (AND/OR/NOT) the evaluator composes.
package query

import (
	"strings"

	"ferret/ferrerr"
)

// BoolOp is the inter-statement boolean operator a node contributes.
type BoolOp int

const (
	OpOR BoolOp = iota
	OpAND
	OpNOT
)

// Cmp is the comparison the statement's key/value pair expresses.
type Cmp int

const (
	CmpEq Cmp = iota
	CmpLt
	CmpGt
)

// Modifier narrows how Value is matched against the term tree.
type Modifier int

const (
	ModNone Modifier = iota
	ModFuzzy
	ModPrefix
)

// Node is one parsed term. Then chains the extra terms a multi-word value
// tokenizes into (intra-statement conjunction); Next chains to the
// following top-level statement (inter-statement boolean composition).
type Node struct {
	Bool     BoolOp
	Key      string
	Cmp      Cmp
	Value    string
	Modifier Modifier
	Then     *Node
	Next     *Node
}

// Parse parses a query string, one statement per line (\r treated as \n).
// An empty query returns (nil, nil), not an error.
func Parse(q string) (*Node, error) {
	lines := strings.FieldsFunc(q, func(r rune) bool { return r == '\n' || r == '\r' })

	var head, tail *Node
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		node, err := parseStatement(line)
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = node
		} else {
			tail.Next = node
		}
		tail = node
	}
	return head, nil
}

func parseStatement(line string) (*Node, error) {
	boolOp := OpOR
	rest := line
	switch {
	case strings.HasPrefix(line, "+"):
		boolOp = OpAND
		rest = line[1:]
	case strings.HasPrefix(line, "-"):
		boolOp = OpNOT
		rest = line[1:]
	}

	key, cmp, rawValue, err := splitKeyValue(rest)
	if err != nil {
		return nil, err
	}

	value, escaped := unescape(rawValue)
	modifier := ModNone
	if !escaped {
		switch {
		case strings.HasSuffix(value, "~"):
			modifier = ModFuzzy
			value = strings.TrimSuffix(value, "~")
		case strings.HasSuffix(value, "*"):
			modifier = ModPrefix
			value = strings.TrimSuffix(value, "*")
		}
	}

	singleToken := strings.HasPrefix(key, "_")
	terms := []string{value}
	if !escaped && !singleToken {
		terms = strings.Fields(value)
		if len(terms) == 0 {
			terms = []string{value}
		}
	}

	head := &Node{Bool: boolOp, Key: key, Cmp: cmp, Value: terms[0], Modifier: modifier}
	cursor := head
	for _, term := range terms[1:] {
		n := &Node{Bool: boolOp, Key: key, Cmp: cmp, Value: term, Modifier: modifier}
		cursor.Then = n
		cursor = n
	}
	return head, nil
}

// splitKeyValue locates the first unescaped ':', '<' or '>' and splits the
// statement around it. A backslash toggles "inside escape", during which
// comparison characters do not count as the split point.
func splitKeyValue(s string) (key string, cmp Cmp, value string, err error) {
	inEscape := false
	for i, r := range s {
		if r == '\\' {
			inEscape = !inEscape
			continue
		}
		if inEscape {
			continue
		}
		switch r {
		case ':':
			return s[:i], CmpEq, s[i+1:], nil
		case '<':
			return s[:i], CmpLt, s[i+1:], nil
		case '>':
			return s[:i], CmpGt, s[i+1:], nil
		}
	}
	return "", 0, "", ferrerr.Parse("missing ':' in query statement: "+s, nil)
}

// unescape strips a \…\ wrapper, returning the literal value verbatim and
// escaped=true, or the value unchanged with escaped=false.
func unescape(value string) (string, bool) {
	if len(value) >= 2 && strings.HasPrefix(value, `\`) && strings.HasSuffix(value, `\`) {
		return value[1 : len(value)-1], true
	}
	return value, false
}
