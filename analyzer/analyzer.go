// Package analyzer turns field values into analyzed strings: the original
// character buffer plus a sequence of (start, length) token spans, and a
// deterministic unit-length embedding vector per span for the vector tree.
package analyzer

import (
	"hash/fnv"
	"math"
	"unicode"
	"unicode/utf16"
)

// Span is a half-open [Start, Start+Length) range over an analyzed
// string's code units.
type Span struct {
	Start  int
	Length int
}

// Analyzed is the output of tokenizing one field value.
type Analyzed struct {
	Units      []uint16
	Spans      []Span
	Embeddings [][]float32
}

// EmbeddingDim is the fixed dimensionality of every embedding vector this
// package produces.
const EmbeddingDim = 16

// Analyze tokenizes value. If singleToken is true (the field name carries
// the `_` single-token sigil), the whole value becomes one span regardless
// of whitespace.
func Analyze(value string, singleToken bool) Analyzed {
	units := utf16.Encode([]rune(value))

	var spans []Span
	if singleToken || len(units) == 0 {
		spans = []Span{{Start: 0, Length: len(units)}}
	} else {
		spans = splitWords(units)
	}

	embeddings := make([][]float32, len(spans))
	for i, s := range spans {
		embeddings[i] = embed(units[s.Start : s.Start+s.Length])
	}

	return Analyzed{Units: units, Spans: spans, Embeddings: embeddings}
}

// splitWords spans runs of non-space code units.
func splitWords(units []uint16) []Span {
	var spans []Span
	start := -1
	for i, u := range units {
		if unicode.IsSpace(rune(u)) {
			if start >= 0 {
				spans = append(spans, Span{Start: start, Length: i - start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, Span{Start: start, Length: len(units) - start})
	}
	return spans
}

// embed derives a deterministic unit-length vector from a token's code
// units: identical token strings always yield identical vectors. The
// derivation (an FNV-hashed bag-of-code-units projection) is intentionally
// simple since determinism, not semantic quality, is the only contract.
func embed(units []uint16) []float32 {
	v := make([]float32, EmbeddingDim)
	for _, u := range units {
		h := fnv.New32a()
		var b [2]byte
		b[0] = byte(u)
		b[1] = byte(u >> 8)
		h.Write(b[:])
		sum := h.Sum32()
		dim := int(sum % EmbeddingDim)
		sign := float32(1)
		if sum&0x10000 != 0 {
			sign = -1
		}
		v[dim] += sign
	}
	normalize(v)
	return v
}

func normalize(v []float32) {
	var sumSq float32
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(float64(sumSq)))
	for i := range v {
		v[i] /= norm
	}
}

// TokenString renders a span's code units back to a Go string.
func (a Analyzed) TokenString(s Span) string {
	return string(utf16.Decode(a.Units[s.Start : s.Start+s.Length]))
}
