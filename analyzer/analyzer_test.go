package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeSplitsOnWhitespace(t *testing.T) {
	a := Analyze("tomb raider", false)
	require.Len(t, a.Spans, 2)
	require.Equal(t, "tomb", a.TokenString(a.Spans[0]))
	require.Equal(t, "raider", a.TokenString(a.Spans[1]))
}

func TestAnalyzeSingleTokenField(t *testing.T) {
	a := Analyze("tomb raider", true)
	require.Len(t, a.Spans, 1)
	require.Equal(t, "tomb raider", a.TokenString(a.Spans[0]))
}

func TestEmbeddingsAreDeterministic(t *testing.T) {
	a1 := Analyze("raider", true)
	a2 := Analyze("raider", true)
	require.Equal(t, a1.Embeddings[0], a2.Embeddings[0])

	a3 := Analyze("rambo", true)
	require.NotEqual(t, a1.Embeddings[0], a3.Embeddings[0])
}
