package trie

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertHasStartsWith(t *testing.T) {
	tr := New()
	for _, term := range []string{"rambo", "rambo 2", "rocky 2", "raiders of the lost ark", "rain man"} {
		tr.Insert(term, 0)
	}

	require.True(t, tr.Has("rambo"))
	require.False(t, tr.Has("ramb"))

	got := tr.StartsWith("ra")
	sort.Strings(got)
	require.Equal(t, []string{"raiders of the lost ark", "rain man", "rambo", "rambo 2"}, got)
}

func TestRoundTrip(t *testing.T) {
	terms := []string{"b", "a", "ab", "aa", "abc"}
	tr := New()
	for _, term := range terms {
		tr.Insert(term, 0)
	}

	var buf bytes.Buffer
	require.NoError(t, tr.Serialize(&buf))

	reloaded, err := Deserialize(&buf)
	require.NoError(t, err)

	for _, term := range terms {
		require.True(t, reloaded.Has(term), term)
	}
	got := reloaded.StartsWith("")
	sort.Strings(got)
	want := append([]string{}, terms...)
	sort.Strings(want)
	require.Equal(t, want, got)
}

func TestFuzzyMonotonicity(t *testing.T) {
	tr := New()
	for _, term := range []string{"raider", "tomb raider", "rambo"} {
		tr.Insert(term, 0)
	}

	near := func(edits int) map[string]bool {
		set := map[string]bool{}
		for _, r := range tr.Near("raider", edits) {
			set[r.Term] = true
		}
		return set
	}

	e1 := near(1)
	e2 := near(2)
	for term := range e1 {
		require.True(t, e2[term], "e1 ⊆ e2 violated for %q", term)
	}
}

func TestRangeInclusive(t *testing.T) {
	tr := New()
	for _, term := range []string{"0000123", "0000333", "0000666", "0012345", "0077777", "0100006", "1000989"} {
		tr.Insert(term, 0)
	}

	got := tr.Range("0000333", "0100006")
	require.Equal(t, []string{"0000333", "0000666", "0012345", "0077777", "0100006"}, got)
}
