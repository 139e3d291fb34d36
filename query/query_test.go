package query

import (
	"testing"

	"ferret/ferrerr"

	"github.com/stretchr/testify/require"
	"errors"
)

func TestParserLaws(t *testing.T) {
	n, err := Parse("k:v")
	require.NoError(t, err)
	require.Equal(t, OpOR, n.Bool)

	n, err = Parse("+k:v")
	require.NoError(t, err)
	require.Equal(t, OpAND, n.Bool)

	n, err = Parse("-k:v")
	require.NoError(t, err)
	require.Equal(t, OpNOT, n.Bool)

	n, err = Parse("k:v\nk:w")
	require.NoError(t, err)
	require.Equal(t, "v", n.Value)
	require.NotNil(t, n.Next)
	require.Equal(t, "w", n.Next.Value)
}

func TestMissingColonIsParseError(t *testing.T) {
	_, err := Parse("justtext")
	require.Error(t, err)
	require.True(t, errors.Is(err, ferrerr.ErrParse))
}

func TestEmptyQueryIsNotAnError(t *testing.T) {
	n, err := Parse("")
	require.NoError(t, err)
	require.Nil(t, n)
}

func TestModifiersAndMultiTermChain(t *testing.T) {
	n, err := Parse("title:tomb raider~")
	require.NoError(t, err)
	require.Equal(t, "tomb", n.Value)
	require.NotNil(t, n.Then)
	require.Equal(t, "raider", n.Then.Value)
	require.Equal(t, ModFuzzy, n.Then.Modifier)
}

func TestEscapedValueIsVerbatim(t *testing.T) {
	n, err := Parse(`created:\2024-01-01T00:00:00\`)
	require.NoError(t, err)
	require.Equal(t, "2024-01-01T00:00:00", n.Value)
}
