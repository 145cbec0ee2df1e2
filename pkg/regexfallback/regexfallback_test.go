package regexfallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grepcore/grepcore/pkg/types"
)

func set(patterns ...string) *types.Set {
	s := &types.Set{}
	for _, p := range patterns {
		s.Patterns = append(s.Patterns, types.Pattern{Text: p, Translated: p})
	}
	return s
}

func TestArray_Backreference(t *testing.T) {
	a, err := Compile(set(`(a)\1`))
	require.NoError(t, err)

	res, ok, err := a.Search([]byte("aa\nab\n"), 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Span{Start: 0, End: 2}, res.Span)
}

func TestArray_LeftmostLongestTieBreak(t *testing.T) {
	a, err := Compile(set("a", "ab"))
	require.NoError(t, err)

	res, ok, err := a.Search([]byte("xab"), 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, res.Span.Start)
	assert.Equal(t, 3, res.Span.End)
}

func TestArray_WholeWord(t *testing.T) {
	s := set("cat")
	s.WholeWord = true
	a, err := Compile(s)
	require.NoError(t, err)

	_, ok, err := a.Search([]byte("concatenate"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	res, ok, err := a.Search([]byte("the cat sat"), 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, res.Span.Start)
}

func TestArray_WholeLine(t *testing.T) {
	s := set("b")
	s.WholeLine = true
	a, err := Compile(s)
	require.NoError(t, err)

	_, ok, err := a.Search([]byte("ab\n"), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArray_WholeLineIgnoresEmbeddedNewlines(t *testing.T) {
	// Under NUL-delimited records a "line" can contain '\n' as ordinary
	// data; whole-line must still mean the entire record, not a
	// newline-bounded fragment of it.
	s := set("b")
	s.WholeLine = true
	a, err := Compile(s)
	require.NoError(t, err)

	_, ok, err := a.Search([]byte("x\nb"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	whole := set("x\nb")
	whole.WholeLine = true
	wa, err := Compile(whole)
	require.NoError(t, err)

	res, ok, err := wa.Search([]byte("x\nb"), 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Span{Start: 0, End: 3}, res.Span)
}
