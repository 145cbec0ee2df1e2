package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grepcore/grepcore/pkg/regexfallback"
	"github.com/grepcore/grepcore/pkg/types"
)

func simpleSet(patterns ...string) *types.Set {
	s := &types.Set{EOL: '\n'}
	for _, p := range patterns {
		s.Patterns = append(s.Patterns, types.Pattern{Text: p, Translated: p})
	}
	return s
}

// No DFA/superset here: dfa.Compile requires the real Hyperscan shared
// library, which is not available for a pure unit test. The cascade's
// keyword and regex stages are exercised directly; pkg/dfa/dfa_test.go
// covers the back-reference/ASCII helpers that don't need a Hyperscan
// runtime, pkg/dfa/dfa_hyperscan_test.go exercises the real
// Compile/Scan/Clone under the cgo+hyperscan build, and pkg/dfa's stub
// build (no cgo or hyperscan tag) is what lets this package build and test
// at all without one.
func newRegexOnlyEngine(t *testing.T, s *types.Set) *Engine {
	t.Helper()
	a, err := regexfallback.Compile(s)
	require.NoError(t, err)
	return New('\n', nil, nil, nil, a)
}

func TestEngine_NextFindsMatchingLine(t *testing.T) {
	e := newRegexOnlyEngine(t, simpleSet("needle"))

	buf := []byte("hay\nneedle here\nhay\n")
	lm, ok, err := e.Next(buf, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "needle here", string(buf[lm.Line.Start:lm.Line.End]))
	assert.Equal(t, "needle", string(buf[lm.Match.Start:lm.Match.End]))
}

func TestEngine_NextSkipsNonMatchingLines(t *testing.T) {
	e := newRegexOnlyEngine(t, simpleSet("zzz"))

	buf := []byte("a\nb\nc\n")
	_, ok, err := e.Next(buf, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_MatchLineWholeLine(t *testing.T) {
	s := simpleSet("b")
	s.WholeLine = true
	e := newRegexOnlyEngine(t, s)

	_, state, err := e.MatchLine([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, Fail, state)

	span, state, err := e.MatchLine([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, Accept, state)
	assert.Equal(t, types.Span{Start: 0, End: 1}, span)
}

func TestEngine_NextFromOffsetSkipsEarlierMatch(t *testing.T) {
	e := newRegexOnlyEngine(t, simpleSet("hay"))

	buf := []byte("hay\nhay\n")
	lm, ok, err := e.Next(buf, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, lm.Line.Start)
}
