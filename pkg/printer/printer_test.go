package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grepcore/grepcore/pkg/engine"
	"github.com/grepcore/grepcore/pkg/regexfallback"
	"github.com/grepcore/grepcore/pkg/sink"
	"github.com/grepcore/grepcore/pkg/types"
)

func newTestEngine(t *testing.T, pattern string) *engine.Engine {
	t.Helper()
	s := &types.Set{EOL: '\n', Patterns: []types.Pattern{{Text: pattern, Translated: pattern}}}
	a, err := regexfallback.Compile(s)
	require.NoError(t, err)
	return engine.New('\n', nil, nil, nil, a)
}

func TestPrinter_PlainLineNoColor(t *testing.T) {
	s := &sink.Slot{}
	p := New(s, NewColorScheme(false), Options{Separator: ':'}, nil)

	require.NoError(t, p.PrintLine("", 0, 0, []byte("hello world"), nil))
	assert.Equal(t, "hello world\n", string(s.Bytes()))
}

func TestPrinter_WithFilenameAndLineNumber(t *testing.T) {
	s := &sink.Slot{}
	p := New(s, NewColorScheme(false), Options{WithFilename: true, LineNumber: true, Separator: ':'}, nil)

	require.NoError(t, p.PrintLine("f.txt", 3, 0, []byte("hello"), nil))
	assert.Equal(t, "f.txt:3:hello\n", string(s.Bytes()))
}

func TestPrinter_OnlyMatchingEmitsEachMatchOnItsOwnLine(t *testing.T) {
	s := &sink.Slot{}
	eng := newTestEngine(t, "a")
	p := New(s, NewColorScheme(false), Options{OnlyMatching: true}, eng)

	match := [2]int{1, 2}
	require.NoError(t, p.PrintLine("", 0, 0, []byte("banana"), &match))
	assert.Equal(t, "a\na\na\n", string(s.Bytes()))
}
