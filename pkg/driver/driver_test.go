package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grepcore/grepcore/pkg/diag"
	"github.com/grepcore/grepcore/pkg/engine"
	"github.com/grepcore/grepcore/pkg/printer"
	"github.com/grepcore/grepcore/pkg/regexfallback"
	"github.com/grepcore/grepcore/pkg/sink"
	"github.com/grepcore/grepcore/pkg/types"
)

func newDriverFixture(t *testing.T, pattern string) (*Driver, *sink.Direct, *strings.Builder) {
	t.Helper()
	s := &types.Set{EOL: '\n', Patterns: []types.Pattern{{Text: pattern, Translated: pattern}}}
	a, err := regexfallback.Compile(s)
	require.NoError(t, err)
	eng := engine.New('\n', nil, nil, nil, a)

	var out strings.Builder
	direct := sink.NewDirect(&out)
	p := printer.New(direct, printer.NewColorScheme(false), printer.Options{Separator: ':'}, eng)
	d := &Driver{Engine: eng, Printer: p, Out: direct, Log: diag.NoopLogger{}, Mode: ModeNormal}
	return d, direct, &out
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDriver_PlainMatchEmitsEachMatchingLine(t *testing.T) {
	d, direct, out := newDriverFixture(t, "needle")
	path := writeTempFile(t, "hay\nneedle\nhay\n")

	matched, errorSeen := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.False(t, errorSeen)
	assert.Equal(t, "needle\n", out.String())
}

func TestDriver_InvertEmitsComplement(t *testing.T) {
	d, direct, out := newDriverFixture(t, "needle")
	d.Invert = true
	path := writeTempFile(t, "hay\nneedle\nhay\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.Equal(t, "hay\nhay\n", out.String())
}

func TestDriver_MaxCountStopsEarly(t *testing.T) {
	d, direct, out := newDriverFixture(t, "x")
	d.MaxCount = 2
	path := writeTempFile(t, "x\nx\nx\nx\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.Equal(t, "x\nx\n", out.String())
}

func TestDriver_AfterContextEmitsTrailingLines(t *testing.T) {
	d, direct, out := newDriverFixture(t, "needle")
	d.AfterContext = 2
	path := writeTempFile(t, "needle\nctx1\nctx2\nctx3\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.Equal(t, "needle\nctx1\nctx2\n", out.String())
}

func TestDriver_BeforeContextBuffersLeadingLines(t *testing.T) {
	d, direct, out := newDriverFixture(t, "needle")
	d.BeforeContext = 2
	path := writeTempFile(t, "a\nb\nc\nneedle\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.Equal(t, "b\nc\nneedle\n", out.String())
}

func TestDriver_GroupSeparatorBetweenNonContiguousMatches(t *testing.T) {
	d, direct, out := newDriverFixture(t, "needle")
	d.AfterContext = 1
	path := writeTempFile(t, "needle\nx\ny\nz\nneedle\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.Equal(t, "needle\nx\n--\nneedle\n", out.String())
}

func TestDriver_CountOnlyPrintsCountNotLines(t *testing.T) {
	d, direct, out := newDriverFixture(t, "x")
	d.Mode = ModeCountOnly
	path := writeTempFile(t, "x\ny\nx\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.Equal(t, "2\n", out.String())
}

func TestDriver_FinalLineWithoutNewlineIsMatched(t *testing.T) {
	d, direct, out := newDriverFixture(t, "def")
	path := writeTempFile(t, "abcdef")

	matched, errorSeen := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.False(t, errorSeen)
	assert.Equal(t, "abcdef\n", out.String())
}

func TestDriver_LineNumbersAcrossLines(t *testing.T) {
	d, direct, out := newDriverFixture(t, "needle")
	d.Printer.Opts.LineNumber = true
	path := writeTempFile(t, "a\nneedle\nb\nneedle\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.Equal(t, "2:needle\n4:needle\n", out.String())
}

func TestDriver_ListMatchingPrintsFilenameOnce(t *testing.T) {
	d, direct, out := newDriverFixture(t, "x")
	d.Mode = ModeListMatching
	path := writeTempFile(t, "x\nx\nx\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.True(t, matched)
	assert.Equal(t, path+"\n", out.String())
}

func TestDriver_ListNonMatchingPrintsOnlyFilesWithoutMatch(t *testing.T) {
	d, direct, out := newDriverFixture(t, "zzz")
	d.Mode = ModeListNonMatching
	path := writeTempFile(t, "a\nb\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	assert.False(t, matched)
	assert.Equal(t, path+"\n", out.String())
}

func TestDriver_OnlyMatchingSkipsInvertedLines(t *testing.T) {
	d, direct, out := newDriverFixture(t, "needle")
	d.Invert = true
	d.Printer.Opts.OnlyMatching = true
	path := writeTempFile(t, "hay\nneedle\n")

	matched, _ := d.Run([]string{path})
	require.NoError(t, direct.Flush())

	// -v selects the non-matching lines, but -o has no match span to print
	// for them, so nothing is emitted; the exit status still reflects the
	// selection.
	assert.True(t, matched)
	assert.Equal(t, "", out.String())
}

func TestDriver_DirectoryIsAnError(t *testing.T) {
	d, _, _ := newDriverFixture(t, "x")
	d.NoMessages = true

	matched, errorSeen := d.Run([]string{t.TempDir()})
	assert.False(t, matched)
	assert.True(t, errorSeen)
}

func TestExitStatus(t *testing.T) {
	assert.Equal(t, 0, ExitStatus(true, false, false))
	assert.Equal(t, 1, ExitStatus(false, false, false))
	assert.Equal(t, 2, ExitStatus(false, true, false))
	assert.Equal(t, 0, ExitStatus(true, true, true))
}
