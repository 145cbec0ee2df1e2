package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grepcore/grepcore/pkg/buffer"
	"github.com/grepcore/grepcore/pkg/config"
	"github.com/grepcore/grepcore/pkg/types"
)

func configOptionsFixture() config.Options {
	return config.Options{}
}

func resetFlags() *flagVars {
	rootFlags = flagVars{color: "auto", binaryFiles: "binary"}
	return &rootFlags
}

func TestCollectSources_PositionalPattern(t *testing.T) {
	v := resetFlags()
	sources, files, err := collectSources(v, []string{"needle", "a.txt", "b.txt"})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "needle", sources[0].Text)
	assert.Equal(t, []string{"a.txt", "b.txt"}, files)
}

func TestCollectSources_NoPatternIsAnError(t *testing.T) {
	v := resetFlags()
	_, _, err := collectSources(v, nil)
	assert.Error(t, err)
}

func TestCollectSources_ExplicitExprsLeaveAllArgsAsFiles(t *testing.T) {
	v := resetFlags()
	v.patternExprs = []string{"foo", "bar"}
	sources, files, err := collectSources(v, []string{"a.txt", "b.txt"})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, []string{"a.txt", "b.txt"}, files)
}

func TestCollectSources_PatternFile(t *testing.T) {
	v := resetFlags()
	path := filepath.Join(t.TempDir(), "patterns.txt")
	require.NoError(t, os.WriteFile(path, []byte("foo\nbar\n"), 0o644))
	v.patternFiles = []string{path}

	sources, files, err := collectSources(v, []string{"target.txt"})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "foo\nbar\n", sources[0].Text)
	assert.Equal(t, []string{"target.txt"}, files)
}

func TestResolveDialect_Precedence(t *testing.T) {
	v := resetFlags()
	assert.Equal(t, types.Basic, resolveDialect(v))

	v.extendedRegexp = true
	assert.Equal(t, types.Extended, resolveDialect(v))

	v.perlRegexp = true
	assert.Equal(t, types.Perl, resolveDialect(v))

	v.fixedStrings = true
	assert.Equal(t, types.FixedStrings, resolveDialect(v))
}

func TestResolveBinaryPolicy(t *testing.T) {
	v := resetFlags()
	assert.Equal(t, buffer.BinaryFilesBinary, resolveBinaryPolicy(v))

	v.binaryFiles = "without-match"
	assert.Equal(t, buffer.BinaryFilesWithoutMatch, resolveBinaryPolicy(v))

	v.text = true
	assert.Equal(t, buffer.BinaryFilesText, resolveBinaryPolicy(v))

	v2 := resetFlags()
	v2.skipBinary = true
	assert.Equal(t, buffer.BinaryFilesWithoutMatch, resolveBinaryPolicy(v2))
}

func TestResolveColorEnabled(t *testing.T) {
	assert.True(t, resolveColorEnabled("always"))
	assert.False(t, resolveColorEnabled("never"))
}

func TestResolveWithFilename(t *testing.T) {
	v := resetFlags()
	assert.False(t, resolveWithFilename(v, []string{"one.txt"}, false))
	assert.True(t, resolveWithFilename(v, []string{"one.txt", "two.txt"}, false))
	assert.True(t, resolveWithFilename(v, []string{"one.txt"}, true))

	v.noFilename = true
	assert.False(t, resolveWithFilename(v, []string{"one.txt", "two.txt"}, true))
}

func TestParallelCompatible(t *testing.T) {
	good := configOptionsFixture()
	assert.True(t, parallelCompatible(good))

	withContext := good
	withContext.BeforeContext = 2
	assert.False(t, parallelCompatible(withContext))
}

func TestBuildExcludeFunc_ExcludeGlob(t *testing.T) {
	root := t.TempDir()
	v := resetFlags()
	v.exclude = []string{"*.log"}
	exclude := buildExcludeFunc(v, root)

	assert.True(t, exclude(filepath.Join(root, "debug.log"), false))
	assert.False(t, exclude(filepath.Join(root, "main.go"), false))
}

func TestBuildExcludeFunc_IncludeIsAWhitelist(t *testing.T) {
	root := t.TempDir()
	v := resetFlags()
	v.include = []string{"*.go"}
	exclude := buildExcludeFunc(v, root)

	assert.False(t, exclude(filepath.Join(root, "main.go"), false))
	assert.True(t, exclude(filepath.Join(root, "README.md"), false))
}
