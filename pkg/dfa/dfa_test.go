package dfa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grepcore/grepcore/pkg/types"
)

// These three helpers live in backreference.go with no Hyperscan
// dependency, so they are exercised here without requiring a Hyperscan
// runtime (cgo or the hyperscan build tag) — Compile/Scan/Clone themselves
// need a real Hyperscan shared library and are tested in
// dfa_hyperscan_test.go, which only builds under cgo with the hyperscan tag.

func TestWidenBackreferences(t *testing.T) {
	assert.Equal(t, "(a).*?", widenBackreferences(`(a)\1`))
	assert.Equal(t, "abc", widenBackreferences("abc"))
	assert.Equal(t, ".*?.*?", widenBackreferences(`\1\2`))
}

func TestHasBackreference(t *testing.T) {
	withRef := &types.Set{Patterns: []types.Pattern{{Translated: `(a)\1`}}}
	assert.True(t, hasBackreference(withRef))

	without := &types.Set{Patterns: []types.Pattern{{Translated: `abc`}, {Translated: `d+`}}}
	assert.False(t, hasBackreference(without))
}

func TestIsASCIIOnly(t *testing.T) {
	ascii := &types.Set{Patterns: []types.Pattern{{Translated: "abc"}}}
	assert.True(t, isASCIIOnly(ascii))

	nonASCII := &types.Set{Patterns: []types.Pattern{{Translated: "café"}}}
	assert.False(t, isASCIIOnly(nonASCII))
}
