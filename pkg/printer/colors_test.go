package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGREPColors_Defaults(t *testing.T) {
	caps, userSet := parseGREPColors("")
	assert.Equal(t, "01;31", caps["ms"])
	assert.Equal(t, "35", caps["fn"])
	assert.Empty(t, userSet)
}

func TestParseGREPColors_OverridesDefault(t *testing.T) {
	caps, userSet := parseGREPColors("ms=01;32:fn=34")
	assert.Equal(t, "01;32", caps["ms"])
	assert.Equal(t, "34", caps["fn"])
	assert.True(t, userSet["ms"])
	assert.True(t, userSet["fn"])
	assert.False(t, userSet["mc"])
}

func TestParseGREPColors_MTSetsBothMatchCapabilities(t *testing.T) {
	caps, userSet := parseGREPColors("mt=01;33")
	assert.Equal(t, "01;33", caps["ms"])
	assert.Equal(t, "01;33", caps["mc"])
	assert.True(t, userSet["ms"])
	assert.True(t, userSet["mc"])
}

func TestParseGREPColors_LaterEntryWins(t *testing.T) {
	caps, _ := parseGREPColors("mt=01;33:ms=01;35")
	assert.Equal(t, "01;35", caps["ms"])
	assert.Equal(t, "01;33", caps["mc"])
}

func TestNewColorScheme_LegacyGREPColorFallback(t *testing.T) {
	t.Setenv("GREP_COLORS", "")
	t.Setenv("GREP_COLOR", "01;36")
	s := NewColorScheme(true)
	assert.NotNil(t, s.Match)

	// An explicit ms capability beats the legacy variable.
	t.Setenv("GREP_COLORS", "ms=01;32")
	s = NewColorScheme(true)
	assert.NotNil(t, s.Match)
}
