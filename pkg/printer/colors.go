// Package printer implements the line printer: head, middle, and tail
// phases for each emitted line, with match coloring behind a ColorScheme fed
// by GREP_COLORS/GREP_COLOR. Builds a *color.Color per semantic role
// (filename, line number, separator, match) from github.com/fatih/color and
// disables all of them uniformly when color output is off.
package printer

import (
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// ColorScheme is the narrow, externally-fed set of SGR capabilities:
// grepcore only selects which capability applies to which field, never how
// a capability renders to an escape sequence.
type ColorScheme struct {
	Filename   *color.Color
	LineNumber *color.Color
	ByteOffset *color.Color
	Separator  *color.Color
	Match      *color.Color
	Selected   *color.Color // selected-line SGR (the "sl" capability)
	Context    *color.Color // context-line SGR (the "cx" capability)
}

// defaultCapabilities mirrors GNU grep's built-in GREP_COLORS default.
var defaultCapabilities = map[string]string{
	"ms": "01;31", // matching text, selected line
	"mc": "01;31", // matching text, context line
	"sl": "",      // selected line
	"cx": "",      // context line
	"fn": "35",    // filename
	"ln": "32",    // line number
	"se": "36",    // separator
	"bn": "32",    // byte offset
}

// NewColorScheme builds a ColorScheme from the GREP_COLORS environment
// variable (falling back to the legacy GREP_COLOR for the "ms"/"mc"
// capability alone), disabling every formatter together when enabled is
// false.
func NewColorScheme(enabled bool) *ColorScheme {
	caps, userSet := parseGREPColors(os.Getenv("GREP_COLORS"))
	if legacy, ok := os.LookupEnv("GREP_COLOR"); ok && !userSet["ms"] {
		caps["ms"] = legacy
		caps["mc"] = legacy
	}

	s := &ColorScheme{
		Filename:   sgrColor(caps["fn"]),
		LineNumber: sgrColor(caps["ln"]),
		ByteOffset: sgrColor(caps["bn"]),
		Separator:  sgrColor(caps["se"]),
		Match:      sgrColor(caps["ms"]),
		Selected:   sgrColor(caps["sl"]),
		Context:    sgrColor(caps["cx"]),
	}
	if !enabled {
		for _, c := range []*color.Color{s.Filename, s.LineNumber, s.ByteOffset, s.Separator, s.Match, s.Selected, s.Context} {
			c.DisableColor()
		}
	}
	return s
}

// parseGREPColors parses the colon-separated capability=value dictionary of
// GREP_COLORS, seeded with the default dictionary for unset entries. The
// second return value records which capabilities the environment actually
// set, so the legacy GREP_COLOR fallback can tell a default apart from a
// user choice.
func parseGREPColors(env string) (map[string]string, map[string]bool) {
	caps := make(map[string]string, len(defaultCapabilities))
	for k, v := range defaultCapabilities {
		caps[k] = v
	}
	userSet := make(map[string]bool)
	for _, entry := range strings.Split(env, ":") {
		if entry == "" {
			continue
		}
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "mt" {
			// mt is the combined matching-text capability: it sets both
			// ms (selected line) and mc (context line) at once.
			caps["ms"], caps["mc"] = v, v
			userSet["ms"], userSet["mc"] = true, true
			continue
		}
		caps[k] = v
		userSet[k] = true
	}
	return caps, userSet
}

// sgrColor turns a semicolon-separated list of SGR parameters (e.g.
// "01;31") into a *color.Color. Unknown or empty specs yield a
// no-attribute Color so callers never need a nil check.
func sgrColor(spec string) *color.Color {
	c := color.New()
	if spec == "" {
		c.DisableColor()
		return c
	}
	for _, field := range strings.Split(spec, ";") {
		n, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		c.Add(color.Attribute(n))
	}
	return c
}
