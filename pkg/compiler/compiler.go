// Package compiler turns a newline-separated pattern blob (-e/-f sources)
// into an immutable types.Set plus the must-list every downstream engine
// (dfa, prefilter, regexfallback) is built from.
package compiler

import (
	"fmt"
	"regexp/syntax"
	"strings"
	"unicode/utf8"

	"github.com/grepcore/grepcore/pkg/diag"
	"github.com/grepcore/grepcore/pkg/types"
)

// Source is one -e PATTERN or -f FILE argument, kept separate so compile
// errors can be attributed to "filename:lineno".
type Source struct {
	Text  string // raw blob, possibly many newline-separated patterns
	Label string // "-e", a -f path, or "-" read from stdin
}

// Options carries the compiler flags.
type Options struct {
	Dialect          types.Dialect
	IgnoreCase       bool
	WholeWord        bool
	WholeLine        bool
	ZMode            bool // -z: end-of-line byte is NUL instead of '\n'
	SingleByteLocale bool // true under e.g. "C" locale; affects promotion rule (1)
}

// Compile builds the pattern set, the pattern array the regex fallback
// compiles from, and the must-list the prefilter is built from. Any
// per-pattern compile failure aborts with a *diag.Error carrying the
// resolved source:line; the caller exits with status 2.
func Compile(sources []Source, opts Options) (*types.Set, types.MustList, error) {
	eol := byte('\n')
	if opts.ZMode {
		eol = 0
	}

	var patterns []types.Pattern
	for _, src := range sources {
		lines := splitLines(src.Text, eol)
		if len(lines) == 0 && src.Label == "-e" {
			// -e '' (or an empty positional PATTERN) is one empty pattern,
			// which matches every line.
			lines = []string{""}
		}
		for i, line := range lines {
			patterns = append(patterns, types.Pattern{
				Text:       line,
				Source:     src.Label,
				SourceLine: i + 1,
			})
		}
	}
	// boundary case: an empty pattern file contributes no pattern, so the set
	// stays empty and matches nothing.

	dialect := resolveDialect(patterns, opts)

	for i := range patterns {
		p := &patterns[i]
		if err := validateEncoding(p.Text, dialect); err != nil {
			return nil, types.MustList{}, diag.PatternError(p.Source, p.SourceLine, err)
		}
		translated := translate(p.Text, dialect)
		if opts.IgnoreCase {
			translated = "(?i)" + translated
		}
		if _, err := compileCheck(translated); err != nil {
			return nil, types.MustList{}, diag.PatternError(p.Source, p.SourceLine, err)
		}
		p.Translated = translated
	}

	joined := joinAlternation(patterns)
	if opts.WholeLine {
		joined = "^(?:" + joined + ")$"
	} else if opts.WholeWord {
		joined = `\b(?:` + joined + `)\b`
	}

	set := &types.Set{
		Patterns:   patterns,
		Dialect:    dialect,
		IgnoreCase: opts.IgnoreCase,
		WholeWord:  opts.WholeWord,
		WholeLine:  opts.WholeLine,
		EOL:        eol,
		Joined:     joined,
	}

	must := extractMustList(patterns)
	return set, must, nil
}

func joinAlternation(patterns []types.Pattern) string {
	parts := make([]string, len(patterns))
	for i, p := range patterns {
		parts[i] = "(?:" + p.Translated + ")"
	}
	return strings.Join(parts, "|")
}

func splitLines(blob string, eol byte) []string {
	if blob == "" {
		return nil
	}
	sep := string(eol)
	trimmed := strings.TrimSuffix(blob, sep)
	if trimmed == "" {
		return []string{""}
	}
	return strings.Split(trimmed, sep)
}

// resolveDialect applies the deterministic fixed-strings promotion rules.
func resolveDialect(patterns []types.Pattern, opts Options) types.Dialect {
	if opts.Dialect != types.FixedStrings {
		return opts.Dialect
	}
	// Rule (1): single-byte locale with -w.
	if opts.SingleByteLocale && opts.WholeWord {
		return promoteFixed(patterns)
	}
	// Rule (2): multibyte locale with an encoding error in any pattern.
	for _, p := range patterns {
		if !utf8.ValidString(p.Text) {
			return promoteFixed(patterns)
		}
	}
	// Rule (3): ignore_case requested but not cheaply achievable — i.e. the
	// literal contains non-ASCII, so a byte-wise case fold is unsafe.
	if opts.IgnoreCase {
		for _, p := range patterns {
			for _, r := range p.Text {
				if r > 0x7f {
					return promoteFixed(patterns)
				}
			}
		}
	}
	return types.FixedStrings
}

// promoteFixed rewrites every pattern's Text in place as a BRE-quoted
// literal and returns Basic; the normal BRE translation path then carries
// the quoting through to the target grammar.
func promoteFixed(patterns []types.Pattern) types.Dialect {
	for i := range patterns {
		patterns[i].Text = quoteLiteralBRE(patterns[i].Text)
	}
	return types.Basic
}

// compileCheck validates a translated pattern using the standard library's
// regex parser, catching syntax errors before either real engine (Hyperscan,
// regexp2) is invoked. A pattern using back-references is not valid Perl
// syntax under regexp/syntax either, so this check tolerates that one
// specific failure mode and defers to regexfallback to report it instead.
func compileCheck(translated string) (*syntax.Regexp, error) {
	re, err := syntax.Parse(translated, syntax.Perl)
	if err != nil && looksLikeBackreference(translated) {
		return nil, nil
	}
	return re, err
}

func looksLikeBackreference(pat string) bool {
	for i := 0; i+1 < len(pat); i++ {
		if pat[i] == '\\' && pat[i+1] >= '1' && pat[i+1] <= '9' {
			return true
		}
	}
	return false
}

func validateEncoding(pat string, d types.Dialect) error {
	if d == types.FixedStrings && !utf8.ValidString(pat) {
		return fmt.Errorf("invalid UTF-8 in pattern %q", pat)
	}
	return nil
}
