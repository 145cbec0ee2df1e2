package compiler

import (
	"strings"

	"github.com/grepcore/grepcore/pkg/types"
)

// translate rewrites pat from its source dialect into the canonical Perl-ish
// regex syntax both the DFA layer (Hyperscan, which speaks a PCRE subset)
// and the regex-array fallback (regexp2) compile directly. Translation
// happens per-pattern so a syntax error stays local to its originating
// pattern.
func translate(pat string, d types.Dialect) string {
	switch d {
	case types.FixedStrings:
		return quoteLiteral(pat)
	case types.Basic:
		return translateBRE(pat)
	case types.Extended, types.Awk, types.GNUAwk, types.POSIXAwk, types.Perl:
		// ERE and its awk-family derivatives are already metachar-compatible
		// with the Perl-ish target grammar for the subset this repo
		// supports; perl patterns pass through unchanged. Treating
		// awk/gnu-awk/posix-awk identically to extended is a deliberate
		// simplification; their escape-handling
		// differences from ERE proper do not affect the match cascade.
		return pat
	default:
		return pat
	}
}

// quoteLiteral escapes every regex metacharacter so the result matches pat
// literally.
func quoteLiteral(pat string) string {
	var b strings.Builder
	for _, r := range pat {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// quoteLiteralBRE escapes pat so it matches literally when parsed as a
// basic regular expression and then run through translateBRE. Only the
// characters special in BRE are escaped; (){}|+? are literal in BRE when
// unescaped, and translateBRE is what re-escapes them for the target
// grammar.
func quoteLiteralBRE(pat string) string {
	var b strings.Builder
	for _, r := range pat {
		if strings.ContainsRune(`\.*[]^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// translateBRE rewrites POSIX Basic Regular Expression syntax (the dialect
// of plain grep) into the target grammar: \( \) \{ \} \| \+ \? become the
// metacharacters ( ) { } | + ?, and their unescaped counterparts become
// literal.
func translateBRE(pat string) string {
	var b strings.Builder
	runes := []rune(pat)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '\\' && i+1 < len(runes) {
			next := runes[i+1]
			switch next {
			case '(', ')', '{', '}', '|', '+', '?':
				b.WriteRune(next)
				i++
				continue
			default:
				b.WriteRune(c)
				b.WriteRune(next)
				i++
				continue
			}
		}
		switch c {
		case '(', ')', '{', '}', '|', '+', '?':
			b.WriteByte('\\')
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
