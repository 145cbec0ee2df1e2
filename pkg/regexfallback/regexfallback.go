// Package regexfallback implements the "regex array": the only engine in
// the cascade that understands back-references and the only one that
// reports an exact match start. The engine runs it on every line the
// earlier stages pass, unless an exact keyword hit has already accepted the
// line; a primary-DFA hit alone never accepts a line. Built on
// github.com/dlclark/regexp2, since Hyperscan (the dfa package) cannot
// execute back-references at all.
package regexfallback

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/grepcore/grepcore/pkg/types"
)

// Array is the per-pattern compiled regexp2 array. Each worker in parallel
// mode owns its own Array because regexp2's match state is mutable and
// cannot be shared across goroutines.
type Array struct {
	patterns  []types.Pattern
	compiled  []*regexp2.Regexp
	wholeWord bool
	wholeLine bool
}

// Compile builds one regexp2.Regexp per pattern, unwrapped (no -w/-x
// wrapper) so word-boundary resolution can iterate through each pattern's
// alternatives individually.
func Compile(set *types.Set) (*Array, error) {
	a := &Array{
		patterns:  set.Patterns,
		compiled:  make([]*regexp2.Regexp, len(set.Patterns)),
		wholeWord: set.WholeWord,
		wholeLine: set.WholeLine,
	}
	for i, p := range set.Patterns {
		re, err := regexp2.Compile(p.Translated, regexp2.RE2|regexp2.Multiline)
		if err != nil {
			// Back-reference patterns are invalid RE2; retry in full
			// (Perl-compatible, backtracking) mode.
			re, err = regexp2.Compile(p.Translated, regexp2.Multiline)
			if err != nil {
				return nil, fmt.Errorf("pattern %d: %w", i, err)
			}
		}
		re.MatchTimeout = 5 * time.Second
		a.compiled[i] = re
	}
	return a, nil
}

// Result is the winning match across the whole pattern array: earliest
// start, longest on a tie.
type Result struct {
	Span  types.Span
	Index int // which pattern matched
}

// Search finds the best match in buf starting at or after from, applying
// whole-word/whole-line semantics. Returns false if no pattern matches
// anywhere in [from, len(buf)).
func (a *Array) Search(buf []byte, from int) (Result, bool, error) {
	text := string(buf)
	var best Result
	found := false

	for i, re := range a.compiled {
		m, err := re.FindStringMatch(text[from:])
		if err != nil {
			return Result{}, false, fmt.Errorf("pattern %d: %w", i, err)
		}
		for m != nil {
			start := from + m.Index
			end := start + m.Length

			// The passed-in buf is always exactly one EOL-split record, so
			// whole-line means spanning all of it; scanning for interior
			// newline bytes would find false boundaries in NUL-delimited
			// records that contain '\n' as ordinary data.
			if a.wholeLine && !(start == 0 && end == len(buf)) {
				m, err = re.FindNextMatch(m)
				if err != nil {
					return Result{}, false, err
				}
				continue
			}
			if a.wholeWord && !isWordBoundaryMatch(buf, start, end) {
				m, err = re.FindNextMatch(m)
				if err != nil {
					return Result{}, false, err
				}
				continue
			}

			cand := Result{Span: types.Span{Start: start, End: end}, Index: i}
			if !found || better(cand, best) {
				best, found = cand, true
			}
			break
		}
	}
	return best, found, nil
}

// better reports whether cand beats incumbent under "earliest start wins,
// longest match on equal start".
func better(cand, incumbent Result) bool {
	if cand.Span.Start != incumbent.Span.Start {
		return cand.Span.Start < incumbent.Span.Start
	}
	return cand.Span.Len() > incumbent.Span.Len()
}

// isWordBoundaryMatch checks both neighbors of [start, end) are non-word
// bytes.
func isWordBoundaryMatch(buf []byte, start, end int) bool {
	if start > 0 && isWordByte(buf[start-1]) {
		return false
	}
	if end < len(buf) && isWordByte(buf[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
