// Package prefilter implements the keyword set: a multi-string exact-match
// engine built from the pattern set's must-list, used as a
// necessary-condition prefilter before the DFA and regex stages run. Built
// on Aho-Corasick for multi-pattern exact matching, a necessary-condition
// pre-check over fixed substrings that never produces a false negative.
package prefilter

import (
	"sort"

	"github.com/cloudflare/ahocorasick"

	"github.com/grepcore/grepcore/pkg/types"
)

// Entry is one Keyword Set member, carrying the literal, whether a hit on
// it alone confirms the whole pattern, and the line-boundary anchoring that
// confirmation requires.
type Entry struct {
	Literal   string
	Exact     bool
	BeginLine bool // Exact hit only confirms the match when it starts the line
	EndLine   bool // Exact hit only confirms the match when it ends the line
}

// KeywordSet is the compiled multi-string matcher. Invariant:
// ExactCount() <= len(Entries).
type KeywordSet struct {
	entries []Entry
	matcher *ahocorasick.Matcher
}

// New builds a KeywordSet from a must-list. Entries whose literal is empty
// are dropped; if every entry is dropped, Empty() reports true and callers
// must skip the prefilter step entirely.
//
// Engine callers run the Keyword Set against one already-split line (no
// trailing EOL byte present), so begin-line/end-line anchoring for an exact
// entry is checked as a position constraint against the line's own bounds
// in Scan, not baked into the dictionary as literal EOL bytes the way a
// whole-buffer scan over the original byte stream would.
func New(must types.MustList) *KeywordSet {
	ks := &KeywordSet{}
	dict := make([]string, 0, len(must.Entries))
	for _, e := range must.Entries {
		if e.Literal == "" {
			continue
		}
		ks.entries = append(ks.entries, Entry{
			Literal:   e.Literal,
			Exact:     e.Exact,
			BeginLine: e.BeginLine,
			EndLine:   e.EndLine,
		})
		dict = append(dict, e.Literal)
	}
	if len(dict) > 0 {
		ks.matcher = ahocorasick.NewStringMatcher(dict)
	}
	return ks
}

// Empty reports whether the set has no usable literal, meaning the
// prefilter step must be skipped.
func (ks *KeywordSet) Empty() bool { return ks == nil || ks.matcher == nil }

// ExactCount returns how many compiled entries are exact-match.
func (ks *KeywordSet) ExactCount() int {
	n := 0
	for _, e := range ks.entries {
		if e.Exact {
			n++
		}
	}
	return n
}

// Hit is one keyword match location within a buffer window.
type Hit struct {
	Index int // index into ks.entries
	Start int
	End   int
	Exact bool
}

// Scan runs the keyword set against buf and returns every hit found, in
// ascending start-offset order. An empty result means "no match": the
// caller must not run the DFA or regex stages.
func (ks *KeywordSet) Scan(buf []byte) []Hit {
	if ks.Empty() {
		return nil
	}
	offsets := ks.matcher.Match(buf)
	if len(offsets) == 0 {
		return nil
	}
	hits := make([]Hit, 0, len(offsets))
	for _, idx := range offsets {
		if idx < 0 || idx >= len(ks.entries) {
			continue
		}
		e := ks.entries[idx]
		// cloudflare/ahocorasick reports pattern index only; locate the
		// first occurrence ourselves to get start/end offsets for the
		// "narrow begin back to the start of the line" step.
		start := indexLiteral(buf, e.Literal)
		if start < 0 {
			continue
		}
		end := start + len(e.Literal)
		exact := e.Exact
		if exact && e.BeginLine && start != 0 {
			exact = false
		}
		if exact && e.EndLine && end != len(buf) {
			exact = false
		}
		hits = append(hits, Hit{Index: idx, Start: start, End: end, Exact: exact})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Start < hits[j].Start })
	return hits
}

func indexLiteral(buf []byte, lit string) int {
	if lit == "" {
		return -1
	}
	n := len(lit)
	for i := 0; i+n <= len(buf); i++ {
		if string(buf[i:i+n]) == lit {
			return i
		}
	}
	return -1
}
