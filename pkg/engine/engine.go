// Package engine ties the match cascade together: keyword prefilter, then
// superset DFA, then primary DFA, then the regex array — expressed as an
// explicit state machine. The ordering is a contract: the expensive regex
// stage only ever runs on lines the cheaper stages confirmed as candidates.
package engine

import (
	"fmt"

	"github.com/grepcore/grepcore/pkg/dfa"
	"github.com/grepcore/grepcore/pkg/prefilter"
	"github.com/grepcore/grepcore/pkg/regexfallback"
	"github.com/grepcore/grepcore/pkg/types"
)

// State names the cascade stage the engine is in for one candidate line.
type State int

const (
	Searching State = iota
	KwHit
	DFAHit
	RegexNeeded
	Accept
	Fail
)

// Engine ties the three layers together. Superset is non-nil only when the
// pattern set contains a back-reference; DFA is non-nil whenever Hyperscan
// could compile the joined pattern at all. Regex is always present: it is
// both the final fallback and the sole source of exact match spans the
// earlier, coarser stages cannot provide.
type Engine struct {
	KW       *prefilter.KeywordSet
	DFA      *dfa.DFA
	Superset *dfa.DFA
	Regex    *regexfallback.Array
	EOL      byte
}

// New builds an Engine from the compiled artifacts of a Pattern Set.
func New(eol byte, kw *prefilter.KeywordSet, d, superset *dfa.DFA, regex *regexfallback.Array) *Engine {
	return &Engine{KW: kw, DFA: d, Superset: superset, Regex: regex, EOL: eol}
}

// MatchLine runs the cascade over a single line (no trailing EOL byte
// included) and returns the match span within it; a Fail state means the
// line does not match. This is the unit both Next (forward search) and
// invert-mode full-buffer scanning are built from.
func (e *Engine) MatchLine(line []byte) (types.Span, State, error) {
	if e.KW != nil && !e.KW.Empty() {
		hits := e.KW.Scan(line)
		if len(hits) == 0 {
			return types.Span{}, Fail, nil
		}
		hit := hits[0]
		if hit.Exact {
			// An exact keyword hit confirms the whole pattern on its own;
			// no DFA or regex confirmation needed.
			return types.Span{Start: hit.Start, End: hit.End}, Accept, nil
		}
	}

	if e.Superset != nil {
		_, ok, err := e.Superset.Scan(line)
		if err != nil {
			return types.Span{}, Fail, fmt.Errorf("superset DFA: %w", err)
		}
		if !ok {
			return types.Span{}, Fail, nil
		}
	}

	if e.DFA != nil {
		_, ok, err := e.DFA.Scan(line)
		if err != nil {
			return types.Span{}, Fail, fmt.Errorf("DFA: %w", err)
		}
		if !ok {
			return types.Span{}, Fail, nil
		}
	}

	// Only the regex array can report an exact start, so it always runs
	// once the coarser stages have confirmed a candidate. This is also
	// where whole-word/whole-line semantics and back-reference patterns
	// are actually resolved.
	res, ok, err := e.Regex.Search(line, 0)
	if err != nil {
		return types.Span{}, Fail, fmt.Errorf("regex array: %w", err)
	}
	if !ok {
		return types.Span{}, Fail, nil
	}
	return res.Span, Accept, nil
}

// Next finds the next matching line at or after byte offset `from` in buf,
// splitting on EOL. It returns the line's span (including neither the
// leading position before `from` nor the trailing EOL byte) and the match
// span within it, both expressed as absolute offsets into buf.
func (e *Engine) Next(buf []byte, from int) (types.LineMatch, bool, error) {
	pos := from
	for pos <= len(buf) {
		lineEnd := indexEOL(buf, pos, e.EOL)
		span, state, err := e.MatchLine(buf[pos:lineEnd])
		if err != nil {
			return types.LineMatch{}, false, err
		}
		if state == Accept {
			return types.LineMatch{
				Line:  types.Span{Start: pos, End: lineEnd},
				Match: types.Span{Start: pos + span.Start, End: pos + span.End},
			}, true, nil
		}
		if lineEnd >= len(buf) {
			break
		}
		pos = lineEnd + 1 // past the EOL byte
	}
	return types.LineMatch{}, false, nil
}

func indexEOL(buf []byte, from int, eol byte) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == eol {
			return i
		}
	}
	return len(buf)
}
