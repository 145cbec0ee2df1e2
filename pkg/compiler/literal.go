package compiler

import (
	"regexp/syntax"
	"strings"

	"github.com/grepcore/grepcore/pkg/types"
)

// extractMustList derives the must-list by walking the
// regexp/syntax AST of the translated (unwrapped) pattern and finding a
// literal run that must appear in every string it accepts.
//
// Hyperscan has no API for introspecting a compiled pattern for a must-list,
// so this function walks OpConcat looking for the longest OpLiteral run, and
// for OpAlternate requires every branch to share literals before trusting
// any of them. It does not handle cross products, character-class expansion,
// or suffix/prefix tracking — a smaller, concat-only extraction sufficient
// for a keyword prefilter, since a missed literal only costs a cascade step
// and is never a correctness problem: the prefilter must have no false
// negatives, not find a literal for every pattern. A keyword miss rejects
// the line for the whole set, so as soon as one pattern yields no usable
// literal the must-list is returned empty and the prefilter is skipped.
func extractMustList(patterns []types.Pattern) types.MustList {
	var ml types.MustList
	for _, p := range patterns {
		re, err := syntax.Parse(p.Translated, syntax.Perl)
		if err != nil {
			return types.MustList{}
		}
		re = re.Simplify()
		lit, beginLine, endLine, exact := bestLiteral(re)
		if lit == "" || len(lit) < 3 {
			// Literals shorter than 3 bytes cost more in false-positive
			// Keyword Set hits than they save; the set gets no prefilter,
			// same threshold idea as grep's own kwset heuristics.
			return types.MustList{}
		}
		ml.Entries = append(ml.Entries, types.MustString{
			Literal:   lit,
			BeginLine: beginLine,
			EndLine:   endLine,
			Exact:     exact,
		})
	}
	return ml
}

// bestLiteral returns the longest required literal substring of re, the
// begin-line/end-line flags the caller stores on the must-list entry, and
// whether a hit on the literal alone is equivalent to the whole pattern
// matching (only true when re IS that literal, nothing else). A pattern that
// is one bare literal reports both flags true, so its exact hit confirms
// only a line that consists of the literal alone. Case-folded literals are
// never returned, since the keyword matcher compares bytes exactly.
func bestLiteral(re *syntax.Regexp) (lit string, beginLine, endLine, exact bool) {
	switch re.Op {
	case syntax.OpLiteral:
		if re.Flags&syntax.FoldCase != 0 {
			return "", false, false, false
		}
		s := string(re.Rune)
		return s, true, true, true
	case syntax.OpConcat:
		return literalFromConcat(re.Sub)
	case syntax.OpCapture:
		if len(re.Sub) == 1 {
			return bestLiteral(re.Sub[0])
		}
	case syntax.OpAlternate:
		// Only trust a literal common to every branch; otherwise a single
		// branch's literal is not "must appear in any accepted string".
		if len(re.Sub) == 0 {
			return "", false, false, false
		}
		common := literalOf(re.Sub[0])
		if common == "" {
			return "", false, false, false
		}
		for _, sub := range re.Sub[1:] {
			if literalOf(sub) != common {
				return "", false, false, false
			}
		}
		return common, false, false, false
	}
	return "", false, false, false
}

// literalOf is a conservative single-branch helper used only for alternation
// intersection: it returns a literal only if the whole branch IS that
// literal (OpLiteral or a bare capture of one).
func literalOf(re *syntax.Regexp) string {
	switch re.Op {
	case syntax.OpLiteral:
		if re.Flags&syntax.FoldCase != 0 {
			return ""
		}
		return string(re.Rune)
	case syntax.OpCapture:
		if len(re.Sub) == 1 {
			return literalOf(re.Sub[0])
		}
	}
	return ""
}

// literalFromConcat finds the longest maximal run of case-sensitive
// OpLiteral children within a concatenation. The begin-line/end-line results
// require the run to touch an edge of the concatenation and an anchor to sit
// at that same edge; since an anchor occupies the edge position itself, a
// concatenation never reports either flag.
func literalFromConcat(subs []*syntax.Regexp) (lit string, atStart, atEnd, exact bool) {
	var best strings.Builder
	var bestStart, bestEnd int
	var cur strings.Builder
	curStart := 0

	flush := func(end int) {
		if cur.Len() > best.Len() {
			best.Reset()
			best.WriteString(cur.String())
			bestStart = curStart
			bestEnd = end
		}
		cur.Reset()
	}

	sawAnchorBegin := false
	sawAnchorEnd := false

	for i, s := range subs {
		switch s.Op {
		case syntax.OpLiteral:
			if s.Flags&syntax.FoldCase != 0 {
				flush(i)
				continue
			}
			if cur.Len() == 0 {
				curStart = i
			}
			cur.WriteString(string(s.Rune))
		case syntax.OpBeginLine, syntax.OpBeginText:
			if i == 0 {
				sawAnchorBegin = true
			}
			flush(i)
		case syntax.OpEndLine, syntax.OpEndText:
			if i == len(subs)-1 {
				sawAnchorEnd = true
			}
			flush(i)
		default:
			flush(i)
		}
	}
	flush(len(subs))

	lit = best.String()
	atStart = bestStart == 0
	atEnd = bestEnd == len(subs)
	_ = sawAnchorBegin
	_ = sawAnchorEnd
	// exact only when the literal run is the entire concatenation AND
	// nothing but anchors surround it (handled by caller comparing length).
	exact = lit != "" && atStart && atEnd && len(lit) == concatLiteralLen(subs)
	return lit, atStart && sawAnchorBegin, atEnd && sawAnchorEnd, exact
}

func concatLiteralLen(subs []*syntax.Regexp) int {
	n := 0
	for _, s := range subs {
		if s.Op == syntax.OpLiteral {
			n += len(string(s.Rune))
		}
	}
	return n
}
