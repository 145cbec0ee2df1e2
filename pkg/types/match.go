package types

// Span is a byte range [Start, End) within a buffer window, half-open.
type Span struct {
	Start int
	End   int
}

// Len reports the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Empty reports whether the span covers zero bytes; the match engine must
// advance by at least one byte after an empty match to guarantee progress.
func (s Span) Empty() bool { return s.Start == s.End }

// LineMatch is one matching (or, under -v, non-matching) line located by
// the match engine: the line's byte span within the current buffer window,
// and the span of the regex match itself for colorization/-o.
type LineMatch struct {
	Line  Span // [start of line, the line's EOL byte or EOF): the EOL byte is excluded
	Match Span // the located match within Line, possibly == Line for whole-line dialects
}
