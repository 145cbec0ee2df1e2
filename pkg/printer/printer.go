package printer

import (
	"fmt"

	"github.com/grepcore/grepcore/pkg/engine"
	"github.com/grepcore/grepcore/pkg/sink"
)

// Options controls head-field formatting and the middle-phase rendering.
type Options struct {
	WithFilename bool
	LineNumber   bool
	ByteOffset   bool
	OnlyMatching bool
	Color        bool
	Separator    byte // ':' for a matching line, '-' for context
}

// Printer renders each emitted line in three phases: head (filename, line
// number, byte offset), middle (match coloring / -o), and tail.
type Printer struct {
	Out     sink.Sink
	Colors  *ColorScheme
	Opts    Options
	Eng     *engine.Engine // used to re-locate intra-line matches for coloring/-o
	lastPos int64          // byte offset of the last position line-counting scanned up to
}

// New builds a Printer writing through out.
func New(out sink.Sink, colors *ColorScheme, opts Options, eng *engine.Engine) *Printer {
	return &Printer{Out: out, Colors: colors, Opts: opts, Eng: eng}
}

// PrintLine renders one matching (or context) line. filename and
// lineNumber/byteOffset are supplied by the driver, which owns the
// per-file running counters (buffer.Buffer.LineCount/ByteOffset); line is
// the raw line content without its trailing EOL byte. matchSpan is the
// match within line, or nil for context lines (no middle-phase coloring).
func (p *Printer) PrintLine(filename string, lineNumber int64, byteOffset int64, line []byte, matchSpan *[2]int) error {
	if p.Opts.OnlyMatching && matchSpan == nil {
		// -o emits nothing for a line with no located match (context or
		// inverted selection).
		return nil
	}
	if err := p.head(filename, lineNumber, byteOffset); err != nil {
		return err
	}
	if err := p.middle(line, matchSpan); err != nil {
		return err
	}
	if p.Opts.OnlyMatching {
		// middle already terminated each matched fragment with its own EOL.
		return nil
	}
	return p.tail()
}

func (p *Printer) head(filename string, lineNumber, byteOffset int64) error {
	sepColor := p.Colors.Separator

	if p.Opts.WithFilename && filename != "" {
		if _, err := p.write(p.Colors.Filename.Sprint(filename)); err != nil {
			return err
		}
		if _, err := p.write(sepColor.Sprint(string(p.Opts.Separator))); err != nil {
			return err
		}
	}
	if p.Opts.LineNumber {
		if _, err := p.write(p.Colors.LineNumber.Sprint(fmt.Sprintf("%d", lineNumber))); err != nil {
			return err
		}
		if _, err := p.write(sepColor.Sprint(string(p.Opts.Separator))); err != nil {
			return err
		}
	}
	if p.Opts.ByteOffset {
		if _, err := p.write(p.Colors.ByteOffset.Sprint(fmt.Sprintf("%d", byteOffset))); err != nil {
			return err
		}
		if _, err := p.write(sepColor.Sprint(string(p.Opts.Separator))); err != nil {
			return err
		}
	}
	return nil
}

// middle renders the line body, locating every intra-line match via the
// match engine when coloring or -o is requested: print the uncolored
// interval preceding the match, the colored match, then continue from the
// match end. An empty match advances one byte and defers emission until a
// non-empty match or end-of-line.
func (p *Printer) middle(line []byte, matchSpan *[2]int) error {
	if matchSpan == nil || (!p.Opts.Color && !p.Opts.OnlyMatching) {
		_, err := p.write(string(line))
		return err
	}

	pos := 0
	cur := *matchSpan
	for {
		if !p.Opts.OnlyMatching && cur[0] > pos {
			if _, err := p.write(string(line[pos:cur[0]])); err != nil {
				return err
			}
		}
		// An empty match emits nothing under -o; the advance below keeps
		// the scan progressing one byte at a time until a non-empty match
		// or end-of-line.
		if !p.Opts.OnlyMatching || cur[1] > cur[0] {
			matchText := string(line[cur[0]:cur[1]])
			if _, err := p.write(p.Colors.Match.Sprint(matchText)); err != nil {
				return err
			}
			if p.Opts.OnlyMatching {
				if _, err := p.write("\n"); err != nil {
					return err
				}
			}
		}
		pos = cur[1]

		if p.Eng == nil || pos >= len(line) {
			break
		}
		next, state, err := p.findNextMatch(line, pos)
		if err != nil {
			return err
		}
		if state != engine.Accept {
			break
		}
		if next[0] == next[1] {
			next[0]++
			next[1]++
			if next[0] > len(line) {
				break
			}
		}
		cur = next
	}

	if !p.Opts.OnlyMatching && pos < len(line) {
		if _, err := p.write(string(line[pos:])); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) findNextMatch(line []byte, from int) ([2]int, engine.State, error) {
	span, state, err := p.Eng.MatchLine(line[from:])
	if err != nil || state != engine.Accept {
		return [2]int{}, state, err
	}
	return [2]int{from + span.Start, from + span.End}, state, nil
}

func (p *Printer) tail() error {
	_, err := p.write("\n")
	return err
}

func (p *Printer) write(s string) (int, error) {
	return p.Out.Write([]byte(s))
}

// BinaryNotice prints the synthetic "binary file matches" line for a file
// declared binary when at least one match occurred.
func (p *Printer) BinaryNotice(filename string) error {
	_, err := p.write(fmt.Sprintf("Binary file %s matches\n", filename))
	return err
}

// GroupSeparator prints the "--" group separator line, emitted between two
// context/match groups that are not contiguous in the input. Never emitted
// in parallel mode.
func (p *Printer) GroupSeparator() error {
	_, err := p.write("--\n")
	return err
}

// PrintContextLine renders a context line (the "-" separator variant of
// -A/-B/-C) with no match coloring, since context lines by definition did
// not match.
func (p *Printer) PrintContextLine(filename string, lineNumber int64, byteOffset int64, line []byte) error {
	saved := p.Opts.Separator
	p.Opts.Separator = '-'
	defer func() { p.Opts.Separator = saved }()
	return p.PrintLine(filename, lineNumber, byteOffset, line, nil)
}
