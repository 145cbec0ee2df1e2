// Package driver implements the top-level per-file orchestration:
// device/directory policy, the stdin self-reference check, and exit-status
// aggregation, wiring together pkg/buffer, pkg/engine, and pkg/printer for
// the sequential path (pkg/traverse replaces this loop when parallel
// recursion is in effect).
package driver

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/grepcore/grepcore/pkg/buffer"
	"github.com/grepcore/grepcore/pkg/diag"
	"github.com/grepcore/grepcore/pkg/engine"
	"github.com/grepcore/grepcore/pkg/printer"
	"github.com/grepcore/grepcore/pkg/sink"
)

// Mode selects the per-file output shape (-c/-l/-L).
type Mode int

const (
	ModeNormal Mode = iota
	ModeCountOnly
	ModeListMatching
	ModeListNonMatching
)

// Driver runs the match engine over a set of file paths.
type Driver struct {
	Engine   *engine.Engine
	Printer  *printer.Printer
	Out      sink.Sink
	Log      diag.Logger
	Mode     Mode
	Invert   bool
	MaxCount int // 0 = unlimited
	Quiet    bool
	NoMessages bool // -s: per-file errors are silent but still affect exit status
	WithFilename bool
	Binary   buffer.BinaryPolicy

	// BeforeContext/AfterContext are -B/-A (or both, via -C). Context is
	// sequential-only; parallel traversal never enables it. Zero disables
	// context entirely.
	BeforeContext int
	AfterContext  int

	stdoutDev, stdoutIno uint64
	stdoutIsRegular      bool
}

// contextLine is one buffered non-selected line kept around in case a
// later match needs it as leading context, or emitted
// directly as trailing context (-A) right after a match.
type contextLine struct {
	lineNo     int64
	byteOffset int64
	text       []byte
}

// New builds a Driver, recording standard output's identity so ScanPath
// can detect the "output file is also the input" condition by comparing
// each input's inode/device against standard output's.
func New(eng *engine.Engine, p *printer.Printer, out sink.Sink) *Driver {
	d := &Driver{Engine: eng, Printer: p, Out: out, Log: diag.NoopLogger{}}
	if fi, err := os.Stdout.Stat(); err == nil && fi.Mode().IsRegular() {
		if st, ok := fi.Sys().(*unix.Stat_t); ok {
			d.stdoutDev, d.stdoutIno = uint64(st.Dev), st.Ino
			d.stdoutIsRegular = true
		}
	}
	return d
}

// SetSink redirects both the Driver's own writes (-c/-l/-L output) and the
// Printer's line output to s. Safe to call between files on a Driver that
// is only ever touched by one goroutine — the per-worker replica in
// parallel mode, where s is that file's output slot rather than the shared
// standard output.
func (d *Driver) SetSink(s sink.Sink) {
	d.Out = s
	d.Printer.Out = s
}

// ExitStatus maps the aggregated outcome to the process exit code: 0 if
// any match was emitted, 1 if none, 2 if any error was observed — except
// under -q, where the first match forces exit 0 regardless of errors.
func ExitStatus(matchedAny, errorSeen, quiet bool) int {
	if quiet && matchedAny {
		return 0
	}
	if errorSeen {
		return 2
	}
	if matchedAny {
		return 0
	}
	return 1
}

// Run processes every path in order (sequential mode) and returns the
// aggregated outcome.
func (d *Driver) Run(paths []string) (matchedAny bool, errorSeen bool) {
	multi := len(paths) > 1 || d.WithFilename
	for _, path := range paths {
		matched, err := d.ScanPath(path, multi)
		if err != nil {
			errorSeen = true
			if !d.NoMessages {
				fmt.Fprintf(os.Stderr, "grepcore: %s\n", err)
			}
			continue
		}
		if matched {
			matchedAny = true
			if d.Quiet {
				return matchedAny, errorSeen
			}
		}
	}
	return matchedAny, errorSeen
}

// ScanPath applies the device/directory policy and the self-reference
// check, then drives a buffer.Buffer through the match engine for one
// file. Exported so pkg/traverse's FileHandler can call it directly per
// worker (each worker owns its own Driver replica and redirects its sink
// with SetSink before calling this per entry).
func (d *Driver) ScanPath(path string, withFilename bool) (bool, error) {
	var f *os.File
	label := path
	if path == "-" {
		f = os.Stdin
		label = "(standard input)"
	} else {
		fi, err := os.Stat(path)
		if err != nil {
			return false, diag.Wrap(diag.KindIO, "stat", path, err)
		}
		if fi.IsDir() {
			return false, diag.Wrap(diag.KindIO, "open", path, fmt.Errorf("is a directory"))
		}
		if st, ok := fi.Sys().(*unix.Stat_t); ok && d.stdoutIsRegular {
			if uint64(st.Dev) == d.stdoutDev && st.Ino == d.stdoutIno {
				return false, diag.Wrap(diag.KindIO, "open", path, fmt.Errorf("input file is output file"))
			}
		}
		opened, err := os.Open(path)
		if err != nil {
			return false, diag.Wrap(diag.KindIO, "open", path, err)
		}
		defer opened.Close()
		f = opened
	}

	d.Log.Log("scanning %s", label)
	return d.scan(f, label, withFilename)
}

func (d *Driver) scan(f *os.File, label string, withFilename bool) (bool, error) {
	eol := byte('\n')
	if d.Engine != nil {
		eol = d.Engine.EOL
	}
	buf := buffer.New(f, eol)
	// Encoding-error detection only applies under the binary and
	// without-match policies; a detected error suppresses this file's
	// remaining per-line output.
	buf.EncodingErrorOutput = d.Binary == buffer.BinaryFilesBinary || d.Binary == buffer.BinaryFilesWithoutMatch
	// -q and -l/-L never print line content, so the first selected line
	// decides the file's outcome.
	buf.DoneOnMatch = d.Quiet || d.Mode == ModeListMatching || d.Mode == ModeListNonMatching
	if buf.DoneOnMatch {
		// All-zero blocks split into empty pseudo-lines once zapped; they
		// can be skipped wholesale only when an empty line would not be a
		// selected line.
		if _, st, err := d.Engine.MatchLine(nil); err == nil && (st == engine.Accept) == d.Invert {
			buf.SkipNuls = true
		}
	}

	filename := ""
	if withFilename {
		filename = label
	}

	var count int64
	matched := false
	stop := false

	binaryDecided := false
	suppressLines := false // --binary-files=binary: no per-line content

	// beforeRing and afterRemaining implement -B/-A/-C, sequential mode
	// only. When context is enabled, "--" group separators are emitted
	// whenever two printed ranges are not contiguous.
	var beforeRing []contextLine
	afterRemaining := 0
	lastEmittedLineNo := int64(-1)

	for !stop {
		if err := buf.Fill(); err != nil && err != io.EOF {
			return matched, diag.Wrap(diag.KindIO, "read", label, err)
		}
		// EOF with residue still returns a window to process; the residue
		// is the final, unterminated line.
		atEOF := buf.EOF()

		if !binaryDecided && buf.Binary {
			binaryDecided = true
			switch d.Binary {
			case buffer.BinaryFilesWithoutMatch:
				return false, nil
			case buffer.BinaryFilesBinary:
				suppressLines = true
			case buffer.BinaryFilesText:
				// treated as text; zapNuls already turned NULs into EOLs.
			}
		}

		// Iterate every complete line in the window, not just
		// engine-reported hits: -v needs the complement of the matching
		// set, which only a full scan gives. The final, unterminated
		// segment is only processed once atEOF — otherwise it is residue
		// the buffer manager carries into the next Fill.
		offset := 0
		consumed := 0
		for offset < len(buf.Bytes()) {
			window := buf.Bytes()
			lineEnd := lineEndOf(window, offset, eol)
			if lineEnd >= len(window) && !atEOF {
				break // incomplete trailing line; leave as residue
			}

			span, state, err := d.Engine.MatchLine(window[offset:lineEnd])
			if err != nil {
				return matched, err
			}
			isMatch := state == engine.Accept
			emit := isMatch != d.Invert
			lineNo := buf.LineCount() + countEOLs(window[:offset], eol) + 1
			byteOff := buf.ByteOffset() + int64(offset)
			if buf.CheckEncodingError(window[offset:lineEnd]) {
				suppressLines = true
			}
			canPrint := d.Mode == ModeNormal && !d.Quiet && !suppressLines

			if emit {
				matched = true
				count++
				if canPrint {
					leadStart := lineNo - int64(len(beforeRing))
					contextOn := d.BeforeContext > 0 || d.AfterContext > 0
					if contextOn && lastEmittedLineNo >= 0 && leadStart > lastEmittedLineNo+1 {
						if err := d.Printer.GroupSeparator(); err != nil {
							return matched, err
						}
					}
					for _, cl := range beforeRing {
						if err := d.Printer.PrintContextLine(filename, cl.lineNo, cl.byteOffset, cl.text); err != nil {
							return matched, err
						}
					}
					beforeRing = beforeRing[:0]

					var matchSpan *[2]int
					if isMatch {
						matchSpan = &[2]int{span.Start, span.End}
					}
					if err := d.Printer.PrintLine(filename, lineNo, byteOff, window[offset:lineEnd], matchSpan); err != nil {
						return matched, err
					}
					lastEmittedLineNo = lineNo
					afterRemaining = d.AfterContext
				}
				// -q and -l/-L are decided by the first selected line;
				// nothing later in the file can change the outcome.
				if buf.DoneOnMatch {
					consumed = lineEnd
					stop = true
					break
				}
				if d.MaxCount > 0 && count >= int64(d.MaxCount) {
					consumed = lineEnd
					stop = true
					break
				}
			} else if canPrint {
				switch {
				case afterRemaining > 0:
					if err := d.Printer.PrintContextLine(filename, lineNo, byteOff, window[offset:lineEnd]); err != nil {
						return matched, err
					}
					afterRemaining--
					lastEmittedLineNo = lineNo
				case d.BeforeContext > 0:
					text := append([]byte(nil), window[offset:lineEnd]...)
					beforeRing = append(beforeRing, contextLine{lineNo: lineNo, byteOffset: byteOff, text: text})
					if len(beforeRing) > d.BeforeContext {
						beforeRing = beforeRing[1:]
					}
				}
			}
			consumed = lineEnd
			if lineEnd >= len(window) {
				break // consumed the final, unterminated line at EOF
			}
			offset = lineEnd + 1
			consumed = offset
		}

		if consumed > 0 {
			buf.IncLineCount(countEOLs(buf.Bytes()[:consumed], eol))
			buf.Consume(consumed)
		}
		if atEOF {
			break
		}
	}

	if suppressLines && matched && d.Mode == ModeNormal && !d.Quiet {
		if err := d.Printer.BinaryNotice(label); err != nil {
			return matched, err
		}
	}

	if d.Mode == ModeCountOnly {
		if filename != "" {
			if _, err := d.Out.Write([]byte(fmt.Sprintf("%s:%d\n", filename, count))); err != nil {
				return matched, err
			}
		} else if _, err := d.Out.Write([]byte(fmt.Sprintf("%d\n", count))); err != nil {
			return matched, err
		}
	}
	if d.Mode == ModeListMatching && matched {
		if _, err := d.Out.Write([]byte(label + "\n")); err != nil {
			return matched, err
		}
	}
	if d.Mode == ModeListNonMatching && !matched {
		if _, err := d.Out.Write([]byte(label + "\n")); err != nil {
			return matched, err
		}
	}

	d.Log.Log("%s: %d selected lines", label, count)
	return matched, nil
}

func lineEndOf(b []byte, from int, eol byte) int {
	for i := from; i < len(b); i++ {
		if b[i] == eol {
			return i
		}
	}
	return len(b)
}

func countEOLs(b []byte, eol byte) int64 {
	var n int64
	for _, c := range b {
		if c == eol {
			n++
		}
	}
	return n
}
