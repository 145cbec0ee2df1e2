// Package buffer implements a streaming buffer manager: a page-aligned,
// slack-padded ring that ingests a descriptor without any line-length
// assumption, preserves partial trailing lines across refills, skips
// sparse-file holes, and zaps NUL bytes before the match engine ever sees
// them. It solves the "never split a line across a processing unit"
// problem with sentinel bytes and residue carryover instead of rebuilding
// overlapping copies.
package buffer

import (
	"errors"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/sys/unix"

	"github.com/grepcore/grepcore/pkg/diag"
)

const wordSize = 8 // sizeof(machine_word) tail padding invariant (ii)

// BinaryPolicy controls what happens once a file is declared binary.
type BinaryPolicy int

const (
	BinaryFilesText BinaryPolicy = iota
	BinaryFilesBinary
	BinaryFilesWithoutMatch
)

// Buffer is the per-file match context: a raw window into a page-aligned
// base, a residue length for the incomplete trailing line, and the sticky
// skip-NUL/binary/encoding-error flags. One Buffer is created per file and
// owned exclusively by the goroutine that created it — in parallel mode,
// each worker allocates its own.
type Buffer struct {
	data  []byte // page-aligned allocation; data[0] is the sentinel byte
	begin int    // first live byte, always data[begin-1] == EOL (invariant i)
	end   int    // one past last live byte; data[end:end+wordSize] is padding (invariant ii)

	pageSize int
	eol      byte

	r    io.Reader
	seek fdHaver // nil unless the descriptor supports SEEK_DATA/SEEK_HOLE

	SkipNuls            bool
	DoneOnMatch          bool
	EncodingErrorOutput  bool
	holeSkipDisabled     bool // sticky flag "on failure, disable hole-skipping for the rest of the file"
	Binary               bool // sticky: declared binary on first NUL or first hole
	EncodingErrorSticky  bool // sticky: this file's remaining output is suppressed

	lineCount  int64 // running count of EOL bytes consumed so far
	byteOffset int64 // cumulative byte position of data[begin]
	sizeHint   int64 // trustworthy size from Stat, or -1
	eofSeen    bool  // the descriptor has reported EOF; the window holds everything
}

// fdHaver is the narrow interface the hole-skipping path needs; satisfied
// by *os.File on platforms where SEEK_DATA/SEEK_HOLE are meaningful.
type fdHaver interface {
	Fd() uintptr
}

// New creates a Buffer Manager over r. If r is an *os.File, its size (when
// trustworthy — a regular file) seeds the growth heuristic and its
// descriptor is used for hole-skipping.
func New(r io.Reader, eol byte) *Buffer {
	b := &Buffer{
		r:        r,
		eol:      eol,
		pageSize: os.Getpagesize(),
		sizeHint: -1,
	}
	if f, ok := r.(*os.File); ok {
		b.seek = f
		if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() {
			b.sizeHint = fi.Size()
		}
	}
	b.alloc(b.pageSize)
	// invariant (i): the byte before begin is always an EOL sentinel, even
	// for the very first line of the file.
	b.data[b.begin-1] = b.eol
	return b
}

// alloc grows data to at least size+wordSize bytes of capacity, preserving
// any live residue at the head of the new buffer. Doubling growth is capped
// by the file's reported size when that size is trustworthy, so a small
// regular file doesn't balloon the allocation past what it could ever need.
func (b *Buffer) alloc(size int) {
	newCap := b.pageSize
	for newCap < size+wordSize {
		newCap *= 2
	}
	if gc := b.GrowthCap(); gc > 0 && gc >= size+wordSize && gc < newCap {
		newCap = gc
	}
	nd := make([]byte, newCap)
	residue := 0
	if b.data != nil {
		residue = b.end - b.begin
		copy(nd[1:], b.data[b.begin:b.end])
	}
	b.data = nd
	b.begin = 1
	b.end = 1 + residue
}

// Bytes returns the live window [begin, end).
func (b *Buffer) Bytes() []byte {
	return b.data[b.begin:b.end]
}

// LineCount returns the number of EOL bytes consumed so far (as counted by
// IncLineCount, plus the bytes of all-zero blocks Fill skipped), for the
// running line-number accumulator.
func (b *Buffer) LineCount() int64 { return b.lineCount }

// ByteOffset returns the cumulative byte position of the start of the live
// window, for -b output.
func (b *Buffer) ByteOffset() int64 { return b.byteOffset }

// Fill reads the next block: compute the residue, grow if the tail padding
// is insufficient, read, zap NULs or skip holes, and maintain the sentinel
// invariants. Returns io.EOF once the descriptor is exhausted and no residue
// remains; a nil return with EOF() true means the window now holds the
// final, possibly unterminated, data.
func (b *Buffer) Fill() error {
	save := b.end - b.begin
	needed := save + b.pageSize

	if cap(b.data)-b.begin < needed+wordSize {
		b.alloc(needed)
	} else if save > 0 && b.begin != 1 {
		copy(b.data[1:], b.data[b.begin:b.end])
		b.begin = 1
		b.end = 1 + save
	}
	b.data[b.begin-1] = b.eol // re-assert sentinel after any relocation

	readStart := b.end
	readCap := cap(b.data) - wordSize - readStart
	if readCap <= 0 {
		b.alloc(needed * 2)
		readStart = b.end
		readCap = cap(b.data) - wordSize - readStart
	}

	for {
		n, err := b.r.Read(b.data[readStart : readStart+readCap])
		if n == 0 {
			if err == io.EOF {
				b.eofSeen = true
				if save == 0 {
					return io.EOF
				}
				b.zapNuls()
				return nil
			}
			if err != nil {
				return diag.Wrap(diag.KindIO, "read", "", err)
			}
			continue
		}

		if err == io.EOF {
			b.eofSeen = true
		}
		block := b.data[readStart : readStart+n]
		if b.SkipNuls && allZero(block) {
			// An all-zero block would zap into one pseudo-line per byte, so
			// the whole block is dropped and the line counter advanced by
			// its byte count. The hole query is opportunistic: when it works
			// the next read starts at the next data region instead of
			// crawling through the rest of the hole.
			b.lineCount += int64(n)
			if b.eol != 0 {
				b.Binary = true
			}
			b.trySkipHole(readStart)
			continue
		}
		if b.eol != 0 && !b.Binary && containsNUL(block) {
			b.Binary = true
		}

		// byteOffset advances as the consumer emits lines (Consume), not here.
		b.end = readStart + n
		b.zapNuls()
		for i := b.end; i < b.end+wordSize; i++ {
			b.data[i] = 0
		}
		return nil
	}
}

// trySkipHole queries the descriptor for the next data region past the
// current read position when the read block was all zeros and the
// filesystem is seekable. On any seek failure the sticky holeSkipDisabled
// flag turns hole-skipping off for the rest of the file.
func (b *Buffer) trySkipHole(at int) bool {
	if b.seek == nil || b.holeSkipDisabled {
		return false
	}
	f, ok := b.r.(*os.File)
	if !ok {
		return false
	}
	b.Binary = true // a hole in a seekable file declares it binary, same as a NUL
	cur, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		b.holeSkipDisabled = true
		return false
	}
	next, err := unix.Seek(int(f.Fd()), cur, unix.SEEK_DATA)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return false // no more data: genuinely at EOF past a trailing hole
		}
		b.holeSkipDisabled = true
		return false
	}
	if _, err := f.Seek(next, io.SeekStart); err != nil {
		b.holeSkipDisabled = true
		return false
	}
	return true
}

// zapNuls overwrites every remaining NUL byte in the live window with the
// EOL byte, preventing arbitrarily long pseudo-lines in binary inputs.
// Under -z the EOL byte IS NUL: every NUL is a terminator, none is binary
// data, and there is nothing to zap.
func (b *Buffer) zapNuls() {
	if b.eol == 0 {
		return
	}
	for i := b.begin; i < b.end; i++ {
		if b.data[i] == 0 {
			b.data[i] = b.eol
			if !b.Binary {
				b.Binary = true
			}
		}
	}
}

// Consume advances begin past n bytes of now-emitted data, re-asserting the
// sentinel invariant.
func (b *Buffer) Consume(n int) {
	b.byteOffset += int64(n)
	b.begin += n
	if b.begin > 0 {
		b.data[b.begin-1] = b.eol
	}
}

// IncLineCount bumps the running EOL counter by n, used by the printer when
// it scans residual newlines between the last counted position and a
// match's line start.
func (b *Buffer) IncLineCount(n int64) { b.lineCount += n }

// CheckEncodingError validates line (one already-split line, no EOL byte)
// as UTF-8. Detection only runs when EncodingErrorOutput is set, which the
// driver derives from the binary-file policy. The first invalid sequence
// sets the sticky EncodingErrorSticky flag: a line containing an encoding
// error suppresses all output for this file for the remainder of the scan.
// Returns the (possibly just-set) sticky flag so callers can fold it
// straight into their own suppression state.
func (b *Buffer) CheckEncodingError(line []byte) bool {
	if !b.EncodingErrorOutput || b.EncodingErrorSticky {
		return b.EncodingErrorSticky
	}
	if !utf8.Valid(line) {
		b.EncodingErrorSticky = true
	}
	return b.EncodingErrorSticky
}

func allZero(p []byte) bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

func containsNUL(p []byte) bool {
	for _, c := range p {
		if c == 0 {
			return true
		}
	}
	return false
}

// SizeHint reports the trustworthy size used to cap the growth heuristic,
// or -1 if none is available.
func (b *Buffer) SizeHint() int64 { return b.sizeHint }

// EOF reports whether the descriptor has been exhausted; the current window
// then holds the final (possibly unterminated) line.
func (b *Buffer) EOF() bool { return b.eofSeen }

// GrowthCap is the ceiling the doubling allocation is capped by: the
// descriptor's reported size, when trustworthy.
func (b *Buffer) GrowthCap() int {
	if b.sizeHint <= 0 {
		return 0
	}
	if b.sizeHint > int64(^uint(0)>>1) {
		return 0
	}
	return int(b.sizeHint) + wordSize
}
