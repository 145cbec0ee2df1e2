// Package sink is the output abstraction unifying the sequential and
// parallel paths: direct-to-stdout and slotted-buffer implementations of
// one Sink interface. All printing goes through a Sink; the line printer
// (pkg/printer) never knows which implementation it holds.
package sink

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/grepcore/grepcore/pkg/diag"
)

// Sink is the single abstraction every printer writes through.
type Sink interface {
	io.Writer
}

// Direct is the sequential-mode sink: a buffered writer over the real
// standard output with sticky write-error capture. Once a write fails,
// every later write reports the same error, so close-on-exit paths don't
// produce duplicate diagnostics and the process exits with status 2.
type Direct struct {
	mu  sync.Mutex
	w   *bufio.Writer
	err error
}

// NewDirect wraps w (normally os.Stdout) in a buffered Direct sink.
func NewDirect(w io.Writer) *Direct {
	return &Direct{w: bufio.NewWriter(w)}
}

func (d *Direct) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return 0, d.err
	}
	n, err := d.w.Write(p)
	if err != nil {
		d.err = diag.Wrap(diag.KindWrite, "write", "", err)
	}
	return n, err
}

// Flush pushes any buffered bytes to the underlying writer.
func (d *Direct) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	if err := d.w.Flush(); err != nil {
		d.err = diag.Wrap(diag.KindWrite, "flush", "", err)
		return d.err
	}
	return nil
}

// Err returns the sticky write error, if any has occurred.
func (d *Direct) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Slot is one entry of the output slot array: a growable byte buffer per
// traversal node visited, indexed by visit order. Slot N is written by at
// most one worker and flushed only after all slots 0..N-1 have been
// flushed. A Slot itself is the per-node sink a worker writes through;
// pkg/traverse owns the array and the per-slot locks.
type Slot struct {
	buf bytes.Buffer
}

func (s *Slot) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Bytes returns the accumulated content, for flushing into a Direct sink
// in visit order.
func (s *Slot) Bytes() []byte { return s.buf.Bytes() }

// Reset empties the slot so it can be reused by a later round.
func (s *Slot) Reset() { s.buf.Reset() }
