//go:build cgo && hyperscan

// Package dfa wraps Hyperscan as the DFA layer: a compiled automaton over
// the joined pattern alternation, reporting only end offsets (no capture
// groups, no exact start) — Hyperscan finds pattern offsets fast but without
// capture groups, so a later stage resolves the exact start when one is
// needed.
//
// This file requires CGO and the "hyperscan" build tag; dfa_stub.go
// supplies the same exported surface for ordinary builds so the rest of
// the module compiles without Hyperscan installed.
package dfa

import (
	"fmt"

	"github.com/flier/gohs/hyperscan"

	"github.com/grepcore/grepcore/pkg/types"
)

// DFA is an opaque compiled automaton over the concatenation of all
// patterns joined by alternation. IsFast is a single-byte optimization
// hint: set whenever the pattern set has no non-ASCII branches and no
// back-references.
type DFA struct {
	db      hyperscan.BlockDatabase
	scratch *hyperscan.Scratch
	IsFast  bool
	ownsDB  bool // false for Clone()s, which must not close a shared db
}

// Compile builds a DFA from a Pattern Set's joined form. MultiLine is
// always requested so ^/$ resolve against the EOL byte the buffer manager
// uses as a line boundary; DotAll so "." can cross the synthetic sentinel
// without producing spurious non-matches at buffer edges.
func Compile(set *types.Set) (*DFA, error) {
	pat := hyperscan.NewPattern(set.Joined, hyperscan.DotAll|hyperscan.MultiLine)
	db, err := hyperscan.NewBlockDatabase(pat)
	if err != nil {
		return nil, fmt.Errorf("compiling DFA: %w", err)
	}
	scratch, err := hyperscan.NewScratch(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("allocating DFA scratch: %w", err)
	}
	return &DFA{db: db, scratch: scratch, IsFast: !hasBackreference(set) && isASCIIOnly(set), ownsDB: true}, nil
}

// Clone builds a second DFA over the same compiled block database with a
// fresh Scratch, the per-worker replica parallel mode requires: the block
// database is shared read-only after compilation, but Hyperscan's Scratch
// is mutated during every Scan and must not be shared across goroutines.
// The underlying database itself is never recompiled or closed by a clone.
func (d *DFA) Clone() (*DFA, error) {
	if d == nil {
		return nil, nil
	}
	scratch, err := hyperscan.NewScratch(d.db)
	if err != nil {
		return nil, fmt.Errorf("cloning DFA scratch: %w", err)
	}
	return &DFA{db: d.db, scratch: scratch, IsFast: d.IsFast, ownsDB: false}, nil
}

// Match is one raw DFA hit: only an end offset is trustworthy (Hyperscan
// without SomLeftMost reports from=0). Callers narrow the true start using
// the line boundary the buffer manager gives them, never Hyperscan's own
// start.
type Match struct {
	End int
}

// Scan reports whether the DFA accepts any position in buf, and the
// earliest end offset it found. Earliest-start-wins/longest-on-tie is
// resolved downstream once the regex-array stage (or the exact keyword
// stage) determines the real start.
func (d *DFA) Scan(buf []byte) (Match, bool, error) {
	var found bool
	var best int
	onMatch := func(id uint, from, to uint64, flags uint, context interface{}) error {
		end := int(to)
		if !found || end < best {
			best = end
			found = true
		}
		return nil
	}
	if err := d.db.Scan(buf, d.scratch, onMatch, nil); err != nil {
		return Match{}, false, fmt.Errorf("DFA scan: %w", err)
	}
	if !found {
		return Match{}, false, nil
	}
	return Match{End: best}, true, nil
}

// Close releases Hyperscan resources.
func (d *DFA) Close() error {
	var err error
	if d.scratch != nil {
		err = d.scratch.Free()
		d.scratch = nil
	}
	if d.db != nil && d.ownsDB {
		if cerr := d.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	d.db = nil
	return err
}

// CompileSuperset builds the superset DFA: an automaton accepting a looser
// language than the true pattern set, used when back-references prevent an
// exact DFA from being built at all. Each back-reference \N is widened to
// ".*?", which can only accept a superset of what the true regex accepts,
// never a subset — the soundness property the cascade depends on.
func CompileSuperset(set *types.Set) (*DFA, error) {
	if !hasBackreference(set) {
		return nil, nil
	}
	widened := *set
	widened.Patterns = append([]types.Pattern(nil), set.Patterns...)
	for i := range widened.Patterns {
		widened.Patterns[i].Translated = widenBackreferences(widened.Patterns[i].Translated)
	}
	parts := make([]string, len(widened.Patterns))
	for i, p := range widened.Patterns {
		parts[i] = "(?:" + p.Translated + ")"
	}
	widened.Joined = ""
	for i, p := range parts {
		if i > 0 {
			widened.Joined += "|"
		}
		widened.Joined += p
	}
	return Compile(&widened)
}
