//go:build !cgo || !hyperscan

package dfa

import (
	"fmt"

	"github.com/grepcore/grepcore/pkg/types"
)

// DFA stub for builds without Hyperscan (non-CGO or missing hyperscan
// tag). Compile always fails; callers degrade to the keyword+regex-array
// tail of the cascade, the same path taken when a real Hyperscan compile
// fails at runtime.
type DFA struct {
	IsFast bool
}

// Compile stub for builds without Hyperscan. Returns an error indicating
// Hyperscan requires CGO.
func Compile(set *types.Set) (*DFA, error) {
	return nil, fmt.Errorf("Hyperscan requires CGO (build with CGO_ENABLED=1 and -tags=hyperscan)")
}

// CompileSuperset mirrors the real build's "only back-reference patterns
// need a superset" gate so a pattern set without back-references still
// reports no error in a non-Hyperscan build.
func CompileSuperset(set *types.Set) (*DFA, error) {
	if !hasBackreference(set) {
		return nil, nil
	}
	return nil, fmt.Errorf("Hyperscan requires CGO (build with CGO_ENABLED=1 and -tags=hyperscan)")
}

// Clone stub for builds without Hyperscan.
func (d *DFA) Clone() (*DFA, error) {
	if d == nil {
		return nil, nil
	}
	return nil, fmt.Errorf("Hyperscan requires CGO (build with CGO_ENABLED=1 and -tags=hyperscan)")
}

// Match is one raw DFA hit, kept identical to the real build's type so
// engine and driver code compiles unchanged either way.
type Match struct {
	End int
}

// Scan stub for builds without Hyperscan.
func (d *DFA) Scan(buf []byte) (Match, bool, error) {
	return Match{}, false, fmt.Errorf("Hyperscan requires CGO (build with CGO_ENABLED=1 and -tags=hyperscan)")
}

// Close stub for builds without Hyperscan.
func (d *DFA) Close() error {
	return nil
}
