//go:build cgo && hyperscan

package dfa

// Available returns true when Hyperscan is available (CGO build with
// hyperscan tag).
func Available() bool {
	return true
}
