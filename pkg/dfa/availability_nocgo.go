//go:build !cgo || !hyperscan

package dfa

// Available returns false when Hyperscan is not available (non-CGO build
// or missing hyperscan tag).
func Available() bool {
	return false
}
