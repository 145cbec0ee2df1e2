package dfa

import "github.com/grepcore/grepcore/pkg/types"

// widenBackreferences rewrites each back-reference \N into ".*?" so the
// resulting pattern can be fed to a true DFA as a superset — these helpers
// are pure string/rune inspection, with no Hyperscan dependency, so they
// build and are testable (widenBackreferences/hasBackreference/isASCIIOnly)
// regardless of whether this build has cgo or the hyperscan tag.
func widenBackreferences(pat string) string {
	out := make([]byte, 0, len(pat))
	for i := 0; i < len(pat); i++ {
		if pat[i] == '\\' && i+1 < len(pat) && pat[i+1] >= '1' && pat[i+1] <= '9' {
			out = append(out, []byte(".*?")...)
			i++
			continue
		}
		out = append(out, pat[i])
	}
	return string(out)
}

func hasBackreference(set *types.Set) bool {
	for _, p := range set.Patterns {
		for i := 0; i+1 < len(p.Translated); i++ {
			if p.Translated[i] == '\\' && p.Translated[i+1] >= '1' && p.Translated[i+1] <= '9' {
				return true
			}
		}
	}
	return false
}

func isASCIIOnly(set *types.Set) bool {
	for _, p := range set.Patterns {
		for _, r := range p.Translated {
			if r > 0x7f {
				return false
			}
		}
	}
	return true
}
