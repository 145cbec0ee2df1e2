// Package traverse implements parallel traversal with ordered output: N
// workers walking the same directory tree in lockstep, each matching only
// the entries whose visit index satisfies `index mod N == k`, with output
// reassembled byte-identical to a sequential walk through a per-visit-index
// slot array. Walks a directory with os.ReadDir in sorted order, applies an
// exclude predicate (GitignoreExclude adapts github.com/sabhiram/go-gitignore),
// and fans work out across Config.Workers goroutines supervised by
// golang.org/x/sync/errgroup.
package traverse

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/grepcore/grepcore/pkg/sink"
)

// Entry is one deterministically-ordered node of the traversal. Index is
// the visit index: the ordinal of a directory entry in the deterministic
// walk, serving both as worker-assignment key and as output-ordering key.
type Entry struct {
	Path  string
	Index int
	IsDir bool
}

// ExcludeFunc is a pure predicate over a path and whether it is a
// directory. Purity matters: identical exclusion decisions across workers
// keep the per-worker visit numbering consistent. Returning true skips
// the entry (and its subtree, if a directory).
type ExcludeFunc func(path string, isDir bool) bool

// GitignoreExclude adapts a compiled .gitignore matcher into an ExcludeFunc.
func GitignoreExclude(root string, ig *gitignore.GitIgnore) ExcludeFunc {
	if ig == nil {
		return func(string, bool) bool { return false }
	}
	return func(path string, isDir bool) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		return ig.MatchesPath(rel)
	}
}

// enumerate walks root deterministically (lexical order at each directory
// level, matching filepath.WalkDir's own guarantee) and assigns visit
// indices. followSymlinks selects -R (dereference) over -r (physical)
// traversal policy.
func enumerate(root string, followSymlinks bool, exclude ExcludeFunc) ([]Entry, error) {
	var entries []Entry
	idx := 0

	var walkDir func(dir string) error
	walkDir = func(dir string) error {
		names, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		sort.Slice(names, func(i, j int) bool { return names[i].Name() < names[j].Name() })

		for _, de := range names {
			path := filepath.Join(dir, de.Name())
			isDir := de.IsDir()

			if de.Type()&os.ModeSymlink != 0 {
				if !followSymlinks {
					continue
				}
				fi, err := os.Stat(path)
				if err != nil {
					continue
				}
				isDir = fi.IsDir()
			}

			if exclude(path, isDir) {
				continue
			}

			entries = append(entries, Entry{Path: path, Index: idx, IsDir: isDir})
			idx++

			if isDir {
				if err := walkDir(path); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walkDir(root); err != nil {
		return nil, err
	}
	return entries, nil
}

// FileHandler processes one file entry, writing its printed output into
// slot and reporting whether it matched. workerID identifies which of the
// N workers is calling (0..Workers-1), so a caller can hand each worker its
// own replica of the compiled pattern-set/DFA/regex-array artifacts (the
// regex engines carry mutable match state) rather than sharing mutable
// engine state across goroutines. A non-nil error is a per-file error; it
// does not stop other workers.
type FileHandler func(workerID int, path string, slot *sink.Slot) (matched bool, err error)

// Config parameterizes a Run.
type Config struct {
	Root            string
	Workers         int
	FollowSymlinks  bool
	Exclude         ExcludeFunc
	MaxAllowedNodes int // round ceiling; 0 means "one round covering everything"
	Handle          FileHandler
}

// Result aggregates the outcome across all workers and rounds.
type Result struct {
	MatchedAny  bool
	ErrorSeen   bool
	FirstErrors []error
}

// Run performs the parallel traversal: each worker walks the same
// deterministic entry list (computed once here, since the pure exclude
// predicate guarantees every worker would compute the identical list
// independently), claims entries by index mod N, and writes into the
// shared slot array. After each round the main goroutine flushes that
// round's slots in visit order before starting the next round.
func Run(ctx context.Context, cfg Config, out *sink.Direct) (Result, error) {
	entries, err := enumerate(cfg.Root, cfg.FollowSymlinks, cfg.Exclude)
	if err != nil {
		return Result{}, err
	}

	n := cfg.Workers
	if n < 1 {
		n = 1
	}
	ceiling := cfg.MaxAllowedNodes
	if ceiling <= 0 {
		ceiling = len(entries)
		if ceiling == 0 {
			ceiling = 1
		}
	}

	slots := NewSlotArray(n, ceiling)
	var result Result

	for start := 0; start < len(entries); start += ceiling {
		end := start + ceiling
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		g, gctx := errgroup.WithContext(ctx)
		workerErr := make([]error, n)

		for k := 0; k < n; k++ {
			k := k
			g.Go(func() error {
				for _, e := range chunk {
					if e.Index%n != k {
						continue
					}
					if e.IsDir {
						continue
					}
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					slot := slots.Get(e.Index)
					matched, ferr := cfg.Handle(k, e.Path, slot)
					if ferr != nil {
						if workerErr[k] == nil {
							workerErr[k] = ferr
						}
						result.ErrorSeen = true
						continue
					}
					if matched {
						result.MatchedAny = true
					}
				}
				return nil
			})
		}
		// A worker's own failure does not halt the others; per-entry
		// errors are already recorded above, so g.Wait only surfaces
		// context cancellation.
		if werr := g.Wait(); werr != nil {
			return result, werr
		}
		for _, e := range workerErr {
			if e != nil {
				result.FirstErrors = append(result.FirstErrors, e)
			}
		}

		for _, e := range chunk {
			if e.IsDir {
				continue
			}
			slot := slots.Get(e.Index)
			if _, werr := out.Write(slot.Bytes()); werr != nil {
				return result, werr
			}
			slots.Release(e.Index)
		}
	}

	return result, nil
}
