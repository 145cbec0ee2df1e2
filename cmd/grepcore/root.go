package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/grepcore/grepcore/pkg/config"
)

// flagVars holds every raw destination pflag binds into; the functions in
// app.go resolve these into the pkg/config.Options the core packages
// actually consume, keeping the flag-binding surface separate from the
// search pipeline's own configuration types.
type flagVars struct {
	extendedRegexp bool // -E
	fixedStrings   bool // -F
	basicRegexp    bool // -G
	perlRegexp     bool // -P

	patternExprs []string // -e (repeatable)
	patternFiles []string // -f (repeatable)

	ignoreCase bool // -i
	wholeWord  bool // -w
	wholeLine  bool // -x
	invert     bool // -v

	countOnly       bool // -c
	listMatching    bool // -l
	listNonMatching bool // -L
	maxCount        int  // -m

	lineNumber   bool // -n
	byteOffset   bool // -b
	withFilename bool // -H
	noFilename   bool // -h

	before int // -B
	after  int // -A
	both   int // -C

	onlyMatching bool // -o
	quiet        bool // -q
	noMessages   bool // -s
	text         bool // -a

	recurse       bool // -r
	derefRecurse  bool // -R
	parallel      int  // -p
	zMode         bool // -z

	color       string // --color[=WHEN]
	binaryFiles string // --binary-files
	skipBinary  bool   // -I
	debug       bool   // --debug

	include    []string
	exclude    []string
	excludeDir []string
}

var rootFlags flagVars

var rootCmd = &cobra.Command{
	Use:   "grepcore [OPTION]... PATTERNS [FILE]...",
	Short: "Search files for lines matching a pattern",
	Long: `grepcore searches input files for lines matching one or more patterns,
compiled under a configurable regex dialect and executed through a
keyword-prefilter / DFA / regex-array cascade. It supports sequential and
parallel recursive search over a directory tree.`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runSearch,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	fs := rootCmd.Flags()

	fs.BoolVarP(&rootFlags.extendedRegexp, "extended-regexp", "E", false, "PATTERNS are extended regular expressions")
	fs.BoolVarP(&rootFlags.fixedStrings, "fixed-strings", "F", false, "PATTERNS are literal strings")
	fs.BoolVarP(&rootFlags.basicRegexp, "basic-regexp", "G", false, "PATTERNS are basic regular expressions (default)")
	fs.BoolVarP(&rootFlags.perlRegexp, "perl-regexp", "P", false, "PATTERNS are Perl-compatible regular expressions")

	fs.StringArrayVarP(&rootFlags.patternExprs, "regexp", "e", nil, "use PATTERNS for matching (repeatable)")
	fs.StringArrayVarP(&rootFlags.patternFiles, "file", "f", nil, "take PATTERNS from FILE (repeatable; - for stdin)")

	fs.BoolVarP(&rootFlags.ignoreCase, "ignore-case", "i", false, "ignore case distinctions")
	fs.BoolVarP(&rootFlags.wholeWord, "word-regexp", "w", false, "match only whole words")
	fs.BoolVarP(&rootFlags.wholeLine, "line-regexp", "x", false, "match only whole lines")
	fs.BoolVarP(&rootFlags.invert, "invert-match", "v", false, "select non-matching lines")

	fs.BoolVarP(&rootFlags.countOnly, "count", "c", false, "print only a count of matching lines per file")
	fs.BoolVarP(&rootFlags.listMatching, "files-with-matches", "l", false, "print only names of files containing matches")
	fs.BoolVarP(&rootFlags.listNonMatching, "files-without-match", "L", false, "print only names of files with no match")
	fs.IntVarP(&rootFlags.maxCount, "max-count", "m", 0, "stop after NUM matches per file")

	fs.BoolVarP(&rootFlags.lineNumber, "line-number", "n", false, "print line number with output lines")
	fs.BoolVarP(&rootFlags.byteOffset, "byte-offset", "b", false, "print byte offset with output lines")
	fs.BoolVarP(&rootFlags.withFilename, "with-filename", "H", false, "print filename with output lines")
	fs.BoolVarP(&rootFlags.noFilename, "no-filename", "h", false, "suppress the filename prefix on output")

	fs.IntVarP(&rootFlags.before, "before-context", "B", 0, "print NUM lines of leading context")
	fs.IntVarP(&rootFlags.after, "after-context", "A", 0, "print NUM lines of trailing context")
	fs.IntVarP(&rootFlags.both, "context", "C", 0, "print NUM lines of leading and trailing context")

	fs.BoolVarP(&rootFlags.onlyMatching, "only-matching", "o", false, "print only the matched parts of a line")
	fs.BoolVarP(&rootFlags.quiet, "quiet", "q", false, "suppress all normal output; exit 0 on first match")
	fs.BoolVarP(&rootFlags.noMessages, "no-messages", "s", false, "suppress error messages")
	fs.BoolVarP(&rootFlags.text, "text", "a", false, "treat binary files as text")

	fs.BoolVarP(&rootFlags.recurse, "recursive", "r", false, "recurse into directories, not following symlinks")
	fs.BoolVarP(&rootFlags.derefRecurse, "dereference-recursive", "R", false, "recurse into directories, following symlinks")
	fs.IntVarP(&rootFlags.parallel, "parallel", "p", 0, "number of parallel workers for recursive search (0 = sequential)")
	fs.BoolVarP(&rootFlags.zMode, "null-data", "z", false, "lines are terminated by a zero byte instead of a newline")

	fs.StringVar(&rootFlags.color, "color", "auto", `use markers to highlight matches: "auto", "always", or "never"`)
	fs.StringVar(&rootFlags.binaryFiles, "binary-files", "binary", `binary file policy: "binary", "text", or "without-match"`)
	fs.BoolVarP(&rootFlags.skipBinary, "binary-skip", "I", false, "skip binary files entirely during recursive search")

	fs.BoolVar(&rootFlags.debug, "debug", false, "write per-file trace messages to standard error")

	fs.StringArrayVar(&rootFlags.include, "include", nil, "recurse only into files matching GLOB (repeatable)")
	fs.StringArrayVar(&rootFlags.exclude, "exclude", nil, "skip files matching GLOB (repeatable)")
	fs.StringArrayVar(&rootFlags.excludeDir, "exclude-dir", nil, "skip directories matching GLOB (repeatable)")
}

// Execute runs the root command and returns the process exit code alongside
// any error that should be reported on standard error. The deprecated
// GREP_OPTIONS environment variable, when set, is split and prepended ahead
// of the real argv as default arguments, so explicit command-line flags
// still override it.
func Execute() (int, error) {
	rootCmd.SetArgs(append(config.SplitGrepOptions(), os.Args[1:]...))
	err := rootCmd.Execute()
	return exitCode, err
}
