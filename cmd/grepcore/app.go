package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/grepcore/grepcore/pkg/buffer"
	"github.com/grepcore/grepcore/pkg/compiler"
	"github.com/grepcore/grepcore/pkg/config"
	"github.com/grepcore/grepcore/pkg/dfa"
	"github.com/grepcore/grepcore/pkg/diag"
	"github.com/grepcore/grepcore/pkg/driver"
	"github.com/grepcore/grepcore/pkg/engine"
	"github.com/grepcore/grepcore/pkg/prefilter"
	"github.com/grepcore/grepcore/pkg/printer"
	"github.com/grepcore/grepcore/pkg/regexfallback"
	"github.com/grepcore/grepcore/pkg/sink"
	"github.com/grepcore/grepcore/pkg/traverse"
	"github.com/grepcore/grepcore/pkg/types"
)

// exitCode is set by runSearch to the tri-state outcome (0
// match, 1 no match, 2 error) before cobra's Execute returns; main reads it
// after Execute to decide the process exit status, since a RunE error alone
// cannot express "ran fine, found nothing."
var exitCode int

func runSearch(cmd *cobra.Command, args []string) error {
	v := &rootFlags
	exitCode = 0

	if err := applyDefaultsFile(cmd, v); err != nil {
		exitCode = 2
		return err
	}

	sources, files, err := collectSources(v, args)
	if err != nil {
		exitCode = 2
		return err
	}

	compOpts := compiler.Options{
		Dialect:    resolveDialect(v),
		IgnoreCase: v.ignoreCase,
		WholeWord:  v.wholeWord,
		WholeLine:  v.wholeLine,
		ZMode:      v.zMode,
		// grepcore has no locale subsystem; it always
		// assumes UTF-8/single-byte input, so promotion rule (1) never
		// widens to basic regexp for a single-byte locale alone.
		SingleByteLocale: false,
	}

	set, must, err := compiler.Compile(sources, compOpts)
	if err != nil {
		exitCode = 2
		return err
	}

	kw := prefilter.New(must)

	d, err := dfa.Compile(set)
	if err != nil {
		// Hyperscan unavailable (no cgo) or the joined pattern exceeded
		// what a single block database can hold: degrade to the
		// keyword+regex-array tail of the cascade rather than aborting,
		// unless POSIXLY_CORRECT elevates the warning to an error.
		if config.PosixlyCorrect() {
			exitCode = 2
			return fmt.Errorf("compiling DFA: %w", err)
		}
		d = nil
	}
	// CompileSuperset only builds anything when the pattern set has a
	// back-reference, which is exactly the case where the primary DFA (d)
	// fails to compile at all -- Hyperscan cannot represent \1-style
	// syntax. Gating this on d != nil would make the superset cascade
	// stage unreachable for every real back-reference pattern set.
	var superset *dfa.DFA
	if superset, err = dfa.CompileSuperset(set); err != nil {
		superset = nil
	}

	regexArr, err := regexfallback.Compile(set)
	if err != nil {
		exitCode = 2
		return fmt.Errorf("compiling patterns: %w", err)
	}

	before, after := v.before, v.after
	if v.both > 0 {
		before, after = v.both, v.both
	}

	copts := config.Options{
		BeforeContext: before,
		AfterContext:  after,
		WholeWord:     v.wholeWord,
		Include:       v.include,
		Exclude:       v.exclude,
		ExcludeDir:    v.excludeDir,
		Parallel:      v.parallel,
	}
	req := config.NewExplicitRequest(cmd.Flags().Changed("parallel"))
	if err := config.Validate(&copts, req); err != nil {
		exitCode = 2
		return err
	}

	recurse := v.recurse || v.derefRecurse
	if recurse && !req.ParallelFlagSet && copts.Parallel == 0 {
		if parallelCompatible(copts) {
			copts.Parallel = runtime.NumCPU()
		}
	}

	eng := engine.New(set.EOL, kw, d, superset, regexArr)
	colorOn := resolveColorEnabled(v.color)
	colors := printer.NewColorScheme(colorOn)
	withFilename := resolveWithFilename(v, files, recurse)

	popts := printer.Options{
		WithFilename: withFilename,
		LineNumber:   v.lineNumber,
		ByteOffset:   v.byteOffset,
		OnlyMatching: v.onlyMatching,
		Color:        colorOn,
		Separator:    ':',
	}

	out := sink.NewDirect(os.Stdout)
	p := printer.New(out, colors, popts, eng)

	drv := driver.New(eng, p, out)
	configureDriver(drv, v, before, after, withFilename)

	var matchedAny, errorSeen bool

	if recurse {
		roots := files
		if len(roots) == 0 {
			roots = []string{"."}
		}
		workers, werr := buildWorkerDrivers(copts.Parallel, set, kw, d, superset, colors, popts, v, before, after)
		if werr != nil {
			exitCode = 2
			return werr
		}
		for _, root := range roots {
			cfg := traverse.Config{
				Root:           root,
				Workers:        len(workers),
				FollowSymlinks: v.derefRecurse,
				Exclude:        buildExcludeFunc(v, root),
				Handle: func(workerID int, path string, slot *sink.Slot) (bool, error) {
					wd := workers[workerID]
					wd.SetSink(slot)
					return wd.ScanPath(path, true)
				},
			}
			res, rerr := traverse.Run(context.Background(), cfg, out)
			if rerr != nil {
				exitCode = 2
				return rerr
			}
			matchedAny = matchedAny || res.MatchedAny
			errorSeen = errorSeen || res.ErrorSeen
			if !v.noMessages {
				for _, e := range res.FirstErrors {
					fmt.Fprintf(os.Stderr, "grepcore: %s\n", e)
				}
			}
		}
	} else {
		if len(files) == 0 {
			files = []string{"-"}
		}
		matchedAny, errorSeen = drv.Run(files)
	}

	if ferr := out.Flush(); ferr != nil {
		exitCode = 2
		return ferr
	}

	exitCode = driver.ExitStatus(matchedAny, errorSeen, v.quiet)
	return nil
}

// applyDefaultsFile loads the optional ~/.grepcorerc YAML defaults document
// and folds it onto v for whichever flags the user did not spell out on the
// command line; a flag the user actually set on argv is never overridden by
// a default.
func applyDefaultsFile(cmd *cobra.Command, v *flagVars) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil // no $HOME: nothing to load, not an error
	}
	var defaults config.Options
	if err := config.LoadDefaultsFile(filepath.Join(home, ".grepcorerc"), &defaults); err != nil {
		return err
	}
	if !cmd.Flags().Changed("ignore-case") && defaults.IgnoreCase {
		v.ignoreCase = true
	}
	if !cmd.Flags().Changed("color") && defaults.Color != "" {
		v.color = defaults.Color
	}
	if !cmd.Flags().Changed("binary-files") && defaults.BinaryFiles != "" {
		v.binaryFiles = defaults.BinaryFiles
	}
	v.exclude = append(v.exclude, defaults.Exclude...)
	v.excludeDir = append(v.excludeDir, defaults.ExcludeDir...)
	return nil
}

// collectSources resolves the positional-PATTERN-vs-(-e/-f) disambiguation
// grep's own argv convention uses: when neither -e nor -f was given, the
// first bare argument is the pattern and the rest are files.
func collectSources(v *flagVars, args []string) ([]compiler.Source, []string, error) {
	if len(v.patternExprs) == 0 && len(v.patternFiles) == 0 {
		if len(args) == 0 {
			return nil, nil, fmt.Errorf("no pattern specified")
		}
		return []compiler.Source{{Text: args[0], Label: "-e"}}, args[1:], nil
	}

	var sources []compiler.Source
	for _, expr := range v.patternExprs {
		sources = append(sources, compiler.Source{Text: expr, Label: "-e"})
	}
	for _, path := range v.patternFiles {
		text, err := readPatternFile(path)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, compiler.Source{Text: text, Label: path})
	}
	return sources, args, nil
}

func readPatternFile(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading patterns from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading patterns from %s: %w", path, err)
	}
	return string(data), nil
}

// resolveDialect applies a fixed precedence across the four dialect flags.
// pflag does not expose the relative order of distinct long/short options
// on the line, so grepcore picks the most specific dialect whenever more
// than one flag is given (fixed-strings, then perl, then extended, then
// basic), rather than tracking raw argv order itself.
func resolveDialect(v *flagVars) types.Dialect {
	switch {
	case v.fixedStrings:
		return types.FixedStrings
	case v.perlRegexp:
		return types.Perl
	case v.extendedRegexp:
		return types.Extended
	default:
		return types.Basic
	}
}

func resolveBinaryPolicy(v *flagVars) buffer.BinaryPolicy {
	if v.text {
		return buffer.BinaryFilesText
	}
	if v.skipBinary {
		return buffer.BinaryFilesWithoutMatch
	}
	switch v.binaryFiles {
	case "without-match":
		return buffer.BinaryFilesWithoutMatch
	case "text":
		return buffer.BinaryFilesText
	default:
		return buffer.BinaryFilesBinary
	}
}

func resolveColorEnabled(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd())
	}
}

func resolveWithFilename(v *flagVars, files []string, recurse bool) bool {
	if v.noFilename {
		return false
	}
	return v.withFilename || recurse || len(files) > 1
}

// parallelCompatible reports whether none of the options config.Validate
// treats as parallel-incompatible are active — checked here before
// defaulting Parallel to runtime.NumCPU() so that default never needs a
// second silent demotion.
func parallelCompatible(copts config.Options) bool {
	return copts.BeforeContext == 0 && copts.AfterContext == 0 && !copts.WholeWord &&
		len(copts.Include) == 0 && len(copts.Exclude) == 0 && len(copts.ExcludeDir) == 0
}

func configureDriver(drv *driver.Driver, v *flagVars, before, after int, withFilename bool) {
	drv.Log = diag.NoopLogger{}
	if v.debug {
		drv.Log = diag.StderrLogger{}
	}
	drv.Mode = driver.ModeNormal
	switch {
	case v.countOnly:
		drv.Mode = driver.ModeCountOnly
	case v.listMatching:
		drv.Mode = driver.ModeListMatching
	case v.listNonMatching:
		drv.Mode = driver.ModeListNonMatching
	}
	drv.Invert = v.invert
	drv.MaxCount = v.maxCount
	drv.Quiet = v.quiet
	drv.NoMessages = v.noMessages
	drv.WithFilename = withFilename
	drv.Binary = resolveBinaryPolicy(v)
	drv.BeforeContext = before
	drv.AfterContext = after
}

// buildWorkerDrivers builds n per-worker Driver replicas, each holding its
// own DFA clone (dfa.DFA.Clone, a fresh Hyperscan Scratch over the shared,
// immutable block database) and its own freshly-compiled regex array, since
// both Hyperscan's Scratch and regexp2's match state are mutable and must
// not be shared across goroutines. The KeywordSet is safe to share across
// every worker unmodified.
func buildWorkerDrivers(n int, set *types.Set, kw *prefilter.KeywordSet, d, superset *dfa.DFA, colors *printer.ColorScheme, popts printer.Options, v *flagVars, before, after int) ([]*driver.Driver, error) {
	if n < 1 {
		n = 1
	}
	drivers := make([]*driver.Driver, n)
	for i := 0; i < n; i++ {
		var dClone, supClone *dfa.DFA
		var err error
		if d != nil {
			if dClone, err = d.Clone(); err != nil {
				return nil, fmt.Errorf("cloning DFA for worker %d: %w", i, err)
			}
		}
		if superset != nil {
			if supClone, err = superset.Clone(); err != nil {
				return nil, fmt.Errorf("cloning superset DFA for worker %d: %w", i, err)
			}
		}
		regexArr, err := regexfallback.Compile(set)
		if err != nil {
			return nil, fmt.Errorf("compiling regex array for worker %d: %w", i, err)
		}
		workerEng := engine.New(set.EOL, kw, dClone, supClone, regexArr)

		// Out is a placeholder until traverse's FileHandler calls SetSink
		// with that file's Output Slot; a worker never writes through it
		// directly.
		workerOut := sink.NewDirect(io.Discard)
		workerPrinter := printer.New(workerOut, colors, popts, workerEng)
		wd := driver.New(workerEng, workerPrinter, workerOut)
		configureDriver(wd, v, before, after, true)
		drivers[i] = wd
	}
	return drivers, nil
}

// buildExcludeFunc compiles --include/--exclude/--exclude-dir into a single
// gitignore-style predicate, the narrow ExcludeFunc traverse consumes.
// --include is implemented as a whitelist by first excluding everything and
// then negating each include glob, matching GNU grep's combined semantics
// rather than gitignore's own (include-only has no meaning without an
// enclosing exclude-everything rule); a documented simplification recorded
// in DESIGN.md.
func buildExcludeFunc(v *flagVars, root string) traverse.ExcludeFunc {
	var lines []string
	if len(v.include) > 0 {
		lines = append(lines, "*")
		for _, g := range v.include {
			lines = append(lines, "!"+g)
		}
	}
	lines = append(lines, v.exclude...)
	for _, g := range v.excludeDir {
		lines = append(lines, strings.TrimSuffix(g, "/")+"/")
	}
	if len(lines) == 0 {
		return func(string, bool) bool { return false }
	}
	ig := gitignore.CompileIgnoreLines(lines...)
	return traverse.GitignoreExclude(root, ig)
}
