// Package config implements the ambient CLI/environment layer: it defines
// the Options value cmd/grepcore fills from its flags, resolves
// POSIXLY_CORRECT and GREP_OPTIONS, loads the optional defaults file, and
// applies a fatal-vs-silent-demotion rule for incompatible flag
// combinations. GREP_COLORS/GREP_COLOR are parsed in pkg/printer.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/grepcore/grepcore/pkg/diag"
	"github.com/grepcore/grepcore/pkg/types"
)

// Options is the fully-resolved configuration for one invocation, after
// CLI flags, GREP_OPTIONS prepending, and (when present) a defaults file
// have all been merged. CLI flags always win.
type Options struct {
	Dialect types.Dialect

	Patterns    []string // from repeated -e
	PatternFiles []string // from repeated -f

	IgnoreCase bool
	WholeWord  bool
	WholeLine  bool
	Invert     bool

	CountOnly        bool
	ListMatching     bool
	ListNonMatching  bool
	MaxCount         int // -m N, 0 = unlimited
	LineNumber       bool
	ByteOffset       bool
	WithFilename     bool
	NoFilename       bool
	OnlyMatching     bool
	Quiet            bool
	NoMessages       bool // -s
	Color            string // "auto" | "always" | "never"
	Text             bool   // -a

	Recurse        bool
	DerefSymlinks  bool // -R vs -r
	Parallel       int  // -p N, 0 = sequential
	ZMode          bool // -z

	Include []string
	Exclude []string
	ExcludeDir []string

	BeforeContext int // -B
	AfterContext  int // -A

	BinaryFiles string // "binary" | "text" | "without-match"

	Files []string
}

// defaultsFile is the optional ~/.grepcorerc YAML defaults document, kept as
// its own intermediate struct rather than unmarshalling straight into
// Options, so the on-disk schema can evolve independently of it.
type defaultsFile struct {
	IgnoreCase bool     `yaml:"ignore_case,omitempty"`
	Color      string   `yaml:"color,omitempty"`
	BinaryFiles string  `yaml:"binary_files,omitempty"`
	Exclude    []string `yaml:"exclude,omitempty"`
	ExcludeDir []string `yaml:"exclude_dir,omitempty"`
}

// LoadDefaultsFile reads an optional YAML defaults document and applies it
// to opts wherever the corresponding field is still at its zero value —
// CLI-bound fields always take precedence since they are applied after
// this call returns.
func LoadDefaultsFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return diag.Wrap(diag.KindIO, "read", path, err)
	}
	var df defaultsFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return diag.Wrap(diag.KindInternal, "parse defaults", path, err)
	}
	if !opts.IgnoreCase {
		opts.IgnoreCase = df.IgnoreCase
	}
	if opts.Color == "" {
		opts.Color = df.Color
	}
	if opts.BinaryFiles == "" {
		opts.BinaryFiles = df.BinaryFiles
	}
	opts.Exclude = append(opts.Exclude, df.Exclude...)
	opts.ExcludeDir = append(opts.ExcludeDir, df.ExcludeDir...)
	return nil
}

// SplitGrepOptions splits the deprecated GREP_OPTIONS environment variable
// into arguments to prepend ahead of the real argv.
func SplitGrepOptions() []string {
	v, ok := os.LookupEnv("GREP_OPTIONS")
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	return strings.Fields(v)
}

// PosixlyCorrect reports whether POSIXLY_CORRECT is set, which elevates
// certain DFA warnings to errors.
func PosixlyCorrect() bool {
	_, ok := os.LookupEnv("POSIXLY_CORRECT")
	return ok
}

// ParallelConflict is returned by Validate when an option incompatible
// with parallel mode was explicitly requested by the user.
type ParallelConflict struct {
	Option string
}

func (e *ParallelConflict) Error() string {
	return fmt.Sprintf("option %s is not supported in parallel mode (-p)", e.Option)
}

// ExplicitRequest records whether the user spelled out -p themselves, as
// opposed to parallelism being implied by -r/-R with a default worker count.
type ExplicitRequest struct {
	ParallelFlagSet bool
}

// Validate enforces the fatal-error path for user-requested -p combined with
// a parallel-incompatible option, and the silent-demotion path when
// parallelism was only implied by -r/-R. When req.ParallelFlagSet is true
// and a parallel-incompatible option is set, Validate returns a
// *ParallelConflict the driver should treat as a fatal, exit-2 error. When
// parallelism was only implied by -r/-R (req.ParallelFlagSet false),
// Validate instead silently demotes by zeroing opts.Parallel, and the
// caller continues sequentially.
func Validate(opts *Options, req ExplicitRequest) error {
	// An ordered slice, not a map: the reported conflicting option name
	// must be deterministic across runs when more than one incompatible
	// option is set alongside an explicit -p.
	incompatible := []struct {
		name string
		set  bool
	}{
		{"-A/-B/-C", opts.BeforeContext > 0 || opts.AfterContext > 0},
		{"-w", opts.WholeWord},
		{"--include/--exclude", len(opts.Include) > 0 || len(opts.Exclude) > 0 || len(opts.ExcludeDir) > 0},
	}
	if opts.Parallel <= 1 {
		return nil
	}
	for _, inc := range incompatible {
		if !inc.set {
			continue
		}
		if req.ParallelFlagSet {
			return &ParallelConflict{Option: inc.name}
		}
		opts.Parallel = 0
		return nil
	}
	return nil
}

// NewExplicitRequest builds an ExplicitRequest from whether -p appeared on
// the command line (cobra's Flags().Changed("parallel")).
func NewExplicitRequest(parallelFlagSet bool) ExplicitRequest {
	return ExplicitRequest{ParallelFlagSet: parallelFlagSet}
}
