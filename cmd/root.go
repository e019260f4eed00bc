package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waterrun/treepp/internal/appconfig"
	"github.com/waterrun/treepp/internal/driver"
	"github.com/waterrun/treepp/internal/obslog"
	"github.com/waterrun/treepp/internal/sizeparse"
	"github.com/waterrun/treepp/internal/treeir"
)

// driverInterface is the seam tests replace with a stub so RunE's flag
// wiring can be exercised without touching the filesystem scanner.
type driverInterface interface {
	Scan(ctx context.Context, cfg treeir.Config) (*treeir.ScanStats, error)
}

type realDriver struct{}

func (realDriver) Scan(ctx context.Context, cfg treeir.Config) (*treeir.ScanStats, error) {
	return driver.Scan(ctx, cfg)
}

// newDriverFunc is a variable so tests can substitute a stub, mirroring
// the teacher's newProcessorFunc seam.
var newDriverFunc func() driverInterface = func() driverInterface { return realDriver{} }

var (
	includeFiles       bool
	noIncludeFiles     bool
	includePatternsRaw string
	excludePatternsRaw string
	ignoreCase         bool
	noGitignore        bool
	pruneEmpty         bool
	skipCommonNoise    bool
	threadCount        int
	parallel           bool
	maxLevel           int
	sortKeyRaw         string
	reverse            bool
	followSymlinks     bool
	showFiltered       bool
	maxFileSizeStr     string
	verbose            bool
)

var rootCmd = &cobra.Command{
	Use:   "treepp <path>",
	Short: "treepp lists a directory tree with gitignore-aware filtering and pruning.",
	Long: `treepp walks a directory tree, applies layered .gitignore rules alongside
user include/exclude glob patterns, orders and optionally prunes the result, and
prints a one-line-per-entry listing plus a summary of what was kept.`,
	Example: `  treepp .
  treepp ./src --exclude "*.log,vendor" --prune-empty
  treepp . --parallel --threads 8
  treepp . --sort size --reverse --max-file-size 500KB`,
	Args: cobra.ExactArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		obslog.Init(verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]

		maxFileSize, err := sizeparse.Parse(maxFileSizeStr)
		if err != nil {
			return fmt.Errorf("invalid max file size: %w", err)
		}

		sortKey, err := parseSortKey(sortKeyRaw)
		if err != nil {
			return err
		}

		excludes := splitCSV(excludePatternsRaw)
		if skipCommonNoise {
			excludes = append(excludes, appconfig.NoiseExcludeGlobs()...)
		}

		mode := treeir.ModeSequential
		if parallel {
			mode = treeir.ModeParallel
		}

		cfg := treeir.Config{
			Root:                   root,
			IncludeFiles:           resolveIncludeFiles(cmd),
			IncludePatterns:        splitCSV(includePatternsRaw),
			ExcludePatterns:        excludes,
			IgnoreCase:             ignoreCase,
			UseGitignore:           !noGitignore,
			PruneEmpty:             pruneEmpty,
			ThreadCount:            threadCount,
			MaxLevel:               maxLevel,
			SortKey:                sortKey,
			Reverse:                reverse,
			Mode:                   mode,
			FollowSymlinks:         followSymlinks,
			IncludeFilteredEntries: showFiltered,
			MaxFileSize:            maxFileSize,
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		stats, err := newDriverFunc().Scan(ctx, cfg)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		printTree(cmd.OutOrStdout(), stats.Tree, "")
		fmt.Fprintln(cmd.OutOrStdout(), stats.String())
		for _, w := range stats.Warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
		}
		return nil
	},
}

// resolveIncludeFiles mirrors the teacher's --tree/--no-tree precedence
// dance: include-files defaults true, and an explicit --no-files wins
// over an explicit --files if both were somehow set.
func resolveIncludeFiles(cmd *cobra.Command) bool {
	result := includeFiles
	if cmd.Flags().Changed("no-files") {
		result = !noIncludeFiles
	} else if cmd.Flags().Changed("files") {
		result = includeFiles
	}
	return result
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseSortKey(raw string) (treeir.SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "name":
		return treeir.SortByName, nil
	case "name-cs", "name-case-sensitive":
		return treeir.SortByNameCaseSensitive, nil
	case "size":
		return treeir.SortBySize, nil
	case "mtime", "modified":
		return treeir.SortByModifiedTime, nil
	case "kind":
		return treeir.SortByKind, nil
	default:
		return 0, fmt.Errorf("unknown --sort value %q (want name, name-cs, size, mtime, or kind)", raw)
	}
}

// printTree is a minimal illustrative listing, deliberately not the
// box-drawing renderer spec.md places out of core scope: indentation by
// depth, one path per line, annotated with its filter decision when
// Config.IncludeFilteredEntries kept it around.
func printTree(w interface{ Write([]byte) (int, error) }, node *treeir.TreeNode, prefix string) {
	if node == nil {
		return
	}
	fmt.Fprintf(w, "%s%s", prefix, node.Name)
	if !node.Decision().Retained() {
		fmt.Fprintf(w, " [%s]", node.Decision())
	}
	fmt.Fprintln(w)
	for _, c := range node.Children {
		printTree(w, c, prefix+"  ")
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&includeFiles, "files", true, "List files as well as directories (enabled by default)")
	rootCmd.Flags().BoolVar(&noIncludeFiles, "no-files", false, "List directories only, omitting files entirely")

	rootCmd.Flags().StringVar(&includePatternsRaw, "include", "", "Comma-separated glob patterns; only matching files are listed")
	rootCmd.Flags().StringVar(&excludePatternsRaw, "exclude", "", "Comma-separated glob patterns to exclude")
	rootCmd.Flags().BoolVar(&ignoreCase, "ignore-case", false, "Match include/exclude/gitignore patterns case-insensitively")
	rootCmd.Flags().BoolVar(&noGitignore, "no-gitignore", false, "Disable layered .gitignore filtering")
	rootCmd.Flags().BoolVar(&pruneEmpty, "prune-empty", false, "Omit directories left empty after filtering")
	rootCmd.Flags().BoolVar(&skipCommonNoise, "skip-common-noise", false, "Add a curated preset of common VCS/build/media excludes on top of --exclude")

	rootCmd.Flags().BoolVar(&parallel, "parallel", false, "Use the bounded-concurrency walker instead of the sequential one")
	rootCmd.Flags().IntVar(&threadCount, "threads", 0, "Worker count for --parallel (0 selects runtime.NumCPU())")
	rootCmd.Flags().IntVar(&maxLevel, "max-level", 0, "Maximum depth to descend (0 means unlimited)")

	rootCmd.Flags().StringVar(&sortKeyRaw, "sort", "name", "Sort key: name, name-cs, size, mtime, or kind")
	rootCmd.Flags().BoolVar(&reverse, "reverse", false, "Reverse the sort order")
	rootCmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Follow symlinks instead of listing them as symlink entries")
	rootCmd.Flags().BoolVar(&showFiltered, "show-filtered", false, "Keep filtered-out entries in the listing, annotated with why")
	rootCmd.Flags().StringVar(&maxFileSizeStr, "max-file-size", "0", "Exclude files larger than this size (e.g. \"500KB\", \"2MB\"); 0 disables the check")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	cobra.EnableCommandSorting = false
}
