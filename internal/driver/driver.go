// Package driver implements ScanDriver (spec.md §4.I): the orchestration
// point that validates a Config, selects a walker variant, runs
// OrderingAndPrune, and assembles ScanStats.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/waterrun/treepp/internal/filter"
	"github.com/waterrun/treepp/internal/order"
	"github.com/waterrun/treepp/internal/pattern"
	"github.com/waterrun/treepp/internal/treeir"
	"github.com/waterrun/treepp/internal/walk"
)

// Sentinel errors, each wrapped with contextual detail via fmt.Errorf's
// %w verb and checked with errors.Is/errors.As, mirroring the teacher's
// error-handling idiom throughout processor.go and filefilter.go.
var (
	ErrInvalidConfig = errors.New("driver: invalid config")
	ErrPathNotFound  = errors.New("driver: path not found")
	ErrCancelled     = errors.New("driver: cancelled")
)

// ConfigError names the offending field of an InvalidConfig failure.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// Validate checks cfg against the InvalidConfig cases: an empty root, a
// root that is not a directory, a negative thread count in parallel mode
// (zero is accepted and selects runtime.NumCPU()), or an include/exclude
// pattern that fails to compile. A root that does not exist is reported as
// ErrPathNotFound instead.
func Validate(cfg treeir.Config) error {
	if cfg.Root == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, &ConfigError{Field: "Root", Msg: "must not be empty"})
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q: %v", ErrPathNotFound, cfg.Root, err)
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, &ConfigError{Field: "Root", Msg: err.Error()})
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, &ConfigError{Field: "Root", Msg: "must be a directory"})
	}
	if cfg.Mode == treeir.ModeParallel && cfg.ThreadCount < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, &ConfigError{Field: "ThreadCount", Msg: "must not be negative"})
	}

	for _, raw := range cfg.IncludePatterns {
		if _, err := pattern.Compile(raw, cfg.IgnoreCase); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, &ConfigError{Field: "IncludePatterns", Msg: err.Error()})
		}
	}
	for _, raw := range cfg.ExcludePatterns {
		if _, err := pattern.Compile(raw, cfg.IgnoreCase); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, &ConfigError{Field: "ExcludePatterns", Msg: err.Error()})
		}
	}
	return nil
}

// Scan runs the full pipeline: validate, select walker variant, filter,
// order, and (optionally) prune, returning the assembled ScanStats. For
// Config.Mode == ModeStreaming this drives the walk with a no-op callback
// that always continues; use ScanStreaming to receive entries incrementally.
func Scan(ctx context.Context, cfg treeir.Config) (*treeir.ScanStats, error) {
	return scan(ctx, cfg, func(depth int, node *treeir.TreeNode) bool { return true })
}

// ScanStreaming is Scan's counterpart for callers that want entries as
// they complete, in final display order (spec.md §4.G). cb is only
// consulted when cfg.Mode == ModeStreaming; other modes ignore it.
func ScanStreaming(ctx context.Context, cfg treeir.Config, cb walk.Callback) (*treeir.ScanStats, error) {
	return scan(ctx, cfg, cb)
}

func scan(ctx context.Context, cfg treeir.Config, cb walk.Callback) (*treeir.ScanStats, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	// Normalized once here so every downstream package (filter's gitignore
	// chain, the walkers) works from the same absolute root and never has
	// to reconcile a relative Config.Root against an absolute chain key.
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}

	eng, err := filter.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	start := time.Now()

	var res *walk.Result
	var walkErr error
	threadsUsed := cfg.ThreadCount

	switch cfg.Mode {
	case treeir.ModeParallel:
		res, walkErr = walk.Parallel(ctx, cfg, eng)
		if threadsUsed <= 0 {
			threadsUsed = runtime.NumCPU()
		}
	case treeir.ModeStreaming:
		res, walkErr = walk.Streaming(ctx, cfg, eng, cb)
		threadsUsed = 1
	default:
		res, walkErr = walk.Sequential(ctx, cfg, eng)
		threadsUsed = 1
	}

	if walkErr != nil {
		if errors.Is(walkErr, walk.ErrCancelled) {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, walkErr)
		}
		return nil, walkErr
	}

	for _, w := range res.Warnings {
		slog.Warn("driver: non-fatal finding", "detail", w)
	}

	// Streaming already sorted (and, if enabled, pruned) every sibling
	// group incrementally as it completed; Sequential and Parallel defer
	// both passes to here, over the now-fully-built tree.
	if cfg.Mode != treeir.ModeStreaming {
		order.Apply(res.Root, cfg)
	}

	stats := aggregate(res.Root)
	stats.Duration = time.Since(start)
	stats.ThreadCountUsed = threadsUsed
	stats.Warnings = res.Warnings

	if !cfg.IncludeFilteredEntries {
		stripFiltered(res.Root)
	}

	stats.Tree = res.Root
	return stats, nil
}

// aggregate recomputes directory/file counts and total size directly from
// the final, already-pruned tree so that pruned directories never
// contribute (spec.md §4.I) regardless of what the walker counted in
// flight.
func aggregate(node *treeir.TreeNode) *treeir.ScanStats {
	stats := &treeir.ScanStats{}
	var walkFn func(n *treeir.TreeNode)
	walkFn = func(n *treeir.TreeNode) {
		if n.Kind == treeir.Directory {
			if n.Decision().Retained() {
				stats.DirectoryCount++
			}
			for _, c := range n.Children {
				walkFn(c)
			}
			return
		}
		if n.Decision().Retained() {
			stats.FileCount++
			stats.TotalSize += n.Metadata.Size
		}
	}
	for _, c := range node.Children {
		walkFn(c)
	}
	return stats
}

// stripFiltered removes non-Retained children from the tree in place, for
// the common case where the caller only wants what survived filtering
// (Config.IncludeFilteredEntries == false). Directories are kept
// regardless of their own decision if they still hold retained
// descendants after stripping: a Gitignored/Excluded directory only
// disappears when nothing beneath it remains.
func stripFiltered(node *treeir.TreeNode) {
	kept := node.Children[:0]
	for _, c := range node.Children {
		if c.Kind == treeir.Directory {
			stripFiltered(c)
		}
		if c.Decision().Retained() || len(c.Children) > 0 {
			kept = append(kept, c)
		}
	}
	node.Children = kept
}
