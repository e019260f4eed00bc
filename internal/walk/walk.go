// Package walk implements the three traversal variants described in
// spec.md §4.E-§4.G: a depth-first Sequential walker, a bounded-concurrency
// Parallel walker, and a callback-driven Streaming walker. All three
// produce structurally identical IR for identical inputs (spec.md §8,
// invariant #1).
package walk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/waterrun/treepp/internal/filter"
	"github.com/waterrun/treepp/internal/treeir"
)

// ErrCancelled is returned by any walker when ctx is cancelled mid-traversal.
var ErrCancelled = errors.New("walk: cancelled")

// Counts accumulates the aggregate numbers a ScanDriver reports in
// ScanStats. They are filled in as nodes are visited, before pruning; the
// driver is responsible for re-deriving them after OrderingAndPrune runs,
// since pruned directories must not contribute (spec.md §4.I).
type Counts struct {
	Directories int
	Files       int
	TotalSize   int64
}

// Result is what every walker variant returns: the root node plus raw
// visit counts and any non-fatal findings collected along the way.
type Result struct {
	Root     *treeir.TreeNode
	Counts   Counts
	Warnings []string
}

// rootInfo stats and validates the scan root once, shared by all variants.
func rootInfo(root string) (os.FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("walk: cannot stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walk: root %q is not a directory", root)
	}
	return info, nil
}

// classify derives a node's kind and metadata from its directory entry.
// Symlinks are not followed unless followSymlinks is set, matching
// spec.md §4.E's "obtain metadata (non-following for symlinks)".
func classify(d os.DirEntry, fullPath string, followSymlinks bool) treeir.EntryMetadata {
	if d.Type()&os.ModeSymlink != 0 {
		if followSymlinks {
			if info, err := os.Stat(fullPath); err == nil {
				kind := treeir.File
				size := info.Size()
				if info.IsDir() {
					kind = treeir.Directory
					size = 0
				}
				return treeir.EntryMetadata{Size: size, ModTime: info.ModTime(), Kind: kind}
			}
		}
		if info, err := d.Info(); err == nil {
			return treeir.EntryMetadata{Size: info.Size(), ModTime: info.ModTime(), Kind: treeir.Symlink}
		}
		return treeir.EntryMetadata{Kind: treeir.Symlink, ErrorOnStat: true}
	}

	info, err := d.Info()
	if err != nil {
		return treeir.EntryMetadata{Kind: treeir.Other, ErrorOnStat: true}
	}
	kind := treeir.File
	size := info.Size()
	if info.IsDir() {
		kind = treeir.Directory
		size = 0
	} else if !info.Mode().IsRegular() {
		kind = treeir.Other
	}
	return treeir.EntryMetadata{Size: size, ModTime: info.ModTime(), Kind: kind}
}

// listDir reads dir's entries. os.ReadDir already returns entries sorted by
// filename, which is exactly the traversal-order determinism spec.md §4.E
// asks for; display order is a separate concern handled by OrderingAndPrune.
func listDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	default:
		return nil
	}
}

// decide runs the FilterEngine for one entry and records its decision on
// the node; it never returns an error — an entry whose stat failed is
// decided like any other (by name, with zero size) and keeps the
// ErrorOnStat flag classify already set.
func decide(eng *filter.Engine, node *treeir.TreeNode) {
	isDir := node.Kind == treeir.Directory
	node.SetDecision(eng.Decide(node.Path, isDir, node.Metadata.Size))
}

func shouldRecurse(node *treeir.TreeNode) bool {
	return node.Kind == treeir.Directory && node.Decision().Retained()
}

func withinDepth(cfg treeir.Config, level int) bool {
	return cfg.MaxLevel <= 0 || level <= cfg.MaxLevel
}

// visible reports whether a file entry should be listed at all (directories
// are always listed, per spec.md §6's include_files semantics).
func visible(cfg treeir.Config, isDir bool) bool {
	return isDir || cfg.IncludeFiles
}
