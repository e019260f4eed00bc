package walk

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/waterrun/treepp/internal/filter"
	"github.com/waterrun/treepp/internal/order"
	"github.com/waterrun/treepp/internal/treeir"
)

// Callback receives each completed node in final display order, alongside
// its depth from the root (root itself is depth 0). Returning false
// requests cancellation; the walker stops promptly and Streaming returns
// ErrCancelled.
type Callback func(depth int, node *treeir.TreeNode) bool

// Streaming performs the same traversal as Sequential but sorts and (when
// enabled) prunes each directory's sibling group as soon as it is
// complete, invoking cb for every node in that group before moving on.
// Because order must be final as the callback sees it, streaming is
// always single-threaded (spec.md §4.G).
func Streaming(ctx context.Context, cfg treeir.Config, eng *filter.Engine, cb Callback) (*Result, error) {
	info, err := rootInfo(cfg.Root)
	if err != nil {
		return nil, err
	}

	root := &treeir.TreeNode{
		Name:     filepath.Base(cfg.Root),
		Path:     cfg.Root,
		Kind:     treeir.Directory,
		Metadata: treeir.EntryMetadata{ModTime: info.ModTime(), Kind: treeir.Directory},
	}
	root.SetDecision(treeir.Retained())
	res := &Result{Root: root}
	res.Counts.Directories++

	cancelled, err := walkStreaming(ctx, cfg, eng, root, 1, res, cb)
	if err != nil {
		return res, err
	}
	if cancelled {
		return res, fmt.Errorf("%w: callback requested stop", ErrCancelled)
	}

	if cfg.PruneEmpty {
		order.PruneNode(root)
	}
	if !cb(0, root) {
		return res, fmt.Errorf("%w: callback requested stop", ErrCancelled)
	}

	res.Warnings = append(res.Warnings, eng.Warnings()...)
	return res, nil
}

// walkStreaming fills dir.Children, recursing depth-first. It returns
// cancelled=true the moment cb returns false, unwinding immediately.
func walkStreaming(ctx context.Context, cfg treeir.Config, eng *filter.Engine, dir *treeir.TreeNode, level int, res *Result, cb Callback) (bool, error) {
	if err := checkCancel(ctx); err != nil {
		return false, err
	}

	if !withinDepth(cfg, level) {
		dir.Metadata.Truncated = true
		return false, nil
	}

	entries, err := listDir(dir.Path)
	if err != nil {
		dir.Metadata.ErrorOnStat = true
		msg := fmt.Sprintf("directory read error at %q: %v", dir.Path, err)
		slog.Warn("walk: directory read error", "path", dir.Path, "error", err)
		res.Warnings = append(res.Warnings, msg)
		return false, nil
	}

	for _, d := range entries {
		if err := checkCancel(ctx); err != nil {
			return false, err
		}
		childPath := filepath.Join(dir.Path, d.Name())
		meta := classify(d, childPath, cfg.FollowSymlinks)
		if !visible(cfg, meta.Kind == treeir.Directory) {
			continue
		}

		child := &treeir.TreeNode{Name: d.Name(), Path: childPath, Kind: meta.Kind, Metadata: meta}
		decide(eng, child)

		if child.Kind == treeir.Directory {
			res.Counts.Directories++
		} else {
			res.Counts.Files++
			if child.Decision().Retained() {
				res.Counts.TotalSize += child.Metadata.Size
			}
		}

		dir.Children = append(dir.Children, child)

		if shouldRecurse(child) {
			cancelled, err := walkStreaming(ctx, cfg, eng, child, level+1, res, cb)
			if err != nil {
				return false, err
			}
			if cancelled {
				return true, nil
			}
			if cfg.PruneEmpty {
				order.PruneNode(child)
			}
		}
	}

	order.SortSiblings(dir.Children, cfg.SortKey, cfg.Reverse)
	for _, child := range dir.Children {
		if !cb(level, child) {
			return true, nil
		}
	}
	return false, nil
}
