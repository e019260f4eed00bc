package walk

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/waterrun/treepp/internal/filter"
	"github.com/waterrun/treepp/internal/treeir"
)

// Sequential performs a depth-first pre-order traversal, single-threaded,
// exactly as spec.md §4.E describes.
func Sequential(ctx context.Context, cfg treeir.Config, eng *filter.Engine) (*Result, error) {
	info, err := rootInfo(cfg.Root)
	if err != nil {
		return nil, err
	}

	root := &treeir.TreeNode{
		Name: filepath.Base(cfg.Root),
		Path: cfg.Root,
		Kind: treeir.Directory,
		Metadata: treeir.EntryMetadata{
			ModTime: info.ModTime(),
			Kind:    treeir.Directory,
		},
	}
	root.SetDecision(treeir.Retained())
	res := &Result{Root: root}
	res.Counts.Directories++

	if err := walkSequential(ctx, cfg, eng, root, 1, res); err != nil {
		return res, err
	}
	res.Warnings = append(res.Warnings, eng.Warnings()...)
	return res, nil
}

func walkSequential(ctx context.Context, cfg treeir.Config, eng *filter.Engine, dir *treeir.TreeNode, level int, res *Result) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	if !withinDepth(cfg, level) {
		dir.Metadata.Truncated = true
		return nil
	}

	entries, err := listDir(dir.Path)
	if err != nil {
		dir.Metadata.ErrorOnStat = true
		msg := fmt.Sprintf("directory read error at %q: %v", dir.Path, err)
		slog.Warn("walk: directory read error", "path", dir.Path, "error", err)
		res.Warnings = append(res.Warnings, msg)
		return nil
	}

	for _, d := range entries {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		childPath := filepath.Join(dir.Path, d.Name())
		meta := classify(d, childPath, cfg.FollowSymlinks)
		if !visible(cfg, meta.Kind == treeir.Directory) {
			continue
		}

		child := &treeir.TreeNode{
			Name:     d.Name(),
			Path:     childPath,
			Kind:     meta.Kind,
			Metadata: meta,
		}
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
			if err := walkSequential(ctx, cfg, eng, child, level+1, res); err != nil {
				return err
			}
		}
	}
	return nil
}
