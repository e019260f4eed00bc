package walk

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/waterrun/treepp/internal/filter"
	"github.com/waterrun/treepp/internal/treeir"
)

// Parallel walks the tree with a bounded worker pool sized by
// cfg.ThreadCount (defaulting to the number of logical CPUs), dividing
// work by directory: each directory's child directories are scheduled
// concurrently, while files within one directory are always processed
// sequentially by the task that owns it (spec.md §4.F).
func Parallel(ctx context.Context, cfg treeir.Config, eng *filter.Engine) (*Result, error) {
	info, err := rootInfo(cfg.Root)
	if err != nil {
		return nil, err
	}

	threads := cfg.ThreadCount
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	root := &treeir.TreeNode{
		Name:     filepath.Base(cfg.Root),
		Path:     cfg.Root,
		Kind:     treeir.Directory,
		Metadata: treeir.EntryMetadata{ModTime: info.ModTime(), Kind: treeir.Directory},
	}
	root.SetDecision(treeir.Retained())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	w := &parallelState{cfg: cfg, eng: eng, group: g}
	w.counts.directories.Add(1)

	w.walkDir(gctx, root, 1)

	err = g.Wait()
	if err == nil {
		// Inline walkDir calls stop on cancellation without an error of
		// their own, so the context is checked once more here.
		err = checkCancel(ctx)
	}
	if err != nil {
		res := w.result()
		res.Root = root
		return res, err
	}

	res := w.result()
	res.Root = root
	res.Warnings = append(res.Warnings, eng.Warnings()...)
	return res, nil
}

// parallelState is shared, read-mostly configuration plus atomic counters;
// the tree itself is never touched by more than one goroutine at a time —
// each task owns the TreeNode it was handed and appends only to its own
// Children slice, then the scheduler (errgroup) hands that completed
// subtree back up via the closure's captured pointer, never by a worker
// reaching into its parent's slice concurrently (spec.md §5).
type parallelState struct {
	cfg   treeir.Config
	eng   *filter.Engine
	group *errgroup.Group

	counts struct {
		directories atomic.Int64
		files       atomic.Int64
		totalSize   atomic.Int64
	}

	warnMu   sync.Mutex
	warnings []string
}

func (w *parallelState) addWarning(msg string) {
	w.warnMu.Lock()
	w.warnings = append(w.warnings, msg)
	w.warnMu.Unlock()
}

func (w *parallelState) result() *Result {
	return &Result{
		Counts: Counts{
			Directories: int(w.counts.directories.Load()),
			Files:       int(w.counts.files.Load()),
			TotalSize:   w.counts.totalSize.Load(),
		},
		Warnings: append([]string(nil), w.warnings...),
	}
}

// walkDir processes one directory's own entries sequentially (building its
// Children slice, which only this call ever writes to), then tries to hand
// each retained child directory's recursive walk to the shared, bounded
// errgroup. Scheduling uses TryGo, not Go: this call may already be running
// on a borrowed slot, and a worker that blocks on Go while holding a slot
// can deadlock the whole pool (every slot waiting on a child that can only
// run once a slot frees). When TryGo reports the pool is full, the child is
// walked inline instead — no slot consumed, so it can't starve its own
// descendants of a future slot. It does not itself return an error:
// per-directory failures are recorded as warnings, matching the "log and
// continue" discipline; only cancellation propagates as a hard error via
// the errgroup's context.
func (w *parallelState) walkDir(ctx context.Context, dir *treeir.TreeNode, level int) {
	if err := checkCancel(ctx); err != nil {
		return
	}
	if !withinDepth(w.cfg, level) {
		dir.Metadata.Truncated = true
		return
	}

	entries, err := listDir(dir.Path)
	if err != nil {
		dir.Metadata.ErrorOnStat = true
		msg := fmt.Sprintf("directory read error at %q: %v", dir.Path, err)
		slog.Warn("walk: directory read error", "path", dir.Path, "error", err)
		w.addWarning(msg)
		return
	}

	var childDirs []*treeir.TreeNode
	for _, d := range entries {
		childPath := filepath.Join(dir.Path, d.Name())
		meta := classify(d, childPath, w.cfg.FollowSymlinks)
		if !visible(w.cfg, meta.Kind == treeir.Directory) {
			continue
		}

		child := &treeir.TreeNode{Name: d.Name(), Path: childPath, Kind: meta.Kind, Metadata: meta}
		decide(w.eng, child)

		if child.Kind == treeir.Directory {
			w.counts.directories.Add(1)
		} else {
			w.counts.files.Add(1)
			if child.Decision().Retained() {
				w.counts.totalSize.Add(child.Metadata.Size)
			}
		}

		dir.Children = append(dir.Children, child)
		if shouldRecurse(child) {
			childDirs = append(childDirs, child)
		}
	}

	for _, cd := range childDirs {
		cd := cd
		scheduled := w.group.TryGo(func() error {
			if err := checkCancel(ctx); err != nil {
				return err
			}
			w.walkDir(ctx, cd, level+1)
			return checkCancel(ctx)
		})
		if !scheduled {
			// The pool is saturated and this call may itself be running on
			// a borrowed slot: blocking on group.Go here would hold that
			// slot while waiting for one to free, and nothing can free one
			// if every slot is stuck the same way (a worker N levels deep
			// can never finish until its own children finish). Run inline
			// instead — no slot is consumed, so descendants below cd get a
			// fair shot at a future TryGo as siblings elsewhere complete.
			if err := checkCancel(ctx); err != nil {
				return
			}
			w.walkDir(ctx, cd, level+1)
		}
	}
}
