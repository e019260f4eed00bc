package walk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterrun/treepp/internal/filter"
	"github.com/waterrun/treepp/internal/order"
	"github.com/waterrun/treepp/internal/treeir"
)

func mkTree(t *testing.T, root string, dirs int, filesPerDir int) {
	t.Helper()
	for i := 0; i < dirs; i++ {
		d := filepath.Join(root, fmt.Sprintf("dir%03d", i))
		require.NoError(t, os.MkdirAll(d, 0o755))
		for j := 0; j < filesPerDir; j++ {
			require.NoError(t, os.WriteFile(filepath.Join(d, fmt.Sprintf("f%02d.txt", j)), []byte("x"), 0o644))
		}
	}
}

// collectPaths flattens a tree into a sorted slice of relative paths,
// used to compare the "multiset of paths" invariant (#7) across walkers.
func collectPaths(root string, node *treeir.TreeNode) []string {
	var out []string
	var walk func(n *treeir.TreeNode)
	walk = func(n *treeir.TreeNode) {
		rel, _ := filepath.Rel(root, n.Path)
		if rel != "." {
			out = append(out, rel)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(node)
	sort.Strings(out)
	return out
}

func TestSequential_S1(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.rs"), []byte("fn main(){}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "debug.log"), []byte("log"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))

	cfg := treeir.Config{Root: root, IncludeFiles: true, IncludePatterns: []string{"*.rs"}, UseGitignore: true}
	eng, err := filter.New(cfg)
	require.NoError(t, err)

	res, err := Sequential(context.Background(), cfg, eng)
	require.NoError(t, err)

	byName := map[string]treeir.FilterDecision{}
	for _, c := range res.Root.Children {
		byName[c.Name] = c.Decision()
	}
	assert.True(t, byName["main.rs"].Retained())
	assert.Equal(t, treeir.DecisionNotIncluded, byName["readme.md"].Kind)
	assert.Equal(t, treeir.DecisionGitignored, byName["debug.log"].Kind)
}

// S6: depth limit truncates recursion but keeps the directory node.
func TestSequential_DepthLimit_S6(t *testing.T) {
	root := t.TempDir()
	cur := root
	for i := 0; i < 5; i++ {
		cur = filepath.Join(cur, fmt.Sprintf("level%d", i))
		require.NoError(t, os.MkdirAll(cur, 0o755))
	}

	cfg := treeir.Config{Root: root, IncludeFiles: true, MaxLevel: 2}
	eng, err := filter.New(cfg)
	require.NoError(t, err)

	res, err := Sequential(context.Background(), cfg, eng)
	require.NoError(t, err)

	// depth 1 = level0, depth 2 = level1; level1 should be truncated.
	level0 := res.Root.Children[0]
	assert.Equal(t, "level0", level0.Name)
	assert.False(t, level0.Metadata.Truncated)
	require.Len(t, level0.Children, 1)
	level1 := level0.Children[0]
	assert.Equal(t, "level1", level1.Name)
	assert.True(t, level1.Metadata.Truncated)
	assert.Empty(t, level1.Children)
}

// S4 + invariant #1/#7: sequential and parallel produce the same path set
// and the same counts.
func TestParallel_MatchesSequential_S4(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, 20, 5)

	cfg := treeir.Config{Root: root, IncludeFiles: true, ThreadCount: 8}

	engSeq, err := filter.New(cfg)
	require.NoError(t, err)
	seqRes, err := Sequential(context.Background(), cfg, engSeq)
	require.NoError(t, err)

	engPar, err := filter.New(cfg)
	require.NoError(t, err)
	parRes, err := Parallel(context.Background(), cfg, engPar)
	require.NoError(t, err)

	// Sort both trees identically before path comparison so ordering
	// differences introduced purely by task interleaving don't matter —
	// OrderingAndPrune is what imposes the final total order in the real
	// pipeline (driver), not the walkers themselves.
	order.SortTree(seqRes.Root, treeir.SortByName, false)
	order.SortTree(parRes.Root, treeir.SortByName, false)

	assert.Equal(t, collectPaths(root, seqRes.Root), collectPaths(root, parRes.Root))
	assert.Equal(t, seqRes.Counts.Directories, parRes.Counts.Directories)
	assert.Equal(t, seqRes.Counts.Files, parRes.Counts.Files)
	assert.Equal(t, seqRes.Counts.TotalSize, parRes.Counts.TotalSize)
}

// mkDeepBranchingTree builds a tree that branches `width` ways at every one
// of `depth` levels (plus one file per directory), so a recursive bounded
// walker scheduling children of d0..d(width-1) with ThreadCount==width fills
// every slot one level down and must still make progress one level further:
// exactly the shape that deadlocks a worker which blocks on Go while
// holding the slot it's trying to free.
func mkDeepBranchingTree(t *testing.T, dir string, width, depth int) {
	t.Helper()
	if depth == 0 {
		return
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leaf.txt"), []byte("x"), 0o644))
	for i := 0; i < width; i++ {
		child := filepath.Join(dir, fmt.Sprintf("b%02d", i))
		require.NoError(t, os.MkdirAll(child, 0o755))
		mkDeepBranchingTree(t, child, width, depth-1)
	}
}

// Invariant #1/spec.md §4.F, regression: a worker must never block on
// group.Go while holding the slot it occupies, or a deep enough tree with
// branching >= ThreadCount deadlocks every slot one level before it can
// free. This tree is 4 levels deep, branching 4-wide, with ThreadCount set
// to that same branching factor so the first fan-out alone saturates the
// pool before any child has had a chance to finish.
func TestParallel_MatchesSequential_DeepNestedTree(t *testing.T) {
	root := t.TempDir()
	mkDeepBranchingTree(t, root, 4, 4)

	cfg := treeir.Config{Root: root, IncludeFiles: true, ThreadCount: 4}

	engSeq, err := filter.New(cfg)
	require.NoError(t, err)
	seqRes, err := Sequential(context.Background(), cfg, engSeq)
	require.NoError(t, err)

	engPar, err := filter.New(cfg)
	require.NoError(t, err)

	done := make(chan struct{})
	var parRes *Result
	var parErr error
	go func() {
		parRes, parErr = Parallel(context.Background(), cfg, engPar)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Parallel deadlocked on a deeply nested, fully-branching tree")
	}
	require.NoError(t, parErr)

	order.SortTree(seqRes.Root, treeir.SortByName, false)
	order.SortTree(parRes.Root, treeir.SortByName, false)

	assert.Equal(t, collectPaths(root, seqRes.Root), collectPaths(root, parRes.Root))
	assert.Equal(t, seqRes.Counts.Directories, parRes.Counts.Directories)
	assert.Equal(t, seqRes.Counts.Files, parRes.Counts.Files)
	assert.Equal(t, seqRes.Counts.TotalSize, parRes.Counts.TotalSize)
}

func TestStreaming_CallbackOrderMatchesFinalSort(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))

	cfg := treeir.Config{Root: root, IncludeFiles: true, SortKey: treeir.SortByName}
	eng, err := filter.New(cfg)
	require.NoError(t, err)

	var seen []string
	_, err = Streaming(context.Background(), cfg, eng, func(depth int, n *treeir.TreeNode) bool {
		if depth == 1 {
			seen = append(seen, n.Name)
		}
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, seen)
}

func TestStreaming_CallbackCancellation(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))

	cfg := treeir.Config{Root: root, IncludeFiles: true}
	eng, err := filter.New(cfg)
	require.NoError(t, err)

	calls := 0
	_, err = Streaming(context.Background(), cfg, eng, func(depth int, n *treeir.TreeNode) bool {
		calls++
		return false
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 1, calls)
}

func TestSequential_IncludeFilesFalseOmitsFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	cfg := treeir.Config{Root: root, IncludeFiles: false}
	eng, err := filter.New(cfg)
	require.NoError(t, err)

	res, err := Sequential(context.Background(), cfg, eng)
	require.NoError(t, err)
	require.Len(t, res.Root.Children, 1)
	assert.Equal(t, "sub", res.Root.Children[0].Name)
}

func TestSequential_ContextCancellation(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, 5, 2)

	cfg := treeir.Config{Root: root, IncludeFiles: true}
	eng, err := filter.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Sequential(ctx, cfg, eng)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
}
