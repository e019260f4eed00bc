package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterrun/treepp/internal/treeir"
)

func newEngine(t *testing.T, cfg treeir.Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

// S3: root-level *.rs include with test_* exclude.
func TestDecide_FilterPrecedence(t *testing.T) {
	root := t.TempDir()
	e := newEngine(t, treeir.Config{
		Root:            root,
		IncludePatterns: []string{"*.rs"},
		ExcludePatterns: []string{"test_*"},
	})

	assert.True(t, e.Decide(filepath.Join(root, "test_main.rs"), false, 10).Kind == treeir.DecisionExcluded)
	assert.True(t, e.Decide(filepath.Join(root, "main.rs"), false, 10).Retained())
	assert.Equal(t, treeir.DecisionNotIncluded, e.Decide(filepath.Join(root, "readme.md"), false, 10).Kind)
}

// S4: gitignore takes precedence over include.
func TestDecide_GitignorePrecedenceOverInclude(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("secret.rs\n"), 0o644))

	e := newEngine(t, treeir.Config{
		Root:            root,
		IncludePatterns: []string{"*.rs"},
		UseGitignore:    true,
	})

	d := e.Decide(filepath.Join(root, "secret.rs"), false, 10)
	assert.Equal(t, treeir.DecisionGitignored, d.Kind)
}

// Directories are always candidates for recursion, never NotIncluded.
func TestDecide_DirectoriesBypassInclude(t *testing.T) {
	root := t.TempDir()
	e := newEngine(t, treeir.Config{
		Root:            root,
		IncludePatterns: []string{"*.rs"},
	})
	d := e.Decide(filepath.Join(root, "src"), true, 0)
	assert.True(t, d.Retained())
}

// Case policy (invariant #9).
func TestDecide_CasePolicy(t *testing.T) {
	root := t.TempDir()

	insensitive := newEngine(t, treeir.Config{Root: root, IncludePatterns: []string{"*.md"}, IgnoreCase: true})
	assert.True(t, insensitive.Decide(filepath.Join(root, "README.MD"), false, 1).Retained())

	sensitive := newEngine(t, treeir.Config{Root: root, IncludePatterns: []string{"*.md"}, IgnoreCase: false})
	assert.Equal(t, treeir.DecisionNotIncluded, sensitive.Decide(filepath.Join(root, "README.MD"), false, 1).Kind)
}

func TestDecide_MaxFileSizeRunsBeforeGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("big.bin\n"), 0o644))
	e := newEngine(t, treeir.Config{Root: root, MaxFileSize: 100, UseGitignore: true})

	d := e.Decide(filepath.Join(root, "big.bin"), false, 500)
	assert.Equal(t, treeir.DecisionExcluded, d.Kind)
	assert.Equal(t, "max-file-size", d.Pattern)

	d = e.Decide(filepath.Join(root, "small.bin"), false, 10)
	assert.True(t, d.Retained())
}

func TestDecide_MaxFileSizeDisabledByDefaultIsNoOp(t *testing.T) {
	root := t.TempDir()
	e := newEngine(t, treeir.Config{Root: root})
	d := e.Decide(filepath.Join(root, "huge.bin"), false, 1<<40)
	assert.True(t, d.Retained())
}

// S5: negation re-includes a file the broader pattern excludes.
func TestDecide_GitignoreNegation(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n!keep.log\n"), 0o644))

	e := newEngine(t, treeir.Config{Root: root, UseGitignore: true})

	assert.True(t, e.Decide(filepath.Join(root, "keep.log"), false, 1).Retained())
	d := e.Decide(filepath.Join(root, "other.log"), false, 1)
	assert.Equal(t, treeir.DecisionGitignored, d.Kind)
}
