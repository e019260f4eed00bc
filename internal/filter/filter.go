// Package filter implements FilterEngine: the single decision point that
// turns one filesystem entry into exactly one treeir.FilterDecision, in the
// fixed precedence order described in spec.md §4.D.
package filter

import (
	"path/filepath"

	"github.com/waterrun/treepp/internal/ignore"
	"github.com/waterrun/treepp/internal/pattern"
	"github.com/waterrun/treepp/internal/treeir"
)

// maxFileSizeReason is the literal FilterDecision.Pattern value reported for
// the supplemented MaxFileSize step (SPEC_FULL.md §4.D) — a fixed label, not
// a glob pattern, since that step is not itself pattern-based.
const maxFileSizeReason = "max-file-size"

// Engine holds the compiled include/exclude patterns and the optional
// gitignore chain for one scan. It is safe for concurrent use: every field
// is either read-only after construction or, for the chain, internally
// synchronized.
type Engine struct {
	includes []pattern.CompiledPattern
	excludes []pattern.CompiledPattern

	chain       *ignore.Chain // nil when Config.UseGitignore is false
	maxFileSize int64         // 0 disables the supplemented step
}

// New compiles cfg's include/exclude patterns and wires the gitignore chain
// (if enabled) into a ready-to-use Engine.
func New(cfg treeir.Config) (*Engine, error) {
	e := &Engine{maxFileSize: cfg.MaxFileSize}

	for _, raw := range cfg.IncludePatterns {
		p, err := pattern.Compile(raw, cfg.IgnoreCase)
		if err != nil {
			return nil, err
		}
		e.includes = append(e.includes, p)
	}
	for _, raw := range cfg.ExcludePatterns {
		p, err := pattern.Compile(raw, cfg.IgnoreCase)
		if err != nil {
			return nil, err
		}
		e.excludes = append(e.excludes, p)
	}

	if cfg.UseGitignore {
		root, err := filepath.Abs(cfg.Root)
		if err != nil {
			return nil, err
		}
		e.chain = ignore.NewChain(root, cfg.IgnoreCase)
	}

	return e, nil
}

// Warnings surfaces every non-fatal GitignoreParseError seen by the chain so
// far; empty when gitignore handling is disabled.
func (e *Engine) Warnings() []string {
	if e.chain == nil {
		return nil
	}
	return e.chain.Warnings()
}

// Decide evaluates one entry against the engine's configuration. absPath is
// the entry's absolute path; size is only meaningful for files.
func (e *Engine) Decide(absPath string, isDir bool, size int64) treeir.FilterDecision {
	baseName := filepath.Base(absPath)

	// Step 0 [supplemented]: MaxFileSize, files only, runs before gitignore
	// so a file dropped for size never pays for a gitignore lookup.
	if !isDir && e.maxFileSize > 0 && size > e.maxFileSize {
		// maxFileSizeReason is a fixed descriptive label, not a glob: a
		// renderer must not feed FilterDecision.Pattern back into
		// internal/pattern as if every Excluded decision came from a rule.
		return treeir.Excluded(maxFileSizeReason)
	}

	// Step 1: Gitignore is the coarsest, most authoritative filter.
	if e.chain != nil {
		if res := e.chain.Resolve(absPath, isDir); res.Ignored {
			return treeir.Gitignored(res.Pattern)
		}
	}

	// Step 2: Include is a files-only positive whitelist; directories are
	// always candidates so recursion is never blocked by it.
	if !isDir && len(e.includes) > 0 {
		matched := false
		for _, p := range e.includes {
			if p.Match(baseName) {
				matched = true
				break
			}
		}
		if !matched {
			return treeir.NotIncluded(e.includes[0].String())
		}
	}

	// Step 3: Exclude is a final override, applies to files and
	// directories alike.
	for _, p := range e.excludes {
		if p.Match(baseName) {
			return treeir.Excluded(p.String())
		}
	}

	return treeir.Retained()
}
