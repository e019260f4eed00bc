// Package pattern compiles the glob dialect used throughout treepp: by the
// user's include/exclude flags directly, and by internal/ignore as the
// matching primitive behind each parsed .gitignore rule.
package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPattern is the sentinel wrapped by Compile on a malformed
// pattern (unbalanced brackets, bad escape).
var ErrInvalidPattern = errors.New("pattern: invalid pattern")

// CompiledPattern is a cheaply-cloneable value-like matcher paired with the
// original pattern string for error reporting and display.
type CompiledPattern struct {
	original   string
	matchForm  string // lower-cased when ignoreCase, else == original
	ignoreCase bool
}

// Compile compiles a glob pattern. An empty pattern compiles successfully
// and matches nothing. ignoreCase folds both pattern and candidate to
// lower-case at match time while preserving the original for display.
func Compile(raw string, ignoreCase bool) (CompiledPattern, error) {
	matchForm := raw
	if ignoreCase {
		matchForm = strings.ToLower(raw)
	}

	if matchForm != "" {
		if !doublestar.ValidatePattern(matchForm) {
			return CompiledPattern{}, fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
		}
	}

	return CompiledPattern{original: raw, matchForm: matchForm, ignoreCase: ignoreCase}, nil
}

// MustCompile is Compile but panics on error; useful for compile-time
// constant patterns within this module's own code.
func MustCompile(raw string, ignoreCase bool) CompiledPattern {
	p, err := Compile(raw, ignoreCase)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original, uncased pattern text.
func (p CompiledPattern) String() string { return p.original }

// Empty reports whether this is the zero-value "matches nothing" pattern.
func (p CompiledPattern) Empty() bool { return p.original == "" }

// Match reports whether name (a basename, no path separators expected
// unless the pattern itself contains slashes, e.g. an anchored gitignore
// rule) matches the compiled pattern.
func (p CompiledPattern) Match(name string) bool {
	if p.matchForm == "" {
		return false
	}
	candidate := name
	if p.ignoreCase {
		candidate = strings.ToLower(name)
	}
	ok, err := doublestar.Match(p.matchForm, candidate)
	return err == nil && ok
}
