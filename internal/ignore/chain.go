package ignore

import (
	"path/filepath"
	"strings"
	"sync"
)

// entry caches one directory's (possibly absent) Layer, loaded at most
// once regardless of how many concurrent walkers ask for it first.
type entry struct {
	once    sync.Once
	layer   *Layer // nil if no .gitignore exists at this directory
	loadErr error
}

// Chain answers "is path P (is_dir=b) ignored under the chain of
// .gitignore files from the scan root down to P's parent?" Layers are
// parsed at most once per directory and shared across every concurrent
// caller (spec.md §5, §9).
type Chain struct {
	root       string
	ignoreCase bool

	cache sync.Map // string (dir) -> *entry

	warnMu   sync.Mutex
	warnings []string
}

// NewChain builds a chain rooted at root. root must be the scan root's
// absolute, cleaned path.
func NewChain(root string, ignoreCase bool) *Chain {
	return &Chain{root: filepath.Clean(root), ignoreCase: ignoreCase}
}

// Warnings returns every GitignoreParseError encountered so far, formatted
// for ScanStats.Warnings.
func (c *Chain) Warnings() []string {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func (c *Chain) addWarning(msg string) {
	c.warnMu.Lock()
	c.warnings = append(c.warnings, msg)
	c.warnMu.Unlock()
}

// layerFor returns the (possibly nil) Layer anchored at dir, loading and
// compiling it on first access and caching the result — including the
// "no .gitignore here" outcome — for every later call.
func (c *Chain) layerFor(dir string) *Layer {
	v, _ := c.cache.LoadOrStore(dir, &entry{})
	e := v.(*entry)
	e.once.Do(func() {
		layer, parseErrs, err := LoadLayer(dir, c.ignoreCase)
		if err != nil {
			c.addWarning(err.Error())
			e.loadErr = err
			return
		}
		for _, pe := range parseErrs {
			c.addWarning(pe.Error())
		}
		e.layer = layer
	})
	return e.layer
}

// ancestorChain returns the directories from the chain's root down to
// target's parent, inclusive, in root-to-leaf order.
func (c *Chain) ancestorChain(target string) []string {
	parent := filepath.Dir(filepath.Clean(target))
	rel, err := filepath.Rel(c.root, parent)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// target falls outside root: only the root layer can apply.
		return []string{c.root}
	}

	dirs := []string{c.root}
	if rel == "." {
		return dirs
	}
	cur := c.root
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		cur = filepath.Join(cur, part)
		dirs = append(dirs, cur)
	}
	return dirs
}

// Resolved is the chain's verdict for one (path, is_dir) query.
type Resolved struct {
	Ignored bool
	Pattern string
}

// Resolve evaluates the chain for target (an absolute path under the
// chain's root). Layers are visited root-to-leaf; within each layer rules
// are visited in file order; the last matching rule across the entire
// chain wins, per spec.md §4.C.
func (c *Chain) Resolve(target string, isDir bool) Resolved {
	target = filepath.Clean(target)
	var lastMatch *Rule
	var lastAnchor string

	for _, dir := range c.ancestorChain(target) {
		layer := c.layerFor(dir)
		if layer == nil {
			continue
		}
		for i := range layer.Rules {
			rule := &layer.Rules[i]
			if rule.DirectoryOnly && !isDir {
				continue
			}
			relPath, err := filepath.Rel(layer.AnchorDir, target)
			if err != nil {
				continue
			}
			relPath = filepath.ToSlash(relPath)
			if rule.Matcher.Match(relPath) {
				lastMatch = rule
				lastAnchor = layer.AnchorDir
			}
		}
	}

	if lastMatch == nil {
		return Resolved{Ignored: false}
	}
	_ = lastAnchor
	return Resolved{Ignored: !lastMatch.Negated, Pattern: lastMatch.Raw}
}
