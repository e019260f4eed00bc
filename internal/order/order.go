// Package order implements OrderingAndPrune (spec.md §4.H): sibling sort
// order and the bottom-up empty-directory pruning pass.
package order

import (
	"sort"
	"strings"

	"github.com/waterrun/treepp/internal/treeir"
)

// SortSiblings stably sorts children in place according to key and reverse.
func SortSiblings(children []*treeir.TreeNode, key treeir.SortKey, reverse bool) {
	less := lessFunc(key)
	sort.SliceStable(children, func(i, j int) bool {
		if reverse {
			return less(children[j], children[i])
		}
		return less(children[i], children[j])
	})
}

func lessFunc(key treeir.SortKey) func(a, b *treeir.TreeNode) bool {
	switch key {
	case treeir.SortByNameCaseSensitive:
		return func(a, b *treeir.TreeNode) bool { return a.Name < b.Name }
	case treeir.SortBySize:
		return func(a, b *treeir.TreeNode) bool { return a.Metadata.Size < b.Metadata.Size }
	case treeir.SortByModifiedTime:
		return func(a, b *treeir.TreeNode) bool { return a.Metadata.ModTime.Before(b.Metadata.ModTime) }
	case treeir.SortByKind:
		return func(a, b *treeir.TreeNode) bool {
			aDir := a.Kind == treeir.Directory
			bDir := b.Kind == treeir.Directory
			if aDir != bDir {
				return aDir
			}
			return nameCaseInsensitiveLess(a, b)
		}
	default: // SortByName
		return nameCaseInsensitiveLess
	}
}

// nameCaseInsensitiveLess orders case-insensitively, falling back to the
// exact bytes as a tiebreaker so the sort remains total, not merely stable
// on input order (spec.md §4.H).
func nameCaseInsensitiveLess(a, b *treeir.TreeNode) bool {
	la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if la != lb {
		return la < lb
	}
	return a.Name < b.Name
}

// SortTree recursively sorts every directory's children.
func SortTree(node *treeir.TreeNode, key treeir.SortKey, reverse bool) {
	if node.Kind != treeir.Directory || len(node.Children) == 0 {
		return
	}
	SortSiblings(node.Children, key, reverse)
	for _, c := range node.Children {
		SortTree(c, key, reverse)
	}
}

// hasRetainedDescendant reports whether node itself, or anything beneath
// it, is a Retained non-directory. Directories are never counted as the
// qualifying descendant — only leaves (files, symlinks, other) are.
func hasRetainedDescendant(node *treeir.TreeNode) bool {
	if node.Kind != treeir.Directory {
		return node.Decision().Retained()
	}
	for _, c := range node.Children {
		if hasRetainedDescendant(c) {
			return true
		}
	}
	return false
}

// PruneNode reclassifies node to PrunedEmpty if it is currently Retained
// and has no Retained non-directory descendant. It assumes node's children
// have already been finalized (pruned or not) by the caller — safe to call
// bottom-up, one directory at a time, as soon as a subtree completes.
func PruneNode(node *treeir.TreeNode) {
	if node.Kind != treeir.Directory || !node.Decision().Retained() {
		return
	}
	if !hasRetainedDescendant(node) {
		_ = node.Reclassify(treeir.PrunedEmpty())
	}
}

// PruneTree applies the bottom-up pruning pass to an entire already-built
// tree: children are pruned before their parent is evaluated.
func PruneTree(node *treeir.TreeNode) {
	if node.Kind != treeir.Directory {
		return
	}
	for _, c := range node.Children {
		PruneTree(c)
	}
	PruneNode(node)
}

// Apply runs sort (always) and prune (only when cfg.PruneEmpty) over the
// whole tree, in the order the driver must use: sort first so sibling
// order is stable regardless of whether pruning drops anything, then
// prune bottom-up.
func Apply(tree *treeir.TreeNode, cfg treeir.Config) {
	SortTree(tree, cfg.SortKey, cfg.Reverse)
	if cfg.PruneEmpty {
		PruneTree(tree)
	}
}
