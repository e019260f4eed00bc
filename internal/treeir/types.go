// Package treeir defines the in-memory intermediate representation produced
// by a scan: the node tree, its supporting metadata, and the scan
// configuration consumed by every other package in this module.
package treeir

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// EntryKind classifies a single filesystem entry.
type EntryKind int

const (
	File EntryKind = iota
	Directory
	Symlink
	Other
)

func (k EntryKind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// EntryMetadata holds the stat-derived facts about one entry.
type EntryMetadata struct {
	Size    int64 // bytes; zero for directories until/unless summed by a caller
	ModTime time.Time
	Kind    EntryKind

	// ErrorOnStat is set when metadata could not be obtained; the entry is
	// still listed with zero-value Size/ModTime.
	ErrorOnStat bool

	// Truncated is set on a directory whose children were not listed
	// because Config.MaxLevel was reached.
	Truncated bool

	// MaxSizeExceeded is not set by any walker: a file dropped by the
	// supplemented MaxFileSize step (see SPEC_FULL.md §4.D) shows that only
	// through its FilterDecision (Excluded with pattern "max-file-size").
	MaxSizeExceeded bool
}

// FilterDecisionKind enumerates the possible outcomes of the filter engine.
type FilterDecisionKind int

const (
	DecisionRetained FilterDecisionKind = iota
	DecisionNotIncluded
	DecisionExcluded
	DecisionGitignored
	DecisionPrunedEmpty
)

func (k FilterDecisionKind) String() string {
	switch k {
	case DecisionRetained:
		return "Retained"
	case DecisionNotIncluded:
		return "NotIncluded"
	case DecisionExcluded:
		return "Excluded"
	case DecisionGitignored:
		return "Gitignored"
	case DecisionPrunedEmpty:
		return "PrunedEmpty"
	default:
		return "Unknown"
	}
}

// FilterDecision is the outcome the FilterEngine assigns to exactly one
// entry, exactly once. Pattern is empty for Retained and PrunedEmpty.
type FilterDecision struct {
	Kind    FilterDecisionKind
	Pattern string
}

func (d FilterDecision) String() string {
	if d.Pattern == "" {
		return d.Kind.String()
	}
	return fmt.Sprintf("%s{%s}", d.Kind, d.Pattern)
}

// Retained returns true for the only decision that contributes to
// displayed counts.
func (d FilterDecision) Retained() bool { return d.Kind == DecisionRetained }

func Retained() FilterDecision    { return FilterDecision{Kind: DecisionRetained} }
func PrunedEmpty() FilterDecision { return FilterDecision{Kind: DecisionPrunedEmpty} }
func NotIncluded(pattern string) FilterDecision {
	return FilterDecision{Kind: DecisionNotIncluded, Pattern: pattern}
}
func Excluded(pattern string) FilterDecision {
	return FilterDecision{Kind: DecisionExcluded, Pattern: pattern}
}
func Gitignored(pattern string) FilterDecision {
	return FilterDecision{Kind: DecisionGitignored, Pattern: pattern}
}

// TreeNode is one node of the scan IR. Children is populated only for
// Kind == Directory and is sorted by OrderingAndPrune before the driver
// returns the tree to its caller.
type TreeNode struct {
	Name     string
	Path     string
	Kind     EntryKind
	Metadata EntryMetadata
	Children []*TreeNode

	decision    FilterDecision
	decisionSet bool
}

// SetDecision assigns the node's filter decision. It panics on a second
// call against the same node: spec.md's invariant is that a decision is
// assigned exactly once (the single exception is OrderingAndPrune's
// reclassification to PrunedEmpty, which uses Reclassify instead).
func (n *TreeNode) SetDecision(d FilterDecision) {
	if n.decisionSet {
		panic(fmt.Sprintf("treeir: decision already set for %q", n.Path))
	}
	n.decision = d
	n.decisionSet = true
}

// Decision returns the node's assigned filter decision.
func (n *TreeNode) Decision() FilterDecision { return n.decision }

// Reclassify is the one sanctioned mutation of an already-assigned
// decision: OrderingAndPrune's bottom-up pass turning an empty Retained
// directory into PrunedEmpty. It refuses to touch anything that was not
// already Retained.
func (n *TreeNode) Reclassify(d FilterDecision) error {
	if n.decision.Kind != DecisionRetained {
		return fmt.Errorf("treeir: cannot reclassify %q from %s to %s", n.Path, n.decision.Kind, d.Kind)
	}
	n.decision = d
	return nil
}

// SortKey controls sibling ordering within OrderingAndPrune.
type SortKey int

const (
	SortByName SortKey = iota
	SortByNameCaseSensitive
	SortBySize
	SortByModifiedTime
	SortByKind
)

// WalkMode selects which walker variant the ScanDriver runs.
type WalkMode int

const (
	ModeSequential WalkMode = iota
	ModeParallel
	ModeStreaming
)

func (m WalkMode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeParallel:
		return "parallel"
	case ModeStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Config is the single input struct every other package consumes; it is
// the CLI layer's sole handoff point into the core (spec.md §6).
type Config struct {
	Root string

	IncludeFiles    bool
	IncludePatterns []string
	ExcludePatterns []string
	IgnoreCase      bool
	UseGitignore    bool
	PruneEmpty      bool

	ThreadCount int
	MaxLevel    int // 0 means unlimited; levels are 1-indexed from the root

	SortKey SortKey
	Reverse bool

	Mode WalkMode

	FollowSymlinks bool

	// IncludeFilteredEntries, when true, keeps non-Retained nodes in the
	// returned tree so a renderer can annotate them.
	IncludeFilteredEntries bool

	// MaxFileSize is a supplemented field (SPEC_FULL.md §4.D); 0 disables
	// the check entirely, preserving every spec.md §8 scenario untouched.
	MaxFileSize int64
}

// ScanStats is the summary returned alongside the tree.
type ScanStats struct {
	Tree            *TreeNode
	DirectoryCount  int
	FileCount       int
	TotalSize       int64
	Duration        time.Duration
	ThreadCountUsed int
	Warnings        []string
}

// String renders a one-line human summary, used by the thin CLI and by
// debug logging; not part of the renderer (out of core scope).
func (s ScanStats) String() string {
	return fmt.Sprintf("%d directories, %d files, %s, in %s",
		s.DirectoryCount, s.FileCount, humanize.Bytes(uint64(s.TotalSize)), s.Duration)
}
