// Package report turns raw candidate directories into per-repository
// groups of verified, measured artifacts. It owns the scan pipeline
// (walk, ignore verification, measurement), the grouping model, and
// the sort and auto-selection policies consumed by the CLI and TUI.
package report

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jamesainslie/reclaim/pkg/reclaim/gitrepo"
)

// Artifact is one verified, measured artifact directory. Artifacts are
// immutable once placed into a Group.
type Artifact struct {
	// RepoRoot is the nearest enclosing repository root.
	RepoRoot string

	// Path is the absolute artifact directory path.
	Path string

	// Size is the recursive byte size: the sum of regular-file sizes
	// under Path. Symlinks contribute zero.
	Size int64

	// NewestMtime is the newest modification time among the regular
	// files under Path. Zero when the artifact contains no files.
	NewestMtime time.Time
}

// Group aggregates the artifacts belonging to one repository. It is the
// unit of selection in the interactive workflow.
type Group struct {
	// Root is the repository root path.
	Root string

	// Head is the repository's most recent commit. Nil when the lookup
	// has not completed yet or the repository has no commits;
	// HeadKnown distinguishes the two.
	Head      *gitrepo.Head
	HeadKnown bool

	// Artifacts are the member artifacts, sorted by size descending
	// then path.
	Artifacts []Artifact

	// TotalSize is the sum of member sizes.
	TotalSize int64

	// NewestMtime is the maximum member mtime. Zero when no member
	// contains any file.
	NewestMtime time.Time
}

// add inserts an artifact, ignoring duplicates by path, and maintains
// the aggregates and member order.
func (g *Group) add(a Artifact) bool {
	for _, existing := range g.Artifacts {
		if existing.Path == a.Path {
			return false
		}
	}

	g.Artifacts = append(g.Artifacts, a)
	g.TotalSize += a.Size
	if a.NewestMtime.After(g.NewestMtime) {
		g.NewestMtime = a.NewestMtime
	}

	sort.Slice(g.Artifacts, func(i, j int) bool {
		if g.Artifacts[i].Size != g.Artifacts[j].Size {
			return g.Artifacts[i].Size > g.Artifacts[j].Size
		}
		return g.Artifacts[i].Path < g.Artifacts[j].Path
	})
	return true
}

// Recompute rebuilds the aggregates from the members. Recomputing is
// idempotent: it always reproduces the incrementally maintained values.
func (g *Group) Recompute() {
	g.TotalSize = 0
	g.NewestMtime = time.Time{}
	for _, a := range g.Artifacts {
		g.TotalSize += a.Size
		if a.NewestMtime.After(g.NewestMtime) {
			g.NewestMtime = a.NewestMtime
		}
	}
}

// AgeDays returns the group's age in whole days measured from its
// newest mtime. ok is false when no member contains any file, in which
// case staleness cannot be established.
func (g *Group) AgeDays(now time.Time) (int, bool) {
	if g.NewestMtime.IsZero() || now.Before(g.NewestMtime) {
		return 0, !g.NewestMtime.IsZero()
	}
	return int(now.Sub(g.NewestMtime).Hours() / 24), true
}

// AutoSelect reports whether a group qualifies for default
// pre-selection: at least minSize bytes of artifacts whose newest
// content is at least staleDays old. Groups with no establishable age
// are never auto-selected.
func AutoSelect(g *Group, minSize int64, staleDays int, now time.Time) bool {
	if len(g.Artifacts) == 0 || g.TotalSize < minSize {
		return false
	}
	age, ok := g.AgeDays(now)
	if !ok {
		return false
	}
	return age >= staleDays
}

// SortMode selects the active report ordering. Exactly one order is
// active at a time; the TUI toggles between them.
type SortMode int

const (
	// SortAge orders by aggregate newest-mtime ascending (oldest first).
	SortAge SortMode = iota

	// SortSize orders by aggregate size descending.
	SortSize
)

// Toggle returns the other sort mode.
func (m SortMode) Toggle() SortMode {
	if m == SortAge {
		return SortSize
	}
	return SortAge
}

func (m SortMode) String() string {
	if m == SortSize {
		return "size"
	}
	return "age"
}

// SortGroups orders groups in place by the given mode. Both orders are
// total: ties fall through to mtime (size mode) and finally to the
// repository root path, so sorting is a pure, reversible reordering.
func SortGroups(groups []*Group, mode SortMode) {
	switch mode {
	case SortSize:
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].TotalSize != groups[j].TotalSize {
				return groups[i].TotalSize > groups[j].TotalSize
			}
			if c := compareMtime(groups[i].NewestMtime, groups[j].NewestMtime); c != 0 {
				return c < 0
			}
			return groups[i].Root < groups[j].Root
		})
	default:
		sort.SliceStable(groups, func(i, j int) bool {
			if c := compareMtime(groups[i].NewestMtime, groups[j].NewestMtime); c != 0 {
				return c < 0
			}
			return groups[i].Root < groups[j].Root
		})
	}
}

// SortByHeadTime orders groups by head-commit time ascending (oldest
// first), used by the non-interactive scan report. Groups without a
// head commit sort last; ties fall through to the root path.
func SortByHeadTime(groups []*Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		hi, hj := groups[i].Head, groups[j].Head
		switch {
		case hi != nil && hj != nil:
			if !hi.Time.Equal(hj.Time) {
				return hi.Time.Before(hj.Time)
			}
		case hi != nil:
			return true
		case hj != nil:
			return false
		}
		return groups[i].Root < groups[j].Root
	})
}

// compareMtime orders known times ascending and sorts unknown (zero)
// times after all known ones.
func compareMtime(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}

// RelDisplay renders path relative to base for display, falling back to
// the absolute path when path is not under base. The base itself
// renders as ".".
func RelDisplay(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
