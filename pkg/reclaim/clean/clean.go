// Package clean deletes verified build artifacts. Every target is
// re-verified against git immediately before removal, failures never
// abort the run, and dry-run mode touches nothing.
package clean

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jamesainslie/reclaim/pkg/reclaim/gitrepo"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/report"
)

// Target is one directory queued for deletion.
type Target struct {
	RepoRoot string
	Path     string
	Size     int64
}

// Status classifies the outcome of one target.
type Status int

const (
	// StatusDeleted means the directory was removed.
	StatusDeleted Status = iota
	// StatusWouldDelete means dry-run mode left the directory alone.
	StatusWouldDelete
	// StatusSkipped means the pre-delete verification refused the
	// target, usually because it is no longer gitignored.
	StatusSkipped
	// StatusFailed means removal was attempted and errored.
	StatusFailed
)

// String returns the status label used in reports.
func (s Status) String() string {
	switch s {
	case StatusDeleted:
		return "deleted"
	case StatusWouldDelete:
		return "would delete"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome records what happened to one target.
type Outcome struct {
	Target Target
	Status Status
	Err    error
}

// Progress is reported once per target, after its outcome is decided.
type Progress struct {
	Done    int
	Total   int
	Outcome Outcome
}

// Summary aggregates a completed run.
type Summary struct {
	Outcomes  []Outcome
	Reclaimed int64
	DryRun    bool
}

// Failures returns the outcomes that errored.
func (s *Summary) Failures() []Outcome {
	var failed []Outcome
	for _, o := range s.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Skipped returns the outcomes refused by verification.
func (s *Summary) Skipped() []Outcome {
	var skipped []Outcome
	for _, o := range s.Outcomes {
		if o.Status == StatusSkipped {
			skipped = append(skipped, o)
		}
	}
	return skipped
}

// Options configure a deletion run.
type Options struct {
	DryRun bool

	// Verify re-checks a target immediately before live deletion.
	// Defaults to asking git whether the path is still ignored.
	Verify func(ctx context.Context, repoRoot, path string) (bool, error)

	// OnProgress, when set, is invoked after each target resolves.
	OnProgress func(Progress)
}

// PlanTargets flattens the selected groups into a deterministic work
// list, deduplicated by path and sorted largest first.
func PlanTargets(groups []*report.Group) []Target {
	seen := make(map[string]struct{})
	var targets []Target
	for _, g := range groups {
		for _, a := range g.Artifacts {
			if _, dup := seen[a.Path]; dup {
				continue
			}
			seen[a.Path] = struct{}{}
			targets = append(targets, Target{
				RepoRoot: g.Root,
				Path:     a.Path,
				Size:     a.Size,
			})
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Size != targets[j].Size {
			return targets[i].Size > targets[j].Size
		}
		return targets[i].Path < targets[j].Path
	})
	return targets
}

// blockedPath reports whether a target must never be deleted regardless
// of what the selection contains.
func blockedPath(path string) bool {
	base := filepath.Base(path)
	if base == ".git" {
		return true
	}
	sep := string(filepath.Separator)
	return strings.Contains(path, sep+".git"+sep)
}

// Run deletes every target, isolating per-item failures. The run always
// proceeds to the end of the list; ctx cancellation stops issuing new
// deletions but outcomes already decided are kept.
func Run(ctx context.Context, targets []Target, opts Options) *Summary {
	logger := logging.Get("clean")

	verify := opts.Verify
	if verify == nil {
		verify = gitrepo.IsIgnored
	}

	summary := &Summary{
		Outcomes: make([]Outcome, 0, len(targets)),
		DryRun:   opts.DryRun,
	}

	for i, target := range targets {
		outcome := Outcome{Target: target}

		switch {
		case ctx.Err() != nil:
			outcome.Status = StatusSkipped
			outcome.Err = ctx.Err()

		case blockedPath(target.Path):
			outcome.Status = StatusSkipped
			outcome.Err = fmt.Errorf("refusing to touch git metadata path %q", target.Path)

		case opts.DryRun:
			outcome.Status = StatusWouldDelete
			summary.Reclaimed += target.Size

		default:
			ignored, err := verify(ctx, target.RepoRoot, target.Path)
			switch {
			case err != nil:
				outcome.Status = StatusSkipped
				outcome.Err = fmt.Errorf("pre-delete verification: %w", err)
			case !ignored:
				outcome.Status = StatusSkipped
				outcome.Err = fmt.Errorf("path %q is no longer gitignored", target.Path)
			default:
				if err := os.RemoveAll(target.Path); err != nil {
					outcome.Status = StatusFailed
					outcome.Err = err
				} else {
					outcome.Status = StatusDeleted
					summary.Reclaimed += target.Size
				}
			}
		}

		if outcome.Err != nil {
			logger.Warn("target not deleted",
				"path", target.Path,
				"status", outcome.Status.String(),
				"error", outcome.Err)
		} else {
			logger.Info("target resolved",
				"path", target.Path,
				"status", outcome.Status.String(),
				"size", target.Size)
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Done: i + 1, Total: len(targets), Outcome: outcome})
		}
	}

	return summary
}
