package report

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/reclaim/pkg/reclaim/gitrepo"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
	"github.com/jamesainslie/reclaim/pkg/reclaim/walker"
)

// Event is a scan pipeline message. Workers never mutate shared state;
// they emit events which a single consumer folds into an Accumulator.
type Event interface{ isEvent() }

// TotalEvent announces the number of raw candidates found by the
// walker. It is emitted once, before any candidate is processed.
type TotalEvent struct{ Total int }

// ProgressEvent reports how many candidates have been fully resolved
// (verified ignored and measured, or dropped). Events from parallel
// workers may arrive out of order; consumers should keep the maximum.
type ProgressEvent struct{ Processed int }

// ArtifactEvent delivers one verified, measured artifact.
type ArtifactEvent struct{ Artifact Artifact }

// HeadEvent delivers a repository's head commit. Head is nil when the
// repository has no commits. At most one HeadEvent is emitted per
// repository, and only for repositories that own at least one artifact.
type HeadEvent struct {
	Root string
	Head *gitrepo.Head
}

// WarningEvent reports a per-item recoverable error.
type WarningEvent struct{ Warning types.Warning }

func (TotalEvent) isEvent()    {}
func (ProgressEvent) isEvent() {}
func (ArtifactEvent) isEvent() {}
func (HeadEvent) isEvent()     {}
func (WarningEvent) isEvent()  {}

// Scanner runs the full pipeline: candidate discovery, batched ignore
// verification, head lookup, and parallel measurement.
type Scanner struct {
	cfg types.ScanConfig

	// Oracle hooks, replaceable in tests.
	findRoot     func(start string) (string, bool)
	checkIgnored func(ctx context.Context, repoRoot string, paths []string) (map[string]bool, error)
	headCommit   func(ctx context.Context, repoRoot string) (*gitrepo.Head, error)
	measure      func(path string) (DirStats, error)
}

// NewScanner creates a Scanner for one run.
func NewScanner(cfg types.ScanConfig) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Scanner{
		cfg:          cfg,
		findRoot:     gitrepo.FindRoot,
		checkIgnored: gitrepo.CheckIgnored,
		headCommit:   gitrepo.HeadCommit,
		measure:      MeasureDir,
	}
}

// Run executes the pipeline and streams events to emit. Events are
// delivered sequentially from a single goroutine, so emit needs no
// locking. Run blocks until every candidate is resolved or ctx is
// cancelled. Fatal conditions (unreadable root) return an error; all
// per-item failures surface as WarningEvents.
func (s *Scanner) Run(ctx context.Context, emit func(Event)) error {
	logger := logging.Get("report")

	w := walker.New(walker.Options{
		Root:    s.cfg.Root,
		Names:   s.cfg.NameSet(),
		Workers: s.cfg.Workers,
	})
	walked, err := w.Walk(ctx)
	if err != nil {
		return err
	}

	logger.Info("walk complete",
		"dirs", walked.DirsWalked,
		"candidates", len(walked.Candidates),
		"warnings", len(walked.Warnings))

	// Single dispatcher serializes all event delivery.
	events := make(chan Event, 256)
	var dispatched sync.WaitGroup
	dispatched.Add(1)
	go func() {
		defer dispatched.Done()
		for ev := range events {
			emit(ev)
		}
	}()
	defer func() {
		close(events)
		dispatched.Wait()
	}()

	for _, warning := range walked.Warnings {
		events <- WarningEvent{Warning: warning}
	}
	events <- TotalEvent{Total: len(walked.Candidates)}
	if len(walked.Candidates) == 0 {
		return nil
	}

	var processed atomic.Int64
	advance := func(n int) {
		events <- ProgressEvent{Processed: int(processed.Add(int64(n)))}
	}

	// Map each candidate to its owning repository; candidates with no
	// enclosing repository are dropped, not grouped.
	byRepo := make(map[string][]string)
	for _, candidate := range walked.Candidates {
		root, ok := s.findRoot(candidate)
		if !ok {
			logger.Debug("candidate outside any repository", "path", candidate)
			advance(1)
			continue
		}
		byRepo[root] = append(byRepo[root], candidate)
	}

	// Phase 1: one batched check-ignore per repository root.
	type measureTask struct {
		root string
		path string
	}
	var tasks []measureTask
	var tasksMu sync.Mutex

	verify, ctx1 := errgroup.WithContext(ctx)
	verify.SetLimit(s.cfg.Workers)
	for root, paths := range byRepo {
		verify.Go(func() error {
			ignored, err := s.checkIgnored(ctx1, root, paths)
			if err != nil {
				events <- WarningEvent{Warning: types.Warning{
					Path:    root,
					Message: fmt.Sprintf("ignore check failed, dropping %d candidate(s): %v", len(paths), err),
				}}
				advance(len(paths))
				return nil
			}

			var kept []measureTask
			for _, p := range paths {
				if ignored[p] {
					kept = append(kept, measureTask{root: root, path: p})
				} else {
					advance(1)
				}
			}
			if len(kept) == 0 {
				return nil
			}

			head, err := s.headCommit(ctx1, root)
			if err != nil {
				events <- WarningEvent{Warning: types.Warning{
					Path:    root,
					Message: fmt.Sprintf("head commit lookup failed: %v", err),
				}}
				head = nil
			}
			events <- HeadEvent{Root: root, Head: head}

			tasksMu.Lock()
			tasks = append(tasks, kept...)
			tasksMu.Unlock()
			return nil
		})
	}
	if err := verify.Wait(); err != nil {
		return err
	}

	// Phase 2: measure verified artifacts in parallel. Each MeasureDir
	// walks with measureWorkers goroutines of its own, so the pool limit
	// is divided down to keep the total inside the configured budget.
	measure, ctx2 := errgroup.WithContext(ctx)
	measure.SetLimit(measureLimit(s.cfg.Workers))
	for _, task := range tasks {
		measure.Go(func() error {
			if err := ctx2.Err(); err != nil {
				return err
			}

			stats, err := s.measure(task.path)
			if err != nil {
				events <- WarningEvent{Warning: types.Warning{
					Path:    task.path,
					Message: fmt.Sprintf("measurement failed: %v", err),
				}}
				advance(1)
				return nil
			}

			events <- ArtifactEvent{Artifact: Artifact{
				RepoRoot:    task.root,
				Path:        task.path,
				Size:        stats.Size,
				NewestMtime: stats.NewestMtime,
			}}
			advance(1)
			return nil
		})
	}
	return measure.Wait()
}

// measureLimit sizes the measurement pool so that concurrent MeasureDir
// calls, each walking with measureWorkers goroutines, stay within the
// worker budget.
func measureLimit(workers int) int {
	limit := workers / measureWorkers
	if limit < 1 {
		limit = 1
	}
	return limit
}

// Accumulator folds pipeline events into repo groups. It is the sole
// mutator of the group collection; callers apply events from a single
// goroutine (the TUI update loop, or Collect's synchronous loop).
type Accumulator struct {
	groups       map[string]*Group
	pendingHeads map[string]*gitrepo.Head
	warnings     []types.Warning

	total     int
	haveTotal bool
	processed int
	artifacts int
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		groups:       make(map[string]*Group),
		pendingHeads: make(map[string]*gitrepo.Head),
	}
}

// Apply folds one event. When the event creates or grows a group, that
// group is returned so callers can re-evaluate selection; otherwise
// Apply returns nil.
func (a *Accumulator) Apply(ev Event) *Group {
	switch ev := ev.(type) {
	case TotalEvent:
		a.total = ev.Total
		a.haveTotal = true
	case ProgressEvent:
		if ev.Processed > a.processed {
			a.processed = ev.Processed
		}
	case ArtifactEvent:
		return a.addArtifact(ev.Artifact)
	case HeadEvent:
		a.setHead(ev.Root, ev.Head)
	case WarningEvent:
		a.warnings = append(a.warnings, ev.Warning)
	}
	return nil
}

// addArtifact places an artifact into its group, creating the group on
// first sight of the repository root.
func (a *Accumulator) addArtifact(art Artifact) *Group {
	g, ok := a.groups[art.RepoRoot]
	if !ok {
		g = &Group{Root: art.RepoRoot}
		if head, pending := a.pendingHeads[art.RepoRoot]; pending {
			g.Head = head
			g.HeadKnown = true
			delete(a.pendingHeads, art.RepoRoot)
		}
		a.groups[art.RepoRoot] = g
	}
	if g.add(art) {
		a.artifacts++
	}
	return g
}

// setHead records a repository's head commit; heads arriving before the
// repository's first artifact are parked until the group exists.
func (a *Accumulator) setHead(root string, head *gitrepo.Head) {
	if g, ok := a.groups[root]; ok {
		g.Head = head
		g.HeadKnown = true
		return
	}
	a.pendingHeads[root] = head
}

// Groups returns the accumulated groups in unspecified order.
func (a *Accumulator) Groups() []*Group {
	groups := make([]*Group, 0, len(a.groups))
	for _, g := range a.groups {
		groups = append(groups, g)
	}
	return groups
}

// Warnings returns all recoverable errors recorded so far.
func (a *Accumulator) Warnings() []types.Warning { return a.warnings }

// Total returns the candidate total and whether it is known yet.
func (a *Accumulator) Total() (int, bool) { return a.total, a.haveTotal }

// Processed returns how many candidates have been resolved.
func (a *Accumulator) Processed() int { return a.processed }

// ArtifactCount returns the number of verified artifacts accumulated.
func (a *Accumulator) ArtifactCount() int { return a.artifacts }

// Collect runs the scanner synchronously and returns the populated
// Accumulator. Used by the non-interactive scan command.
func (s *Scanner) Collect(ctx context.Context) (*Accumulator, error) {
	acc := NewAccumulator()
	if err := s.Run(ctx, func(ev Event) { acc.Apply(ev) }); err != nil {
		return nil, err
	}
	return acc, nil
}
