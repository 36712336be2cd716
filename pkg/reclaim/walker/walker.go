// Package walker provides parallel discovery of artifact directories
// under a scan root. It uses fastwalk for concurrent traversal and
// emits only candidate paths; ignore verification and measurement
// happen downstream.
package walker

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// Options configures a walk.
type Options struct {
	// Root is the starting directory.
	Root string

	// Names is the set of directory basenames to emit as candidates.
	Names map[string]struct{}

	// Workers is the traversal parallelism budget. Zero or negative
	// falls back to the number of CPUs.
	Workers int
}

// Result holds the outcome of a walk.
type Result struct {
	// Candidates are the matched directory paths, sorted and deduplicated.
	// A matched directory is never descended into, so no candidate is an
	// ancestor of another.
	Candidates []string

	// Warnings records directories that could not be read. These never
	// abort the walk.
	Warnings []types.Warning

	// DirsWalked counts directories entered during traversal.
	DirsWalked int64

	// SymlinksSkipped counts symbolic links seen and not followed.
	SymlinksSkipped int64
}

// Walker discovers artifact candidate directories.
type Walker struct {
	opts Options

	dirsWalked      atomic.Int64
	symlinksSkipped atomic.Int64

	candidates   []string
	candidatesMu sync.Mutex

	warnings   []types.Warning
	warningsMu sync.Mutex
}

// New creates a Walker with the given options.
func New(opts Options) *Walker {
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	return &Walker{opts: opts}
}

// Walk traverses the root and returns all candidate directories. It
// blocks until traversal completes or ctx is cancelled; on cancellation
// it returns the candidates found so far together with ctx.Err().
func (w *Walker) Walk(ctx context.Context) (*Result, error) {
	root, err := w.validateRoot()
	if err != nil {
		return nil, err
	}

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: w.opts.Workers,
	}

	walkErr := fastwalk.Walk(&conf, root, w.callback(ctx, root))
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, fs.SkipAll) {
		return nil, walkErr
	}

	result := &Result{
		Candidates:      w.takeCandidates(),
		Warnings:        w.warnings,
		DirsWalked:      w.dirsWalked.Load(),
		SymlinksSkipped: w.symlinksSkipped.Load(),
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

// validateRoot resolves the root to an absolute path and verifies it is
// a readable directory. An unusable root is fatal to the run.
func (w *Walker) validateRoot() (string, error) {
	root, err := filepath.Abs(w.opts.Root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", &fs.PathError{Op: "walk", Path: root, Err: errors.New("not a directory")}
	}
	return root, nil
}

// callback returns the fastwalk callback implementing the candidate
// matching rules.
func (w *Walker) callback(ctx context.Context, root string) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return fs.SkipAll
		default:
		}

		// Unreadable entries are recorded and skipped, never fatal.
		if err != nil {
			w.addWarning(path, err)
			return nil
		}

		// Symlinks are neither entered nor treated as candidates.
		if d.Type()&fs.ModeSymlink != 0 {
			w.symlinksSkipped.Add(1)
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		w.dirsWalked.Add(1)

		if path == root {
			return nil
		}

		name := d.Name()
		if name == ".git" {
			return fastwalk.SkipDir
		}

		// A matched directory is emitted whole and never recursed into:
		// it is measured as a unit, and artifacts nested inside it must
		// not be double-counted.
		if _, ok := w.opts.Names[name]; ok {
			w.addCandidate(path)
			return fastwalk.SkipDir
		}

		return nil
	}
}

// takeCandidates returns the sorted, deduplicated candidate list.
func (w *Walker) takeCandidates() []string {
	w.candidatesMu.Lock()
	defer w.candidatesMu.Unlock()

	sort.Strings(w.candidates)
	out := w.candidates[:0]
	for i, c := range w.candidates {
		if i == 0 || c != w.candidates[i-1] {
			out = append(out, c)
		}
	}
	w.candidates = out
	return out
}

func (w *Walker) addCandidate(path string) {
	w.candidatesMu.Lock()
	w.candidates = append(w.candidates, path)
	w.candidatesMu.Unlock()
}

func (w *Walker) addWarning(path string, err error) {
	w.warningsMu.Lock()
	w.warnings = append(w.warnings, types.Warning{Path: path, Message: err.Error()})
	w.warningsMu.Unlock()
}
