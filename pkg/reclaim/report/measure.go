package report

import (
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
)

// measureWorkers bounds the intra-candidate walk parallelism. The
// measurement pool divides its limit by this so the walk goroutine
// total never exceeds the configured worker budget (see measureLimit).
const measureWorkers = 2

// DirStats is the measured footprint of one candidate directory.
type DirStats struct {
	// Size is the sum of regular-file sizes in bytes.
	Size int64

	// NewestMtime is the newest regular-file modification time. Zero
	// when the tree contains no regular files.
	NewestMtime time.Time
}

// MeasureDir computes the recursive size and newest mtime of the tree
// rooted at path. Symlinks are never followed and contribute zero to
// the size, so the same tree always measures the same regardless of
// what its links point at. Entries that vanish or error mid-walk are
// skipped; the result is a best-effort total, never an abort.
func MeasureDir(path string) (DirStats, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return DirStats{}, err
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		return DirStats{}, nil
	}
	if info.Mode().IsRegular() {
		return DirStats{Size: info.Size(), NewestMtime: info.ModTime()}, nil
	}
	if !info.IsDir() {
		return DirStats{}, nil
	}

	var size atomic.Int64
	var mu sync.Mutex
	var newest time.Time

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: measureWorkers,
	}

	err = fastwalk.Walk(&conf, path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Vanished or unreadable entries do not abort measurement.
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}

		size.Add(fi.Size())
		mtime := fi.ModTime()

		mu.Lock()
		if mtime.After(newest) {
			newest = mtime
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return DirStats{}, err
	}

	return DirStats{Size: size.Load(), NewestMtime: newest}, nil
}
