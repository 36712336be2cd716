// Package types provides core data types for the reclaim artifact cleaner.
// It includes the immutable scan configuration, warning records for
// per-item recoverable errors, and utilities for parsing and formatting
// byte sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// ScanConfig is the immutable input bundle for one run. It is built once
// by the command layer and passed to every component at construction
// time; components never read ambient configuration.
type ScanConfig struct {
	// Root is the absolute scan start path.
	Root string `json:"root"`

	// ArtifactNames is the set of directory basenames treated as
	// candidates (built-ins merged with user additions).
	ArtifactNames []string `json:"artifact_names"`

	// Workers is the parallelism budget for traversal, measurement,
	// and ignore-check subprocesses. Zero means runtime.NumCPU.
	Workers int `json:"workers"`

	// MinSize is the aggregate byte threshold for default auto-selection.
	MinSize int64 `json:"min_size"`

	// StaleDays is the age threshold in days for default auto-selection,
	// measured from a group's newest contained mtime.
	StaleDays int `json:"stale_days"`

	// DryRun suppresses actual deletion; the executor only reports what
	// it would remove.
	DryRun bool `json:"dry_run"`

	// SelectAll pre-selects every group regardless of staleness and size.
	SelectAll bool `json:"select_all"`
}

// NameSet returns the artifact names as a lookup set.
func (c ScanConfig) NameSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ArtifactNames))
	for _, name := range c.ArtifactNames {
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// Warning records a per-item recoverable error. Warnings never abort a
// run; they are collected and surfaced in the end-of-run summary.
type Warning struct {
	// Path is the file or directory the warning refers to.
	Path string `json:"path"`

	// Message describes what went wrong.
	Message string `json:"message"`
}

func (w Warning) String() string {
	return w.Path + ": " + w.Message
}

// sizePattern matches size strings like "100M", "1.5GiB", "500kb".
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGTP]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that a size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// decimal (SI) multipliers per unit letter.
var siMultiplier = map[string]int64{
	"":  1,
	"K": 1_000,
	"M": 1_000_000,
	"G": 1_000_000_000,
	"T": 1_000_000_000_000,
	"P": 1_000_000_000_000_000,
}

// binary (IEC) multipliers per unit letter.
var iecMultiplier = map[string]int64{
	"K": KiB,
	"M": MiB,
	"G": GiB,
	"T": TiB,
	"P": 1024 * TiB,
}

// ParseSize parses a human-readable size string and returns bytes.
// Decimal suffixes (KB, MB, ...) use powers of 1000; binary suffixes
// (KiB, MiB, ...) use powers of 1024. A bare letter ("100K") is
// decimal, matching the suffix conventions of common disk tools.
// Decimal fractions are supported and truncated to the nearest byte.
//
// Returns ErrInvalidSize if the format is not recognized and
// ErrNegativeSize if the value is negative.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	binary := strings.HasSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	var ok bool
	if binary {
		multiplier, ok = iecMultiplier[suffix]
	} else {
		multiplier, ok = siMultiplier[suffix]
	}
	if !ok {
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, matches[2])
	}

	bytes := value * float64(multiplier)
	if bytes > float64(1<<62) {
		return 0, fmt.Errorf("%w: value too large", ErrInvalidSize)
	}

	return int64(bytes), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units, for consistency with common filesystem tools.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
