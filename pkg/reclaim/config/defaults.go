// Package config provides configuration management for the reclaim
// artifact cleaner.
package config

// Default configuration values for reclaim.
const (
	// DefaultMinSize is the aggregate size threshold for auto-selection.
	DefaultMinSize = "1MiB"

	// DefaultStaleDays is the age threshold in days for auto-selection.
	DefaultStaleDays = 180

	// DefaultPath is the default scan root when none is specified.
	DefaultPath = "."

	// DefaultWorkers is the worker budget when none is configured.
	// Zero means derive from available CPUs at runtime.
	DefaultWorkers = 0
)

// DefaultArtifactNames are the directory basenames treated as build or
// tooling byproducts out of the box. Matching a name only nominates a
// candidate; a candidate is reported only when its repository actually
// ignores it.
var DefaultArtifactNames = []string{
	"target",
	"node_modules",
	"dist",
	"build",
	"out",
	".next",
	".nuxt",
	".svelte-kit",
	".astro",
	".vercel",
	".turbo",
	".cache",
	".parcel-cache",
	".vite",
	".angular",
	".gradle",
	".terraform",
	".serverless",
	".dart_tool",
	".venv",
	"venv",
	".tox",
	".direnv",
	"bin",
	"obj",
	"coverage",
	".pytest_cache",
	"__pycache__",
	".mypy_cache",
	".ruff_cache",
	"tmp",
}
