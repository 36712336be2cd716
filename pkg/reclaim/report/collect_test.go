package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/reclaim/pkg/reclaim/gitrepo"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// buildWorkspace writes a workspace with two repos, one candidate that
// is not gitignored, and one candidate outside any repo.
func buildWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]int{
		filepath.Join(root, "repo-a", "node_modules", "pkg.js"): 100,
		filepath.Join(root, "repo-a", "web", "dist", "out.js"):  50,
		filepath.Join(root, "repo-b", "target", "bin"):          200,
		filepath.Join(root, "repo-b", "src", "checked-in"):      10,
		filepath.Join(root, "orphan", "node_modules", "x"):      30,
	}
	for path, size := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}
	// repo-b/src is a tracked dir named nothing special; also give
	// repo-b a candidate that git will refuse to call ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "repo-b", "dist"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "repo-b", "dist", "kept"), make([]byte, 10), 0o644))

	return root
}

// fixtureScanner wires a Scanner with deterministic oracle hooks over
// the workspace fixture. repo-b's dist candidate reports not-ignored.
func fixtureScanner(t *testing.T, root string, cfg types.ScanConfig) *Scanner {
	t.Helper()

	repoA := filepath.Join(root, "repo-a")
	repoB := filepath.Join(root, "repo-b")
	headTime := time.Now().Add(-400 * 24 * time.Hour)

	s := NewScanner(cfg)
	s.findRoot = func(start string) (string, bool) {
		switch {
		case strings.HasPrefix(start, repoA):
			return repoA, true
		case strings.HasPrefix(start, repoB):
			return repoB, true
		default:
			return "", false
		}
	}
	s.checkIgnored = func(_ context.Context, repoRoot string, paths []string) (map[string]bool, error) {
		result := make(map[string]bool, len(paths))
		for _, p := range paths {
			result[p] = filepath.Base(p) != "dist" || repoRoot != repoB
		}
		return result, nil
	}
	s.headCommit = func(_ context.Context, repoRoot string) (*gitrepo.Head, error) {
		if repoRoot == repoA {
			return &gitrepo.Head{Hash: strings.Repeat("a", 40), Time: headTime}, nil
		}
		return nil, nil // repo-b has no commits
	}
	return s
}

func scanCfg(root string) types.ScanConfig {
	return types.ScanConfig{
		Root:          root,
		ArtifactNames: []string{"node_modules", "target", "dist"},
		Workers:       2,
	}
}

func TestScannerCollect(t *testing.T) {
	root := buildWorkspace(t)
	s := fixtureScanner(t, root, scanCfg(root))

	acc, err := s.Collect(context.Background())
	require.NoError(t, err)

	groups := acc.Groups()
	require.Len(t, groups, 2, "orphan candidate and unignored candidate must not form groups")

	byRoot := make(map[string]*Group)
	for _, g := range groups {
		byRoot[g.Root] = g
	}

	repoA := byRoot[filepath.Join(root, "repo-a")]
	require.NotNil(t, repoA)
	require.Len(t, repoA.Artifacts, 2)
	assert.Equal(t, int64(150), repoA.TotalSize)
	assert.True(t, repoA.HeadKnown)
	require.NotNil(t, repoA.Head)

	repoB := byRoot[filepath.Join(root, "repo-b")]
	require.NotNil(t, repoB)
	require.Len(t, repoB.Artifacts, 1, "the not-ignored dist candidate is dropped")
	assert.Equal(t, int64(200), repoB.TotalSize)
	assert.True(t, repoB.HeadKnown)
	assert.Nil(t, repoB.Head, "repo without commits has a known nil head")
}

func TestScannerProgressReachesTotal(t *testing.T) {
	root := buildWorkspace(t)
	s := fixtureScanner(t, root, scanCfg(root))

	acc, err := s.Collect(context.Background())
	require.NoError(t, err)

	total, ok := acc.Total()
	require.True(t, ok)
	assert.Equal(t, 5, total, "walker finds five raw candidates")
	assert.Equal(t, total, acc.Processed(), "every candidate resolves exactly once")
	assert.Equal(t, 3, acc.ArtifactCount())
}

func TestScannerIgnoreOracleFailureIsAWarning(t *testing.T) {
	root := buildWorkspace(t)
	s := fixtureScanner(t, root, scanCfg(root))
	s.checkIgnored = func(context.Context, string, []string) (map[string]bool, error) {
		return nil, errors.New("index corrupt")
	}

	acc, err := s.Collect(context.Background())
	require.NoError(t, err, "per-repo oracle failures never abort the scan")

	assert.Empty(t, acc.Groups())
	assert.NotEmpty(t, acc.Warnings())

	total, _ := acc.Total()
	assert.Equal(t, total, acc.Processed())
}

func TestScannerEventsAreSequential(t *testing.T) {
	root := buildWorkspace(t)
	s := fixtureScanner(t, root, scanCfg(root))

	// The emit callback must never run concurrently with itself; a
	// plain counter would race and trip -race if it did.
	depth := 0
	maxDepth := 0
	err := s.Run(context.Background(), func(Event) {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		depth--
	})
	require.NoError(t, err)
	assert.Equal(t, 1, maxDepth)
}

func TestAccumulatorHeadBeforeArtifact(t *testing.T) {
	acc := NewAccumulator()
	head := &gitrepo.Head{Hash: strings.Repeat("b", 40), Time: time.Now()}

	acc.Apply(HeadEvent{Root: "/repo", Head: head})
	g := acc.Apply(ArtifactEvent{Artifact: Artifact{RepoRoot: "/repo", Path: "/repo/dist", Size: 10}})

	require.NotNil(t, g)
	assert.True(t, g.HeadKnown, "parked head attaches when the group appears")
	assert.Equal(t, head, g.Head)
}

func TestAccumulatorProgressKeepsMaximum(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(ProgressEvent{Processed: 5})
	acc.Apply(ProgressEvent{Processed: 3}) // out-of-order arrival
	assert.Equal(t, 5, acc.Processed())
}

func TestAccumulatorWarnings(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(WarningEvent{Warning: types.Warning{Path: "/x", Message: "boom"}})
	require.Len(t, acc.Warnings(), 1)
	assert.Equal(t, "/x: boom", acc.Warnings()[0].String())
}

func TestAccumulatorDuplicateArtifactNotDoubleCounted(t *testing.T) {
	acc := NewAccumulator()
	a := Artifact{RepoRoot: "/repo", Path: "/repo/dist", Size: 10}

	acc.Apply(ArtifactEvent{Artifact: a})
	acc.Apply(ArtifactEvent{Artifact: a})

	assert.Equal(t, 1, acc.ArtifactCount())
	groups := acc.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, int64(10), groups[0].TotalSize)
}

func TestMeasureLimitHonorsWorkerBudget(t *testing.T) {
	cases := []struct {
		workers int
		want    int
	}{
		{workers: 1, want: 1},
		{workers: 2, want: 1},
		{workers: 3, want: 1},
		{workers: 4, want: 2},
		{workers: 8, want: 4},
	}
	for _, tc := range cases {
		got := measureLimit(tc.workers)
		assert.Equal(t, tc.want, got, "workers=%d", tc.workers)
		assert.LessOrEqual(t, got*measureWorkers, max(tc.workers, measureWorkers))
	}
}
