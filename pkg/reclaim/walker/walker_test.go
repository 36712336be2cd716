package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// buildTree creates a workspace fixture:
//
//	root/
//	  project-a/
//	    node_modules/        <- candidate
//	      dist/              <- nested, must not be emitted
//	        bundle.js
//	    src/
//	      main.js
//	  project-b/
//	    .git/
//	      target/            <- inside .git, must not be emitted
//	    target/              <- candidate
//	      debug/
//	  dist                   <- regular FILE named like an artifact
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	dirs := []string{
		filepath.Join(root, "project-a", "node_modules", "dist"),
		filepath.Join(root, "project-a", "src"),
		filepath.Join(root, "project-b", ".git", "target"),
		filepath.Join(root, "project-b", "target", "debug"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	files := map[string]string{
		filepath.Join(root, "project-a", "node_modules", "dist", "bundle.js"): "x",
		filepath.Join(root, "project-a", "src", "main.js"):                    "y",
		filepath.Join(root, "dist"):                                           "not a directory",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	return root
}

func testNames() map[string]struct{} {
	return map[string]struct{}{
		"node_modules": {},
		"target":       {},
		"dist":         {},
	}
}

func TestWalkFindsCandidates(t *testing.T) {
	root := buildTree(t)

	w := New(Options{Root: root, Names: testNames(), Workers: 2})
	result, err := w.Walk(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		filepath.Join(root, "project-a", "node_modules"),
		filepath.Join(root, "project-b", "target"),
	}
	if len(result.Candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %v", len(want), len(result.Candidates), result.Candidates)
	}
	for i, c := range result.Candidates {
		if c != want[i] {
			t.Errorf("candidate[%d] = %q, want %q", i, c, want[i])
		}
	}
}

func TestWalkDoesNotRecurseIntoMatches(t *testing.T) {
	root := buildTree(t)

	w := New(Options{Root: root, Names: testNames()})
	result, err := w.Walk(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nested := filepath.Join(root, "project-a", "node_modules", "dist")
	for _, c := range result.Candidates {
		if c == nested {
			t.Errorf("nested artifact %q should not be emitted", nested)
		}
	}
}

func TestWalkSkipsGitDirectories(t *testing.T) {
	root := buildTree(t)

	w := New(Options{Root: root, Names: testNames()})
	result, err := w.Walk(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inGit := filepath.Join(root, "project-b", ".git", "target")
	for _, c := range result.Candidates {
		if c == inGit {
			t.Errorf("candidate inside .git should not be emitted: %q", c)
		}
	}
}

func TestWalkIgnoresMatchingFiles(t *testing.T) {
	root := buildTree(t)

	w := New(Options{Root: root, Names: testNames()})
	result, err := w.Walk(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fileCandidate := filepath.Join(root, "dist")
	for _, c := range result.Candidates {
		if c == fileCandidate {
			t.Errorf("regular file %q should not be a candidate", fileCandidate)
		}
	}
}

func TestWalkDoesNotFollowSymlinks(t *testing.T) {
	root := buildTree(t)

	// A symlink whose target contains a candidate the walk would only
	// see by following the link.
	outside := t.TempDir()
	if err := os.MkdirAll(filepath.Join(outside, "node_modules"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	link := filepath.Join(root, "linked")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	w := New(Options{Root: root, Names: testNames()})
	result, err := w.Walk(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, c := range result.Candidates {
		if c == filepath.Join(link, "node_modules") {
			t.Errorf("candidate reached through symlink: %q", c)
		}
	}
	if result.SymlinksSkipped == 0 {
		t.Error("expected at least one skipped symlink")
	}
}

func TestWalkRootIsNeverACandidate(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "node_modules")
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w := New(Options{Root: root, Names: testNames()})
	result, err := w.Walk(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("scan root must not match itself, got %v", result.Candidates)
	}
}

func TestWalkInvalidRoot(t *testing.T) {
	w := New(Options{Root: filepath.Join(t.TempDir(), "missing"), Names: testNames()})
	if _, err := w.Walk(context.Background()); err == nil {
		t.Error("expected error for nonexistent root")
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w = New(Options{Root: file, Names: testNames()})
	if _, err := w.Walk(context.Background()); err == nil {
		t.Error("expected error for non-directory root")
	}
}

func TestWalkCancelledContext(t *testing.T) {
	root := buildTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(Options{Root: root, Names: testNames()})
	result, err := w.Walk(ctx)
	if err == nil {
		t.Error("expected context error")
	}
	if result == nil {
		t.Error("expected partial result on cancellation")
	}
}

func TestWalkCountsDirectories(t *testing.T) {
	root := buildTree(t)

	w := New(Options{Root: root, Names: testNames()})
	result, err := w.Walk(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DirsWalked == 0 {
		t.Error("expected DirsWalked > 0")
	}
}
