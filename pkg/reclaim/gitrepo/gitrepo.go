// Package gitrepo wraps the external git executable as the ignore
// oracle for the reclaim artifact cleaner. Ignore semantics are never
// reimplemented here; every answer comes from git itself, so nested
// excludes, repo-local excludes, and global configuration all behave
// exactly as the host tool would.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrGitNotFound indicates the git executable is missing from PATH.
// Ignore status cannot be safely assumed without it, so this is a
// fatal startup condition.
var ErrGitNotFound = errors.New("git executable not found in PATH")

// Head describes the most recent commit of a repository.
type Head struct {
	// Hash is the full commit hash.
	Hash string

	// Time is the committer timestamp.
	Time time.Time

	// ISO is the committer timestamp as git's strict ISO 8601 string,
	// kept verbatim for display.
	ISO string
}

// ShortHash returns the abbreviated commit hash for display.
func (h Head) ShortHash() string {
	if len(h.Hash) > 8 {
		return h.Hash[:8]
	}
	return h.Hash
}

// Available verifies the git executable is on PATH.
func Available() error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("%w: %v", ErrGitNotFound, err)
	}
	return nil
}

// FindRoot ascends from start looking for the nearest directory that
// contains a .git marker (directory or worktree file). It returns the
// repository root and true, or "" and false when no enclosing
// repository exists.
func FindRoot(start string) (string, bool) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// IsIgnored reports whether path is ignored under repoRoot's combined
// ignore rules. The path must be inside repoRoot.
func IsIgnored(ctx context.Context, repoRoot, path string) (bool, error) {
	rel, err := relWithin(repoRoot, path)
	if err != nil {
		return false, err
	}

	cmd := exec.CommandContext(ctx, "git", "-C", repoRoot, "check-ignore", "--quiet", "--", rel)
	err = cmd.Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("git check-ignore failed in %s: %w", repoRoot, err)
}

// CheckIgnored answers the ignore question for many paths under one
// repository root with a single subprocess, using check-ignore's
// NUL-terminated stdin protocol. The result maps each input path to
// its ignored status. One process per repo instead of one per
// candidate is the main cost lever on large workspaces.
func CheckIgnored(ctx context.Context, repoRoot string, paths []string) (map[string]bool, error) {
	result := make(map[string]bool, len(paths))
	if len(paths) == 0 {
		return result, nil
	}

	rels := make([]string, len(paths))
	relToPath := make(map[string]string, len(paths))
	for i, p := range paths {
		rel, err := relWithin(repoRoot, p)
		if err != nil {
			return nil, err
		}
		rels[i] = rel
		relToPath[rel] = p
		result[p] = false
	}

	var stdin bytes.Buffer
	for _, rel := range rels {
		stdin.WriteString(rel)
		stdin.WriteByte(0)
	}

	cmd := exec.CommandContext(ctx, "git", "-C", repoRoot, "check-ignore", "--stdin", "-z")
	cmd.Stdin = &stdin
	out, err := cmd.Output()
	if err != nil {
		// Exit status 1 means no path was ignored; anything else is a
		// real failure (corrupt repo, bad invocation).
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return result, nil
		}
		return nil, fmt.Errorf("git check-ignore failed in %s: %w", repoRoot, err)
	}

	for _, rel := range bytes.Split(out, []byte{0}) {
		if len(rel) == 0 {
			continue
		}
		if p, ok := relToPath[string(rel)]; ok {
			result[p] = true
		}
	}
	return result, nil
}

// HeadCommit returns the head commit of the repository at repoRoot, or
// nil when the repository has no commits yet.
func HeadCommit(ctx context.Context, repoRoot string) (*Head, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoRoot, "log", "-1", "--format=%H%n%ct%n%cI")
	out, err := cmd.Output()
	if err != nil {
		// git log fails on an empty repository; treat as "no commits".
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("git log failed in %s: %w", repoRoot, err)
	}

	lines := strings.SplitN(strings.TrimSpace(string(out)), "\n", 3)
	if len(lines) < 3 {
		return nil, nil
	}

	hash := strings.TrimSpace(lines[0])
	iso := strings.TrimSpace(lines[2])
	unix, err := strconv.ParseInt(strings.TrimSpace(lines[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing commit timestamp from %s: %w", repoRoot, err)
	}
	if hash == "" || iso == "" {
		return nil, nil
	}

	return &Head{Hash: hash, Time: time.Unix(unix, 0), ISO: iso}, nil
}

// relWithin returns path relative to root, rejecting paths outside it.
func relWithin(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("path %s is not relative to repo %s: %w", path, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside repo %s", path, root)
	}
	return rel, nil
}
