// Package git wraps the git CLI for the handful of plumbing operations the
// indexer needs: resolving refs, computing merge bases, and materializing a
// commit into a disposable worktree.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrNoMergeBase is returned when two refs share no common ancestor. Without
// a baseline there is nothing meaningful to index.
var ErrNoMergeBase = errors.New("no merge base between refs")

func run(ctx context.Context, repo string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repo
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Root returns the top-level directory of the repository containing dir.
func Root(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "rev-parse", "--show-toplevel")
}

// ResolveCommit resolves a ref to a full commit SHA.
func ResolveCommit(ctx context.Context, repo, ref string) (string, error) {
	return run(ctx, repo, "rev-parse", "--verify", ref+"^{commit}")
}

// MergeBase returns the lowest common ancestor of two refs.
func MergeBase(ctx context.Context, repo, a, b string) (string, error) {
	out, err := run(ctx, repo, "merge-base", a, b)
	if err != nil {
		// merge-base exits 1 with empty output when no ancestor exists.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", ErrNoMergeBase
		}
		return "", err
	}
	if out == "" {
		return "", ErrNoMergeBase
	}
	return out, nil
}

// ShortSHA returns the first 8 characters of a SHA.
func ShortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// Worktree is a detached checkout of one commit in a temporary directory.
// Release must be called on every exit path; it is safe to call twice.
type Worktree struct {
	Path string

	repo    string
	release sync.Once
}

// AddWorktree materializes the given commit into a detached temporary
// worktree without disturbing the repository's working tree.
func AddWorktree(ctx context.Context, repo, sha string) (*Worktree, error) {
	dir, err := os.MkdirTemp("", "lca-"+ShortSHA(sha)+"-")
	if err != nil {
		return nil, fmt.Errorf("create worktree dir: %w", err)
	}
	if _, err := run(ctx, repo, "worktree", "add", "--detach", dir, sha); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("add worktree at %s: %w", ShortSHA(sha), err)
	}
	return &Worktree{Path: dir, repo: repo}, nil
}

// Release removes the worktree. Uses its own timeout so cleanup still runs
// when the caller's context is already cancelled; falls back to deleting the
// directory if git refuses.
func (w *Worktree) Release() {
	w.release.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := run(ctx, w.repo, "worktree", "remove", "--force", w.Path); err != nil {
			os.RemoveAll(w.Path)
		}
	})
}
