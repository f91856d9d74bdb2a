// Package gitrepo signals the state of a local git checkout.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/micro-ha/q5-assistants/internal/resolvers/command"
)

const detachedHead = "HEAD"

var (
	ErrNoUpstream = errors.New("active branch has no upstream branch")
	ErrNotRepo    = errors.New("path is not a git repository")
)

// Repo runs git queries against one working tree.
type Repo struct {
	path   string
	runner command.Runner
}

// NewRepo creates a repo handle. runner defaults to command.Exec.
func NewRepo(path string, runner command.Runner) *Repo {
	if runner == nil {
		runner = command.Exec{}
	}
	return &Repo{path: path, runner: runner}
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return "", fmt.Errorf("repository %q: %w", r.path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository %q: %w", r.path, ErrNotRepo)
	}
	out, err := r.runner.Run(ctx, r.path, "git", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Dirty reports uncommitted changes to tracked files.
func (r *Repo) Dirty(ctx context.Context) (bool, error) {
	out, err := r.git(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// Branch returns the active branch name and whether HEAD is detached.
func (r *Repo) Branch(ctx context.Context) (string, bool, error) {
	out, err := r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", false, err
	}
	if out == detachedHead {
		return "", true, nil
	}
	return out, false, nil
}

// Fetch updates remote-tracking refs of the default remote.
func (r *Repo) Fetch(ctx context.Context) error {
	_, err := r.git(ctx, "fetch", "--quiet")
	if err != nil {
		return fmt.Errorf("git fetch failed: %w", err)
	}
	return nil
}

// Divergence returns commits ahead of and behind the upstream of the active branch.
func (r *Repo) Divergence(ctx context.Context) (int, int, error) {
	if _, err := r.git(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}"); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrNoUpstream, err)
	}
	out, err := r.git(ctx, "rev-list", "--left-right", "--count", "HEAD...@{u}")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", out)
	}
	ahead, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", out)
	}
	behind, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", out)
	}
	return ahead, behind, nil
}
