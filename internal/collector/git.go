package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// GitTimeout bounds a single git invocation.
const GitTimeout = 2 * time.Second

// ErrNotRepository is returned when no enclosing git repository exists.
var ErrNotRepository = errors.New("not a git repository")

// GitRunner executes a git command and returns its output.
// This abstraction allows mocking in tests.
type GitRunner func(workDir string, args ...string) (string, error)

// defaultGitRunner runs git as a real subprocess, killed after GitTimeout.
func defaultGitRunner(workDir string, args ...string) (string, error) {
	return runGit(GitTimeout, workDir, args...)
}

func runGit(timeout time.Duration, workDir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workDir
	out, err := cmd.Output()
	if ctx.Err() != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), ctx.Err())
	}
	return string(out), err
}

// FindRepoRoot walks up from dir to the nearest directory holding a .git
// entry (a directory, or a file for worktrees and submodules).
func FindRepoRoot(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(abs, ".git")); err == nil {
			return abs, true
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false
		}
		abs = parent
	}
}

// LookupBranch returns the current branch of the repository enclosing
// workDir. A nil runner uses the git binary.
func LookupBranch(workDir string, run GitRunner) (string, error) {
	if run == nil {
		run = defaultGitRunner
	}
	root, ok := FindRepoRoot(workDir)
	if !ok {
		return "", ErrNotRepository
	}
	out, err := run(root, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		if isExitCode128(err) {
			return "", ErrNotRepository
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// GitUserEmail returns user.email from the git configuration visible from
// workDir, or "" when unset.
func GitUserEmail(workDir string, run GitRunner) string {
	if run == nil {
		run = defaultGitRunner
	}
	if workDir == "" {
		workDir = "."
	}
	out, err := run(workDir, "config", "user.email")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// isExitCode128 reports whether err is an *exec.ExitError with exit code 128.
func isExitCode128(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 128
	}
	return false
}
