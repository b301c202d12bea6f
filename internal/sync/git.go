package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination commits each export to a file in a local clone and pushes
// it to origin.
type GitDestination struct {
	dir    string
	path   string
	branch string
}

// NewGitDestination writes to path (relative to the clone at dir) on branch.
func NewGitDestination(dir, path, branch string) *GitDestination {
	return &GitDestination{dir: dir, path: filepath.ToSlash(path), branch: branch}
}

// gitError is a failed git invocation with what git printed.
type gitError struct {
	args   []string
	err    error
	output string
}

func (e *gitError) Error() string {
	msg := "git " + strings.Join(e.args, " ") + ": " + e.err.Error()
	if e.output != "" {
		msg += ": " + e.output
	}
	return msg
}

func (e *gitError) Unwrap() error { return e.err }

func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return &gitError{args: args, err: err, output: strings.TrimSpace(string(out))}
	}
	return nil
}

// Write replaces the file with data and pushes a commit. When the content
// is already committed nothing is pushed.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if err := d.git(ctx, "checkout", "--quiet", d.branch); err != nil {
		return err
	}
	// origin may not have the branch yet; a failed pull is not fatal.
	d.git(ctx, "pull", "--quiet", "--ff-only", "origin", d.branch)

	full := filepath.Join(d.dir, filepath.FromSlash(d.path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return err
	}
	if err := d.git(ctx, "add", "--", d.path); err != nil {
		return err
	}

	// diff --quiet exits 1 when something is staged.
	err := d.git(ctx, "diff", "--cached", "--quiet")
	var exit *exec.ExitError
	switch {
	case err == nil:
		return nil
	case !errors.As(err, &exit) || exit.ExitCode() != 1:
		return err
	}

	if err := d.git(ctx, "commit", "--quiet", "-m", "Update backoffice export"); err != nil {
		return err
	}
	return d.git(ctx, "push", "--quiet", "origin", d.branch)
}

func (d *GitDestination) String() string {
	return fmt.Sprintf("git:%s@%s", filepath.Join(d.dir, d.path), d.branch)
}
