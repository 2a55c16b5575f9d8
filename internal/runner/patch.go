package runner

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/syllogismos/codex/internal/sandbox"
)

const patchTimeout = 1 * time.Minute

// Apply feeds body to the system `patch` command inside workdir. Refused or
// failed patches come back as Outcome data; only context cancellation is an
// error.
func (Local) Apply(ctx context.Context, body string, workdir string) (Outcome, error) {
	if strings.TrimSpace(body) == "" {
		return Outcome{ExitCode: -1, Stderr: "empty patch content"}, nil
	}
	if ok, reason := patchPathsSafe(workdir, body); !ok {
		return Outcome{ExitCode: 1, Stderr: reason}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, patchTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "patch", "-p0", "--force")
	if workdir != "" {
		cmd.Dir = workdir
	}
	cmd.Stdin = bytes.NewBufferString(body)
	stdout := newTailBuffer(0)
	stderr := newTailBuffer(0)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Outcome{ExitCode: -1, Stderr: "spawn failed: " + err.Error()}, nil
	}
	err := cmd.Wait()
	return finish(ctx, runCtx, err, stdout.String(), stderr.String(), patchTimeout)
}

// patchPathsSafe scans the diff headers and refuses any patch touching a
// path outside workdir. Header-relative paths resolve against workdir.
func patchPathsSafe(workdir string, body string) (bool, string) {
	const reason = "patch references paths outside the workspace"
	if workdir == "" {
		workdir = "."
	}
	roots := sandbox.CleanRoots([]string{workdir})
	if len(roots) == 0 {
		return false, "cannot resolve patch workdir"
	}
	root := roots[0]
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "+++ ") && !strings.HasPrefix(line, "--- ") {
			continue
		}
		path := strings.TrimSpace(line[4:])
		if tab := strings.IndexByte(path, '\t'); tab >= 0 {
			path = path[:tab]
		}
		if path == "" || path == "/dev/null" {
			continue
		}
		if !strings.HasPrefix(path, "/") {
			path = filepath.Clean(filepath.Join(root, path))
		}
		if !sandbox.WithinRoots(path, roots) {
			return false, reason
		}
	}
	return true, ""
}
