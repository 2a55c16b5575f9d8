package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/creack/pty"

	"github.com/syllogismos/codex/internal/sandbox"
)

const defaultTimeout = 2 * time.Minute

// Local runs commands as child processes of this one.
type Local struct{}

// Run executes spec under the given backend. Failures to even spawn the
// process come back as an Outcome with ExitCode -1, not as an error; the
// only error Run returns is the caller's context being cancelled.
func (Local) Run(ctx context.Context, spec Spec, backend sandbox.Backend, cfg Config) (Outcome, error) {
	if len(spec.Command) == 0 {
		return Outcome{ExitCode: -1, Stderr: "empty command"}, nil
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := spec.Command
	if backend == sandbox.BackendSeatbelt {
		roots := append(append([]string{}, spec.WritableRoots...), spec.Workdir)
		argv = sandbox.SeatbeltArgv(argv, roots)
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	if spec.Workdir != "" {
		cmd.Dir = spec.Workdir
	}
	if len(cfg.Env) > 0 {
		cmd.Env = cfg.Env
	}

	if cfg.TTY {
		return waitPTY(ctx, runCtx, cmd, cfg, timeout)
	}
	return waitPiped(ctx, runCtx, cmd, cfg, timeout)
}

func waitPiped(ctx, runCtx context.Context, cmd *exec.Cmd, cfg Config, timeout time.Duration) (Outcome, error) {
	stdout := newTailBuffer(cfg.MaxOutputBytes)
	stderr := newTailBuffer(cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Outcome{ExitCode: -1, Stderr: "spawn failed: " + err.Error()}, nil
	}
	err := cmd.Wait()
	return finish(ctx, runCtx, err, stdout.String(), stderr.String(), timeout)
}

// waitPTY 在伪终端里跑命令，stdout/stderr 合并回 Stdout。
func waitPTY(ctx, runCtx context.Context, cmd *exec.Cmd, cfg Config, timeout time.Duration) (Outcome, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return Outcome{ExitCode: -1, Stderr: "start pty: " + err.Error()}, nil
	}
	out := newTailBuffer(cfg.MaxOutputBytes)
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(out, ptmx)
		close(done)
	}()

	err = cmd.Wait()
	_ = ptmx.Close()
	<-done
	return finish(ctx, runCtx, err, out.String(), "", timeout)
}

// finish folds the Wait error into outcome data, keeping cancellation of
// the caller's context as the one true error path. runCtx expiring while
// ctx is still live means the per-command timeout fired.
func finish(ctx, runCtx context.Context, waitErr error, stdout, stderr string, timeout time.Duration) (Outcome, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, ctxErr
	}
	out := Outcome{Stdout: stdout, Stderr: stderr}
	if waitErr == nil {
		return out, nil
	}
	out.ExitCode = exitCode(waitErr)
	if runCtx.Err() != nil {
		out.Stderr = appendLine(out.Stderr, fmt.Sprintf("command timed out after %s", timeout))
	}
	return out, nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	if s[len(s)-1] != '\n' {
		return s + "\n" + line
	}
	return s + line
}
