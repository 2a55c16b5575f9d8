package runner

import (
	"context"
	"time"

	"github.com/syllogismos/codex/internal/sandbox"
)

// Spec describes one execution attempt. It is immutable once built; callers
// derive modified copies instead of mutating in place.
type Spec struct {
	Command       []string
	Workdir       string
	Timeout       time.Duration
	WritableRoots []string
}

// WithWorkdir returns a copy of the spec with a different working
// directory.
func (s Spec) WithWorkdir(dir string) Spec {
	s.Workdir = dir
	return s
}

// Config carries execution knobs forwarded from configuration. The engine
// passes it through without interpreting anything beyond these fields.
type Config struct {
	// TTY 为 true 时走 pty，stdout/stderr 合并；否则分管道采集。
	TTY            bool
	MaxOutputBytes int
	Env            []string
}

// Outcome is the raw result of a single attempt: captured streams plus the
// exit code. A spawn failure is reported as ExitCode -1 with the error text
// on Stderr rather than as a Go error.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner executes one command under a chosen sandbox backend.
type CommandRunner interface {
	Run(ctx context.Context, spec Spec, backend sandbox.Backend, cfg Config) (Outcome, error)
}

// PatchRunner applies a unified diff to a working directory.
type PatchRunner interface {
	Apply(ctx context.Context, body string, workdir string) (Outcome, error)
}
