package sandbox

import (
	"context"

	"github.com/syllogismos/codex/internal/logger"
)

var log = logger.Named("sandbox")

// Selector 把“要不要沙箱”翻译成当前平台可用的具体后端。
//
// The platform is fixed at construction; containment is probed again on
// every Pick because the answer can change while the process lives (the
// agent may be moved into a container, a mount may appear).
type Selector struct {
	goos  string
	probe ContainmentProbe
}

// NewSelector builds a selector for the given GOOS value. A nil probe
// falls back to the filesystem-based OSProbe.
func NewSelector(goos string, probe ContainmentProbe) *Selector {
	if probe == nil {
		probe = OSProbe{}
	}
	return &Selector{goos: goos, probe: probe}
}

// Pick returns the backend to run one command under. wantsSandbox false
// always yields BackendNone; the interesting work is mapping "yes, sandbox
// this" onto what the platform can actually do. The second result is a
// fallback label, non-empty only when sandboxing was requested but cannot
// be provided: "container" (already isolated) or "unsupported".
func (s *Selector) Pick(ctx context.Context, wantsSandbox bool) (Backend, string) {
	if !wantsSandbox {
		return BackendNone, ""
	}
	if s.goos == "darwin" {
		return BackendSeatbelt, ""
	}
	if s.probe.InContainer(ctx) {
		log.WithField("goos", s.goos).Info("already inside a container, skipping extra sandbox layer")
		return BackendNone, "container"
	}
	log.WithField("goos", s.goos).Warn("no sandbox facility on this platform, running unsandboxed")
	return BackendNone, "unsupported"
}
