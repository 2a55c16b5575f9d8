package sandbox

// Backend 是一次执行实际使用的隔离后端。
type Backend int

const (
	// BackendNone runs the command directly on the host.
	BackendNone Backend = iota
	// BackendSeatbelt wraps the command in a macOS sandbox-exec profile.
	BackendSeatbelt
)

func (b Backend) String() string {
	switch b {
	case BackendNone:
		return "none"
	case BackendSeatbelt:
		return "seatbelt"
	default:
		return "unknown"
	}
}

// Sandboxed reports whether the backend adds an isolation layer. The retry
// flow only fires after a run under a sandboxed backend.
func (b Backend) Sandboxed() bool {
	return b != BackendNone
}
