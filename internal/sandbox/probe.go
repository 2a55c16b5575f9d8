package sandbox

import (
	"context"
	"os"
	"strings"
)

// ContainmentProbe reports whether the current process already runs inside
// a container or similar isolation boundary.
type ContainmentProbe interface {
	InContainer(ctx context.Context) bool
}

// ProbeFunc adapts a plain function to ContainmentProbe.
type ProbeFunc func(ctx context.Context) bool

func (f ProbeFunc) InContainer(ctx context.Context) bool { return f(ctx) }

// OSProbe checks the usual container breadcrumbs on the local filesystem.
type OSProbe struct{}

var containerMarkers = []string{"/.dockerenv", "/run/.containerenv"}

func (OSProbe) InContainer(ctx context.Context) bool {
	_ = ctx
	for _, marker := range containerMarkers {
		if _, err := os.Stat(marker); err == nil {
			return true
		}
	}
	// PID 1 的 cgroup 路径里会带上容器 runtime 的名字。
	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	for _, hint := range []string{"docker", "containerd", "kubepods", "lxc", "podman"} {
		if strings.Contains(string(data), hint) {
			return true
		}
	}
	return false
}
