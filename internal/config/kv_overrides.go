package config

import (
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form -c key=value overrides.
// 未知 key 直接忽略，解析失败的数值/布尔也忽略，保持原值。
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	if len(overrides) == 0 {
		return cfg
	}
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "url":
			cfg.URL = val
		case "token":
			cfg.Token = val
		case "model":
			cfg.Model = val
		case "provider":
			cfg.Provider = val
		case "approval_mode":
			cfg.ApprovalMode = val
		case "ask_on_sandbox_failure":
			if b, ok := parseBool(val); ok {
				cfg.AskOnSandboxFailure = b
			}
		case "tty":
			if b, ok := parseBool(val); ok {
				cfg.TTY = b
			}
		case "max_output_bytes":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				cfg.MaxOutputBytes = n
			}
		case "timeout_seconds":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				cfg.TimeoutSeconds = n
			}
		case "instructions":
			cfg.Instructions = val
		case "rules_path":
			cfg.RulesPath = val
		case "log_path":
			cfg.LogPath = val
		case "writable_roots":
			cfg.WritableRoots = splitRoots(val)
		}
	}
	return cfg
}

func parseBool(val string) (bool, bool) {
	switch strings.ToLower(val) {
	case "true", "1", "t", "yes", "y", "on":
		return true, true
	case "false", "0", "f", "no", "n", "off":
		return false, true
	}
	return false, false
}

func splitRoots(val string) []string {
	var roots []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			roots = append(roots, p)
		}
	}
	return roots
}
