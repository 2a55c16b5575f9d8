package policy

import (
	"fmt"
	"strings"
)

// ApprovalMode 决定哪些提议需要人工确认。
type ApprovalMode string

const (
	// ModeSuggest escalates everything that is not known-safe.
	ModeSuggest ApprovalMode = "suggest"
	// ModeAutoEdit auto-approves file patches; commands still escalate.
	ModeAutoEdit ApprovalMode = "auto-edit"
	// ModeFullAuto auto-approves everything, sandboxing unknown commands.
	ModeFullAuto ApprovalMode = "full-auto"
)

// Default is the mode used when config and flags are silent.
const Default = ModeSuggest

func (m ApprovalMode) String() string { return string(m) }

// Valid reports whether m is one of the closed set of modes.
func (m ApprovalMode) Valid() bool {
	switch m {
	case ModeSuggest, ModeAutoEdit, ModeFullAuto:
		return true
	}
	return false
}

// Parse maps a user-supplied string onto an ApprovalMode. Unknown values
// fall back to ModeSuggest together with an error, so a typo can never
// loosen the policy.
func Parse(raw string) (ApprovalMode, error) {
	mode := ApprovalMode(strings.ToLower(strings.TrimSpace(raw)))
	if mode == "" {
		return Default, nil
	}
	if !mode.Valid() {
		return ModeSuggest, fmt.Errorf("unknown approval mode %q (want suggest|auto-edit|full-auto)", raw)
	}
	return mode, nil
}
