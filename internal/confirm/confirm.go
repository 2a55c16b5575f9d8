package confirm

import (
	"context"

	"github.com/syllogismos/codex/internal/safety"
)

// DecisionKind 是人工确认可能给出的四种答复。
type DecisionKind int

const (
	// DecisionApprove runs the command this one time.
	DecisionApprove DecisionKind = iota
	// DecisionAlwaysApprove runs it and blanket-approves the exact same
	// argument vector for the rest of the session.
	DecisionAlwaysApprove
	// DecisionDenyAndStop refuses and tells the agent to stop entirely.
	DecisionDenyAndStop
	// DecisionDenyAndContinue refuses this command but lets the agent keep
	// working, optionally with a custom explanation.
	DecisionDenyAndContinue
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionApprove:
		return "approve"
	case DecisionAlwaysApprove:
		return "always-approve"
	case DecisionDenyAndStop:
		return "deny-stop"
	case DecisionDenyAndContinue:
		return "deny-continue"
	default:
		return "unknown"
	}
}

// Denied reports whether the decision refuses execution.
func (k DecisionKind) Denied() bool {
	return k == DecisionDenyAndStop || k == DecisionDenyAndContinue
}

// Decision 是一次确认的结果。Message 仅在 DenyAndContinue 时有意义。
type Decision struct {
	Kind    DecisionKind
	Message string
}

// Channel is the human-in-the-loop port. Confirm may block for as long as
// the human takes; it returns an error only when ctx is cancelled while
// waiting.
type Channel interface {
	Confirm(ctx context.Context, command []string, patch *safety.PatchPayload) (Decision, error)
}

// Func adapts a plain function to Channel.
type Func func(ctx context.Context, command []string, patch *safety.PatchPayload) (Decision, error)

func (f Func) Confirm(ctx context.Context, command []string, patch *safety.PatchPayload) (Decision, error) {
	return f(ctx, command, patch)
}

// Fixed answers every escalation with the same decision. It is the channel
// behind --auto-approve/--auto-deny batch runs.
type Fixed struct {
	Decision Decision
}

func (f Fixed) Confirm(ctx context.Context, command []string, patch *safety.PatchPayload) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	return f.Decision, nil
}

// ApproveAll 对所有升级一律放行（仅本次，不落白名单）。
func ApproveAll() Channel {
	return Fixed{Decision: Decision{Kind: DecisionApprove}}
}

// DenyAll 对所有升级一律拒绝并停止。
func DenyAll() Channel {
	return Fixed{Decision: Decision{Kind: DecisionDenyAndStop}}
}
