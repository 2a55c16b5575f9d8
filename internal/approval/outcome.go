package approval

import (
	"strings"

	"github.com/syllogismos/codex/internal/confirm"
	"github.com/syllogismos/codex/internal/runner"
)

// Message is a synthetic conversation item the surrounding agent loop must
// inject back into its transcript, e.g. an explanation of why execution
// was aborted.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CommandOutcome is the engine's answer for one proposal. Failures are
// carried in here as data; the engine never panics or errors out of a
// denied or failed command.
type CommandOutcome struct {
	OutputText      string         `json:"output_text"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	AdditionalItems []Message      `json:"additional_items,omitempty"`
}

const abortedText = "aborted"

// 这些是回灌给 agent 的固定话术，改动会影响模型的后续行为。
const (
	stopMessage            = "No, don't do that — stop for now."
	defaultContinueMessage = "No, don't do that — keep going though."
)

// rejectedOutcome is the terminal result for a policy rejection.
func rejectedOutcome() CommandOutcome {
	return CommandOutcome{
		OutputText: abortedText,
		Metadata: map[string]any{
			"error":  "command rejected",
			"reason": "Command rejected by auto-approval system.",
		},
	}
}

// deniedOutcome is the terminal result for a human denial. Unlike a policy
// rejection it carries no error metadata, just the message for the agent.
func deniedOutcome(decision confirm.Decision) CommandOutcome {
	text := stopMessage
	if decision.Kind == confirm.DecisionDenyAndContinue {
		text = defaultContinueMessage
		if custom := strings.TrimSpace(decision.Message); custom != "" {
			text = custom
		}
	}
	return CommandOutcome{
		OutputText:      abortedText,
		AdditionalItems: []Message{{Role: "user", Content: text}},
	}
}

// interpretOutcome maps one execution attempt onto the caller-facing
// result: stdout on success, stderr plus the exit code on failure.
func interpretOutcome(out runner.Outcome) CommandOutcome {
	if out.ExitCode == 0 {
		return CommandOutcome{OutputText: out.Stdout}
	}
	return CommandOutcome{
		OutputText: out.Stderr,
		Metadata:   map[string]any{"exit_code": out.ExitCode},
	}
}
