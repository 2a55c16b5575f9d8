package anthropic

import (
	"testing"

	"github.com/syllogismos/codex/internal/agent"

	anthropic "github.com/anthropics/anthropic-sdk-go"
)

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("New with empty token should fail")
	}
	if _, err := New(Options{Token: "   "}); err == nil {
		t.Fatalf("New with blank token should fail")
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"https://api.example.com", "https://api.example.com"},
		{"https://api.example.com/", "https://api.example.com"},
		{"https://api.example.com/v1", "https://api.example.com"},
		{"https://api.example.com/v1/", "https://api.example.com"},
		{"https://proxy.example.com/anthropic/v1", "https://proxy.example.com/anthropic"},
	}
	for _, tc := range cases {
		if got := normalizeBaseURL(tc.in); got != tc.want {
			t.Fatalf("normalizeBaseURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveModelPrefersPromptModel(t *testing.T) {
	c := &Client{model: "claude-default"}
	if got := c.resolveModel("claude-override"); got != anthropic.Model("claude-override") {
		t.Fatalf("resolveModel = %q, want override", got)
	}
	if got := c.resolveModel("  "); got != anthropic.Model("claude-default") {
		t.Fatalf("resolveModel fallback = %q, want default", got)
	}
}

func TestBuildMessageParamsSplitsSystemAndSkipsEmpty(t *testing.T) {
	prompt := agent.Prompt{
		Model: "claude-test",
		Messages: []agent.Message{
			{Role: agent.RoleSystem, Content: "system rules"},
			{Role: agent.RoleUser, Content: "  "},
			{Role: agent.RoleUser, Content: "question"},
			{Role: agent.RoleAssistant, Content: "earlier answer"},
		},
	}

	params := buildMessageParams(prompt, anthropic.Model("claude-test"))

	if len(params.System) != 1 || params.System[0].Text != "system rules" {
		t.Fatalf("system = %#v, want single system block", params.System)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("messages count = %d, want 2 (blank content dropped)", len(params.Messages))
	}
	if got := params.Messages[0].Role; got != anthropic.MessageParamRoleUser {
		t.Fatalf("messages[0].role = %s, want user", got)
	}
	if got := params.Messages[1].Role; got != anthropic.MessageParamRoleAssistant {
		t.Fatalf("messages[1].role = %s, want assistant", got)
	}
	if params.MaxTokens != 1024 {
		t.Fatalf("max_tokens = %d, want 1024", params.MaxTokens)
	}
}
