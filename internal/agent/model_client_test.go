package agent

import "testing"

func TestToLLMMessages(t *testing.T) {
	got := ToLLMMessages([]Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "hi"},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Role != "system" || got[0].Content != "rules" {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[1].Role != "user" || got[1].Content != "hi" {
		t.Fatalf("got[1] = %+v", got[1])
	}
}
