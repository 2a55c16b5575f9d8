package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePingConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunPing_OpenAIProvider(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-1",
			"model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "pong"},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	cfgPath := writePingConfig(t, `
model = "gpt-4o-mini"
provider = "openai"
url = "`+srv.URL+`"
token = "test-key"
`)

	var out bytes.Buffer
	if err := runPing(rootArgs{}, []string{"--config", cfgPath}, &out); err != nil {
		t.Fatalf("runPing: %v", err)
	}
	if !strings.Contains(out.String(), "ok: pong") {
		t.Fatalf("output = %q, want ok: pong", out.String())
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestRunPing_AnthropicProvider(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg-1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-3-5-haiku-latest",
			"content":     []map[string]any{{"type": "text", "text": "pong"}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("ANTHROPIC_AUTH_TOKEN", "")
	t.Setenv("ANTHROPIC_BASE_URL", "")
	// base url 故意带上 /v1，客户端应当消化掉。
	cfgPath := writePingConfig(t, `
provider = "anthropic"
url = "`+srv.URL+`/v1"
token = "test-key"
`)

	var out bytes.Buffer
	if err := runPing(rootArgs{}, []string{"--config", cfgPath}, &out); err != nil {
		t.Fatalf("runPing: %v", err)
	}
	if !strings.Contains(out.String(), "ok: pong") {
		t.Fatalf("output = %q, want ok: pong", out.String())
	}
	if gotKey != "test-key" {
		t.Fatalf("x-api-key header = %q", gotKey)
	}
}

func TestRunPing_MissingTokenFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "")
	t.Setenv("ANTHROPIC_BASE_URL", "")
	cfgPath := writePingConfig(t, "provider = \"anthropic\"\n")

	err := runPing(rootArgs{}, []string{"--config", cfgPath}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "missing token") {
		t.Fatalf("err = %v, want missing token", err)
	}
}

func TestRunPing_FlagOverridesBeatConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-2",
			"model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "pong"},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("ANTHROPIC_AUTH_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	// config 指向一个必然失败的 provider/url，全部用 flag 纠正。
	cfgPath := writePingConfig(t, `
provider = "anthropic"
url = "http://127.0.0.1:1"
token = "wrong"
`)

	var out bytes.Buffer
	args := []string{
		"--config", cfgPath,
		"--provider", "openai",
		"--model", "gpt-4o-mini",
		"--base-url", srv.URL,
		"--api-key", "flag-key",
	}
	if err := runPing(rootArgs{}, args, &out); err != nil {
		t.Fatalf("runPing: %v", err)
	}
	if !strings.Contains(out.String(), "ok: pong") {
		t.Fatalf("output = %q, want ok: pong", out.String())
	}
}
