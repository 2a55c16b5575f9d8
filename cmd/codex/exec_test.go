package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/syllogismos/codex/internal/approval"
	"github.com/syllogismos/codex/internal/runner"
)

func TestProposalLineSpec(t *testing.T) {
	base := runner.Spec{Workdir: "/base", Timeout: 5 * time.Second}

	spec, err := proposalLine{Command: []string{"ls", "-la"}}.spec(base)
	if err != nil {
		t.Fatalf("command line: %v", err)
	}
	if !reflect.DeepEqual(spec.Command, []string{"ls", "-la"}) || spec.Workdir != "/base" {
		t.Fatalf("spec = %+v", spec)
	}

	spec, err = proposalLine{Run: "make test"}.spec(base)
	if err != nil {
		t.Fatalf("run line: %v", err)
	}
	if !reflect.DeepEqual(spec.Command, []string{"bash", "-lc", "make test"}) {
		t.Fatalf("run spec = %+v", spec)
	}

	spec, err = proposalLine{Patch: "--- a/x\n+++ b/x\n"}.spec(base)
	if err != nil {
		t.Fatalf("patch line: %v", err)
	}
	if len(spec.Command) != 2 || spec.Command[0] != "apply_patch" {
		t.Fatalf("patch spec = %+v", spec)
	}

	spec, err = proposalLine{Run: "ls", Workdir: "/elsewhere", TimeoutSeconds: 1}.spec(base)
	if err != nil {
		t.Fatalf("override line: %v", err)
	}
	if spec.Workdir != "/elsewhere" || spec.Timeout != 1*time.Second {
		t.Fatalf("override spec = %+v", spec)
	}

	if _, err := (proposalLine{}).spec(base); err == nil {
		t.Fatal("empty proposal line must error")
	}
	if _, err := (proposalLine{Run: "ls", Patch: "x"}).spec(base); err == nil {
		t.Fatal("ambiguous proposal line must error")
	}
}

func TestReadProposals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.jsonl")
	content := `
# 注释和空行都跳过
{"run": "ls"}

{"command": ["git", "status"], "timeout_seconds": 3}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, err := readProposals(path)
	if err != nil {
		t.Fatalf("readProposals: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0].Run != "ls" || lines[1].TimeoutSeconds != 3 {
		t.Fatalf("parsed lines = %+v", lines)
	}
}

func TestReadProposals_BadLineReportsNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.jsonl")
	if err := os.WriteFile(path, []byte("{\"run\": \"ls\"}\n{broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := readProposals(path)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("err = %v, want line 2 mentioned", err)
	}
}

func TestSummarizeOutcome(t *testing.T) {
	cases := []struct {
		name    string
		command []string
		out     approval.CommandOutcome
		want    string
	}{
		{
			name:    "success",
			command: []string{"ls", "-la"},
			out:     approval.CommandOutcome{OutputText: "..."},
			want:    "ok: ls -la",
		},
		{
			name:    "failure",
			command: []string{"make"},
			out:     approval.CommandOutcome{Metadata: map[string]any{"exit_code": 2}},
			want:    "exit 2: make",
		},
		{
			name:    "rejected",
			command: []string{"rm", "-rf", "/"},
			out:     approval.CommandOutcome{Metadata: map[string]any{"error": "command rejected"}},
			want:    "rejected: rm -rf /",
		},
		{
			name:    "denied",
			command: []string{"git", "push"},
			out:     approval.CommandOutcome{AdditionalItems: []approval.Message{{Role: "user", Content: "no"}}},
			want:    "denied: git push",
		},
		{
			name:    "patch head collapsed",
			command: []string{"apply_patch", "--- a/x\n+++ b/x\n@@\n+hi"},
			out:     approval.CommandOutcome{},
			want:    "ok: apply_patch",
		},
	}
	for _, tc := range cases {
		if got := summarizeOutcome(tc.command, tc.out); got != tc.want {
			t.Fatalf("%s: summarizeOutcome = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSummarizeOutcome_TruncatesLongCommands(t *testing.T) {
	got := summarizeOutcome([]string{strings.Repeat("x", 100)}, approval.CommandOutcome{})
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("long head not truncated: %q", got)
	}
	if len(got) > len("ok: ")+60 {
		t.Fatalf("head too long after truncation: %q", got)
	}
}

func TestClipArgv(t *testing.T) {
	long := strings.Repeat("p", maxEventArgChars+50)
	got := clipArgv([]string{"apply_patch", long, "short"})
	if got[0] != "apply_patch" || got[2] != "short" {
		t.Fatalf("short args must pass through: %v", got[0])
	}
	if len([]rune(got[1])) != maxEventArgChars+1 || !strings.HasSuffix(got[1], "…") {
		t.Fatalf("long arg not clipped: %d runes", len([]rune(got[1])))
	}
}

func TestOutcomeExitCode(t *testing.T) {
	cases := []struct {
		out  approval.CommandOutcome
		want int
	}{
		{approval.CommandOutcome{OutputText: "ok"}, 0},
		{approval.CommandOutcome{Metadata: map[string]any{"exit_code": 7}}, 7},
		{approval.CommandOutcome{Metadata: map[string]any{"error": "command rejected"}}, 1},
		{approval.CommandOutcome{AdditionalItems: []approval.Message{{Content: "no"}}}, 0},
	}
	for _, tc := range cases {
		if got := outcomeExitCode(tc.out); got != tc.want {
			t.Fatalf("outcomeExitCode(%+v) = %d, want %d", tc.out, got, tc.want)
		}
	}
}

func TestExecCommand_BinaryRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping binary build in -short mode")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))
	if _, err := os.Stat(filepath.Join(repoRoot, "go.mod")); err != nil {
		t.Fatalf("missing go.mod at %s: %v", repoRoot, err)
	}

	tmp := t.TempDir()
	binPath := filepath.Join(tmp, "codex")
	build := exec.Command("go", "build", "-o", binPath, "./cmd/codex")
	build.Dir = repoRoot
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("go build error: %v\n%s", err, string(out))
	}

	var stdout, stderr bytes.Buffer
	run := exec.Command(binPath, "exec", "--json", "--auto-approve", "--run", "printf ok")
	run.Dir = tmp
	run.Env = append(os.Environ(), "HOME="+tmp)
	run.Stdout = &stdout
	run.Stderr = &stderr
	if err := run.Run(); err != nil {
		t.Fatalf("exec run error: %v\nstdout: %s\nstderr: %s", err, stdout.String(), stderr.String())
	}

	var outcome *jsonOutcome
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(line, `"type":"outcome"`) {
			continue
		}
		var o jsonOutcome
		if err := json.Unmarshal([]byte(line), &o); err != nil {
			t.Fatalf("bad outcome line %q: %v", line, err)
		}
		outcome = &o
	}
	if outcome == nil {
		t.Fatalf("no outcome line in output:\n%s", stdout.String())
	}
	if outcome.Outcome.OutputText != "ok" {
		t.Fatalf("output_text = %q, want ok", outcome.Outcome.OutputText)
	}
}
