package instructions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiscover_GlobalThenProjectChain(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.MkdirAll(filepath.Join(home, ".codex"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".codex", GlobalFilename), []byte("global rules"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := t.TempDir()
	sub := filepath.Join(repo, "pkg", "api")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, ProjectDocFilename), []byte("repo doc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, ProjectDocFilename), []byte("api doc"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := Discover(sub)
	for _, want := range []string{"global rules", "repo doc", "api doc"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Discover() = %q, missing %q", got, want)
		}
	}
	if strings.Index(got, "global rules") > strings.Index(got, "repo doc") {
		t.Fatalf("global doc must come first: %q", got)
	}
	if strings.Index(got, "repo doc") > strings.Index(got, "api doc") {
		t.Fatalf("outer doc must come before inner: %q", got)
	}
}

func TestDiscover_NothingFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if got := Discover(t.TempDir()); got != "" {
		t.Fatalf("Discover() = %q, want empty", got)
	}
}
