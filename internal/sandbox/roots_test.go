package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithinRoots(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "inside", "dir")
	if err := os.MkdirAll(inside, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !WithinRoots(inside, []string{root}) {
		t.Fatalf("expected %s inside %s", inside, root)
	}
	sibling := root + "-other"
	if WithinRoots(sibling, []string{root}) {
		t.Fatalf("unexpected match for sibling %s", sibling)
	}
	outside := filepath.Join(root, "..", "outside")
	if WithinRoots(outside, []string{inside}) {
		t.Fatalf("unexpected match for outside path %s", outside)
	}
	if !WithinRoots("/anything", nil) {
		t.Fatal("empty roots must allow everything")
	}
}

func TestCleanRoots(t *testing.T) {
	root := t.TempDir()
	got := CleanRoots([]string{root, "", "  ", root, filepath.Join(root, "x", "..")})
	if len(got) != 1 || got[0] != filepath.Clean(root) {
		t.Fatalf("CleanRoots = %v", got)
	}
}

func TestSeatbeltProfile(t *testing.T) {
	root := t.TempDir()
	profile := SeatbeltProfile([]string{root})
	for _, want := range []string{"(deny default)", "(deny network*)", "(allow file-read*)", `(subpath "` + filepath.Clean(root) + `")`} {
		if !strings.Contains(profile, want) {
			t.Fatalf("profile missing %q:\n%s", want, profile)
		}
	}

	bare := SeatbeltProfile(nil)
	if strings.Contains(bare, "file-write") {
		t.Fatalf("profile without roots must not allow writes:\n%s", bare)
	}
}

func TestSeatbeltArgv(t *testing.T) {
	argv := SeatbeltArgv([]string{"ls", "-la"}, nil)
	if argv[0] != "sandbox-exec" || argv[1] != "-p" {
		t.Fatalf("unexpected wrapper: %v", argv)
	}
	if argv[len(argv)-2] != "ls" || argv[len(argv)-1] != "-la" {
		t.Fatalf("command not preserved: %v", argv)
	}
}
