package safety

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRules_MissingFileIsFine(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "nope.yaml")} {
		rules, err := LoadRules(path)
		if err != nil {
			t.Fatalf("LoadRules(%q): %v", path, err)
		}
		if len(rules.Allow) != 0 || len(rules.Deny) != 0 {
			t.Fatalf("LoadRules(%q) = %+v, want zero rules", path, rules)
		}
	}
}

func TestLoadRules_ParsesAllowAndDeny(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := `allow:
  - argv: [make, test]
    reason: project test target
deny:
  - argv: [git, push]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rule, ok := rules.allowMatch([]string{"make", "test", "-j2"}); !ok || rule.Reason != "project test target" {
		t.Fatalf("allowMatch = %+v, %v", rule, ok)
	}
	if _, ok := rules.allowMatch([]string{"make"}); ok {
		t.Fatal("bare make must not match the longer allow prefix")
	}
	if _, ok := rules.denyMatch([]string{"git", "push", "--force"}); !ok {
		t.Fatal("denyMatch missed git push")
	}
	if _, ok := rules.denyMatch([]string{"git", "pull"}); ok {
		t.Fatal("denyMatch matched an unrelated subcommand")
	}
}

func TestLoadRules_RejectsEmptyArgv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("allow:\n  - reason: oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatal("LoadRules accepted a rule without argv")
	}
}

func TestLoadRules_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("allow: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatal("LoadRules accepted malformed YAML")
	}
}
