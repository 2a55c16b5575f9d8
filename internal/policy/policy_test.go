package policy

import "testing"

func TestParse_KnownModes(t *testing.T) {
	cases := map[string]ApprovalMode{
		"suggest":    ModeSuggest,
		"auto-edit":  ModeAutoEdit,
		"full-auto":  ModeFullAuto,
		" FULL-AUTO": ModeFullAuto,
		"":           ModeSuggest,
	}
	for raw, want := range cases {
		got, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParse_UnknownFallsBackConservative(t *testing.T) {
	got, err := Parse("yolo")
	if err == nil {
		t.Fatalf("Parse(yolo): expected error")
	}
	if got != ModeSuggest {
		t.Fatalf("Parse(yolo) = %q, want fallback to %q", got, ModeSuggest)
	}
}
