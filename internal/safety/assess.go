package safety

import (
	"regexp"
	"strings"

	"github.com/syllogismos/codex/internal/policy"
)

// Assessor decides what may happen to a proposed command. Implementations
// must be pure: no I/O, no clock, identical inputs always produce the same
// verdict, and every syntactically possible input yields some verdict
// rather than a panic.
type Assessor interface {
	Assess(command []string, workdir string, mode policy.ApprovalMode, writableRoots []string) Verdict
}

// RuleAssessor is the built-in assessment table. The table is deliberately
// small: a hard denylist, a known-safe read-only set, shell-script
// decomposition, and mode-dependent defaults. Site-specific additions come
// in through Extra rather than by growing this file.
type RuleAssessor struct {
	Extra Rules
}

// NewAssessor returns a RuleAssessor with the given extra rules merged in.
func NewAssessor(extra Rules) *RuleAssessor {
	return &RuleAssessor{Extra: extra}
}

const (
	groupBlocked  = "Blocked"
	groupInvalid  = "Invalid"
	groupRunning  = "Running commands"
	groupEditing  = "Editing files"
	groupPatchTok = "apply_patch"
)

// Assess implements Assessor. Workdir and writableRoots are part of the
// contract so richer tables can use them; the built-in table decides on the
// argument vector alone.
func (a *RuleAssessor) Assess(command []string, workdir string, mode policy.ApprovalMode, writableRoots []string) Verdict {
	_, _ = workdir, writableRoots

	argv := trimArgv(command)
	if len(argv) == 0 {
		return Reject("empty command", groupInvalid)
	}

	if reason, ok := a.denied(argv); ok {
		return Reject(reason, groupBlocked)
	}

	if argv[0] == groupPatchTok {
		return a.assessPatch(argv, mode)
	}

	if reason, group, ok := a.knownSafe(argv); ok {
		return AutoApprove(reason, group, false)
	}

	if script, ok := shellScript(argv); ok {
		if v, done := a.assessScript(script, mode); done {
			return v
		}
	}

	if mode == policy.ModeFullAuto {
		return AutoApprove("Full auto mode", groupRunning, true)
	}
	return AskUser("Command not in the known-safe set", groupRunning)
}

// assessPatch handles the apply_patch pseudo-command: argv[1] carries the
// patch body.
func (a *RuleAssessor) assessPatch(argv []string, mode policy.ApprovalMode) Verdict {
	if len(argv) < 2 || strings.TrimSpace(argv[1]) == "" {
		return Reject("apply_patch requires a patch body", groupInvalid)
	}
	body := argv[1]
	switch mode {
	case policy.ModeAutoEdit, policy.ModeFullAuto:
		return AutoApprovePatch(body, "Edit files", groupEditing)
	default:
		return AskUserPatch(body, "Edit files", groupEditing)
	}
}

// assessScript decomposes a `bash -lc` style script. A denylisted segment
// rejects the whole script regardless of what surrounds it; auto-approval
// additionally needs every segment to be known-safe. Any other shape defers
// to the caller.
func (a *RuleAssessor) assessScript(script string, mode policy.ApprovalMode) (Verdict, bool) {
	// 命令替换无法静态判断，整段按未知处理。
	if strings.ContainsAny(script, "`") || strings.Contains(script, "$(") {
		return Verdict{}, false
	}
	segments := splitScript(script)
	if len(segments) == 0 {
		return Verdict{}, false
	}
	allSafe := true
	for _, seg := range segments {
		segArgv, ok := tokenize(seg)
		if !ok || len(segArgv) == 0 {
			allSafe = false
			continue
		}
		if reason, denied := a.denied(segArgv); denied {
			return Reject(reason, groupBlocked), true
		}
		if _, _, safe := a.knownSafe(segArgv); !safe {
			allSafe = false
		}
	}
	if !allSafe {
		return Verdict{}, false
	}
	return AutoApprove("Known-safe script", groupRunning, false), true
}

// denied reports whether argv hits the hard denylist or an extra deny rule.
func (a *RuleAssessor) denied(argv []string) (string, bool) {
	if rule, ok := a.Extra.denyMatch(argv); ok {
		reason := rule.Reason
		if reason == "" {
			reason = "blocked by deny rule"
		}
		return reason, true
	}

	name := argv[0]
	switch {
	case name == "shutdown", name == "reboot", name == "halt", name == "poweroff":
		return "host power control is never allowed", true
	case name == "mkfs" || strings.HasPrefix(name, "mkfs."):
		return "formatting filesystems is never allowed", true
	}
	if name == "rm" && hasRecursiveForce(argv[1:]) && targetsRoot(argv[1:]) {
		return "recursive delete of / is never allowed", true
	}
	if name == "dd" {
		for _, arg := range argv[1:] {
			if strings.HasPrefix(arg, "of=/dev/") {
				return "writing to raw devices is never allowed", true
			}
		}
	}
	if script, ok := shellScript(argv); ok {
		if strings.Contains(strings.ReplaceAll(script, " ", ""), ":(){") {
			return "fork bomb", true
		}
	}
	return "", false
}

// knownSafe reports whether argv is in the read-only safe table, returning
// the reporting reason and group.
func (a *RuleAssessor) knownSafe(argv []string) (string, string, bool) {
	if rule, ok := a.Extra.allowMatch(argv); ok {
		reason := rule.Reason
		if reason == "" {
			reason = "allowed by rule"
		}
		return reason, groupRunning, true
	}

	switch argv[0] {
	case "ls":
		return "List directory", "Searching", true
	case "pwd":
		return "Print working directory", "Navigating", true
	case "cat", "head", "tail", "nl", "wc":
		return "View file", "Reading files", true
	case "rg", "grep", "egrep", "fgrep":
		return "Search text", "Searching", true
	case "which", "type":
		return "Locate command", "Searching", true
	case "echo", "printf":
		return "Print text", "Printing", true
	case "true", "false":
		return "No-op", "Utility", true
	case "date", "uname", "nproc", "id", "whoami", "uptime", "hostname":
		return "Host info", "Utility", true
	case "stat", "file", "du", "df", "basename", "dirname", "readlink", "realpath":
		return "Inspect path", "Reading files", true
	case "env":
		if len(argv) == 1 {
			return "Show environment", "Utility", true
		}
	case "find":
		if findIsReadOnly(argv[1:]) {
			return "Find files", "Searching", true
		}
	case "git":
		if len(argv) >= 2 {
			switch argv[1] {
			case "status", "diff", "log", "show", "rev-parse":
				return "Git " + argv[1], "Versioning", true
			}
		}
	case "sed":
		if isSedPrintOnly(argv[1:]) {
			return "View file range", "Reading files", true
		}
	}
	return "", "", false
}

var sedPrintExpr = regexp.MustCompile(`^(\d+,)?(\d+|\$)p$`)

// isSedPrintOnly admits only the `sed -n <range>p [file]` shape.
func isSedPrintOnly(args []string) bool {
	if len(args) < 2 || len(args) > 3 {
		return false
	}
	return args[0] == "-n" && sedPrintExpr.MatchString(args[1])
}

// findIsReadOnly rejects find invocations that can mutate or execute.
func findIsReadOnly(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-delete", "-exec", "-execdir", "-ok", "-okdir":
			return false
		}
		if strings.HasPrefix(arg, "-fprint") {
			return false
		}
	}
	return true
}

func hasRecursiveForce(args []string) bool {
	recursive, force := false, false
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") || len(arg) < 2 {
			continue
		}
		for _, ch := range arg[1:] {
			switch ch {
			case 'r', 'R':
				recursive = true
			case 'f':
				force = true
			}
		}
	}
	return recursive && force
}

func targetsRoot(args []string) bool {
	for _, arg := range args {
		if arg == "/" || arg == "/*" {
			return true
		}
	}
	return false
}

// shellScript unwraps `bash -lc <script>` (and close variants) into the
// script body.
func shellScript(argv []string) (string, bool) {
	if len(argv) != 3 {
		return "", false
	}
	switch argv[0] {
	case "bash", "sh", "zsh":
	default:
		return "", false
	}
	switch argv[1] {
	case "-c", "-lc", "-cl":
		return argv[2], true
	}
	return "", false
}

func trimArgv(command []string) []string {
	out := make([]string, 0, len(command))
	for _, arg := range command {
		out = append(out, arg)
	}
	for len(out) > 0 && strings.TrimSpace(out[0]) == "" {
		out = out[1:]
	}
	return out
}
