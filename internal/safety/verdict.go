package safety

// VerdictKind is the closed set of assessment outcomes. Every switch over
// it must handle all three cases; there is no fourth.
type VerdictKind int

const (
	// VerdictAutoApprove runs the command without asking anyone.
	VerdictAutoApprove VerdictKind = iota
	// VerdictAskUser routes the command to the confirmation channel.
	VerdictAskUser
	// VerdictReject refuses the command outright. A rejected command never
	// reaches the confirmation channel or an execution backend.
	VerdictReject
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictAutoApprove:
		return "auto-approve"
	case VerdictAskUser:
		return "ask-user"
	case VerdictReject:
		return "reject"
	default:
		return "unknown"
	}
}

// PatchPayload marks a proposal as a file patch. Its presence on a verdict
// routes execution to the patch backend instead of generic command spawn.
type PatchPayload struct {
	Body string
}

// Verdict is the assessor's decision for one proposal.
//
// Kind selects the variant; RunInSandbox and Patch are only meaningful on
// an AutoApprove (Patch also on AskUser). Reason and Group are reporting
// labels and never drive control flow.
type Verdict struct {
	Kind         VerdictKind
	RunInSandbox bool
	Patch        *PatchPayload
	Reason       string
	Group        string
}

func AutoApprove(reason, group string, sandbox bool) Verdict {
	return Verdict{Kind: VerdictAutoApprove, RunInSandbox: sandbox, Reason: reason, Group: group}
}

func AutoApprovePatch(body, reason, group string) Verdict {
	return Verdict{Kind: VerdictAutoApprove, Patch: &PatchPayload{Body: body}, Reason: reason, Group: group}
}

func AskUser(reason, group string) Verdict {
	return Verdict{Kind: VerdictAskUser, Reason: reason, Group: group}
}

func AskUserPatch(body, reason, group string) Verdict {
	return Verdict{Kind: VerdictAskUser, Patch: &PatchPayload{Body: body}, Reason: reason, Group: group}
}

func Reject(reason, group string) Verdict {
	return Verdict{Kind: VerdictReject, Reason: reason, Group: group}
}
