package events

import (
	"time"

	"github.com/google/uuid"
)

// Type 描述引擎生命周期事件的类型。
type Type string

const (
	// TypeProposal 表示收到一条待审的命令提议。
	TypeProposal Type = "proposal.received"
	// TypeVerdict 表示安全评估得出结论。
	TypeVerdict Type = "safety.verdict"
	// TypeEscalated 表示提议升级给人工确认。
	TypeEscalated Type = "approval.escalated"
	// TypeDecision 表示人工确认返回了决定。
	TypeDecision Type = "approval.decision"
	TypeExecStarted  Type = "exec.started"
	TypeExecFinished Type = "exec.finished"
	// TypeRetryPrompt 表示沙箱内执行失败后再次征求是否重试。
	TypeRetryPrompt Type = "exec.retry_prompt"
	// TypeOutcome 表示整个审批流程结束，结果可用。
	TypeOutcome Type = "outcome.ready"
)

// Event 是处理一条提议过程中的单条生命周期记录。Fields 携带
// 类型相关的附加信息（verdict、backend、exit_code 等）。
type Event struct {
	ID        string
	RequestID string
	Type      Type
	Time      time.Time
	Command   []string
	Fields    map[string]string
}

// New stamps a fresh event with a unique ID and the current time.
func New(requestID string, t Type, command []string, fields map[string]string) Event {
	return Event{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Type:      t,
		Time:      time.Now(),
		Command:   command,
		Fields:    fields,
	}
}
