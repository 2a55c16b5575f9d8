package tui

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/syllogismos/codex/internal/confirm"
	"github.com/syllogismos/codex/internal/logger"
	"github.com/syllogismos/codex/internal/review"
	"github.com/syllogismos/codex/internal/safety"
)

// Prompt 是交互终端上的确认通道：每次升级弹一个 Bubble Tea 界面，
// 等人按键后返回决定。
type Prompt struct {
	Workdir  string
	Reviewer review.Reviewer // 可选，后台异步生成风险评估
}

var _ confirm.Channel = (*Prompt)(nil)

// Confirm blocks until the human decides or ctx is cancelled.
func (p *Prompt) Confirm(ctx context.Context, command []string, patch *safety.PatchPayload) (confirm.Decision, error) {
	if err := ctx.Err(); err != nil {
		return confirm.Decision{}, err
	}

	// stdout 留给命令结果和 JSONL，界面一律画在 stderr 上。
	program := tea.NewProgram(newConfirmModel(command, patch, p.Reviewer != nil), tea.WithOutput(os.Stderr))

	if p.Reviewer != nil {
		go func() {
			rev, err := p.Reviewer.Review(ctx, p.Workdir, command)
			program.Send(reviewDoneMsg{review: rev, err: err})
		}()
	}

	// ctx 取消时收掉界面，Run 返回后统一以 ctx.Err() 为准。
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			program.Quit()
		case <-done:
		}
	}()

	out, err := program.Run()
	if cerr := ctx.Err(); cerr != nil {
		return confirm.Decision{}, cerr
	}
	if err != nil {
		return confirm.Decision{}, err
	}
	m, ok := out.(*confirmModel)
	if !ok {
		return confirm.Decision{}, errors.New("unexpected confirm model")
	}
	if !m.decided {
		// ctrl+c 之类直接关掉界面，按最保守的拒绝并停止处理。
		logger.Named("tui").Warn("confirm closed without a decision, treating as deny")
		return confirm.Decision{Kind: confirm.DecisionDenyAndStop}, nil
	}
	return m.decision, nil
}
