package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/syllogismos/codex/internal/confirm"
	"github.com/syllogismos/codex/internal/review"
	"github.com/syllogismos/codex/internal/safety"
)

const maxPatchPreviewLines = 20

type reviewDoneMsg struct {
	review review.Review
	err    error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	hintStyle  = lipgloss.NewStyle().Bold(true)
	riskStyles = map[string]lipgloss.Style{
		"low":    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"medium": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"high":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

type confirmModel struct {
	command []string
	patch   *safety.PatchPayload
	width   int

	spin      spinner.Model
	reviewing bool
	review    review.Review
	reviewErr error

	// entering 为真时键盘输入进的是拒绝理由输入框。
	entering bool
	input    textarea.Model

	copied   bool
	decided  bool
	decision confirm.Decision
}

func newConfirmModel(command []string, patch *safety.PatchPayload, reviewing bool) *confirmModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	ti := textarea.New()
	ti.Placeholder = "Tell the agent why…"
	ti.Prompt = "› "
	ti.CharLimit = 0
	ti.SetWidth(76)
	ti.SetHeight(1) // 单行输入
	ti.ShowLineNumbers = false

	return &confirmModel{
		command:   command,
		patch:     patch,
		width:     80,
		spin:      spin,
		reviewing: reviewing,
		input:     ti,
	}
}

func (m *confirmModel) Init() tea.Cmd {
	if m.reviewing {
		return m.spin.Tick
	}
	return nil
}

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(maxInt(20, msg.Width-4))
		return m, nil
	case reviewDoneMsg:
		m.reviewing = false
		m.review = msg.review
		m.reviewErr = msg.err
		return m, nil
	case spinner.TickMsg:
		if !m.reviewing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.entering {
			return m.handleInputKey(msg)
		}
		return m.handleChoiceKey(msg)
	}
	return m, nil
}

func (m *confirmModel) handleChoiceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		return m.decide(confirm.Decision{Kind: confirm.DecisionApprove})
	case "a":
		return m.decide(confirm.Decision{Kind: confirm.DecisionAlwaysApprove})
	case "n":
		m.entering = true
		m.input.Reset()
		return m, m.input.Focus()
	case "esc", "q":
		return m.decide(confirm.Decision{Kind: confirm.DecisionDenyAndStop})
	case "c":
		// 复制失败不拦人，界面上不出现 copied 即是信号。
		if err := clipboard.WriteAll(commandLine(m.command)); err == nil {
			m.copied = true
		}
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *confirmModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		// 空理由也允许，上层会补默认话术。
		text := strings.TrimSpace(m.input.Value())
		return m.decide(confirm.Decision{Kind: confirm.DecisionDenyAndContinue, Message: text})
	case tea.KeyEsc:
		m.entering = false
		m.input.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *confirmModel) decide(d confirm.Decision) (tea.Model, tea.Cmd) {
	m.decided = true
	m.decision = d
	return m, tea.Quit
}

func (m *confirmModel) View() string {
	width := maxInt(40, m.width)
	contentWidth := width - 2

	lines := []string{titleStyle.Render("Approval required")}
	lines = append(lines, "", "Command:")
	lines = append(lines, indentLines(WrapText(commandLine(m.command), contentWidth-2))...)

	if m.patch != nil {
		lines = append(lines, "", "Patch:")
		lines = append(lines, patchPreview(m.patch.Body, maxPatchPreviewLines)...)
	}

	switch {
	case m.reviewing:
		lines = append(lines, "", m.spin.View()+"assessing risk…")
	case m.reviewErr != nil:
		lines = append(lines, "", "Risk: unavailable ("+m.reviewErr.Error()+")")
	case m.review.RiskLevel != "":
		style, ok := riskStyles[m.review.RiskLevel]
		if !ok {
			style = lipgloss.NewStyle()
		}
		lines = append(lines, "", "Risk: "+style.Render(m.review.RiskLevel))
		lines = append(lines, indentLines(WrapText(m.review.Description, contentWidth-2))...)
	}

	if m.entering {
		lines = append(lines, "", "Reason for denying (enter to send, esc to back out):")
		lines = append(lines, m.input.View())
	} else {
		hint := "[y] run • [a] always • [n] deny • [esc/q] stop • [c] copy"
		if m.copied {
			hint += "  (copied)"
		}
		lines = append(lines, "", hintStyle.Render(hint))
	}
	return lipgloss.NewStyle().Width(contentWidth).Render(strings.Join(lines, "\n"))
}

func patchPreview(body string, limit int) []string {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	truncated := false
	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
		truncated = true
	}
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		out = append(out, "  "+strings.TrimRight(line, "\r"))
	}
	if truncated {
		out = append(out, "  … (truncated)")
	}
	return out
}
