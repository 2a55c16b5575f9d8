package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/syllogismos/codex/internal/agent"
	anthropicmodel "github.com/syllogismos/codex/internal/agent/anthropic"
	openaimodel "github.com/syllogismos/codex/internal/agent/openai"
	"github.com/syllogismos/codex/internal/approval"
	"github.com/syllogismos/codex/internal/auth"
	"github.com/syllogismos/codex/internal/config"
	"github.com/syllogismos/codex/internal/confirm"
	"github.com/syllogismos/codex/internal/events"
	"github.com/syllogismos/codex/internal/instructions"
	"github.com/syllogismos/codex/internal/logger"
	"github.com/syllogismos/codex/internal/policy"
	"github.com/syllogismos/codex/internal/review"
	"github.com/syllogismos/codex/internal/runner"
	"github.com/syllogismos/codex/internal/safety"
	"github.com/syllogismos/codex/internal/sandbox"
	"github.com/syllogismos/codex/internal/tui"
)

// jsonEvent 是 --json 模式下每行生命周期事件的形状。
type jsonEvent struct {
	Type      string            `json:"type"`
	ID        string            `json:"id"`
	RequestID string            `json:"request_id,omitempty"`
	Command   []string          `json:"command,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Time      time.Time         `json:"time"`
}

// jsonOutcome 是 --json 模式下每条提议的最终结果行。
type jsonOutcome struct {
	Type    string                  `json:"type"`
	Index   int                     `json:"index,omitempty"`
	Command []string                `json:"command"`
	Outcome approval.CommandOutcome `json:"outcome"`
}

var encodeMu sync.Mutex

func encode(v any) {
	encodeMu.Lock()
	defer encodeMu.Unlock()
	data, _ := json.Marshal(v)
	fmt.Println(string(data))
}

func execMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	var cfgPath string
	var workdir string
	var addDirs stringSlice
	var configOverrides stringSlice
	var runCmd string
	var patchPath string
	var proposalsPath string
	var jobs int
	var approvalMode string
	var fullAuto bool
	var autoApprove bool
	var autoDeny bool
	var jsonOutput bool
	var timeoutSecs int

	fs.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.codex/config.toml)")
	fs.StringVar(&workdir, "cd", "", "Working directory for the command")
	fs.StringVar(&workdir, "C", "", "Alias for --cd")
	fs.Var(&addDirs, "add-dir", "Additional writable root (repeatable)")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	fs.StringVar(&runCmd, "run", "", "Shell snippet to propose (runs as bash -lc)")
	fs.StringVar(&patchPath, "patch", "", "Unified diff file to propose as a file change")
	fs.StringVar(&proposalsPath, "proposals", "", "JSONL proposals file, - for stdin (needs --auto-approve or --auto-deny)")
	fs.IntVar(&jobs, "jobs", 4, "Max concurrent proposals for --proposals")
	fs.StringVar(&approvalMode, "approval-mode", "", "Approval mode (suggest|auto-edit|full-auto)")
	fs.BoolVar(&fullAuto, "full-auto", false, "Shorthand for --approval-mode full-auto")
	fs.BoolVar(&autoApprove, "auto-approve", false, "Answer every escalation with approve")
	fs.BoolVar(&autoDeny, "auto-deny", false, "Answer every escalation with deny and stop")
	fs.BoolVar(&jsonOutput, "json", false, "Print lifecycle events and outcomes as JSONL on stdout")
	fs.IntVar(&timeoutSecs, "timeout", 0, "Per-command timeout in seconds")

	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse exec args: %v", err)
	}
	configOverrides = stringSlice(prependOverrides(root.overrides, []string(configOverrides)))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg = config.ApplyKVOverrides(cfg, []string(configOverrides))
	// flag 覆盖 config；显式 --approval-mode 又覆盖 --full-auto。
	if fullAuto {
		cfg.ApprovalMode = policy.ModeFullAuto.String()
	}
	if approvalMode != "" {
		cfg.ApprovalMode = approvalMode
	}
	if timeoutSecs > 0 {
		cfg.TimeoutSeconds = timeoutSecs
	}
	mode, err := policy.Parse(cfg.ApprovalMode)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.LogPath != "" {
		if closer, _, err := logger.SetupFile(cfg.LogPath); err != nil {
			log.Warnf("failed to open log file %s: %v", cfg.LogPath, err)
		} else {
			defer closer.Close()
		}
	}

	if autoApprove && autoDeny {
		log.Fatalf("--auto-approve and --auto-deny are mutually exclusive")
	}
	interactive := !autoApprove && !autoDeny

	rest := fs.Args()
	sources := 0
	if runCmd != "" {
		sources++
	}
	if patchPath != "" {
		sources++
	}
	if len(rest) > 0 {
		sources++
	}
	if proposalsPath != "" {
		if sources > 0 {
			log.Fatalf("--proposals cannot be combined with --run, --patch or a positional command")
		}
		if interactive {
			log.Fatalf("--proposals needs --auto-approve or --auto-deny")
		}
	} else {
		if sources == 0 {
			log.Fatalf("nothing to do: pass --run, --patch, --proposals or a positional command")
		}
		if sources > 1 {
			log.Fatalf("pass exactly one of --run, --patch or a positional command")
		}
	}

	workdir = resolveWorkdir(workdir)
	if strings.TrimSpace(cfg.Instructions) == "" {
		cfg.Instructions = instructions.Discover(workdir)
	}

	rules, err := safety.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Fatalf("load safety rules: %v", err)
	}

	bus := events.NewBus(0)
	defer bus.Close()
	bus.SetLogger(logger.Named("events"))

	coord := approval.NewCoordinator(approval.CoordinatorOptions{
		Assessor: safety.NewAssessor(rules),
		Selector: sandbox.NewSelector(runtime.GOOS, sandbox.OSProbe{}),
		Bus:      bus,
	})

	session := approval.Session{
		Mode: mode,
		Config: approval.Config{
			AskOnSandboxFailure: cfg.AskOnSandboxFailure,
			Model:               cfg.Model,
			Instructions:        cfg.Instructions,
			Runner: runner.Config{
				TTY:            cfg.TTY,
				MaxOutputBytes: cfg.MaxOutputBytes,
			},
		},
		ExtraWritableRoots: append(append([]string{}, cfg.WritableRoots...), addDirs...),
		Memo:               approval.NewMemo(),
		Channel:            buildChannel(cfg, workdir, autoApprove, autoDeny),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 事件流：--json 打成 JSONL，默认模式在 stderr 上给人看。
	sub := bus.Subscribe()
	forwarderDone := make(chan struct{})
	go func() {
		defer close(forwarderDone)
		for ev := range sub {
			if jsonOutput {
				encode(busEventJSON(ev))
				continue
			}
			emitHuman(ev)
		}
	}()
	drain := func() {
		bus.Close()
		<-forwarderDone
	}

	baseSpec := runner.Spec{
		Workdir: workdir,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	if proposalsPath != "" {
		runBatch(ctx, coord, session, baseSpec, proposalsPath, jobs, jsonOutput)
		drain()
		return
	}

	command := rest
	if runCmd != "" {
		command = []string{"bash", "-lc", runCmd}
	}
	if patchPath != "" {
		data, err := os.ReadFile(patchPath)
		if err != nil {
			log.Fatalf("failed to read patch %s: %v", patchPath, err)
		}
		command = []string{"apply_patch", string(data)}
	}

	spec := baseSpec
	spec.Command = command
	outcome, err := coord.HandleExecution(ctx, spec, session)
	if err != nil {
		drain()
		log.Fatalf("execution cancelled: %v", err)
	}
	if jsonOutput {
		encode(jsonOutcome{Type: "outcome", Command: clipArgv(command), Outcome: outcome})
	} else {
		renderOutcome(outcome)
	}
	drain()
	if code := outcomeExitCode(outcome); code != 0 {
		os.Exit(code)
	}
}

// proposalLine 是 --proposals 文件里的一行。command/run/patch 三选一。
type proposalLine struct {
	Command        []string `json:"command,omitempty"`
	Run            string   `json:"run,omitempty"`
	Patch          string   `json:"patch,omitempty"`
	Workdir        string   `json:"workdir,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

func (p proposalLine) spec(base runner.Spec) (runner.Spec, error) {
	set := 0
	if len(p.Command) > 0 {
		set++
	}
	if strings.TrimSpace(p.Run) != "" {
		set++
	}
	if strings.TrimSpace(p.Patch) != "" {
		set++
	}
	if set != 1 {
		return runner.Spec{}, errors.New(`want exactly one of "command", "run" or "patch"`)
	}
	spec := base
	switch {
	case len(p.Command) > 0:
		spec.Command = p.Command
	case strings.TrimSpace(p.Run) != "":
		spec.Command = []string{"bash", "-lc", p.Run}
	default:
		spec.Command = []string{"apply_patch", p.Patch}
	}
	if p.Workdir != "" {
		spec = spec.WithWorkdir(p.Workdir)
	}
	if p.TimeoutSeconds > 0 {
		spec.Timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}
	return spec, nil
}

func readProposals(path string) ([]proposalLine, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var lines []proposalLine
	scanner := bufio.NewScanner(r)
	// 补丁体可能很大，默认的 64K 行缓冲不够用。
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		var p proposalLine
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		lines = append(lines, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// runBatch 以有限并发跑完一个提议文件。所有提议共享同一个 session，
// 包括白名单 memo。单条失败是数据；只有取消会中断整批。
func runBatch(ctx context.Context, coord *approval.Coordinator, session approval.Session, base runner.Spec, path string, jobs int, jsonOutput bool) {
	proposals, err := readProposals(path)
	if err != nil {
		log.Fatalf("read proposals: %v", err)
	}
	if len(proposals) == 0 {
		log.Warnf("no proposals found in %s", path)
		return
	}
	if jobs <= 0 {
		jobs = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, p := range proposals {
		i, p := i, p
		g.Go(func() error {
			spec, err := p.spec(base)
			if err != nil {
				log.Warnf("proposal %d skipped: %v", i+1, err)
				return nil
			}
			outcome, err := coord.HandleExecution(gctx, spec, session)
			if err != nil {
				return fmt.Errorf("proposal %d: %w", i+1, err)
			}
			if jsonOutput {
				encode(jsonOutcome{Type: "outcome", Index: i + 1, Command: clipArgv(spec.Command), Outcome: outcome})
			} else {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", i+1, len(proposals), summarizeOutcome(spec.Command, outcome))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("batch aborted: %v", err)
	}
}

func summarizeOutcome(command []string, out approval.CommandOutcome) string {
	head := strings.Join(command, " ")
	if len(command) > 0 && command[0] == "apply_patch" {
		head = "apply_patch"
	}
	if utf8.RuneCountInString(head) > 60 {
		head = string([]rune(head)[:57]) + "..."
	}
	status := "ok"
	if len(out.AdditionalItems) > 0 {
		status = "denied"
	}
	if out.Metadata != nil {
		if _, ok := out.Metadata["error"]; ok {
			status = "rejected"
		} else if code, ok := out.Metadata["exit_code"].(int); ok {
			status = fmt.Sprintf("exit %d", code)
		}
	}
	return fmt.Sprintf("%s: %s", status, head)
}

const maxEventArgChars = 200

// clipArgv 截断超长参数（典型是 apply_patch 的补丁体）。事件和结果行
// 是观测流，不需要完整 payload。
func clipArgv(command []string) []string {
	out := make([]string, len(command))
	for i, arg := range command {
		runes := []rune(arg)
		if len(runes) > maxEventArgChars {
			arg = string(runes[:maxEventArgChars]) + "…"
		}
		out[i] = arg
	}
	return out
}

func busEventJSON(ev events.Event) jsonEvent {
	return jsonEvent{
		Type:      string(ev.Type),
		ID:        ev.ID,
		RequestID: ev.RequestID,
		Command:   clipArgv(ev.Command),
		Fields:    ev.Fields,
		Time:      ev.Time,
	}
}

func emitHuman(ev events.Event) {
	switch ev.Type {
	case events.TypeVerdict:
		fmt.Fprintf(os.Stderr, "[verdict] %s: %s\n", ev.Fields["verdict"], ev.Fields["reason"])
	case events.TypeEscalated:
		fmt.Fprintln(os.Stderr, "[approval] waiting for a decision")
	case events.TypeDecision:
		fmt.Fprintf(os.Stderr, "[approval] %s\n", ev.Fields["decision"])
	case events.TypeExecStarted:
		line := fmt.Sprintf("[exec] %s backend=%s", strings.Join(clipArgv(ev.Command), " "), ev.Fields["backend"])
		if fb := ev.Fields["sandbox_fallback"]; fb != "" {
			line += " fallback=" + fb
		}
		fmt.Fprintln(os.Stderr, line)
	case events.TypeExecFinished:
		fmt.Fprintf(os.Stderr, "[exec] finished exit_code=%s\n", ev.Fields["exit_code"])
	case events.TypeRetryPrompt:
		fmt.Fprintf(os.Stderr, "[retry] sandboxed run failed (exit %s), asking to rerun without sandbox\n", ev.Fields["exit_code"])
	}
}

func renderOutcome(out approval.CommandOutcome) {
	for _, item := range out.AdditionalItems {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", item.Role, item.Content)
	}
	if out.Metadata != nil {
		if reason, ok := out.Metadata["reason"].(string); ok {
			fmt.Fprintf(os.Stderr, "error: %s\n", reason)
		}
	}
	text := out.OutputText
	if text == "" {
		return
	}
	fmt.Fprint(os.Stdout, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(os.Stdout)
	}
}

// outcomeExitCode 把结果映射到进程退出码：执行失败照搬命令的退出码，
// 策略拒绝是 1，其余（包括人工拒绝）是 0。
func outcomeExitCode(out approval.CommandOutcome) int {
	if out.Metadata == nil {
		return 0
	}
	if code, ok := out.Metadata["exit_code"].(int); ok {
		return code
	}
	if _, ok := out.Metadata["error"]; ok {
		return 1
	}
	return 0
}

func buildChannel(cfg config.Config, workdir string, autoApprove, autoDeny bool) confirm.Channel {
	switch {
	case autoApprove:
		return confirm.ApproveAll()
	case autoDeny:
		return confirm.DenyAll()
	}
	prompt := &tui.Prompt{Workdir: workdir}
	client, err := buildModelClient(cfg)
	if err != nil {
		log.Warnf("risk review disabled: %v", err)
	} else {
		prompt.Reviewer = review.NewModelReviewer(client, cfg.Model)
	}
	return prompt
}

// buildModelClient 按 provider 构建评审用的模型客户端。
func buildModelClient(cfg config.Config) (agent.ModelClient, error) {
	token := resolveToken(cfg)
	if token == "" {
		return nil, errors.New("no token in config, env or ~/.codex/auth.json")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		return openaimodel.New(openaimodel.Options{APIKey: token, BaseURL: cfg.URL, Model: cfg.Model})
	default:
		return anthropicmodel.New(anthropicmodel.Options{Token: token, BaseURL: cfg.URL, Model: cfg.Model})
	}
}

// resolveToken 先看 config/env，再落到 codex login 存的凭证。
func resolveToken(cfg config.Config) string {
	if tok := strings.TrimSpace(cfg.Token); tok != "" {
		return tok
	}
	tok, err := auth.LoadToken()
	if err != nil {
		log.Warnf("failed to read saved credentials: %v", err)
		return ""
	}
	return strings.TrimSpace(tok)
}

func resolveWorkdir(input string) string {
	if strings.TrimSpace(input) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		return wd
	}
	if filepath.IsAbs(input) {
		return input
	}
	wd, err := os.Getwd()
	if err != nil {
		return input
	}
	return filepath.Join(wd, input)
}
