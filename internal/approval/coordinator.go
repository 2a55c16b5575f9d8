package approval

import (
	"context"
	"os"
	"runtime"
	"strconv"

	"github.com/google/uuid"

	"github.com/syllogismos/codex/internal/confirm"
	"github.com/syllogismos/codex/internal/events"
	"github.com/syllogismos/codex/internal/logger"
	"github.com/syllogismos/codex/internal/policy"
	"github.com/syllogismos/codex/internal/runner"
	"github.com/syllogismos/codex/internal/safety"
	"github.com/syllogismos/codex/internal/sandbox"
)

var log = logger.Named("approval")

// Config carries the engine-level execution settings. Runner is forwarded
// to the execution backend without interpretation here.
type Config struct {
	// AskOnSandboxFailure 控制沙箱内执行失败后是否升级询问“脱沙箱重试”。
	AskOnSandboxFailure bool
	Runner              runner.Config
	// Model 和 Instructions 是透传字段：协调器原样携带，既不读也不改。
	Model        string
	Instructions string
}

// Session 是一个 agent 会话在多条提议之间共享的状态：审批模式、
// 白名单 memo、确认通道与执行配置。memo 以引用传入，跨并发提议共享。
type Session struct {
	Mode               policy.ApprovalMode
	Config             Config
	ExtraWritableRoots []string
	Memo               *Memo
	Channel            confirm.Channel
}

// Coordinator 串起一条提议的完整审批流程：评估、升级、执行、重试。
// 它自身不做任何平台或危险性判断，全部通过注入的端口完成。
type Coordinator struct {
	assessor safety.Assessor
	selector *sandbox.Selector
	commands runner.CommandRunner
	patches  runner.PatchRunner
	bus      *events.Bus
}

// CoordinatorOptions 配置协调器的端口。未设置的端口使用本地默认实现。
type CoordinatorOptions struct {
	Assessor safety.Assessor
	Selector *sandbox.Selector
	Commands runner.CommandRunner
	Patches  runner.PatchRunner
	Bus      *events.Bus
}

// NewCoordinator 构造协调器。
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{
		assessor: opts.Assessor,
		selector: opts.Selector,
		commands: opts.Commands,
		patches:  opts.Patches,
		bus:      opts.Bus,
	}
	if c.assessor == nil {
		c.assessor = safety.NewAssessor(safety.Rules{})
	}
	if c.selector == nil {
		c.selector = sandbox.NewSelector(runtime.GOOS, nil)
	}
	if c.commands == nil {
		c.commands = runner.Local{}
	}
	if c.patches == nil {
		c.patches = runner.Local{}
	}
	return c
}

// plan 是一次执行尝试的参数：要不要沙箱、是命令还是补丁。
type plan struct {
	sandbox bool
	patch   *safety.PatchPayload
}

// HandleExecution 处理一条命令提议并返回最终结果。
//
// 除了 ctx 被取消之外不返回错误：策略拒绝、人工否决、执行失败都以
// CommandOutcome 数据的形式交还给调用方。
func (c *Coordinator) HandleExecution(ctx context.Context, req runner.Spec, session Session) (CommandOutcome, error) {
	requestID := uuid.NewString()
	command := req.Command

	c.publish(ctx, requestID, events.TypeProposal, command, map[string]string{"workdir": req.Workdir})

	req = c.resolveRequest(req, session)

	if session.Memo.IsApproved(command) {
		log.WithField("request_id", requestID).Info("command blanket-approved earlier, running without assessment")
		return c.execute(ctx, requestID, req, session, plan{})
	}

	verdict := c.assessor.Assess(command, req.Workdir, session.Mode, req.WritableRoots)
	c.publish(ctx, requestID, events.TypeVerdict, command, map[string]string{
		"verdict": verdict.Kind.String(),
		"reason":  verdict.Reason,
		"group":   verdict.Group,
	})

	switch verdict.Kind {
	case safety.VerdictAutoApprove:
		return c.execute(ctx, requestID, req, session, plan{sandbox: verdict.RunInSandbox, patch: verdict.Patch})
	case safety.VerdictAskUser:
		return c.escalate(ctx, requestID, req, session, verdict.Patch)
	default:
		if verdict.Kind != safety.VerdictReject {
			log.WithField("kind", int(verdict.Kind)).Error("assessor returned an impossible verdict, treating as reject")
		}
		if verdict.Patch != nil {
			log.Warn("reject verdict carries a patch payload, dropping it")
		}
		out := rejectedOutcome()
		c.publishOutcome(ctx, requestID, command, "rejected", out)
		return out, nil
	}
}

// escalate 把提议交给确认通道，并按用户决定继续或中止。
func (c *Coordinator) escalate(ctx context.Context, requestID string, req runner.Spec, session Session, patch *safety.PatchPayload) (CommandOutcome, error) {
	decision, err := c.confirmDecision(ctx, requestID, req.Command, patch, session)
	if err != nil {
		return CommandOutcome{}, err
	}
	switch decision.Kind {
	case confirm.DecisionApprove, confirm.DecisionAlwaysApprove:
		if decision.Kind == confirm.DecisionAlwaysApprove {
			session.Memo.Record(req.Command)
			log.WithField("request_id", requestID).Info("command added to the session always-approve memo")
		}
		// 人工亲自放行的命令不再进沙箱。
		return c.execute(ctx, requestID, req, session, plan{patch: patch})
	default:
		out := deniedOutcome(decision)
		c.publishOutcome(ctx, requestID, req.Command, "denied", out)
		return out, nil
	}
}

// execute 选择后端、跑一次，并在满足条件时走沙箱失败重试。
func (c *Coordinator) execute(ctx context.Context, requestID string, req runner.Spec, session Session, p plan) (CommandOutcome, error) {
	backend, fallback := c.selector.Pick(ctx, p.sandbox)

	attempt, err := c.attempt(ctx, requestID, req, session, p, backend, fallback)
	if err != nil {
		return CommandOutcome{}, err
	}

	// 补丁从不进沙箱，因此也没有沙箱失败重试一说。
	sandboxed := p.patch == nil && backend.Sandboxed()
	if sandboxed && attempt.ExitCode != 0 && session.Config.AskOnSandboxFailure {
		return c.retry(ctx, requestID, req, session, attempt)
	}

	out := interpretOutcome(attempt)
	c.publishOutcome(ctx, requestID, req.Command, "completed", out)
	return out, nil
}

// retry 处理沙箱内失败后的一次性升级：用户放行则脱沙箱重跑一次，
// 第二次执行无论成败都是最终结果；用户否决则丢弃第一次的输出。
func (c *Coordinator) retry(ctx context.Context, requestID string, req runner.Spec, session Session, failed runner.Outcome) (CommandOutcome, error) {
	c.publish(ctx, requestID, events.TypeRetryPrompt, req.Command, map[string]string{
		"exit_code": strconv.Itoa(failed.ExitCode),
	})
	log.WithFields(logger.Fields{
		"request_id": requestID,
		"exit_code":  failed.ExitCode,
	}).Info("sandboxed run failed, asking about an unsandboxed retry")

	decision, err := c.confirmDecision(ctx, requestID, req.Command, nil, session)
	if err != nil {
		return CommandOutcome{}, err
	}
	if decision.Kind.Denied() {
		out := deniedOutcome(decision)
		c.publishOutcome(ctx, requestID, req.Command, "denied", out)
		return out, nil
	}
	// AlwaysApprove 在重试路径上不落白名单：首判并不是 ask-user。
	attempt, err := c.attempt(ctx, requestID, req, session, plan{}, sandbox.BackendNone, "")
	if err != nil {
		return CommandOutcome{}, err
	}
	out := interpretOutcome(attempt)
	c.publishOutcome(ctx, requestID, req.Command, "completed", out)
	return out, nil
}

// attempt 执行一次命令或补丁。取消之外的失败都折叠成 Outcome 数据。
func (c *Coordinator) attempt(ctx context.Context, requestID string, req runner.Spec, session Session, p plan, backend sandbox.Backend, fallback string) (runner.Outcome, error) {
	fields := map[string]string{"backend": backend.String()}
	if fallback != "" {
		fields["sandbox_fallback"] = fallback
	}
	if p.patch != nil {
		fields["patch"] = "true"
	}
	c.publish(ctx, requestID, events.TypeExecStarted, req.Command, fields)

	var out runner.Outcome
	var err error
	if p.patch != nil {
		out, err = c.patches.Apply(ctx, p.patch.Body, req.Workdir)
	} else {
		out, err = c.commands.Run(ctx, req, backend, session.Config.Runner)
	}
	if err != nil {
		log.WithField("request_id", requestID).WithError(err).Warn("execution cancelled")
		return runner.Outcome{}, err
	}
	c.publish(ctx, requestID, events.TypeExecFinished, req.Command, map[string]string{
		"backend":   backend.String(),
		"exit_code": strconv.Itoa(out.ExitCode),
	})
	return out, nil
}

func (c *Coordinator) confirmDecision(ctx context.Context, requestID string, command []string, patch *safety.PatchPayload, session Session) (confirm.Decision, error) {
	if session.Channel == nil {
		log.WithField("request_id", requestID).Warn("no confirmation channel configured, denying escalated command")
		return confirm.Decision{Kind: confirm.DecisionDenyAndStop}, nil
	}
	c.publish(ctx, requestID, events.TypeEscalated, command, map[string]string{
		"patch": strconv.FormatBool(patch != nil),
	})
	decision, err := session.Channel.Confirm(ctx, command, patch)
	if err != nil {
		return confirm.Decision{}, err
	}
	c.publish(ctx, requestID, events.TypeDecision, command, map[string]string{
		"decision": decision.Kind.String(),
	})
	return decision, nil
}

// resolveRequest 落实工作目录并合并可写根。声明目录不可达时回退到
// 进程当前目录，同时把它并入可写根；这是降级，不是错误。
func (c *Coordinator) resolveRequest(req runner.Spec, session Session) runner.Spec {
	roots := append([]string{}, req.WritableRoots...)
	roots = append(roots, session.ExtraWritableRoots...)

	if !dirAccessible(req.Workdir) {
		if cwd, err := os.Getwd(); err == nil && cwd != "" {
			log.WithFields(logger.Fields{
				"declared": req.Workdir,
				"fallback": cwd,
			}).Info("workdir inaccessible, falling back to process cwd")
			req.Workdir = cwd
			roots = append(roots, cwd)
		}
	}
	req.WritableRoots = sandbox.CleanRoots(roots)
	return req
}

func dirAccessible(dir string) bool {
	if dir == "" {
		return false
	}
	st, err := os.Stat(dir)
	return err == nil && st.IsDir()
}

func (c *Coordinator) publish(ctx context.Context, requestID string, t events.Type, command []string, fields map[string]string) {
	if c.bus == nil {
		return
	}
	_ = c.bus.Publish(ctx, events.New(requestID, t, command, fields))
}

func (c *Coordinator) publishOutcome(ctx context.Context, requestID string, command []string, result string, out CommandOutcome) {
	fields := map[string]string{"result": result}
	if code, ok := out.Metadata["exit_code"].(int); ok {
		fields["exit_code"] = strconv.Itoa(code)
	}
	c.publish(ctx, requestID, events.TypeOutcome, command, fields)
	log.WithFields(logger.Fields{"request_id": requestID, "result": result}).Info("proposal resolved")
}
