package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"FundPulse/internal/analysis"
	"FundPulse/internal/holdings"
	"FundPulse/internal/model"
	"FundPulse/internal/notifier"
	"FundPulse/internal/recorder"
)

// Runner is the part of the orchestrator the scheduler drives.
type Runner interface {
	Start(ctx context.Context, req analysis.Request) (string, error)
	Phase() model.Phase
	Last() *model.AnalysisResult
}

// Sender delivers chat messages. It may be nil when Telegram is not configured.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler re-runs the analysis on a cron schedule, answers chat commands
// and delivers finished runs.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Holdings *holdings.Store
	Notifier Sender
	Recorder recorder.Recorder
	Logger   zerolog.Logger
	Ctx      context.Context
	Narrate  bool
	now      func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, store *holdings.Store, sender Sender, rec recorder.Recorder, logger zerolog.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Holdings: store,
		Notifier: sender,
		Recorder: rec,
		Logger:   logger,
		Ctx:      ctx,
		now:      time.Now,
	}
}

// RegisterAll registers the periodic analysis task. An empty expression
// disables it.
func (s *Scheduler) RegisterAll(analysisCron string) error {
	if analysisCron == "" {
		s.Logger.Info().Msg("periodic analysis disabled")
		return nil
	}
	if _, err := s.Cron.AddFunc(analysisCron, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

// RunNow starts an analysis over the current holdings.
func (s *Scheduler) RunNow() (string, error) {
	return s.Runner.Start(s.Ctx, s.request())
}

func (s *Scheduler) request() analysis.Request {
	return analysis.Request{
		Codes:    s.Holdings.Codes(),
		Window:   s.Holdings.Window(),
		Narrate:  s.Narrate,
		Holdings: s.Holdings.Holdings(),
	}
}

func (s *Scheduler) analysisTask() {
	s.Logger.Info().Msg("running scheduled analysis")
	if _, err := s.RunNow(); err != nil {
		if errors.Is(err, analysis.ErrAnalysisInProgress) {
			s.Logger.Warn().Msg("scheduled analysis skipped, previous run still active")
			return
		}
		s.Logger.Error().Err(err).Msg("scheduled analysis")
	}
}

// Deliver persists a finished run, refreshes fund names and sends the
// report. It is installed as the orchestrator's completion hook.
func (s *Scheduler) Deliver(res *model.AnalysisResult) {
	if err := s.Recorder.RecordRun(res); err != nil {
		s.Logger.Error().Err(err).Str("session", res.SessionID).Msg("record run")
	}
	s.Holdings.UpdateNames(res)

	s.trySend(notifier.FormatAnalysisReport(res, s.Holdings.Holdings()))
	if text := notifier.FormatNarrative(res); text != "" {
		s.trySend(text)
	}
}

const helpText = `可用命令:
• /analyze 立即分析
• /status 运行状态
• /funds 自选基金
• /add 代码 添加基金
• /remove 代码 删除基金
• /position 代码 金额 成本 设置持仓
• /period 1week|1month|3month|6month 分析周期
• /history 最近分析记录`

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	args := fields[1:]

	switch fields[0] {
	case "/analyze", "立即分析":
		if _, err := s.RunNow(); err != nil {
			if errors.Is(err, analysis.ErrAnalysisInProgress) {
				return "⏳ 分析进行中，请稍后再试"
			}
			return fmt.Sprintf("❌ 启动分析失败: %v", err)
		}
		return "🚀 已开始分析，完成后推送结果"
	case "/status", "运行状态":
		return notifier.FormatStatus(s.Runner.Phase(), s.Runner.Last(), s.now())
	case "/funds", "自选基金":
		return notifier.FormatFunds(s.Holdings.List(), s.Holdings.Window())
	case "/add":
		if len(args) != 1 {
			return "用法: /add 015740"
		}
		if err := s.Holdings.Add(args[0]); err != nil {
			return fmt.Sprintf("❌ 添加失败: %v", err)
		}
		return "✅ 已添加 " + args[0]
	case "/remove":
		if len(args) == 0 {
			return "用法: /remove 015740 [017470 ...]"
		}
		if err := s.Holdings.Remove(args...); err != nil {
			return fmt.Sprintf("❌ 删除失败: %v", err)
		}
		return "✅ 已删除 " + strings.Join(args, ", ")
	case "/position":
		return s.setPosition(args)
	case "/period":
		if len(args) != 1 {
			return "用法: /period 1month"
		}
		w, ok := model.ParsePeriodWindow(args[0])
		if !ok {
			return "❌ 周期仅支持 1week, 1month, 3month, 6month"
		}
		if err := s.Holdings.SetWindow(w); err != nil {
			return fmt.Sprintf("❌ 设置失败: %v", err)
		}
		return "✅ 分析周期: " + string(w)
	case "/history":
		return s.history()
	default:
		return helpText
	}
}

func (s *Scheduler) setPosition(args []string) string {
	if len(args) != 3 {
		return "用法: /position 015740 10000 1.2345"
	}
	var amount, cost float64
	if _, err := fmt.Sscanf(args[1]+" "+args[2], "%f %f", &amount, &cost); err != nil {
		return "❌ 金额和成本必须是数字"
	}
	if err := s.Holdings.SetPosition(args[0], amount, cost); err != nil {
		return fmt.Sprintf("❌ 设置失败: %v", err)
	}
	return fmt.Sprintf("✅ %s 持仓 ¥%.0f 成本 %.4f", args[0], amount, cost)
}

func (s *Scheduler) history() string {
	runs, err := s.Recorder.RecentRuns(5)
	if err != nil {
		return fmt.Sprintf("❌ 查询失败: %v", err)
	}
	if len(runs) == 0 {
		return "暂无分析记录"
	}
	var b strings.Builder
	b.WriteString("🗂 <b>最近分析</b>\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("\n%s | %s | %d 只", r.StartedAt.Format("01-02 15:04"), r.Window, r.Instruments))
		if r.Failed > 0 {
			b.WriteString(fmt.Sprintf(" (失败 %d)", r.Failed))
		}
		if r.Narrated {
			b.WriteString(" | AI")
		}
	}
	return b.String()
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error().Err(err).Msg("send notification")
	}
}
