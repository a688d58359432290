// Package analysis runs one analysis session at a time: collect every fund
// concurrently, compute indicators and suggestions, then optionally stream a
// narrative for the whole portfolio.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"FundPulse/internal/calculator"
	"FundPulse/internal/collector"
	"FundPulse/internal/metrics"
	"FundPulse/internal/model"
	"FundPulse/internal/narrative"
	"FundPulse/internal/strategy"
)

// ErrAnalysisInProgress is returned when a run is requested while another
// session is active. Requests are rejected, never queued.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// Collector is the collection stage.
type Collector interface {
	CollectAll(ctx context.Context, codes []string, progress collector.ProgressFunc) []model.InstrumentData
}

// Hooks observe a session. Any of them may be nil. OnProgress runs on the
// collector's worker goroutines while collecting (calls are serialized) and
// everything else runs on the goroutine executing the session. OnComplete
// runs before the orchestrator returns to idle.
type Hooks struct {
	OnProgress func(percent int, label string)
	OnPhase    func(phase model.Phase)
	OnDelta    func(text string)
	OnComplete func(result *model.AnalysisResult)
}

// Request describes one run.
type Request struct {
	Codes    []string
	Window   model.PeriodWindow
	Narrate  bool
	Holdings map[string]*model.Holding // optional, feeds the prompt
}

// session is the per-run state. It is created by begin and dropped when the
// run returns.
type session struct {
	id          string
	window      model.PeriodWindow
	codes       []string
	instruments map[string]*model.InstrumentData
	narrative   strings.Builder
	startedAt   time.Time
}

// Orchestrator drives the Idle → Collecting → Computing → Narrating → Idle
// state machine.
type Orchestrator struct {
	collector Collector
	narrator  narrative.Streamer
	hooks     Hooks
	metrics   *metrics.Recorder
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string

	mu    sync.Mutex
	phase model.Phase
	last  *model.AnalysisResult
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithHooks(h Hooks) Option                 { return func(o *Orchestrator) { o.hooks = h } }
func WithMetrics(m *metrics.Recorder) Option   { return func(o *Orchestrator) { o.metrics = m } }
func WithLogger(l zerolog.Logger) Option       { return func(o *Orchestrator) { o.logger = l } }
func WithClock(now func() time.Time) Option    { return func(o *Orchestrator) { o.now = now } }
func WithIDGenerator(gen func() string) Option { return func(o *Orchestrator) { o.newID = gen } }

// New creates an idle Orchestrator. A nil narrator disables the narrative
// phase.
func New(c Collector, narrator narrative.Streamer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		collector: c,
		narrator:  narrator,
		logger:    zerolog.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
		phase:     model.PhaseIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Phase reports the current state.
func (o *Orchestrator) Phase() model.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Last returns the most recent completed result, or nil.
func (o *Orchestrator) Last() *model.AnalysisResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// NarrationEnabled reports whether a narrator is configured.
func (o *Orchestrator) NarrationEnabled() bool {
	return o.narrator != nil
}

// Run executes a session synchronously.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	s, err := o.begin(req)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, s, req), nil
}

// Start claims the orchestrator and runs the session in the background. It
// fails immediately with ErrAnalysisInProgress when busy.
func (o *Orchestrator) Start(ctx context.Context, req Request) (string, error) {
	s, err := o.begin(req)
	if err != nil {
		return "", err
	}
	go o.execute(ctx, s, req)
	return s.id, nil
}

func (o *Orchestrator) begin(req Request) (*session, error) {
	o.mu.Lock()
	if o.phase != model.PhaseIdle {
		o.mu.Unlock()
		o.metrics.RunFinished(metrics.OutcomeRejected)
		return nil, ErrAnalysisInProgress
	}
	o.phase = model.PhaseCollecting
	o.mu.Unlock()

	window := req.Window
	if !window.Valid() {
		window = model.DefaultWindow
	}
	return &session{
		id:          o.newID(),
		window:      window,
		codes:       append([]string(nil), req.Codes...),
		instruments: make(map[string]*model.InstrumentData, len(req.Codes)),
		startedAt:   o.now(),
	}, nil
}

func (o *Orchestrator) execute(ctx context.Context, s *session, req Request) *model.AnalysisResult {
	// idle only after last is published and OnComplete has returned
	defer o.setPhase(model.PhaseIdle)
	log := o.logger.With().Str("session", s.id).Logger()

	o.notifyPhase(model.PhaseCollecting)
	o.collect(ctx, s)

	o.setPhase(model.PhaseComputing)
	o.compute(s)

	result := o.buildResult(s)
	if req.Narrate && o.narrator != nil {
		o.setPhase(model.PhaseNarrating)
		o.narrate(ctx, s, req, result, log)
	} else {
		o.progress(100, "AI分析已跳过")
	}
	result.FinishedAt = o.now()

	o.mu.Lock()
	o.last = result
	o.mu.Unlock()

	o.metrics.RunFinished(metrics.OutcomeCompleted)
	o.metrics.ObserveDuration(result.FinishedAt.Sub(result.StartedAt))
	log.Info().
		Int("instruments", len(result.Instruments)).
		Bool("narrated", result.Narrated).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("analysis completed")

	if o.hooks.OnComplete != nil {
		o.hooks.OnComplete(result)
	}
	return result
}

func (o *Orchestrator) collect(ctx context.Context, s *session) {
	o.progress(5, "正在拉取基金数据...")
	data := o.collector.CollectAll(ctx, s.codes, func(completed, total int, code string) {
		pct := 5 + int(math.Round(float64(completed)/float64(total)*40))
		o.progress(pct, fmt.Sprintf("拉取 %s (%d/%d)...", code, completed, total))
	})
	for i := range data {
		s.instruments[data[i].Code] = &data[i]
	}
}

func (o *Orchestrator) compute(s *session) {
	o.progress(50, "计算技术指标...")
	now := o.now()
	for _, code := range s.codes {
		d := s.instruments[code]
		if d == nil || d.Series == nil {
			continue
		}
		d.Indicators = calculator.Compute(d.Series, s.window, now)
	}
	o.progress(65, "生成操作建议...")
}

func (o *Orchestrator) buildResult(s *session) *model.AnalysisResult {
	now := o.now()
	res := &model.AnalysisResult{
		SessionID:   s.id,
		Window:      s.window,
		Instruments: make([]model.InstrumentResult, 0, len(s.codes)),
		StartedAt:   s.startedAt,
	}
	for _, code := range s.codes {
		d := s.instruments[code]
		if d == nil {
			d = &model.InstrumentData{Code: code, Name: code}
		}
		ir := model.InstrumentResult{
			Code:             d.Code,
			Name:             d.Name,
			Quote:            d.Quote,
			Indicators:       d.Indicators,
			Suggestion:       strategy.Suggest(d.Indicators),
			CumulativeReturn: calculator.FilterSeries(d.CumulativeReturn, s.window, now),
		}
		if d.FetchErr != nil {
			ir.FetchError = d.FetchErr.Error()
		}
		res.Instruments = append(res.Instruments, ir)
	}
	return res
}

func (o *Orchestrator) narrate(ctx context.Context, s *session, req Request, res *model.AnalysisResult, log zerolog.Logger) {
	o.progress(70, "准备AI分析...")
	briefs := make([]narrative.FundBrief, 0, len(res.Instruments))
	for _, ir := range res.Instruments {
		briefs = append(briefs, narrative.FundBrief{
			Code:       ir.Code,
			Name:       ir.Name,
			Indicators: ir.Indicators,
			Suggestion: ir.Suggestion,
			Quote:      ir.Quote,
			Holding:    req.Holdings[ir.Code],
		})
	}
	prompt := narrative.BuildUserPrompt(briefs, s.window, o.now())

	o.progress(75, "AI深度分析中...")
	res.Narrated = true
	err := o.stream(ctx, s, prompt)
	if err != nil {
		o.metrics.NarrativeFailed()
		log.Warn().Err(err).Msg("narrative failed")
		s.narrative.Reset()
		s.narrative.WriteString(narrativeErrorText(err))
		res.NarrativeErr = err.Error()
		o.progress(100, "AI分析失败")
	} else {
		o.progress(100, "AI分析完成")
	}
	res.Narrative = s.narrative.String()
}

func (o *Orchestrator) stream(ctx context.Context, s *session, prompt string) error {
	seq, err := o.narrator.Stream(ctx, narrative.Request{System: narrative.SystemPrompt, User: prompt})
	if err != nil {
		return err
	}
	for delta, err := range seq {
		if err != nil {
			return err
		}
		s.narrative.WriteString(delta)
		o.metrics.NarrativeDelta()
		if o.hooks.OnDelta != nil {
			o.hooks.OnDelta(delta)
		}
	}
	return nil
}

// narrativeErrorText is the text that replaces a failed narrative.
func narrativeErrorText(err error) string {
	var se *narrative.StatusError
	if errors.As(err, &se) {
		return "❌ " + se.Error()
	}
	return "❌ 请求失败: " + err.Error()
}

func (o *Orchestrator) setPhase(p model.Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
	o.notifyPhase(p)
}

func (o *Orchestrator) notifyPhase(p model.Phase) {
	if o.hooks.OnPhase != nil {
		o.hooks.OnPhase(p)
	}
}

func (o *Orchestrator) progress(pct int, label string) {
	if o.hooks.OnProgress != nil {
		o.hooks.OnProgress(pct, label)
	}
}
