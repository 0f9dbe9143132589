package workflow

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/andywolf/prompttoproduct/internal/classify"
	"github.com/andywolf/prompttoproduct/internal/domain"
	"github.com/andywolf/prompttoproduct/internal/logging"
	"github.com/andywolf/prompttoproduct/internal/metrics"
	"github.com/andywolf/prompttoproduct/internal/observability"
	"github.com/andywolf/prompttoproduct/internal/routing"
)

// Config holds engine settings.
type Config struct {
	MaxErrors     int           `mapstructure:"max_errors" yaml:"max_errors"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	RetryMaxDelay time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay"`
	HistoryLimit  int           `mapstructure:"history_limit" yaml:"history_limit"`
}

const (
	DefaultMaxErrors    = 3
	DefaultHistoryLimit = 5
)

// MemoryStats is the read side of the memory store used for status.
type MemoryStats interface {
	Len() int
	Cap() int
}

// Engine runs workflows. It is safe for concurrent use: each Run owns its
// State, and the only shared mutable pieces are the memory store (which
// serializes itself) and the engine's counters.
type Engine struct {
	config      Config
	classifier  *classify.Classifier
	router      *routing.Router
	executors   Executors
	memory      MemoryStats
	logger      *log.Logger
	cloudLogger logging.Logger
	tracer      observability.Tracer
	metrics     *metrics.Collector
	newBackOff  func() backoff.BackOff
	now         func() time.Time
	newID       func() string

	mu             sync.Mutex
	stagesExecuted int64
	stageCounts    map[domain.Stage]int64
	runsCompleted  int64
	runsFailed     int64
	lastActivity   time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the local logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCloudLogger sets the structured logger.
func WithCloudLogger(l logging.Logger) Option {
	return func(e *Engine) { e.cloudLogger = l }
}

// WithTracer sets the tracer.
func WithTracer(t observability.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithMetrics sets the Prometheus collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMemory lets Status report memory size.
func WithMemory(m MemoryStats) Option {
	return func(e *Engine) { e.memory = m }
}

// WithBackOff overrides the pause policy between in-place retries.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(e *Engine) { e.newBackOff = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDFunc overrides run ID generation.
func WithIDFunc(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an engine. Every work stage must have an executor.
func New(cfg Config, router *routing.Router, classifier *classify.Classifier, executors Executors, opts ...Option) (*Engine, error) {
	if router == nil {
		return nil, fmt.Errorf("router is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if err := executors.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = DefaultMaxErrors
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	e := &Engine{
		config:      cfg,
		classifier:  classifier,
		router:      router,
		executors:   executors,
		logger:      log.New(io.Discard, "", 0),
		cloudLogger: logging.Nop{},
		tracer:      &observability.NoOpTracer{},
		now:         time.Now,
		newID:       uuid.NewString,
		stageCounts: make(map[domain.Stage]int64),
	}
	e.newBackOff = cfg.backOff
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// backOff builds the retry pause policy: none when RetryDelay is zero,
// otherwise exponential from RetryDelay capped at RetryMaxDelay.
func (c Config) backOff() backoff.BackOff {
	if c.RetryDelay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.RetryDelay
	if c.RetryMaxDelay > 0 {
		b.MaxInterval = c.RetryMaxDelay
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run classifies prompt and drives it to a terminal stage. It always
// returns a FinalResult whose Status is Completed or Failed.
func (e *Engine) Run(ctx context.Context, prompt string) FinalResult {
	start := e.now()
	history := e.classifier.Context(e.config.HistoryLimit)
	sig := e.classifier.Classify(ctx, prompt)
	classified := e.now()

	state := &State{
		RunID:        e.newID(),
		Prompt:       prompt,
		Signal:       sig,
		CurrentStage: domain.StageClassify,
		StageOutputs: make(map[domain.Stage]domain.Outcome),
		Status:       domain.StatusRunning,
		Attempt:      1,
		History:      history,
	}
	path := []domain.Stage{domain.StageClassify}

	ctx, tc := e.tracer.StartTrace(ctx, state.RunID, observability.TraceOptions{
		Prompt:     prompt,
		Intent:     string(sig.Intent),
		Confidence: sig.Confidence,
		Domains:    sig.DomainNames(),
	})
	e.logInfo(state, "Run started: intent=%s confidence=%.2f domains=%v references=%d",
		sig.Intent, sig.Confidence, sig.DomainNames(), len(sig.References))

	state.StageOutputs[domain.StageClassify] = domain.Ok(classificationPayload(sig))
	e.recordStage(domain.StageClassify, true, classified.Sub(start))

	state.CurrentStage = e.nextStage(state, domain.StageClassify)
	bo := e.newBackOff()

	for state.Status.Active() {
		stage := state.CurrentStage
		if stage == domain.StageErrorHandler {
			// Only reachable through a router fallback for an unexpected edge.
			state.Status = domain.StatusFailed
			if state.LastError == "" {
				state.LastError = fmt.Sprintf("no route after %s", path[len(path)-1])
			}
			break
		}

		path = append(path, stage)
		outcome := e.invoke(ctx, tc, state, stage)
		state.StageOutputs[stage] = outcome

		if outcome.OK {
			if state.Status == domain.StatusRetrying {
				state.Status = domain.StatusRunning
				bo.Reset()
			}
			if stage.Terminal() {
				state.Status = domain.StatusCompleted
				break
			}
			state.CurrentStage = e.nextStage(state, stage)
			state.Attempt = 1
			continue
		}

		state.ErrorCount++
		state.LastError = outcome.Reason
		if state.ErrorCount >= e.config.MaxErrors {
			state.Status = domain.StatusFailed
			state.CurrentStage = e.nextStage(state, stage)
			e.logError(state, "Stage %s failed (%d/%d): %v: %s",
				stage, state.ErrorCount, e.config.MaxErrors, domain.ErrWorkflowExhausted, outcome.Reason)
			break
		}

		state.Status = domain.StatusRetrying
		state.Attempt++
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			wait = 0
		}
		e.metrics.ObserveRetry(string(stage))
		e.logWarning(state, "Stage %s failed (%d/%d), retrying in %s: %s",
			stage, state.ErrorCount, e.config.MaxErrors, wait, outcome.Reason)
		sleep(ctx, wait)
	}

	if state.Status == domain.StatusFailed {
		state.CurrentStage = domain.StageErrorHandler
		state.StageOutputs[domain.StageErrorHandler] = domain.Failed(state.LastError)
		path = append(path, domain.StageErrorHandler)
	}

	done := e.now()
	result := FinalResult{
		RunID:          state.RunID,
		Prompt:         prompt,
		Signal:         sig,
		Status:         state.Status,
		StageOutputs:   state.StageOutputs,
		Path:           path,
		ErrorCount:     state.ErrorCount,
		LastError:      state.LastError,
		CompletionTime: done,
		Duration:       done.Sub(start),
	}
	if result.Status != domain.StatusFailed {
		result.LastError = ""
	}

	e.finishRun(result)
	e.tracer.CompleteTrace(tc, observability.CompleteOptions{
		Status:     string(result.Status),
		ErrorCount: result.ErrorCount,
		LastError:  result.LastError,
	})
	if result.Status == domain.StatusCompleted {
		e.logInfo(state, "Run completed: path=%v errors=%d duration=%s", path, result.ErrorCount, result.Duration)
	} else {
		e.logError(state, "Run failed: path=%v errors=%d last_error=%s", path, result.ErrorCount, result.LastError)
	}
	return result
}

// nextStage asks the router for the successor of prev and asserts the
// router contract.
func (e *Engine) nextStage(state *State, prev domain.Stage) domain.Stage {
	next := e.router.Next(state.Signal, state.Status, prev)
	mustBeKnown(next)
	return next
}

// mustBeKnown panics when a stage outside the fixed set appears; a
// correct router never produces one.
func mustBeKnown(stage domain.Stage) {
	if !stage.Valid() {
		panic(fmt.Errorf("%w: router returned %q", domain.ErrUnknownStage, stage))
	}
}

// invoke runs one attempt of stage. Executor panics become failures.
func (e *Engine) invoke(ctx context.Context, tc observability.TraceContext, state *State, stage domain.Stage) (outcome domain.Outcome) {
	state.CurrentStage = stage
	sctx, span := e.tracer.StartStage(ctx, tc, string(stage), observability.SpanOptions{
		Attempt:    state.Attempt,
		ErrorCount: state.ErrorCount,
	})
	started := e.now()

	defer func() {
		if r := recover(); r != nil {
			outcome = domain.Failed(fmt.Sprintf("%s panicked: %v", stage, r))
		}
		if !outcome.OK && outcome.Reason == "" {
			outcome.Reason = fmt.Sprintf("%s: %v", stage, domain.ErrStageFailed)
		}
		d := e.now().Sub(started)
		status := "ok"
		if !outcome.OK {
			status = "failed"
		}
		e.tracer.EndStage(span, observability.EndOptions{
			Status:     status,
			Reason:     outcome.Reason,
			DurationMs: d.Milliseconds(),
		})
		e.recordStage(stage, outcome.OK, d)
	}()

	exec, ok := e.executors[stage]
	if !ok {
		return domain.Failed(fmt.Sprintf("%v: %s", domain.ErrNoExecutor, stage))
	}
	e.logInfo(state, "Executing stage %s (attempt %d)", stage, state.Attempt)
	return exec.Execute(sctx, state.snapshot())
}

func (e *Engine) recordStage(stage domain.Stage, ok bool, d time.Duration) {
	e.metrics.ObserveStage(string(stage), ok, d)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stagesExecuted++
	e.stageCounts[stage]++
	e.lastActivity = e.now()
}

func (e *Engine) finishRun(result FinalResult) {
	e.metrics.ObserveRun(string(result.Status), string(result.Signal.Intent), result.Duration)
	if e.memory != nil {
		e.metrics.SetMemorySize(e.memory.Len())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if result.Status == domain.StatusCompleted {
		e.runsCompleted++
	} else {
		e.runsFailed++
	}
	e.lastActivity = result.CompletionTime
}

// Status returns counts of stages executed and the memory size.
func (e *Engine) Status() Status {
	e.mu.Lock()
	counts := make(map[domain.Stage]int64, len(e.stageCounts))
	for k, v := range e.stageCounts {
		counts[k] = v
	}
	st := Status{
		StagesExecuted: e.stagesExecuted,
		StageCounts:    counts,
		RunsCompleted:  e.runsCompleted,
		RunsFailed:     e.runsFailed,
		LastActivity:   e.lastActivity,
	}
	e.mu.Unlock()

	if e.memory != nil {
		st.MemorySize = e.memory.Len()
		st.MemoryCapacity = e.memory.Cap()
	}
	return st
}

func classificationPayload(sig domain.Signal) map[string]any {
	refs := make([]string, 0, len(sig.References))
	for _, r := range sig.References {
		refs = append(refs, r.ID)
	}
	return map[string]any{
		"intent":     string(sig.Intent),
		"domains":    sig.DomainNames(),
		"references": refs,
		"confidence": sig.Confidence,
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
