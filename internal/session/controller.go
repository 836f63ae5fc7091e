// Package session implements the interview session controller: the lifecycle
// of one live voice call, from microphone permission through start, speech
// and transcript tracking, to stopping the call and handing the transcript to
// the backend for analysis.
//
// One [Controller] belongs to one interview screen. It is created when the
// screen opens ([Controller.Mount]) and released when the screen closes
// ([Controller.Close]). Voice-call events arrive on the client's goroutine and
// user commands on the terminal goroutine; the controller serialises all state
// changes behind a single mutex and never calls out while holding it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mockhire/mockhire/internal/backend"
	"github.com/mockhire/mockhire/internal/observe"
	"github.com/mockhire/mockhire/internal/resilience"
	"github.com/mockhire/mockhire/pkg/microphone"
	"github.com/mockhire/mockhire/pkg/voicecall"
)

// Timing defaults.
const (
	// FallbackTimeout is how long a start may go without the interviewer
	// speaking before the attempt is abandoned.
	FallbackTimeout = 50 * time.Second

	// ErrorRedirectDelay is how long the analysis failure message stays on
	// screen before returning to the dashboard.
	ErrorRedirectDelay = 3 * time.Second
)

// Messages shown to the user through CallState.ErrorMessage.
const (
	MsgMicRequired       = "Microphone permission is required to start the interview."
	MsgMissingAssistant  = "Missing VAPI assistant or workflow ID"
	MsgAnalysisFailed    = "Failed to get interview analysis"
	MsgUnknownVoiceError = "Unknown Vapi error"
	MsgStartFailed       = "Failed to start interview"
)

var (
	// ErrNotConfigured is returned when no voice-call client is available,
	// usually because the public key is missing.
	ErrNotConfigured = errors.New("session: voice-call client not configured")

	// ErrMissingAssistant is returned by Start when neither an assistant nor a
	// workflow ID is configured.
	ErrMissingAssistant = errors.New("session: missing assistant or workflow id")

	// ErrAlreadyCalling is returned by Start during a call.
	ErrAlreadyCalling = errors.New("session: call already in progress")

	// ErrStartInProgress is returned by Start while an earlier start is still
	// loading.
	ErrStartInProgress = errors.New("session: start already in progress")

	// ErrNotCalling is returned by Stop without an active call.
	ErrNotCalling = errors.New("session: no active call")

	// ErrFinalizing is returned by Stop while an earlier stop is still
	// submitting the transcript.
	ErrFinalizing = errors.New("session: interview is being finalized")

	// ErrAbandoned is returned by Start when the fallback timer gave up on the
	// attempt.
	ErrAbandoned = errors.New("session: interviewer did not join in time")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("session: controller closed")
)

// Analyzer submits a finished transcript for assessment. *backend.Client
// implements it.
type Analyzer interface {
	AnalyzeTranscript(ctx context.Context, transcript string) (*backend.AnalysisResult, error)
}

// Config holds the collaborators and settings of a [Controller].
type Config struct {
	// Client is the voice-call client. Nil means the service is not
	// configured; Start then fails with [ErrNotConfigured].
	Client voicecall.Client

	// Microphone obtains microphone permission. Required.
	Microphone microphone.Requester

	// Analyzer scores the transcript. Required.
	Analyzer Analyzer

	// Navigator moves between screens. Required.
	Navigator Navigator

	// AssistantID is preferred over WorkflowID when both are set.
	AssistantID string
	WorkflowID  string

	// Params are sent to the service as call variables.
	Params Params

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// FallbackTimeout defaults to [FallbackTimeout].
	FallbackTimeout time.Duration

	// RedirectDelay defaults to [ErrorRedirectDelay].
	RedirectDelay time.Duration

	// OnChange, if set, is called with a copy of the state after every
	// change. It runs without the controller lock held and must not block.
	OnChange func(CallState)
}

// Controller drives one interview session. All methods are safe for
// concurrent use.
type Controller struct {
	id  string
	cfg Config
	log *slog.Logger

	mu         sync.Mutex
	state      CallState
	transcript Transcript
	joined     string
	subs       []voicecall.Subscription
	mounted    bool
	closed     bool

	// Start bookkeeping. attempt identifies the current start so that a
	// stale fallback timer does nothing.
	attempt     uint64
	starting    bool
	startCancel context.CancelFunc
	fallback    *time.Timer
	botSpoke    bool
	abandoned   bool

	finalizing bool
	redirect   *time.Timer
	callStart  time.Time
}

// New validates cfg and returns an unmounted Controller.
func New(cfg Config) (*Controller, error) {
	var errs []error
	if cfg.Microphone == nil {
		errs = append(errs, errors.New("microphone requester is required"))
	}
	if cfg.Analyzer == nil {
		errs = append(errs, errors.New("analyzer is required"))
	}
	if cfg.Navigator == nil {
		errs = append(errs, errors.New("navigator is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("session: new: %w", err)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = FallbackTimeout
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = ErrorRedirectDelay
	}

	id := uuid.NewString()
	return &Controller{
		id:    id,
		cfg:   cfg,
		log:   slog.With("session_id", id),
		state: CallState{MicPermission: MicUnknown},
	}, nil
}

// ID returns the session identifier used in logs.
func (c *Controller) ID() string { return c.id }

// Params returns the session variables.
func (c *Controller) Params() Params { return c.cfg.Params }

// State returns a copy of the current state.
func (c *Controller) State() CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns the transcript as last joined, at call end or at stop.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

// ── Lifecycle ───────────────────────────────────────────────────────────────

// Mount subscribes to the voice-call client and requests microphone access.
// A denied permission is not an error: it is reported through the state and
// can be retried with [Controller.RequestMicrophone].
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	subscribe := !c.mounted && c.cfg.Client != nil
	c.mounted = true
	c.mu.Unlock()

	if subscribe {
		subs := make([]voicecall.Subscription, 0, len(voicecall.Events))
		for _, e := range voicecall.Events {
			subs = append(subs, c.cfg.Client.On(e, c.handle))
		}
		c.mu.Lock()
		closed := c.closed
		if !closed {
			c.subs = subs
		}
		c.mu.Unlock()
		if closed {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return ErrClosed
		}
	}

	if c.cfg.Client == nil {
		c.log.Warn("voice-call client not configured; interviews cannot be started")
	}

	err := c.RequestMicrophone(ctx)
	if errors.Is(err, microphone.ErrDenied) {
		return nil
	}
	return err
}

// RequestMicrophone asks for microphone access. On success the error message
// is cleared.
func (c *Controller) RequestMicrophone(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	err := c.cfg.Microphone.Request(ctx)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("session: request microphone: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err == nil {
		c.state.MicPermission = MicGranted
		c.state.ErrorMessage = ""
	} else {
		c.state.MicPermission = MicDenied
		c.state.ErrorMessage = MsgMicRequired
	}
	snap := c.state
	c.mu.Unlock()
	c.notify(snap)

	if err != nil {
		c.log.Info("microphone permission denied", "err", err)
		return fmt.Errorf("session: request microphone: %w", err)
	}
	return nil
}

// Close removes every subscription, stops the voice-call client and cancels
// all timers. Navigation requested afterwards is dropped. Close is
// idempotent; a failing client stop is logged and otherwise ignored.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.stopFallbackLocked()
	if c.redirect != nil {
		c.redirect.Stop()
		c.redirect = nil
	}
	if c.startCancel != nil {
		c.startCancel()
	}
	if c.state.IsCalling {
		c.endCallLocked(ctx)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	if c.cfg.Client != nil {
		if err := c.cfg.Client.Stop(ctx); err != nil {
			c.log.Debug("stop on close failed", "err", err)
		}
	}
	return nil
}

// ── Start ───────────────────────────────────────────────────────────────────

// Start begins the interview call. It arms the fallback timer and tries the
// start strategies in order. It returns once the call is live or every
// strategy has failed; in the latter case the failure reason is shown as the
// error message.
func (c *Controller) Start(ctx context.Context) (err error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.cfg.Client == nil:
		c.mu.Unlock()
		return ErrNotConfigured
	case c.state.IsCalling:
		c.mu.Unlock()
		return ErrAlreadyCalling
	case c.state.Loading || c.starting:
		c.mu.Unlock()
		return ErrStartInProgress
	case c.cfg.AssistantID == "" && c.cfg.WorkflowID == "":
		c.state.ErrorMessage = MsgMissingAssistant
		snap := c.state
		c.mu.Unlock()
		c.notify(snap)
		c.log.Error("cannot start interview", "err", ErrMissingAssistant)
		return ErrMissingAssistant
	}

	ctx, span := observe.StartSpan(ctx, "session.start")
	defer func() { observe.EndSpan(span, err) }()
	startCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.attempt++
	attempt := c.attempt
	c.state.ErrorMessage = ""
	c.state.Loading = true
	c.starting = true
	c.startCancel = cancel
	c.botSpoke = false
	c.abandoned = false
	c.fallback = time.AfterFunc(c.cfg.FallbackTimeout, func() { c.onFallback(attempt) })
	snap := c.state
	c.mu.Unlock()
	c.notify(snap)

	seq := resilience.NewSequence(c.strategies(), resilience.WithAttemptHook(func(a resilience.Attempt) {
		status := "ok"
		if a.Err != nil {
			status = "error"
		}
		c.cfg.Metrics.RecordSessionStart(ctx, a.Strategy, status)
	}))
	strategy, runErr := seq.Run(startCtx)

	c.mu.Lock()
	c.starting = false
	c.startCancel = nil
	abandoned := c.abandoned
	closed := c.closed
	if runErr != nil && !abandoned && !closed {
		c.stopFallbackLocked()
		c.state.Loading = false
		c.state.ErrorMessage = failureReason(runErr)
	}
	snap = c.state
	c.mu.Unlock()

	switch {
	case abandoned:
		return fmt.Errorf("session: start: %w", ErrAbandoned)
	case closed:
		return ErrClosed
	case runErr != nil:
		c.notify(snap)
		c.log.Error("failed to start interview", "err", runErr)
		return fmt.Errorf("session: start: %w", runErr)
	}
	span.SetAttributes(attribute.String("strategy", strategy))
	observe.Logger(ctx).Info("interview call started", "session_id", c.id, "strategy", strategy)
	return nil
}

// strategies returns the ordered start request shapes for the configured
// assistant or workflow.
func (c *Controller) strategies() []resilience.Strategy {
	client := c.cfg.Client
	vars := c.cfg.Params.Variables()

	if id := c.cfg.AssistantID; id != "" {
		return []resilience.Strategy{
			{Name: "assistant", Run: func(ctx context.Context) error {
				return client.StartAssistant(ctx, id, voicecall.Overrides{VariableValues: vars})
			}},
			{Name: "assistant-options", Run: func(ctx context.Context) error {
				return client.StartWithOptions(ctx, voicecall.StartOptions{
					AssistantID:        id,
					AssistantOverrides: &voicecall.Overrides{VariableValues: vars},
				})
			}},
		}
	}
	id := c.cfg.WorkflowID
	return []resilience.Strategy{
		{Name: "workflow", Run: func(ctx context.Context) error {
			return client.StartWorkflow(ctx, id, voicecall.Overrides{VariableValues: vars})
		}},
		{Name: "workflow-options", Run: func(ctx context.Context) error {
			return client.StartWithOptions(ctx, voicecall.StartOptions{
				WorkflowID:     id,
				VariableValues: vars,
			})
		}},
	}
}

// failureReason picks the message shown for a failed start: the error of the
// last strategy tried.
func failureReason(err error) string {
	var ex *resilience.ExhaustedError
	if errors.As(err, &ex) && ex.Last() != nil {
		err = ex.Last()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgStartFailed
}

// onFallback runs when the fallback timer of the given attempt fires.
func (c *Controller) onFallback(attempt uint64) {
	c.mu.Lock()
	if c.closed || attempt != c.attempt || c.fallback == nil {
		c.mu.Unlock()
		return
	}
	c.fallback = nil
	c.state.Loading = false
	giveUp := !c.botSpoke
	if giveUp {
		c.abandoned = true
		if c.startCancel != nil {
			c.startCancel()
		}
	}
	snap := c.state
	c.mu.Unlock()

	c.cfg.Metrics.FallbackTimeouts.Add(context.Background(), 1)
	c.notify(snap)
	if giveUp {
		c.log.Warn("interviewer did not speak in time; returning to dashboard",
			"timeout", c.cfg.FallbackTimeout)
		c.toDashboard()
	}
}

func (c *Controller) stopFallbackLocked() {
	if c.fallback != nil {
		c.fallback.Stop()
		c.fallback = nil
	}
}

// ── Stop ────────────────────────────────────────────────────────────────────

// Stop ends the call and submits the transcript. The steps run strictly in
// order: stop the client, join the transcript, request the analysis, navigate
// to the results. On failure the analysis error message is shown and the
// dashboard follows after the redirect delay. There is no retry.
func (c *Controller) Stop(ctx context.Context) (err error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.finalizing:
		c.mu.Unlock()
		return ErrFinalizing
	case !c.state.IsCalling:
		c.mu.Unlock()
		return ErrNotCalling
	}
	c.finalizing = true
	c.mu.Unlock()

	ctx, span := observe.StartSpan(ctx, "session.stop")
	defer func() { observe.EndSpan(span, err) }()

	if err := c.cfg.Client.Stop(ctx); err != nil {
		return c.failFinalize(ctx, fmt.Errorf("session: stop call: %w", err))
	}

	c.mu.Lock()
	transcript := c.transcript.Join()
	c.joined = transcript
	lines := c.transcript.Len()
	c.mu.Unlock()
	span.SetAttributes(attribute.Int("transcript.lines", lines))

	analysis, err := c.cfg.Analyzer.AnalyzeTranscript(ctx, transcript)
	if err != nil {
		return c.failFinalize(ctx, fmt.Errorf("session: analyze transcript: %w", err))
	}

	c.mu.Lock()
	c.finalizing = false
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	observe.Logger(ctx).Info("interview analysed", "session_id", c.id, "lines", lines)
	c.cfg.Navigator.ToResults(ResultsRoute{Analysis: analysis, Transcript: transcript})
	return nil
}

func (c *Controller) failFinalize(ctx context.Context, err error) error {
	observe.Logger(ctx).Error("failed to stop interview or fetch analysis", "session_id", c.id, "err", err)

	c.mu.Lock()
	c.finalizing = false
	if c.closed {
		c.mu.Unlock()
		return err
	}
	c.state.ErrorMessage = MsgAnalysisFailed
	if c.redirect != nil {
		c.redirect.Stop()
	}
	c.redirect = time.AfterFunc(c.cfg.RedirectDelay, c.toDashboard)
	snap := c.state
	c.mu.Unlock()

	c.notify(snap)
	return err
}

// ── Events ──────────────────────────────────────────────────────────────────

// effect is a side effect requested by a state transition, carried out after
// the lock is released.
type effect int

const (
	effectNone effect = iota
	effectToDashboard
	effectStopClient
)

// transitions maps each voice-call event to the state change it causes. Each
// runs with c.mu held.
var transitions = map[voicecall.Event]func(c *Controller, d voicecall.EventData) effect{
	voicecall.EventCallStart:   (*Controller).onCallStart,
	voicecall.EventCallEnd:     (*Controller).onCallEnd,
	voicecall.EventSpeechStart: (*Controller).onSpeechStart,
	voicecall.EventSpeechEnd:   (*Controller).onSpeechEnd,
	voicecall.EventMessage:     (*Controller).onMessage,
	voicecall.EventError:       (*Controller).onError,
}

// handle is the listener registered for every event.
func (c *Controller) handle(d voicecall.EventData) {
	transition, ok := transitions[d.Event]
	if !ok {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	eff := transition(c, d)
	snap := c.state
	c.mu.Unlock()

	c.cfg.Metrics.RecordVoiceEvent(context.Background(), string(d.Event))
	c.notify(snap)

	switch eff {
	case effectToDashboard:
		c.toDashboard()
	case effectStopClient:
		c.log.Warn("call started after the attempt was abandoned; stopping it")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.cfg.Client.Stop(ctx); err != nil {
				c.log.Debug("stop of abandoned call failed", "err", err)
			}
		}()
	}
}

func (c *Controller) onCallStart(voicecall.EventData) effect {
	if c.abandoned {
		return effectStopClient
	}
	c.state.IsCalling = true
	c.state.ErrorMessage = ""
	c.transcript.Reset()
	c.joined = ""
	c.callStart = time.Now()
	c.cfg.Metrics.ActiveCalls.Add(context.Background(), 1)
	return effectNone
}

func (c *Controller) onCallEnd(voicecall.EventData) effect {
	if c.state.IsCalling {
		c.endCallLocked(context.Background())
	}
	c.state.BotSpeaking = false
	c.state.UserSpeaking = false
	c.joined = c.transcript.Join()
	return effectNone
}

// endCallLocked marks the call as over and records its metrics.
func (c *Controller) endCallLocked(ctx context.Context) {
	c.state.IsCalling = false
	c.state.BotSpeaking = false
	c.state.UserSpeaking = false
	c.cfg.Metrics.ActiveCalls.Add(ctx, -1)
	if !c.callStart.IsZero() {
		c.cfg.Metrics.SessionDuration.Record(ctx, time.Since(c.callStart).Seconds())
	}
}

func (c *Controller) onSpeechStart(d voicecall.EventData) effect {
	if d.User {
		c.state.UserSpeaking = true
		return effectNone
	}
	c.state.BotSpeaking = true
	c.botSpoke = true
	if c.state.Loading {
		c.state.Loading = false
		c.stopFallbackLocked()
	}
	return effectNone
}

func (c *Controller) onSpeechEnd(d voicecall.EventData) effect {
	if d.User {
		c.state.UserSpeaking = false
	} else {
		c.state.BotSpeaking = false
	}
	return effectNone
}

func (c *Controller) onMessage(d voicecall.EventData) effect {
	if d.Message.IsFinal() {
		c.transcript.Append(d.Message.SpeakerName(), d.Message.Content())
	}
	return effectNone
}

func (c *Controller) onError(d voicecall.EventData) effect {
	msg := MsgUnknownVoiceError
	if d.Err != nil && d.Err.Error() != "" {
		msg = d.Err.Error()
	}
	c.log.Error("voice-call error event", "err", msg)
	c.state.ErrorMessage = msg
	c.state.Loading = false
	c.stopFallbackLocked()
	return effectToDashboard
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func (c *Controller) toDashboard() {
	c.mu.Lock()
	closed := c.closed
	c.redirect = nil
	c.mu.Unlock()
	if closed {
		return
	}
	c.cfg.Navigator.ToDashboard()
}

func (c *Controller) notify(s CallState) {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(s)
	}
}
