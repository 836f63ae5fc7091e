package screen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mockhire/mockhire/internal/identity"
	"github.com/mockhire/mockhire/internal/observe"
	"github.com/mockhire/mockhire/internal/session"
	"github.com/mockhire/mockhire/pkg/microphone"
	"github.com/mockhire/mockhire/pkg/voicecall"
)

// Button labels and banners of the interview page.
const (
	LabelLoading    = "Loading..."
	LabelInProgress = "Interview In Progress"
	LabelStart      = "Start Interview"
	LabelLeave      = "Leave Interview"

	MicBanner = "Please enable microphone access when prompted. If you dismissed it, type 'mic'."
)

// closeTimeout bounds the client stop issued when the page closes.
const closeTimeout = 5 * time.Second

// Interview is the live interview page. It owns one session controller per
// visit.
type Interview struct {
	Console    *Console
	Navigator  Navigator
	Client     voicecall.Client
	Microphone microphone.Requester
	Analyzer   session.Analyzer
	User       identity.User

	AssistantID string
	WorkflowID  string

	Metrics *observe.Metrics

	// Zero uses the session package defaults.
	FallbackTimeout time.Duration
	RedirectDelay   time.Duration

	active atomic.Pointer[session.Controller]
}

// State returns the state of the controller of the visit in progress.
func (s *Interview) State() (session.CallState, bool) {
	c := s.active.Load()
	if c == nil {
		return session.CallState{}, false
	}
	return c.State(), true
}

type opResult struct {
	op  string
	err error
}

// Show implements Screen.
func (s *Interview) Show(ctx context.Context, r Route) (next Route, err error) {
	if r.Interview.IsZero() {
		return Route{Kind: KindDashboard}, nil
	}

	changed := make(chan struct{}, 1)
	ctrl, err := session.New(session.Config{
		Client:          s.Client,
		Microphone:      s.Microphone,
		Analyzer:        s.Analyzer,
		Navigator:       s.Navigator,
		AssistantID:     s.AssistantID,
		WorkflowID:      s.WorkflowID,
		Params:          session.NewParams(r.Interview, s.User),
		Metrics:         s.Metrics,
		FallbackTimeout: s.FallbackTimeout,
		RedirectDelay:   s.RedirectDelay,
		OnChange: func(session.CallState) {
			select {
			case changed <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		return Route{}, fmt.Errorf("interview: %w", err)
	}
	s.active.Store(ctrl)

	done := make(chan struct{})
	results := make(chan opResult, 1)
	defer func() {
		close(done)
		s.active.CompareAndSwap(ctrl, nil)
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		_ = ctrl.Close(closeCtx)
	}()

	c := s.Console
	c.Heading(r.Interview.Role + " Interview")
	c.Printf("Difficulty: %s  Duration: %s\n", r.Interview.Difficulty, r.Interview.Duration)

	if err := ctrl.Mount(ctx); err != nil {
		if ctx.Err() != nil || errors.Is(err, io.EOF) {
			return Route{}, err
		}
		slog.Warn("microphone request failed", "session_id", ctrl.ID(), "err", err)
	}
	c.Println("Commands: start, leave, mic, status, back")
	last := s.render(ctrl.State(), "")

	run := func(op string, fn func(context.Context) error) {
		go func() {
			err := fn(ctx)
			select {
			case results <- opResult{op: op, err: err}:
			case <-done:
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return Route{}, ctx.Err()

		case next := <-s.Navigator.Redirects():
			return next, nil

		case <-changed:
			last = s.render(ctrl.State(), last)

		case res := <-results:
			s.report(res)

		case line, ok := <-c.Lines():
			if !ok {
				return Route{}, io.EOF
			}
			switch name, _ := command(line); name {
			case "":
			case "start":
				run("start", ctrl.Start)
			case "leave", "stop":
				run("stop", ctrl.Stop)
			case "mic":
				// Blocks the loop: the prompt reads its answer from the
				// same input.
				if err := ctrl.RequestMicrophone(ctx); err != nil && !errors.Is(err, microphone.ErrDenied) {
					if ctx.Err() != nil || errors.Is(err, io.EOF) {
						return Route{}, err
					}
					slog.Warn("microphone request failed", "session_id", ctrl.ID(), "err", err)
				}
				last = s.render(ctrl.State(), last)
			case "status":
				last = s.render(ctrl.State(), "")
			case "back":
				return Route{Kind: KindDashboard}, nil
			default:
				c.Printf("Unknown command %q.\n", name)
			}
		}
	}
}

// report prints the outcome of a start or stop that does not already show
// through the state.
func (s *Interview) report(res opResult) {
	switch {
	case res.err == nil:
	case errors.Is(res.err, session.ErrAlreadyCalling),
		errors.Is(res.err, session.ErrStartInProgress),
		errors.Is(res.err, session.ErrNotCalling),
		errors.Is(res.err, session.ErrFinalizing),
		errors.Is(res.err, session.ErrNotConfigured):
		s.Console.Println(capitalize(strings.TrimPrefix(res.err.Error(), "session: ")) + ".")
	case errors.Is(res.err, session.ErrClosed), errors.Is(res.err, context.Canceled):
	default:
		slog.Debug("interview operation failed", "op", res.op, "err", res.err)
	}
}

// render prints the page state when it differs from the last rendering and
// returns the new rendering.
func (s *Interview) render(st session.CallState, last string) string {
	view := View(st)
	if view != last {
		s.Console.Printf("%s", view)
	}
	return view
}

// View renders the banners and buttons of the interview page.
func View(st session.CallState) string {
	var b strings.Builder
	if st.ErrorMessage != "" {
		fmt.Fprintf(&b, "! %s\n", st.ErrorMessage)
	}
	if st.MicPermission != session.MicGranted {
		fmt.Fprintf(&b, "%s\n", MicBanner)
	}

	interviewer := "AI Interviewer"
	if st.BotSpeaking {
		interviewer += " (speaking)"
	}
	if st.UserSpeaking {
		interviewer += "  You (speaking)"
	}
	fmt.Fprintf(&b, "%s\n", interviewer)

	label := LabelStart
	switch {
	case st.Loading:
		label = LabelLoading
	case st.IsCalling:
		label = LabelInProgress
	}
	fmt.Fprintf(&b, "[%s]  [%s]\n", label, LabelLeave)
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
