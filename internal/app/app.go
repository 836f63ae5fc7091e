// Package app wires all mockhire subsystems into a running terminal client.
//
// The App struct owns the full lifecycle: New authenticates the user and
// connects the backend client, the pages and the status server, Run shows
// pages until the user quits, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithBackend,
// WithAuthenticator, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mockhire/mockhire/internal/backend"
	"github.com/mockhire/mockhire/internal/config"
	"github.com/mockhire/mockhire/internal/health"
	"github.com/mockhire/mockhire/internal/identity"
	"github.com/mockhire/mockhire/internal/observe"
	"github.com/mockhire/mockhire/internal/screen"
	"github.com/mockhire/mockhire/internal/session"
	"github.com/mockhire/mockhire/pkg/microphone"
	"github.com/mockhire/mockhire/pkg/voicecall"
)

// serverShutdownTimeout bounds the status server drain when Run ends.
const serverShutdownTimeout = 5 * time.Second

// Providers holds the pluggable clients built by main.go via the config
// registry. A nil Voice means the voice-call service is not configured.
type Providers struct {
	Voice      voicecall.Client
	Microphone microphone.Requester
}

// Backend is everything the pages need from the interview backend.
// *backend.Client implements it.
type Backend interface {
	screen.InterviewLister
	screen.RoleFetcher
	screen.FormSubmitter
	session.Analyzer
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	console        *screen.Console
	backend        Backend
	auth           identity.Authenticator
	metrics        *observe.Metrics
	metricsHandler http.Handler

	user     identity.User
	signedIn bool

	router    *screen.Router
	interview *screen.Interview

	// Status server; nil when server.listen_addr is empty.
	server   *http.Server
	listener net.Listener

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithConsole sets the terminal. Default: stdin/stdout.
func WithConsole(c *screen.Console) Option {
	return func(a *App) { a.console = c }
}

// WithBackend injects a backend instead of creating a client from config.
func WithBackend(b Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithAuthenticator injects the authenticator used for the session token.
func WithAuthenticator(auth identity.Authenticator) Option {
	return func(a *App) { a.auth = auth }
}

// WithMetrics sets the metrics instruments. Default: observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler mounts h on /metrics of the status server.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
//
// New authenticates the user synchronously. A missing or rejected session
// token is not an error: the app then starts signed out and only the public
// pages are reachable.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.providers.Microphone == nil {
		return nil, errors.New("app: microphone requester is required")
	}
	if a.console == nil {
		a.console = screen.NewConsole(os.Stdin, os.Stdout)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Backend ───────────────────────────────────────────────────────
	if err := a.initBackend(); err != nil {
		return nil, fmt.Errorf("app: init backend: %w", err)
	}

	// ── 2. Identity ──────────────────────────────────────────────────────
	if err := a.initIdentity(ctx); err != nil {
		return nil, fmt.Errorf("app: init identity: %w", err)
	}

	// ── 3. Pages ─────────────────────────────────────────────────────────
	a.initScreens()

	// ── 4. Status server ─────────────────────────────────────────────────
	if err := a.initServer(); err != nil {
		return nil, fmt.Errorf("app: init status server: %w", err)
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initBackend() error {
	if a.backend != nil {
		return nil
	}
	c, err := backend.New(a.cfg.Backend.Origin,
		backend.WithTimeout(a.cfg.Backend.Timeout),
		backend.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}
	a.backend = c
	return nil
}

// initIdentity resolves the signed-in user. Without an injected
// authenticator, a JWKS URL selects token verification and a configured
// user selects the static development identity.
func (a *App) initIdentity(ctx context.Context) error {
	idc := a.cfg.Identity
	if a.auth == nil {
		if idc.JWKSURL != "" {
			a.auth = identity.NewJWKSAuthenticator(idc.Issuer, idc.JWKSURL)
		} else {
			a.auth = identity.Static{User: identity.User{
				ID:        idc.User.ID,
				FullName:  idc.User.FullName,
				FirstName: idc.User.FirstName,
				Email:     idc.User.Email,
			}}
		}
	}

	u, err := a.auth.Authenticate(ctx, idc.SessionToken)
	switch {
	case err == nil:
		a.user, a.signedIn = u, true
		slog.Info("signed in", "user_id", u.ID)
	case errors.Is(err, identity.ErrSignedOut), errors.Is(err, identity.ErrInvalidToken):
		slog.Warn("not signed in", "err", err)
	default:
		return err
	}
	return nil
}

func (a *App) initScreens() {
	c := a.console
	a.router = screen.NewRouter(c, a.signedIn)
	a.interview = &screen.Interview{
		Console:     c,
		Navigator:   a.router,
		Client:      a.providers.Voice,
		Microphone:  a.providers.Microphone,
		Analyzer:    a.backend,
		User:        a.user,
		AssistantID: a.cfg.Voice.AssistantID,
		WorkflowID:  a.cfg.Voice.WorkflowID,
		Metrics:     a.metrics,
	}

	a.router.Handle(screen.KindHome, &screen.Home{Console: c, SignedIn: a.signedIn})
	a.router.Handle(screen.KindDashboard, &screen.Dashboard{Console: c, Backend: a.backend, User: a.user})
	a.router.Handle(screen.KindInterview, a.interview)
	a.router.Handle(screen.KindResults, &screen.Results{Console: c})
	a.router.Handle(screen.KindRole, &screen.Role{Console: c, Backend: a.backend})
	a.router.Handle(screen.KindAbout, &screen.About{Console: c})
	a.router.Handle(screen.KindFAQ, &screen.FAQ{Console: c})
	a.router.Handle(screen.KindContact, &screen.Contact{Console: c, Backend: a.backend})
	a.router.Handle(screen.KindFeedback, &screen.Feedback{Console: c, Backend: a.backend})
}

func (a *App) initServer() error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	health.New(a.checkers()...).Register(mux)
	if a.metricsHandler != nil {
		mux.Handle("GET /metrics", a.metricsHandler)
	}
	mux.HandleFunc("GET /api/session", a.handleSession)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	a.listener = ln
	a.server = &http.Server{
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("status server listening", "addr", ln.Addr().String())
	return nil
}

// checkers are the readiness checks of the status server.
func (a *App) checkers() []health.Checker {
	return []health.Checker{
		{
			Name: "backend",
			Check: func(ctx context.Context) error {
				_, err := a.backend.ListInterviews(ctx)
				return err
			},
		},
		{
			Name:     "voice",
			Optional: true,
			Check: func(context.Context) error {
				if a.providers.Voice == nil {
					return errors.New("voice-call client not configured")
				}
				return nil
			},
		},
	}
}

// handleSession serves the state of the interview in progress.
func (a *App) handleSession(w http.ResponseWriter, _ *http.Request) {
	st, ok := a.interview.State()
	if !ok {
		health.WriteJSON(w, http.StatusNotFound, map[string]string{"status": "no active session"})
		return
	}
	health.WriteJSON(w, http.StatusOK, st)
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// User returns the signed-in user and whether anyone is signed in.
func (a *App) User() (identity.User, bool) { return a.user, a.signedIn }

// StatusAddr returns the status server address, or "" when it is disabled.
func (a *App) StatusAddr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run shows pages until the user quits, input ends or ctx is cancelled. The
// status server runs alongside and is drained when Run returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.WithoutCancel(gctx), serverShutdownTimeout)
			defer scancel()
			return a.server.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		start := screen.Route{Kind: a.router.Home()}
		return a.router.Run(gctx, start)
	})

	slog.Info("app running", "signed_in", a.signedIn, "voice", a.providers.Voice != nil)
	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the voice-call client and the status server, then runs the
// registered closers. It respects the context deadline: if ctx expires before
// all closers finish, remaining closers are skipped and the context error is
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.providers.Voice != nil {
			if err := a.providers.Voice.Stop(ctx); err != nil {
				slog.Warn("voice-call stop error", "err", err)
			}
		}
		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				slog.Warn("status server shutdown error", "err", err)
			}
			// Not tracked by the server when Run was never called.
			_ = a.listener.Close()
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// OnShutdown registers fn to run during Shutdown, after the built-in
// subsystems have stopped.
func (a *App) OnShutdown(fn func() error) {
	a.closers = append(a.closers, fn)
}
