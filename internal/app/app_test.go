package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/mockhire/mockhire/internal/app"
	"github.com/mockhire/mockhire/internal/backend"
	"github.com/mockhire/mockhire/internal/config"
	"github.com/mockhire/mockhire/internal/identity"
	"github.com/mockhire/mockhire/internal/observe"
	"github.com/mockhire/mockhire/internal/screen"
	micmock "github.com/mockhire/mockhire/pkg/microphone/mock"
	voicemock "github.com/mockhire/mockhire/pkg/voicecall/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

type fakeBackend struct {
	mu      sync.Mutex
	listErr error
	lists   int
}

func (f *fakeBackend) ListInterviews(context.Context) ([]backend.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return []backend.Interview{{ID: "1", Title: "backend_engineer"}}, f.listErr
}

func (f *fakeBackend) Role(context.Context, string) (*backend.Role, error) {
	return nil, backend.ErrRoleNotFound
}

func (f *fakeBackend) SubmitContact(context.Context, backend.Contact) error   { return nil }
func (f *fakeBackend) SubmitFeedback(context.Context, backend.Feedback) error { return nil }

func (f *fakeBackend) AnalyzeTranscript(context.Context, string) (*backend.AnalysisResult, error) {
	return &backend.AnalysisResult{TotalScore: 1}, nil
}

// testConfig returns a minimal config; the backend is always injected.
func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogInfo},
		Backend: config.BackendConfig{Origin: "http://localhost:8000"},
		Voice:   config.VoiceConfig{Provider: "vapi", AssistantID: "asst-1"},
		Identity: config.IdentityConfig{User: config.UserConfig{
			ID: "user_1", FirstName: "Ada",
		}},
	}
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newApp(t *testing.T, cfg *config.Config, in io.Reader, opts ...app.Option) (*app.App, *strings.Builder, *voicemock.Client) {
	t.Helper()
	var out strings.Builder
	voice := &voicemock.Client{}
	base := []app.Option{
		app.WithConsole(screen.NewConsole(in, &lockedWriter{w: &out})),
		app.WithBackend(&fakeBackend{}),
		app.WithMetrics(testMetrics(t)),
	}
	a, err := app.New(context.Background(), cfg,
		&app.Providers{Voice: voice, Microphone: &micmock.Requester{}},
		append(base, opts...)...,
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a, &out, voice
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type failingAuth struct{ err error }

func (f failingAuth) Authenticate(context.Context, string) (identity.User, error) {
	return identity.User{}, f.err
}

// ── New ──────────────────────────────────────────────────────────────────────

func TestNew_SignedInFromStaticUser(t *testing.T) {
	t.Parallel()

	a, _, _ := newApp(t, testConfig(), strings.NewReader(""))
	u, ok := a.User()
	if !ok {
		t.Fatal("expected a signed-in user")
	}
	if u.ID != "user_1" || u.FirstName != "Ada" {
		t.Errorf("user = %+v", u)
	}
	if a.StatusAddr() != "" {
		t.Errorf("status server enabled without listen_addr: %q", a.StatusAddr())
	}
}

func TestNew_SignedOut(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Identity.User = config.UserConfig{}
	a, _, _ := newApp(t, cfg, strings.NewReader(""))
	if _, ok := a.User(); ok {
		t.Error("expected nobody signed in")
	}
}

func TestNew_RejectedTokenStartsSignedOut(t *testing.T) {
	t.Parallel()

	a, _, _ := newApp(t, testConfig(), strings.NewReader(""),
		app.WithAuthenticator(failingAuth{err: identity.ErrInvalidToken}))
	if _, ok := a.User(); ok {
		t.Error("expected nobody signed in after a rejected token")
	}
}

func TestNew_AuthenticatorFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("network down")
	_, err := app.New(context.Background(), testConfig(),
		&app.Providers{Microphone: &micmock.Requester{}},
		app.WithConsole(screen.NewConsole(strings.NewReader(""), io.Discard)),
		app.WithBackend(&fakeBackend{}),
		app.WithMetrics(testMetrics(t)),
		app.WithAuthenticator(failingAuth{err: boom}),
	)
	if !errors.Is(err, boom) {
		t.Errorf("New() error = %v, want %v", err, boom)
	}
}

func TestNew_RequiresMicrophone(t *testing.T) {
	t.Parallel()

	_, err := app.New(context.Background(), testConfig(), &app.Providers{},
		app.WithConsole(screen.NewConsole(strings.NewReader(""), io.Discard)),
		app.WithBackend(&fakeBackend{}),
	)
	if err == nil {
		t.Fatal("expected error without a microphone requester")
	}
}

func TestNew_BackendFromConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Backend.Origin = "not a url"
	_, err := app.New(context.Background(), cfg,
		&app.Providers{Microphone: &micmock.Requester{}},
		app.WithConsole(screen.NewConsole(strings.NewReader(""), io.Discard)),
		app.WithMetrics(testMetrics(t)),
	)
	if err == nil || !strings.Contains(err.Error(), "init backend") {
		t.Errorf("New() error = %v, want backend init failure", err)
	}
}

// ── Run ──────────────────────────────────────────────────────────────────────

func TestRun_QuitFromDashboard(t *testing.T) {
	t.Parallel()

	a, out, _ := newApp(t, testConfig(), strings.NewReader("quit\n"))
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if !strings.Contains(out.String(), "Welcome, Ada.") {
		t.Errorf("dashboard not shown, output: %q", out.String())
	}
}

func TestRun_SignedOutStartsAtHome(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Identity.User = config.UserConfig{}
	a, out, _ := newApp(t, cfg, strings.NewReader("dashboard\nquit\n"))
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if !strings.Contains(out.String(), identity.SignInNotice) {
		t.Errorf("sign-in notice not shown, output: %q", out.String())
	}
}

func TestRun_EndOfInput(t *testing.T) {
	t.Parallel()

	a, _, _ := newApp(t, testConfig(), strings.NewReader(""))
	if err := a.Run(context.Background()); err != nil {
		t.Errorf("Run() = %v, want nil at end of input", err)
	}
}

func TestRun_StatusServer(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	pr, pw := io.Pipe()
	be := &fakeBackend{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "# metrics\n")
	})
	a, _, _ := newApp(t, cfg, pr, app.WithBackend(be), app.WithMetricsHandler(metrics))

	addr := a.StatusAddr()
	if addr == "" {
		t.Fatal("status server not listening")
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	base := "http://" + addr
	client := &http.Client{Timeout: 5 * time.Second}

	get := func(path string) (int, map[string]any) {
		t.Helper()
		resp, err := client.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		var body map[string]any
		if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
		return resp.StatusCode, body
	}

	if code, body := get("/healthz"); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("/healthz = %d %v", code, body)
	}
	if code, body := get("/readyz"); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("/readyz = %d %v", code, body)
	}
	if code, _ := get("/api/session"); code != http.StatusNotFound {
		t.Errorf("/api/session without interview = %d, want 404", code)
	}
	if code, _ := get("/metrics"); code != http.StatusOK {
		t.Errorf("/metrics = %d", code)
	}

	_ = pw.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after end of input")
	}
}

func TestRun_ReadinessReflectsBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	pr, pw := io.Pipe()
	defer pw.Close()
	a, err := app.New(context.Background(), cfg,
		&app.Providers{Microphone: &micmock.Requester{}},
		app.WithConsole(screen.NewConsole(pr, io.Discard)),
		app.WithBackend(&fakeBackend{listErr: errors.New("backend down")}),
		app.WithMetrics(testMetrics(t)),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	resp, err := http.Get("http://" + a.StatusAddr() + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable || body.Status != "fail" {
		t.Errorf("/readyz = %d %q, want 503 fail", resp.StatusCode, body.Status)
	}
	if !strings.HasPrefix(body.Checks["voice"], "warn:") {
		t.Errorf("voice check = %q, want a warning", body.Checks["voice"])
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() after cancel = %v", err)
	}
}

// ── Shutdown ─────────────────────────────────────────────────────────────────

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()

	a, _, voice := newApp(t, testConfig(), strings.NewReader(""))
	var closed int
	a.OnShutdown(func() error {
		closed++
		return nil
	})

	ctx := context.Background()
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("first Shutdown() returned error: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() returned error: %v", err)
	}
	if closed != 1 {
		t.Errorf("closer ran %d times, want 1", closed)
	}
	if voice.Stops() != 1 {
		t.Errorf("voice Stop called %d times, want 1", voice.Stops())
	}
}

func TestShutdown_DeadlineSkipsClosers(t *testing.T) {
	t.Parallel()

	a, _, _ := newApp(t, testConfig(), strings.NewReader(""))
	var ran bool
	a.OnShutdown(func() error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Shutdown(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Shutdown() = %v, want context.Canceled", err)
	}
	if ran {
		t.Error("closer ran after the deadline")
	}
}
