// Package backend is the HTTP client for the mockhire interview backend.
//
// The backend serves the interview listing, role details, transcript analysis
// and the contact and feedback forms under /api. Read endpoints go through a
// [resilience.CircuitBreaker]; writes are sent exactly once.
//
// Typical usage:
//
//	c, err := backend.New("https://api.mockhire.dev", backend.WithTimeout(10*time.Second))
//	interviews, err := c.ListInterviews(ctx)
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mockhire/mockhire/internal/observe"
	"github.com/mockhire/mockhire/internal/resilience"
)

// ---- constants ----

const (
	defaultTimeout = 30 * time.Second

	interviewsEndpoint = "/api/interviews"
	rolesEndpoint      = "/api/roles"
	transcriptEndpoint = "/api/transcript"
	contactEndpoint    = "/api/contact"
	feedbackEndpoint   = "/api/feedback"

	// maxErrorBody bounds how much of a failed response is kept in a
	// [StatusError].
	maxErrorBody = 4 << 10
)

// ---- errors ----

var (
	// ErrRoleNotFound is returned by [Client.Role] when the backend has no
	// role with the requested title.
	ErrRoleNotFound = errors.New("backend: role not found")

	// ErrIncompleteForm is returned when a form is submitted with missing
	// fields. Its text is shown to the user as is.
	ErrIncompleteForm = errors.New("Fill All Fields!")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("backend: %s %s returned status %d", e.Method, e.Endpoint, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether the failure is on the server side.
func (e *StatusError) Temporary() bool { return e.StatusCode >= 500 }

// ---- options ----

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithTimeout sets the per-request timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBreaker tunes the circuit breaker guarding read endpoints. Name,
// IsFailure and OnStateChange are filled in by the client when unset.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *Client) { c.breakerCfg = cfg }
}

// ---- Client ----

// Client talks to the interview backend. It is safe for concurrent use.
type Client struct {
	origin     string
	httpClient *http.Client
	metrics    *observe.Metrics
	breakerCfg resilience.CircuitBreakerConfig
	breaker    *resilience.CircuitBreaker
}

// New creates a Client for the backend at origin (scheme and host, e.g.
// "http://localhost:8000").
func New(origin string, opts ...Option) (*Client, error) {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("backend: origin %q must be an absolute http(s) URL", origin)
	}
	c := &Client{
		origin:     strings.TrimRight(origin, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}

	cfg := c.breakerCfg
	if cfg.Name == "" {
		cfg.Name = "backend"
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = breakerFailure
	}
	if cfg.OnStateChange == nil {
		m := c.metrics
		cfg.OnStateChange = func(name string, _, to resilience.State) {
			m.RecordBreakerTransition(context.Background(), name, to.String())
		}
	}
	c.breaker = resilience.NewCircuitBreaker(cfg)
	return c, nil
}

// Origin returns the backend origin without a trailing slash.
func (c *Client) Origin() string { return c.origin }

// BreakerState reports the state of the read-endpoint circuit breaker.
func (c *Client) BreakerState() resilience.State { return c.breaker.State() }

// breakerFailure counts server errors and transport failures. Client errors
// mean the backend is up and answering.
func breakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// ---- endpoints ----

type interviewsResponse struct {
	Data []Interview `json:"data"`
}

// ListInterviews returns every interview known to the backend.
func (c *Client) ListInterviews(ctx context.Context) ([]Interview, error) {
	var resp interviewsResponse
	if err := c.get(ctx, interviewsEndpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type roleResponse struct {
	Data json.RawMessage `json:"data"`
}

// Role returns the role details for title. The backend answers with either a
// single role or a list; for a list the first entry is used.
func (c *Client) Role(ctx context.Context, title string) (*Role, error) {
	var resp roleResponse
	if err := c.get(ctx, rolesEndpoint, url.Values{"title": {title}}, &resp); err != nil {
		return nil, err
	}

	data := bytes.TrimSpace(resp.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil, fmt.Errorf("%w: %q", ErrRoleNotFound, title)
	case data[0] == '[':
		var roles []Role
		if err := json.Unmarshal(data, &roles); err != nil {
			return nil, fmt.Errorf("backend: decode %s: %w", rolesEndpoint, err)
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrRoleNotFound, title)
		}
		return &roles[0], nil
	default:
		var role Role
		if err := json.Unmarshal(data, &role); err != nil {
			return nil, fmt.Errorf("backend: decode %s: %w", rolesEndpoint, err)
		}
		return &role, nil
	}
}

type transcriptRequest struct {
	Transcript string `json:"transcript"`
}

// AnalyzeTranscript submits a finished interview transcript and returns the
// backend's assessment. Any non-2xx response is a failure.
func (c *Client) AnalyzeTranscript(ctx context.Context, transcript string) (*AnalysisResult, error) {
	var res AnalysisResult
	if err := c.do(ctx, http.MethodPost, transcriptEndpoint, nil, transcriptRequest{Transcript: transcript}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitContact sends the contact form.
func (c *Client) SubmitContact(ctx context.Context, form Contact) error {
	if err := form.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, contactEndpoint, nil, form, nil)
}

// SubmitFeedback sends the feedback form.
func (c *Client) SubmitFeedback(ctx context.Context, form Feedback) error {
	if err := form.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, feedbackEndpoint, nil, form, nil)
}

// ---- transport ----

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	err := c.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, endpoint, query, nil, out)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.metrics.RecordBackendRequest(ctx, endpoint, "circuit_open", 0)
		return fmt.Errorf("backend: GET %s: %w", endpoint, err)
	}
	return err
}

// do performs one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded response.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any) (err error) {
	ctx, span := observe.StartSpan(ctx, "backend."+method+" "+endpoint)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", endpoint),
	)
	start := time.Now()
	status := "error"
	defer func() {
		c.metrics.RecordBackendRequest(ctx, endpoint, status, time.Since(start))
		observe.EndSpan(span, err)
	}()

	target := c.origin + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	observe.InjectHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", endpoint, err)
	}
	return nil
}
