// Package vapi implements voicecall.Client for the Vapi web-call service.
//
// Each call runs over its own WebSocket connection. A start request dials
// the service, sends a start frame and waits for the service to confirm the
// call (call-start) or reject it. Server notifications are decoded on a
// receive goroutine and dispatched to the listeners registered with On.
// Stop sends a stop frame and waits for call-end before closing the
// connection.
package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mockhire/mockhire/pkg/voicecall"
)

// Compile-time assertion that Client satisfies voicecall.Client.
var _ voicecall.Client = (*Client)(nil)

const defaultBaseURL = "wss://api.vapi.ai/call/web"

// ErrCallActive is returned by the start methods while another call is
// still running on the client.
var ErrCallActive = errors.New("vapi: call already active")

// ── Options ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL overrides the WebSocket URL. Primarily used in tests to point at
// a local mock server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets the HTTP client used for the WebSocket handshake.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// ── Client ─────────────────────────────────────────────────────────────────────

// Client implements voicecall.Client over the Vapi WebSocket protocol.
type Client struct {
	voicecall.Listeners

	publicKey  string
	baseURL    string
	httpClient *http.Client

	mu   sync.Mutex
	call *call
}

// New creates a Client authenticating with the given public key.
func New(publicKey string, opts ...Option) *Client {
	c := &Client{
		publicKey: publicKey,
		baseURL:   defaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type startFrame struct {
	Type           string                  `json:"type"`
	RequestID      string                  `json:"requestId"`
	AssistantID    string                  `json:"assistantId,omitempty"`
	WorkflowID     string                  `json:"workflowId,omitempty"`
	VariableValues map[string]string       `json:"variableValues,omitempty"`
	Options        *voicecall.StartOptions `json:"options,omitempty"`
}

type stopFrame struct {
	Type string `json:"type"`
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

type serverErrorDetail struct {
	Message string `json:"message"`
}

type serverEvent struct {
	Type string `json:"type"`

	// speech-start / speech-end
	User bool `json:"user,omitempty"`

	// message
	Message *voicecall.Message `json:"message,omitempty"`

	// error / start-rejected
	Error *serverErrorDetail `json:"error,omitempty"`
}

func (e *serverEvent) err() error {
	msg := "unknown error"
	if e.Error != nil && e.Error.Message != "" {
		msg = e.Error.Message
	}
	return fmt.Errorf("vapi: %s", msg)
}

// ── Start / Stop ───────────────────────────────────────────────────────────────

// StartAssistant starts a call against a single assistant.
func (c *Client) StartAssistant(ctx context.Context, assistantID string, overrides voicecall.Overrides) error {
	return c.start(ctx, startFrame{
		Type:           "start",
		AssistantID:    assistantID,
		VariableValues: overrides.VariableValues,
	})
}

// StartWorkflow starts a call that runs a workflow.
func (c *Client) StartWorkflow(ctx context.Context, workflowID string, overrides voicecall.Overrides) error {
	return c.start(ctx, startFrame{
		Type:           "start",
		WorkflowID:     workflowID,
		VariableValues: overrides.VariableValues,
	})
}

// StartWithOptions starts a call using the options-object request shape.
func (c *Client) StartWithOptions(ctx context.Context, opts voicecall.StartOptions) error {
	return c.start(ctx, startFrame{Type: "start", Options: &opts})
}

func (c *Client) start(ctx context.Context, frame startFrame) error {
	c.mu.Lock()
	if c.call != nil {
		c.mu.Unlock()
		return ErrCallActive
	}
	// Reserve the slot so concurrent starts fail fast.
	cl := &call{
		started: make(chan error, 1),
		ended:   make(chan struct{}),
	}
	c.call = cl
	c.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, c.baseURL, &websocket.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + c.publicKey},
		},
	})
	if err != nil {
		c.release(cl)
		return fmt.Errorf("vapi: dial: %w", err)
	}

	callCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	cl.conn = conn
	cl.ctx = callCtx
	cl.cancel = cancel
	c.mu.Unlock()

	frame.RequestID = uuid.NewString()
	if err := cl.writeJSON(ctx, frame); err != nil {
		c.teardown(cl, "start failed")
		return fmt.Errorf("vapi: send start: %w", err)
	}

	go c.receiveLoop(cl)

	select {
	case err := <-cl.started:
		if err != nil {
			c.teardown(cl, "start rejected")
			return err
		}
		return nil
	case <-ctx.Done():
		c.teardown(cl, "start cancelled")
		return ctx.Err()
	}
}

// Stop ends the active call. It returns once the service has sent call-end
// or ctx is done; the connection is closed in both cases.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	cl := c.call
	dialed := cl != nil && cl.conn != nil
	c.mu.Unlock()
	if !dialed {
		return nil
	}

	cl.setStopping()
	if err := cl.writeJSON(ctx, stopFrame{Type: "stop"}); err != nil {
		c.teardown(cl, "stop failed")
		select {
		case <-cl.ended:
			return nil
		default:
			return fmt.Errorf("vapi: send stop: %w", err)
		}
	}

	select {
	case <-cl.ended:
		c.teardown(cl, "call ended")
		return nil
	case <-ctx.Done():
		c.teardown(cl, "stop cancelled")
		return ctx.Err()
	}
}

// ── call ───────────────────────────────────────────────────────────────────────

// call is the state of one WebSocket connection.
type call struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	// started receives the outcome of the start request exactly once.
	started     chan error
	startedOnce sync.Once

	// ended is closed after call-end has been dispatched.
	ended     chan struct{}
	endedOnce sync.Once

	mu       sync.Mutex
	live     bool
	stopping bool

	closeOnce sync.Once
}

func (cl *call) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("vapi: marshal: %w", err)
	}
	return cl.conn.Write(ctx, websocket.MessageText, data)
}

func (cl *call) signalStart(err error) {
	cl.startedOnce.Do(func() { cl.started <- err })
}

func (cl *call) markEnded() {
	cl.endedOnce.Do(func() { close(cl.ended) })
}

func (cl *call) isLive() bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.live
}

func (cl *call) setLive(v bool) (was bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	was = cl.live
	cl.live = v
	return was
}

func (cl *call) setStopping() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.stopping = true
}

// closedOnPurpose reports whether err ends the call as agreed: the service
// closed normally, or it closed after a stop was requested.
func (cl *call) closedOnPurpose(err error) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.stopping || websocket.CloseStatus(err) == websocket.StatusNormalClosure
}

// release frees the client slot if it is still held by cl.
func (c *Client) release(cl *call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.call == cl {
		c.call = nil
	}
}

// teardown closes the connection of cl and frees the client slot. Idempotent.
func (c *Client) teardown(cl *call, reason string) {
	cl.closeOnce.Do(func() {
		cl.cancel()
		_ = cl.conn.Close(websocket.StatusNormalClosure, reason)
	})
	c.release(cl)
}

// receiveLoop reads events from the WebSocket and dispatches them until the
// connection closes.
func (c *Client) receiveLoop(cl *call) {
	for {
		_, data, err := cl.conn.Read(cl.ctx)
		if err != nil {
			c.handleReadError(cl, err)
			return
		}

		var evt serverEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			slog.Debug("vapi: dropping malformed frame", "err", err)
			continue
		}

		if done := c.handleServerEvent(cl, &evt); done {
			c.teardown(cl, "call ended")
			return
		}
	}
}

// handleServerEvent dispatches one server event. It reports whether the call
// is over.
func (c *Client) handleServerEvent(cl *call, evt *serverEvent) bool {
	switch voicecall.Event(evt.Type) {
	case voicecall.EventCallStart:
		cl.setLive(true)
		c.Emit(voicecall.EventData{Event: voicecall.EventCallStart})
		cl.signalStart(nil)

	case voicecall.EventCallEnd:
		live := cl.setLive(false)
		cl.signalStart(errors.New("vapi: call ended before it started"))
		if live {
			c.Emit(voicecall.EventData{Event: voicecall.EventCallEnd})
		}
		cl.markEnded()
		return true

	case voicecall.EventSpeechStart, voicecall.EventSpeechEnd:
		c.Emit(voicecall.EventData{Event: voicecall.Event(evt.Type), User: evt.User})

	case voicecall.EventMessage:
		if evt.Message == nil {
			return false
		}
		c.Emit(voicecall.EventData{Event: voicecall.EventMessage, Message: *evt.Message})

	case voicecall.EventError:
		if !cl.isLive() {
			// Not live yet: the error rejects the pending start.
			cl.signalStart(evt.err())
			return false
		}
		c.Emit(voicecall.EventData{Event: voicecall.EventError, Err: evt.err()})

	case "start-rejected":
		cl.signalStart(evt.err())
	}
	return false
}

func (c *Client) handleReadError(cl *call, err error) {
	if cl.ctx.Err() != nil {
		// Closed locally.
		cl.markEnded()
		return
	}
	if cl.closedOnPurpose(err) {
		cl.signalStart(fmt.Errorf("vapi: call closed before it started: %w", err))
		if cl.setLive(false) {
			c.Emit(voicecall.EventData{Event: voicecall.EventCallEnd})
		}
		cl.markEnded()
		c.teardown(cl, "call ended")
		return
	}
	lost := fmt.Errorf("vapi: connection lost: %w", err)
	cl.signalStart(lost)
	if cl.setLive(false) {
		c.Emit(voicecall.EventData{Event: voicecall.EventError, Err: lost})
		c.Emit(voicecall.EventData{Event: voicecall.EventCallEnd})
	}
	cl.markEnded()
	c.teardown(cl, "connection lost")
}
