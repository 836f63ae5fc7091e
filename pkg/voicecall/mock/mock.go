// Package mock provides a test double for the voicecall.Client interface.
//
// Client records every start request under the shape it was made with and
// lets tests drive registered listeners directly with Emit.
//
// Example:
//
//	c := &mock.Client{StartAssistantErr: errors.New("unsupported")}
//	_ = c.StartAssistant(ctx, "asst-1", voicecall.Overrides{})
//	c.Emit(voicecall.EventData{Event: voicecall.EventCallStart})
package mock

import (
	"context"
	"sync"

	"github.com/mockhire/mockhire/pkg/voicecall"
)

// Shape identifies which start method was called.
type Shape string

const (
	ShapeAssistant Shape = "assistant"
	ShapeWorkflow  Shape = "workflow"
	ShapeOptions   Shape = "options"
)

// StartCall records a single start request.
type StartCall struct {
	// Shape is the start method that was called.
	Shape Shape
	// ID is the assistant or workflow ID for the positional shapes.
	ID string
	// Overrides is set for the positional shapes.
	Overrides voicecall.Overrides
	// Options is set for [ShapeOptions].
	Options voicecall.StartOptions
}

// Client is a mock implementation of voicecall.Client.
type Client struct {
	voicecall.Listeners

	mu sync.Mutex

	// StartAssistantErr, if non-nil, is returned by StartAssistant.
	StartAssistantErr error

	// StartWorkflowErr, if non-nil, is returned by StartWorkflow.
	StartWorkflowErr error

	// StartWithOptionsErr, if non-nil, is returned by StartWithOptions.
	StartWithOptionsErr error

	// StopErr, if non-nil, is returned by Stop.
	StopErr error

	// StartGate, if non-nil, makes every start method block until the channel
	// is closed or the context is done. A done context wins and its error is
	// returned.
	StartGate chan struct{}

	// EmitCallStart makes a successful start emit EventCallStart before
	// returning, like a real service would.
	EmitCallStart bool

	// EmitCallEnd makes Stop emit EventCallEnd before returning.
	EmitCallEnd bool

	// StartCalls records every start request in order.
	StartCalls []StartCall

	// StopCallCount is the number of times Stop was called.
	StopCallCount int
}

// StartAssistant records the call and returns StartAssistantErr.
func (c *Client) StartAssistant(ctx context.Context, assistantID string, overrides voicecall.Overrides) error {
	return c.start(ctx, StartCall{Shape: ShapeAssistant, ID: assistantID, Overrides: overrides}, func() error { return c.StartAssistantErr })
}

// StartWorkflow records the call and returns StartWorkflowErr.
func (c *Client) StartWorkflow(ctx context.Context, workflowID string, overrides voicecall.Overrides) error {
	return c.start(ctx, StartCall{Shape: ShapeWorkflow, ID: workflowID, Overrides: overrides}, func() error { return c.StartWorkflowErr })
}

// StartWithOptions records the call and returns StartWithOptionsErr.
func (c *Client) StartWithOptions(ctx context.Context, opts voicecall.StartOptions) error {
	return c.start(ctx, StartCall{Shape: ShapeOptions, Options: opts}, func() error { return c.StartWithOptionsErr })
}

func (c *Client) start(ctx context.Context, call StartCall, errFn func() error) error {
	c.mu.Lock()
	c.StartCalls = append(c.StartCalls, call)
	gate := c.StartGate
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	err := errFn()
	emit := c.EmitCallStart
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if emit {
		c.Emit(voicecall.EventData{Event: voicecall.EventCallStart})
	}
	return nil
}

// Stop records the call and returns StopErr.
func (c *Client) Stop(_ context.Context) error {
	c.mu.Lock()
	c.StopCallCount++
	err := c.StopErr
	emit := c.EmitCallEnd
	c.mu.Unlock()

	if err == nil && emit {
		c.Emit(voicecall.EventData{Event: voicecall.EventCallEnd})
	}
	return err
}

// Calls returns a copy of StartCalls. Thread-safe.
func (c *Client) Calls() []StartCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StartCall, len(c.StartCalls))
	copy(out, c.StartCalls)
	return out
}

// Stops returns StopCallCount. Thread-safe.
func (c *Client) Stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.StopCallCount
}

// ListenerCount returns the number of listeners registered across all
// events.
func (c *Client) ListenerCount() int {
	n := 0
	for _, e := range voicecall.Events {
		n += c.Count(e)
	}
	return n
}

// Reset clears all recorded calls. Thread-safe.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StartCalls = nil
	c.StopCallCount = 0
}

// Ensure Client implements voicecall.Client at compile time.
var _ voicecall.Client = (*Client)(nil)
