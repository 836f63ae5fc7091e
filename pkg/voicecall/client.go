// Package voicecall defines the Client interface for real-time voice-call
// services.
//
// A voice-call service runs the whole conversational loop on its side: it
// captures the candidate's audio, transcribes it, lets an assistant (or a
// workflow of assistants) respond, and speaks the reply. The client only
// starts and stops the call and surfaces the service's lifecycle, speech and
// transcript notifications as events.
//
// Events are delivered to listeners registered per event name with
// [Client.On]. Listeners may be invoked from the client's internal receive
// goroutine and must not block; they must not call [Client.Stop] or any of
// the start methods directly.
//
// All implementations must be safe for concurrent use.
package voicecall

import "context"

// Event names a notification emitted by a [Client].
type Event string

const (
	// EventCallStart fires once the service has accepted a start request and
	// the call is live.
	EventCallStart Event = "call-start"

	// EventCallEnd fires when the call has ended, for any reason.
	EventCallEnd Event = "call-end"

	// EventSpeechStart fires when a participant starts speaking.
	// EventData.User tells whether it was the candidate or the assistant.
	EventSpeechStart Event = "speech-start"

	// EventSpeechEnd fires when a participant stops speaking.
	EventSpeechEnd Event = "speech-end"

	// EventMessage carries a conversation message, most notably transcripts.
	EventMessage Event = "message"

	// EventError reports a service or transport failure. The call should be
	// considered lost.
	EventError Event = "error"
)

// Events lists every event a Client can emit, in a stable order.
var Events = []Event{
	EventCallStart,
	EventCallEnd,
	EventSpeechStart,
	EventSpeechEnd,
	EventMessage,
	EventError,
}

// Transcript type and message type values used by the service.
const (
	TranscriptFinal   = "final"
	MessageTranscript = "transcript"
)

// Message is a conversation message emitted with [EventMessage].
//
// The service has shipped several message shapes over time, so the speaker
// and the text can each appear under more than one field. Use
// [Message.IsFinal], [Message.SpeakerName] and [Message.Content] rather than
// reading the fields directly.
type Message struct {
	// Type is the message type, e.g. "transcript", "conversation-update".
	Type string `json:"type,omitempty"`

	// TranscriptType is "final" or "partial" for transcript messages.
	TranscriptType string `json:"transcriptType,omitempty"`

	// Role is the conversational role ("user", "assistant").
	Role string `json:"role,omitempty"`

	// Speaker is an explicit speaker label, when the service provides one.
	Speaker string `json:"speaker,omitempty"`

	// User reports whether the message originates from the candidate.
	User bool `json:"user,omitempty"`

	// Transcript is the recognised text.
	Transcript string `json:"transcript,omitempty"`

	// Text is the message text for shapes that do not use Transcript.
	Text string `json:"text,omitempty"`
}

// IsFinal reports whether m is a completed (non-partial) transcript. An
// explicit TranscriptType takes precedence over the generic Type field.
func (m Message) IsFinal() bool {
	if m.TranscriptType != "" {
		return m.TranscriptType == TranscriptFinal
	}
	return m.Type == MessageTranscript
}

// SpeakerName resolves the speaker label for m: Speaker, then Role, then
// "User" or "Interviewer" depending on the user flag.
func (m Message) SpeakerName() string {
	switch {
	case m.Speaker != "":
		return m.Speaker
	case m.Role != "":
		return m.Role
	case m.User:
		return "User"
	default:
		return "Interviewer"
	}
}

// Content returns Transcript, or Text when Transcript is empty.
func (m Message) Content() string {
	if m.Transcript != "" {
		return m.Transcript
	}
	return m.Text
}

// EventData is the payload handed to a [Listener].
type EventData struct {
	// Event is the event name the payload was emitted for.
	Event Event

	// User is set on speech events when the candidate (not the assistant) is
	// the speaker.
	User bool

	// Message is set for [EventMessage].
	Message Message

	// Err is set for [EventError].
	Err error
}

// Listener handles one event. See the package documentation for the
// constraints listeners must respect.
type Listener func(EventData)

// Subscription is returned by [Client.On]. Unsubscribe removes the listener;
// calling it more than once is safe.
type Subscription interface {
	Unsubscribe()
}

// Overrides carries per-call customisation sent with a start request.
type Overrides struct {
	// VariableValues are substituted into the assistant's prompt templates.
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// StartOptions is the options-object form of a start request. Exactly one of
// AssistantID or WorkflowID should be set.
type StartOptions struct {
	AssistantID        string     `json:"assistantId,omitempty"`
	AssistantOverrides *Overrides `json:"assistantOverrides,omitempty"`
	WorkflowID         string     `json:"workflowId,omitempty"`

	// VariableValues is used with WorkflowID; assistants read their variables
	// from AssistantOverrides.
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// Client is the abstraction over a real-time voice-call service.
//
// The three start methods are alternative request shapes for the same
// operation. Services differ in which shape they accept, so callers that must
// work against several service versions try them in order. A start method
// returns once the call is live (after [EventCallStart] has been emitted) or
// once the service has rejected the request.
type Client interface {
	// On registers l for event e and returns a handle to remove it.
	On(e Event, l Listener) Subscription

	// StartAssistant starts a call against a single assistant.
	StartAssistant(ctx context.Context, assistantID string, overrides Overrides) error

	// StartWorkflow starts a call that runs a workflow.
	StartWorkflow(ctx context.Context, workflowID string, overrides Overrides) error

	// StartWithOptions starts a call using the options-object request shape.
	StartWithOptions(ctx context.Context, opts StartOptions) error

	// Stop ends the active call and returns once the service has confirmed
	// the end of the call or ctx is done. Stopping without an active call is
	// a no-op.
	Stop(ctx context.Context) error
}
