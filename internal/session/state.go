package session

import (
	"strings"

	"github.com/mockhire/mockhire/internal/backend"
)

// MicPermission is the outcome of the microphone permission request.
type MicPermission string

const (
	MicUnknown MicPermission = "unknown"
	MicGranted MicPermission = "granted"
	MicDenied  MicPermission = "denied"
)

// CallState is the observable state of one interview session. Only the
// [Controller] mutates it; callers get copies.
type CallState struct {
	IsCalling     bool          `json:"isCalling"`
	BotSpeaking   bool          `json:"botSpeaking"`
	UserSpeaking  bool          `json:"userSpeaking"`
	Loading       bool          `json:"loading"`
	MicPermission MicPermission `json:"micPermission"`
	ErrorMessage  string        `json:"errorMessage,omitempty"`
}

// Transcript is the ordered list of final transcript lines of one call.
// The zero value is empty and ready to use. It is not safe for concurrent
// use; the Controller guards it with its own lock.
type Transcript struct {
	lines []string
}

// Append adds one "<speaker>: <text>" line. Empty text is ignored.
func (t *Transcript) Append(speaker, text string) bool {
	if text == "" {
		return false
	}
	t.lines = append(t.lines, speaker+": "+text)
	return true
}

// Reset empties the transcript.
func (t *Transcript) Reset() { t.lines = nil }

// Len returns the number of lines.
func (t *Transcript) Len() int { return len(t.lines) }

// Join returns the lines separated by newlines.
func (t *Transcript) Join() string { return strings.Join(t.lines, "\n") }

// ResultsRoute is the navigation state of the results screen.
type ResultsRoute struct {
	Analysis   *backend.AnalysisResult
	Transcript string
}

// IsZero reports whether r has no analysis to show.
func (r ResultsRoute) IsZero() bool { return r.Analysis == nil }

// Navigator moves the user between screens. Implementations must not block.
type Navigator interface {
	ToDashboard()
	ToResults(ResultsRoute)
}
