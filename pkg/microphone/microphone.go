// Package microphone defines the Requester interface for obtaining
// permission to capture audio from the user's microphone, together with a
// few host-side implementations.
//
// A Requester answers a single question: may the application use the
// microphone now? It returns nil when access is granted and an error wrapping
// [ErrDenied] when it is refused. Other errors (for example a cancelled
// context) are returned unwrapped and should be treated as a denial by
// callers that only care about the outcome.
package microphone

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrDenied is returned (wrapped) when microphone access was refused.
var ErrDenied = errors.New("microphone: permission denied")

// Requester asks for microphone access.
//
// Implementations must be safe for concurrent use.
type Requester interface {
	// Request blocks until access is granted, denied, or ctx is done.
	Request(ctx context.Context) error
}

// ── Static ─────────────────────────────────────────────────────────────────────

// Static answers every request with a fixed decision. It is useful for
// headless runs where the voice-call service captures audio on its own.
type Static struct {
	Granted bool
}

// Request returns nil when s.Granted is set and [ErrDenied] otherwise.
func (s Static) Request(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.Granted {
		return fmt.Errorf("%w: disabled by configuration", ErrDenied)
	}
	return nil
}

// ── ALSA ───────────────────────────────────────────────────────────────────────

const defaultSoundDir = "/dev/snd"

// ALSA grants access when the host exposes at least one ALSA capture device.
type ALSA struct {
	// Dir is the device directory. Defaults to /dev/snd.
	Dir string
}

// Request reports whether a capture device (pcmC*D*c) exists in the device
// directory.
func (a ALSA) Request(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := a.Dir
	if dir == "" {
		dir = defaultSoundDir
	}
	matches, err := filepath.Glob(filepath.Join(dir, "pcmC*D*c"))
	if err != nil {
		return fmt.Errorf("microphone: scan %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("%w: no capture device in %s", ErrDenied, dir)
	}
	return nil
}

var (
	_ Requester = Static{}
	_ Requester = ALSA{}
)
