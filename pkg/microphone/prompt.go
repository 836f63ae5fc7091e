package microphone

import (
	"context"
	"fmt"
	"strings"
)

// Question is the text shown by [Prompt].
const Question = "Allow microphone access? [y/N]"

// Asker asks the user a question and returns the raw answer.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Prompt asks the user for microphone access through an [Asker], usually the
// interactive terminal.
type Prompt struct {
	asker Asker
}

// NewPrompt returns a Prompt that asks through a.
func NewPrompt(a Asker) *Prompt {
	return &Prompt{asker: a}
}

// Request asks [Question] and grants access on "y" or "yes" (any case).
// Everything else, including an empty answer, is a denial.
func (p *Prompt) Request(ctx context.Context) error {
	answer, err := p.asker.Ask(ctx, Question)
	if err != nil {
		return fmt.Errorf("microphone: prompt: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return fmt.Errorf("%w: declined by user", ErrDenied)
	}
}

var _ Requester = (*Prompt)(nil)
