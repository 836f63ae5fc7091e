package screen

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/mockhire/mockhire/internal/backend"
)

// Form outcome messages.
const (
	MsgSubmitted   = "✅ Feedback submitted successfully!"
	MsgSubmitFail  = "❌ Failed to submit feedback."
	MsgSubmitError = "❌ Error submitting feedback."
)

// FormSubmitter posts the public forms. *backend.Client implements it.
type FormSubmitter interface {
	SubmitContact(ctx context.Context, form backend.Contact) error
	SubmitFeedback(ctx context.Context, form backend.Feedback) error
}

// Contact is the contact form page.
type Contact struct {
	Console *Console
	Backend FormSubmitter
}

// Show implements Screen.
func (s *Contact) Show(ctx context.Context, _ Route) (Route, error) {
	c := s.Console
	c.Heading("Contact Us")

	var form backend.Contact
	fields := []struct {
		label string
		dst   *string
	}{
		{"Name:", &form.Name},
		{"Email:", &form.Email},
		{"Query:", &form.Query},
	}
	for _, f := range fields {
		v, err := c.Prompt(ctx, f.label)
		if err != nil {
			return Route{}, err
		}
		*f.dst = v
	}

	c.Println(submitMessage(s.Backend.SubmitContact(ctx, form)))
	return Route{Kind: KindBack}, nil
}

// Feedback is the feedback form page.
type Feedback struct {
	Console *Console
	Backend FormSubmitter
}

// Show implements Screen.
func (s *Feedback) Show(ctx context.Context, _ Route) (Route, error) {
	c := s.Console
	c.Heading("Feedback")

	var form backend.Feedback
	var err error
	if form.Name, err = c.Prompt(ctx, "Name:"); err != nil {
		return Route{}, err
	}
	if form.Email, err = c.Prompt(ctx, "Email:"); err != nil {
		return Route{}, err
	}
	if form.Message, err = c.Prompt(ctx, "Message:"); err != nil {
		return Route{}, err
	}
	rating, err := c.Prompt(ctx, "Rating (1-5):")
	if err != nil {
		return Route{}, err
	}
	// An unparsable rating stays 0 and fails validation.
	form.Rating, _ = strconv.Atoi(rating)

	c.Println(submitMessage(s.Backend.SubmitFeedback(ctx, form)))
	return Route{Kind: KindBack}, nil
}

// submitMessage maps a submission result to the message shown to the user.
func submitMessage(err error) string {
	var se *backend.StatusError
	switch {
	case err == nil:
		return MsgSubmitted
	case errors.Is(err, backend.ErrIncompleteForm):
		return backend.ErrIncompleteForm.Error()
	case errors.As(err, &se):
		slog.Warn("form rejected", "status", se.StatusCode, "endpoint", se.Endpoint)
		return MsgSubmitFail
	default:
		slog.Warn("form submission failed", "err", err)
		return MsgSubmitError
	}
}
