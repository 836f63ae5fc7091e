package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is matched (via errors.Is) by the error returned from
// [Sequence.Run] when every strategy failed.
var ErrAllFailed = errors.New("resilience: all strategies failed")

// Strategy is one way of performing an operation.
type Strategy struct {
	// Name identifies the strategy in logs, metrics and errors.
	Name string

	// Run performs the operation.
	Run func(ctx context.Context) error
}

// Attempt records the outcome of one strategy run.
type Attempt struct {
	Strategy string
	Err      error
}

// ExhaustedError is returned by [Sequence.Run] when no strategy succeeded.
type ExhaustedError struct {
	Attempts []Attempt
}

// Error reports the last failure, which is usually the most specific one.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrAllFailed, e.Last())
}

// Last returns the error of the final attempt.
func (e *ExhaustedError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Is makes errors.Is(err, ErrAllFailed) hold.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllFailed
}

// Unwrap exposes every attempt error to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Sequence is an ordered list of alternative strategies. Later strategies are
// tried only when the earlier ones fail.
type Sequence struct {
	strategies []Strategy
	onAttempt  func(Attempt)
}

// SequenceOption configures a [Sequence].
type SequenceOption func(*Sequence)

// WithAttemptHook registers fn to be called after every strategy run.
func WithAttemptHook(fn func(Attempt)) SequenceOption {
	return func(s *Sequence) { s.onAttempt = fn }
}

// NewSequence returns a Sequence over strategies, tried in the given order.
func NewSequence(strategies []Strategy, opts ...SequenceOption) *Sequence {
	s := &Sequence{strategies: strategies}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run tries each strategy in order and returns the name of the first one that
// succeeded. A done context stops the sequence immediately; its error is
// returned as is.
func (s *Sequence) Run(ctx context.Context) (string, error) {
	exhausted := &ExhaustedError{}
	for _, st := range s.strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		err := st.Run(ctx)
		attempt := Attempt{Strategy: st.Name, Err: err}
		if s.onAttempt != nil {
			s.onAttempt(attempt)
		}
		if err == nil {
			return st.Name, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		slog.Warn("strategy failed, trying next", "strategy", st.Name, "err", err)
		exhausted.Attempts = append(exhausted.Attempts, attempt)
	}
	if len(exhausted.Attempts) == 0 {
		return "", fmt.Errorf("%w: no strategies", ErrAllFailed)
	}
	return "", exhausted
}
