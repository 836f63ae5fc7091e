// Package mock provides a test double for the microphone.Requester interface.
package mock

import (
	"context"
	"sync"

	"github.com/mockhire/mockhire/pkg/microphone"
)

// Requester is a mock implementation of microphone.Requester.
//
// Answers are consumed in order, one per Request call. Once exhausted, Err is
// returned for every further call.
type Requester struct {
	mu sync.Mutex

	// Answers is the scripted sequence of results. A nil entry grants access.
	Answers []error

	// Err is returned once Answers is exhausted.
	Err error

	// CallCount is the number of times Request was called.
	CallCount int
}

// Deny returns microphone.ErrDenied, for use in Answers.
func Deny() error { return microphone.ErrDenied }

// Request records the call and returns the next scripted answer.
func (r *Requester) Request(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CallCount++
	if len(r.Answers) > 0 {
		a := r.Answers[0]
		r.Answers = r.Answers[1:]
		return a
	}
	return r.Err
}

// Calls returns CallCount. Thread-safe.
func (r *Requester) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.CallCount
}

// Ensure Requester implements microphone.Requester at compile time.
var _ microphone.Requester = (*Requester)(nil)
