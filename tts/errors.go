package tts

import (
	"errors"
	"fmt"

	"github.com/vocalize-ai/vocalize/tts/voice"
)

var (
	// ErrInvalidParameter marks a request rejected before any session or
	// network resource was touched. It is the same sentinel the voice
	// package uses, so callers match one error across both.
	ErrInvalidParameter = voice.ErrInvalidParameter

	// ErrInference marks a failed inference call. The session that produced
	// it is discarded, never returned to the pool.
	ErrInference = errors.New("inference failed")

	// ErrPoolClosed is returned by acquisitions on a closed pool.
	ErrPoolClosed = errors.New("session pool is closed")
)

// InferenceError wraps a failure from the inference runtime with the session
// that produced it.
type InferenceError struct {
	Session int
	Err     error
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference on session %d failed: %v", e.Session, e.Err)
}

// Unwrap exposes the ErrInference sentinel and the underlying cause.
func (e *InferenceError) Unwrap() []error { return []error{ErrInference, e.Err} }
