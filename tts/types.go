// Package tts is the synthesis orchestration engine. It drives an opaque
// neural inference runtime through a pool of shared sessions, splitting long
// token sequences into ordered streaming chunks and keeping first-audio
// latency independent of total input length.
package tts

import (
	"time"

	"github.com/vocalize-ai/vocalize/tts/voice"
)

// Model input limits. The inference runtime consumes an int64[1,L] token
// tensor, a float32[1,D] style tensor and a float32[1] speed tensor.
const (
	// MaxTokens is the longest token sequence a single inference call
	// accepts.
	MaxTokens = 512

	// StyleDim is the required style vector dimensionality.
	StyleDim = voice.StyleDim

	// DefaultInferenceTimeout bounds one inference call. Timed-out sessions
	// are presumed hung and discarded.
	DefaultInferenceTimeout = 30 * time.Second
)

// Request describes one synthesis invocation. It is owned by the pipeline
// for the duration of the call and discarded afterwards.
type Request struct {
	// Voice supplies the sample rate and default speed/pitch.
	Voice voice.Voice

	// Tokens is the phonemized input, non-empty, at most MaxTokens long.
	Tokens []int64

	// Style is the voice's StyleDim-element embedding.
	Style []float32

	// Speed is the speaking rate multiplier in [voice.MinSpeed, voice.MaxSpeed].
	Speed float32

	// Pitch is the pitch adjustment in [voice.MinPitch, voice.MaxPitch].
	Pitch float32

	// ChunkSize is the token window length for streaming. Zero submits the
	// whole sequence as a single inference call.
	ChunkSize int
}

// AudioChunk is one ordered slice of synthesized audio. Chunk indices are
// contiguous from zero within a request; exactly one chunk carries Last.
type AudioChunk struct {
	Index      int
	Samples    []float32
	SampleRate int
	Last       bool
}

// Duration returns the chunk's play time.
func (c AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}
