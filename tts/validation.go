package tts

import (
	"fmt"
	"math"

	"github.com/vocalize-ai/vocalize/tts/voice"
)

// Validate rejects malformed requests before any session or network
// resource is touched.
func (r Request) Validate() error {
	if len(r.Tokens) == 0 {
		return fmt.Errorf("token sequence is empty: %w", ErrInvalidParameter)
	}
	if len(r.Tokens) > MaxTokens {
		return &voice.ParameterError{
			Field: "tokens", Value: float64(len(r.Tokens)), Min: 1, Max: MaxTokens,
		}
	}
	if len(r.Style) != StyleDim {
		return fmt.Errorf("style vector has %d dimensions, model expects %d: %w",
			len(r.Style), StyleDim, ErrInvalidParameter)
	}
	for i, s := range r.Style {
		if f := float64(s); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("style vector value at index %d is not finite: %w", i, ErrInvalidParameter)
		}
	}
	if r.Speed < voice.MinSpeed || r.Speed > voice.MaxSpeed {
		return &voice.ParameterError{
			Field: "speed", Value: float64(r.Speed),
			Min: float64(voice.MinSpeed), Max: float64(voice.MaxSpeed),
		}
	}
	if r.Pitch < voice.MinPitch || r.Pitch > voice.MaxPitch {
		return &voice.ParameterError{
			Field: "pitch", Value: float64(r.Pitch),
			Min: float64(voice.MinPitch), Max: float64(voice.MaxPitch),
		}
	}
	if r.ChunkSize < 0 {
		return fmt.Errorf("chunk size cannot be negative: %w", ErrInvalidParameter)
	}
	return r.Voice.Validate()
}

// windows partitions tokens by position into chunkSize-length windows; the
// last window may be shorter. A zero chunk size, or one at least as long as
// the sequence, yields a single window.
func windows(tokens []int64, chunkSize int) [][]int64 {
	if chunkSize <= 0 || chunkSize >= len(tokens) {
		return [][]int64{tokens}
	}
	out := make([][]int64, 0, (len(tokens)+chunkSize-1)/chunkSize)
	for start := 0; start < len(tokens); start += chunkSize {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, tokens[start:end])
	}
	return out
}
