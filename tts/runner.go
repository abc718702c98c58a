package tts

import "context"

// InferenceRunner is the boundary to the neural inference runtime. The
// engine treats it as an opaque, possibly-failing function; any backend can
// substitute without touching orchestration code.
//
// Run maps a token sequence, a StyleDim-element style vector and a speed
// scalar to raw float PCM at the model's base sample rate.
type InferenceRunner interface {
	Run(ctx context.Context, tokens []int64, style []float32, speed float32) ([]float32, error)
}

// SessionFactory constructs a ready-to-run inference session from a verified
// model file. Construction is expensive (weight loading, graph compilation);
// the session pool amortizes it across requests.
type SessionFactory func(ctx context.Context, modelPath string) (InferenceRunner, error)
