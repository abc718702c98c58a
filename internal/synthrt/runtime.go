// Package synthrt provides the built-in procedural synthesis runtime. It
// renders a deterministic waveform from the token sequence and style vector
// so the full pipeline works end to end without an external inference
// backend; a real neural runtime plugs in through the same factory boundary.
package synthrt

import (
	"context"
	"math"

	"github.com/charmbracelet/log"

	"github.com/vocalize-ai/vocalize/tts"
)

const (
	sampleRate     = 24000
	secPerToken    = 0.055
	baseFrequency  = 110.0
	frequencySpan  = 660.0
	tokenFreqSteps = 64
)

// Runner synthesizes audio procedurally. It is stateless and safe to pool.
type Runner struct {
	logger *log.Logger
}

// NewFactory returns a session factory producing procedural runners. The
// model path is logged but otherwise unused.
func NewFactory(logger *log.Logger) tts.SessionFactory {
	if logger == nil {
		logger = log.Default()
	}
	return func(ctx context.Context, modelPath string) (tts.InferenceRunner, error) {
		logger.Debug("procedural runtime session ready", "model", modelPath)
		return &Runner{logger: logger}, nil
	}
}

// Run maps each token to a short pitched segment. Token identity selects the
// frequency, the style vector's mean scales amplitude, and speed divides
// segment duration so faster speech yields proportionally less audio.
func (r *Runner) Run(ctx context.Context, tokens []int64, style []float32, speed float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	amp := styleAmplitude(style)
	perToken := int(float64(sampleRate) * secPerToken / float64(speed))
	if perToken < 1 {
		perToken = 1
	}

	out := make([]float32, 0, len(tokens)*perToken)
	phase := 0.0
	for _, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		freq := tokenFrequency(tok)
		step := 2 * math.Pi * freq / sampleRate
		for i := 0; i < perToken; i++ {
			// Short attack/decay ramp keeps token boundaries click-free.
			env := segmentEnvelope(i, perToken)
			out = append(out, float32(math.Sin(phase)*env*amp))
			phase += step
		}
	}
	return out, nil
}

func tokenFrequency(tok int64) float64 {
	step := tok % tokenFreqSteps
	if step < 0 {
		step += tokenFreqSteps
	}
	return baseFrequency + frequencySpan*float64(step)/float64(tokenFreqSteps)
}

// styleAmplitude reduces the style embedding to a stable gain in (0, 0.5].
func styleAmplitude(style []float32) float64 {
	if len(style) == 0 {
		return 0.25
	}
	var sum float64
	for _, s := range style {
		sum += math.Abs(float64(s))
	}
	mean := sum / float64(len(style))
	return 0.5 * (1 - math.Exp(-mean))
}

func segmentEnvelope(i, n int) float64 {
	ramp := n / 8
	if ramp < 1 {
		return 1
	}
	switch {
	case i < ramp:
		return float64(i) / float64(ramp)
	case i >= n-ramp:
		return float64(n-i) / float64(ramp)
	}
	return 1
}
