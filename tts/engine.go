package tts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vocalize-ai/vocalize/internal/modelcache"
	"github.com/vocalize-ai/vocalize/tts/voice"
)

// Engine wires voice lookup, model acquisition and the session pool into a
// synthesis frontend. One Engine serves concurrent requests; the pool bounds
// how many run inference at once.
type Engine struct {
	cfg        Config
	voices     *voice.Registry
	cache      *modelcache.Manager
	factory    SessionFactory
	logger     *log.Logger
	timeout    time.Duration
	embeddings *voice.EmbeddingSet

	initMu sync.Mutex
	pool   *SessionPool
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithRegistry replaces the bundled voice registry.
func WithRegistry(r *voice.Registry) EngineOption {
	return func(e *Engine) { e.voices = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithInferenceTimeout bounds a single inference call.
func WithInferenceTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine builds an engine over a model cache and a session factory. The
// model is not downloaded and no session is built until the first request.
func NewEngine(cfg Config, cache *modelcache.Manager, factory SessionFactory, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cache == nil {
		return nil, fmt.Errorf("engine requires a model cache")
	}
	if factory == nil {
		return nil, fmt.Errorf("engine requires a session factory")
	}
	e := &Engine{
		cfg:     cfg,
		voices:  voice.NewRegistry(),
		cache:   cache,
		factory: factory,
		logger:  log.Default(),
		timeout: cfg.InferenceTimeout,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultInferenceTimeout
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Voices exposes the engine's registry.
func (e *Engine) Voices() *voice.Registry { return e.voices }

// ensureReady acquires the model artifact and builds the pool and the voice
// embedding set on first use. Concurrent first requests coalesce behind the
// mutex; the cache additionally coalesces the download itself across engines
// sharing a root. A failed acquisition leaves the engine unready so the next
// request retries it.
func (e *Engine) ensureReady(ctx context.Context) error {
	e.initMu.Lock()
	defer e.initMu.Unlock()
	if e.pool != nil {
		return nil
	}

	artifact, err := e.cache.EnsureAvailable(ctx, e.cfg.Model)
	if err != nil {
		return err
	}
	if path := artifact.VoicePath(); path != "" {
		set, err := voice.OpenEmbeddings(path)
		if err != nil {
			return fmt.Errorf("opening voice embeddings: %w", err)
		}
		e.embeddings = set
	}
	e.pool = NewSessionPool(artifact.ModelPath(), e.cfg.PoolSize, e.factory, e.logger)
	return nil
}

// NewRequest assembles a request for a registered voice, resolving its style
// vector and filling speed, pitch and chunk size from the voice and the
// engine configuration. The returned request can be adjusted before
// submission.
func (e *Engine) NewRequest(ctx context.Context, voiceID string, tokens []int64) (Request, error) {
	v, err := e.voices.Get(voiceID)
	if err != nil {
		return Request{}, err
	}
	if err := e.ensureReady(ctx); err != nil {
		return Request{}, err
	}
	style, err := e.styleFor(v.ID)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Voice:     v,
		Tokens:    tokens,
		Style:     style,
		Speed:     v.Speed,
		Pitch:     v.Pitch,
		ChunkSize: e.cfg.ChunkSize,
	}, nil
}

// styleFor loads a voice's style vector from the embedding archive, falling
// back to a neutral vector when the archive has no entry for it.
func (e *Engine) styleFor(voiceID string) ([]float32, error) {
	if e.embeddings != nil && e.embeddings.Has(voiceID) {
		return e.embeddings.Style(voiceID)
	}
	style := make([]float32, StyleDim)
	for i := range style {
		style[i] = 1.0
	}
	return style, nil
}

// Synthesize runs one request to completion and returns the concatenated
// audio. With a zero chunk size it issues a single inference call; otherwise
// it drains the stream, so the result is identical either way.
func (e *Engine) Synthesize(ctx context.Context, req Request) ([]float32, error) {
	chunks, errs := e.SynthesizeStream(ctx, req)

	var samples []float32
	for chunk := range chunks {
		samples = append(samples, chunk.Samples...)
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return samples, nil
}

// SynthesizeStream validates the request and emits audio chunks in token
// order as inference produces them. The chunk channel is unbuffered, so a
// slow consumer backpressures inference instead of accumulating audio. The
// error channel yields exactly one value after the chunk channel closes; nil
// means the stream completed. Cancelling ctx is the abandonment signal: a
// consumer that stops receiving without cancelling leaves the producer
// blocked on the next send and its session held, so always cancel (or drain
// the chunk channel) when walking away early.
func (e *Engine) SynthesizeStream(ctx context.Context, req Request) (<-chan AudioChunk, <-chan error) {
	chunks := make(chan AudioChunk)
	errs := make(chan error, 1)

	fail := func(err error) (<-chan AudioChunk, <-chan error) {
		close(chunks)
		errs <- err
		return chunks, errs
	}

	if err := req.Validate(); err != nil {
		return fail(err)
	}
	if err := e.ensureReady(ctx); err != nil {
		return fail(err)
	}

	sess, err := e.pool.Acquire(ctx)
	if err != nil {
		return fail(err)
	}

	id := uuid.NewString()
	style := applyPitch(req.Style, req.Pitch)
	wins := windows(req.Tokens, req.ChunkSize)
	e.logger.Debug("synthesis started",
		"request", id, "voice", req.Voice.ID, "session", sess.ID(),
		"tokens", len(req.Tokens), "chunks", len(wins))

	go func() {
		defer close(chunks)
		defer e.pool.Release(sess)

		start := time.Now()
		for i, win := range wins {
			samples, err := e.runWindow(ctx, sess, win, style, req.Speed)
			if err != nil {
				e.logger.Error("synthesis failed", "request", id, "chunk", i, "error", err)
				errs <- err
				return
			}
			chunk := AudioChunk{
				Index:      i,
				Samples:    samples,
				SampleRate: req.Voice.SampleRate,
				Last:       i == len(wins)-1,
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		e.logger.Debug("synthesis finished", "request", id, "elapsed", time.Since(start))
		errs <- nil
	}()

	return chunks, errs
}

// runWindow issues one inference call under the engine's timeout.
func (e *Engine) runWindow(ctx context.Context, sess *Session, tokens []int64, style []float32, speed float32) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return sess.Run(callCtx, tokens, style, speed)
}

// applyPitch folds the pitch adjustment into the style vector. The runtime
// has no pitch input; scaling the style embedding uniformly shifts the
// voice's register while leaving timing to the speed scalar. A zero pitch
// returns the vector unchanged.
func applyPitch(style []float32, pitch float32) []float32 {
	if pitch == 0 {
		return style
	}
	scale := 1.0 + pitch*0.3
	out := make([]float32, len(style))
	for i, s := range style {
		out[i] = s * scale
	}
	return out
}

// Stats reports session pool counters. Before the first request the pool
// does not exist yet and the zero value is returned.
func (e *Engine) Stats() Stats {
	e.initMu.Lock()
	pool := e.pool
	e.initMu.Unlock()
	if pool == nil {
		return Stats{}
	}
	return pool.Stats()
}

// Close releases pooled sessions and the embedding archive.
func (e *Engine) Close() error {
	e.initMu.Lock()
	pool, set := e.pool, e.embeddings
	e.initMu.Unlock()

	if pool != nil {
		pool.Close()
	}
	if set != nil {
		return set.Close()
	}
	return nil
}
