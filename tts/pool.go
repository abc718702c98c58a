package tts

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"
)

// Pool capacity bounds. Session construction loads model weights, so
// capacity stays small; concurrency beyond it queues on acquisition.
const (
	MinPoolSize     = 2
	MaxPoolSize     = 4
	DefaultPoolSize = 2
)

// clampPoolSize forces n into [MinPoolSize, MaxPoolSize], defaulting zero.
func clampPoolSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPoolSize
	case n < MinPoolSize:
		return MinPoolSize
	case n > MaxPoolSize:
		return MaxPoolSize
	}
	return n
}

// Session is one pooled inference handle. It is not safe for concurrent
// use; exactly one request owns it between Acquire and Release.
type Session struct {
	id     int
	runner InferenceRunner
	failed bool
}

// ID identifies the session in logs and errors.
func (s *Session) ID() int { return s.id }

// Run forwards one inference call to the underlying runtime. Any failure,
// including a context timeout, marks the session unhealthy so Release
// discards it instead of reusing it.
func (s *Session) Run(ctx context.Context, tokens []int64, style []float32, speed float32) ([]float32, error) {
	samples, err := s.runner.Run(ctx, tokens, style, speed)
	if err != nil {
		s.failed = true
		return nil, &InferenceError{Session: s.id, Err: err}
	}
	return samples, nil
}

// SessionPool maintains a bounded set of reusable inference sessions.
// Sessions are built lazily on first demand, handed to one request at a
// time, and returned to a free list on release. Failed sessions are
// discarded; their capacity slot frees up for a replacement.
type SessionPool struct {
	factory   SessionFactory
	modelPath string
	logger    *log.Logger

	sem *semaphore.Weighted

	mu        sync.Mutex
	capacity  int
	idle      []*Session
	nextID    int
	inUse     int
	built     int
	discarded int
	closed    bool
}

// NewSessionPool builds an empty pool of the given capacity over a verified
// model file. No session is constructed until the first acquisition.
func NewSessionPool(modelPath string, capacity int, factory SessionFactory, logger *log.Logger) *SessionPool {
	capacity = clampPoolSize(capacity)
	if logger == nil {
		logger = log.Default()
	}
	return &SessionPool{
		factory:   factory,
		modelPath: modelPath,
		logger:    logger,
		sem:       semaphore.NewWeighted(int64(capacity)),
		capacity:  capacity,
	}
}

// Acquire returns an exclusive session, blocking while all slots are busy.
// It prefers an idle session and only constructs a new one when the free
// list is empty. A failed construction releases the slot so a later
// acquisition retries it.
func (p *SessionPool) Acquire(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		sess := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.inUse++
		p.mu.Unlock()
		return sess, nil
	}
	id := p.nextID
	p.nextID++
	p.mu.Unlock()

	p.logger.Debug("building inference session", "session", id, "model", p.modelPath)
	runner, err := p.factory(ctx, p.modelPath)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	p.mu.Lock()
	p.built++
	p.inUse++
	p.mu.Unlock()
	return &Session{id: id, runner: runner}, nil
}

// Release returns a session to the pool. Healthy sessions rejoin the free
// list; failed ones are closed and dropped, leaving the slot free for a
// fresh construction.
func (p *SessionPool) Release(sess *Session) {
	if sess == nil {
		return
	}

	p.mu.Lock()
	p.inUse--
	if sess.failed || p.closed {
		p.discarded++
		p.mu.Unlock()
		p.closeRunner(sess)
		if sess.failed {
			p.logger.Debug("discarding failed session", "session", sess.id)
		}
	} else {
		p.idle = append(p.idle, sess)
		p.mu.Unlock()
	}
	p.sem.Release(1)
}

// Stats reports a point-in-time snapshot of the pool.
type Stats struct {
	Capacity  int
	Idle      int
	InUse     int
	Built     int
	Discarded int
}

// Stats returns current pool counters.
func (p *SessionPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Capacity:  p.capacity,
		Idle:      len(p.idle),
		InUse:     p.inUse,
		Built:     p.built,
		Discarded: p.discarded,
	}
}

// Close drains the free list and rejects further acquisitions. Sessions
// currently in use are closed when released.
func (p *SessionPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, sess := range idle {
		p.closeRunner(sess)
	}
}

func (p *SessionPool) closeRunner(sess *Session) {
	if c, ok := sess.runner.(io.Closer); ok {
		if err := c.Close(); err != nil {
			p.logger.Warn("closing inference session", "session", sess.id, "error", err)
		}
	}
}
