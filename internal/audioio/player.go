package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/vocalize-ai/vocalize/tts"
)

// ErrAudioDevice is returned when the playback device cannot be initialized.
var ErrAudioDevice = errors.New("audio device unavailable")

// Player streams synthesized audio chunks to the system's playback device.
// The device's own buffer provides backpressure: writes suspend while the
// sink is full, which in turn suspends chunk production upstream.
type Player struct {
	ctx        *oto.Context
	sampleRate int
	logger     *log.Logger
}

// NewPlayer initializes the playback device for mono float PCM at the given
// sample rate. Device contexts are process-wide and expensive; create one
// player and reuse it.
func NewPlayer(sampleRate int, logger *log.Logger) (*Player, error) {
	if logger == nil {
		logger = log.Default()
	}
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioDevice, err)
	}
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("%w: initialization timed out", ErrAudioDevice)
	}
	return &Player{ctx: otoCtx, sampleRate: sampleRate, logger: logger}, nil
}

// PlayStream consumes an ordered chunk sequence and feeds it to the device
// incrementally, returning once the final chunk has drained or the context
// is cancelled. A failure received on errs aborts playback and is returned;
// a truncated stream is never reported as success.
func (p *Player) PlayStream(ctx context.Context, chunks <-chan tts.AudioChunk, errs <-chan error) error {
	pr, pw := io.Pipe()
	player := p.ctx.NewPlayer(pr)
	player.Play()
	defer player.Close()

	if err := feedChunks(ctx, pw, chunks, errs, p.logger); err != nil {
		return err
	}

	// Let the device drain what it buffered.
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

// feedChunks pumps chunks into pw as device wire bytes until the stream
// ends. The chunk channel closing and the terminal error arriving become
// ready together when the producer fails, so end-of-chunks alone never
// means success: the error channel is always consulted before reporting a
// clean finish.
func feedChunks(ctx context.Context, pw *io.PipeWriter, chunks <-chan tts.AudioChunk, errs <-chan error, logger *log.Logger) (err error) {
	defer func() {
		if err != nil {
			pw.CloseWithError(err)
		} else {
			pw.Close()
		}
	}()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return streamResult(ctx, errs)
			}
			logger.Debug("playing chunk", "index", chunk.Index, "samples", len(chunk.Samples))
			// Blocks when the device buffer is full.
			if _, werr := pw.Write(samplesToPCM16LE(chunk.Samples)); werr != nil {
				return werr
			}
			if chunk.Last {
				return streamResult(ctx, errs)
			}
		case e, ok := <-errs:
			if ok && e != nil {
				return e
			}
			// A nil terminal value or a closed channel means the stream
			// will finish cleanly; stop selecting on it.
			errs = nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// streamResult awaits the stream's terminal error value. A nil errs channel
// means the terminal value was already consumed in the feed loop.
func streamResult(ctx context.Context, errs <-chan error) error {
	if errs == nil {
		return nil
	}
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
