package audioio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vocalize-ai/vocalize/tts"
)

// drainPipe consumes the read side of the pipe and reports what it saw.
func drainPipe(pr *io.PipeReader) (<-chan int, <-chan error) {
	bytesRead := make(chan int, 1)
	readErr := make(chan error, 1)
	go func() {
		n, err := io.Copy(io.Discard, pr)
		bytesRead <- int(n)
		readErr <- err
	}()
	return bytesRead, readErr
}

// TestFeedChunksCleanFinish tests that a terminal chunk ends the feed with
// all samples delivered and a nil result.
func TestFeedChunksCleanFinish(t *testing.T) {
	pr, pw := io.Pipe()
	bytesRead, readErr := drainPipe(pr)

	chunks := make(chan tts.AudioChunk, 2)
	errs := make(chan error, 1)
	chunks <- tts.AudioChunk{Index: 0, Samples: make([]float32, 100), SampleRate: 24000}
	chunks <- tts.AudioChunk{Index: 1, Samples: make([]float32, 50), SampleRate: 24000, Last: true}
	errs <- nil
	close(chunks)

	if err := feedChunks(context.Background(), pw, chunks, errs, log.Default()); err != nil {
		t.Fatalf("feedChunks failed: %v", err)
	}
	if got := <-bytesRead; got != 150*2 {
		t.Errorf("sink received %d bytes, want %d", got, 150*2)
	}
	if err := <-readErr; err != nil {
		t.Errorf("sink read error = %v, want clean EOF", err)
	}
}

// TestFeedChunksReportsProducerFailure tests the window where the producer
// has already failed: the error channel holds the failure and the chunk
// channel is closed, both ready at once. End-of-chunks must not win the
// race and turn the failure into a clean finish.
func TestFeedChunksReportsProducerFailure(t *testing.T) {
	synthErr := errors.New("inference failed mid-stream")

	// The select picks ready cases at random, so repeat to cover both
	// orders.
	for i := 0; i < 50; i++ {
		pr, pw := io.Pipe()
		_, readErr := drainPipe(pr)

		chunks := make(chan tts.AudioChunk)
		errs := make(chan error, 1)
		errs <- synthErr
		close(chunks)

		if err := feedChunks(context.Background(), pw, chunks, errs, log.Default()); !errors.Is(err, synthErr) {
			t.Fatalf("feedChunks = %v, want %v", err, synthErr)
		}
		if err := <-readErr; !errors.Is(err, synthErr) {
			t.Errorf("sink saw %v, want the synthesis error", err)
		}
	}
}

// TestFeedChunksMidStreamFailure tests a stream that delivers audio and
// then fails before its terminal chunk.
func TestFeedChunksMidStreamFailure(t *testing.T) {
	synthErr := errors.New("session crashed")

	pr, pw := io.Pipe()
	drainPipe(pr)

	chunks := make(chan tts.AudioChunk, 1)
	errs := make(chan error, 1)
	chunks <- tts.AudioChunk{Index: 0, Samples: make([]float32, 10), SampleRate: 24000}
	errs <- synthErr
	close(chunks)

	if err := feedChunks(context.Background(), pw, chunks, errs, log.Default()); !errors.Is(err, synthErr) {
		t.Errorf("feedChunks = %v, want %v", err, synthErr)
	}
}

// TestFeedChunksCancellation tests that cancelling the context aborts the
// feed.
func TestFeedChunksCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	drainPipe(pr)

	chunks := make(chan tts.AudioChunk)
	errs := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := feedChunks(ctx, pw, chunks, errs, log.Default()); !errors.Is(err, context.Canceled) {
		t.Errorf("feedChunks = %v, want context.Canceled", err)
	}
}
