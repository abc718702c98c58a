package audioio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Writer encodes sample buffers into container files.
type Writer struct {
	settings Settings
	logger   *log.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSettings overrides the default encoding settings.
func WithSettings(s Settings) WriterOption { return func(w *Writer) { w.settings = s } }

// WithWriterLogger sets the logger.
func WithWriterLogger(l *log.Logger) WriterOption { return func(w *Writer) { w.logger = l } }

// NewWriter creates a writer, validating its settings.
func NewWriter(opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		settings: DefaultSettings(),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.settings.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Settings returns the writer's encoding settings.
func (w *Writer) Settings() Settings { return w.settings }

// Write encodes samples into the given container format at path. The file
// is encoded to a temporary sibling and renamed into place, so an external
// observer sees either no file or the complete file.
func (w *Writer) Write(samples []float32, path string, format Format) error {
	if len(samples) == 0 {
		return &EncodingError{Format: format, Reason: "no samples to encode"}
	}
	switch format {
	case FormatWAV:
		return w.writeWAV(samples, path)
	case FormatMP3, FormatFLAC, FormatOGG:
		return &EncodingError{Format: format, Reason: "no encoder built in"}
	default:
		return fmt.Errorf("format %v: %w", format, ErrUnknownFormat)
	}
}

// WriteAuto infers the container format from the path's extension.
func (w *Writer) WriteAuto(samples []float32, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	return w.Write(samples, path, format)
}

func (w *Writer) writeWAV(samples []float32, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	enc := wav.NewEncoder(tmp, w.settings.SampleRate, w.settings.BitDepth, w.settings.Channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: w.settings.Channels,
			SampleRate:  w.settings.SampleRate,
		},
		Data:           samplesToInts(samples, w.settings.BitDepth),
		SourceBitDepth: w.settings.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		discard()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		discard()
		return fmt.Errorf("finalize wav: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}

	w.logger.Debug("wrote audio file",
		"path", path, "samples", len(samples),
		"sample_rate", w.settings.SampleRate, "bit_depth", w.settings.BitDepth)
	return nil
}

// ReadWAV decodes a WAV file back into float samples, for verification and
// round-trip tests.
func ReadWAV(path string) ([]float32, Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Settings{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Settings{}, fmt.Errorf("decode wav: %w", err)
	}
	settings := Settings{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   int(dec.BitDepth),
		Quality:    1,
	}
	return intsToSamples(buf.Data, settings.BitDepth), settings, nil
}
