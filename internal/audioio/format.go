// Package audioio encodes synthesized sample buffers into audio containers
// and streams them to playback devices. File writes are atomic: a crash
// mid-encode never leaves a truncated file at the requested path.
package audioio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnknownFormat is returned when a path extension does not map to a
	// known audio container.
	ErrUnknownFormat = errors.New("unknown audio format")

	// ErrEncoding is the base error for unsupported format and settings
	// combinations.
	ErrEncoding = errors.New("encoding failed")
)

// EncodingError reports an unsupported format/settings combination.
type EncodingError struct {
	Format Format
	Reason string
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %s: %s", e.Format, e.Reason)
}

// Unwrap returns ErrEncoding.
func (e *EncodingError) Unwrap() error { return ErrEncoding }

// Format identifies an audio container format.
type Format int

// Supported container formats. WAV is the lossless baseline; the compressed
// formats share the same write contract but need an external encoder.
const (
	FormatWAV Format = iota
	FormatMP3
	FormatFLAC
	FormatOGG
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	case FormatFLAC:
		return "flac"
	case FormatOGG:
		return "ogg"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Extension returns the canonical file extension without the dot.
func (f Format) Extension() string { return f.String() }

// MIMEType returns the format's MIME type.
func (f Format) MIMEType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case FormatFLAC:
		return "audio/flac"
	case FormatOGG:
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// Lossy reports whether the format discards signal information.
func (f Format) Lossy() bool { return f == FormatMP3 || f == FormatOGG }

// Formats returns all known formats.
func Formats() []Format {
	return []Format{FormatWAV, FormatMP3, FormatFLAC, FormatOGG}
}

// FormatFromExtension maps a file extension (with or without the dot) to a
// Format, or returns ErrUnknownFormat.
func FormatFromExtension(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "wav", "wave":
		return FormatWAV, nil
	case "mp3":
		return FormatMP3, nil
	case "flac":
		return FormatFLAC, nil
	case "ogg", "oga":
		return FormatOGG, nil
	default:
		return 0, fmt.Errorf("extension %q: %w", ext, ErrUnknownFormat)
	}
}

// FormatFromPath infers the format from the path's extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return 0, fmt.Errorf("path %q has no extension: %w", path, ErrUnknownFormat)
	}
	return FormatFromExtension(ext)
}

// Settings is a validated encoding configuration.
type Settings struct {
	SampleRate int     // Output sample rate in Hz
	Channels   int     // 1 (mono) or 2 (stereo)
	BitDepth   int     // 16, 24 or 32 bits per sample
	Quality    float32 // Encoder quality hint in [0, 1] for lossy formats
}

// DefaultSettings matches the synthesis pipeline's native output.
func DefaultSettings() Settings {
	return Settings{
		SampleRate: 24000,
		Channels:   1,
		BitDepth:   16,
		Quality:    0.9,
	}
}

// Validate checks the settings against supported ranges.
func (s Settings) Validate() error {
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		return &EncodingError{Reason: fmt.Sprintf("sample rate %d outside [8000, 192000]", s.SampleRate)}
	}
	if s.Channels < 1 || s.Channels > 2 {
		return &EncodingError{Reason: fmt.Sprintf("channel count %d outside [1, 2]", s.Channels)}
	}
	switch s.BitDepth {
	case 16, 24, 32:
	default:
		return &EncodingError{Reason: fmt.Sprintf("bit depth %d not one of 16, 24, 32", s.BitDepth)}
	}
	if s.Quality < 0 || s.Quality > 1 {
		return &EncodingError{Reason: fmt.Sprintf("quality %g outside [0, 1]", s.Quality)}
	}
	return nil
}

// EstimateSize returns the approximate encoded size in bytes for n samples.
// Lossy formats assume a rough 10:1 reduction over PCM.
func EstimateSize(n int, f Format, s Settings) int64 {
	pcm := int64(n) * int64(s.BitDepth/8) * int64(s.Channels)
	switch f {
	case FormatWAV:
		return wavHeaderSize + pcm
	case FormatFLAC:
		return pcm * 6 / 10
	default:
		return pcm / 10
	}
}

// wavHeaderSize is the canonical RIFF/WAVE header length.
const wavHeaderSize = 44
