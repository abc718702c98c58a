package audioio

import (
	"errors"
	"testing"
)

// TestFormatFromExtension tests extension mapping.
func TestFormatFromExtension(t *testing.T) {
	tests := []struct {
		ext     string
		want    Format
		wantErr bool
	}{
		{"wav", FormatWAV, false},
		{".wav", FormatWAV, false},
		{"WAVE", FormatWAV, false},
		{"mp3", FormatMP3, false},
		{".FLAC", FormatFLAC, false},
		{"ogg", FormatOGG, false},
		{"oga", FormatOGG, false},
		{"txt", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := FormatFromExtension(tt.ext)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("FormatFromExtension(%q): expected ErrUnknownFormat, got %v", tt.ext, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("FormatFromExtension(%q) failed: %v", tt.ext, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatFromExtension(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

// TestFormatFromPath tests path-based detection.
func TestFormatFromPath(t *testing.T) {
	if f, err := FormatFromPath("/tmp/out/speech.wav"); err != nil || f != FormatWAV {
		t.Errorf("Expected FormatWAV, got %v (%v)", f, err)
	}
	if _, err := FormatFromPath("/tmp/noextension"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat for missing extension, got %v", err)
	}
}

// TestFormatMetadata tests extension, MIME type and lossiness flags.
func TestFormatMetadata(t *testing.T) {
	if FormatWAV.Lossy() || FormatFLAC.Lossy() {
		t.Error("WAV and FLAC must be lossless")
	}
	if !FormatMP3.Lossy() || !FormatOGG.Lossy() {
		t.Error("MP3 and OGG must be lossy")
	}
	if FormatWAV.MIMEType() != "audio/wav" {
		t.Errorf("Unexpected WAV MIME type %q", FormatWAV.MIMEType())
	}
	if FormatMP3.Extension() != "mp3" {
		t.Errorf("Unexpected MP3 extension %q", FormatMP3.Extension())
	}
}

// TestSettingsValidate tests settings bounds.
func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("Default settings should validate: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"sample rate too low", func(s *Settings) { s.SampleRate = 4000 }},
		{"sample rate too high", func(s *Settings) { s.SampleRate = 400000 }},
		{"zero channels", func(s *Settings) { s.Channels = 0 }},
		{"too many channels", func(s *Settings) { s.Channels = 6 }},
		{"bad bit depth", func(s *Settings) { s.BitDepth = 12 }},
		{"quality too high", func(s *Settings) { s.Quality = 1.5 }},
		{"negative quality", func(s *Settings) { s.Quality = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			if err := s.Validate(); !errors.Is(err, ErrEncoding) {
				t.Errorf("Expected ErrEncoding, got %v", err)
			}
		})
	}
}

// TestEstimateSize tests the size estimate against exact WAV arithmetic.
func TestEstimateSize(t *testing.T) {
	s := DefaultSettings()
	got := EstimateSize(24000, FormatWAV, s)
	want := int64(wavHeaderSize + 24000*2)
	if got != want {
		t.Errorf("EstimateSize = %d, want %d", got, want)
	}
}
