// Package voice provides the voice catalog for speech synthesis. Voices are
// immutable values; a registry built at startup can be read concurrently
// without synchronization.
package voice

import (
	"errors"
	"fmt"
	"strings"
)

// Parameter bounds shared by voice construction and synthesis requests.
const (
	MinSpeed float32 = 0.1
	MaxSpeed float32 = 3.0
	MinPitch float32 = -1.0
	MaxPitch float32 = 1.0

	MinSampleRate = 8000
	MaxSampleRate = 48000
)

// DefaultSampleRate is the output rate of the default model.
const DefaultSampleRate = 24000

var (
	// ErrNotFound is returned when a voice id is not in the registry.
	ErrNotFound = errors.New("voice not found")

	// ErrInvalidParameter is the base error for out-of-range or malformed
	// voice and synthesis parameters.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ParameterError reports a parameter outside its allowed range. It unwraps
// to ErrInvalidParameter.
type ParameterError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s must be between %g and %g, got %g", e.Field, e.Min, e.Max, e.Value)
}

// Unwrap returns ErrInvalidParameter so callers can match with errors.Is.
func (e *ParameterError) Unwrap() error { return ErrInvalidParameter }

// Gender classifies a voice.
type Gender string

// Recognized gender tags.
const (
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderNeutral Gender = "neutral"
)

// Style describes a voice's speaking character.
type Style string

// Recognized style tags.
const (
	StyleNatural      Style = "natural"
	StyleProfessional Style = "professional"
	StyleExpressive   Style = "expressive"
	StyleCalm         Style = "calm"
	StyleEnergetic    Style = "energetic"
)

// Voice describes a synthesizer voice. A Voice is never mutated after
// registration; customization produces a new value.
type Voice struct {
	ID          string // Unique identifier (e.g. "af_bella")
	Name        string // Human-readable name
	Language    string // BCP 47 language tag (e.g. "en-US")
	Gender      Gender
	Style       Style
	SampleRate  int     // Base output rate in Hz
	Speed       float32 // Default speed multiplier (1.0 = normal)
	Pitch       float32 // Default pitch adjustment (0.0 = none)
	Description string
}

// New returns a voice with default sample rate, speed and pitch.
func New(id, name, language string, gender Gender, style Style) Voice {
	return Voice{
		ID:         id,
		Name:       name,
		Language:   language,
		Gender:     gender,
		Style:      style,
		SampleRate: DefaultSampleRate,
		Speed:      1.0,
		Pitch:      0.0,
	}
}

// WithDescription returns a copy with the description set.
func (v Voice) WithDescription(description string) Voice {
	v.Description = description
	return v
}

// WithSampleRate returns a copy with the sample rate set.
func (v Voice) WithSampleRate(rate int) Voice {
	v.SampleRate = rate
	return v
}

// WithSpeed returns a copy with the default speed set, or a ParameterError
// if speed is outside [MinSpeed, MaxSpeed].
func (v Voice) WithSpeed(speed float32) (Voice, error) {
	if speed < MinSpeed || speed > MaxSpeed {
		return Voice{}, &ParameterError{
			Field: "speed",
			Value: float64(speed),
			Min:   float64(MinSpeed),
			Max:   float64(MaxSpeed),
		}
	}
	v.Speed = speed
	return v, nil
}

// WithPitch returns a copy with the default pitch set, or a ParameterError
// if pitch is outside [MinPitch, MaxPitch].
func (v Voice) WithPitch(pitch float32) (Voice, error) {
	if pitch < MinPitch || pitch > MaxPitch {
		return Voice{}, &ParameterError{
			Field: "pitch",
			Value: float64(pitch),
			Min:   float64(MinPitch),
			Max:   float64(MaxPitch),
		}
	}
	v.Pitch = pitch
	return v, nil
}

// SupportsLanguage reports whether the voice matches the given language tag,
// either exactly or by primary subtag ("en" matches "en-US").
func (v Voice) SupportsLanguage(language string) bool {
	if strings.EqualFold(v.Language, language) {
		return true
	}
	primary, _, _ := strings.Cut(v.Language, "-")
	return strings.EqualFold(primary, language)
}

// Validate checks the voice for structural problems. Registered voices are
// always valid; this guards custom construction paths.
func (v Voice) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("voice id cannot be empty: %w", ErrInvalidParameter)
	}
	if v.Name == "" {
		return fmt.Errorf("voice name cannot be empty: %w", ErrInvalidParameter)
	}
	if v.Language == "" {
		return fmt.Errorf("voice language cannot be empty: %w", ErrInvalidParameter)
	}
	if v.Speed < MinSpeed || v.Speed > MaxSpeed {
		return &ParameterError{Field: "speed", Value: float64(v.Speed), Min: float64(MinSpeed), Max: float64(MaxSpeed)}
	}
	if v.Pitch < MinPitch || v.Pitch > MaxPitch {
		return &ParameterError{Field: "pitch", Value: float64(v.Pitch), Min: float64(MinPitch), Max: float64(MaxPitch)}
	}
	if v.SampleRate < MinSampleRate || v.SampleRate > MaxSampleRate {
		return &ParameterError{Field: "sample_rate", Value: float64(v.SampleRate), Min: MinSampleRate, Max: MaxSampleRate}
	}
	return nil
}
