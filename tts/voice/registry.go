package voice

import "fmt"

// Registry holds the voice catalog. It is built once and read-only
// afterwards, so it is safe for unsynchronized concurrent reads.
type Registry struct {
	order  []string
	voices map[string]Voice
}

// NewRegistry returns a registry populated with the bundled voices.
func NewRegistry() *Registry {
	r, _ := NewRegistryWith(defaultVoices()...)
	return r
}

// NewRegistryWith builds a registry from the given voices, preserving their
// order. Every voice is validated; duplicate ids are rejected.
func NewRegistryWith(voices ...Voice) (*Registry, error) {
	r := &Registry{
		order:  make([]string, 0, len(voices)),
		voices: make(map[string]Voice, len(voices)),
	}
	for _, v := range voices {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("voice %q: %w", v.ID, err)
		}
		if _, dup := r.voices[v.ID]; dup {
			return nil, fmt.Errorf("duplicate voice id %q: %w", v.ID, ErrInvalidParameter)
		}
		r.order = append(r.order, v.ID)
		r.voices[v.ID] = v
	}
	return r, nil
}

// List returns all voices in registration order.
func (r *Registry) List() []Voice {
	out := make([]Voice, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.voices[id])
	}
	return out
}

// Get returns the voice with the given id, or ErrNotFound.
func (r *Registry) Get(id string) (Voice, error) {
	v, ok := r.voices[id]
	if !ok {
		return Voice{}, fmt.Errorf("voice %q: %w", id, ErrNotFound)
	}
	return v, nil
}

// Filter selects voices matching the given criteria. Zero-valued fields
// match everything. The result preserves registration order.
type Filter struct {
	Gender   Gender
	Language string
	Style    Style
}

// Filter returns the voices matching f, in registration order.
func (r *Registry) Filter(f Filter) []Voice {
	var out []Voice
	for _, id := range r.order {
		v := r.voices[id]
		if f.Gender != "" && v.Gender != f.Gender {
			continue
		}
		if f.Language != "" && !v.SupportsLanguage(f.Language) {
			continue
		}
		if f.Style != "" && v.Style != f.Style {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Default returns the registry's default voice.
func (r *Registry) Default() Voice {
	if v, err := r.Get(DefaultVoiceID); err == nil {
		return v
	}
	// Custom registries without the bundled default fall back to the first
	// registered voice.
	if len(r.order) > 0 {
		return r.voices[r.order[0]]
	}
	return New(DefaultVoiceID, "Bella", "en-US", GenderFemale, StyleNatural)
}

// Len returns the number of registered voices.
func (r *Registry) Len() int { return len(r.order) }

// Languages returns the deduplicated language tags of all voices, in
// registration order.
func (r *Registry) Languages() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range r.order {
		lang := r.voices[id].Language
		if !seen[lang] {
			seen[lang] = true
			out = append(out, lang)
		}
	}
	return out
}

// DefaultVoiceID is the voice used when a request does not name one.
const DefaultVoiceID = "af_bella"

func defaultVoices() []Voice {
	return []Voice{
		New("af_bella", "Bella", "en-US", GenderFemale, StyleNatural).
			WithDescription("Young, friendly female voice"),
		New("am_david", "David", "en-US", GenderMale, StyleProfessional).
			WithDescription("Professional male voice"),
		New("af_sarah", "Sarah", "en-US", GenderFemale, StyleCalm).
			WithDescription("Mature, warm female voice"),
		New("bf_emma", "Emma", "en-GB", GenderFemale, StyleProfessional).
			WithDescription("British female voice"),
		New("bm_james", "James", "en-GB", GenderMale, StyleNatural).
			WithDescription("British male voice"),
	}
}
