package voice

import (
	"errors"
	"testing"
)

// TestRegistryDefaults tests the bundled catalog.
func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()

	if r.Len() != 5 {
		t.Errorf("Expected 5 bundled voices, got %d", r.Len())
	}

	v, err := r.Get("af_bella")
	if err != nil {
		t.Fatalf("Get(af_bella) failed: %v", err)
	}
	if v.SampleRate != DefaultSampleRate {
		t.Errorf("Expected base rate %d, got %d", DefaultSampleRate, v.SampleRate)
	}
	if r.Default().ID != DefaultVoiceID {
		t.Errorf("Expected default voice %q, got %q", DefaultVoiceID, r.Default().ID)
	}
}

// TestRegistryGetNotFound tests lookup of an unknown id.
func TestRegistryGetNotFound(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("zz_nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// TestRegistryListOrder tests that List preserves registration order.
func TestRegistryListOrder(t *testing.T) {
	a := New("a_one", "One", "en-US", GenderFemale, StyleNatural)
	b := New("b_two", "Two", "en-GB", GenderMale, StyleCalm)
	c := New("c_three", "Three", "en-US", GenderNeutral, StyleCalm)

	r, err := NewRegistryWith(a, b, c)
	if err != nil {
		t.Fatalf("NewRegistryWith failed: %v", err)
	}

	got := r.List()
	want := []string{"a_one", "b_two", "c_three"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("List()[%d] = %q, want %q", i, got[i].ID, id)
		}
	}
}

// TestRegistryFilter tests filtering by gender, language and style.
func TestRegistryFilter(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"af_bella", "am_david", "af_sarah", "bf_emma", "bm_james"}},
		{"female", Filter{Gender: GenderFemale}, []string{"af_bella", "af_sarah", "bf_emma"}},
		{"british", Filter{Language: "en-GB"}, []string{"bf_emma", "bm_james"}},
		{"english primary", Filter{Language: "en"}, []string{"af_bella", "am_david", "af_sarah", "bf_emma", "bm_james"}},
		{"calm", Filter{Style: StyleCalm}, []string{"af_sarah"}},
		{"british male", Filter{Gender: GenderMale, Language: "en-GB"}, []string{"bm_james"}},
		{"no match", Filter{Language: "fr"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Filter(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter returned %d voices, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Filter()[%d] = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

// TestRegistryRejectsDuplicates tests duplicate id detection.
func TestRegistryRejectsDuplicates(t *testing.T) {
	a := New("a_one", "One", "en-US", GenderFemale, StyleNatural)
	_, err := NewRegistryWith(a, a)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for duplicate id, got %v", err)
	}
}

// TestRegistryLanguages tests language enumeration.
func TestRegistryLanguages(t *testing.T) {
	langs := NewRegistry().Languages()
	if len(langs) != 2 {
		t.Fatalf("Expected 2 languages, got %v", langs)
	}
	if langs[0] != "en-US" || langs[1] != "en-GB" {
		t.Errorf("Unexpected languages %v", langs)
	}
}
