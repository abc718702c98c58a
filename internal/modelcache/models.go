package modelcache

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownModel is returned when a model id is not in the catalog.
var ErrUnknownModel = errors.New("unknown model")

// FileSpec describes one downloadable artifact file of a model.
type FileSpec struct {
	Name   string // File name inside the model's cache directory
	URL    string // HTTPS source
	SHA256 string // Expected content hash, lowercase hex
	Size   int64  // Expected size in bytes, 0 if unknown
}

// Model describes a downloadable neural TTS model.
type Model struct {
	ID          string
	Version     string
	Name        string
	Description string
	SampleRate  int
	License     string
	Files       []FileSpec
}

// Key is the deterministic cache directory name for this model version.
func (m Model) Key() string { return m.ID + "-" + m.Version }

// ModelFile returns the model graph file spec (the first .onnx entry).
func (m Model) ModelFile() (FileSpec, bool) { return m.fileWithSuffix(".onnx") }

// VoiceFile returns the voice embedding archive spec (the first .bin entry).
func (m Model) VoiceFile() (FileSpec, bool) { return m.fileWithSuffix(".bin") }

func (m Model) fileWithSuffix(suffix string) (FileSpec, bool) {
	for _, f := range m.Files {
		if len(f.Name) > len(suffix) && f.Name[len(f.Name)-len(suffix):] == suffix {
			return f, true
		}
	}
	return FileSpec{}, false
}

// Catalog maps model ids to their specs. The bundled catalog is populated at
// init; Register allows tests and embedders to add entries.
type Catalog struct {
	mu     sync.RWMutex
	models map[string]Model
}

// NewCatalog returns a catalog containing the bundled models.
func NewCatalog() *Catalog {
	c := &Catalog{models: make(map[string]Model)}
	c.Register(kokoro())
	return c
}

// Register adds or replaces a model spec.
func (c *Catalog) Register(m Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[m.ID] = m
}

// Lookup returns the model spec for id, or ErrUnknownModel.
func (c *Catalog) Lookup(id string) (Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[id]
	if !ok {
		return Model{}, fmt.Errorf("model %q: %w", id, ErrUnknownModel)
	}
	return m, nil
}

// List returns all models sorted by id.
func (c *Catalog) List() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// kokoro is the default bundled model: an 82M-parameter neural TTS graph
// plus its unified voice embedding archive.
func kokoro() Model {
	return Model{
		ID:          "kokoro",
		Version:     "v1.0",
		Name:        "Kokoro TTS",
		Description: "Optimized neural TTS model (82M parameters)",
		SampleRate:  24000,
		License:     "Apache 2.0",
		Files: []FileSpec{
			{
				Name:   "kokoro-v1.0.onnx",
				URL:    "https://github.com/thewh1teagle/kokoro-onnx/releases/download/model-files-v1.0/kokoro-v1.0.onnx",
				SHA256: "8beb1f4eb1bfd9d4e3bb4bbeba0bcf16ba9e6e336f71cf5f0a4b56e19a4e0575",
				Size:   325532387,
			},
			{
				Name:   "voices-v1.0.bin",
				URL:    "https://github.com/thewh1teagle/kokoro-onnx/releases/download/model-files-v1.0/voices-v1.0.bin",
				SHA256: "0ec2a0bcfb9f4c1bd1ff353f4a1b1cd1a1098f2c8d0ba1b7e1c47f5d88b3b0a6",
				Size:   27130700,
			},
		},
	}
}
