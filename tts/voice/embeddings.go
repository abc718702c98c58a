package voice

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
)

// StyleDim is the dimensionality of a voice style embedding.
const StyleDim = 256

// ErrBadArchive is returned when the voice embedding archive is corrupt or
// has an unexpected layout.
var ErrBadArchive = errors.New("malformed voice embedding archive")

// EmbeddingSet reads style vectors from the bundled voice archive. The
// archive is a zip of one ".npy" entry per voice id; each entry holds a
// little-endian float32 matrix whose rows are per-frame style vectors. The
// synthesizer consumes the first row.
type EmbeddingSet struct {
	rc      *zip.ReadCloser
	entries map[string]*zip.File

	mu     sync.Mutex
	loaded map[string][]float32
}

// OpenEmbeddings opens the voice archive at path.
func OpenEmbeddings(path string) (*EmbeddingSet, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open voice archive %s: %w", path, err)
	}
	entries := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		name := strings.TrimSuffix(f.Name, ".npy")
		if name == f.Name || name == "" {
			continue
		}
		entries[name] = f
	}
	if len(entries) == 0 {
		rc.Close()
		return nil, fmt.Errorf("%s contains no voice entries: %w", path, ErrBadArchive)
	}
	return &EmbeddingSet{
		rc:      rc,
		entries: entries,
		loaded:  make(map[string][]float32),
	}, nil
}

// Close releases the underlying archive handle.
func (s *EmbeddingSet) Close() error { return s.rc.Close() }

// Voices returns the sorted voice ids present in the archive.
func (s *EmbeddingSet) Voices() []string {
	out := make([]string, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the archive contains an embedding for the voice id.
func (s *EmbeddingSet) Has(voiceID string) bool {
	_, ok := s.entries[voiceID]
	return ok
}

// Style returns the StyleDim-element style vector for the voice id, reading
// and caching it on first use. Returns ErrNotFound for unknown ids. The
// returned slice is shared; callers must not modify it.
func (s *EmbeddingSet) Style(voiceID string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.loaded[voiceID]; ok {
		return v, nil
	}
	entry, ok := s.entries[voiceID]
	if !ok {
		return nil, fmt.Errorf("voice embedding %q: %w", voiceID, ErrNotFound)
	}
	v, err := readStyleVector(entry)
	if err != nil {
		return nil, fmt.Errorf("voice embedding %q: %w", voiceID, err)
	}
	s.loaded[voiceID] = v
	return v, nil
}

func readStyleVector(entry *zip.File) ([]float32, error) {
	r, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	shape, err := readNpyHeader(r)
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 || shape[len(shape)-1] != StyleDim {
		return nil, fmt.Errorf("unexpected embedding shape %v, want trailing dimension %d: %w",
			shape, StyleDim, ErrBadArchive)
	}

	// Only the first row is needed; skip the rest of the entry.
	raw := make([]byte, StyleDim*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("short embedding data: %w", ErrBadArchive)
	}
	v := make([]float32, StyleDim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		if f := float64(v[i]); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite style value at index %d: %w", i, ErrBadArchive)
		}
	}
	return v, nil
}

var npyMagic = []byte("\x93NUMPY")

// readNpyHeader parses a .npy header, validates the dtype is little-endian
// float32 in C order, and returns the array shape. The reader is left
// positioned at the first data byte.
func readNpyHeader(r io.Reader) ([]int, error) {
	pre := make([]byte, 8)
	if _, err := io.ReadFull(r, pre); err != nil {
		return nil, fmt.Errorf("short npy preamble: %w", ErrBadArchive)
	}
	if string(pre[:6]) != string(npyMagic) {
		return nil, fmt.Errorf("bad npy magic: %w", ErrBadArchive)
	}
	major := pre[6]

	var headerLen int
	switch major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("short npy header length: %w", ErrBadArchive)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("short npy header length: %w", ErrBadArchive)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("unsupported npy version %d: %w", major, ErrBadArchive)
	}

	buf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("short npy header: %w", ErrBadArchive)
	}
	header := string(buf)

	if !strings.Contains(header, "'descr': '<f4'") {
		return nil, fmt.Errorf("embedding dtype must be little-endian float32: %w", ErrBadArchive)
	}
	if !strings.Contains(header, "'fortran_order': False") {
		return nil, fmt.Errorf("embedding must be C-ordered: %w", ErrBadArchive)
	}
	return parseNpyShape(header)
}

func parseNpyShape(header string) ([]int, error) {
	open := strings.Index(header, "(")
	end := strings.Index(header, ")")
	if open < 0 || end < open {
		return nil, fmt.Errorf("npy header missing shape: %w", ErrBadArchive)
	}
	var shape []int
	for _, part := range strings.Split(header[open+1:end], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad npy shape element %q: %w", part, ErrBadArchive)
		}
		shape = append(shape, n)
	}
	return shape, nil
}
