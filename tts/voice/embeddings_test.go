package voice

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// buildNpy produces a minimal version-1 .npy payload holding rows of
// StyleDim little-endian float32 values.
func buildNpy(t *testing.T, rows int, fill func(row, col int) float32) []byte {
	t.Helper()

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, 1, %d), }\n", rows, StyleDim)
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		t.Fatalf("write header length: %v", err)
	}
	buf.WriteString(header)
	for r := 0; r < rows; r++ {
		for c := 0; c < StyleDim; c++ {
			if err := binary.Write(&buf, binary.LittleEndian, math.Float32bits(fill(r, c))); err != nil {
				t.Fatalf("write sample: %v", err)
			}
		}
	}
	return buf.Bytes()
}

// writeArchive writes an npz-style zip with one entry per voice id.
func writeArchive(t *testing.T, entries map[string][]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "voices-test.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name + ".npy")
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

// TestEmbeddingsStyle tests reading the first row of a voice entry.
func TestEmbeddingsStyle(t *testing.T) {
	data := buildNpy(t, 3, func(row, col int) float32 {
		return float32(row) + float32(col)/1000
	})
	path := writeArchive(t, map[string][]byte{"af_bella": data})

	set, err := OpenEmbeddings(path)
	if err != nil {
		t.Fatalf("OpenEmbeddings failed: %v", err)
	}
	defer set.Close()

	style, err := set.Style("af_bella")
	if err != nil {
		t.Fatalf("Style failed: %v", err)
	}
	if len(style) != StyleDim {
		t.Fatalf("Expected %d values, got %d", StyleDim, len(style))
	}
	// First row only: values must come from row 0.
	if style[0] != 0 {
		t.Errorf("Expected first value 0, got %g", style[0])
	}
	if style[100] != 0.1 {
		t.Errorf("Expected style[100] = 0.1, got %g", style[100])
	}

	// Second read hits the cache and returns the same slice.
	again, err := set.Style("af_bella")
	if err != nil {
		t.Fatalf("Second Style failed: %v", err)
	}
	if &again[0] != &style[0] {
		t.Error("Expected cached style vector on second read")
	}
}

// TestEmbeddingsUnknownVoice tests lookup of a missing voice id.
func TestEmbeddingsUnknownVoice(t *testing.T) {
	data := buildNpy(t, 1, func(int, int) float32 { return 0.5 })
	path := writeArchive(t, map[string][]byte{"af_bella": data})

	set, err := OpenEmbeddings(path)
	if err != nil {
		t.Fatalf("OpenEmbeddings failed: %v", err)
	}
	defer set.Close()

	if set.Has("zz_nobody") {
		t.Error("Has should report false for unknown ids")
	}
	if _, err := set.Style("zz_nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// TestEmbeddingsVoices tests id enumeration.
func TestEmbeddingsVoices(t *testing.T) {
	data := buildNpy(t, 1, func(int, int) float32 { return 1 })
	path := writeArchive(t, map[string][]byte{
		"bm_james": data,
		"af_bella": data,
	})

	set, err := OpenEmbeddings(path)
	if err != nil {
		t.Fatalf("OpenEmbeddings failed: %v", err)
	}
	defer set.Close()

	got := set.Voices()
	if len(got) != 2 || got[0] != "af_bella" || got[1] != "bm_james" {
		t.Errorf("Unexpected voice list %v", got)
	}
}

// TestEmbeddingsBadShape tests rejection of a wrong trailing dimension.
func TestEmbeddingsBadShape(t *testing.T) {
	header := "{'descr': '<f4', 'fortran_order': False, 'shape': (1, 1, 8), }\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	buf.Write(make([]byte, 8*4))

	path := writeArchive(t, map[string][]byte{"af_bella": buf.Bytes()})

	set, err := OpenEmbeddings(path)
	if err != nil {
		t.Fatalf("OpenEmbeddings failed: %v", err)
	}
	defer set.Close()

	if _, err := set.Style("af_bella"); !errors.Is(err, ErrBadArchive) {
		t.Errorf("Expected ErrBadArchive, got %v", err)
	}
}

// TestEmbeddingsEmptyArchive tests rejection of an archive with no entries.
func TestEmbeddingsEmptyArchive(t *testing.T) {
	path := writeArchive(t, map[string][]byte{})
	if _, err := OpenEmbeddings(path); !errors.Is(err, ErrBadArchive) {
		t.Errorf("Expected ErrBadArchive, got %v", err)
	}
}
