package audioio

import (
	"math"
	"testing"
)

// TestQuantizeRoundTrip tests quantization error bounds per bit depth.
func TestQuantizeRoundTrip(t *testing.T) {
	samples := []float32{-1, -0.5, -0.001, 0, 0.001, 0.25, 0.9999, 1}

	for _, bitDepth := range []int{16, 24, 32} {
		epsilon := 1.0 / float64(int64(1)<<(bitDepth-1)-1)
		for _, s := range samples {
			back := dequantize(quantize(s, bitDepth), bitDepth)
			if diff := math.Abs(float64(s - back)); diff > epsilon {
				t.Errorf("bit depth %d: sample %g differs by %g after round trip", bitDepth, s, diff)
			}
		}
	}
}

// TestQuantizeClamps tests clamping of out-of-range samples.
func TestQuantizeClamps(t *testing.T) {
	if quantize(2.0, 16) != 32767 {
		t.Errorf("Expected clamp to 32767, got %d", quantize(2.0, 16))
	}
	if quantize(-2.0, 16) != -32767 {
		t.Errorf("Expected clamp to -32767, got %d", quantize(-2.0, 16))
	}
}

// TestSamplesToPCM16LE tests byte layout of the device wire format.
func TestSamplesToPCM16LE(t *testing.T) {
	data := samplesToPCM16LE([]float32{0, 1})
	if len(data) != 4 {
		t.Fatalf("Expected 4 bytes, got %d", len(data))
	}
	if data[0] != 0 || data[1] != 0 {
		t.Errorf("Expected zero sample bytes, got %v", data[:2])
	}
	// 32767 little-endian.
	if data[2] != 0xff || data[3] != 0x7f {
		t.Errorf("Expected 0xff 0x7f for full-scale sample, got %x %x", data[2], data[3])
	}
}
