package audioio

import "encoding/binary"

// clampSample bounds a float sample to [-1, 1] before quantization.
func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// quantize converts a float sample in [-1, 1] to a signed integer of the
// given bit depth.
func quantize(s float32, bitDepth int) int {
	max := float64(int64(1)<<(bitDepth-1) - 1)
	return int(float64(clampSample(s)) * max)
}

// dequantize converts a signed integer sample back to a float in [-1, 1].
func dequantize(v int, bitDepth int) float32 {
	max := float64(int64(1)<<(bitDepth-1) - 1)
	return float32(float64(v) / max)
}

// samplesToInts quantizes a float PCM buffer for the container encoder.
func samplesToInts(samples []float32, bitDepth int) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = quantize(s, bitDepth)
	}
	return out
}

// intsToSamples reverses samplesToInts within quantization error.
func intsToSamples(ints []int, bitDepth int) []float32 {
	out := make([]float32, len(ints))
	for i, v := range ints {
		out[i] = dequantize(v, bitDepth)
	}
	return out
}

// samplesToPCM16LE converts float samples to interleaved signed 16-bit
// little-endian bytes, the wire format of the playback device.
func samplesToPCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(quantize(s, 16))))
	}
	return out
}
