package synthrt

import (
	"context"
	"testing"
)

// TestRunDeterministic tests that identical inputs produce identical audio.
func TestRunDeterministic(t *testing.T) {
	r := &Runner{}
	tokens := []int64{5, 12, 40}
	style := []float32{1, 1, 1, 1}

	a, err := r.Run(context.Background(), tokens, style, 1.0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	b, err := r.Run(context.Background(), tokens, style, 1.0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs", i)
		}
	}
}

// TestRunSpeedScalesDuration tests that doubling speed halves output length.
func TestRunSpeedScalesDuration(t *testing.T) {
	r := &Runner{}
	tokens := make([]int64, 20)
	style := []float32{1}

	slow, err := r.Run(context.Background(), tokens, style, 1.0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	fast, err := r.Run(context.Background(), tokens, style, 2.0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(fast) >= len(slow) {
		t.Errorf("fast output (%d samples) not shorter than slow (%d)", len(fast), len(slow))
	}
}

// TestRunSamplesBounded tests that output stays within [-1, 1].
func TestRunSamplesBounded(t *testing.T) {
	r := &Runner{}
	style := make([]float32, 256)
	for i := range style {
		style[i] = 3.0
	}
	out, err := r.Run(context.Background(), []int64{0, 63, -7}, style, 0.5)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, s := range out {
		if s < -1 || s > 1 {
			t.Fatalf("sample %d = %v out of range", i, s)
		}
	}
}

// TestRunCancelled tests context handling.
func TestRunCancelled(t *testing.T) {
	r := &Runner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx, []int64{1}, []float32{1}, 1.0); err == nil {
		t.Error("Run succeeded with a cancelled context")
	}
}
