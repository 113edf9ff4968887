package buffer

import (
	"errors"
	"testing"

	"github.com/cwsl/voicescan/internal/scanerr"
)

func makeTone(n int, start float32) []Sample {
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = Sample(complex(start+float32(i), 0))
	}
	return out
}

func TestAppendAndExtractRecent(t *testing.T) {
	b := New(10, 1.0) // capacity 10
	b.Append(makeTone(4, 0))
	if b.Available() != 4 {
		t.Fatalf("available = %d, want 4", b.Available())
	}

	got, err := b.ExtractRecent(0.2) // 2 samples at rate 10
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := makeTone(4, 0)[2:4]
	if !equalSamples(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractRecentInsufficientData(t *testing.T) {
	b := New(10, 1.0)
	b.Append(makeTone(3, 0))
	_, err := b.ExtractRecent(1.0) // requests 10, only 3 available
	var insufficient *scanerr.InsufficientData
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
}

func TestWrapCorrectness(t *testing.T) {
	capacity := 10
	b := New(capacity, 1.0)
	input := makeTone(25, 0) // N > capacity
	b.Append(input)

	if b.Available() != capacity {
		t.Fatalf("available = %d, want %d", b.Available(), capacity)
	}

	got, err := b.ExtractRecent(1.0) // extract full capacity
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := input[len(input)-capacity:]
	if !equalSamples(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestWrapStraddlesBoundary(t *testing.T) {
	capacity := 10
	b := New(capacity, 1.0)
	b.Append(makeTone(10, 0))  // fills exactly, writePos wraps to 0
	b.Append(makeTone(4, 100)) // overwrites indices 0..3

	got, err := b.ExtractRecent(0.6) // last 6 samples
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the ring now holds 4..9 from the first block and 100..103 from the
	// second: the last 6 of the 14 total appended are
	// [6,7,8,9,100,101,102,103][-6:] = [8,9,100,101,102,103]
	want := []Sample{8, 9, 100, 101, 102, 103}
	if !equalSamples(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAppendEmptyBlockIsNoOp(t *testing.T) {
	b := New(10, 1.0)
	b.Append(makeTone(5, 0))
	b.Append([]Sample{})
	if b.Available() != 5 {
		t.Fatalf("available = %d, want 5", b.Available())
	}
}

func TestExtractRecentZeroIsEmpty(t *testing.T) {
	b := New(10, 1.0)
	b.Append(makeTone(5, 0))
	got, err := b.ExtractRecent(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestExtractDoesNotAliasInternalStorage(t *testing.T) {
	b := New(10, 1.0)
	b.Append(makeTone(5, 0))
	got, err := b.ExtractRecent(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got[0] = 999
	got2, err := b.ExtractRecent(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got2[0] == 999 {
		t.Fatalf("extraction aliases internal storage")
	}
}

func TestClear(t *testing.T) {
	b := New(10, 1.0)
	b.Append(makeTone(5, 0))
	b.Clear()
	if b.Available() != 0 {
		t.Fatalf("available = %d after clear, want 0", b.Available())
	}
	if _, err := b.ExtractRecent(0.1); err == nil {
		t.Fatalf("expected error extracting from cleared buffer")
	}
}

func equalSamples(a, b []Sample) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
