package observer

import (
	"testing"
	"time"
)

func TestContinuousEmissionDetected(t *testing.T) {
	o := New(30, 6, 1.0)
	base := time.Unix(0, 0)

	// Stable power, active at every 0.5s update for well over window_sec.
	for i := 0; i < 80; i++ {
		now := base.Add(time.Duration(i) * 500 * time.Millisecond)
		o.Update(1000, -20, now)
	}

	last := base.Add(time.Duration(79) * 500 * time.Millisecond)
	if !o.IsContinuous(1000, 0.5, 0.2, last) {
		t.Fatalf("expected continuous emission to be detected")
	}
}

func TestBurstyEmissionNotContinuous(t *testing.T) {
	o := New(30, 6, 1.0)
	base := time.Unix(0, 0)

	// Active for short bursts (10%), inactive most of the time, with a
	// large gap that prevents segment joining and large power swings.
	for i := 0; i < 80; i++ {
		now := base.Add(time.Duration(i) * 500 * time.Millisecond)
		if i%10 == 0 {
			o.Update(2000, 10, now)
		} else {
			o.Update(2000, -60, now)
		}
	}

	last := base.Add(time.Duration(79) * 500 * time.Millisecond)
	if o.IsContinuous(2000, 0.5, 0.2, last) {
		t.Fatalf("expected bursty pattern to not be classified continuous")
	}
}

func TestFirstSightingDoesNotCreateSegment(t *testing.T) {
	o := New(30, 6, 1.0)
	now := time.Unix(0, 0)
	o.Update(500, -10, now)

	s := o.buckets[bucketOf(500)]
	if len(s.segments) != 0 {
		t.Fatalf("expected no segments after first sighting, got %d", len(s.segments))
	}
	if s.count != 1 {
		t.Fatalf("expected count=1 after first sighting, got %d", s.count)
	}
}

func TestIsContinuousFalseWithTooFewSamples(t *testing.T) {
	o := New(30, 6, 1.0)
	now := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		o.Update(500, -10, now.Add(time.Duration(i)*time.Second))
	}
	if o.IsContinuous(500, 0.1, 1.0, now.Add(5*time.Second)) {
		t.Fatalf("expected false with fewer than 10 samples")
	}
}

func TestIsContinuousFalseForUnknownBucket(t *testing.T) {
	o := New(30, 6, 1.0)
	if o.IsContinuous(99999, 0.1, 1.0, time.Unix(0, 0)) {
		t.Fatalf("expected false for never-seen bucket")
	}
}

func TestClearResetsBuckets(t *testing.T) {
	o := New(30, 6, 1.0)
	o.Update(500, -10, time.Unix(0, 0))
	o.Clear()
	if len(o.buckets) != 0 {
		t.Fatalf("expected empty buckets after Clear")
	}
}
