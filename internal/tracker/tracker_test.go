package tracker

import (
	"testing"
	"time"

	"github.com/cwsl/voicescan/internal/spectrum"
)

func peakAt(freq, power float64) spectrum.Peak {
	return spectrum.Peak{FrequencyOffsetHz: freq, PowerDB: power}
}

func TestStabilityEmittedAtMinHits(t *testing.T) {
	tr := New(3, 10)
	base := time.Unix(0, 0)

	if got := tr.Update(base, []spectrum.Peak{peakAt(145500000, -20)}); len(got) != 0 {
		t.Fatalf("cycle 1: got %d stable, want 0", len(got))
	}
	if got := tr.Update(base.Add(3*time.Second), []spectrum.Peak{peakAt(145500000, -20)}); len(got) != 0 {
		t.Fatalf("cycle 2: got %d stable, want 0", len(got))
	}
	got := tr.Update(base.Add(6*time.Second), []spectrum.Peak{peakAt(145500000, -20)})
	if len(got) != 1 {
		t.Fatalf("cycle 3: got %d stable, want 1", len(got))
	}
	if got[0].FrequencyOffsetHz != 145500000 {
		t.Fatalf("got %+v", got[0])
	}
}

func TestPruningRemovesStaleBucket(t *testing.T) {
	tr := New(3, 10)
	base := time.Unix(0, 0)
	tr.Update(base, []spectrum.Peak{peakAt(145500000, -20)})
	tr.Update(base.Add(3*time.Second), []spectrum.Peak{peakAt(145500000, -20)})
	tr.Update(base.Add(6*time.Second), []spectrum.Peak{peakAt(145500000, -20)})

	if _, exists := tr.history[bucketOf(145500000)]; !exists {
		t.Fatalf("expected bucket present before lapse")
	}

	tr.Update(base.Add(20*time.Second), nil)
	if _, exists := tr.history[bucketOf(145500000)]; exists {
		t.Fatalf("expected bucket absent after window lapses with no new sightings")
	}
}

func TestDedupeKeepsStrongestPerBucket(t *testing.T) {
	tr := New(1, 10)
	now := time.Unix(0, 0)
	got := tr.Update(now, []spectrum.Peak{
		peakAt(1000000, -40),
		peakAt(1000000, -10), // same rounded bucket, stronger
	})
	if len(got) != 1 {
		t.Fatalf("got %d peaks, want 1", len(got))
	}
	if got[0].PowerDB != -10 {
		t.Fatalf("got %+v, want the stronger -10 dB peak", got[0])
	}
}

func TestMinHitsOneEmitsImmediately(t *testing.T) {
	tr := New(1, 10)
	got := tr.Update(time.Unix(0, 0), []spectrum.Peak{peakAt(500, -5)})
	if len(got) != 1 {
		t.Fatalf("got %d peaks, want 1 with min_hits=1", len(got))
	}
}

func TestAscendingFrequencyOrder(t *testing.T) {
	tr := New(1, 10)
	got := tr.Update(time.Unix(0, 0), []spectrum.Peak{
		peakAt(2000, -5),
		peakAt(-2000, -5),
		peakAt(0, -5),
	})
	if len(got) != 3 {
		t.Fatalf("got %d peaks, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].FrequencyOffsetHz <= got[i-1].FrequencyOffsetHz {
			t.Fatalf("not ascending: %v", got)
		}
	}
}

func TestClearResetsHistory(t *testing.T) {
	tr := New(1, 10)
	tr.Update(time.Unix(0, 0), []spectrum.Peak{peakAt(100, -5)})
	tr.Clear()
	if len(tr.history) != 0 {
		t.Fatalf("expected empty history after Clear")
	}
}
