// Package tracker implements spec.md §4.4: temporal confirmation of
// spectral peaks across scan cycles by sliding-window hit counting, the
// same bucket-and-prune shape as the corpus's voice activity cache
// (voice_activity.go's VoiceActivityCache.mergeWithCache).
package tracker

import (
	"math"
	"sort"
	"time"

	"github.com/cwsl/voicescan/internal/spectrum"
)

// Tracker confirms a frequency bucket as "stable" once it has been
// reported at least minHits times within windowSec.
type Tracker struct {
	minHits   int
	windowSec float64
	history   map[int64][]time.Time
}

// New builds a tracker requiring minHits sightings within windowSec
// seconds before a bucket is considered stable.
func New(minHits int, windowSec float64) *Tracker {
	return &Tracker{
		minHits:   minHits,
		windowSec: windowSec,
		history:   make(map[int64][]time.Time),
	}
}

// Update records the current cycle's peaks against now, prunes stale
// history across all tracked buckets, and returns the subset of
// peaks-this-cycle whose bucket has reached minHits, sorted by
// ascending frequency.
func (t *Tracker) Update(now time.Time, peaks []spectrum.Peak) []spectrum.Peak {
	strongest := make(map[int64]spectrum.Peak, len(peaks))
	for _, p := range peaks {
		bucket := bucketOf(p.FrequencyOffsetHz)
		if existing, ok := strongest[bucket]; !ok || p.PowerDB > existing.PowerDB {
			strongest[bucket] = p
		}
	}

	for bucket := range strongest {
		t.history[bucket] = append(t.history[bucket], now)
	}

	cutoff := now.Add(-time.Duration(t.windowSec * float64(time.Second)))
	for bucket, timestamps := range t.history {
		kept := timestamps[:0:0]
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(t.history, bucket)
		} else {
			t.history[bucket] = kept
		}
	}

	var stable []spectrum.Peak
	for bucket, p := range strongest {
		if hits := len(t.history[bucket]); hits >= t.minHits {
			stable = append(stable, p)
		}
	}

	sort.Slice(stable, func(i, j int) bool {
		return stable[i].FrequencyOffsetHz < stable[j].FrequencyOffsetHz
	})
	return stable
}

// Clear discards all tracked history, per spec.md §4.8 step 3 (stop).
func (t *Tracker) Clear() {
	t.history = make(map[int64][]time.Time)
}

func bucketOf(frequencyHz float64) int64 {
	return int64(math.Round(frequencyHz))
}
