// Package observer implements spec.md §4.5: per-frequency activity
// segment tracking and running power statistics, used to distinguish
// continuous emissions (reject) from bursty ones (candidate voice).
// Grounded on the corpus's noise_floor.go FFTBuffer rolling-window
// bookkeeping and voice_activity.go's cache pruning idiom.
package observer

import (
	"math"
	"time"
)

const defaultSegmentJoinGapSec = 1.0

type segment struct {
	start time.Time
	end   time.Time
}

type bucketState struct {
	segments    []segment
	sumPower    float64
	sumPowerSq  float64
	count       int
	lastUpdate  time.Time
	initialized bool
}

// Observer tracks activity segments and power statistics per rounded
// frequency bucket.
type Observer struct {
	windowSec         float64
	activityThreshold float64
	segmentJoinGapSec float64
	buckets           map[int64]*bucketState
}

// New builds an observer. segmentJoinGapSec of 0 selects the spec
// default of 1.0 seconds.
func New(windowSec, activityThresholdDB, segmentJoinGapSec float64) *Observer {
	if segmentJoinGapSec == 0 {
		segmentJoinGapSec = defaultSegmentJoinGapSec
	}
	return &Observer{
		windowSec:         windowSec,
		activityThreshold: activityThresholdDB,
		segmentJoinGapSec: segmentJoinGapSec,
		buckets:           make(map[int64]*bucketState),
	}
}

func bucketOf(frequencyHz float64) int64 {
	return int64(math.Round(frequencyHz))
}

// Update records a new power observation for frequencyHz at time now.
func (o *Observer) Update(frequencyHz, powerDB float64, now time.Time) {
	bucket := bucketOf(frequencyHz)
	s, exists := o.buckets[bucket]
	if !exists {
		o.buckets[bucket] = &bucketState{
			sumPower:    powerDB,
			sumPowerSq:  powerDB * powerDB,
			count:       1,
			lastUpdate:  now,
			initialized: true,
		}
		return
	}

	s.sumPower += powerDB
	s.sumPowerSq += powerDB * powerDB
	s.count++
	mean := s.sumPower / float64(s.count)
	isActive := powerDB > mean-o.activityThreshold

	if isActive {
		gap := now.Sub(s.lastUpdate)
		if n := len(s.segments); n > 0 && s.segments[n-1].end.Equal(s.lastUpdate) && gap.Seconds() < o.segmentJoinGapSec {
			s.segments[n-1].end = now
		} else {
			s.segments = append(s.segments, segment{start: now, end: now})
		}
	} else {
		if n := len(s.segments); n > 0 && s.segments[n-1].end.Equal(s.lastUpdate) {
			s.segments[n-1].end = s.lastUpdate
		}
	}

	s.lastUpdate = now
	o.pruneBucket(bucket, s, now)
}

func (o *Observer) pruneBucket(bucket int64, s *bucketState, now time.Time) {
	cutoff := now.Add(-time.Duration(o.windowSec * float64(time.Second)))
	kept := s.segments[:0:0]
	for _, seg := range s.segments {
		if seg.end.After(cutoff) {
			kept = append(kept, seg)
		}
	}
	s.segments = kept
	if len(s.segments) == 0 {
		s.sumPower = 0
		s.sumPowerSq = 0
		s.count = 0
	}
}

// IsContinuous reports whether frequencyHz's recent activity pattern
// looks like a continuous emission rather than a bursty one.
func (o *Observer) IsContinuous(frequencyHz, dutyCycleThresh, cvThresh float64, now time.Time) bool {
	bucket := bucketOf(frequencyHz)
	s, exists := o.buckets[bucket]
	if !exists {
		return false
	}
	o.pruneBucket(bucket, s, now)
	if len(s.segments) == 0 || s.count < 10 {
		return false
	}

	var activeTime float64
	for _, seg := range s.segments {
		activeTime += seg.end.Sub(seg.start).Seconds()
	}
	observedTime := now.Sub(s.segments[0].start).Seconds()
	if observedTime > o.windowSec {
		observedTime = o.windowSec
	}
	if observedTime <= 0 {
		return false
	}
	dutyCycle := activeTime / observedTime

	n := float64(s.count)
	mean := s.sumPower / n
	variance := (s.sumPowerSq - s.sumPower*s.sumPower/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	var cv float64
	if mean > 0 {
		cv = math.Sqrt(variance) / mean
	}

	return dutyCycle > dutyCycleThresh && cv < cvThresh
}

// Clear discards all tracked state, per spec.md §4.8 step 3 (stop).
func (o *Observer) Clear() {
	o.buckets = make(map[int64]*bucketState)
}
