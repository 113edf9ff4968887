package spectrum

import "sort"

// Candidate is a raw detected local maximum before bandwidth annotation.
type Candidate struct {
	Frequency float64
	PowerDB   float64
	Index     int
}

// Detector implements spec.md §4.3: median-noise-floor threshold,
// local-maxima extraction, and power-sorted non-maximum suppression by
// minimum frequency spacing.
type Detector struct {
	offsetDB      float64
	minDistanceHz float64
}

// NewDetector builds a peak detector with the given threshold offset
// above the median noise floor and minimum peak spacing in Hz.
func NewDetector(offsetDB, minDistanceHz float64) *Detector {
	return &Detector{offsetDB: offsetDB, minDistanceHz: minDistanceHz}
}

// DetectPeaks runs the full deterministic single-pass algorithm of
// spec.md §4.3 and returns accepted peaks sorted by ascending frequency.
func (d *Detector) DetectPeaks(freqs, spectrumDB []float64) []Candidate {
	n := len(spectrumDB)
	if n == 0 {
		return nil
	}

	threshold := median(spectrumDB) + d.offsetDB

	var candidates []Candidate
	if n == 1 {
		if spectrumDB[0] > threshold {
			candidates = append(candidates, Candidate{Frequency: freqs[0], PowerDB: spectrumDB[0], Index: 0})
		}
	} else {
		for i := 0; i < n; i++ {
			if spectrumDB[i] <= threshold {
				continue
			}
			if i == 0 {
				if spectrumDB[i] > spectrumDB[i+1] {
					candidates = append(candidates, Candidate{Frequency: freqs[i], PowerDB: spectrumDB[i], Index: i})
				}
				continue
			}
			if i == n-1 {
				if spectrumDB[i] > spectrumDB[i-1] {
					candidates = append(candidates, Candidate{Frequency: freqs[i], PowerDB: spectrumDB[i], Index: i})
				}
				continue
			}
			if spectrumDB[i] > spectrumDB[i-1] && spectrumDB[i] > spectrumDB[i+1] {
				candidates = append(candidates, Candidate{Frequency: freqs[i], PowerDB: spectrumDB[i], Index: i})
			}
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	// Strongest first; tie-break on lower bin index for determinism.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].PowerDB != candidates[j].PowerDB {
			return candidates[i].PowerDB > candidates[j].PowerDB
		}
		return candidates[i].Index < candidates[j].Index
	})

	accepted := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		tooClose := false
		for _, a := range accepted {
			if abs(a.Frequency-c.Frequency) < d.minDistanceHz {
				tooClose = true
				break
			}
		}
		if !tooClose {
			accepted = append(accepted, c)
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Frequency < accepted[j].Frequency
	})
	return accepted
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
