package main

import (
	"math"
	"math/rand"

	"github.com/cwsl/voicescan/internal/buffer"
	"github.com/cwsl/voicescan/internal/config"
	"github.com/cwsl/voicescan/internal/sdr"
)

// demoToneGenerator synthesizes wideband IQ carrying a single
// AM-modulated tone offset from each tuned center, standing in for a
// real antenna when cfg.Driver is "sim". Grounded on SPEC_FULL.md §2's
// note that SimulatedDevice exists to drive the end-to-end scenario of
// spec.md §8 without real hardware.
func demoToneGenerator(cfg *config.Config) sdr.GenerateFunc {
	const (
		toneOffsetHz = 3000.0
		toneAmp      = 1.0
		noiseStd     = 0.08
		amRateHz     = 6.0
	)
	rng := rand.New(rand.NewSource(1))
	sampleRateHz := float64(cfg.IQSampleRateHz)

	return func(centerHz uint64, startSample int64, n int) []buffer.Sample {
		out := make([]buffer.Sample, n)
		for i := 0; i < n; i++ {
			idx := startSample + int64(i)
			tSec := float64(idx) / sampleRateHz
			envelope := 0.5 + 0.5*math.Sin(2*math.Pi*amRateHz*tSec)
			phase := 2 * math.Pi * toneOffsetHz * tSec
			re := toneAmp*envelope*math.Cos(phase) + rng.NormFloat64()*noiseStd
			im := toneAmp*envelope*math.Sin(phase) + rng.NormFloat64()*noiseStd
			out[i] = buffer.Sample(complex(float32(re), float32(im)))
		}
		return out
	}
}
