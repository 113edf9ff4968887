// Package envelope implements spec.md §4.7: amplitude-envelope speech
// classification via a zero-phase 4th-order Butterworth low-pass
// smoothing stage followed by coefficient-of-variation and
// peak-to-average thresholds. The biquad cascade follows the standard
// cookbook low-pass form the corpus's filter code uses for its own
// smoothing stages (noise_floor.go's rolling statistics), generalized
// here to a true IIR design since the classifier needs steep rolloff a
// moving average cannot give.
package envelope

import (
	"math"

	"github.com/cwsl/voicescan/internal/buffer"
)

const (
	defaultCVThreshold = 0.3
	defaultLPCutoffHz  = 20.0
	minMeanEnvelope    = 1e-8
	parThreshold       = 1.5

	// Pole-pair Q values for a 4th-order Butterworth lowpass, from the
	// standard factoring s^4+2.613126s^3+3.414214s^2+2.613126s+1 =
	// (s^2+0.765367s+1)(s^2+1.847759s+1).
	butterworthQ1 = 1 / 0.7653668647301796
	butterworthQ2 = 1 / 1.8477590650225735
)

// Classifier decides whether a narrowband IQ capture's amplitude
// envelope looks speech-like: bursty and variable rather than flat.
type Classifier struct {
	cvThreshold float64
	lpCutoffHz  float64
}

// New builds a classifier. A zero cvThreshold or lpCutoffHz selects the
// spec defaults (0.3 and 20 Hz respectively).
func New(cvThreshold, lpCutoffHz float64) *Classifier {
	if cvThreshold == 0 {
		cvThreshold = defaultCVThreshold
	}
	if lpCutoffHz == 0 {
		lpCutoffHz = defaultLPCutoffHz
	}
	return &Classifier{cvThreshold: cvThreshold, lpCutoffHz: lpCutoffHz}
}

// IsSpeechLike reports whether narrowIQ's amplitude envelope has the
// bursty, variable shape of human speech.
func (c *Classifier) IsSpeechLike(narrowIQ []buffer.Sample, sampleRateHz float64) bool {
	n := len(narrowIQ)
	if n == 0 {
		return false
	}

	raw := make([]float64, n)
	for i, s := range narrowIQ {
		cs := complex128(s)
		raw[i] = math.Hypot(real(cs), imag(cs))
	}

	filt := newButterworth4(c.lpCutoffHz, sampleRateHz)
	env := filt.filtfilt(raw)

	meanEnv := mean(env)
	if meanEnv < minMeanEnvelope {
		return false
	}

	cv := stdDev(env, meanEnv) / meanEnv
	par := maxOf(env) / meanEnv
	return cv > c.cvThreshold && par > parThreshold
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// biquad is a direct-form-I second-order IIR section.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

func newLowpassBiquad(cutoffHz, sampleRateHz, q float64) *biquad {
	w0 := 2 * math.Pi * cutoffHz / sampleRateHz
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	b0 := (1 - cosw0) / 2
	b1 := 1 - cosw0
	b2 := (1 - cosw0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return &biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

func (bq *biquad) reset() {
	bq.x1, bq.x2, bq.y1, bq.y2 = 0, 0, 0, 0
}

func (bq *biquad) process(x float64) float64 {
	y := bq.b0*x + bq.b1*bq.x1 + bq.b2*bq.x2 - bq.a1*bq.y1 - bq.a2*bq.y2
	bq.x2, bq.x1 = bq.x1, x
	bq.y2, bq.y1 = bq.y1, y
	return y
}

// butterworth4 cascades two biquads to realize an overall 4th-order
// Butterworth low-pass.
type butterworth4 struct {
	stage1, stage2 *biquad
}

func newButterworth4(cutoffHz, sampleRateHz float64) *butterworth4 {
	return &butterworth4{
		stage1: newLowpassBiquad(cutoffHz, sampleRateHz, butterworthQ1),
		stage2: newLowpassBiquad(cutoffHz, sampleRateHz, butterworthQ2),
	}
}

func (f *butterworth4) runOnce(x []float64) []float64 {
	f.stage1.reset()
	f.stage2.reset()
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = f.stage2.process(f.stage1.process(v))
	}
	return y
}

// filtfilt applies the filter forward, then backward, canceling phase
// distortion (the zero-phase requirement of spec.md §4.7).
func (f *butterworth4) filtfilt(x []float64) []float64 {
	forward := f.runOnce(x)
	reversed := reverseCopy(forward)
	backward := f.runOnce(reversed)
	return reverseCopy(backward)
}

func reverseCopy(x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	for i, v := range x {
		out[n-1-i] = v
	}
	return out
}
