package receiver

import (
	"math"
	"testing"

	"github.com/cwsl/voicescan/internal/buffer"
	"github.com/cwsl/voicescan/internal/scanerr"
)

func tone(n int, sampleRateHz, freqHz float64) []buffer.Sample {
	out := make([]buffer.Sample, n)
	for i := 0; i < n; i++ {
		phase := 2 * math.Pi * freqHz * float64(i) / sampleRateHz
		out[i] = buffer.Sample(complex(math.Cos(phase), math.Sin(phase)))
	}
	return out
}

func TestNewRejectsInvalidRate(t *testing.T) {
	_, err := New(100e6, 100.025e6, 48000, 48000)
	var invalid *scanerr.InvalidRate
	if err == nil {
		t.Fatalf("expected error for output rate >= input rate")
	}
	if _, ok := err.(*scanerr.InvalidRate); !ok {
		_ = invalid
		t.Fatalf("expected *scanerr.InvalidRate, got %T", err)
	}
}

func TestExtractSubbandCentersTargetAtDC(t *testing.T) {
	const inputRate = 240000.0
	const outputRate = 4800.0
	const offsetHz = 2500.0
	const centerFreq = 100e6
	const n = 4800

	rx, err := New(centerFreq, centerFreq+offsetHz, inputRate, outputRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	block := tone(n, inputRate, offsetHz)
	out := rx.ExtractSubband(block)
	if len(out) == 0 {
		t.Fatalf("expected non-empty output")
	}

	// Drop the filter settling region; in what remains, a baseband tone
	// should have near-constant magnitude and a slowly-rotating phase
	// dominated by the residual DC term rather than a fast image tone.
	tail := out[len(out)/2:]
	var sumMag float64
	for _, s := range tail {
		sumMag += complexAbs(s)
	}
	meanMag := sumMag / float64(len(tail))
	if meanMag < 0.5 {
		t.Fatalf("mean magnitude too low after downconversion: %v", meanMag)
	}

	// Consecutive-sample phase advance should be small: the dominant
	// component has been mixed to near 0 Hz.
	maxStep := 0.0
	for i := 1; i < len(tail); i++ {
		d := phaseDiff(tail[i-1], tail[i])
		if d > maxStep {
			maxStep = d
		}
	}
	if maxStep > math.Pi/2 {
		t.Fatalf("phase advancing too fast for a near-DC tone: max step %v rad", maxStep)
	}
}

func complexAbs(s buffer.Sample) float64 {
	c := complex128(s)
	return math.Hypot(real(c), imag(c))
}

func phaseDiff(a, b buffer.Sample) float64 {
	ca, cb := complex128(a), complex128(b)
	pa := math.Atan2(imag(ca), real(ca))
	pb := math.Atan2(imag(cb), real(cb))
	d := math.Abs(pb - pa)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}
