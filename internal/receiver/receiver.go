// Package receiver implements spec.md §4.6: the VirtualReceiver digital
// downconverter — mix to baseband, anti-alias FIR low-pass, decimate.
// The FIR design (windowed-sinc low-pass with a Hamming window) is
// grounded on the corpus's FIR filter package, adapted from per-sample
// circular-buffer convolution to block-at-a-time forward filtering.
package receiver

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/cwsl/voicescan/internal/buffer"
	"github.com/cwsl/voicescan/internal/scanerr"
)

const firTaps = 101

// Receiver is a stateless-beyond-construction digital tuner: it mixes a
// wideband IQ block to baseband around a target frequency, low-pass
// filters to suppress aliases, and decimates to the narrowband output
// rate.
type Receiver struct {
	freqOffsetHz float64
	inputRateHz  float64
	outputRateHz float64
	decimation   int
	taps         []float32
}

// New builds a virtual receiver tuned to targetFreqHz relative to a
// wideband capture centered at centerFreqHz. Fails with *scanerr.InvalidRate
// when outputRateHz is not strictly below inputRateHz.
func New(centerFreqHz, targetFreqHz, inputRateHz, outputRateHz float64) (*Receiver, error) {
	if outputRateHz >= inputRateHz {
		return nil, &scanerr.InvalidRate{Input: int(inputRateHz), Output: int(outputRateHz)}
	}

	decimation := int(inputRateHz / outputRateHz)
	if decimation < 1 {
		decimation = 1
	}
	cutoffHz := 0.9 * (outputRateHz / 2)

	return &Receiver{
		freqOffsetHz: targetFreqHz - centerFreqHz,
		inputRateHz:  inputRateHz,
		outputRateHz: outputRateHz,
		decimation:   decimation,
		taps:         designLowpass(cutoffHz, inputRateHz, firTaps),
	}, nil
}

// ExtractSubband mixes, filters, and decimates block, returning the
// narrowband baseband output.
func (r *Receiver) ExtractSubband(block []buffer.Sample) []buffer.Sample {
	mixed := make([]complex64, len(block))
	for k, s := range block {
		phase := -2 * math.Pi * r.freqOffsetHz * float64(k) / r.inputRateHz
		osc := complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
		mixed[k] = complex64(s) * osc
	}

	filtered := r.applyFIR(mixed)

	// Ratio 1:decimation polyphase resample. The 101-tap low-pass
	// already embeds the anti-alias stopband a Kaiser-windowed
	// resampling filter would otherwise need to supply, so decimation
	// here is plain sample selection.
	out := make([]buffer.Sample, 0, len(filtered)/r.decimation+1)
	for i := 0; i < len(filtered); i += r.decimation {
		out = append(out, buffer.Sample(filtered[i]))
	}
	return out
}

func (r *Receiver) applyFIR(x []complex64) []complex64 {
	y := make([]complex64, len(x))
	for i := range x {
		var acc complex64
		for j, h := range r.taps {
			k := i - j
			if k < 0 {
				break
			}
			acc += x[k] * complex(h, 0)
		}
		y[i] = acc
	}
	return y
}

// designLowpass builds a linear-phase windowed-sinc low-pass FIR with a
// Hamming window, in the input-rate frequency grid.
func designLowpass(cutoffHz, sampleRateHz float64, numTaps int) []float32 {
	fc := float32(cutoffHz / sampleRateHz)
	mid := float32(numTaps-1) / 2
	taps := make([]float32, numTaps)
	for i := 0; i < numTaps; i++ {
		x := float32(i) - mid
		taps[i] = 2 * fc * sinc(2*fc*x) * hammingWindow(i, numTaps)
	}
	return taps
}

func sinc(x float32) float32 {
	if x == 0 {
		return 1
	}
	px := math32.Pi * x
	return math32.Sin(px) / px
}

func hammingWindow(n, numTaps int) float32 {
	return 0.54 - 0.46*math32.Cos(2*math32.Pi*float32(n)/float32(numTaps-1))
}
