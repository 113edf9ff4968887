// Package spectrum implements spec.md §4.2–§4.3: the windowed FFT power
// spectrum, bandwidth estimation, and the median-threshold non-maximum
// suppression peak detector.
package spectrum

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwsl/voicescan/internal/buffer"
)

const epsilon = 1e-10

// Peak is a detected spectral peak, expressed relative to the center
// frequency the block was captured at.
type Peak struct {
	FrequencyOffsetHz float64
	PowerDB           float64
	BinIndex          int
	BandwidthHz       float64
}

// Processor computes windowed FFT power spectra and extracts bandwidth-
// annotated peak regions, per spec.md §4.2.
type Processor struct {
	sampleRateHz float64
	detector     *Detector

	fft      *fourier.CmplxFFT
	fftSize  int
	window   []float64
	freqBins []float64
}

// NewProcessor builds an FFT processor for a fixed sample rate and peak
// detection thresholds (spec.md §4.3 parameters).
func NewProcessor(sampleRateHz float64, thresholdDB float64, minDistanceHz float64) *Processor {
	return &Processor{
		sampleRateHz: sampleRateHz,
		detector:     NewDetector(thresholdDB, minDistanceHz),
	}
}

// Detector exposes the underlying PeakDetector, e.g. for direct unit
// testing against a synthetic spectrum.
func (p *Processor) Detector() *Detector { return p.detector }

func (p *Processor) ensureSize(n int) {
	if p.fftSize == n {
		return
	}
	p.fftSize = n
	p.fft = fourier.NewCmplxFFT(n)
	p.window = hannWindow(n)
	p.freqBins = shiftedBinFrequencies(n, p.sampleRateHz)
}

// hannWindow builds a length-n Hann window, matching the corpus's
// spectrum analyzer (0.5*(1-cos(2*pi*i/(n-1)))).
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// shiftedBinFrequencies returns fftshifted bin frequencies in Hz, DC
// centered, spacing Fs/n.
func shiftedBinFrequencies(n int, sampleRateHz float64) []float64 {
	freqs := make([]float64, n)
	binWidth := sampleRateHz / float64(n)
	for k := 0; k < n; k++ {
		// unshifted fftfreq: 0..n/2-1 positive, then negative wrapping
		var f float64
		if k < (n+1)/2 {
			f = float64(k) * binWidth
		} else {
			f = float64(k-n) * binWidth
		}
		freqs[k] = f
	}
	return fftshift(freqs)
}

// fftshift swaps the left and right halves, moving DC (index 0 of the
// unshifted array) to the center, matching numpy.fft.fftshift.
func fftshift(v []float64) []float64 {
	n := len(v)
	out := make([]float64, n)
	mid := (n + 1) / 2
	copy(out[:n-mid], v[mid:])
	copy(out[n-mid:], v[:mid])
	return out
}

// ComputeSpectrum applies a Hann window, computes the full-length FFT,
// shifts it so DC is centered, and returns (freqs, spectrum_db) per
// spec.md §4.2.
func (p *Processor) ComputeSpectrum(block []buffer.Sample) (freqs []float64, spectrumDB []float64) {
	n := len(block)
	p.ensureSize(n)

	windowed := make([]complex128, n)
	for i, s := range block {
		windowed[i] = complex128(s) * complex(p.window[i], 0)
	}

	coeffs := p.fft.Coefficients(nil, windowed)

	magnitude := make([]float64, n)
	for i, c := range coeffs {
		magnitude[i] = cmplx.Abs(c)
	}
	shiftedMag := fftshift(magnitude)

	spectrumDB = make([]float64, n)
	for i, m := range shiftedMag {
		spectrumDB[i] = 20 * math.Log10(m+epsilon)
	}

	return p.freqBins, spectrumDB
}

// ExtractPeakRegions computes the spectrum, delegates detection to the
// Detector, and annotates each peak with a 3-dB-down bandwidth estimate
// per spec.md §4.2.
func (p *Processor) ExtractPeakRegions(block []buffer.Sample) []Peak {
	freqs, spectrumDB := p.ComputeSpectrum(block)
	candidates := p.detector.DetectPeaks(freqs, spectrumDB)
	if len(candidates) == 0 {
		return nil
	}

	n := len(freqs)
	binWidth := p.sampleRateHz / float64(n)
	minDistanceHz := p.detector.minDistanceHz
	searchWindow := int(0.5 * minDistanceHz / binWidth)
	floor := minDistanceHz
	if f := 10 * binWidth; f > floor {
		floor = f
	}

	peaks := make([]Peak, 0, len(candidates))
	for _, c := range candidates {
		bandwidth := estimateBandwidth(spectrumDB, c.Index, searchWindow, binWidth, floor)
		peaks = append(peaks, Peak{
			FrequencyOffsetHz: c.Frequency,
			PowerDB:           c.PowerDB,
			BinIndex:          c.Index,
			BandwidthHz:       bandwidth,
		})
	}
	return peaks
}

// estimateBandwidth walks outward from the peak bin in each direction,
// up to searchWindow bins, looking for the first bin 3 dB down from the
// peak. If no crossing is found the search clamps at the window edge.
// The result is floored at floor Hz.
func estimateBandwidth(spectrumDB []float64, peakIdx, searchWindow int, binWidth, floor float64) float64 {
	peakDB := spectrumDB[peakIdx]
	threshold := peakDB - 3

	left := peakIdx
	for i := 1; i <= searchWindow; i++ {
		idx := peakIdx - i
		if idx < 0 {
			left = 0
			break
		}
		left = idx
		if spectrumDB[idx] < threshold {
			break
		}
	}

	right := peakIdx
	for i := 1; i <= searchWindow; i++ {
		idx := peakIdx + i
		if idx >= len(spectrumDB) {
			right = len(spectrumDB) - 1
			break
		}
		right = idx
		if spectrumDB[idx] < threshold {
			break
		}
	}

	bandwidth := float64(right-left) * binWidth
	if bandwidth < floor {
		return floor
	}
	return bandwidth
}
