package envelope

import (
	"math"
	"testing"

	"github.com/cwsl/voicescan/internal/buffer"
)

func constantEnvelopeTone(n int, sampleRateHz, carrierHz float64) []buffer.Sample {
	out := make([]buffer.Sample, n)
	for i := 0; i < n; i++ {
		phase := 2 * math.Pi * carrierHz * float64(i) / sampleRateHz
		out[i] = buffer.Sample(complex(math.Cos(phase), math.Sin(phase)))
	}
	return out
}

func amModulatedTone(n int, sampleRateHz, carrierHz, modHz float64) []buffer.Sample {
	out := make([]buffer.Sample, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRateHz
		amp := 0.5 + 0.5*math.Sin(2*math.Pi*modHz*t)
		phase := 2 * math.Pi * carrierHz * float64(i) / sampleRateHz
		out[i] = buffer.Sample(complex(amp*math.Cos(phase), amp*math.Sin(phase)))
	}
	return out
}

func TestConstantEnvelopeIsNotSpeechLike(t *testing.T) {
	const sampleRate = 48000.0
	block := constantEnvelopeTone(4800, sampleRate, 1000)

	c := New(0, 0)
	if c.IsSpeechLike(block, sampleRate) {
		t.Fatalf("expected constant-envelope tone to not be speech-like")
	}
}

func TestAMModulatedToneIsSpeechLike(t *testing.T) {
	const sampleRate = 48000.0
	block := amModulatedTone(9600, sampleRate, 1000, 5)

	c := New(0, 0)
	if !c.IsSpeechLike(block, sampleRate) {
		t.Fatalf("expected 5 Hz AM-modulated tone to be speech-like")
	}
}

func TestEmptyInputIsNotSpeechLike(t *testing.T) {
	c := New(0, 0)
	if c.IsSpeechLike(nil, 48000) {
		t.Fatalf("expected empty input to not be speech-like")
	}
}

func TestSilenceIsNotSpeechLike(t *testing.T) {
	c := New(0, 0)
	silence := make([]buffer.Sample, 1000)
	if c.IsSpeechLike(silence, 48000) {
		t.Fatalf("expected near-zero envelope to not be speech-like")
	}
}
