// Package buffer implements the retrospective circular IQ buffer of
// spec.md §4.1: a fixed-capacity ring of complex samples per tuned
// center, supporting append-with-wrap and retrospective extraction of
// the most recent N seconds.
package buffer

import "github.com/cwsl/voicescan/internal/scanerr"

// Sample is the complex IQ sample type used throughout the pipeline.
type Sample = complex64

// CircularIQBuffer is a fixed-capacity ring of complex samples. It is not
// safe for concurrent use; per spec.md §5 it is owned exclusively by the
// single scan goroutine.
type CircularIQBuffer struct {
	sampleRate int
	capacity   int
	data       []Sample
	writePos   int
	available  int
}

// New creates a buffer sized for sampleRate*durationSec samples.
func New(sampleRateHz int, durationSec float64) *CircularIQBuffer {
	capacity := int(float64(sampleRateHz) * durationSec)
	if capacity < 0 {
		capacity = 0
	}
	return &CircularIQBuffer{
		sampleRate: sampleRateHz,
		capacity:   capacity,
		data:       make([]Sample, capacity),
	}
}

// SampleRate returns the sample rate this buffer was constructed with.
func (b *CircularIQBuffer) SampleRate() int { return b.sampleRate }

// Capacity returns the buffer's fixed capacity in samples.
func (b *CircularIQBuffer) Capacity() int { return b.capacity }

// Available returns the number of valid samples currently held.
func (b *CircularIQBuffer) Available() int { return b.available }

// Append stores block, wrapping at capacity. If len(block) exceeds
// capacity, only the trailing capacity samples are kept. Appending an
// empty block is a no-op.
func (b *CircularIQBuffer) Append(block []Sample) {
	n := len(block)
	if n == 0 || b.capacity == 0 {
		return
	}

	if n > b.capacity {
		block = block[n-b.capacity:]
		n = b.capacity
	}

	end := b.writePos + n
	if end <= b.capacity {
		copy(b.data[b.writePos:end], block)
	} else {
		firstPart := b.capacity - b.writePos
		copy(b.data[b.writePos:], block[:firstPart])
		copy(b.data[:n-firstPart], block[firstPart:])
	}

	b.writePos = (b.writePos + n) % b.capacity
	if b.available+n > b.capacity {
		b.available = b.capacity
	} else {
		b.available += n
	}
}

// ExtractRecent returns a newly-allocated copy of the last
// sampleRate*durationSec samples. It fails with *scanerr.InsufficientData
// when fewer samples than requested are available. Requesting zero
// samples returns an empty, non-nil slice.
//
// The window ends at the write head and starts at (write_pos - n) mod
// capacity. That is the same index as (oldest + available - n) mod
// capacity, where oldest is the position of the oldest held sample, so a
// buffer that has wrapped behaves identically to one that has not.
func (b *CircularIQBuffer) ExtractRecent(durationSec float64) ([]Sample, error) {
	n := int(float64(b.sampleRate) * durationSec)
	if n <= 0 {
		return []Sample{}, nil
	}
	if n > b.available {
		return nil, &scanerr.InsufficientData{Requested: n, Available: b.available}
	}

	start := ((b.writePos-n)%b.capacity + b.capacity) % b.capacity
	out := make([]Sample, n)
	if start+n <= b.capacity {
		copy(out, b.data[start:start+n])
	} else {
		firstPart := b.capacity - start
		copy(out, b.data[start:])
		copy(out[firstPart:], b.data[:n-firstPart])
	}
	return out, nil
}

// Clear zeroes all state.
func (b *CircularIQBuffer) Clear() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.writePos = 0
	b.available = 0
}
