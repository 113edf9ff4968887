// Package scanner implements spec.md §4.8: the ScanController that
// cycles through configured centers, driving capture → detect → track
// → continuity-filter → downconvert → classify → enqueue under a fixed
// scan period. Grounded on original_source/app/sdr.py's WidebandScanner
// run loop and app/__main__.py's supervised start/stop lifecycle.
package scanner

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/cwsl/voicescan/internal/buffer"
	"github.com/cwsl/voicescan/internal/envelope"
	"github.com/cwsl/voicescan/internal/health"
	"github.com/cwsl/voicescan/internal/live"
	"github.com/cwsl/voicescan/internal/metrics"
	"github.com/cwsl/voicescan/internal/observer"
	"github.com/cwsl/voicescan/internal/queue"
	"github.com/cwsl/voicescan/internal/receiver"
	"github.com/cwsl/voicescan/internal/sdr"
	"github.com/cwsl/voicescan/internal/spectrum"
	"github.com/cwsl/voicescan/internal/tracker"
)

// consecutiveIOErrorLimit is the implementation-chosen threshold at
// which repeated SDR read failures escalate from "skip this center"
// to "stop the controller" (spec.md §7).
const consecutiveIOErrorLimit = 5

// Config holds the tunables spec.md §6 and SPEC_FULL.md's observer
// addendum name.
type Config struct {
	Centers                      []uint64
	IQSampleRateHz               int
	ScanDurationSec              float64
	MinVoiceBandwidthHz          float64
	NarrowbandSampleRateHz       int
	NarrowbandCaptureDurationSec float64

	FFTThresholdDB   float64
	FFTMinDistanceHz float64

	PeakTrackerMinHits   int
	PeakTrackerWindowSec float64

	ObserverWindowSec           float64
	ObserverActivityThresholdDB float64
	ObserverDutyCycleThresh     float64
	ObserverCVThresh            float64

	EnvelopeCVThreshold float64
	EnvelopeLPCutoffHz  float64
}

// Controller owns the pipeline components exclusively and drives the
// single-threaded cooperative scan loop of spec.md §5.
type Controller struct {
	device sdr.Device
	sink   queue.Queue
	cfg    Config
	logger *log.Logger

	processor *spectrum.Processor
	tracker   *tracker.Tracker
	observer  *observer.Observer
	classify  *envelope.Classifier
	buffers   map[uint64]*buffer.CircularIQBuffer

	metrics *metrics.Scanner
	health  *health.Monitor
	live    *live.Broadcaster

	running atomic.Bool
	now     func() time.Time
	sleep   func(time.Duration)
}

// Option configures optional collaborators on a Controller.
type Option func(*Controller)

// WithMetrics attaches a Prometheus metrics sink.
func WithMetrics(m *metrics.Scanner) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithHealth attaches a health monitor.
func WithHealth(h *health.Monitor) Option {
	return func(c *Controller) { c.health = h }
}

// WithLive attaches a live spectrum broadcaster.
func WithLive(l *live.Broadcaster) Option {
	return func(c *Controller) { c.live = l }
}

// WithLogger overrides the default stderr logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New builds a scan controller over device and sink with the given
// configuration.
func New(device sdr.Device, sink queue.Queue, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		device:    device,
		sink:      sink,
		cfg:       cfg,
		logger:    log.Default(),
		processor: spectrum.NewProcessor(float64(cfg.IQSampleRateHz), cfg.FFTThresholdDB, cfg.FFTMinDistanceHz),
		tracker:   tracker.New(cfg.PeakTrackerMinHits, cfg.PeakTrackerWindowSec),
		observer:  observer.New(cfg.ObserverWindowSec, cfg.ObserverActivityThresholdDB, 0),
		classify:  envelope.New(cfg.EnvelopeCVThreshold, cfg.EnvelopeLPCutoffHz),
		buffers:   make(map[uint64]*buffer.CircularIQBuffer),
		now:       time.Now,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run initializes the SDR and loops over configured centers until
// ctx is canceled or Stop is called, per spec.md §4.8/§5.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.device.Initialize(ctx); err != nil {
		return err
	}
	c.running.Store(true)
	defer c.shutdown()

	consecutiveIOErrors := 0

	for c.running.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		escalated, err := c.runAllCenters(ctx, &consecutiveIOErrors)
		if escalated {
			return err
		}
		if err != nil {
			return nil
		}
	}
	return nil
}

// RunOnce initializes the SDR, sweeps every configured center exactly
// once, and returns — the one-shot diagnostic mode of SPEC_FULL.md §5
// (`-once`), rather than Run's indefinite cadence loop.
func (c *Controller) RunOnce(ctx context.Context) error {
	if err := c.device.Initialize(ctx); err != nil {
		return err
	}
	c.running.Store(true)
	defer c.shutdown()

	consecutiveIOErrors := 0
	_, err := c.runAllCenters(ctx, &consecutiveIOErrors)
	return err
}

// runAllCenters sweeps every configured center once. The returned bool
// reports whether a center failure escalated past
// consecutiveIOErrorLimit (Run should stop and propagate err). Otherwise
// it returns escalated=false with a nil error: the sweep completed, Stop
// was called, or ctx was canceled mid-sweep.
func (c *Controller) runAllCenters(ctx context.Context, consecutiveIOErrors *int) (escalated bool, err error) {
	for _, center := range c.cfg.Centers {
		if !c.running.Load() {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, nil
		default:
		}

		if err := c.runCenterCycle(ctx, center); err != nil {
			*consecutiveIOErrors++
			c.logger.Printf("scanner: center %d: %v", center, err)
			if c.metrics != nil {
				c.metrics.ObserveError("io_error")
			}
			if *consecutiveIOErrors >= consecutiveIOErrorLimit {
				c.logger.Printf("scanner: %d consecutive I/O errors, stopping", *consecutiveIOErrors)
				c.running.Store(false)
				return true, err
			}
			continue
		}
		*consecutiveIOErrors = 0
	}
	return false, nil
}

// Stop signals the run loop to halt at the next center boundary.
func (c *Controller) Stop() {
	c.running.Store(false)
}

func (c *Controller) shutdown() {
	c.device.Close()
	for _, b := range c.buffers {
		b.Clear()
	}
	c.tracker.Clear()
	c.observer.Clear()
	c.running.Store(false)
	if c.health != nil {
		c.health.SetStreaming(false)
	}
}

// runCenterCycle executes one capture/detect/track/downconvert/classify
// cycle for a single center frequency. IOError return values abort
// only this center's block; per-peak errors are isolated internally
// and never reach the caller.
func (c *Controller) runCenterCycle(ctx context.Context, centerHz uint64) error {
	t0 := c.now()

	bufDurationSec := math.Max(30, 2*c.cfg.NarrowbandCaptureDurationSec)
	buf, ok := c.buffers[centerHz]
	if !ok {
		buf = buffer.New(c.cfg.IQSampleRateHz, bufDurationSec)
		c.buffers[centerHz] = buf
	}

	if err := c.device.Tune(ctx, centerHz); err != nil {
		return err
	}
	if err := c.device.StartStream(ctx); err != nil {
		return err
	}
	if c.health != nil {
		c.health.SetStreaming(true)
	}

	n := int(float64(c.cfg.IQSampleRateHz) * c.cfg.ScanDurationSec)
	block, err := c.device.CaptureSamples(ctx, n)
	if err != nil {
		c.device.StopStream(ctx)
		return err
	}
	buf.Append(block)

	c.processCapture(centerHz, buf, block)

	if err := c.device.StopStream(ctx); err != nil {
		return err
	}
	if c.health != nil {
		c.health.SetStreaming(false)
		c.health.RecordCycle(c.now())
	}
	if c.metrics != nil {
		c.metrics.ObserveCycle(centerLabel(centerHz), c.now().Sub(t0).Seconds())
	}

	elapsed := c.now().Sub(t0)
	remaining := time.Duration(c.cfg.ScanDurationSec*float64(time.Second)) - elapsed
	if remaining > 0 {
		c.sleep(remaining)
	}
	return nil
}

// processCapture runs the FFT/detect/track/continuity/downconvert/
// classify stages over the just-captured block; all errors here are
// per-peak and isolated (spec.md §7).
func (c *Controller) processCapture(centerHz uint64, buf *buffer.CircularIQBuffer, block []buffer.Sample) {
	now := c.now()

	peaks := c.processor.ExtractPeakRegions(block)
	var voiceBandwidthPeaks []spectrum.Peak
	for _, p := range peaks {
		if p.BandwidthHz >= c.cfg.MinVoiceBandwidthHz {
			voiceBandwidthPeaks = append(voiceBandwidthPeaks, p)
		}
	}

	if c.metrics != nil {
		c.metrics.ObservePeaksDetected(centerLabel(centerHz), len(peaks))
	}
	if c.live != nil {
		snap := live.Snapshot{CenterFrequencyHz: float64(centerHz)}
		snap.Freqs, snap.SpectrumDB = c.processor.ComputeSpectrum(block)
		for _, p := range voiceBandwidthPeaks {
			snap.PeakFreqsHz = append(snap.PeakFreqsHz, p.FrequencyOffsetHz)
		}
		c.live.Broadcast(snap)
	}

	stable := c.tracker.Update(now, voiceBandwidthPeaks)
	if c.metrics != nil {
		c.metrics.ObservePeaksStable(centerLabel(centerHz), len(stable))
	}

	for _, peak := range stable {
		c.observer.Update(peak.FrequencyOffsetHz, peak.PowerDB, now)
		if c.observer.IsContinuous(peak.FrequencyOffsetHz, c.cfg.ObserverDutyCycleThresh, c.cfg.ObserverCVThresh, now) {
			continue
		}
		c.tryCapture(centerHz, buf, peak, now)
	}
}

func (c *Controller) tryCapture(centerHz uint64, buf *buffer.CircularIQBuffer, peak spectrum.Peak, now time.Time) {
	wideband, err := buf.ExtractRecent(c.cfg.NarrowbandCaptureDurationSec)
	if err != nil {
		c.logPeakError("insufficient_data", centerHz, peak, err)
		return
	}

	targetFreq := float64(centerHz) + peak.FrequencyOffsetHz
	rx, err := receiver.New(float64(centerHz), targetFreq, float64(c.cfg.IQSampleRateHz), float64(c.cfg.NarrowbandSampleRateHz))
	if err != nil {
		c.logPeakError("invalid_rate", centerHz, peak, err)
		return
	}

	narrow := rx.ExtractSubband(wideband)
	if !c.classify.IsSpeechLike(narrow, float64(c.cfg.NarrowbandSampleRateHz)) {
		return
	}

	record := queue.Record{
		CenterFrequency: float64(centerHz),
		SignalFrequency: targetFreq,
		PowerDB:         peak.PowerDB,
		Bandwidth:       peak.BandwidthHz,
		Timestamp:       now.UTC().Format(time.RFC3339),
		SampleRate:      c.cfg.NarrowbandSampleRateHz,
		IQData:          narrow,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.sink.Put(ctx, record); err != nil {
		c.logPeakError("queue_put", centerHz, peak, err)
		return
	}
	if c.metrics != nil {
		c.metrics.ObserveCaptureQueued(centerLabel(centerHz), float64(now.Unix()))
	}
}

func (c *Controller) logPeakError(kind string, centerHz uint64, peak spectrum.Peak, err error) {
	c.logger.Printf("scanner: %s at center %d peak %.1f Hz: %v", kind, centerHz, peak.FrequencyOffsetHz, err)
	if c.metrics != nil {
		c.metrics.ObserveError(kind)
	}
}

func centerLabel(centerHz uint64) string {
	return fmt.Sprintf("%d", centerHz)
}
