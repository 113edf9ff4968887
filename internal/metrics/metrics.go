// Package metrics exposes scan-cycle counters and gauges to
// Prometheus, in the promauto-registered GaugeVec/CounterVec style the
// corpus's own PrometheusMetrics uses.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scanner holds the collectors the scan controller updates each cycle.
type Scanner struct {
	captureCyclesTotal   *prometheus.CounterVec
	peaksDetectedTotal   *prometheus.CounterVec
	peaksStableTotal     *prometheus.CounterVec
	capturesQueuedTotal  *prometheus.CounterVec
	captureErrorsTotal   *prometheus.CounterVec
	lastCycleDurationSec *prometheus.GaugeVec
	noiseFloorDB         *prometheus.GaugeVec
	lastCaptureTimestamp *prometheus.GaugeVec
}

// NewScanner registers the scanner metric collectors against the
// default registry.
func NewScanner() *Scanner {
	return NewScannerWith(prometheus.DefaultRegisterer)
}

// NewScannerWith registers the scanner metric collectors against reg,
// so callers (and tests) needing isolation from the global default
// registry can supply their own.
func NewScannerWith(reg prometheus.Registerer) *Scanner {
	factory := promauto.With(reg)
	return &Scanner{
		captureCyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicescan",
			Name:      "capture_cycles_total",
			Help:      "Number of scan cycles completed per center frequency.",
		}, []string{"center_hz"}),

		peaksDetectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicescan",
			Name:      "peaks_detected_total",
			Help:      "Number of raw spectral peaks detected per center frequency.",
		}, []string{"center_hz"}),

		peaksStableTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicescan",
			Name:      "peaks_stable_total",
			Help:      "Number of peaks confirmed stable by the tracker per center frequency.",
		}, []string{"center_hz"}),

		capturesQueuedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicescan",
			Name:      "captures_queued_total",
			Help:      "Number of capture records pushed to the queue per center frequency.",
		}, []string{"center_hz"}),

		captureErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicescan",
			Name:      "capture_errors_total",
			Help:      "Number of per-peak or per-center errors encountered, by kind.",
		}, []string{"kind"}),

		lastCycleDurationSec: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voicescan",
			Name:      "last_cycle_duration_seconds",
			Help:      "Wall-clock duration of the most recent scan cycle per center frequency.",
		}, []string{"center_hz"}),

		noiseFloorDB: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voicescan",
			Name:      "noise_floor_db",
			Help:      "Median spectrum power in dB for the most recent capture per center frequency.",
		}, []string{"center_hz"}),

		lastCaptureTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voicescan",
			Name:      "last_capture_unix_timestamp",
			Help:      "Unix timestamp of the last capture record queued per center frequency.",
		}, []string{"center_hz"}),
	}
}

func (s *Scanner) ObserveCycle(centerHz string, durationSec float64) {
	s.captureCyclesTotal.WithLabelValues(centerHz).Inc()
	s.lastCycleDurationSec.WithLabelValues(centerHz).Set(durationSec)
}

func (s *Scanner) ObservePeaksDetected(centerHz string, n int) {
	s.peaksDetectedTotal.WithLabelValues(centerHz).Add(float64(n))
}

func (s *Scanner) ObservePeaksStable(centerHz string, n int) {
	s.peaksStableTotal.WithLabelValues(centerHz).Add(float64(n))
}

func (s *Scanner) ObserveCaptureQueued(centerHz string, timestampUnix float64) {
	s.capturesQueuedTotal.WithLabelValues(centerHz).Inc()
	s.lastCaptureTimestamp.WithLabelValues(centerHz).Set(timestampUnix)
}

func (s *Scanner) ObserveError(kind string) {
	s.captureErrorsTotal.WithLabelValues(kind).Inc()
}

func (s *Scanner) ObserveNoiseFloor(centerHz string, medianDB float64) {
	s.noiseFloorDB.WithLabelValues(centerHz).Set(medianDB)
}
