// Package health exposes a JSON health/status endpoint reporting
// uptime, CPU load, and scanner liveness, grounded on the corpus's
// LoadHistoryTracker use of gopsutil for CPU core counting.
package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Status is the JSON payload served at the health endpoint.
type Status struct {
	UptimeSec       float64 `json:"uptime_sec"`
	CPUCores        int     `json:"cpu_cores"`
	CPUPercent      float64 `json:"cpu_percent"`
	Goroutines      int     `json:"goroutines"`
	Streaming       bool    `json:"streaming"`
	LastCycleUnixTs int64   `json:"last_cycle_unix_ts"`
}

// Monitor tracks process start time and the scanner's liveness flags,
// serving them as JSON on demand.
type Monitor struct {
	startedAt    time.Time
	cpuCores     int
	streaming    atomic.Bool
	lastCycleUTS atomic.Int64
}

// NewMonitor builds a health monitor, querying CPU core count once at
// startup (it does not change at runtime).
func NewMonitor() *Monitor {
	cores := 0
	if info, err := cpu.Info(); err == nil {
		for _, c := range info {
			cores += int(c.Cores)
		}
	}
	return &Monitor{startedAt: time.Now(), cpuCores: cores}
}

// SetStreaming records whether the scan controller currently has an
// active SDR stream.
func (m *Monitor) SetStreaming(streaming bool) {
	m.streaming.Store(streaming)
}

// RecordCycle records the unix timestamp of the most recently
// completed scan cycle.
func (m *Monitor) RecordCycle(t time.Time) {
	m.lastCycleUTS.Store(t.Unix())
}

// ServeHTTP writes the current Status as JSON.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	percentages, err := cpu.Percent(0, false)
	var cpuPercent float64
	if err == nil && len(percentages) > 0 {
		cpuPercent = percentages[0]
	}

	status := Status{
		UptimeSec:       time.Since(m.startedAt).Seconds(),
		CPUCores:        m.cpuCores,
		CPUPercent:      cpuPercent,
		Goroutines:      runtime.NumGoroutine(),
		Streaming:       m.streaming.Load(),
		LastCycleUnixTs: m.lastCycleUTS.Load(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
