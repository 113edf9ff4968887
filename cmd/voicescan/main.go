// Command voicescan runs the wideband scan pipeline against a
// simulated or rtl_tcp-backed SDR, per SPEC_FULL.md §5's graceful
// shutdown supervisor: a signal goroutine, a scan controller run in the
// background, and a final drain-and-log pass over whatever the queue
// sink still holds. Grounded on original_source/app/__main__.py's
// shutdown_event/thread/drain-on-exit shape, translated to the corpus's
// own flag-based CLI idiom.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwsl/voicescan/internal/config"
	"github.com/cwsl/voicescan/internal/health"
	"github.com/cwsl/voicescan/internal/live"
	"github.com/cwsl/voicescan/internal/metrics"
	"github.com/cwsl/voicescan/internal/queue"
	"github.com/cwsl/voicescan/internal/scanner"
	"github.com/cwsl/voicescan/internal/sdr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	driverOverride := flag.String("driver", "", "Override the configured driver (sim or rtltcp)")
	once := flag.Bool("once", false, "Run a single scan sweep over all configured centers and exit")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("voicescan: failed to load configuration: %v", err)
	}
	if *driverOverride != "" {
		cfg.Driver = *driverOverride
	}

	device, err := buildDevice(cfg)
	if err != nil {
		logger.Fatalf("voicescan: failed to build SDR device: %v", err)
	}

	sink, closeSink, err := buildSink(cfg)
	if err != nil {
		logger.Fatalf("voicescan: failed to build capture sink: %v", err)
	}
	defer closeSink()

	scanCfg := scanner.Config{
		Centers:                      cfg.Centers(),
		IQSampleRateHz:               cfg.IQSampleRateHz,
		ScanDurationSec:              cfg.ScanDurationSec,
		MinVoiceBandwidthHz:          float64(cfg.MinVoiceBandwidthHz),
		NarrowbandSampleRateHz:       cfg.NarrowbandSampleRateHz,
		NarrowbandCaptureDurationSec: float64(cfg.NarrowbandCaptureDurationSec),
		FFTThresholdDB:               cfg.FFT.ThresholdDB,
		FFTMinDistanceHz:             float64(cfg.FFT.MinDistanceHz),
		PeakTrackerMinHits:           cfg.PeakTracker.MinHits,
		PeakTrackerWindowSec:         float64(cfg.PeakTracker.WindowSec),
		ObserverWindowSec:            cfg.Observer.WindowSec,
		ObserverActivityThresholdDB:  cfg.Observer.ActivityThresholdDB,
		ObserverDutyCycleThresh:      cfg.Observer.DutyCycleThresh,
		ObserverCVThresh:             cfg.Observer.CVThresh,
	}

	opts := []scanner.Option{scanner.WithLogger(logger)}

	if cfg.Health.Enabled {
		monitor := health.NewMonitor()
		opts = append(opts, scanner.WithHealth(monitor))
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", monitor.ServeHTTP)
		mux.Handle("/metrics", promhttp.Handler())
		go serveHTTP(logger, "health", cfg.Health.Listen, mux)
	}

	if cfg.Live.Enabled {
		broadcaster := live.New()
		opts = append(opts, scanner.WithLive(broadcaster))
		mux := http.NewServeMux()
		mux.Handle("/live", broadcaster)
		go serveHTTP(logger, "live", cfg.Live.Listen, mux)
	}

	opts = append(opts, scanner.WithMetrics(metrics.NewScanner()))

	controller := scanner.New(device, sink, scanCfg, opts...)

	if *once {
		runOnce(logger, controller)
		drainAndLog(logger, sink)
		return
	}

	runSupervised(logger, controller)
	drainAndLog(logger, sink)
}

// buildDevice selects the SDR collaborator named by cfg.Driver
// (SPEC_FULL.md §2): "sim" for the in-process synthetic generator used
// by tests and demos, "rtltcp" for a real rtl_tcp server.
func buildDevice(cfg *config.Config) (sdr.Device, error) {
	switch cfg.Driver {
	case "sim":
		return sdr.NewSimulated(cfg.IQSampleRateHz, demoToneGenerator(cfg)), nil
	case "rtltcp":
		return sdr.NewRTLTCP(sdr.RTLTCPOptions{
			Address:      cfg.RTLTCP.Address,
			SampleRateHz: cfg.IQSampleRateHz,
			GainTenthsDB: cfg.RFGainDB * 10,
			DialTimeout:  5 * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown driver %q (want \"sim\" or \"rtltcp\")", cfg.Driver)
	}
}

// buildSink constructs the capture-queue collaborator: an in-memory
// queue always backs the scan controller (spec.md §6) and is the queue
// returned. When MQTT or SQLite is enabled, that sink is connected or
// opened here and closed by the returned func; captures put on the
// in-memory queue are not forwarded to it.
func buildSink(cfg *config.Config) (queue.Queue, func(), error) {
	primary := queue.NewInMemory(64)
	closers := []func(){}

	if cfg.MQTT.Enabled {
		clientID := cfg.MQTT.ClientID
		if clientID == "" {
			clientID = "voicescan_" + uuid.New().String()
		}
		mqttSink, err := queue.NewMQTTSink(queue.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			CAFile:   cfg.MQTT.CAFile,
			CertFile: cfg.MQTT.CertFile,
			KeyFile:  cfg.MQTT.KeyFile,
		})
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, mqttSink.Close)
	}

	if cfg.SQLite.Enabled {
		sqliteSink, err := queue.NewSQLiteSink(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { sqliteSink.Close() })
	}

	return primary, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// runSupervised runs the controller in the background and blocks until
// SIGINT or SIGTERM, then stops it — original_source/app/__main__.py's
// shutdown_event pattern translated to a signal channel and a Stop call
// observed at the next center boundary (spec.md §5's suspension point).
func runSupervised(logger *log.Logger, controller *scanner.Controller) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- controller.Run(context.Background())
	}()

	logger.Println("voicescan: scanner started")

	select {
	case sig := <-sigCh:
		logger.Printf("voicescan: signal %v received, shutting down...", sig)
		controller.Stop()
		<-done
	case err := <-done:
		if err != nil {
			logger.Printf("voicescan: scanner exited with error: %v", err)
		}
	}
	logger.Println("voicescan: scanner shutdown complete")
}

func runOnce(logger *log.Logger, controller *scanner.Controller) {
	logger.Println("voicescan: running a single scan sweep")
	if err := controller.RunOnce(context.Background()); err != nil {
		logger.Printf("voicescan: sweep exited with error: %v", err)
	}
}

// drainAndLog empties sink, logging a one-line summary per capture —
// __main__.py's final "while not capture_queue.empty()" loop.
func drainAndLog(logger *log.Logger, sink queue.Queue) {
	ctx := context.Background()
	for !sink.Empty() {
		rec, ok, err := sink.Get(ctx)
		if err != nil || !ok {
			return
		}
		logger.Printf("voicescan: captured %.1f Hz, power %.1f dB, bandwidth %.1f Hz",
			rec.SignalFrequency, rec.PowerDB, rec.Bandwidth)
	}
}

func serveHTTP(logger *log.Logger, name, addr string, handler http.Handler) {
	logger.Printf("voicescan: %s server listening on %s", name, addr)
	if err := http.ListenAndServe(addr, handler); err != nil && err != http.ErrServerClosed {
		logger.Printf("voicescan: %s server error: %v", name, err)
	}
}
