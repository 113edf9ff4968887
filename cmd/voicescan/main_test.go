package main

import (
	"testing"

	"github.com/cwsl/voicescan/internal/config"
	"github.com/cwsl/voicescan/internal/sdr"
)

func TestBuildDeviceSelectsSimulatedDriver(t *testing.T) {
	cfg := &config.Config{Driver: "sim", IQSampleRateHz: 24000}
	device, err := buildDevice(cfg)
	if err != nil {
		t.Fatalf("buildDevice: %v", err)
	}
	if _, ok := device.(*sdr.SimulatedDevice); !ok {
		t.Fatalf("got %T, want *sdr.SimulatedDevice", device)
	}
}

func TestBuildDeviceRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{Driver: "carrier-pigeon", IQSampleRateHz: 24000}
	if _, err := buildDevice(cfg); err == nil {
		t.Fatalf("expected an error for an unrecognized driver")
	}
}

func TestBuildSinkDefaultsToInMemory(t *testing.T) {
	cfg := &config.Config{}
	sink, closeSink, err := buildSink(cfg)
	if err != nil {
		t.Fatalf("buildSink: %v", err)
	}
	defer closeSink()
	if !sink.Empty() {
		t.Fatalf("expected a fresh in-memory sink to be empty")
	}
}
