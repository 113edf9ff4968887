package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scanner.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

const validConfig = `
driver: rtl_tcp
band: vhf
band_frequencies:
  vhf:
    - 145000000
    - 146000000
iq_sample_rate_hz: 2400000
narrowband_sample_rate_hz: 48000
scan_duration_sec: 1.0
`

func TestLoadValidConfigAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FFT.ThresholdDB != 10 {
		t.Fatalf("expected default threshold_db=10, got %v", cfg.FFT.ThresholdDB)
	}
	if cfg.PeakTracker.MinHits != 3 {
		t.Fatalf("expected default min_hits=3, got %v", cfg.PeakTracker.MinHits)
	}
	if len(cfg.Centers()) != 2 {
		t.Fatalf("expected 2 centers, got %d", len(cfg.Centers()))
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/path/scanner.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadMissingBandFails(t *testing.T) {
	path := writeTempConfig(t, `
driver: rtl_tcp
band: uhf
band_frequencies:
  vhf:
    - 145000000
iq_sample_rate_hz: 2400000
narrowband_sample_rate_hz: 48000
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for band not present in band_frequencies")
	}
}

func TestLoadNarrowbandRateAboveWidebandFails(t *testing.T) {
	path := writeTempConfig(t, `
driver: rtl_tcp
band: vhf
band_frequencies:
  vhf:
    - 145000000
iq_sample_rate_hz: 48000
narrowband_sample_rate_hz: 96000
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when narrowband rate exceeds wideband rate")
	}
}

func TestLoadMQTTEnabledWithoutBrokerFails(t *testing.T) {
	path := writeTempConfig(t, validConfig+"\nmqtt:\n  enabled: true\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for mqtt.enabled without broker")
	}
}
