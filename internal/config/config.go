// Package config loads and validates scanner configuration, per
// spec.md §6's recognized options. Shaped after the corpus's own
// config.go: a single YAML-tagged struct tree, os.ReadFile +
// yaml.Unmarshal, post-unmarshal defaulting, then an explicit
// Validate() pass.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/cwsl/voicescan/internal/scanerr"
)

// schemaVersionConstraint gates config files written for an
// incompatible future schema; bumped whenever a recognized option's
// meaning changes in a way old configs wouldn't expect.
const schemaVersionConstraint = ">= 1.0, < 2.0"

// FFTConfig holds the peak-detection thresholds of spec.md §6.
type FFTConfig struct {
	ThresholdDB   float64 `yaml:"threshold_db"`
	MinDistanceHz int     `yaml:"min_distance_hz"`
}

// PeakTrackerConfig holds stability-tracking parameters.
type PeakTrackerConfig struct {
	MinHits   int `yaml:"min_hits"`
	WindowSec int `yaml:"window_sec"`
}

// Config is the full set of recognized scanner options (spec.md §6),
// plus the ambient sink/transport options SPEC_FULL.md adds.
type Config struct {
	SchemaVersion string `yaml:"schema_version"`

	Driver          string              `yaml:"driver"`
	Band            string              `yaml:"band"`
	BandFrequencies map[string][]uint64 `yaml:"band_frequencies"`

	IQSampleRateHz int `yaml:"iq_sample_rate_hz"`
	RFGainDB       int `yaml:"rf_gain_db"`

	ScanDurationSec              float64 `yaml:"scan_duration_sec"`
	MinVoiceBandwidthHz          int     `yaml:"min_voice_bandwidth_hz"`
	NarrowbandSampleRateHz       int     `yaml:"narrowband_sample_rate_hz"`
	NarrowbandCaptureDurationSec int     `yaml:"narrowband_capture_duration_sec"`

	FFT         FFTConfig         `yaml:"fft"`
	PeakTracker PeakTrackerConfig `yaml:"peak_tracker"`

	Observer ObserverConfig `yaml:"observer"`

	MQTT   MQTTConfig   `yaml:"mqtt"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	Live   LiveConfig   `yaml:"live"`
	Health HealthConfig `yaml:"health"`
	RTLTCP RTLTCPConfig `yaml:"rtl_tcp"`
}

// ObserverConfig holds frequency-continuity parameters not named in
// spec.md §6 but required to drive internal/observer.
type ObserverConfig struct {
	WindowSec           float64 `yaml:"window_sec"`
	ActivityThresholdDB float64 `yaml:"activity_threshold_db"`
	DutyCycleThresh     float64 `yaml:"duty_cycle_thresh"`
	CVThresh            float64 `yaml:"cv_thresh"`
}

// MQTTConfig configures the optional MQTT capture sink.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SQLiteConfig configures the optional SQLite capture-metadata sink.
type SQLiteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LiveConfig configures the websocket live-spectrum feed.
type LiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// HealthConfig configures the health/metrics HTTP surface.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// RTLTCPConfig configures the rtl_tcp network SDR driver.
type RTLTCPConfig struct {
	Address string `yaml:"address"`
}

// Load reads and validates a YAML configuration file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &scanerr.ConfigError{Field: filename, Err: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &scanerr.ConfigError{Field: filename, Err: err}
	}

	cfg.applyDefaults()

	if err := cfg.checkSchemaVersion(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ScanDurationSec == 0 {
		c.ScanDurationSec = 1.0
	}
	if c.NarrowbandSampleRateHz == 0 {
		c.NarrowbandSampleRateHz = 48000
	}
	if c.NarrowbandCaptureDurationSec == 0 {
		c.NarrowbandCaptureDurationSec = 3
	}
	if c.FFT.ThresholdDB == 0 {
		c.FFT.ThresholdDB = 10
	}
	if c.FFT.MinDistanceHz == 0 {
		c.FFT.MinDistanceHz = 5000
	}
	if c.PeakTracker.MinHits == 0 {
		c.PeakTracker.MinHits = 3
	}
	if c.PeakTracker.WindowSec == 0 {
		c.PeakTracker.WindowSec = 10
	}
	if c.Observer.WindowSec == 0 {
		c.Observer.WindowSec = 30
	}
	if c.Observer.ActivityThresholdDB == 0 {
		c.Observer.ActivityThresholdDB = 6
	}
	if c.Observer.DutyCycleThresh == 0 {
		c.Observer.DutyCycleThresh = 0.5
	}
	if c.Observer.CVThresh == 0 {
		c.Observer.CVThresh = 0.2
	}
	if c.SchemaVersion == "" {
		c.SchemaVersion = "1.0"
	}
}

// checkSchemaVersion gates on a config written for a schema this
// binary can't interpret, using github.com/hashicorp/go-version for
// semantic comparison rather than brittle string equality.
func (c *Config) checkSchemaVersion() error {
	v, err := version.NewVersion(c.SchemaVersion)
	if err != nil {
		return &scanerr.ConfigError{Field: "schema_version", Err: err}
	}
	constraint, err := version.NewConstraint(schemaVersionConstraint)
	if err != nil {
		return &scanerr.ConfigError{Field: "schema_version", Err: err}
	}
	if !constraint.Check(v) {
		return &scanerr.ConfigError{
			Field: "schema_version",
			Err:   fmt.Errorf("schema version %s does not satisfy %s", c.SchemaVersion, schemaVersionConstraint),
		}
	}
	return nil
}

// Validate checks the recognized options named in spec.md §6.
func (c *Config) Validate() error {
	if c.Driver == "" {
		return &scanerr.ConfigError{Field: "driver", Err: fmt.Errorf("must not be empty")}
	}
	if c.Band == "" {
		return &scanerr.ConfigError{Field: "band", Err: fmt.Errorf("must not be empty")}
	}
	centers, ok := c.BandFrequencies[c.Band]
	if !ok {
		return &scanerr.ConfigError{Field: "band", Err: fmt.Errorf("band %q not present in band_frequencies", c.Band)}
	}
	if len(centers) == 0 {
		return &scanerr.ConfigError{Field: "band_frequencies", Err: fmt.Errorf("band %q has no configured centers", c.Band)}
	}
	if c.IQSampleRateHz <= 0 {
		return &scanerr.ConfigError{Field: "iq_sample_rate_hz", Err: fmt.Errorf("must be positive")}
	}
	if c.NarrowbandSampleRateHz <= 0 || c.NarrowbandSampleRateHz >= c.IQSampleRateHz {
		return &scanerr.ConfigError{Field: "narrowband_sample_rate_hz", Err: fmt.Errorf("must be positive and below iq_sample_rate_hz")}
	}
	if c.ScanDurationSec <= 0 {
		return &scanerr.ConfigError{Field: "scan_duration_sec", Err: fmt.Errorf("must be positive")}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return &scanerr.ConfigError{Field: "mqtt.broker", Err: fmt.Errorf("required when mqtt.enabled is true")}
	}
	if c.SQLite.Enabled && c.SQLite.Path == "" {
		return &scanerr.ConfigError{Field: "sqlite.path", Err: fmt.Errorf("required when sqlite.enabled is true")}
	}
	return nil
}

// Centers returns the configured band's ordered list of center
// frequencies in Hz.
func (c *Config) Centers() []uint64 {
	return c.BandFrequencies[c.Band]
}
