// Package config loads the receiver configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/racerxdl/spyadapter/spyserver"
	"github.com/racerxdl/spyadapter/spywrap"
)

const envPrefix = "SPYADAPTER_"

// Config represents the complete configuration of the receiver tools
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Airspy    AirspyConfig    `yaml:"airspy"`
	Spyserver SpyserverConfig `yaml:"spyserver"`
	// Duration is how long the tools stream before exiting.
	Duration time.Duration `yaml:"duration"`
}

// LogConfig holds the klog verbosity and optional rotating log file
type LogConfig struct {
	Verbosity  int    `yaml:"verbosity"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// MetricsConfig holds the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// AirspyConfig holds the local device settings
type AirspyConfig struct {
	// Serial in hex, empty opens the first available device.
	Serial     string `yaml:"serial"`
	Frequency  uint32 `yaml:"frequency"`
	SampleRate uint32 `yaml:"sampleRate"`
	SampleType string `yaml:"sampleType"`
	LNAGain    uint8  `yaml:"lnaGain"`
	MixerGain  uint8  `yaml:"mixerGain"`
	VGAGain    uint8  `yaml:"vgaGain"`
	AGC        bool   `yaml:"agc"`
	BiasT      bool   `yaml:"biasT"`
}

// SpyserverConfig holds the remote server settings
type SpyserverConfig struct {
	Address        string        `yaml:"address"`
	SoftwareID     string        `yaml:"softwareId"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	Frequency      uint32        `yaml:"frequency"`
	SampleRate     uint32        `yaml:"sampleRate"`
	StreamingMode  string        `yaml:"streamingMode"`
	Gain           uint32        `yaml:"gain"`
	DisplayPixels  uint32        `yaml:"displayPixels"`
}

var streamingModes = map[string]uint32{
	"iq":     spyserver.StreamModeIQOnly,
	"fft":    spyserver.StreamModeFFTOnly,
	"fft+iq": spyserver.StreamModeFFTIQ,
}

// Load builds the configuration from the defaults, the YAML file at path (when not
// empty) and the SPYADAPTER_* environment variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Airspy: AirspyConfig{
			Frequency:  106300000,
			SampleType: spywrap.AirspySampleFloat32Iq.String(),
			LNAGain:    8,
			MixerGain:  5,
			VGAGain:    5,
		},
		Spyserver: SpyserverConfig{
			Address:        "127.0.0.1:5555",
			SoftwareID:     spyserver.DefaultSoftwareID,
			ConnectTimeout: spyserver.DefaultConnectTimeout,
			Frequency:      106300000,
			StreamingMode:  "iq",
			DisplayPixels:  2000,
		},
		Duration: 10 * time.Second,
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.UnmarshalStrict(data, cfg)
}

type lookupFunc func(key string) (string, bool)

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, bits int, set func(uint64)) error {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", envPrefix, name, v, err)
		}
		set(n)
		return nil
	}

	str("LOG_FILE", &cfg.Log.File)
	str("METRICS_LISTEN", &cfg.Metrics.Listen)
	str("AIRSPY_SERIAL", &cfg.Airspy.Serial)
	str("AIRSPY_SAMPLE_TYPE", &cfg.Airspy.SampleType)
	str("SPYSERVER_ADDRESS", &cfg.Spyserver.Address)
	str("SPYSERVER_STREAMING_MODE", &cfg.Spyserver.StreamingMode)

	nums := []struct {
		name string
		bits int
		set  func(uint64)
	}{
		{"LOG_VERBOSITY", 8, func(n uint64) { cfg.Log.Verbosity = int(n) }},
		{"AIRSPY_FREQUENCY", 32, func(n uint64) { cfg.Airspy.Frequency = uint32(n) }},
		{"AIRSPY_SAMPLE_RATE", 32, func(n uint64) { cfg.Airspy.SampleRate = uint32(n) }},
		{"SPYSERVER_FREQUENCY", 32, func(n uint64) { cfg.Spyserver.Frequency = uint32(n) }},
		{"SPYSERVER_SAMPLE_RATE", 32, func(n uint64) { cfg.Spyserver.SampleRate = uint32(n) }},
		{"SPYSERVER_GAIN", 32, func(n uint64) { cfg.Spyserver.Gain = uint32(n) }},
	}
	for _, n := range nums {
		if err := num(n.name, n.bits, n.set); err != nil {
			return err
		}
	}

	if v, ok := lookup(envPrefix + "DURATION"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sDURATION %q: %w", envPrefix, v, err)
		}
		cfg.Duration = d
	}
	return nil
}

// Validate checks the ranges the devices accept.
func (c *Config) Validate() error {
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log verbosity %d must not be negative", c.Log.Verbosity)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration %s must be positive", c.Duration)
	}
	if c.Metrics.Listen != "" && c.Metrics.Path == "" {
		return fmt.Errorf("metrics path must be set when metrics are enabled")
	}

	a := c.Airspy
	if _, err := a.SerialNumber(); err != nil {
		return err
	}
	if a.Frequency < 24000000 || a.Frequency > 1750000000 {
		return fmt.Errorf("airspy frequency %d is outside [24000000, 1750000000]", a.Frequency)
	}
	if _, err := spywrap.ParseSampleType(a.SampleType); err != nil {
		return fmt.Errorf("airspy: %w", err)
	}
	for name, g := range map[string]uint8{"lna": a.LNAGain, "mixer": a.MixerGain, "vga": a.VGAGain} {
		if g > 15 {
			return fmt.Errorf("airspy %s gain %d is outside [0, 15]", name, g)
		}
	}

	s := c.Spyserver
	if s.Address == "" {
		return fmt.Errorf("spyserver address must be set")
	}
	if s.ConnectTimeout <= 0 {
		return fmt.Errorf("spyserver connect timeout %s must be positive", s.ConnectTimeout)
	}
	if _, ok := streamingModes[s.StreamingMode]; !ok {
		return fmt.Errorf("invalid spyserver streaming mode %q, must be one of: iq, fft, fft+iq", s.StreamingMode)
	}
	return nil
}

// SerialNumber parses Serial. 0 means the first available device.
func (a AirspyConfig) SerialNumber() (uint64, error) {
	if a.Serial == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(trimHexPrefix(a.Serial), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid airspy serial %q: %w", a.Serial, err)
	}
	return n, nil
}

func (a AirspyConfig) SampleTypeValue() spywrap.SampleType {
	t, _ := spywrap.ParseSampleType(a.SampleType)
	return t
}

func (s SpyserverConfig) StreamingModeValue() uint32 {
	return streamingModes[s.StreamingMode]
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
