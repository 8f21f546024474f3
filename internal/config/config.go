// Package config loads AudioLab settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/align"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/spatial"
)

// Config is the settings shared by the CLI and the server.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Audio    AudioConfig    `yaml:"audio"`
	Align    AlignConfig    `yaml:"align"`
	Waveform WaveformConfig `yaml:"waveform"`
	Spatial  SpatialConfig  `yaml:"spatial"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AudioConfig struct {
	TempDir    string `yaml:"temp_dir"`
	SourceBase string `yaml:"source_base"` // URL or directory for relative sources
	SampleRate int    `yaml:"sample_rate"` // 0 keeps each file's rate
}

type AlignConfig struct {
	Method     string  `yaml:"method"`
	TargetRate float64 `yaml:"target_rate"`
	MaxLagSec  float64 `yaml:"max_lag_sec"`
}

type WaveformConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type SpatialConfig struct {
	FPS       float64  `yaml:"fps"`
	Positions []string `yaml:"positions"`
	Split     bool     `yaml:"split_channels"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "audiolab.sqlite3"},
		Audio:    AudioConfig{TempDir: "/tmp"},
		Align: AlignConfig{
			Method:     align.MethodDirect,
			TargetRate: align.DefaultTargetRate,
			MaxLagSec:  align.DefaultMaxLagSec,
		},
		Waveform: WaveformConfig{Width: 800, Height: 120},
		Spatial: SpatialConfig{
			FPS:       30,
			Positions: []string{"(-90.0, 10.0)", "(90.0, -10.0)", "(45.0, -20.0)", "(-45.0, 20.0)"},
			Split:     true,
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			MaxUploadMB:    100,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("AUDIOLAB_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("AUDIOLAB_TEMP_DIR"); v != "" {
		c.Audio.TempDir = v
	}
	if v := os.Getenv("AUDIOLAB_SOURCE_BASE"); v != "" {
		c.Audio.SourceBase = v
	}
	if v := os.Getenv("AUDIOLAB_SAMPLE_RATE"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AUDIOLAB_SAMPLE_RATE %q: %w", v, err)
		}
		c.Audio.SampleRate = rate
	}
	if v := os.Getenv("AUDIOLAB_ALIGN_METHOD"); v != "" {
		c.Align.Method = strings.ToLower(v)
	}
	if v := os.Getenv("AUDIOLAB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AUDIOLAB_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("AUDIOLAB_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Layout returns the spatial source layout.
func (c *Config) Layout() spatial.Layout {
	return spatial.Layout{Positions: c.Spatial.Positions, Split: c.Spatial.Split}
}

// AlignOptions converts the align section for the estimator.
func (c *Config) AlignOptions() align.Options {
	return align.Options{
		TargetRate: c.Align.TargetRate,
		MaxLagSec:  c.Align.MaxLagSec,
		Method:     c.Align.Method,
	}
}

// Validate checks values the loaders cannot.
func (c *Config) Validate() error {
	switch c.Align.Method {
	case align.MethodDirect, align.MethodFFT:
	default:
		return fmt.Errorf("invalid align method: %s (valid: %s, %s)", c.Align.Method, align.MethodDirect, align.MethodFFT)
	}
	if c.Align.MaxLagSec < 0 {
		return fmt.Errorf("max_lag_sec must not be negative, got %g", c.Align.MaxLagSec)
	}
	if c.Audio.SampleRate < 0 {
		return fmt.Errorf("sample_rate must not be negative, got %d", c.Audio.SampleRate)
	}
	if c.Spatial.FPS <= 0 {
		return fmt.Errorf("spatial fps must be positive, got %g", c.Spatial.FPS)
	}
	for _, p := range c.Spatial.Positions {
		if _, err := spatial.ParseAzEl(p); err != nil {
			return fmt.Errorf("invalid spatial position %q: %w", p, err)
		}
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
