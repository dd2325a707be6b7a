// Package config loads the secsdemo configuration from YAML.
//
// Values are resolved in three layers: built-in defaults, then the YAML file
// (if any), then SECS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the demo.
type Config struct {
	Runner  RunnerConfig  `yaml:"runner"`
	Scene   SceneConfig   `yaml:"scene"`
	Logging LoggingConfig `yaml:"logging"`
	Profile ProfileConfig `yaml:"profile"`
}

// RunnerConfig controls the tick loop.
type RunnerConfig struct {
	// TickRate is the tick period in milliseconds.
	TickRate int `yaml:"tick_rate"`
	// Ticks stops the demo after that many ticks. Zero runs until interrupted.
	Ticks int `yaml:"ticks"`
	// Workers caps parallel dispatch. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// SceneConfig describes the entities spawned at startup.
type SceneConfig struct {
	Windows       int     `yaml:"windows"`
	SurfaceWidth  int     `yaml:"surface_width"`
	SurfaceHeight int     `yaml:"surface_height"`
	LoadDelay     int     `yaml:"load_delay"`
	LoadTimeout   int     `yaml:"load_timeout"`
	OrbitSpeed    float32 `yaml:"orbit_speed"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ProfileConfig enables github.com/pkg/profile.
type ProfileConfig struct {
	// Mode is "", "cpu" or "mem".
	Mode string `yaml:"mode"`
	Path string `yaml:"path"`
}

// Load reads path and returns the resolved configuration.
// An empty path skips the file and uses defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Runner: RunnerConfig{
			TickRate: 50,
			Ticks:    100,
		},
		Scene: SceneConfig{
			Windows:       2,
			SurfaceWidth:  1280,
			SurfaceHeight: 720,
			LoadDelay:     120,
			LoadTimeout:   2000,
			OrbitSpeed:    0.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Profile: ProfileConfig{
			Path: ".",
		},
	}
}

// applyEnvOverrides reads SECS_TICK_RATE (a Go duration or milliseconds),
// SECS_TICKS and SECS_LOG_LEVEL.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SECS_TICK_RATE"); v != "" {
		ms, err := parseMillis(v)
		if err != nil {
			return fmt.Errorf("SECS_TICK_RATE: %w", err)
		}
		cfg.Runner.TickRate = ms
	}
	if v := os.Getenv("SECS_TICKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SECS_TICKS: %w", err)
		}
		cfg.Runner.Ticks = n
	}
	if v := os.Getenv("SECS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

func parseMillis(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	return int(d / time.Millisecond), nil
}

// Validate checks the configuration for values the demo cannot run with.
func (c *Config) Validate() error {
	var errs []string

	if c.Runner.TickRate < 1 {
		errs = append(errs, "runner.tick_rate must be at least 1ms")
	}
	if c.Runner.Ticks < 0 {
		errs = append(errs, "runner.ticks must not be negative")
	}
	if c.Runner.Workers < 0 {
		errs = append(errs, "runner.workers must not be negative")
	}
	if c.Scene.Windows < 1 {
		errs = append(errs, "scene.windows must be at least 1")
	}
	if c.Scene.SurfaceWidth < 1 || c.Scene.SurfaceHeight < 1 {
		errs = append(errs, "scene surface dimensions must be positive")
	}
	if c.Scene.LoadDelay < 0 || c.Scene.LoadTimeout < 0 {
		errs = append(errs, "scene load delays must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem":
	default:
		errs = append(errs, fmt.Sprintf("profile.mode %q is not one of cpu, mem", c.Profile.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetTickRate returns the tick period.
func (c *Config) GetTickRate() time.Duration {
	return time.Duration(c.Runner.TickRate) * time.Millisecond
}

// GetLoadDelay returns the simulated surface creation latency.
func (c *Config) GetLoadDelay() time.Duration {
	return time.Duration(c.Scene.LoadDelay) * time.Millisecond
}

// GetLoadTimeout returns the bound on surface creation.
func (c *Config) GetLoadTimeout() time.Duration {
	return time.Duration(c.Scene.LoadTimeout) * time.Millisecond
}
