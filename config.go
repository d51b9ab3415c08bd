package sharedmic

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the capture profile shared captures are opened with and the
// manager's teardown policy.
type Config struct {
	SampleRate       int           `yaml:"sample_rate" mapstructure:"sample_rate"`
	ChannelCount     int           `yaml:"channel_count" mapstructure:"channel_count"`
	Latency          time.Duration `yaml:"latency" mapstructure:"latency"`
	EchoCancellation bool          `yaml:"echo_cancellation" mapstructure:"echo_cancellation"`
	AutoGainControl  bool          `yaml:"auto_gain_control" mapstructure:"auto_gain_control"`
	NoiseSuppression bool          `yaml:"noise_suppression" mapstructure:"noise_suppression"`
	// IdleTimeout delays hardware teardown after the last borrow is
	// released. Zero tears down immediately.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DefaultConfig returns the canonical profile: mono, 48 kHz, 20 ms chunks,
// echo cancellation, automatic gain control and noise suppression on.
func DefaultConfig() Config {
	return Config{
		SampleRate:       48000,
		ChannelCount:     1,
		Latency:          20 * time.Millisecond,
		EchoCancellation: true,
		AutoGainControl:  true,
		NoiseSuppression: true,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks that the profile can be requested from a driver.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("invalid sample_rate: %d", c.SampleRate)
	case c.ChannelCount <= 0:
		return fmt.Errorf("invalid channel_count: %d", c.ChannelCount)
	case c.Latency <= 0:
		return fmt.Errorf("invalid latency: %v", c.Latency)
	case c.IdleTimeout < 0:
		return fmt.Errorf("invalid idle_timeout: %v", c.IdleTimeout)
	}
	return nil
}
