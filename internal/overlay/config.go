package overlay

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ichi0g0y/bits-wheel/internal/wheel"
	"gopkg.in/yaml.v3"
)

// Config はオーバーレイクライアントの設定。YAMLファイルの値がデフォルトを上書きする。
type Config struct {
	ServerURL          string        `yaml:"server_url"`
	Variant            wheel.Variant `yaml:"variant"`
	RoundDuration      time.Duration `yaml:"round_duration"`
	SpinDuration       time.Duration `yaml:"spin_duration"`
	FrameInterval      time.Duration `yaml:"frame_interval"`
	ResultDuration     time.Duration `yaml:"result_duration"`
	KeepResultDuration time.Duration `yaml:"keep_result_duration"`
	NextSpinDelay      time.Duration `yaml:"next_spin_delay"`
	DBPath             string        `yaml:"db_path"`
	Debug              bool          `yaml:"debug"`
}

// DefaultConfig returns the stock overlay timings.
func DefaultConfig() Config {
	return Config{
		ServerURL:          "ws://localhost:3000/ws",
		Variant:            wheel.VariantStandard,
		RoundDuration:      120 * time.Second,
		SpinDuration:       5000 * time.Millisecond,
		FrameInterval:      16 * time.Millisecond,
		ResultDuration:     8000 * time.Millisecond,
		KeepResultDuration: 1800 * time.Millisecond,
		NextSpinDelay:      2000 * time.Millisecond,
		DBPath:             "bits-wheel.db",
	}
}

// LoadConfig reads path over DefaultConfig. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read overlay config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse overlay config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.RoundDuration < time.Second {
		return fmt.Errorf("round_duration must be at least 1s, got %s", c.RoundDuration)
	}
	if c.SpinDuration < 0 || c.ResultDuration < 0 || c.KeepResultDuration < 0 || c.NextSpinDelay < 0 {
		return errors.New("durations must not be negative")
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame_interval must be positive, got %s", c.FrameInterval)
	}
	if _, err := wheel.New(c.Variant); err != nil {
		return err
	}
	return nil
}

// RoundSeconds is the countdown start value.
func (c Config) RoundSeconds() int {
	return int(c.RoundDuration / time.Second)
}
