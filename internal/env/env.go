package env

import (
	"errors"
	"fmt"

	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/spin"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	DefaultBitsPerSpin = 100
	DefaultTokenURL    = "https://id.twitch.tv/oauth2/token"
	DefaultHelixURL    = "https://api.twitch.tv/helix"
)

// Config はリレーサーバーの設定
type Config struct {
	ClientID       string `env:"TWITCH_CLIENT_ID"`
	ClientSecret   string `env:"TWITCH_CLIENT_SECRET"`
	EventSubSecret string `env:"EVENTSUB_SECRET"`
	ServerPort     int    `env:"PORT,default=3000"`
	BitsPerSpin    int    `env:"BITS_PER_SPIN,default=100"`
	MaxSpins       int    `env:"MAX_SPINS_PER_REQUEST,default=1000"`
	PublicDir      string `env:"PUBLIC_DIR,default=./public"`
	TokenURL       string `env:"TWITCH_TOKEN_URL,default=https://id.twitch.tv/oauth2/token"`
	HelixURL       string `env:"TWITCH_API_URL,default=https://api.twitch.tv/helix"`
	DebugMode      bool   `env:"DEBUG_MODE,default=false"`

	// BroadcasterID と CallbackURL が揃っている時だけ起動時に channel.cheer を購読する
	BroadcasterID string `env:"TWITCH_BROADCASTER_ID"`
	CallbackURL   string `env:"EVENTSUB_CALLBACK_URL"`
}

// Value holds the configuration loaded by LoadEnv.
var Value Config

// Load reads an optional .env file and decodes the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables", zap.Error(err))
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnv loads the configuration into Value, exiting the process on failure.
func LoadEnv() {
	cfg, err := Load()
	if err != nil {
		logger.Fatal("Failed to load environment", zap.Error(err))
	}
	Value = cfg

	if cfg.EventSubSecret == "" {
		logger.Warn("EVENTSUB_SECRET is not set, every webhook will be rejected")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.Warn("TWITCH_CLIENT_ID / TWITCH_CLIENT_SECRET not set, app token fetch will fail")
	}
}

// Validate checks value ranges that envdecode cannot express.
func (c Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.ServerPort)
	}
	if c.BitsPerSpin <= 0 {
		return errors.New("BITS_PER_SPIN must be positive")
	}
	if c.MaxSpins <= 0 || c.MaxSpins > spin.MaxSpinsPerRequest {
		return fmt.Errorf("MAX_SPINS_PER_REQUEST must be in 1..%d, got %d", spin.MaxSpinsPerRequest, c.MaxSpins)
	}
	return nil
}

// AutoSubscribe reports whether the relay should register its own channel.cheer webhook.
func (c Config) AutoSubscribe() bool {
	return c.BroadcasterID != "" && c.CallbackURL != "" && c.EventSubSecret != ""
}
