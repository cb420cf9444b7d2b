package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	PolicyDrop       = "drop"
	PolicyDisconnect = "disconnect"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log_level"`
	Secret         string        `mapstructure:"secret"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	Relay          RelayConfig   `mapstructure:"relay"`
}

type RelayConfig struct {
	// SendBuffer is the outbound frame buffer of one connection.
	SendBuffer int `mapstructure:"send_buffer"`
	// QueueSize is the inbound queue of the supervisor.
	QueueSize          int           `mapstructure:"queue_size"`
	BackpressurePolicy string        `mapstructure:"backpressure_policy"`
	RateLimit          int           `mapstructure:"rate_limit"`
	RateInterval       time.Duration `mapstructure:"rate_interval"`
}

// Load reads config/config.$CONFIG_ENV.yaml (dev by default).
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFrom(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFrom reads fileName on top of the defaults. A missing file is not
// an error. STUDYSYNC_* variables override both, e.g. STUDYSYNC_RELAY_SEND_BUFFER.
func LoadFrom(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("STUDYSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 3003)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "studysync-dev-secret")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("relay.send_buffer", 32)
	v.SetDefault("relay.queue_size", 256)
	v.SetDefault("relay.backpressure_policy", PolicyDrop)
	v.SetDefault("relay.rate_limit", 50)
	v.SetDefault("relay.rate_interval", "1s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("backpressure_policy", cfg.Relay.BackpressurePolicy).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		errs = append(errs, fmt.Errorf("ping_period %s must be positive and below pong_wait %s", c.PingPeriod, c.PongWait))
	}
	if c.WriteWait <= 0 {
		errs = append(errs, fmt.Errorf("write_wait %s must be positive", c.WriteWait))
	}
	if c.Relay.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("relay.send_buffer %d must be positive", c.Relay.SendBuffer))
	}
	if c.Relay.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("relay.queue_size %d must be positive", c.Relay.QueueSize))
	}
	switch c.Relay.BackpressurePolicy {
	case PolicyDrop, PolicyDisconnect:
	default:
		errs = append(errs, fmt.Errorf("relay.backpressure_policy %q is not one of %s, %s",
			c.Relay.BackpressurePolicy, PolicyDrop, PolicyDisconnect))
	}
	if c.Relay.RateLimit > 0 && c.Relay.RateInterval <= 0 {
		errs = append(errs, fmt.Errorf("relay.rate_interval %s must be positive when rate_limit is set", c.Relay.RateInterval))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AllowsOrigin reports whether a browser origin may open the socket.
// An empty origin (non-browser client) is always allowed.
func (c *Config) AllowsOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
