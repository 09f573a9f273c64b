package internal

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

// Config is the environment-driven server configuration. Every knob has a
// default matching the historical deployment (port 9003, 45s exchange
// period), so a bare environment yields a runnable server.
type Config struct {
	Host     string `env:"HOST,default=127.0.0.1"`
	Port     int    `env:"PORT,default=9003" validate:"gt=0,lte=65535"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	// ExchangeInterval is the per-room drawing exchange period.
	ExchangeInterval time.Duration `env:"EXCHANGE_INTERVAL,default=45s" validate:"gt=0"`

	// IdentifyGrace bounds how long a fresh connection may stay nameless.
	IdentifyGrace time.Duration `env:"IDENTIFY_GRACE,default=10s" validate:"gt=0"`

	// WriteTimeout bounds each outbound frame write so a stalled peer never
	// stalls delivery to others.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=5s" validate:"gt=0"`

	OutboundBufferSize int `env:"OUTBOUND_BUFFER_SIZE,default=64" validate:"gt=0"`
	MaxFrameSize       int `env:"MAX_FRAME_SIZE,default=1048576" validate:"gt=0"`

	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=30s" validate:"gt=0"`
}

// LoadConfig unmarshals the environment into a Config and validates it.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("config validation: %w", err)
	}
	return config, nil
}

// Addr is the listening endpoint in host:port form.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
