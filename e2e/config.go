package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_RECV_TIMEOUT bounds every wait for a server envelope
	RecvTimeout time.Duration `envconfig:"E2E_RECV_TIMEOUT" default:"3s"`
	// E2E_EXCHANGE_INTERVAL is the per-room exchange period of the test server
	ExchangeInterval time.Duration `envconfig:"E2E_EXCHANGE_INTERVAL" default:"300ms"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
