package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/mpr89/wheeltrader/pkg/infra/postgres"
	redis_wrapper "github.com/mpr89/wheeltrader/pkg/infra/redis"
	"github.com/mpr89/wheeltrader/pkg/venue"
)

type NatsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Durable string `yaml:"durable"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	LedgerDB    *postgres_wrapper.PostgresConfig `yaml:"ledger_db"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	Nats        *NatsConfig                      `yaml:"nats"`
	Venue       *venue.SessionConfig             `yaml:"venue"`
	API         *APIConfig                       `yaml:"api"`

	ReconcileBatch int `yaml:"reconcile_batch"`
	QuoteCacheTTL  int `yaml:"quote_cache_ttl_seconds"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)

	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
