package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/openquant/ordercore/pkg/audit"
	fixgateway "github.com/openquant/ordercore/pkg/broker/fix"
	postgres_wrapper "github.com/openquant/ordercore/pkg/infra/postgres"
	redis_wrapper "github.com/openquant/ordercore/pkg/infra/redis"
)

type NatsConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
	Durable string `yaml:"durable"`
}

type SessionConfig struct {
	CloseHour   int    `yaml:"close_hour"`
	CloseMinute int    `yaml:"close_minute"`
	Location    string `yaml:"location"`
}

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	CoreDB      *postgres_wrapper.PostgresConfig `yaml:"core_db"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	Nats        *NatsConfig                      `yaml:"nats"`
	AuditKafka  *audit.KafkaConfig               `yaml:"audit_kafka"`
	Broker      *fixgateway.Config               `yaml:"broker"`
	Session     *SessionConfig                   `yaml:"session"`

	TimeoutCheckSeconds int `yaml:"timeout_check_seconds"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

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
