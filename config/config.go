package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	nats_wrapper "github.com/joripage/ftx-gateway/pkg/infra/nats"
	redis_wrapper "github.com/joripage/ftx-gateway/pkg/infra/redis"
	kafkawrapper "github.com/joripage/ftx-gateway/pkg/kafka_wrapper"
)

const (
	BusMemory = "memory"
	BusKafka  = "kafka"
	BusNats   = "nats"
	BusRedis  = "redis"
)

var (
	ErrMissingCredentials = errors.New("ftx.key and ftx.secret are required")
	ErrUnknownBus         = errors.New("unknown bus kind")
)

type AppConfig struct {
	ServiceName string                       `yaml:"service_name"`
	LogLevel    string                       `yaml:"log_level"`
	Timezone    string                       `yaml:"timezone"`
	AdminAddr   string                       `yaml:"admin_addr"`
	Ftx         *FtxConfig                   `yaml:"ftx"`
	Bus         *BusConfig                   `yaml:"bus"`
	Kafka       *kafkawrapper.ProducerConfig `yaml:"kafka"`
	Nats        *nats_wrapper.NatsConfig     `yaml:"nats"`
	Redis       *redis_wrapper.RedisConfig   `yaml:"redis"`
	Fix         *FixConfig                   `yaml:"fix"`
}

type FtxConfig struct {
	Key                      string   `yaml:"key"`
	Secret                   string   `yaml:"secret"`
	ProxyHost                string   `yaml:"proxy_host"`
	ProxyPort                int      `yaml:"proxy_port"`
	RestHost                 string   `yaml:"rest_host"`
	WebsocketHost            string   `yaml:"ws_host"`
	HeartbeatThreshold       int      `yaml:"heartbeat_threshold"`
	HeartbeatIntervalSeconds int      `yaml:"heartbeat_interval_seconds"`
	Symbols                  []string `yaml:"symbols"`
}

type BusConfig struct {
	Kind        string `yaml:"kind"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type FixConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ConfigFilepath string `yaml:"config_filepath"`
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
	cfg.setDefaults()

	zap.S().Debugf("config: service=%s bus=%s timezone=%s", cfg.ServiceName, cfg.Bus.Kind, cfg.Timezone)

	return cfg, nil
}

func (c *AppConfig) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "ftx-gateway"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Shanghai"
	}
	if c.Ftx == nil {
		c.Ftx = &FtxConfig{}
	}
	if c.Ftx.RestHost == "" {
		c.Ftx.RestHost = "https://ftx.com"
	}
	if c.Ftx.WebsocketHost == "" {
		c.Ftx.WebsocketHost = "wss://ftx.com/ws/"
	}
	if c.Ftx.HeartbeatThreshold <= 0 {
		c.Ftx.HeartbeatThreshold = 15
	}
	if c.Ftx.HeartbeatIntervalSeconds <= 0 {
		c.Ftx.HeartbeatIntervalSeconds = 1
	}
	if c.Bus == nil {
		c.Bus = &BusConfig{}
	}
	if c.Bus.Kind == "" {
		c.Bus.Kind = BusMemory
	}
	if c.Bus.TopicPrefix == "" {
		c.Bus.TopicPrefix = "ftx"
	}
	if c.Fix == nil {
		c.Fix = &FixConfig{}
	}
}

// Validate checks what Connect and the selected bus need.
func (c *AppConfig) Validate() error {
	if c.Ftx == nil || c.Ftx.Key == "" || c.Ftx.Secret == "" {
		return ErrMissingCredentials
	}
	switch c.Bus.Kind {
	case BusMemory:
	case BusKafka:
		if c.Kafka == nil || len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required for the kafka bus")
		}
	case BusNats:
		if c.Nats == nil {
			return errors.New("nats section is required for the nats bus")
		}
	case BusRedis:
		if c.Redis == nil || c.Redis.ConnectionURL == "" {
			return errors.New("redis.connection_url is required for the redis bus")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBus, c.Bus.Kind)
	}
	if c.Fix.Enabled && c.Fix.ConfigFilepath == "" {
		return errors.New("fix.config_filepath is required when fix is enabled")
	}
	return nil
}
