package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process-wide configuration, constructed once at startup
// and passed by reference into each component constructor.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Staging   StagingConfig   `mapstructure:"staging"`
	ETL       ETLConfig       `mapstructure:"etl"`
	Sources   SourcesConfig   `mapstructure:"sources"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// WarehouseConfig configures the warehouse database connection.
type WarehouseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"` // sqlite file path
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *WarehouseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StagingConfig configures the S3-compatible staging store.
type StagingConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

// ETLConfig holds pipeline tuning knobs shared by the loader and lock.
type ETLConfig struct {
	BatchSize         int           `mapstructure:"batch_size"`
	LockLease         time.Duration `mapstructure:"lock_lease"`
	LockRetryInterval time.Duration `mapstructure:"lock_retry_interval"`
}

type SourcesConfig struct {
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
}

// MarketDataConfig configures the HTTP market data source.
type MarketDataConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// KafkaConfig configures the trade event stream source.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// Load reads configuration from the given file (or ./configs/config.yaml)
// with environment variable overrides.
// Parameters:
//   - configPath: explicit config file path or empty for defaults.
// Returns:
//   - *Config: populated configuration.
//   - error: non-nil if the file is malformed or cannot be decoded.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("warehouse.driver", "postgres")
	v.SetDefault("warehouse.host", "localhost")
	v.SetDefault("warehouse.port", 5432)
	v.SetDefault("warehouse.user", "etl")
	v.SetDefault("warehouse.name", "warehouse")
	v.SetDefault("warehouse.ssl_mode", "disable")
	v.SetDefault("warehouse.path", "./data/warehouse.db")
	v.SetDefault("warehouse.max_idle_conns", 5)
	v.SetDefault("warehouse.max_open_conns", 20)
	v.SetDefault("warehouse.conn_max_lifetime", "1h")
	v.SetDefault("warehouse.auto_migrate", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("staging.endpoint", "localhost:9000")
	v.SetDefault("staging.use_ssl", false)
	v.SetDefault("staging.bucket", "etl-staging")
	v.SetDefault("staging.prefix", "staging/")
	v.SetDefault("etl.batch_size", 1000)
	v.SetDefault("etl.lock_lease", "5m")
	v.SetDefault("etl.lock_retry_interval", "1s")
	v.SetDefault("sources.market_data.base_url", "https://www.alphavantage.co")
	v.SetDefault("sources.market_data.timeout", "30s")
	v.SetDefault("sources.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("sources.kafka.topic", "trade-events")
	v.SetDefault("sources.kafka.group_id", "financial-etl")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("warehouse.host", "WAREHOUSE_HOST")
	v.BindEnv("warehouse.user", "WAREHOUSE_USER")
	v.BindEnv("warehouse.password", "WAREHOUSE_PASSWORD")
	v.BindEnv("warehouse.name", "WAREHOUSE_DB")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("staging.endpoint", "STAGING_ENDPOINT")
	v.BindEnv("staging.access_key", "STAGING_ACCESS_KEY")
	v.BindEnv("staging.secret_key", "STAGING_SECRET_KEY")
	v.BindEnv("sources.market_data.api_key", "MARKET_DATA_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
