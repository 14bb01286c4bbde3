package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Registry  RegistryConfig
	Webhook   WebhookConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	ShutdownPeriod time.Duration `mapstructure:"shutdownPeriod"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type RateLimitConfig struct {
	Requests     int           `mapstructure:"requests"`
	Window       time.Duration `mapstructure:"window"`
	Driver       string        `mapstructure:"driver"`
	FailOpen     bool          `mapstructure:"failOpen"`
	StoreTimeout time.Duration `mapstructure:"storeTimeout"`
}

type RegistryConfig struct {
	Driver string   `mapstructure:"driver"`
	Keys   []string `mapstructure:"keys"`
}

type WebhookConfig struct {
	SignatureHeader string            `mapstructure:"signatureHeader"`
	Subscriptions   map[string]string `mapstructure:"subscriptions"`
}

type WorkerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	SnapshotSchedule string `mapstructure:"snapshotSchedule"`
}

func LoadConfig(configPath string) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables and config file")
	}

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.readTimeout", 5*time.Second)
	viper.SetDefault("server.writeTimeout", 10*time.Second)
	viper.SetDefault("server.idleTimeout", 120*time.Second)
	viper.SetDefault("server.shutdownPeriod", 15*time.Second)

	viper.SetDefault("database.maxOpenConns", 25)
	viper.SetDefault("database.maxIdleConns", 25)
	viper.SetDefault("database.connMaxLifetime", 5*time.Minute)

	viper.SetDefault("redis.db", "0")

	viper.SetDefault("log.level", "info")

	viper.SetDefault("rateLimit.requests", 100)
	viper.SetDefault("rateLimit.window", 60*time.Second)
	viper.SetDefault("rateLimit.driver", "redis")
	viper.SetDefault("rateLimit.failOpen", false)
	viper.SetDefault("rateLimit.storeTimeout", 2*time.Second)

	viper.SetDefault("registry.driver", "static")

	viper.SetDefault("webhook.signatureHeader", "X-Webhook-Signature")

	viper.SetDefault("worker.enabled", true)
	viper.SetDefault("worker.snapshotSchedule", "@every 1m")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AllowEmptyEnv(true)

	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			log.Printf("Warning: could not read config file: %s. Error: %v\n", configPath, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
