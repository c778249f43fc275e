// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server   ServerConfig
	Stream   StreamConfig
	Upload   UploadConfig
	Poller   PollerConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// StreamConfig contains remote stream service configuration. The bearer
// token authenticates every call; MaxFileBytes is the client-side transfer
// ceiling enforced before any bytes move.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type StreamConfig struct {
	BaseURL        string
	Token          string
	RequestTimeout time.Duration
	MaxFileBytes   int64
}

// UploadConfig contains the HTTP upload entry point's own configuration.
// Its ceiling is deliberately independent of StreamConfig.MaxFileBytes:
// each entry point chooses one ceiling and documents it.
type UploadConfig struct {
	MaxBodyBytes int64
}

// PollerConfig contains processing poll configuration.
type PollerConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// RedisConfig contains the connection used for the taxonomy store, the
// session-token store and the background task queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration
// for lifecycle event publishing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// DatabaseConfig contains the ingest-event audit database connection.
type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MinConnections int
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Stream service
	viper.SetDefault("stream.baseurl", "http://localhost:9000/v1")
	viper.SetDefault("stream.token", "")
	viper.SetDefault("stream.requesttimeout", 30*time.Second)
	viper.SetDefault("stream.maxfilebytes", int64(4)<<30) // 4GiB

	// Upload entry point
	viper.SetDefault("upload.maxbodybytes", int64(2)<<30) // 2GiB

	// Poller: 30 attempts at 2s, a 60 second ceiling
	viper.SetDefault("poller.interval", 2*time.Second)
	viper.SetDefault("poller.maxattempts", 30)

	// Redis
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// RabbitMQ
	viper.SetDefault("rabbitmq.host", "")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "video.lifecycle")
	viper.SetDefault("rabbitmq.queue", "video.lifecycle.events")
	viper.SetDefault("rabbitmq.routingkey", "video.event")

	// Database (optional audit trail)
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
