package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Push     PushConfig     `mapstructure:"push"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Janitor  JanitorConfig  `mapstructure:"janitor"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	// MetricsPort is where the worker process exposes health and metrics.
	MetricsPort int `mapstructure:"metrics_port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

type PushConfig struct {
	GatewayURL string        `mapstructure:"gateway_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type WorkerConfig struct {
	EmailInterval     time.Duration `mapstructure:"email_interval"`
	PushInterval      time.Duration `mapstructure:"push_interval"`
	BatchSize         int           `mapstructure:"batch_size"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoffBase  time.Duration `mapstructure:"retry_backoff_base"`
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout"`
	TransportTimeout  time.Duration `mapstructure:"transport_timeout"`
}

type JanitorConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ReadMaxAge   time.Duration `mapstructure:"read_max_age"`
	UnreadMaxAge time.Duration `mapstructure:"unread_max_age"`
	TaskMaxAge   time.Duration `mapstructure:"task_max_age"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	OperatorToken string `mapstructure:"operator_token"`
}

type SecurityConfig struct {
	// 32-byte hex or raw key for AES-256-GCM token encryption.
	EncryptionKey string `mapstructure:"encryption_key"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("NOTIFY")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional when everything comes from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.max_header_bytes", 1<<20)
	viper.SetDefault("server.metrics_port", 9090)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)

	viper.SetDefault("smtp.port", 587)

	viper.SetDefault("push.timeout", 30*time.Second)

	viper.SetDefault("worker.email_interval", 5*time.Minute)
	viper.SetDefault("worker.push_interval", 2*time.Minute)
	viper.SetDefault("worker.batch_size", 10)
	viper.SetDefault("worker.max_retries", 3)
	viper.SetDefault("worker.retry_backoff_base", time.Minute)
	viper.SetDefault("worker.processing_timeout", 5*time.Minute)
	viper.SetDefault("worker.transport_timeout", 30*time.Second)

	viper.SetDefault("janitor.interval", 24*time.Hour)
	viper.SetDefault("janitor.read_max_age", 30*24*time.Hour)
	viper.SetDefault("janitor.unread_max_age", 90*24*time.Hour)
	viper.SetDefault("janitor.task_max_age", 30*24*time.Hour)
}
