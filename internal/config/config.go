// Package config предоставляет структуры и функции для загрузки конфигурации.
// Значения читаются из YAML-файла (CONFIG_PATH), если он задан, а переменные
// окружения всегда имеют приоритет над файлом.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища подписчиков.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Почтовые провайдеры.
const (
	MailSMTP = "smtp"
	MailSES  = "ses"
	MailLog  = "log"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer      `yaml:"http_server"`
	Storage         `yaml:"storage"`
	RedisConnection `yaml:"redis_connection"`
	RabbitMQ        `yaml:"rabbitmq"`
	Mail            `yaml:"mail"`
	Delivery        `yaml:"delivery"`
	Schedule        `yaml:"schedule"`
	MarketData      `yaml:"market_data"`
	Narrator        `yaml:"narrator"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env:"HTTP_RATE_LIMIT" env-default:"5"`
	RateBurst   int           `yaml:"rate_burst" env:"HTTP_RATE_BURST" env-default:"10"`
}

// Storage структура для выбора и настройки хранилища подписчиков.
type Storage struct {
	Driver                  string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"file"`
	FilePath                string `yaml:"file_path" env:"STORAGE_FILE_PATH" env-default:"./data/subscribers.json"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisKey                string `yaml:"redis_key" env:"STORAGE_REDIS_KEY" env-default:"market-digest:subscribers"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
}

// RabbitMQ структура для настройки очереди приветственных писем.
// Пустой RabbitMQURL означает, что задания обрабатываются внутри процесса.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"3s"`
}

// Mail структура для настройки почтового транспорта.
type Mail struct {
	Provider      string `yaml:"provider" env:"MAIL_PROVIDER" env-default:"log"`
	From          string `yaml:"from" env:"MAIL_FROM" env-default:"digest@localhost"`
	FromName      string `yaml:"from_name" env:"MAIL_FROM_NAME" env-default:"Market Digest"`
	SMTPHost      string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort      string `yaml:"smtp_port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser      string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPass      string `yaml:"smtp_pass" env:"SMTP_PASSWORD"`
	SMTPInsecure  bool   `yaml:"smtp_insecure" env:"SMTP_INSECURE"` // не требовать STARTTLS (локальный relay)
	SESRegion     string `yaml:"ses_region" env:"SES_REGION" env-default:"us-east-1"`
	SESAccessKey  string `yaml:"ses_access_key" env:"SES_ACCESS_KEY"`
	SESSecretKey  string `yaml:"ses_secret_key" env:"SES_SECRET_KEY"`
	TestMode      bool   `yaml:"test_mode" env:"DIGEST_TEST_MODE"`
	TestRecipient string `yaml:"test_recipient" env:"DIGEST_TEST_RECIPIENT"`
}

// Delivery структура для настройки отправки писем.
type Delivery struct {
	MessageTimeout time.Duration `yaml:"message_timeout" env:"DELIVERY_MESSAGE_TIMEOUT" env-default:"10s"`
	SendInterval   time.Duration `yaml:"send_interval" env:"DELIVERY_SEND_INTERVAL" env-default:"1s"`
	WelcomeBuffer  int           `yaml:"welcome_buffer" env:"DELIVERY_WELCOME_BUFFER" env-default:"100"`
}

// Schedule структура для настройки ежедневной рассылки.
type Schedule struct {
	Disabled bool   `yaml:"disabled" env:"SCHEDULE_DISABLED"`
	Cron     string `yaml:"cron" env:"SCHEDULE_CRON" env-default:"0 8 * * *"`
	Timezone string `yaml:"timezone" env:"SCHEDULE_TIMEZONE" env-default:"UTC"`
}

// MarketData структура для настройки источника рыночного снимка.
type MarketData struct {
	MarketDataURL     string        `yaml:"url" env:"MARKET_DATA_URL"`
	MarketDataTimeout time.Duration `yaml:"timeout" env:"MARKET_DATA_TIMEOUT" env-default:"10s"`
}

// Narrator структура для настройки генерации текстового комментария.
// Пустой BedrockModelID отключает генерацию.
type Narrator struct {
	BedrockModelID string `yaml:"bedrock_model_id" env:"BEDROCK_MODEL_ID"`
	BedrockRegion  string `yaml:"bedrock_region" env:"BEDROCK_REGION" env-default:"us-east-1"`
	MaxTokens      int    `yaml:"max_tokens" env:"BEDROCK_MAX_TOKENS" env-default:"600"`
}

// Load читает конфиг из файла CONFIG_PATH (если задан) и окружения.
func Load() (*Config, error) {
	const op = "config.Load"
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг и завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageFile:
		if c.FilePath == "" {
			return fmt.Errorf("storage file_path is required for driver %q", c.Storage.Driver)
		}
	case StoragePostgres:
		if c.StorageConnectionString == "" {
			return fmt.Errorf("storage_connection_string is required for driver %q", c.Storage.Driver)
		}
	case StorageRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Mail.Provider {
	case MailSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("smtp_host is required for mail provider %q", c.Mail.Provider)
		}
	case MailSES, MailLog:
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}

	if c.MessageTimeout <= 0 {
		return fmt.Errorf("delivery message_timeout must be positive")
	}
	if c.SendInterval < 0 {
		return fmt.Errorf("delivery send_interval must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("schedule timezone: %w", err)
	}
	return nil
}

// Location возвращает часовой пояс расписания. Значение проверено в Load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Storage:\n"+
			"  Driver: %s\n"+
			"  FilePath: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"Mail:\n"+
			"  Provider: %s\n"+
			"  From: %s\n"+
			"  TestMode: %t\n"+
			"  TestRecipient: %s\n"+
			"Delivery:\n"+
			"  MessageTimeout: %s\n"+
			"  SendInterval: %s\n"+
			"Schedule:\n"+
			"  Disabled: %t\n"+
			"  Cron: %s\n"+
			"  Timezone: %s\n",
		c.Env,
		c.Storage.Driver,
		c.FilePath,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.Mail.Provider,
		c.From,
		c.TestMode,
		c.TestRecipient,
		c.MessageTimeout,
		c.SendInterval,
		c.Schedule.Disabled,
		c.Cron,
		c.Timezone,
	)
}
