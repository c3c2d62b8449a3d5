package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	TransportHTTP = "http"
	TransportNATS = "nats"

	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const (
	defaultEnv            = EnvLocal
	defaultRemoteURL      = "http://localhost:8080"
	defaultNATSSubject    = "fitsync.sync.batch"
	defaultDataDir        = ".fitsync"
	defaultMigrationsPath = "migrations/postgres"
	defaultAPIAddress     = "localhost:8090"
	defaultDomains        = "profile:preferServer,workout:preferLocal,payments,community"
)

// DomainConfig домен и его стратегия разрешения конфликтов
type DomainConfig struct {
	Name   string
	Policy string
}

type Config struct {
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	DeviceID string `mapstructure:"device_id"`

	Transport   string `mapstructure:"transport"`
	RemoteURL   string `mapstructure:"remote_url"`
	NATSURL     string `mapstructure:"nats_url"`
	NATSSubject string `mapstructure:"nats_subject"`

	StorageDriver  string `mapstructure:"storage_driver"`
	DataPath       string `mapstructure:"data_path"`
	DatabaseURI    string `mapstructure:"database_uri"`
	MigrationsPath string `mapstructure:"migrations_path"`

	SyncInterval   time.Duration `mapstructure:"sync_interval"`
	BatchSize      int           `mapstructure:"batch_size"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ProbeInterval  time.Duration `mapstructure:"probe_interval"`

	APIAddress string `mapstructure:"api_address"`

	Domains []DomainConfig
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает .env, переменные окружения и файл конфигурации, если он задан в viper
func Load() (*Config, error) {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("TRANSPORT", TransportHTTP)
	viper.SetDefault("REMOTE_URL", defaultRemoteURL)
	viper.SetDefault("NATS_URL", "nats://localhost:4222")
	viper.SetDefault("NATS_SUBJECT", defaultNATSSubject)
	viper.SetDefault("STORAGE_DRIVER", StorageSQLite)
	viper.SetDefault("DATA_PATH", filepath.Join(homeDir, defaultDataDir, "fitsync.db"))
	viper.SetDefault("MIGRATIONS_PATH", defaultMigrationsPath)
	viper.SetDefault("SYNC_INTERVAL", 5*time.Minute)
	viper.SetDefault("BATCH_SIZE", 50)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("RETRY_BASE_DELAY", time.Second)
	viper.SetDefault("RETRY_MAX_DELAY", 5*time.Minute)
	viper.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	viper.SetDefault("PROBE_INTERVAL", 15*time.Second)
	viper.SetDefault("API_ADDRESS", defaultAPIAddress)
	viper.SetDefault("DOMAINS", defaultDomains)

	domains, err := ParseDomains(viper.GetString("DOMAINS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:            viper.GetString("APP_ENV"),
		LogLevel:       viper.GetString("LOG_LEVEL"),
		DeviceID:       viper.GetString("DEVICE_ID"),
		Transport:      strings.ToLower(viper.GetString("TRANSPORT")),
		RemoteURL:      strings.TrimRight(viper.GetString("REMOTE_URL"), "/"),
		NATSURL:        viper.GetString("NATS_URL"),
		NATSSubject:    viper.GetString("NATS_SUBJECT"),
		StorageDriver:  strings.ToLower(viper.GetString("STORAGE_DRIVER")),
		DataPath:       viper.GetString("DATA_PATH"),
		DatabaseURI:    viper.GetString("DATABASE_URI"),
		MigrationsPath: viper.GetString("MIGRATIONS_PATH"),
		SyncInterval:   viper.GetDuration("SYNC_INTERVAL"),
		BatchSize:      viper.GetInt("BATCH_SIZE"),
		MaxRetries:     viper.GetInt("MAX_RETRIES"),
		RetryBaseDelay: viper.GetDuration("RETRY_BASE_DELAY"),
		RetryMaxDelay:  viper.GetDuration("RETRY_MAX_DELAY"),
		RequestTimeout: viper.GetDuration("REQUEST_TIMEOUT"),
		ProbeInterval:  viper.GetDuration("PROBE_INTERVAL"),
		APIAddress:     viper.GetString("API_ADDRESS"),
		Domains:        domains,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseDomains разбирает список вида "workout:preferLocal,profile"
func ParseDomains(raw string) ([]DomainConfig, error) {
	var out []DomainConfig
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, policy, _ := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("пустое имя домена в %q", raw)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("домен %s указан дважды", name)
		}
		seen[name] = struct{}{}
		out = append(out, DomainConfig{Name: name, Policy: strings.TrimSpace(policy)})
	}
	return out, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportHTTP:
		if c.RemoteURL == "" {
			return fmt.Errorf("remote_url не может быть пустым")
		}
	case TransportNATS:
		if c.NATSURL == "" || c.NATSSubject == "" {
			return fmt.Errorf("nats_url и nats_subject обязательны для транспорта nats")
		}
	default:
		return fmt.Errorf("неизвестный транспорт %q", c.Transport)
	}

	switch c.StorageDriver {
	case StorageSQLite:
		if c.DataPath == "" {
			return fmt.Errorf("data_path не может быть пустым")
		}
	case StoragePostgres:
		if c.DatabaseURI == "" {
			return fmt.Errorf("database_uri обязателен для postgres")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("неизвестное хранилище %q", c.StorageDriver)
	}

	if len(c.Domains) == 0 {
		return fmt.Errorf("нужен хотя бы один домен")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size должен быть положительным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
