package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"loyaltix/internal/cache"
	"loyaltix/internal/database"
	"loyaltix/internal/messaging"
	"loyaltix/internal/repository"
	"loyaltix/internal/tracing"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// ID sources for new events and tickets
const (
	IDSourceSequence  = repository.IDSourceSequence
	IDSourceSnowflake = repository.IDSourceSnowflake
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Storage: memory (тесты, демо) или postgres
	Storage       string
	IDSource      string
	SnowflakeNode int64

	// CacheTTL для снимков аккаунтов; 0 отключает кеш
	CacheTTL time.Duration

	// Сверка уровней в consumers
	AuditInterval  time.Duration
	AuditBatchSize int
	MetricsPort    string

	NATSEnabled   bool
	ValkeyEnabled bool

	Database database.Config
	NATS     messaging.Config
	Valkey   cache.ValkeyConfig
	Tracing  tracing.Config
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Storage:       strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		IDSource:      strings.ToLower(getEnv("ID_SOURCE", IDSourceSequence)),
		SnowflakeNode: int64(getEnvInt("SNOWFLAKE_NODE", 1)),

		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_SEC", 30)) * time.Second,

		AuditInterval:  time.Duration(getEnvInt("AUDIT_INTERVAL_SEC", 300)) * time.Second,
		AuditBatchSize: getEnvInt("AUDIT_BATCH_SIZE", 500),
		MetricsPort:    getEnv("METRICS_PORT", "9091"),

		NATSEnabled:   getEnvBool("NATS_ENABLED", false),
		ValkeyEnabled: getEnvBool("VALKEY_ENABLED", false),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "loyaltix"),
			Password:           getEnv("DB_PASSWORD", "loyaltix"),
			DBName:             getEnv("DB_NAME", "loyaltix"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
			ConnectRetries:     getEnvInt("DB_CONNECT_RETRIES", 5),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "loyaltix"),
			ClientID:  getEnv("NATS_CLIENT_ID", "loyaltix-api"),
		},

		Valkey: cache.ValkeyConfig{
			Client:    getEnv("VALKEY_CLIENT", cache.ClientGoRedis),
			Addr:      getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:  os.Getenv("VALKEY_PASSWORD"),
			DB:        getEnvInt("VALKEY_DB", 0),
			KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "loyaltix:"),
		},

		Tracing: tracing.Config{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("TRACING_ENDPOINT", "http://localhost:14268/api/traces"),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "loyaltix-api"),
			Environment: getEnv("TRACING_ENVIRONMENT", "development"),
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
