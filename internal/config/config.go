package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 存储后端
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// AppConfig 聚合运行时配置，尽量通过环境变量注入，避免硬编码。
type AppConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// 订单存储：sqlite（默认）/ postgres / redis
	StoreDriver       string
	DBPath            string
	PostgresDSN       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisAddr string
	RedisDB   int

	// Kafka 集群地址（逗号分隔）、Topic、消费者组
	KafkaBrokers          []string
	KafkaTopic            string
	KafkaGroupID          string
	KafkaTopicPartitions  int
	KafkaTopicReplication int
	ListenerEnabled       bool

	// 两段 I/O 各自的等待上限，超时即失败返回，不做重试
	StoreTimeout   time.Duration
	PublishTimeout time.Duration

	// 下单接口限流（依赖 Redis）
	RateLimitEnabled bool
	OrderRateLimit   int
	OrderRateWindow  time.Duration

	LogLevel  string
	LogFormat string

	ServiceName       string
	TracingEnabled    bool
	TracingEndpoint   string
	TracingSampleRate float64
}

// Load 读取并校验配置，缺失时使用默认值。
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:       15 * time.Second,
		StoreDriver:           strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		DBPath:                getEnv("DB_PATH", "orders.db"),
		PostgresDSN:           getEnv("POSTGRES_DSN", "host=localhost user=orders password=orders dbname=orders port=5432 sslmode=disable"),
		DBMaxOpenConns:        25,
		DBMaxIdleConns:        10,
		DBConnMaxLifetime:     30 * time.Minute,
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:               0,
		KafkaBrokers:          splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "orders"),
		KafkaGroupID:          getEnv("KAFKA_GROUP_ID", "order-group"),
		KafkaTopicPartitions:  3,
		KafkaTopicReplication: 1,
		ListenerEnabled:       true,
		StoreTimeout:          5 * time.Second,
		PublishTimeout:        10 * time.Second,
		RateLimitEnabled:      false,
		OrderRateLimit:        1000,
		OrderRateWindow:       time.Second,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		ServiceName:           getEnv("SERVICE_NAME", "order-service"),
		TracingEnabled:        false,
		TracingEndpoint:       getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingSampleRate:     1.0,
	}

	var err error
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return AppConfig{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.DBMaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns); err != nil {
		return AppConfig{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.DBMaxIdleConns, err = getEnvInt("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns); err != nil {
		return AppConfig{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	if cfg.DBConnMaxLifetime, err = getEnvDuration("DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetime); err != nil {
		return AppConfig{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", cfg.RedisDB); err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.KafkaTopicPartitions, err = getEnvInt("KAFKA_TOPIC_PARTITIONS", cfg.KafkaTopicPartitions); err != nil {
		return AppConfig{}, fmt.Errorf("invalid KAFKA_TOPIC_PARTITIONS: %w", err)
	}
	if cfg.KafkaTopicReplication, err = getEnvInt("KAFKA_TOPIC_REPLICATION", cfg.KafkaTopicReplication); err != nil {
		return AppConfig{}, fmt.Errorf("invalid KAFKA_TOPIC_REPLICATION: %w", err)
	}
	if cfg.ListenerEnabled, err = getEnvBool("LISTENER_ENABLED", cfg.ListenerEnabled); err != nil {
		return AppConfig{}, fmt.Errorf("invalid LISTENER_ENABLED: %w", err)
	}
	if cfg.StoreTimeout, err = getEnvDuration("STORE_TIMEOUT", cfg.StoreTimeout); err != nil {
		return AppConfig{}, fmt.Errorf("invalid STORE_TIMEOUT: %w", err)
	}
	if cfg.PublishTimeout, err = getEnvDuration("PUBLISH_TIMEOUT", cfg.PublishTimeout); err != nil {
		return AppConfig{}, fmt.Errorf("invalid PUBLISH_TIMEOUT: %w", err)
	}
	if cfg.RateLimitEnabled, err = getEnvBool("RATE_LIMIT_ENABLED", cfg.RateLimitEnabled); err != nil {
		return AppConfig{}, fmt.Errorf("invalid RATE_LIMIT_ENABLED: %w", err)
	}
	if cfg.OrderRateLimit, err = getEnvInt("ORDER_RATE_LIMIT", cfg.OrderRateLimit); err != nil {
		return AppConfig{}, fmt.Errorf("invalid ORDER_RATE_LIMIT: %w", err)
	}
	rateWindowSec, err := getEnvInt("ORDER_RATE_WINDOW_SEC", int(cfg.OrderRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid ORDER_RATE_WINDOW_SEC: %w", err)
	}
	cfg.OrderRateWindow = time.Duration(rateWindowSec) * time.Second
	if cfg.TracingEnabled, err = getEnvBool("TRACING_ENABLED", cfg.TracingEnabled); err != nil {
		return AppConfig{}, fmt.Errorf("invalid TRACING_ENABLED: %w", err)
	}
	if cfg.TracingSampleRate, err = getEnvFloat("TRACING_SAMPLE_RATE", cfg.TracingSampleRate); err != nil {
		return AppConfig{}, fmt.Errorf("invalid TRACING_SAMPLE_RATE: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (cfg AppConfig) validate() error {
	switch cfg.StoreDriver {
	case StoreSQLite:
		if cfg.DBPath == "" {
			return fmt.Errorf("DB_PATH must not be empty")
		}
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN must not be empty")
		}
	case StoreRedis:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of sqlite, postgres, redis, got %q", cfg.StoreDriver)
	}
	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be > 0 and DB_MAX_IDLE_CONNS >= 0")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC must not be empty")
	}
	if cfg.KafkaGroupID == "" {
		return fmt.Errorf("KAFKA_GROUP_ID must not be empty")
	}
	if cfg.KafkaTopicPartitions <= 0 {
		return fmt.Errorf("KAFKA_TOPIC_PARTITIONS must be > 0")
	}
	if cfg.KafkaTopicReplication <= 0 {
		return fmt.Errorf("KAFKA_TOPIC_REPLICATION must be > 0")
	}
	if cfg.StoreTimeout <= 0 || cfg.PublishTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT and PUBLISH_TIMEOUT must be > 0")
	}
	if cfg.OrderRateLimit <= 0 {
		return fmt.Errorf("ORDER_RATE_LIMIT must be > 0")
	}
	if cfg.OrderRateWindow <= 0 {
		return fmt.Errorf("ORDER_RATE_WINDOW_SEC must be > 0")
	}
	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be within [0, 1]")
	}
	return nil
}

// getEnv 读取字符串环境变量，若为空则返回默认值。
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt 读取整数环境变量，若为空则返回默认值。
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

// getEnvDuration 支持 Go duration 写法，如 "5s"、"1m30s"。
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

// splitCSV 将逗号分隔字符串解析为字符串切片。
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
