package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type StorageConfig struct {
	ProductsFile string
	OrdersFile   string
}

// RedisConfig is disabled when Addr is empty
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// KafkaConfig is disabled when Brokers is empty
type KafkaConfig struct {
	Brokers             []string
	TopicOrderEvents    string
	TopicStatusCommands string
	ConsumerGroup       string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type BusinessConfig struct {
	LowStockThreshold int
	AdminToken        string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	idemTTL, _ := strconv.Atoi(getEnv("IDEMPOTENCY_TTL_SECONDS", "86400"))
	lowStock, err := strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "10"))
	if err != nil {
		lowStock = 10
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Storage: StorageConfig{
			ProductsFile: getEnv("PRODUCTS_FILE", "products.txt"),
			OrdersFile:   getEnv("ORDERS_FILE", "final_orders.txt"),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             redisDB,
			IdempotencyTTL: time.Duration(idemTTL) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:             splitList(getEnv("KAFKA_BROKERS", "")),
			TopicOrderEvents:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			TopicStatusCommands: getEnv("KAFKA_TOPIC_STATUS_COMMANDS", "order-status-commands"),
			ConsumerGroup:       getEnv("KAFKA_CONSUMER_GROUP", "storefront-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
		Business: BusinessConfig{
			LowStockThreshold: lowStock,
			AdminToken:        getEnv("ADMIN_TOKEN", ""),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
