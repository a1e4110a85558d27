package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Stream   StreamConfig
	Scanner  ScannerConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	BookingCreated    string
	BookingCheckedIn  string
	BookingCheckedOut string
	BookingExtended   string
}

// StreamConfig controls the SSE notification stream.
type StreamConfig struct {
	HeartbeatInterval time.Duration
}

// ScannerConfig controls the periodic overdue-booking sweep.
type ScannerConfig struct {
	Interval time.Duration
	Enabled  bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				BookingCreated:    getEnv("KAFKA_TOPIC_BOOKING_CREATED", "campsite.bookings.created"),
				BookingCheckedIn:  getEnv("KAFKA_TOPIC_BOOKING_CHECKED_IN", "campsite.bookings.checked-in"),
				BookingCheckedOut: getEnv("KAFKA_TOPIC_BOOKING_CHECKED_OUT", "campsite.bookings.checked-out"),
				BookingExtended:   getEnv("KAFKA_TOPIC_BOOKING_EXTENDED", "campsite.bookings.extended"),
			},
		},
		Stream: StreamConfig{
			HeartbeatInterval: time.Duration(getEnvInt("STREAM_HEARTBEAT_SECONDS", 15)) * time.Second,
		},
		Scanner: ScannerConfig{
			Interval: time.Duration(getEnvInt("SCAN_INTERVAL_MINUTES", 10)) * time.Minute,
			Enabled:  getEnvBool("SCAN_ENABLED", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
