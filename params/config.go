package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Server struct {
	// ListenAddr is the TCP address the line-protocol gateway binds to.
	ListenAddr string
	// NotifyBuffer is the per-trader outbound notification channel capacity.
	// A trader whose buffer is full misses broadcasts instead of stalling
	// delivery to everyone else.
	NotifyBuffer int
}

type Feed struct {
	// Enabled turns on the HTTP/WebSocket market-data server.
	Enabled bool
	// HTTPAddr is the address of the market-data server.
	HTTPAddr string
	// TradeHistory is the number of recent trades kept for GET /api/v1/trades.
	TradeHistory int
}

type Kafka struct {
	// Enabled turns on publishing of executed trades to Kafka.
	Enabled bool
	Brokers []string
	Topic   string
}

type Config struct {
	Server Server
	Feed   Feed
	Kafka  Kafka
}

func Default() Config {
	return Config{
		Server: Server{
			ListenAddr:   "127.0.0.1:8080",
			NotifyBuffer: 256,
		},
		Feed: Feed{
			Enabled:      false,
			HTTPAddr:     "127.0.0.1:8081",
			TradeHistory: 256,
		},
		Kafka: Kafka{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "trades",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if addr := os.Getenv("GATEWAY_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if buf := os.Getenv("GATEWAY_NOTIFY_BUFFER"); buf != "" {
		if n, err := strconv.Atoi(buf); err == nil && n > 0 {
			cfg.Server.NotifyBuffer = n
		}
	}

	if enabled := os.Getenv("FEED_ENABLED"); enabled != "" {
		cfg.Feed.Enabled = enabled == "true"
	}
	if addr := os.Getenv("FEED_HTTP_ADDR"); addr != "" {
		cfg.Feed.HTTPAddr = addr
	}
	if hist := os.Getenv("FEED_TRADE_HISTORY"); hist != "" {
		if n, err := strconv.Atoi(hist); err == nil && n > 0 {
			cfg.Feed.TradeHistory = n
		}
	}

	if enabled := os.Getenv("KAFKA_ENABLED"); enabled != "" {
		cfg.Kafka.Enabled = enabled == "true"
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		// Example: "broker1:9092,broker2:9092"
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}

	return cfg
}
