package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName    string
	HTTPPort       string
	PostgresDSN    string
	RedisURL       string
	KafkaBrokers   []string
	AnchorEndpoint string
	AnchorExplorer string
	AnchorTimeout  time.Duration
	TallyCacheTTL  time.Duration

	EnableAuditRelay       bool
	EnableAnchorReconciler bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "quorum"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:    service,
		HTTPPort:       port,
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaBrokers:   brokers,
		AnchorEndpoint: strings.TrimSpace(os.Getenv("ANCHOR_ENDPOINT")),
		AnchorExplorer: strings.TrimSpace(os.Getenv("ANCHOR_EXPLORER_URL")),
		AnchorTimeout:  envDuration("ANCHOR_TIMEOUT", 3*time.Second),
		TallyCacheTTL:  envDuration("TALLY_CACHE_TTL", 15*time.Second),

		EnableAuditRelay:       envBool("ENABLE_AUDIT_RELAY", true),
		EnableAnchorReconciler: envBool("ENABLE_ANCHOR_RECONCILER", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
