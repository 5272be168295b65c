package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := getEnv("MOVIEHUB_JWT_SECRET", "")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   getEnv("MOVIEHUB_JWT_ISSUER", "moviehub"),
		JWTDuration: time.Duration(getEnvInt("MOVIEHUB_JWT_TTL_HOURS", 24)) * time.Hour,
	}
}

type UpstreamConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func LoadUpstreamConfig() UpstreamConfig {
	return UpstreamConfig{
		BaseURL:    getEnv("MOVIEHUB_OMDB_URL", "https://www.omdbapi.com/"),
		APIKey:     getEnv("MOVIEHUB_OMDB_KEY", ""),
		Timeout:    time.Duration(getEnvInt("MOVIEHUB_OMDB_TIMEOUT_SECONDS", 5)) * time.Second,
		MaxRetries: getEnvInt("MOVIEHUB_OMDB_RETRIES", 3),
	}
}

type CacheConfig struct {
	TTL time.Duration
}

func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: time.Duration(getEnvInt("MOVIEHUB_CACHE_TTL_HOURS", 12)) * time.Hour,
	}
}

type ServerConfig struct {
	HTTPAddr      string
	EventsTCPAddr string
	NotifyUDPAddr string
	RateRPS       int
	RateBurst     int
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:      getEnv("MOVIEHUB_HTTP_ADDR", ":8080"),
		EventsTCPAddr: getEnv("MOVIEHUB_EVENTS_TCP_ADDR", ":9090"),
		NotifyUDPAddr: getEnv("MOVIEHUB_NOTIFY_UDP_ADDR", ":9999"),
		RateRPS:       getEnvInt("MOVIEHUB_RATE_RPS", 10),
		RateBurst:     getEnvInt("MOVIEHUB_RATE_BURST", 20),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
