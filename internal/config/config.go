package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken       string
	ReplicateToken string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	PostgresDSN string

	// Whitelist holds user ids or @handles exempt from quota checks.
	Whitelist []string

	WarnThreshold   int
	MaxOperationAge time.Duration
	SweepInterval   time.Duration
}

func Load() Config {
	redisHost := getEnv("REDIS_HOST", "localhost")
	redisPort := getEnv("REDIS_PORT", "6379")

	return Config{
		BotToken:       strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		ReplicateToken: strings.TrimSpace(os.Getenv("REPLICATE_API_TOKEN")),

		RedisAddr:     fmt.Sprintf("%s:%s", redisHost, redisPort),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       GetEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "stylist_bot"),

		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		Whitelist: splitList(os.Getenv("WHITELIST")),

		WarnThreshold:   GetEnvInt("WARN_THRESHOLD", 3),
		MaxOperationAge: time.Duration(GetEnvInt("MAX_OPERATION_AGE_SECONDS", 900)) * time.Second,
		SweepInterval:   time.Duration(GetEnvInt("SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
	}
}

func getEnv(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func GetEnvInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
