package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL string
	Port       string
	DbUrl      string
	RedisUrl   string
	AdminToken string
	MaxRounds  int
}

func Load() (*Config, error) {
	godotenv.Load()

	maxRounds := 2
	if v := os.Getenv("MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxRounds = n
		}
	}

	return &Config{
		BackendURL: getEnvOrDefault("BACKEND_URL", "http://localhost:8000"),
		Port:       getEnvOrDefault("PORT", "8080"),
		DbUrl:      os.Getenv("DB_URL"),
		RedisUrl:   os.Getenv("REDIS_URL"),
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		MaxRounds:  maxRounds,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
