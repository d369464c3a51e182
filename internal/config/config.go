package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBPath      string
	StaticDir   string
	LogLevel    string
	Environment string
}

// Load reads .env (if present) and then the INKWELL_* environment variables.
func Load() Config {
	envFile := os.Getenv("INKWELL_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	godotenv.Load(envFile)

	return Config{
		Port:        getEnv("INKWELL_PORT", "8080"),
		DBPath:      getEnv("INKWELL_DB_PATH", "inkwell.db"),
		StaticDir:   getEnv("INKWELL_STATIC_DIR", "web/static"),
		LogLevel:    getEnv("INKWELL_LOG_LEVEL", "info"),
		Environment: getEnv("INKWELL_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
