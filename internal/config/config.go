package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          int
	GeminiAPIKey  string
	GeminiBaseURL string
	FlashModel    string
	ProModel      string
	NatsURL       string
	DBPath        string
	LogLevel      string
	MaxInputBytes int
}

func Load() Config {
	return Config{
		Port:          envInt("PMCOPILOT_PORT", 8600),
		GeminiAPIKey:  envStr("GEMINI_API_KEY", ""),
		GeminiBaseURL: envStr("GEMINI_BASE_URL", ""),
		FlashModel:    envStr("GEMINI_FLASH_MODEL", "gemini-2.5-flash"),
		ProModel:      envStr("GEMINI_PRO_MODEL", "gemini-3-pro-preview"),
		NatsURL:       envStr("NATS_URL", ""),
		DBPath:        envStr("DB_PATH", "data/pmcopilot.db"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		MaxInputBytes: envInt("MAX_INPUT_BYTES", 20<<20),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
