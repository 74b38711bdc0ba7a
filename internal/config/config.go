package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramBotToken string
	TelegramChatID   string
	TelegramAPIURL   string
	NotifyRPS        float64
	NotifyBurst      int

	DataDir         string
	PersistRequests bool

	GeoIPAPIURL string
	GeoIPDBPath string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisListKey    string
	RedisMaxEntries int64

	ServerAddr   string
	MaxBodyBytes int64
	LogLevel     string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramBotToken: env("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   env("TELEGRAM_USER_ID"),
		TelegramAPIURL:   env("TELEGRAM_API_URL"),
		NotifyBurst:      20,
		DataDir:          env("DATA_DIR"),
		PersistRequests:  true,
		GeoIPAPIURL:      env("GEOIP_API_URL"),
		GeoIPDBPath:      env("GEOIP_DB_PATH"),
		RedisAddr:        env("REDIS_ADDR"),
		RedisPassword:    env("REDIS_PASSWORD"),
		RedisListKey:     env("REDIS_LIST_KEY"),
		RedisMaxEntries:  1000,
		ServerAddr:       env("SERVER_ADDR"),
		MaxBodyBytes:     10 << 20,
		LogLevel:         env("LOG_LEVEL"),
	}

	if cfg.TelegramAPIURL == "" {
		cfg.TelegramAPIURL = "https://api.telegram.org"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.GeoIPAPIURL == "" {
		cfg.GeoIPAPIURL = "http://ip-api.com/json"
	}
	if cfg.RedisListKey == "" {
		cfg.RedisListKey = "captures"
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":3000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if v := env("PERSIST_REQUESTS"); v != "" {
		persist, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PERSIST_REQUESTS")
		}
		cfg.PersistRequests = persist
	}

	if v := env("NOTIFY_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return Config{}, fmt.Errorf("invalid NOTIFY_RATE_LIMIT_RPS")
		}
		cfg.NotifyRPS = rps
	}

	if v := env("NOTIFY_RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst <= 0 {
			return Config{}, fmt.Errorf("invalid NOTIFY_RATE_LIMIT_BURST")
		}
		cfg.NotifyBurst = burst
	}

	if v := env("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			return Config{}, fmt.Errorf("invalid REDIS_DB")
		}
		cfg.RedisDB = db
	}

	if v := env("REDIS_MAX_ENTRIES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid REDIS_MAX_ENTRIES")
		}
		cfg.RedisMaxEntries = n
	}

	if v := env("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid MAX_BODY_BYTES")
		}
		cfg.MaxBodyBytes = n
	}

	if cfg.TelegramBotToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.TelegramChatID == "" {
		return Config{}, fmt.Errorf("TELEGRAM_USER_ID is required")
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
