// Package config reads the bot settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	DiscordToken string
	Prefix       string

	// DBDriver is "sqlite" or "json".
	DBDriver string
	DBPath   string

	RefreshInterval  time.Duration
	MessageCacheSize int

	LogLevel string
	LogFile  string
	Debug    bool

	// StatusAddr enables the read-only status API when set.
	StatusAddr string
	StatusKey  string

	// TelegramToken and TelegramChatID enable ops notifications.
	TelegramToken  string
	TelegramChatID int64
}

// Load reads envFile when it exists, then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "load %s", envFile)
		}
	}

	cfg := Config{
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		Prefix:           getenv("COMMAND_PREFIX", "!"),
		DBDriver:         getenv("DB_DRIVER", "sqlite"),
		DBPath:           getenv("DB_PATH", "data/polls.db"),
		RefreshInterval:  getduration("REFRESH_INTERVAL", 300*time.Second),
		MessageCacheSize: getint("MESSAGE_CACHE_SIZE", 1000),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
		Debug:            getbool("BOT_DEBUG", false),
		StatusAddr:       os.Getenv("STATUS_ADDR"),
		StatusKey:        os.Getenv("STATUS_KEY"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is not set")
	}
	switch cfg.DBDriver {
	case "sqlite", "json":
	default:
		return Config{}, errors.Errorf("DB_DRIVER must be sqlite or json, got %q", cfg.DBDriver)
	}
	if cfg.StatusAddr != "" && cfg.StatusKey == "" {
		return Config{}, errors.New("STATUS_KEY is required when STATUS_ADDR is set")
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, errors.Wrap(err, "TELEGRAM_CHAT_ID")
		}
		cfg.TelegramChatID = id
	}
	return cfg, nil
}

// Notifications reports whether both Telegram settings are present.
func (c Config) Notifications() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getint(key string, def int) int {
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

// getduration accepts Go durations ("5m") or plain seconds ("300").
func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
