package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Config carries everything but the log level, which the logger reads from
// the environment itself: the logger is constructed before config so config
// loading can already log.
type Config struct {
	DBPath            string
	ServerPort        string
	SitePIN           string
	DiscordWebhookURL string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "tracker.db"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		SitePIN:           getEnv("SITE_PIN", ""),
		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
	}

	if cfg.SitePIN == "" {
		return nil, fmt.Errorf("SITE_PIN is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Bool("discord_configured", cfg.DiscordWebhookURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
