package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Bot Settings
	BotToken      string
	CommandPrefix string
	OwnerID       string

	// HTTP API
	HTTPAddr string

	// Directories and files
	DownloadDir string
	PlaylistDir string
	CookiesFile string

	// Transcoding
	FFmpegPath     string
	MaxAudioFileMB int

	// Database (optional playlist backend)
	DatabaseURL string
	UseDatabase bool

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is required")
	}

	// Database configuration
	useDatabase := getEnvBool("USE_DATABASE", false)
	var databaseURL string
	if useDatabase {
		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			os.Getenv("POSTGRES_USER"),
			os.Getenv("POSTGRES_PASSWORD"),
			getEnvOrDefault("POSTGRES_HOST", "localhost"),
			getEnvOrDefault("POSTGRES_PORT", "5432"),
			os.Getenv("POSTGRES_DB"))
	}

	cfg := &Config{
		BotToken:      botToken,
		CommandPrefix: getEnvOrDefault("COMMAND_PREFIX", "!"),
		OwnerID:       os.Getenv("OWNER_ID"),

		HTTPAddr: getEnvOrDefault("HTTP_ADDR", ":5000"),

		DownloadDir: getEnvOrDefault("DOWNLOAD_DIR", "./downloads"),
		PlaylistDir: getEnvOrDefault("PLAYLIST_DIR", "./playlists"),
		CookiesFile: getEnvOrDefault("COOKIES_FILE", "./cookies.txt"),

		FFmpegPath:     getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		MaxAudioFileMB: getEnvInt("MAX_AUDIO_FILE_MB", 100),

		DatabaseURL: databaseURL,
		UseDatabase: useDatabase,

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	// Playlist directory is only needed for the file-based store
	if !cfg.UseDatabase {
		if err := os.MkdirAll(cfg.PlaylistDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create playlist directory: %w", err)
		}
	}

	return cfg, nil
}

// MaxAudioFileBytes returns the audio size cap in bytes
func (c *Config) MaxAudioFileBytes() int64 {
	return int64(c.MaxAudioFileMB) * 1024 * 1024
}

// GetSafeToken returns a masked version of the token for logging
func (c *Config) GetSafeToken() string {
	if len(c.BotToken) < 15 {
		return "***"
	}
	return c.BotToken[:10] + "..." + c.BotToken[len(c.BotToken)-4:]
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "NO":
			return false
		}
	}
	return defaultValue
}
