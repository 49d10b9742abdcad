package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only acceptable outside release mode.
const DefaultJWTSecret = "your-super-secret-jwt-key-change-this-in-production"

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Telegram TelegramConfig
	Upload   UploadConfig
	Sync     SyncConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AllowedOrigins []string
	RateLimit      int
}

type DatabaseConfig struct {
	URL     string
	DataDir string
	History int
	Debug   bool
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type AdminConfig struct {
	Email    string
	Password string
}

// TelegramConfig holds the bot credentials for admin notifications. The
// override pair is an optional second admin channel.
type TelegramConfig struct {
	BaseURL        string
	BotToken       string
	AdminChatID    string
	OverrideToken  string
	OverrideChatID string
	Timeout        time.Duration
}

type UploadConfig struct {
	Backend    string
	LocalDir   string
	PublicBase string
	Cloudinary CloudinaryConfig
	S3         S3Config
}

type CloudinaryConfig struct {
	URL    string
	Folder string
}

type S3Config struct {
	Bucket    string
	Region    string
	PublicURL string
}

type SyncConfig struct {
	Interval time.Duration
}

var AppConfig *Config

// Load reads .env (when present) and the process environment into AppConfig.
func Load() *Config {
	_ = godotenv.Load()

	AppConfig = &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			GinMode:        getEnv("GIN_MODE", "debug"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			RateLimit:      getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:     getEnv("DATABASE_URL", ""),
			DataDir: getEnv("DATA_DIR", "data"),
			History: getEnvAsInt("HISTORY_LIMIT", 1000),
			Debug:   getEnv("DB_DEBUG", "") == "true",
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", DefaultJWTSecret),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Telegram: TelegramConfig{
			BaseURL:        getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			BotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
			AdminChatID:    getEnv("TELEGRAM_ADMIN_CHAT_ID", ""),
			OverrideToken:  getEnv("TELEGRAM_OVERRIDE_TOKEN", ""),
			OverrideChatID: getEnv("TELEGRAM_OVERRIDE_CHAT_ID", ""),
			Timeout:        getEnvAsDuration("TELEGRAM_TIMEOUT", 10*time.Second),
		},
		Upload: UploadConfig{
			Backend:    getEnv("UPLOAD_BACKEND", "local"),
			LocalDir:   getEnv("UPLOAD_DIR", "uploads"),
			PublicBase: getEnv("UPLOAD_PUBLIC_BASE", "/uploads"),
			Cloudinary: CloudinaryConfig{
				URL:    getEnv("CLOUDINARY_URL", ""),
				Folder: getEnv("CLOUDINARY_FOLDER", "omnilead/reviews"),
			},
			S3: S3Config{
				Bucket:    getEnv("S3_BUCKET", ""),
				Region:    getEnv("AWS_REGION", "us-east-1"),
				PublicURL: getEnv("S3_PUBLIC_URL", ""),
			},
		},
		Sync: SyncConfig{
			Interval: getEnvAsDuration("SYNC_INTERVAL", time.Minute),
		},
	}
	return AppConfig
}

// Validate rejects settings that must not reach production.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.GinMode == "release" && c.JWT.Secret == DefaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in release mode"))
	}
	if c.JWT.ExpiryHours <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY_HOURS must be positive"))
	}
	switch c.Upload.Backend {
	case "local":
	case "cloudinary":
		if c.Upload.Cloudinary.URL == "" {
			errs = append(errs, errors.New("CLOUDINARY_URL is required for the cloudinary upload backend"))
		}
	case "s3":
		if c.Upload.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 upload backend"))
		}
	default:
		errs = append(errs, errors.New("UPLOAD_BACKEND must be one of local, cloudinary, s3"))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("SYNC_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// AdminEnabled reports whether admin login is configured at all.
func (c *Config) AdminEnabled() bool {
	return c.Admin.Email != "" && c.Admin.Password != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
