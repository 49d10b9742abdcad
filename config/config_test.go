package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SYNC_INTERVAL", "")
	t.Setenv("UPLOAD_BACKEND", "")

	cfg := Load()
	assert.Same(t, cfg, AppConfig)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 10*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.BaseURL)
	assert.Equal(t, "local", cfg.Upload.Backend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "30s")
	t.Setenv("HISTORY_LIMIT", "50")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("JWT_EXPIRY_HOURS", "not-a-number")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 50, cfg.Database.History)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 24, cfg.JWT.ExpiryHours)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "debug with default secret", mutate: func(c *Config) {}},
		{
			name:    "release with default secret",
			mutate:  func(c *Config) { c.Server.GinMode = "release" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Upload.Backend = "s3" },
			wantErr: "S3_BUCKET",
		},
		{
			name:    "cloudinary without url",
			mutate:  func(c *Config) { c.Upload.Backend = "cloudinary" },
			wantErr: "CLOUDINARY_URL",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Upload.Backend = "ftp" },
			wantErr: "UPLOAD_BACKEND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{GinMode: "debug"},
				JWT:    JWTConfig{Secret: DefaultJWTSecret, ExpiryHours: 24},
				Upload: UploadConfig{Backend: "local"},
				Sync:   SyncConfig{Interval: time.Minute},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
