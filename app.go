package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"omnilead-server/config"
	"omnilead-server/database"
	"omnilead-server/services"
)

// app holds everything the commands share once config and storage are up.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	stores *database.Stores
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.GinMode == gin.ReleaseMode {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// bootstrap loads config, builds the logger and opens both stores. A
// database that cannot be reached at startup leaves the service on the local
// files; the sync job replays them once a database is configured again.
func bootstrap() (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	db, err := database.Connect(cfg.Database.URL, cfg.Database.Debug)
	stores := database.OpenStores(db, cfg.Database.DataDir, cfg.Database.History, logger)
	switch {
	case err != nil:
		// Each sync run tries again and attaches the database once it answers.
		logger.Warn("primary store unreachable, running on local files", zap.Error(err))
		stores.RetryPrimary(func() (*gorm.DB, error) {
			return database.Connect(cfg.Database.URL, cfg.Database.Debug)
		})
	case db == nil:
		logger.Info("no DATABASE_URL set, running on local files", zap.String("dir", cfg.Database.DataDir))
	default:
		logger.Info("connected to primary store")
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		stores: stores,
	}, nil
}

func (a *app) channels() services.Channels {
	t := a.cfg.Telegram
	return services.Channels{
		Admin:    services.Credential{Token: t.BotToken, ChatID: t.AdminChatID},
		Override: services.Credential{Token: t.OverrideToken, ChatID: t.OverrideChatID},
	}
}

func (a *app) sessions() *services.JWTService {
	return services.NewJWTService(a.cfg.JWT.Secret, time.Duration(a.cfg.JWT.ExpiryHours)*time.Hour)
}

func (a *app) uploader(ctx context.Context) (services.ImageUploader, error) {
	u := a.cfg.Upload
	return services.NewImageUploader(ctx, services.UploadSettings{
		Backend:       u.Backend,
		LocalDir:      u.LocalDir,
		PublicBase:    u.PublicBase,
		CloudinaryURL: u.Cloudinary.URL,
		CloudinaryDir: u.Cloudinary.Folder,
		S3Bucket:      u.S3.Bucket,
		S3Region:      u.S3.Region,
		S3PublicURL:   u.S3.PublicURL,
	}, a.logger)
}

func (a *app) close() {
	_ = a.logger.Sync()
}
