package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"omnilead-server/models"
)

// Connect opens the networked store and migrates the schema. An empty URL is
// not an error: the service then runs on the local JSON files alone.
func Connect(url string, debug bool) (*gorm.DB, error) {
	if url == "" {
		return nil, nil
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  debug,
		},
	)

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables for every record kind.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Service{},
		&models.Contractor{},
		&models.Lead{},
		&models.Review{},
		&models.Message{},
		&models.Block{},
		&models.AdminAction{},
		&models.SentMessage{},
	)
}
