package db

import (
	"fmt"

	"cyber-shield/internal/config"
	"cyber-shield/internal/logging"
	"cyber-shield/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB initializes the database connection
func InitDB(cfg *config.Config) error {
	if cfg.Storage.Type != "postgres" {
		logging.DefaultLogger.Debug("Storage type is %s, skipping database initialization", cfg.Storage.Type)
		return nil
	}

	dsn := cfg.Storage.PostgresURL
	if dsn == "" {
		return fmt.Errorf("postgres storage requires a postgres_url")
	}

	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.Logging.Level == "debug" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.DefaultLogger.Info("Successfully connected to database")

	// Auto Migrate
	return AutoMigrate()
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	if DB == nil {
		return nil
	}
	return DB.AutoMigrate(
		&models.ThreatRecord{},
	)
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the underlying connection pool
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
