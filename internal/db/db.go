package db

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mindtrack-backend/internal/config"
	"mindtrack-backend/internal/model"
)

var (
	database *gorm.DB
	mu       sync.RWMutex
)

// Open connects to postgres and applies the pool settings.
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	if cfg.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetime) * time.Second)

	return conn, nil
}

// InitDBFromConfig opens the database, migrates it when INITIALIZE is set and
// installs it as the process wide handle.
func InitDBFromConfig(cfg *config.APIConfig) error {
	conn, err := Open(cfg.DB)
	if err != nil {
		return err
	}
	if cfg.DB.Initialize {
		if err := Migrate(conn); err != nil {
			return err
		}
	}
	SetDB(conn)
	return nil
}

// Migrate creates or updates every table.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func SetDB(conn *gorm.DB) {
	mu.Lock()
	defer mu.Unlock()
	database = conn
}

// GetDB returns the handle installed by InitDBFromConfig.
func GetDB() *gorm.DB {
	mu.RLock()
	defer mu.RUnlock()
	return database
}

// Close releases the process wide handle.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if database == nil {
		return nil
	}
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	database = nil
	return sqlDB.Close()
}
