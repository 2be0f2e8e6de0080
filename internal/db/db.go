package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"launchpad/internal/logger"
	"launchpad/internal/models"
)

// Open connects to Postgres and migrates the posts and comments relations.
func Open(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Log.Info("Database connection established")

	if err := conn.AutoMigrate(&models.Post{}, &models.Comment{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Log.Info("Database migration completed")
	return conn, nil
}
