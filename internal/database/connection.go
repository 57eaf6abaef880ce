package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/snow-cube/paper-manager/internal/config"
	"github.com/snow-cube/paper-manager/internal/models"
	"github.com/snow-cube/paper-manager/internal/utils"
)

// NewGormLogger sends gorm's SQL log through logrus.
func NewGormLogger(level logger.LogLevel) logger.Interface {
	return logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func createDatabaseIfNotExists(cfg config.DatabaseConfig) error {
	db, err := gorm.Open(postgres.Open(cfg.MaintenanceDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	defer sqlDB.Close()

	var exists bool
	checkSQL := "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)"
	if err := db.Raw(checkSQL, cfg.DBName).Scan(&exists).Error; err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return nil
	}

	createSQL := fmt.Sprintf("CREATE DATABASE %q", cfg.DBName)
	if err := db.Exec(createSQL).Error; err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.DBName, err)
	}
	logrus.WithField("dbname", cfg.DBName).Info("数据库创建成功")
	return nil
}

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	// 使用完整 URL 时跳过建库检查
	if cfg.URL == "" {
		if err := createDatabaseIfNotExists(cfg); err != nil {
			logrus.WithError(err).Warn("创建数据库失败，尝试直接连接")
		}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: NewGormLogger(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("数据库连接成功")
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("database connection not initialized")
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamUser{},
		&models.Category{},
		&models.Paper{},
		&models.ReferenceCategory{},
		&models.ReferencePaper{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// EnsureAdmin creates the configured admin account unless a user with that
// email already exists. An empty config is a no-op.
func EnsureAdmin(db *gorm.DB, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", cfg.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	username := cfg.Username
	if username == "" {
		username = "admin"
	}
	admin := models.User{
		Username:     username,
		Email:        cfg.Email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logrus.WithField("email", cfg.Email).Info("已创建初始管理员")
	return nil
}
