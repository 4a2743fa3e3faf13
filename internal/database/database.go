package database

import (
	"fmt"
	"time"

	"order_service/internal/config"
	"order_service/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 按 STORE_DRIVER 选择方言并配置连接池，连通性通过 Ping 校验。
func Open(cfg config.AppConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		dialector = sqlite.Open(cfg.DBPath)
	case config.StorePostgres:
		dialector = postgres.New(postgres.Config{DSN: cfg.PostgresDSN})
	default:
		return nil, fmt.Errorf("store driver %q is not relational", cfg.StoreDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// Migrate 自动建表。
func Migrate(db *gorm.DB, log *zap.Logger) error {
	start := time.Now()
	if err := db.AutoMigrate(&model.Order{}); err != nil {
		return fmt.Errorf("auto-migrating orders: %w", err)
	}
	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// Close 释放底层连接池。
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
