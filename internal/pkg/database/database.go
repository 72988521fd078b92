package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/xo/dburl"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/config"
	logger2 "hpc-portal/internal/pkg/logger"
)

var DB *gorm.DB

const slowQueryThreshold = 200 * time.Millisecond

// newGormConfig 外键由业务层维护, 迁移时不创建约束
func newGormConfig(sqlLogger logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                                   sqlLogger,
		NowFunc:                                  func() time.Time { return time.Now().Local() },
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}
}

// Init 连接数据库, 失败时不保留半初始化的连接
func Init(cfg *config.DatabaseConfig) error {
	dialector, err := openDialector(cfg)
	if err != nil {
		return err
	}

	level := parseLogLevel(cfg.LogLevel)
	sqlLogger := logger.New(logger2.GetWriter(), logger.Config{
		SlowThreshold: slowQueryThreshold,
		LogLevel:      level,
		Colorful:      cfg.LogLevel != "" && cfg.LogLevel != "silent",
	}).LogMode(level)

	db, err := gorm.Open(dialector, newGormConfig(sqlLogger))
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}
	if err := configurePool(db, cfg); err != nil {
		return err
	}
	DB = db
	return nil
}

func configurePool(db *gorm.DB, cfg *config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库实例失败: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("数据库连接测试失败: %w", err)
	}
	return nil
}

// openDialector 根据 url 或驱动配置选择方言
func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	driver, dsn := cfg.Driver, cfg.GetDSN()
	if cfg.URL != "" {
		u, err := dburl.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("解析数据库URL失败: %w", err)
		}
		driver, dsn = u.Driver, u.DSN
		if driver == "mysql" && !strings.Contains(dsn, "parseTime") {
			dsn += withQuerySep(dsn) + "parseTime=True&charset=utf8mb4"
		}
	}

	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres", "pgx":
		return postgres.Open(dsn), nil
	case "sqlite", "sqlite3":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", driver)
	}
}

func withQuerySep(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}

// Migrate 自动迁移表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// Close 关闭全局连接
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

func GetDB() *gorm.DB {
	return DB
}

// parseLogLevel SQL 日志默认关闭
func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}
