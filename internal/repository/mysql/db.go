package mysql

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/marketplace/internal/config"
	"github.com/example/marketplace/internal/datamodels/listing"
	"github.com/example/marketplace/internal/datamodels/user"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Open 根据驱动建立 GORM 连接并自动迁移表结构。
// 生产环境使用 mysql，本地开发和测试可以使用 sqlite。
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// 内存 sqlite 每个连接都是独立的库，固定单连接避免表结构丢失
	if strings.Contains(cfg.DSN, ":memory:") || strings.Contains(cfg.DSN, "mode=memory") {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// sqliteDSN 强制开启外键约束（sqlite 默认关闭）
func sqliteDSN(dsn string) string {
	base, query, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		return dsn + "&_foreign_keys=on"
	}
	params.Del("_fk")
	params.Set("_foreign_keys", "on")
	return base + "?" + params.Encode()
}

// Migrate 自动迁移表结构
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&user.User{}, &listing.Listing{}, &listing.Message{}); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

// Init 初始化全局 GORM 实例，失败直接退出进程
func Init(cfg *config.DatabaseConfig) *gorm.DB {
	once.Do(func() {
		var err error
		db, err = Open(cfg)
		if err != nil {
			zap.L().Fatal("failed to connect database", zap.String("driver", cfg.Driver), zap.Error(err))
		}
	})
	return db
}
