package redis

import (
	"sync"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/config"
)

var (
	client radix.Client
	once   sync.Once
)

// New 创建 Redis 连接池
func New(cfg *config.RedisConfig) (radix.Client, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = 10
	}
	return radix.NewPool("tcp", cfg.Addr, size)
}

// Init 初始化全局 Redis 连接池。Addr 为空时返回 nil，调用方按无缓存处理
func Init(cfg *config.RedisConfig) radix.Client {
	once.Do(func() {
		if cfg.Addr == "" {
			zap.L().Warn("redis addr is empty, token cache disabled")
			return
		}
		pool, err := New(cfg)
		if err != nil {
			zap.L().Fatal("failed to connect redis", zap.String("addr", cfg.Addr), zap.Error(err))
		}
		client = pool
	})
	return client
}
