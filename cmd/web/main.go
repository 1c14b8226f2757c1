package main

import (
	"time"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/auth"
	"github.com/example/marketplace/internal/config"
	"github.com/example/marketplace/internal/identity"
	"github.com/example/marketplace/internal/infra/mq"
	"github.com/example/marketplace/internal/infra/redis"
	"github.com/example/marketplace/internal/logger"
	"github.com/example/marketplace/internal/middleware"
	"github.com/example/marketplace/internal/repository/mysql"
	"github.com/example/marketplace/internal/server"
	"github.com/example/marketplace/internal/service"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		panic(err)
	}
	log, err := logger.Init(&cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db := mysql.Init(&cfg.Database)
	redisClient := redis.Init(&cfg.Redis)

	ring := auth.NewConsistentHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	cache := auth.NewTokenCache(redisClient, ring, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)
	authenticator := auth.NewAuthenticator(&cfg.JWT, cache, log)

	// 事件发布是可选的，MQ 不可用时留言照常写库
	var events service.EventPublisher
	if conn, err := mq.Init(&cfg.RabbitMQ); err != nil {
		log.Warn("rabbitmq unavailable, message.sent events disabled", zap.Error(err))
	} else if pub, err := mq.NewPublisher(conn, cfg.RabbitMQ.Exchange); err != nil {
		log.Warn("declare exchange failed, message.sent events disabled",
			zap.String("exchange", cfg.RabbitMQ.Exchange), zap.Error(err))
	} else {
		events = pub
	}

	userRepo := mysql.NewUserRepository(db)
	listingRepo := mysql.NewListingRepository(db)

	app := iris.New()
	server.RegisterRoutes(app, &server.Deps{
		Listings:      service.NewListingService(listingRepo, identity.NewDirectory(userRepo), events, log),
		Users:         service.NewUserService(userRepo, &cfg.JWT),
		Authenticator: authenticator,
		Limiter:       middleware.NewLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond),
		Log:           log,
	})

	addr := cfg.Server.Addr()
	log.Info("web server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		log.Fatal("failed to run web server", zap.Error(err))
	}
}
