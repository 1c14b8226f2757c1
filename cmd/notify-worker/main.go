package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/marketplace/internal/config"
	"github.com/example/marketplace/internal/infra/mq"
	"github.com/example/marketplace/internal/logger"
	"github.com/example/marketplace/internal/repository/mysql"
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
	conn, err := mq.Init(&cfg.RabbitMQ)
	if err != nil {
		log.Fatal("failed to connect rabbitmq", zap.Error(err))
	}
	defer conn.Close()

	notifier := service.NewNotifier(mysql.NewListingRepository(db), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("notify worker started, waiting for messages...",
		zap.String("exchange", cfg.RabbitMQ.Exchange),
		zap.String("queue", cfg.RabbitMQ.Queue),
	)
	err = mq.Consume(ctx, conn, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, service.RoutingKeyMessageSent, notifier.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("consume failed", zap.Error(err))
	}
	log.Info("notify worker stopped", zap.Any("stats", service.GetMonitor().GetStats()))
}
