package main

import (
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/config"
	"github.com/example/marketplace/internal/identity"
	"github.com/example/marketplace/internal/logger"
	"github.com/example/marketplace/internal/repository/mysql"
	"github.com/example/marketplace/internal/server"
	"github.com/example/marketplace/internal/service"
)

// 只读后台：统计、全部物品、用户列表
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
	userRepo := mysql.NewUserRepository(db)
	listings := service.NewListingService(mysql.NewListingRepository(db), identity.NewDirectory(userRepo), nil, log)
	users := service.NewUserService(userRepo, &cfg.JWT)

	app := iris.New()
	server.RegisterAdminRoutes(app, listings, users, log)

	addr := cfg.AdminServer.Addr()
	log.Info("admin server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		log.Fatal("failed to run admin server", zap.Error(err))
	}
}
