package server

import (
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/service"
)

// RegisterAdminRoutes 注册后台只读接口，端口通常是 8081，与前台服务分离
func RegisterAdminRoutes(app *iris.Application, listings *service.ListingService, users *service.UserService, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	api := app.Party("/api")

	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// 监控统计
	api.Get("/stats", func(ctx iris.Context) {
		stats := service.GetMonitor().GetStats()
		if n, err := listings.CountMessages(ctx.Request().Context()); err == nil {
			stats["messages_total"] = n
		} else {
			log.Warn("count messages failed", zap.Error(err))
		}
		ctx.JSON(iris.Map{"code": 0, "data": stats})
	})

	// 全部物品
	api.Get("/listings", func(ctx iris.Context) {
		list, err := listings.ListAll(ctx.Request().Context())
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 全部用户
	api.Get("/users", func(ctx iris.Context) {
		list, err := users.ListAll(ctx.Request().Context())
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})
}
