package server

import (
	"errors"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/marketplace/internal/auth"
	"github.com/example/marketplace/internal/middleware"
	"github.com/example/marketplace/internal/service"
)

// Deps 路由依赖的服务
type Deps struct {
	Listings      *service.ListingService
	Users         *service.UserService
	Authenticator *auth.Authenticator
	Limiter       *middleware.Limiter
	Log           *zap.Logger
}

// RegisterRoutes 注册前台 API 路由
func RegisterRoutes(app *iris.Application, d *Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	limiter := d.Limiter
	if limiter == nil {
		limiter = middleware.NewLimiter(0, 0)
	}

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"code": 0,
			"msg":  "ok",
		})
	})

	// 用户注册/登录
	api.Post("/register", func(ctx iris.Context) {
		var in service.RegisterInput
		if !readJSON(ctx, &in) {
			return
		}
		u, err := d.Users.Register(ctx.Request().Context(), in)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": u})
	})

	api.Post("/login", func(ctx iris.Context) {
		var in service.LoginInput
		if !readJSON(ctx, &in) {
			return
		}
		token, err := d.Users.Login(ctx.Request().Context(), in)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"token": token}})
	})

	// 以下接口都会解析登录态，匿名请求也可以进入公开接口
	session := api.Party("/", middleware.Authenticate(d.Authenticator))

	// 单个物品（公开）
	session.Get("/listings/{id:string}", func(ctx iris.Context) {
		id := ctx.Params().Get("id")
		l, err := d.Listings.Get(ctx.Request().Context(), middleware.SessionFrom(ctx), service.GetListingInput{ListingID: &id})
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": l})
	})

	// 我的物品（公开，匿名返回空列表）
	session.Get("/listings", func(ctx iris.Context) {
		list, err := d.Listings.List(ctx.Request().Context(), middleware.SessionFrom(ctx))
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 需要登录的接口
	authAPI := session.Party("/", middleware.RequireSession())

	authAPI.Post("/listings", func(ctx iris.Context) {
		var in service.CreateListingInput
		if !readJSON(ctx, &in) {
			return
		}
		l, err := d.Listings.Create(ctx.Request().Context(), middleware.SessionFrom(ctx), in)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(iris.Map{"code": 0, "data": l})
	})

	authAPI.Post("/messages", middleware.RateLimitMiddleware(limiter), func(ctx iris.Context) {
		var in service.SendMessageInput
		if !readJSON(ctx, &in) {
			return
		}
		m, err := d.Listings.SendMessage(ctx.Request().Context(), middleware.SessionFrom(ctx), in)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(iris.Map{"code": 0, "data": m})
	})

	authAPI.Get("/messages", func(ctx iris.Context) {
		msgs, err := d.Listings.GetMessages(ctx.Request().Context(), middleware.SessionFrom(ctx))
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": msgs})
	})
}

// readJSON 解析请求体，失败时直接返回 400
func readJSON(ctx iris.Context, out any) bool {
	if err := ctx.ReadJSON(out); err != nil {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
			"code": iris.StatusBadRequest,
			"msg":  service.ErrValidation.Error() + ": " + err.Error(),
		})
		return false
	}
	return true
}

// writeError 把服务层错误映射成 HTTP 状态码
func writeError(ctx iris.Context, log *zap.Logger, err error) {
	status := iris.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrValidation):
		status = iris.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		status = iris.StatusUnauthorized
	case errors.Is(err, service.ErrLoginTaken), errors.Is(err, gorm.ErrDuplicatedKey):
		status = iris.StatusConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		status = iris.StatusNotFound
		msg = "listing not found"
	default:
		log.Error("request failed", zap.String("path", ctx.Path()), zap.Error(err))
		msg = "internal error"
	}
	ctx.StopWithJSON(status, iris.Map{"code": status, "msg": msg})
}
