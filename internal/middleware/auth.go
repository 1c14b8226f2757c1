package middleware

import (
	"errors"

	"github.com/kataras/iris/v12"

	"github.com/example/marketplace/internal/auth"
)

const sessionKey = "session"

// SessionFrom 取出鉴权中间件写入的 Session，没有时为匿名
func SessionFrom(ctx iris.Context) auth.Session {
	if s, ok := ctx.Values().Get(sessionKey).(auth.Session); ok {
		return s
	}
	return auth.Anonymous()
}

// Authenticate 解析 Authorization 头并写入 Session。
// 没有 token 时按匿名继续；token 无效直接返回 401。
func Authenticate(a *auth.Authenticator) iris.Handler {
	return func(ctx iris.Context) {
		sess, err := a.Authenticate(ctx.Request().Context(), ctx.GetHeader("Authorization"))
		if err != nil && !errors.Is(err, auth.ErrMissingToken) {
			ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"code": iris.StatusUnauthorized, "msg": "invalid token"})
			return
		}
		ctx.Values().Set(sessionKey, sess)
		ctx.Next()
	}
}

// RequireSession 要求已登录，必须挂在 Authenticate 之后
func RequireSession() iris.Handler {
	return func(ctx iris.Context) {
		if !SessionFrom(ctx).Authenticated() {
			ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"code": iris.StatusUnauthorized, "msg": "missing token"})
			return
		}
		ctx.Next()
	}
}
