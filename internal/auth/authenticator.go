package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/marketplace/internal/config"
)

var ErrMissingToken = errors.New("missing token")

// Authenticator 把请求携带的 token 解析成 Session，优先走 TokenCache
type Authenticator struct {
	jwt   *config.JWTConfig
	cache *TokenCache
	log   *zap.Logger
}

func NewAuthenticator(jwtCfg *config.JWTConfig, cache *TokenCache, log *zap.Logger) *Authenticator {
	if cache == nil {
		cache = NewTokenCache(nil, nil, 0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{jwt: jwtCfg, cache: cache, log: log}
}

// Authenticate 解析 Authorization 头。空头返回 ErrMissingToken，
// token 无效返回解析错误。缓存故障只记日志，不影响鉴权结果。
func (a *Authenticator) Authenticate(ctx context.Context, header string) (Session, error) {
	token := StripBearer(header)
	if token == "" {
		return Anonymous(), ErrMissingToken
	}

	claims, hit, err := a.cache.Get(ctx, token)
	if err != nil {
		a.log.Warn("token cache get failed", zap.Error(err))
	}
	if !hit {
		claims, err = ParseToken(a.jwt, token)
		if err != nil {
			return Anonymous(), err
		}
		if err := a.cache.Set(ctx, token, claims); err != nil {
			a.log.Warn("token cache set failed", zap.Error(err))
		}
	}
	return NewSession(claims.UserID, claims.Username), nil
}
