package middleware

import (
	"peercart/internal/config"
	"peercart/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JWTのtvとDBのtoken_versionの一致するか確認。
// 一致しない・停止ユーザーならcookieを消してゲストに戻す。
func TokenVersionGuard(cfg config.Config, userRepo repository.UserRepository, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//AuthJWTが入れたuser_id を取得する
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return next(c)
			}

			//AuthJWTが入れたtoken_version(tv)を取得する
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				dropIdentity(c, cfg)
				return next(c)
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				if err != nil && err != repository.ErrNotFound {
					log.Warn("token version lookup failed", zap.Int64("user_id", userID), zap.Error(err))
				}
				dropIdentity(c, cfg)
				return next(c)
			}

			//token_version が一致しなければ強制ログアウト扱い
			if user.TokenVersion != tv || !user.IsActive {
				dropIdentity(c, cfg)
				return next(c)
			}

			//roleはDBの値を正とする
			c.Set(CtxUserRoleKey, string(user.UserType))
			c.Set(CtxUserKey, user)
			return next(c)
		}
	}
}

func dropIdentity(c echo.Context, cfg config.Config) {
	c.Set(CtxUserIDKey, nil)
	c.Set(CtxUserRoleKey, nil)
	c.Set(CtxTokenVersionKey, nil)
	ClearAuthCookie(c, cfg)
}
