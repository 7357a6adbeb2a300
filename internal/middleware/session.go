package middleware

import (
	"net/http"

	"peercart/internal/config"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const SessionCookieName = "sid"

// 全リクエストにsidを付ける。無い・不正なら新しく発行する。
// 値そのものはRedis（session:<sid>）に置く。
func Session(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := ""
			if ck, err := c.Cookie(SessionCookieName); err == nil {
				if _, err := uuid.Parse(ck.Value); err == nil {
					sid = ck.Value
				}
			}

			if sid == "" {
				sid = uuid.NewString()
			}
			//有効期限を延ばす
			c.SetCookie(&http.Cookie{
				Name:     SessionCookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(cfg.SessionTTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})

			c.Set(CtxSessionIDKey, sid)
			return next(c)
		}
	}
}

// RotateSessionはログイン時にsidを作り直す（固定化対策）
func RotateSession(c echo.Context, cfg config.Config) string {
	sid := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(CtxSessionIDKey, sid)
	return sid
}

func SessionID(c echo.Context) string {
	sid, _ := c.Get(CtxSessionIDKey).(string)
	return sid
}
