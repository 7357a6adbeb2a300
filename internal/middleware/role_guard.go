package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"peercart/internal/domain/model"
	"peercart/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ログイン必須のページ。未ログインなら戻り先を覚えてログイン画面へ。
func RequireLogin(sessions repository.SessionStore, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserID(c) > 0 {
				return next(c)
			}

			target := "/"
			if c.Request().Method == http.MethodGet {
				target = SafeRedirect(c.Request().URL.RequestURI())
			}
			if sid := SessionID(c); sid != "" {
				if err := sessions.Set(c.Request().Context(), sid, repository.SessionKeyRedirectURL, target); err != nil {
					log.Warn("store redirect url failed", zap.Error(err))
				}
			}

			return c.Redirect(http.StatusSeeOther, "/auth?mode=login&redirect="+url.QueryEscape(target))
		}
	}
}

// contextに入っているroleがsellerかどうかを確認します。
func SellerRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := UserRole(c)
			if role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Please log in")
			}

			//buyerは拒否、sellerだけ許可
			if role != string(model.UserTypeSeller) {
				return echo.NewHTTPError(http.StatusForbidden, "Only sellers can do that")
			}
			return next(c)
		}
	}
}

// SafeRedirectは同一サイト内の相対パスだけを許す。それ以外は"/"。
func SafeRedirect(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") {
		return "/"
	}
	//"//evil.com" や "/\evil.com" はブラウザが外部URLとして扱う
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return target
}
