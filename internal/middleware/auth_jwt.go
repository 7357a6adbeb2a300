package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"peercart/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
	CtxUserKey         = "user"          // *model.User（TokenVersionGuardが入れる）
	CtxSessionIDKey    = "session_id"    // string
)

const (
	AuthCookieName  = "auth"
	DraftCookieName = "reg_draft"
)

// ログインcookieのJWTを検証する。
// 無い・壊れている場合はゲストとして次へ進む（ログイン必須はRequireLogin）。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(AuthCookieName)
			if err != nil || ck.Value == "" {
				return next(c)
			}

			//JWTをパースして検証する
			token, err := jwt.Parse(ck.Value, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || token == nil || !token.Valid {
				ClearAuthCookie(c, cfg)
				return next(c)
			}

			//claimsを取り出す
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				ClearAuthCookie(c, cfg)
				return next(c)
			}

			userID, err := parseUserID(claims["sub"])
			if err != nil || userID <= 0 {
				ClearAuthCookie(c, cfg)
				return next(c)
			}

			//roleを取り出す（buyer/seller）
			role, err := parseString(claims["role"])
			if err != nil || role == "" {
				ClearAuthCookie(c, cfg)
				return next(c)
			}

			//token_versionを取り出す
			tv, err := parseInt(claims["tv"])
			if err != nil || tv < 0 {
				ClearAuthCookie(c, cfg)
				return next(c)
			}

			//contextへ保存
			c.Set(CtxUserIDKey, userID)
			c.Set(CtxUserRoleKey, role)
			c.Set(CtxTokenVersionKey, tv)

			return next(c)
		}
	}
}

// SetAuthCookieはログイン・登録完了時に呼ぶ
func SetAuthCookie(c echo.Context, cfg config.Config, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearAuthCookie(c echo.Context, cfg config.Config) {
	clearCookie(c, cfg, AuthCookieName)
}

func clearCookie(c echo.Context, cfg config.Config, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// 登録途中トークン（step1〜step2の間だけ）
func SetDraftCookie(c echo.Context, cfg config.Config, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     DraftCookieName,
		Value:    token,
		Path:     "/auth",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearDraftCookie(c echo.Context, cfg config.Config) {
	c.SetCookie(&http.Cookie{
		Name:     DraftCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ログイン中ならuser_id、ゲストなら0
func UserID(c echo.Context) int64 {
	id, _ := c.Get(CtxUserIDKey).(int64)
	return id
}

func UserRole(c echo.Context) string {
	role, _ := c.Get(CtxUserRoleKey).(string)
	return role
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}

func parseInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		i64, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, err
		}
		return int(i64), nil
	default:
		return 0, errors.New("invalid int")
	}
}
