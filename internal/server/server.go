package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"peercart/internal/config"
	"peercart/internal/handler"
	"peercart/internal/middleware"
	"peercart/internal/repository"
	"peercart/internal/view"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// DIで作ったhandler一式
type Handlers struct {
	Auth      *handler.AuthHandler
	Listing   *handler.ListingHandler
	Cart      *handler.CartHandler
	Checkout  *handler.CheckoutHandler
	Dashboard *handler.DashboardHandler
	Message   *handler.MessageHandler
	Settings  *handler.SettingsHandler
	Support   *handler.SupportHandler
}

// Newはecho本体を組み立てる（ミドルウェアの順番に注意）
func New(cfg config.Config, users repository.UserRepository, renderer *view.Renderer, h Handlers, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "same-origin",
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.Session(cfg))
	e.Use(middleware.AuthJWT(cfg))
	e.Use(middleware.TokenVersionGuard(cfg, users, log))
	e.Use(middleware.RequestLogger(log))

	RegisterRoutes(e, h)
	return e
}

type errorPage struct {
	Code    int
	Message string
}

// ステータスに応じてエラーページを描く。401はログイン画面へ。
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "Something went wrong"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		} else {
			log.Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		}

		if code == http.StatusUnauthorized {
			_ = c.Redirect(http.StatusSeeOther, "/auth?mode=login")
			return
		}
		if code == http.StatusNotFound {
			msg = "We could not find that page"
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		if rerr := c.Render(code, "error", view.Page{
			Title:  http.StatusText(code),
			UserID: middleware.UserID(c),
			Data:   errorPage{Code: code, Message: msg},
		}); rerr != nil {
			log.Error("render error page failed", zap.Error(rerr))
			_ = c.String(code, msg)
		}
	}
}

// Startは止まるまでブロックする。ctxが終わったらgracefulに止める。
func Start(ctx context.Context, e *echo.Echo, addr string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("http server shutting down")
	return e.Shutdown(shutdownCtx)
}
