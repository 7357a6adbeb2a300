package handler

import (
	"net/http"
	"strconv"

	"peercart/internal/config"
	"peercart/internal/domain/model"
	"peercart/internal/middleware"
	repo "peercart/internal/repository"
	"peercart/internal/usecase"
	"peercart/internal/view"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AJAX向けのエラー
type ErrorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

// flashの種類
const (
	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"
)

// 全ページのhandlerが共有する部品
type Base struct {
	cfg      config.Config
	sessions repo.SessionStore
	csrf     *middleware.CSRF
	cart     *usecase.CartUsecase
	messages *usecase.MessageUsecase
	clock    usecase.Clock
	log      *zap.Logger
}

func NewBase(
	cfg config.Config,
	sessions repo.SessionStore,
	csrf *middleware.CSRF,
	cart *usecase.CartUsecase,
	messages *usecase.MessageUsecase,
	clock usecase.Clock,
	log *zap.Logger,
) *Base {
	return &Base{
		cfg:      cfg,
		sessions: sessions,
		csrf:     csrf,
		cart:     cart,
		messages: messages,
		clock:    clock,
		log:      log,
	}
}

var csrfScopes = []string{
	middleware.CSRFLogin,
	middleware.CSRFRegister,
	middleware.CSRFCartAction,
	middleware.CSRFCheckout,
	middleware.CSRFMessage,
	middleware.CSRFSettings,
	middleware.CSRFDashboard,
	middleware.CSRFSupport,
}

func currentUser(c echo.Context) *model.User {
	u, _ := c.Get(middleware.CtxUserKey).(*model.User)
	return u
}

func cartOwner(c echo.Context) usecase.CartOwner {
	return usecase.CartOwner{UserID: middleware.UserID(c), SessionID: middleware.SessionID(c)}
}

// pageはlayoutに渡す共通データを作る（flashはここで消費する）
func (b *Base) page(c echo.Context, title string, data interface{}) view.Page {
	ctx := c.Request().Context()
	sid := middleware.SessionID(c)

	p := view.Page{
		Title:  title,
		Path:   c.Request().URL.Path,
		UserID: middleware.UserID(c),
		CSRF:   make(map[string]string, len(csrfScopes)),
		Data:   data,
	}
	if u := currentUser(c); u != nil {
		p.UserName = u.FullName()
		p.IsSeller = u.IsSeller()
	}

	now := b.clock.Now()
	for _, scope := range csrfScopes {
		tok, err := b.csrf.Issue(sid, scope, now)
		if err != nil {
			b.log.Error("issue csrf token failed", zap.String("scope", scope), zap.Error(err))
			continue
		}
		p.CSRF[scope] = tok
	}

	if sid != "" {
		p.Flash, _ = b.sessions.Pop(ctx, sid, repo.SessionKeyFlashMessage)
		p.FlashType, _ = b.sessions.Pop(ctx, sid, repo.SessionKeyFlashType)
		if p.FlashType == "" {
			p.FlashType = flashInfo
		}
		p.CartCount = b.cartCount(c)
	}
	if p.UserID > 0 {
		p.Unread = b.messages.UnreadCount(ctx, p.UserID)
	}
	return p
}

// カート件数はセッションにキャッシュする。カートを変えたらinvalidateCartCount。
func (b *Base) cartCount(c echo.Context) int64 {
	ctx := c.Request().Context()
	sid := middleware.SessionID(c)

	if v, err := b.sessions.Get(ctx, sid, repo.SessionKeyCartCount); err == nil && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}

	n, err := b.cart.Count(ctx, cartOwner(c))
	if err != nil {
		b.log.Warn("cart count failed", zap.Error(err))
		return 0
	}
	if err := b.sessions.Set(ctx, sid, repo.SessionKeyCartCount, strconv.FormatInt(n, 10)); err != nil {
		b.log.Warn("store cart count failed", zap.Error(err))
	}
	return n
}

func (b *Base) invalidateCartCount(c echo.Context) {
	if err := b.sessions.Delete(c.Request().Context(), middleware.SessionID(c), repo.SessionKeyCartCount); err != nil {
		b.log.Warn("clear cart count failed", zap.Error(err))
	}
}

func (b *Base) render(c echo.Context, status int, name string, title string, data interface{}) error {
	return c.Render(status, name, b.page(c, title, data))
}

// flashは次に表示するページで1回だけ出す
func (b *Base) flash(c echo.Context, typ string, msg string) {
	ctx := c.Request().Context()
	sid := middleware.SessionID(c)
	if err := b.sessions.Set(ctx, sid, repo.SessionKeyFlashMessage, msg); err != nil {
		b.log.Warn("store flash failed", zap.Error(err))
		return
	}
	_ = b.sessions.Set(ctx, sid, repo.SessionKeyFlashType, typ)
}

// POSTの後は303で戻す
func redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusSeeOther, to)
}

func wantsJSON(c echo.Context) bool {
	return c.Request().Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// writeErrorはusecaseのエラーをechoのHTTPErrorにする（画面はserverのエラーハンドラが描く）
func (b *Base) writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if wantsJSON(c) {
			return c.JSON(he.Status, ErrorResponse{Error: he.Message})
		}
		return echo.NewHTTPError(he.Status, he.Message)
	}
	if ve, ok := usecase.AsValidationErrors(err); ok {
		if wantsJSON(c) {
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation error", Errors: ve})
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ve.Error())
	}

	b.log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
	if wantsJSON(c) {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong")
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

func formInt(c echo.Context, name string) int64 {
	n, _ := strconv.ParseInt(c.FormValue(name), 10, 64)
	return n
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}

func validationMessages(err error) ([]string, bool) {
	ve, ok := usecase.AsValidationErrors(err)
	if !ok {
		return nil, false
	}
	return ve, true
}

func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	return nil
}

// 4xxはflashにして戻す。5xxと権限エラーはエラーページ。
func (b *Base) flashOrFail(c echo.Context, err error, back string) error {
	if msgs, ok := validationMessages(err); ok {
		b.flash(c, flashError, msgs[0])
		return redirect(c, back)
	}
	he, ok := usecase.AsHTTPError(err)
	if ok && he.Status == http.StatusBadRequest {
		b.flash(c, flashError, he.Message)
		return redirect(c, back)
	}
	return b.writeError(c, err)
}
