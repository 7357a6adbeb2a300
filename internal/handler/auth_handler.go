package handler

import (
	"errors"
	"net/http"

	"peercart/internal/domain/model"
	"peercart/internal/middleware"
	repo "peercart/internal/repository"
	auth "peercart/internal/usecase/auth_usecase"
	"peercart/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /auth（ログイン・2ステップ会員登録・ログアウト）
type AuthHandler struct {
	*Base
	register *auth.RegistrationUsecase
	login    *auth.LoginUsecase
}

// DI
func NewAuthHandler(base *Base, register *auth.RegistrationUsecase, login *auth.LoginUsecase) *AuthHandler {
	return &AuthHandler{Base: base, register: register, login: login}
}

type authPage struct {
	Mode      string
	Step      int
	Redirect  string
	Errors    []string
	Login     auth.LoginInput
	StepOne   auth.StepOneInput
	StepTwo   auth.StepTwoInput
	Draft     model.RegistrationDraft
	Provinces []string
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth")

	g.GET("", h.show)
	g.POST("/login", h.postLogin, h.csrf.Guard(middleware.CSRFLogin))
	g.POST("/register", h.postStepOne, h.csrf.Guard(middleware.CSRFRegister))
	g.POST("/register/details", h.postStepTwo, h.csrf.Guard(middleware.CSRFRegister))
	g.POST("/register/restart", h.restart, h.csrf.Guard(middleware.CSRFRegister))
	g.POST("/logout", h.logout, h.csrf.Guard(middleware.CSRFLogin))
	g.POST("/logout-all", h.logoutAll, middleware.RequireLogin(h.sessions, h.log), h.csrf.Guard(middleware.CSRFSettings))
}

func draftToken(c echo.Context) string {
	ck, err := c.Cookie(middleware.DraftCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

// GET /auth?mode=login|register&redirect=...
func (h *AuthHandler) show(c echo.Context) error {
	if middleware.UserID(c) > 0 {
		return redirect(c, "/dashboard")
	}

	data := authPage{
		Mode:      "login",
		Step:      1,
		Redirect:  middleware.SafeRedirect(c.QueryParam("redirect")),
		Provinces: validator.Provinces,
	}
	if c.QueryParam("redirect") != "" {
		if err := h.sessions.Set(c.Request().Context(), middleware.SessionID(c), repo.SessionKeyRedirectURL, data.Redirect); err != nil {
			h.log.Warn("store redirect url failed", zap.Error(err))
		}
	}

	if c.QueryParam("mode") != "register" {
		return h.render(c, http.StatusOK, "auth", "Log in", data)
	}

	data.Mode = "register"
	if tok := draftToken(c); tok != "" {
		draft, err := h.register.Draft(c.Request().Context(), tok)
		switch {
		case err == nil:
			data.Step = 2
			data.Draft = draft
		case errors.Is(err, auth.ErrDraftExpired):
			middleware.ClearDraftCookie(c, h.cfg)
			if c.QueryParam("step") == "2" {
				data.Errors = []string{auth.ErrDraftExpired.Error()}
			}
		default:
			return h.writeError(c, err)
		}
	}
	return h.render(c, http.StatusOK, "auth", "Create an account", data)
}

func (h *AuthHandler) postLogin(c echo.Context) error {
	var in auth.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}

	out, err := h.login.Execute(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserInactive) {
			in.Password = ""
			return h.render(c, http.StatusOK, "auth", "Log in", authPage{
				Mode:   "login",
				Step:   1,
				Errors: []string{err.Error()},
				Login:  in,
			})
		}
		return h.writeError(c, err)
	}

	middleware.SetAuthCookie(c, h.cfg, out.Token, out.ExpiresAt)
	target := h.startSession(c, out.User)
	h.flash(c, flashSuccess, "Welcome back, "+out.User.Name)
	return redirect(c, target)
}

// startSessionはsidを作り直し、ゲストカートと戻り先を引き継ぐ
func (h *AuthHandler) startSession(c echo.Context, u model.User) string {
	ctx := c.Request().Context()
	oldSID := middleware.SessionID(c)

	target, _ := h.sessions.Pop(ctx, oldSID, repo.SessionKeyRedirectURL)
	if err := h.cart.MergeGuestCart(ctx, oldSID, u.ID); err != nil {
		h.log.Warn("merge guest cart failed", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	if err := h.sessions.Destroy(ctx, oldSID); err != nil {
		h.log.Warn("destroy guest session failed", zap.Error(err))
	}

	middleware.RotateSession(c, h.cfg)
	c.Set(middleware.CtxUserIDKey, u.ID)
	c.Set(middleware.CtxUserRoleKey, string(u.UserType))

	if target == "" || target == "/" {
		target = "/dashboard"
	}
	return middleware.SafeRedirect(target)
}

func (h *AuthHandler) postStepOne(c echo.Context) error {
	var in auth.StepOneInput
	if err := bind(c, &in); err != nil {
		return err
	}

	out, err := h.register.SubmitStepOne(c.Request().Context(), in)
	if err != nil {
		msgs, ok := validationMessages(err)
		if !ok {
			return h.writeError(c, err)
		}
		in.Password, in.ConfirmPassword = "", ""
		return h.render(c, http.StatusOK, "auth", "Create an account", authPage{
			Mode:    "register",
			Step:    1,
			Errors:  msgs,
			StepOne: in,
		})
	}

	middleware.SetDraftCookie(c, h.cfg, out.DraftToken, out.ExpiresAt)
	return redirect(c, "/auth?mode=register&step=2")
}

func (h *AuthHandler) postStepTwo(c echo.Context) error {
	var in auth.StepTwoInput
	if err := bind(c, &in); err != nil {
		return err
	}

	tok := draftToken(c)
	out, err := h.register.SubmitStepTwo(c.Request().Context(), tok, in)
	if err != nil {
		if errors.Is(err, auth.ErrDraftExpired) {
			middleware.ClearDraftCookie(c, h.cfg)
			h.flash(c, flashError, auth.ErrDraftExpired.Error())
			return redirect(c, "/auth?mode=register")
		}
		msgs, ok := validationMessages(err)
		if !ok {
			return h.writeError(c, err)
		}

		draft, derr := h.register.Draft(c.Request().Context(), tok)
		if derr != nil {
			return h.writeError(c, derr)
		}
		return h.render(c, http.StatusOK, "auth", "Create an account", authPage{
			Mode:      "register",
			Step:      2,
			Errors:    msgs,
			StepTwo:   in,
			Draft:     draft,
			Provinces: validator.Provinces,
		})
	}

	middleware.ClearDraftCookie(c, h.cfg)
	middleware.SetAuthCookie(c, h.cfg, out.AuthToken, out.ExpiresAt)
	target := h.startSession(c, out.User)
	h.flash(c, flashSuccess, "Welcome to PeerCart, "+out.User.Name)
	return redirect(c, target)
}

func (h *AuthHandler) restart(c echo.Context) error {
	if err := h.register.Restart(c.Request().Context(), draftToken(c)); err != nil {
		h.log.Warn("registration restart failed", zap.Error(err))
	}
	middleware.ClearDraftCookie(c, h.cfg)
	return redirect(c, "/auth?mode=register")
}

func (h *AuthHandler) logout(c echo.Context) error {
	h.endSession(c)
	return redirect(c, "/")
}

// 全端末からログアウト（token_versionを進める）
func (h *AuthHandler) logoutAll(c echo.Context) error {
	if err := h.login.LogoutAll(c.Request().Context(), middleware.UserID(c)); err != nil {
		return h.writeError(c, err)
	}
	h.endSession(c)
	h.flash(c, flashInfo, "You have been logged out on all devices")
	return redirect(c, "/auth?mode=login")
}

func (h *AuthHandler) endSession(c echo.Context) {
	if err := h.sessions.Destroy(c.Request().Context(), middleware.SessionID(c)); err != nil {
		h.log.Warn("destroy session failed", zap.Error(err))
	}
	middleware.ClearAuthCookie(c, h.cfg)
	middleware.RotateSession(c, h.cfg)
	c.Set(middleware.CtxUserIDKey, nil)
	c.Set(middleware.CtxUserRoleKey, nil)
}
