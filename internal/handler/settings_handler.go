package handler

import (
	"net/http"

	"peercart/internal/domain/model"
	"peercart/internal/middleware"
	"peercart/internal/usecase"
	auth "peercart/internal/usecase/auth_usecase"
	"peercart/internal/validator"

	"github.com/labstack/echo/v4"
)

// /settings（プロフィール・パスワード・通知設定・住所帳）
type SettingsHandler struct {
	*Base
	uc        *usecase.SettingsUsecase
	addresses *usecase.AddressUsecase
	tokens    *auth.TokenIssuer
}

func NewSettingsHandler(base *Base, uc *usecase.SettingsUsecase, addresses *usecase.AddressUsecase, tokens *auth.TokenIssuer) *SettingsHandler {
	return &SettingsHandler{Base: base, uc: uc, addresses: addresses, tokens: tokens}
}

type settingsPage struct {
	Tab string
	usecase.SettingsPage
	Profile     usecase.ProfileForm
	Addresses   []model.Address
	AddressForm validator.AddressForm
	EditID      int64
	Errors      []string
	Provinces   []string
}

var settingsTabs = map[string]bool{"profile": true, "security": true, "preferences": true, "addresses": true}

func (h *SettingsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/settings", middleware.RequireLogin(h.sessions, h.log))
	guard := h.csrf.Guard(middleware.CSRFSettings)

	g.GET("", h.show)
	g.POST("/profile", h.updateProfile, guard)
	g.POST("/password", h.changePassword, guard)
	g.POST("/preferences", h.updatePreferences, guard)

	g.POST("/addresses", h.createAddress, guard)
	g.POST("/addresses/:id", h.updateAddress, guard)
	g.POST("/addresses/:id/delete", h.deleteAddress, guard)
	g.POST("/addresses/:id/default", h.setDefaultAddress, guard)
}

// loadは表示用の共通データ。フォーム再表示のときは呼び出し側で上書きする。
func (h *SettingsHandler) load(c echo.Context, tab string) (settingsPage, error) {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	sp, err := h.uc.Load(ctx, userID)
	if err != nil {
		return settingsPage{}, err
	}
	addrs, err := h.addresses.List(ctx, userID)
	if err != nil {
		return settingsPage{}, err
	}

	return settingsPage{
		Tab:          tab,
		SettingsPage: sp,
		Profile: usecase.ProfileForm{
			Name:                 sp.User.Name,
			Surname:              sp.User.Surname,
			Phone:                sp.User.Phone,
			BusinessName:         sp.User.BusinessName,
			BusinessRegistration: sp.User.BusinessRegistration,
		},
		Addresses: addrs,
		Provinces: validator.Provinces,
	}, nil
}

func (h *SettingsHandler) show(c echo.Context) error {
	tab := c.QueryParam("tab")
	if !settingsTabs[tab] {
		tab = "profile"
	}

	data, err := h.load(c, tab)
	if err != nil {
		return h.writeError(c, err)
	}

	//住所の編集
	if id := int64(queryInt(c, "edit")); id > 0 && tab == "addresses" {
		for _, a := range data.Addresses {
			if a.ID == id {
				data.EditID = id
				data.AddressForm = validator.FormFromSnapshot(a.Snapshot())
			}
		}
	}
	return h.render(c, http.StatusOK, "settings", "Settings", data)
}

// 入力エラーならそのタブを再表示、それ以外はエラーページ
func (h *SettingsHandler) rerender(c echo.Context, tab string, err error, fill func(*settingsPage)) error {
	msgs, ok := validationMessages(err)
	if !ok {
		return h.writeError(c, err)
	}
	data, lerr := h.load(c, tab)
	if lerr != nil {
		return h.writeError(c, lerr)
	}
	data.Errors = msgs
	if fill != nil {
		fill(&data)
	}
	return h.render(c, http.StatusUnprocessableEntity, "settings", "Settings", data)
}

func (h *SettingsHandler) updateProfile(c echo.Context) error {
	var f usecase.ProfileForm
	if err := bind(c, &f); err != nil {
		return err
	}

	if err := h.uc.UpdateProfile(c.Request().Context(), middleware.UserID(c), f); err != nil {
		return h.rerender(c, "profile", err, func(p *settingsPage) { p.Profile = f })
	}
	h.flash(c, flashSuccess, "Profile saved")
	return redirect(c, "/settings?tab=profile")
}

func (h *SettingsHandler) changePassword(c echo.Context) error {
	var f usecase.PasswordForm
	if err := bind(c, &f); err != nil {
		return err
	}

	u, err := h.uc.ChangePassword(c.Request().Context(), middleware.UserID(c), f)
	if err != nil {
		return h.rerender(c, "security", err, nil)
	}

	//他の端末は切れる。今の端末は新しいtvで発行し直す。
	token, exp, err := h.tokens.IssueAuth(u, h.clock.Now())
	if err != nil {
		return h.writeError(c, err)
	}
	middleware.SetAuthCookie(c, h.cfg, token, exp)

	h.flash(c, flashSuccess, "Password changed. Other devices have been signed out")
	return redirect(c, "/settings?tab=security")
}

func (h *SettingsHandler) updatePreferences(c echo.Context) error {
	var f usecase.PreferencesForm
	if err := bind(c, &f); err != nil {
		return err
	}

	if err := h.uc.UpdatePreferences(c.Request().Context(), middleware.UserID(c), f); err != nil {
		return h.writeError(c, err)
	}
	h.flash(c, flashSuccess, "Preferences saved")
	return redirect(c, "/settings?tab=preferences")
}
