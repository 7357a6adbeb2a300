package handler

import (
	"net/http"

	"peercart/internal/middleware"
	"peercart/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /support と /about（静的ページ＋問い合わせ）
type SupportHandler struct {
	*Base
	uc *usecase.SupportUsecase
}

func NewSupportHandler(base *Base, uc *usecase.SupportUsecase) *SupportHandler {
	return &SupportHandler{Base: base, uc: uc}
}

type supportPage struct {
	Groups []usecase.FAQGroup
	Form   usecase.ContactForm
	Errors []string
}

func (h *SupportHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/support", h.show)
	e.POST("/support/contact", h.contact, h.csrf.Guard(middleware.CSRFSupport))
	e.GET("/about", h.about)
}

func (h *SupportHandler) contactDefaults(c echo.Context) usecase.ContactForm {
	var f usecase.ContactForm
	if u := currentUser(c); u != nil {
		f.Name = u.FullName()
		f.Email = u.Email
	}
	return f
}

// ?modal=trueならlayoutなしの断片を返す
func (h *SupportHandler) show(c echo.Context) error {
	data := supportPage{Groups: h.uc.FAQ(), Form: h.contactDefaults(c)}
	if c.QueryParam("modal") == "true" {
		return c.Render(http.StatusOK, "fragment_support", data)
	}
	return h.render(c, http.StatusOK, "support", "Help & support", data)
}

func (h *SupportHandler) contact(c echo.Context) error {
	var f usecase.ContactForm
	if err := bind(c, &f); err != nil {
		return err
	}

	if err := h.uc.Contact(c.Request().Context(), middleware.UserID(c), f); err != nil {
		msgs, ok := validationMessages(err)
		if !ok {
			return h.writeError(c, err)
		}
		return h.render(c, http.StatusUnprocessableEntity, "support", "Help & support", supportPage{
			Groups: h.uc.FAQ(),
			Form:   f,
			Errors: msgs,
		})
	}

	h.flash(c, flashSuccess, "Thanks, we have received your message and will reply by email")
	return redirect(c, "/support")
}

func (h *SupportHandler) about(c echo.Context) error {
	return h.render(c, http.StatusOK, "about", "About PeerCart", nil)
}
