package handler

import (
	"fmt"
	"net/http"
	"strings"

	"peercart/internal/middleware"
	repo "peercart/internal/repository"
	"peercart/internal/usecase"
	"peercart/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /checkout（ログイン必須）
type CheckoutHandler struct {
	*Base
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(base *Base, uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{Base: base, uc: uc}
}

type checkoutPage struct {
	usecase.CheckoutPage
	Form         usecase.CheckoutInput
	Errors       []string
	DiscountCode string
	Provinces    []string
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/checkout", middleware.RequireLogin(h.sessions, h.log))
	g.GET("", h.show)
	g.POST("", h.submit, h.csrf.Guard(middleware.CSRFCheckout))
}

func readAddress(c echo.Context, prefix string) validator.AddressForm {
	return validator.AddressForm{
		FullName:    c.FormValue(prefix + "full_name"),
		Phone:       c.FormValue(prefix + "phone"),
		HouseNumber: c.FormValue(prefix + "house_number"),
		StreetName:  c.FormValue(prefix + "street_name"),
		Suburb:      c.FormValue(prefix + "suburb"),
		City:        c.FormValue(prefix + "city"),
		Province:    c.FormValue(prefix + "province"),
		PostalCode:  c.FormValue(prefix + "postal_code"),
	}
}

func (h *CheckoutHandler) discountCode(c echo.Context) string {
	code, err := h.sessions.Get(c.Request().Context(), middleware.SessionID(c), repo.SessionKeyDiscountCode)
	if err != nil {
		h.log.Warn("read discount code failed", zap.Error(err))
	}
	return code
}

// prepareは入力画面を組み立てる。カートに問題があればカート画面へ戻す（okがfalse）。
func (h *CheckoutHandler) prepare(c echo.Context) (checkoutPage, bool, error) {
	code := h.discountCode(c)
	p, err := h.uc.Prepare(c.Request().Context(), middleware.UserID(c), code)
	if err != nil {
		return checkoutPage{}, false, err
	}
	if len(p.Problems) > 0 {
		if err := h.sessions.Set(c.Request().Context(), middleware.SessionID(c), repo.SessionKeyCheckoutErrors, strings.Join(p.Problems, "\n")); err != nil {
			h.log.Warn("store checkout errors failed", zap.Error(err))
		}
		return checkoutPage{}, false, nil
	}

	return checkoutPage{
		CheckoutPage: p,
		Form:         usecase.CheckoutInput{Shipping: p.Prefill, IdempotencyKey: p.IdempotencyKey},
		DiscountCode: code,
		Provinces:    validator.Provinces,
	}, true, nil
}

func (h *CheckoutHandler) show(c echo.Context) error {
	data, ok, err := h.prepare(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if !ok {
		return redirect(c, "/cart")
	}
	return h.render(c, http.StatusOK, "checkout", "Checkout", data)
}

func (h *CheckoutHandler) submit(c echo.Context) error {
	in := usecase.CheckoutInput{
		Shipping:         readAddress(c, "shipping_"),
		BillingDifferent: validator.Checked(c.FormValue("billing_different")),
		Billing:          readAddress(c, "billing_"),
		AcceptTerms:      validator.Checked(c.FormValue("terms")),
		SkipSaveAddress:  validator.Checked(c.FormValue("skip_save_address")),
		Notes:            strings.TrimSpace(c.FormValue("notes")),
		IdempotencyKey:   c.FormValue("idempotency_key"),
		DiscountCode:     h.discountCode(c),
	}

	res, err := h.uc.Submit(c.Request().Context(), middleware.UserID(c), in)
	if err != nil {
		return h.writeError(c, err)
	}

	if res.State.Failed() {
		return h.showErrors(c, in, res.Errors)
	}

	if err := h.sessions.Delete(c.Request().Context(), middleware.SessionID(c), repo.SessionKeyDiscountCode, repo.SessionKeyCheckoutErrors); err != nil {
		h.log.Warn("clear checkout session failed", zap.Error(err))
	}
	h.invalidateCartCount(c)
	h.flash(c, flashSuccess, fmt.Sprintf("Thank you! Your order %s has been placed", res.Order.OrderNumber))
	return redirect(c, fmt.Sprintf("/dashboard/orders/%d", res.Order.ID))
}

// 入力画面に戻す（カートに問題があればカート画面へ）
func (h *CheckoutHandler) showErrors(c echo.Context, in usecase.CheckoutInput, errs []string) error {
	data, ok, err := h.prepare(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if !ok {
		return redirect(c, "/cart")
	}
	if in.IdempotencyKey != "" {
		data.IdempotencyKey = in.IdempotencyKey
	}
	data.Form = in
	data.Form.IdempotencyKey = data.IdempotencyKey
	data.Errors = errs
	return h.render(c, http.StatusUnprocessableEntity, "checkout", "Checkout", data)
}
