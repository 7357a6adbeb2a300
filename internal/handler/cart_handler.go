package handler

import (
	"net/http"
	"strings"

	"peercart/internal/middleware"
	repo "peercart/internal/repository"
	"peercart/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// /cartのHTTP（ゲストもログイン中も同じ画面）
type CartHandler struct {
	*Base
}

// DI
func NewCartHandler(base *Base) *CartHandler {
	return &CartHandler{Base: base}
}

type cartPage struct {
	Cart         usecase.CartView
	Problems     []string
	DiscountCode string
}

// AJAXの返却
type cartResponse struct {
	Count      int64  `json:"count"`
	Subtotal   string `json:"subtotal"`
	GrandTotal string `json:"grand_total"`
	Message    string `json:"message,omitempty"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/cart", h.getCart)
	e.POST("/cart", h.postCart, h.csrf.Guard(middleware.CSRFCartAction))
}

// チェックアウトから戻されたときのエラーは改行区切りでセッションに入っている
func splitProblems(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return strings.Split(v, "\n")
}

func (h *CartHandler) getCart(c echo.Context) error {
	ctx := c.Request().Context()
	sid := middleware.SessionID(c)

	view, err := h.cart.Load(ctx, cartOwner(c))
	if err != nil {
		return h.writeError(c, err)
	}

	raw, _ := h.sessions.Pop(ctx, sid, repo.SessionKeyCheckoutErrors)
	code, _ := h.sessions.Get(ctx, sid, repo.SessionKeyDiscountCode)

	return h.render(c, http.StatusOK, "cart", "Your cart", cartPage{
		Cart:         view,
		Problems:     splitProblems(raw),
		DiscountCode: code,
	})
}

// POST /cart  action=add|update|remove|clear|discount
func (h *CartHandler) postCart(c echo.Context) error {
	ctx := c.Request().Context()
	owner := cartOwner(c)
	listingID := formInt(c, "listing_id")

	var (
		err error
		msg string
	)
	switch c.FormValue("action") {
	case "add":
		qty := formInt(c, "quantity")
		if qty == 0 {
			qty = 1
		}
		err = h.cart.Add(ctx, owner, listingID, qty)
		msg = "Added to your cart"
	case "update":
		err = h.cart.Update(ctx, owner, listingID, formInt(c, "quantity"))
		msg = "Cart updated"
	case "remove":
		err = h.cart.Remove(ctx, owner, listingID)
		msg = "Item removed"
	case "clear":
		err = h.cart.Clear(ctx, owner)
		msg = "Cart cleared"
	case "discount":
		err = h.applyDiscount(c)
		msg = "Discount code saved, it will be applied at checkout"
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown cart action")
	}
	h.invalidateCartCount(c)

	if wantsJSON(c) {
		if err != nil {
			return h.writeError(c, err)
		}
		return h.cartJSON(c, owner, msg)
	}

	back := middleware.SafeRedirect(c.FormValue("return_to"))
	if back == "/" {
		back = "/cart"
	}
	if err != nil {
		he, ok := usecase.AsHTTPError(err)
		if !ok || he.Status >= http.StatusInternalServerError {
			return h.writeError(c, err)
		}
		h.flash(c, flashError, he.Message)
		return redirect(c, back)
	}
	h.flash(c, flashSuccess, msg)
	return redirect(c, back)
}

func (h *CartHandler) applyDiscount(c echo.Context) error {
	ctx := c.Request().Context()
	sid := middleware.SessionID(c)

	code := strings.TrimSpace(c.FormValue("discount_code"))
	if code == "" {
		return h.sessions.Delete(ctx, sid, repo.SessionKeyDiscountCode)
	}
	if len(code) > 50 {
		return usecase.NewHTTPError(http.StatusBadRequest, "Discount code is too long")
	}
	return h.sessions.Set(ctx, sid, repo.SessionKeyDiscountCode, code)
}

func (h *CartHandler) cartJSON(c echo.Context, owner usecase.CartOwner, msg string) error {
	view, err := h.cart.Load(c.Request().Context(), owner)
	if err != nil {
		return h.writeError(c, err)
	}
	h.log.Debug("cart updated via ajax", zap.Int64("items", view.ItemCount))

	return c.JSON(http.StatusOK, cartResponse{
		Count:      view.ItemCount,
		Subtotal:   money(view.Totals.Subtotal),
		GrandTotal: money(view.Totals.GrandTotal),
		Message:    msg,
	})
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
