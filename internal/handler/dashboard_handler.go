package handler

import (
	"fmt"
	"net/http"

	"peercart/internal/domain/model"
	"peercart/internal/middleware"
	"peercart/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /dashboard（買い手の注文履歴、出品者の出品・売上）
type DashboardHandler struct {
	*Base
	orders   *usecase.OrderUsecase
	listings *usecase.ListingUsecase
}

func NewDashboardHandler(base *Base, orders *usecase.OrderUsecase, listings *usecase.ListingUsecase) *DashboardHandler {
	return &DashboardHandler{Base: base, orders: orders, listings: listings}
}

type dashboardPage struct {
	Tab      string
	Orders   usecase.OrderPage
	Sales    usecase.SalesPage
	Listings []model.Listing
	Activity usecase.ActivityPage
	Pages    int
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/dashboard", middleware.RequireLogin(h.sessions, h.log))
	g.GET("", h.show)
	g.GET("/orders/:id", h.orderDetail)
	g.POST("/orders/:id/status", h.updateStatus, middleware.SellerRoleGuard(), h.csrf.Guard(middleware.CSRFDashboard))
}

func pages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func (h *DashboardHandler) show(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)
	isSeller := middleware.UserRole(c) == string(model.UserTypeSeller)

	tab := c.QueryParam("tab")
	switch tab {
	case "orders":
	case "listings", "sales", "activity":
		if !isSeller {
			tab = "orders"
		}
	default:
		tab = "orders"
		if isSeller {
			tab = "listings"
		}
	}

	data := dashboardPage{Tab: tab}
	var err error
	switch tab {
	case "orders":
		data.Orders, err = h.orders.BuyerOrders(ctx, userID, queryInt(c, "page"), 0)
		data.Pages = pages(data.Orders.Total, data.Orders.Limit)
	case "sales":
		data.Sales, err = h.orders.SellerSales(ctx, userID, queryInt(c, "page"), 0)
		data.Pages = pages(data.Sales.Total, data.Sales.Limit)
	case "listings":
		data.Listings, err = h.listings.SellerListings(ctx, userID)
	case "activity":
		data.Activity, err = h.orders.SellerActivity(ctx, userID, usecase.ActivityQuery{
			Resource:   c.QueryParam("resource"),
			ResourceID: int64(queryInt(c, "resource_id")),
			Action:     c.QueryParam("action"),
			From:       c.QueryParam("from"),
			To:         c.QueryParam("to"),
			Page:       queryInt(c, "page"),
		})
		if _, bad := usecase.AsValidationErrors(err); bad {
			return h.flashOrFail(c, err, "/dashboard?tab=activity")
		}
		data.Pages = pages(data.Activity.Total, data.Activity.Limit)
	}
	if err != nil {
		return h.writeError(c, err)
	}
	return h.render(c, http.StatusOK, "dashboard", "Dashboard", data)
}

func (h *DashboardHandler) orderDetail(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	d, err := h.orders.OrderDetail(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return h.render(c, http.StatusOK, "order", "Order "+d.Order.OrderNumber, d)
}

func (h *DashboardHandler) updateStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	back := fmt.Sprintf("/dashboard/orders/%d", id)

	if err := h.orders.UpdateStatus(c.Request().Context(), middleware.UserID(c), id, c.FormValue("status")); err != nil {
		return h.flashOrFail(c, err, back)
	}
	h.flash(c, flashSuccess, "Order status updated")
	return redirect(c, back)
}
