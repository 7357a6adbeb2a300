package handler

import (
	"net/http"
	"strconv"

	"peercart/internal/domain/model"
	"peercart/internal/middleware"
	"peercart/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 出品の一覧・詳細（公開）と出品者の編集
type ListingHandler struct {
	*Base
	uc *usecase.ListingUsecase
}

// DI
func NewListingHandler(base *Base, uc *usecase.ListingUsecase) *ListingHandler {
	return &ListingHandler{Base: base, uc: uc}
}

type listingPage struct {
	Listing  model.ListingWithSeller
	IsOwner  bool
	MaxQty   []int64
	CanOrder bool
}

type listingFormPage struct {
	ID         int64
	Form       usecase.ListingForm
	Errors     []string
	Categories []string
	Conditions []string
}

func (h *ListingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.browse)
	e.GET("/listings", h.browse)
	e.GET("/listings/:id", h.detail)

	//出品者のみ
	seller := e.Group("/listings",
		middleware.RequireLogin(h.sessions, h.log),
		middleware.SellerRoleGuard(),
	)
	seller.GET("/new", h.newForm)
	seller.POST("", h.create, h.csrf.Guard(middleware.CSRFDashboard))
	seller.GET("/:id/edit", h.editForm)
	seller.POST("/:id", h.update, h.csrf.Guard(middleware.CSRFDashboard))
	seller.POST("/:id/stock", h.updateStock, h.csrf.Guard(middleware.CSRFDashboard))
	seller.POST("/:id/status", h.setStatus, h.csrf.Guard(middleware.CSRFDashboard))
}

func (h *ListingHandler) browse(c echo.Context) error {
	var in usecase.BrowseInput
	if err := bind(c, &in); err != nil {
		return err
	}

	out, err := h.uc.Browse(c.Request().Context(), in)
	if err != nil {
		return h.writeError(c, err)
	}
	return h.render(c, http.StatusOK, "listings", "Browse listings", struct {
		usecase.BrowseOutput
		Categories []string
	}{out, usecase.ListingCategories})
}

func (h *ListingHandler) detail(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	viewer := middleware.UserID(c)

	l, err := h.uc.Detail(c.Request().Context(), id, viewer)
	if err != nil {
		return h.writeError(c, err)
	}

	data := listingPage{
		Listing: l,
		IsOwner: viewer > 0 && viewer == l.SellerID,
	}
	data.CanOrder = !data.IsOwner && l.IsAvailable() && l.Quantity > 0
	for i := int64(1); i <= l.Quantity && i <= 10; i++ {
		data.MaxQty = append(data.MaxQty, i)
	}
	return h.render(c, http.StatusOK, "listing", l.Title, data)
}

func (h *ListingHandler) newForm(c echo.Context) error {
	return h.renderForm(c, http.StatusOK, 0, usecase.ListingForm{Quantity: "1"}, nil)
}

func (h *ListingHandler) renderForm(c echo.Context, status int, id int64, f usecase.ListingForm, errs []string) error {
	title := "New listing"
	if id > 0 {
		title = "Edit listing"
	}
	return h.render(c, status, "listing_form", title, listingFormPage{
		ID:         id,
		Form:       f,
		Errors:     errs,
		Categories: usecase.ListingCategories,
		Conditions: usecase.ListingConditions,
	})
}

func (h *ListingHandler) create(c echo.Context) error {
	var f usecase.ListingForm
	if err := bind(c, &f); err != nil {
		return err
	}

	l, err := h.uc.Create(c.Request().Context(), middleware.UserID(c), f)
	if err != nil {
		if msgs, ok := validationMessages(err); ok {
			return h.renderForm(c, http.StatusUnprocessableEntity, 0, f, msgs)
		}
		return h.writeError(c, err)
	}

	h.flash(c, flashSuccess, "Your listing is live")
	return redirect(c, "/listings/"+strconv.FormatInt(l.ID, 10))
}

func (h *ListingHandler) editForm(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	sellerID := middleware.UserID(c)

	l, err := h.uc.Detail(c.Request().Context(), id, sellerID)
	if err != nil {
		return h.writeError(c, err)
	}
	if l.SellerID != sellerID {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	return h.renderForm(c, http.StatusOK, id, usecase.ListingForm{
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		Condition:   l.Condition,
		Price:       l.Price.StringFixed(2),
		Quantity:    strconv.FormatInt(l.Quantity, 10),
		ImageURL:    l.ImageURL,
	}, nil)
}

func (h *ListingHandler) update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var f usecase.ListingForm
	if err := bind(c, &f); err != nil {
		return err
	}

	if err := h.uc.Update(c.Request().Context(), middleware.UserID(c), id, f); err != nil {
		if msgs, ok := validationMessages(err); ok {
			return h.renderForm(c, http.StatusUnprocessableEntity, id, f, msgs)
		}
		return h.writeError(c, err)
	}

	h.flash(c, flashSuccess, "Listing updated")
	return redirect(c, "/dashboard?tab=listings")
}

func (h *ListingHandler) updateStock(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	qty, err := strconv.ParseInt(c.FormValue("quantity"), 10, 64)
	if err != nil || qty < 0 {
		h.flash(c, flashError, "Quantity must be 0 or more")
		return redirect(c, "/dashboard?tab=listings")
	}

	if err := h.uc.UpdateStock(c.Request().Context(), middleware.UserID(c), id, qty, c.FormValue("reason")); err != nil {
		return h.flashOrFail(c, err, "/dashboard?tab=listings")
	}
	h.flash(c, flashSuccess, "Stock updated")
	return redirect(c, "/dashboard?tab=listings")
}

func (h *ListingHandler) setStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	status := model.ListingStatus(c.FormValue("status"))
	if err := h.uc.SetStatus(c.Request().Context(), middleware.UserID(c), id, status); err != nil {
		return h.flashOrFail(c, err, "/dashboard?tab=listings")
	}
	h.flash(c, flashSuccess, "Listing status updated")
	return redirect(c, "/dashboard?tab=listings")
}
