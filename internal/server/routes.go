package server

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h Handlers) {
	h.Listing.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e)
	h.Checkout.RegisterRoutes(e)
	h.Dashboard.RegisterRoutes(e)
	h.Message.RegisterRoutes(e)
	h.Settings.RegisterRoutes(e)
	h.Support.RegisterRoutes(e)
}
