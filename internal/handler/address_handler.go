package handler

import (
	"peercart/internal/middleware"
	"peercart/internal/validator"

	"github.com/labstack/echo/v4"
)

// 住所帳は/settings?tab=addressesに表示する

const addressesTab = "/settings?tab=addresses"

func (h *SettingsHandler) createAddress(c echo.Context) error {
	var f validator.AddressForm
	if err := bind(c, &f); err != nil {
		return err
	}

	if _, err := h.addresses.Create(c.Request().Context(), middleware.UserID(c), f); err != nil {
		return h.rerender(c, "addresses", err, func(p *settingsPage) { p.AddressForm = f })
	}
	h.flash(c, flashSuccess, "Address added")
	return redirect(c, addressesTab)
}

func (h *SettingsHandler) updateAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var f validator.AddressForm
	if err := bind(c, &f); err != nil {
		return err
	}

	if err := h.addresses.Update(c.Request().Context(), middleware.UserID(c), id, f); err != nil {
		return h.rerender(c, "addresses", err, func(p *settingsPage) {
			p.AddressForm = f
			p.EditID = id
		})
	}
	h.flash(c, flashSuccess, "Address updated")
	return redirect(c, addressesTab)
}

func (h *SettingsHandler) deleteAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.addresses.Delete(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return h.writeError(c, err)
	}
	h.flash(c, flashSuccess, "Address removed")
	return redirect(c, addressesTab)
}

func (h *SettingsHandler) setDefaultAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.addresses.SetDefault(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return h.writeError(c, err)
	}
	h.flash(c, flashSuccess, "Default address updated")
	return redirect(c, addressesTab)
}
