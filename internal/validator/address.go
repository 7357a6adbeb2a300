package validator

import (
	"strings"

	"peercart/internal/domain/model"
)

// 住所フォーム（チェックアウト・住所帳）
type AddressForm struct {
	FullName    string `form:"full_name"`
	Phone       string `form:"phone"`
	HouseNumber string `form:"house_number"`
	StreetName  string `form:"street_name"`
	Suburb      string `form:"suburb"`
	City        string `form:"city"`
	Province    string `form:"province"`
	PostalCode  string `form:"postal_code"`
}

// 前後の空白を落とす
func (f AddressForm) Trimmed() AddressForm {
	return AddressForm{
		FullName:    strings.TrimSpace(f.FullName),
		Phone:       strings.TrimSpace(f.Phone),
		HouseNumber: strings.TrimSpace(f.HouseNumber),
		StreetName:  strings.TrimSpace(f.StreetName),
		Suburb:      strings.TrimSpace(f.Suburb),
		City:        strings.TrimSpace(f.City),
		Province:    strings.TrimSpace(f.Province),
		PostalCode:  strings.TrimSpace(f.PostalCode),
	}
}

func (f AddressForm) Snapshot() model.AddressSnapshot {
	t := f.Trimmed()
	return model.AddressSnapshot{
		FullName:    t.FullName,
		Phone:       t.Phone,
		HouseNumber: t.HouseNumber,
		StreetName:  t.StreetName,
		Suburb:      t.Suburb,
		City:        t.City,
		Province:    t.Province,
		PostalCode:  t.PostalCode,
	}
}

func FormFromSnapshot(s model.AddressSnapshot) AddressForm {
	return AddressForm{
		FullName:    s.FullName,
		Phone:       s.Phone,
		HouseNumber: s.HouseNumber,
		StreetName:  s.StreetName,
		Suburb:      s.Suburb,
		City:        s.City,
		Province:    s.Province,
		PostalCode:  s.PostalCode,
	}
}

// ValidateAddressは全項目必須。labelはメッセージの先頭（"Shipping"など）。
func ValidateAddress(f AddressForm, label string) Errors {
	var errs Errors
	f = f.Trimmed()

	errs.Require(f.FullName, label+" full name is required")
	if errs.Require(f.Phone, label+" phone is required") && !IsPhone(f.Phone) {
		errs.Add(label + " phone must be 10-15 digits")
	}
	errs.Require(f.HouseNumber, label+" house number is required")
	errs.Require(f.StreetName, label+" street name is required")
	errs.Require(f.Suburb, label+" suburb is required")
	errs.Require(f.City, label+" city is required")
	if errs.Require(f.Province, label+" province is required") && !IsProvince(f.Province) {
		errs.Add(label + " province is not valid")
	}
	if errs.Require(f.PostalCode, label+" postal code is required") && !IsPostalCode(f.PostalCode) {
		errs.Add(label + " postal code must be 4 digits")
	}

	return errs
}
