package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPhone(t *testing.T) {
	cases := map[string]bool{
		"0821234567":       true,
		"+27 82 123 4567":  true,
		"(082) 123-4567":   true,
		"082123456":        false,
		"1234567890123456": false,
		"":                 false,
		"abc":              false,
		"123456789012345":  true,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsPhone(in), in)
	}
}

func TestIsPostalCode(t *testing.T) {
	assert.True(t, IsPostalCode("2196"))
	assert.True(t, IsPostalCode(" 0001 "))
	assert.False(t, IsPostalCode("219"))
	assert.False(t, IsPostalCode("21965"))
	assert.False(t, IsPostalCode("21a6"))
}

func TestIsProvince(t *testing.T) {
	assert.True(t, IsProvince("Gauteng"))
	assert.True(t, IsProvince("kwazulu-natal"))
	assert.False(t, IsProvince("Ontario"))
	assert.False(t, IsProvince(""))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("lerato@example.co.za"))
	assert.False(t, IsEmail("Lerato <lerato@example.co.za>"))
	assert.False(t, IsEmail("lerato@"))
	assert.False(t, IsEmail("lerato@localhost"))
	assert.False(t, IsEmail(""))
}

func TestChecked(t *testing.T) {
	for _, v := range []string{"1", "on", "true", "YES"} {
		assert.True(t, Checked(v), v)
	}
	for _, v := range []string{"", "0", "off", "no"} {
		assert.False(t, Checked(v), v)
	}
}

func validAddress() AddressForm {
	return AddressForm{
		FullName:    "Lerato Mokoena",
		Phone:       "082 123 4567",
		HouseNumber: "12",
		StreetName:  "Main Street",
		Suburb:      "Rosebank",
		City:        "Johannesburg",
		Province:    "Gauteng",
		PostalCode:  "2196",
	}
}

func TestValidateAddress_Valid(t *testing.T) {
	assert.Empty(t, ValidateAddress(validAddress(), "Shipping"))
	assert.NoError(t, ValidateAddress(validAddress(), "Shipping").Err())
}

func TestValidateAddress_CollectsEveryProblem(t *testing.T) {
	f := validAddress()
	f.FullName = "  "
	f.Phone = "12345"
	f.PostalCode = "21"
	f.Province = "Nowhere"

	errs := ValidateAddress(f, "Shipping")
	assert.Equal(t, Errors{
		"Shipping full name is required",
		"Shipping phone must be 10-15 digits",
		"Shipping province is not valid",
		"Shipping postal code must be 4 digits",
	}, errs)
	assert.Error(t, errs.Err())
}

func TestValidateAddress_EmptyFormReportsRequired(t *testing.T) {
	errs := ValidateAddress(AddressForm{}, "Billing")
	assert.Len(t, errs, 8)
	assert.Contains(t, errs, "Billing postal code is required")
}
