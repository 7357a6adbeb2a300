package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s got %s", want, got.String())
}

// 1出品者・2明細（A:100×2, B:50×1）
func exampleLines() []Line {
	return []Line{
		{ListingID: 1, SellerID: 7, Quantity: 2, UnitPrice: d("100")},
		{ListingID: 2, SellerID: 7, Quantity: 1, UnitPrice: d("50")},
	}
}

func TestCheckoutTotals_SingleSellerExample(t *testing.T) {
	got := CheckoutTotals(exampleLines(), "")

	assertMoney(t, "250", got.Subtotal)
	assertMoney(t, "37.50", got.VATAmount)
	assertMoney(t, "54", got.ShippingEstimate)
	assertMoney(t, "0", got.DiscountAmount)
	assertMoney(t, "341.50", got.GrandTotal)
}

func TestCheckoutTotals_DiscountCodeTakesTenPercent(t *testing.T) {
	got := CheckoutTotals(exampleLines(), "WELCOME")

	assertMoney(t, "34.15", got.DiscountAmount)
	assertMoney(t, "307.35", got.GrandTotal)
}

func TestCheckoutTotals_BlankDiscountCodeIgnored(t *testing.T) {
	got := CheckoutTotals(exampleLines(), "   ")
	assertMoney(t, "0", got.DiscountAmount)
}

func TestCartTotals_SingleSellerExample(t *testing.T) {
	got := CartTotals(exampleLines())

	assertMoney(t, "250", got.Subtotal)
	assertMoney(t, "217.39", got.NetAmount)
	assertMoney(t, "32.61", got.VATAmount)
	assertMoney(t, "60", got.ShippingEstimate)
	assertMoney(t, "0", got.DiscountAmount)
	assertMoney(t, "310", got.GrandTotal)
}

func TestCartShipping_FlatPerSeller(t *testing.T) {
	cases := []struct {
		name  string
		lines []Line
		want  string
	}{
		{"empty", nil, "0"},
		{"one unit", []Line{{SellerID: 1, Quantity: 1, UnitPrice: d("10")}}, "50"},
		{"quantity does not add", []Line{{SellerID: 1, Quantity: 3, UnitPrice: d("10")}}, "50"},
		{
			"second item adds ten",
			[]Line{
				{ListingID: 1, SellerID: 1, Quantity: 1},
				{ListingID: 2, SellerID: 1, Quantity: 1},
			},
			"60",
		},
		{
			"two sellers",
			[]Line{
				{ListingID: 1, SellerID: 1, Quantity: 2},
				{ListingID: 2, SellerID: 2, Quantity: 1},
				{ListingID: 3, SellerID: 1, Quantity: 1},
			},
			"110",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertMoney(t, tc.want, CartShipping(GroupBySeller(tc.lines)))
		})
	}
}

func TestCheckoutShipping_BulkDiscountPerSeller(t *testing.T) {
	cases := []struct {
		name  string
		lines []Line
		want  string
	}{
		{"two units no discount", []Line{{SellerID: 1, Quantity: 2}}, "50"},
		{"three units discounted", []Line{{SellerID: 1, Quantity: 3}}, "45"},
		{
			"units across items count toward the threshold",
			[]Line{
				{ListingID: 1, SellerID: 1, Quantity: 2},
				{ListingID: 2, SellerID: 1, Quantity: 1},
			},
			"54",
		},
		{
			"only the bulk seller is discounted",
			[]Line{
				{ListingID: 1, SellerID: 1, Quantity: 4},
				{ListingID: 2, SellerID: 2, Quantity: 1},
			},
			"95",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertMoney(t, tc.want, CheckoutShipping(GroupBySeller(tc.lines)))
		})
	}
}

func TestInclusiveVAT_NetPlusVATMatchesSubtotal(t *testing.T) {
	for _, v := range []string{"0", "0.01", "1", "99.99", "115", "250", "1234.56", "100000"} {
		t.Run(v, func(t *testing.T) {
			subtotal := d(v)
			net, vat := InclusiveVAT(subtotal)

			assertMoney(t, subtotal.Div(d("1.15")).Round(2).String(), net)
			assertMoney(t, net.Mul(d("0.15")).Round(2).String(), vat)
			assert.True(t, net.Add(vat).Sub(subtotal).Abs().LessThanOrEqual(d("0.01")))
		})
	}
}

func TestGroupBySeller_EveryLineInExactlyOneGroup(t *testing.T) {
	lines := []Line{
		{ListingID: 1, SellerID: 3, Quantity: 1},
		{ListingID: 2, SellerID: 1, Quantity: 1},
		{ListingID: 3, SellerID: 3, Quantity: 2},
		{ListingID: 4, SellerID: 2, Quantity: 1},
	}

	groups := GroupBySeller(lines)
	require.Len(t, groups, 3)
	assert.Equal(t, int64(3), groups[0].SellerID)
	assert.Equal(t, int64(1), groups[1].SellerID)
	assert.Equal(t, int64(2), groups[2].SellerID)

	seen := map[int64]int{}
	for _, g := range groups {
		for _, l := range g.Lines {
			assert.Equal(t, g.SellerID, l.SellerID)
			seen[l.ListingID]++
		}
	}
	assert.Equal(t, map[int64]int{1: 1, 2: 1, 3: 1, 4: 1}, seen)
	assert.Equal(t, int64(3), groups[0].Units())
}

func TestLineVAT_RoundsHalfUp(t *testing.T) {
	// 0.05 × 0.15 = 0.0075 → 0.01
	assertMoney(t, "0.01", LineVAT(Line{Quantity: 1, UnitPrice: d("0.05")}))
	assertMoney(t, "30", LineVAT(Line{Quantity: 2, UnitPrice: d("100")}))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "R 341.50", Money(d("341.5")))
}
