// Package pricing computes cart and checkout totals.
//
// The cart page backs VAT out of tax-inclusive prices and charges flat per-seller shipping.
// The checkout page adds VAT on top and discounts shipping for sellers with three or more units.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// VATRateは南アフリカのVAT（15%）
	VATRate = decimal.RequireFromString("0.15")

	// 出品者ごとの基本送料
	SellerBaseShipping = decimal.NewFromInt(50)

	// 2つ目以降の明細1つあたりの追加送料
	ExtraItemShipping = decimal.NewFromInt(10)

	// チェックアウトでの送料割引（出品者ごとの合計数量が閾値以上）
	BulkShippingFactor = decimal.RequireFromString("0.9")

	// 割引コード適用時の割引率
	DiscountRate = decimal.RequireFromString("0.10")
)

// BulkShippingThresholdは送料割引が効く出品者ごとの数量
const BulkShippingThreshold int64 = 3

// 金額の小数桁
const moneyPlaces int32 = 2

// 計算対象の1明細（価格は税込）
type Line struct {
	ListingID int64
	SellerID  int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Totalは単価×数量（丸めない）
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// 出品者ごとの明細のまとまり
type SellerGroup struct {
	SellerID int64
	Lines    []Line
}

// Unitsは出品者ごとの合計数量
func (g SellerGroup) Units() int64 {
	var n int64
	for _, l := range g.Lines {
		n += l.Quantity
	}
	return n
}

func (g SellerGroup) Subtotal() decimal.Decimal {
	return Subtotal(g.Lines)
}

// 注文合計。表示のたびに再計算する。
type Totals struct {
	Subtotal         decimal.Decimal
	NetAmount        decimal.Decimal
	VATAmount        decimal.Decimal
	ShippingEstimate decimal.Decimal
	DiscountAmount   decimal.Decimal
	GrandTotal       decimal.Decimal
}

// GroupBySellerは出品者ごとに分ける。出品者の並びは最初に出てきた順。
// 全明細はちょうど1つのグループに入る。
func GroupBySeller(lines []Line) []SellerGroup {
	groups := make([]SellerGroup, 0)
	index := make(map[int64]int)

	for _, l := range lines {
		i, ok := index[l.SellerID]
		if !ok {
			i = len(groups)
			index[l.SellerID] = i
			groups = append(groups, SellerGroup{SellerID: l.SellerID})
		}
		groups[i].Lines = append(groups[i].Lines, l)
	}
	return groups
}

// Subtotalは Σ(単価×数量)
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// InclusiveVATは税込金額からVATを割り戻す（カート画面）。
// net = round(V/1.15, 2), vat = round(net×0.15, 2)
func InclusiveVAT(subtotal decimal.Decimal) (net decimal.Decimal, vat decimal.Decimal) {
	net = subtotal.Div(decimal.NewFromInt(1).Add(VATRate)).Round(moneyPlaces)
	vat = net.Mul(VATRate).Round(moneyPlaces)
	return net, vat
}

// AdditiveVATは小計にVATを上乗せする（チェックアウト画面）。丸めない。
func AdditiveVAT(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(VATRate)
}

// SellerShippingは1出品者の送料 = 50 + max(0, 明細数-1)×10
// 追加料金は2つ目以降の明細ごと（同じ出品の数量では増えない）。
func SellerShipping(g SellerGroup) decimal.Decimal {
	extra := int64(len(g.Lines)) - 1
	if extra < 0 {
		extra = 0
	}
	return SellerBaseShipping.Add(ExtraItemShipping.Mul(decimal.NewFromInt(extra)))
}

// CartShippingはカート画面の送料（割引なし）
func CartShipping(groups []SellerGroup) decimal.Decimal {
	sum := decimal.Zero
	for _, g := range groups {
		sum = sum.Add(SellerShipping(g))
	}
	return sum
}

// CheckoutShippingはチェックアウト画面の送料。
// 出品者ごとの合計数量が3以上ならその出品者の送料を10%引き。
func CheckoutShipping(groups []SellerGroup) decimal.Decimal {
	sum := decimal.Zero
	for _, g := range groups {
		s := SellerShipping(g)
		if g.Units() >= BulkShippingThreshold {
			s = s.Mul(BulkShippingFactor)
		}
		sum = sum.Add(s)
	}
	return sum
}

// DiscountAppliesは割引コードが有効か。
// TODO: コードの台帳テーブルができたら照合する。今は空でなければ適用。
func DiscountApplies(code string) bool {
	return strings.TrimSpace(code) != ""
}

// CartTotalsはカート画面の合計（VAT内税、割引なし）
func CartTotals(lines []Line) Totals {
	subtotal := Subtotal(lines)
	net, vat := InclusiveVAT(subtotal)
	shipping := CartShipping(GroupBySeller(lines))

	return Totals{
		Subtotal:         subtotal.Round(moneyPlaces),
		NetAmount:        net,
		VATAmount:        vat,
		ShippingEstimate: shipping.Round(moneyPlaces),
		DiscountAmount:   decimal.Zero,
		GrandTotal:       subtotal.Add(shipping).Round(moneyPlaces),
	}
}

// CheckoutTotalsはチェックアウト画面の合計（VAT外税、送料割引、割引コード）
func CheckoutTotals(lines []Line, discountCode string) Totals {
	subtotal := Subtotal(lines)
	vat := AdditiveVAT(subtotal)
	shipping := CheckoutShipping(GroupBySeller(lines))
	total := subtotal.Add(vat).Add(shipping)

	discount := decimal.Zero
	if DiscountApplies(discountCode) {
		discount = total.Mul(DiscountRate)
	}

	return Totals{
		Subtotal:         subtotal.Round(moneyPlaces),
		NetAmount:        subtotal.Round(moneyPlaces),
		VATAmount:        vat.Round(moneyPlaces),
		ShippingEstimate: shipping.Round(moneyPlaces),
		DiscountAmount:   discount.Round(moneyPlaces),
		GrandTotal:       total.Sub(discount).Round(moneyPlaces),
	}
}

// LineVATは注文明細に保存するVAT額（チェックアウトと同じ外税計算）
func LineVAT(l Line) decimal.Decimal {
	return AdditiveVAT(l.Total()).Round(moneyPlaces)
}

// Moneyは画面表示用（例: R 1234.50）
func Money(d decimal.Decimal) string {
	return "R " + d.StringFixed(moneyPlaces)
}
