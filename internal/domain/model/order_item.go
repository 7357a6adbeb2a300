package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。(order, listing)で1行。注文と同時にのみ作成。
type OrderItem struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64           `gorm:"not null;index;uniqueIndex:idx_order_items_order_listing" json:"order_id"`
	ListingID     int64           `gorm:"not null;index;uniqueIndex:idx_order_items_order_listing" json:"listing_id"`
	SellerID      int64           `gorm:"not null;index" json:"seller_id"`
	TitleSnapshot string          `gorm:"type:varchar(255);not null" json:"title_snapshot"`
	Quantity      int64           `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	TotalPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	VATAmount     decimal.Decimal `gorm:"column:vat_amount;type:numeric(12,2);not null" json:"vat_amount"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
