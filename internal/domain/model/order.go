package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// 注文。作成後はステータス遷移以外で変更しない。
type Order struct {
	ID              int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber     string        `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	BuyerID         int64         `gorm:"not null;index;uniqueIndex:idx_orders_buyer_idem" json:"buyer_id"`
	PrimarySellerID int64         `gorm:"not null;index" json:"primary_seller_id"`
	Status          OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null" json:"payment_status"`

	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	VATAmount      decimal.Decimal `gorm:"column:vat_amount;type:numeric(12,2);not null" json:"vat_amount"`
	ShippingAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	ShippingAddress AddressSnapshot `gorm:"type:jsonb;serializer:json;not null" json:"shipping_address"`
	BillingAddress  AddressSnapshot `gorm:"type:jsonb;serializer:json;not null" json:"billing_address"`
	Notes           string          `gorm:"type:text" json:"notes"`

	//二重送信防止キー（buyerごとに一意）
	IdempotencyKey string `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_buyer_idem" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// IsTerminalは終端ステータスか
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionToは出品者が行えるステータス遷移か
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing || next == OrderStatusCancelled
	case OrderStatusProcessing:
		return next == OrderStatusShipped || next == OrderStatusCancelled
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	default:
		return false
	}
}
