package repository

import (
	"context"

	"peercart/internal/domain/model"
)

// 出品者の売上明細（注文番号つき）
type SaleRow struct {
	model.OrderItem
	OrderNumber string            `json:"order_number"`
	OrderStatus model.OrderStatus `json:"order_status"`
	BuyerName   string            `json:"buyer_name"`
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]SaleRow, int64, error)
}
