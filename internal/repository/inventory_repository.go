package repository

import "context"

type InventoryRepository interface {
	// 在庫が足りるときだけ減算（UPDATE ... WHERE quantity >= ?）
	DecreaseStockIfEnough(ctx context.Context, listingID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, listingID int64, qty int64) error

	// 在庫を現在値に設定し、調整履歴も残す
	SetStockWithAdjustment(ctx context.Context, sellerID int64, listingID int64, newStock int64, reason string) (int64, error)
}
