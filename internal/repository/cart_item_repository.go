package repository

import (
	"context"

	"peercart/internal/domain/model"
)

// ログインユーザーのカート（cartテーブル）
type CartItemRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	FindByUserAndListing(ctx context.Context, userID int64, listingID int64) (model.CartItem, error)
	// 同一出品はプラス
	UpsertQuantity(ctx context.Context, userID int64, listingID int64, addQty int64) error
	// 数量を上書き（1以上）
	SetQuantity(ctx context.Context, userID int64, listingID int64, qty int64) error
	Delete(ctx context.Context, userID int64, listingID int64) error
	ClearByUserID(ctx context.Context, userID int64) error
	CountByUserID(ctx context.Context, userID int64) (int64, error)
}
