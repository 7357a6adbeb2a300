package repository

import (
	"context"

	"peercart/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ListingListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

// 出品の永続化（保存・取得）だけを約束。
type ListingRepository interface {
	ListPublic(ctx context.Context, q ListingListQuery) ([]model.ListingWithSeller, int64, error)
	ListBySellerID(ctx context.Context, sellerID int64) ([]model.Listing, error)

	// 削除済みも含めて取得（カートの削除操作用）
	FindByID(ctx context.Context, id int64) (model.Listing, error)
	FindWithSeller(ctx context.Context, id int64) (model.ListingWithSeller, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.ListingWithSeller, error)

	Create(ctx context.Context, l model.Listing) (model.Listing, error)
	Update(ctx context.Context, l model.Listing) error
	UpdateStatus(ctx context.Context, id int64, status model.ListingStatus) error
}

// 一覧1ページ分
type ListingPage struct {
	Items []model.ListingWithSeller `json:"items"`
	Total int64                     `json:"total"`
}

// 出品の読み取りキャッシュ。ミスしたときはloadで読み込む。
type ListingCache interface {
	Detail(ctx context.Context, id int64, load func(ctx context.Context) (model.ListingWithSeller, error)) (model.ListingWithSeller, error)
	Browse(ctx context.Context, q ListingListQuery, load func(ctx context.Context) (ListingPage, error)) (ListingPage, error)
	Invalidate(ctx context.Context, id int64) error
}
