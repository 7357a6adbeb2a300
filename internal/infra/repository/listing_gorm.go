package repository

import (
	"context"
	"strings"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"gorm.io/gorm"
)

type ListingGormRepository struct {
	db *gorm.DB
}

func NewListingGormRepository(db *gorm.DB) *ListingGormRepository {
	return &ListingGormRepository{db: db}
}

// 出品者名をjoinした検索のベース
func (r *ListingGormRepository) withSeller(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Joins("JOIN users ON users.id = listings.seller_id")
}

const listingWithSellerColumns = "listings.*, TRIM(users.name || ' ' || users.surname) AS seller_name"

// 公開一覧（検索・絞り込み・並び替え・ページング）
func (r *ListingGormRepository) ListPublic(ctx context.Context, q repo.ListingListQuery) ([]model.ListingWithSeller, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	base := r.withSeller(ctx).
		Where("listings.status = ?", model.ListingStatusActive)

	//キーワード
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + s + "%"
		base = base.Where("(listings.title ILIKE ? OR listings.description ILIKE ?)", like, like)
	}

	//カテゴリ
	if q.Category != "" {
		base = base.Where("listings.category = ?", q.Category)
	}

	//価格帯
	if q.MinPrice != nil {
		base = base.Where("listings.price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		base = base.Where("listings.price <= ?", *q.MaxPrice)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []model.ListingWithSeller{}, 0, err
	}

	order := "listings.created_at desc, listings.id desc"
	switch q.Sort {
	case "price_asc":
		order = "listings.price asc, listings.id asc"
	case "price_desc":
		order = "listings.price desc, listings.id desc"
	case "oldest":
		order = "listings.created_at asc, listings.id asc"
	}

	var items []model.ListingWithSeller
	offset := (q.Page - 1) * q.Limit
	err := base.Session(&gorm.Session{}).
		Select(listingWithSellerColumns).
		Order(order).
		Limit(q.Limit).
		Offset(offset).
		Scan(&items).Error
	if err != nil {
		return []model.ListingWithSeller{}, 0, err
	}

	return items, total, nil
}

// 出品者自身の一覧（非公開も含む）
func (r *ListingGormRepository) ListBySellerID(ctx context.Context, sellerID int64) ([]model.Listing, error) {
	var items []model.Listing
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("id desc").
		Find(&items).Error
	if err != nil {
		return []model.Listing{}, err
	}
	return items, nil
}

// 削除済みも含めて取得
func (r *ListingGormRepository) FindByID(ctx context.Context, id int64) (model.Listing, error) {
	var l model.Listing
	err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&l).Error
	if isNotFound(err) {
		return model.Listing{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Listing{}, err
	}
	return l, nil
}

// 詳細画面用
func (r *ListingGormRepository) FindWithSeller(ctx context.Context, id int64) (model.ListingWithSeller, error) {
	var items []model.ListingWithSeller
	err := r.withSeller(ctx).
		Select(listingWithSellerColumns).
		Where("listings.id = ?", id).
		Limit(1).
		Scan(&items).Error
	if err != nil {
		return model.ListingWithSeller{}, err
	}
	if len(items) == 0 {
		return model.ListingWithSeller{}, repo.ErrNotFound
	}
	return items[0], nil
}

// カート表示用。削除済みも返す（画面で「購入不可」と出す）
func (r *ListingGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.ListingWithSeller, error) {
	if len(ids) == 0 {
		return []model.ListingWithSeller{}, nil
	}

	var items []model.ListingWithSeller
	err := r.withSeller(ctx).
		Unscoped().
		Select(listingWithSellerColumns).
		Where("listings.id IN ?", ids).
		Scan(&items).Error
	if err != nil {
		return []model.ListingWithSeller{}, err
	}
	return items, nil
}

func (r *ListingGormRepository) Create(ctx context.Context, l model.Listing) (model.Listing, error) {
	if err := r.db.WithContext(ctx).Create(&l).Error; err != nil {
		return model.Listing{}, err
	}
	return l, nil
}

// 在庫数はSetStockWithAdjustmentで更新するのでここでは触らない
func (r *ListingGormRepository) Update(ctx context.Context, l model.Listing) error {
	res := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND seller_id = ?", l.ID, l.SellerID).
		Updates(map[string]interface{}{
			"title":       l.Title,
			"description": l.Description,
			"category":    l.Category,
			"condition":   l.Condition,
			"price":       l.Price,
			"image_url":   l.ImageURL,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ListingGormRepository) UpdateStatus(ctx context.Context, id int64, status model.ListingStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
