package repository

import (
	"context"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		return err
	}
	return nil
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

// 出品者の売上明細。注文番号・ステータス・購入者名をjoinして返す。
func (r *OrderItemGormRepository) ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]repo.SaleRow, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	base := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Joins("JOIN users u ON u.id = o.buyer_id").
		Where("oi.seller_id = ?", sellerID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []repo.SaleRow{}, 0, err
	}

	var rows []repo.SaleRow
	offset := (page - 1) * limit
	err := base.Session(&gorm.Session{}).
		Select("oi.*, o.order_number AS order_number, o.status AS order_status, " +
			"TRIM(u.name || ' ' || u.surname) AS buyer_name").
		Order("oi.id desc").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return []repo.SaleRow{}, 0, err
	}
	return rows, total, nil
}
