package repository

import (
	"context"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫が足りるときだけ減らす。読んでから書くのではなく1文の条件付きUPDATE。
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, listingID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND quantity >= ? AND status = ?", listingID, qty, model.ListingStatusActive).
		Update("quantity", gorm.Expr("quantity - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// 在庫戻し（キャンセル）
func (r *InventoryGormRepository) IncreaseStock(ctx context.Context, listingID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.Listing{}).
		Where("id = ?", listingID).
		Update("quantity", gorm.Expr("quantity + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫を「現在値」に更新し、調整履歴も残す。差分を返す。
func (r *InventoryGormRepository) SetStockWithAdjustment(ctx context.Context, sellerID int64, listingID int64, newStock int64, reason string) (int64, error) {
	var delta int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//現在の在庫を取得
		var l model.Listing
		if err := tx.Where("id = ? AND seller_id = ?", listingID, sellerID).First(&l).Error; err != nil {
			if isNotFound(err) {
				return repo.ErrNotFound
			}
			return err
		}

		res := tx.Model(&model.Listing{}).
			Where("id = ?", listingID).
			Update("quantity", newStock)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		delta = newStock - l.Quantity
		adj := model.InventoryAdjustment{
			ListingID: listingID,
			SellerID:  sellerID,
			Delta:     delta,
			Reason:    reason,
		}
		return tx.Create(&adj).Error
	})
	if err != nil {
		return 0, err
	}
	return delta, nil
}
