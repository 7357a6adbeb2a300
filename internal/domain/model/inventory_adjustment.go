package model

import "time"

//在庫調整の履歴（出品者が在庫数を直したとき）

type InventoryAdjustment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID int64     `gorm:"not null;index" json:"listing_id"`
	SellerID  int64     `gorm:"not null;index" json:"seller_id"`
	Delta     int64     `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
