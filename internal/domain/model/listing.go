package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusInactive ListingStatus = "inactive"
	ListingStatusSold     ListingStatus = "sold"
)

// 出品（個人間取引の商品）
type Listing struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    int64           `gorm:"not null;index" json:"seller_id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"type:varchar(100);index" json:"category"`
	Condition   string          `gorm:"type:varchar(50)" json:"condition"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity    int64           `gorm:"not null;default:0" json:"quantity"`
	ImageURL    string          `gorm:"type:varchar(500)" json:"image_url"`
	Status      ListingStatus   `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsAvailableは購入できる状態か（公開中・削除なし）
func (l Listing) IsAvailable() bool {
	return l.Status == ListingStatusActive && !l.DeletedAt.Valid
}

// 出品者情報付きの出品（一覧・カート表示用）
type ListingWithSeller struct {
	Listing
	SellerName string `json:"seller_name"`
}
