package model

import "time"

// カートの明細（ログインユーザー用。ゲストはセッション側）
// 同じ(user, listing)は1行。数量は常に1以上。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_cart_user_listing" json:"user_id"`
	ListingID int64     `gorm:"not null;uniqueIndex:idx_cart_user_listing" json:"listing_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart"
}
