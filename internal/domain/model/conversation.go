package model

import "time"

// 出品ごとの買い手と売り手のやりとり
type Conversation struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID     int64     `gorm:"not null;uniqueIndex:idx_conv_listing_buyer" json:"listing_id"`
	BuyerID       int64     `gorm:"not null;index;uniqueIndex:idx_conv_listing_buyer" json:"buyer_id"`
	SellerID      int64     `gorm:"not null;index" json:"seller_id"`
	LastMessageAt time.Time `gorm:"not null;index" json:"last_message_at"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// Involvesはユーザーが当事者か
func (c Conversation) Involves(userID int64) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// OtherPartyは相手のユーザーID
func (c Conversation) OtherParty(userID int64) int64 {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

type Message struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64      `gorm:"not null;index" json:"conversation_id"`
	SenderID       int64      `gorm:"not null;index" json:"sender_id"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	ReadAt         *time.Time `gorm:"index" json:"read_at"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 一覧表示用
type ConversationSummary struct {
	Conversation
	ListingTitle string `json:"listing_title"`
	OtherName    string `json:"other_name"`
	LastMessage  string `json:"last_message"`
	UnreadCount  int64  `json:"unread_count"`
}
