package model

import "time"

// 通知などの設定。ユーザー1人に1行。
type UserPreferences struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	Newsletter           bool      `gorm:"not null;default:false" json:"newsletter"`
	EmailNotifications   bool      `gorm:"not null;default:true" json:"email_notifications"`
	MessageNotifications bool      `gorm:"not null;default:true" json:"message_notifications"`
	CreatedAt            time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (UserPreferences) TableName() string {
	return "user_preferences"
}
