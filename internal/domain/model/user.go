package model

import "time"

// 会員種別
type UserType string

const (
	UserTypeBuyer  UserType = "buyer"
	UserTypeSeller UserType = "seller"
)

// ParseUserTypeは画面から来た値を会員種別に変換する
func ParseUserType(s string) (UserType, bool) {
	switch UserType(s) {
	case UserTypeBuyer, UserTypeSeller:
		return UserType(s), true
	default:
		return "", false
	}
}

type User struct {
	ID           int64    `gorm:"primaryKey;autoIncrement"`
	Name         string   `gorm:"type:varchar(100);not null"`
	Surname      string   `gorm:"type:varchar(100);not null"`
	Email        string   `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string   `gorm:"column:password_hash;not null"`
	UserType     UserType `gorm:"type:varchar(20);not null;default:'buyer'"`
	Phone        string   `gorm:"type:varchar(30)"`

	//出品者のみ（任意）
	BusinessName         string `gorm:"type:varchar(255)"`
	BusinessRegistration string `gorm:"type:varchar(100)"`

	//プロフィール上の住所（チェックアウト時に上書きされる）
	StreetAddress string `gorm:"type:varchar(255)"`
	Suburb        string `gorm:"type:varchar(100)"`
	City          string `gorm:"type:varchar(100)"`
	Province      string `gorm:"type:varchar(100)"`
	PostalCode    string `gorm:"type:varchar(10)"`

	TokenVersion int  `gorm:"not null;default:0"`
	IsActive     bool `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullNameは表示用の氏名
func (u User) FullName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}

func (u User) IsSeller() bool {
	return u.UserType == UserTypeSeller
}
