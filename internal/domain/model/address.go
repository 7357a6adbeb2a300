package model

import (
	"regexp"
	"strings"
	"time"
)

// 配送先住所
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//宛名
	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`

	//電話番号
	Phone string `gorm:"type:varchar(30)" json:"phone"`

	//番地
	HouseNumber string `gorm:"type:varchar(20);not null" json:"house_number"`

	//通り名
	StreetName string `gorm:"type:varchar(255);not null" json:"street_name"`

	Suburb string `gorm:"type:varchar(100);not null" json:"suburb"`
	City   string `gorm:"type:varchar(100);not null" json:"city"`

	//州（南アフリカの9州）
	Province string `gorm:"type:varchar(100);not null" json:"province"`

	//郵便番号（4桁）
	PostalCode string `gorm:"type:varchar(10);not null" json:"postal_code"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// 注文に保存する住所のスナップショット（JSON列）
type AddressSnapshot struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	HouseNumber string `json:"house_number"`
	StreetName  string `json:"street_name"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postal_code"`
}

// Snapshotは住所をスナップショットに変換する
func (a Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		FullName:    a.FullName,
		Phone:       a.Phone,
		HouseNumber: a.HouseNumber,
		StreetName:  a.StreetName,
		Suburb:      a.Suburb,
		City:        a.City,
		Province:    a.Province,
		PostalCode:  a.PostalCode,
	}
}

// StreetLineは「番地 通り名」
func (s AddressSnapshot) StreetLine() string {
	return strings.TrimSpace(s.HouseNumber + " " + s.StreetName)
}

var leadingHouseNumberRe = regexp.MustCompile(`^(\d+)\s*(.*)$`)

// 番地が見つからないときの値
const DefaultHouseNumber = "1"

// SplitStreetAddressは自由入力の住所を「番地」と「通り名」に分ける。
// 先頭の数字を番地とし、数字が無ければ番地は"1"で全体を通り名にする。
//
//	"12B Main Street" -> ("12", "B Main Street")
//	"Main Street"     -> ("1", "Main Street")
func SplitStreetAddress(s string) (houseNumber string, streetName string) {
	s = strings.TrimSpace(s)
	if m := leadingHouseNumberRe.FindStringSubmatch(s); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return DefaultHouseNumber, s
}
