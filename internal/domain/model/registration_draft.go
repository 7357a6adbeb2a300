package model

import "time"

// 会員登録の途中データ（step1の結果）。DBのusersには書かない。
// パスワードはstep1の時点でハッシュ化済み。
type RegistrationDraft struct {
	ID           string    `json:"id"`
	Step         int       `json:"step"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	UserType     UserType  `json:"user_type"`
	Phone        string    `json:"phone"`
	Newsletter   bool      `json:"newsletter"`
	CreatedAt    time.Time `json:"created_at"`
}
