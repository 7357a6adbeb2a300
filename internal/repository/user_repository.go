package repository

import (
	"context"

	"peercart/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。無ければ ErrNotFound
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。無ければ ErrNotFound
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//メールが使われているか
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// ユーザー情報の更新
	Update(ctx context.Context, user *model.User) error
	//チェックアウト時のプロフィール住所・電話の上書き
	UpdateContact(ctx context.Context, userID int64, phone string, snapshot model.AddressSnapshot) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
}

// 通知設定
type UserPreferencesRepository interface {
	Create(ctx context.Context, prefs model.UserPreferences) error
	FindByUserID(ctx context.Context, userID int64) (model.UserPreferences, error)
	Update(ctx context.Context, prefs model.UserPreferences) error
}
