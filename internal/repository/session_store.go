package repository

import (
	"context"

	"peercart/internal/domain/model"
)

// セッションに置くキー
const (
	SessionKeyFlashMessage   = "flash_message"
	SessionKeyFlashType      = "flash_type"
	SessionKeyCheckoutErrors = "checkout_errors"
	SessionKeyDiscountCode   = "discount_code"
	SessionKeyRedirectURL    = "redirect_url"
	SessionKeyCartCount      = "cart_count"
)

// sidごとのセッション値（flash、リダイレクト先、割引コードなど）
type SessionStore interface {
	Get(ctx context.Context, sid string, key string) (string, error)
	Set(ctx context.Context, sid string, key string, value string) error
	// 読んだら消す（flash用）
	Pop(ctx context.Context, sid string, key string) (string, error)
	Delete(ctx context.Context, sid string, keys ...string) error
	// セッションとゲストカートをまとめて破棄
	Destroy(ctx context.Context, sid string) error
}

// ゲストカートの1行
type GuestCartLine struct {
	ListingID int64
	Quantity  int64
}

// 未ログイン時のカート（セッションに保存）
type GuestCartStore interface {
	ListGuestCart(ctx context.Context, sid string) ([]GuestCartLine, error)
	AddGuestItem(ctx context.Context, sid string, listingID int64, qty int64) error
	SetGuestItem(ctx context.Context, sid string, listingID int64, qty int64) error
	RemoveGuestItem(ctx context.Context, sid string, listingID int64) error
	ClearGuestCart(ctx context.Context, sid string) error
}

// 会員登録の途中データ。期限切れはErrNotFound
type RegistrationDraftStore interface {
	Save(ctx context.Context, draft model.RegistrationDraft) error
	Find(ctx context.Context, id string) (model.RegistrationDraft, error)
	Delete(ctx context.Context, id string) error
}
