package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"
	"peercart/internal/validator"

	"go.uber.org/zap"
)

// メールまたはパスワードが違う
var ErrInvalidCredentials = errors.New("Invalid email or password")

// 停止済みユーザー
var ErrUserInactive = errors.New("This account has been deactivated")

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// handlerがcookieに詰める値
type LoginOutput struct {
	User      model.User
	Token     string
	ExpiresAt time.Time
}

type LoginUsecase struct {
	users    repo.UserRepository
	verifier PasswordVerifier
	tokens   *TokenIssuer
	clock    Clock
	log      *zap.Logger
}

func NewLoginUsecase(
	users repo.UserRepository,
	verifier PasswordVerifier,
	tokens *TokenIssuer,
	clock Clock,
	log *zap.Logger,
) *LoginUsecase {
	return &LoginUsecase{
		users:    users,
		verifier: verifier,
		tokens:   tokens,
		clock:    clock,
		log:      log,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	var out LoginOutput

	var errs validator.Errors
	errs.Require(in.Email, "Email is required")
	errs.Require(in.Password, "Password is required")
	if len(errs) > 0 {
		return out, errs
	}

	//emailでユーザー取得
	user, err := u.users.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return out, ErrInvalidCredentials
		}
		u.log.Error("login lookup failed", zap.Error(err))
		return out, err
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return out, ErrUserInactive
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return out, ErrInvalidCredentials
	}

	now := u.clock.Now()
	token, exp, err := u.tokens.IssueAuth(*user, now)
	if err != nil {
		return out, err
	}

	//最終ログイン時刻更新
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		u.log.Warn("last login update failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	//出力（passwordは返さない）
	safeUser := *user
	safeUser.PasswordHash = ""

	out.User = safeUser
	out.Token = token
	out.ExpiresAt = exp
	return out, nil
}

// LogoutAllはtoken_versionを上げて発行済みトークンを全部無効にする
func (u *LoginUsecase) LogoutAll(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidCredentials
	}
	return u.users.IncrementTokenVersion(ctx, userID)
}
