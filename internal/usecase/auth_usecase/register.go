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

const (
	minNameLen     = 2
	minPasswordLen = 8
)

var (
	// 途中データが無い（期限切れ・破棄済み）。step1からやり直し。
	ErrDraftExpired = errors.New("Your registration session has expired, please start again")

	ErrEmailAlreadyExists = errors.New("An account with this email already exists")
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// step1の入力
type StepOneInput struct {
	Name            string `form:"name"`
	Surname         string `form:"surname"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
	Phone           string `form:"phone"`
	UserType        string `form:"user_type"`
	AcceptTerms     string `form:"terms"`
	Newsletter      string `form:"newsletter"`
}

// step2の入力（事業者情報は任意）
type StepTwoInput struct {
	StreetAddress        string `form:"street_address"`
	Suburb               string `form:"suburb"`
	City                 string `form:"city"`
	Province             string `form:"province"`
	PostalCode           string `form:"postal_code"`
	BusinessName         string `form:"business_name"`
	BusinessRegistration string `form:"business_registration"`
}

// step1の結果。DraftTokenはcookieに入れる。
type StepOneOutput struct {
	DraftToken string
	ExpiresAt  time.Time
	Draft      model.RegistrationDraft
}

// 登録完了。AuthTokenでそのままログイン状態にする。
type RegisterOutput struct {
	User      model.User
	AuthToken string
	ExpiresAt time.Time
}

// RegistrationUsecaseは2ステップの会員登録。
// step1の内容はRedisの途中データに置き、step2でまとめてDBに書く。
type RegistrationUsecase struct {
	users  repo.UserRepository
	drafts repo.RegistrationDraftStore
	tx     repo.TransactionManager
	hasher PasswordHasher
	tokens *TokenIssuer
	idGen  IDGenerator
	clock  Clock
	log    *zap.Logger
}

// DI
func NewRegistrationUsecase(
	users repo.UserRepository,
	drafts repo.RegistrationDraftStore,
	tx repo.TransactionManager,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	idGen IDGenerator,
	clock Clock,
	log *zap.Logger,
) *RegistrationUsecase {
	return &RegistrationUsecase{
		users:  users,
		drafts: drafts,
		tx:     tx,
		hasher: hasher,
		tokens: tokens,
		idGen:  idGen,
		clock:  clock,
		log:    log,
	}
}

// ValidateStepOneはstep1の入力チェック（メール重複以外）
func ValidateStepOne(in StepOneInput) validator.Errors {
	var errs validator.Errors

	if validator.Len(strings.TrimSpace(in.Name)) < minNameLen {
		errs.Add("Name must be at least 2 characters")
	}
	if validator.Len(strings.TrimSpace(in.Surname)) < minNameLen {
		errs.Add("Surname must be at least 2 characters")
	}
	if errs.Require(in.Email, "Email is required") && !validator.IsEmail(strings.TrimSpace(in.Email)) {
		errs.Add("Email address is not valid")
	}
	if validator.Len(in.Password) < minPasswordLen {
		errs.Add("Password must be at least 8 characters")
	} else if in.Password != in.ConfirmPassword {
		errs.Add("Passwords do not match")
	}
	errs.Require(in.Phone, "Phone number is required")
	if !validator.Checked(in.AcceptTerms) {
		errs.Add("You must accept the terms and conditions")
	}
	if _, ok := model.ParseUserType(in.UserType); !ok {
		errs.Add("Please choose buyer or seller")
	}
	return errs
}

// ValidateStepTwoはstep2の入力チェック。住所は会員種別に関係なく必須。
func ValidateStepTwo(in StepTwoInput) validator.Errors {
	var errs validator.Errors

	errs.Require(in.StreetAddress, "Street address is required")
	errs.Require(in.Suburb, "Suburb is required")
	errs.Require(in.City, "City is required")
	if errs.Require(in.Province, "Province is required") && !validator.IsProvince(in.Province) {
		errs.Add("Province is not valid")
	}
	if errs.Require(in.PostalCode, "Postal code is required") && !validator.IsPostalCode(in.PostalCode) {
		errs.Add("Postal code must be 4 digits")
	}
	return errs
}

// SubmitStepOneは入力を検証し、パスワードをハッシュ化して途中データを保存する。
// 入力エラーはvalidator.Errorsで返す。
func (u *RegistrationUsecase) SubmitStepOne(ctx context.Context, in StepOneInput) (StepOneOutput, error) {
	var out StepOneOutput

	if errs := ValidateStepOne(in); len(errs) > 0 {
		return out, errs
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	exists, err := u.users.ExistsByEmail(ctx, email)
	if err != nil {
		u.log.Error("registration email lookup failed", zap.Error(err))
		return out, err
	}
	if exists {
		return out, validator.Errors{ErrEmailAlreadyExists.Error()}
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, err
	}

	userType, _ := model.ParseUserType(in.UserType)
	now := u.clock.Now()
	draft := model.RegistrationDraft{
		ID:           u.idGen.NewID(),
		Step:         2,
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Email:        email,
		PasswordHash: hash,
		UserType:     userType,
		Phone:        strings.TrimSpace(in.Phone),
		Newsletter:   validator.Checked(in.Newsletter),
		CreatedAt:    now,
	}
	if err := u.drafts.Save(ctx, draft); err != nil {
		u.log.Error("registration draft save failed", zap.Error(err))
		return out, err
	}

	token, exp, err := u.tokens.IssueDraft(draft.ID, now)
	if err != nil {
		return out, err
	}

	out.DraftToken = token
	out.ExpiresAt = exp
	out.Draft = draft
	return out, nil
}

// Draftはトークンから途中データを取り出す。無ければErrDraftExpired。
func (u *RegistrationUsecase) Draft(ctx context.Context, draftToken string) (model.RegistrationDraft, error) {
	id, err := u.tokens.ParseDraft(draftToken)
	if err != nil {
		return model.RegistrationDraft{}, ErrDraftExpired
	}

	draft, err := u.drafts.Find(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.RegistrationDraft{}, ErrDraftExpired
		}
		return model.RegistrationDraft{}, err
	}
	return draft, nil
}

// SubmitStepTwoは住所を検証し、ユーザー・設定・住所を1つのTxで作る。
// 途中データが無ければ入力内容に関係なくErrDraftExpired。
func (u *RegistrationUsecase) SubmitStepTwo(ctx context.Context, draftToken string, in StepTwoInput) (RegisterOutput, error) {
	var out RegisterOutput

	draft, err := u.Draft(ctx, draftToken)
	if err != nil {
		return out, err
	}

	if errs := ValidateStepTwo(in); len(errs) > 0 {
		return out, errs
	}

	now := u.clock.Now()
	street := strings.TrimSpace(in.StreetAddress)
	user := model.User{
		Name:          draft.Name,
		Surname:       draft.Surname,
		Email:         draft.Email,
		PasswordHash:  draft.PasswordHash,
		UserType:      draft.UserType,
		Phone:         draft.Phone,
		StreetAddress: street,
		Suburb:        strings.TrimSpace(in.Suburb),
		City:          strings.TrimSpace(in.City),
		Province:      strings.TrimSpace(in.Province),
		PostalCode:    strings.TrimSpace(in.PostalCode),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if draft.UserType == model.UserTypeSeller {
		user.BusinessName = strings.TrimSpace(in.BusinessName)
		user.BusinessRegistration = strings.TrimSpace(in.BusinessRegistration)
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Users().Create(ctx, &user); err != nil {
			return err
		}

		if err := r.Preferences().Create(ctx, model.UserPreferences{
			UserID:               user.ID,
			Newsletter:           draft.Newsletter,
			EmailNotifications:   true,
			MessageNotifications: true,
		}); err != nil {
			return err
		}

		house, streetName := model.SplitStreetAddress(street)
		_, err := r.Addresses().Create(ctx, model.Address{
			UserID:      user.ID,
			FullName:    user.FullName(),
			Phone:       user.Phone,
			HouseNumber: house,
			StreetName:  streetName,
			Suburb:      user.Suburb,
			City:        user.City,
			Province:    user.Province,
			PostalCode:  user.PostalCode,
			IsDefault:   true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return out, validator.Errors{ErrEmailAlreadyExists.Error()}
		}
		u.log.Error("registration commit failed", zap.String("email", draft.Email), zap.Error(err))
		return out, err
	}

	//登録済みなので途中データは捨てる（失敗してもTTLで消える）
	if err := u.drafts.Delete(ctx, draft.ID); err != nil {
		u.log.Warn("registration draft delete failed", zap.String("draft_id", draft.ID), zap.Error(err))
	}

	token, exp, err := u.tokens.IssueAuth(user, now)
	if err != nil {
		return out, err
	}

	user.PasswordHash = ""
	out.User = user
	out.AuthToken = token
	out.ExpiresAt = exp
	return out, nil
}

// Restartは途中データを破棄してstep1に戻す
func (u *RegistrationUsecase) Restart(ctx context.Context, draftToken string) error {
	id, err := u.tokens.ParseDraft(draftToken)
	if err != nil {
		return nil
	}
	return u.drafts.Delete(ctx, id)
}
