package usecase

import (
	"context"
	"errors"
	"strings"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"
	auth "peercart/internal/usecase/auth_usecase"
	"peercart/internal/validator"

	"go.uber.org/zap"
)

// プロフィール・パスワード・通知設定
type SettingsUsecase struct {
	tx       repo.TransactionManager
	users    repo.UserRepository
	prefs    repo.UserPreferencesRepository
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier
	log      *zap.Logger
	debug    bool
}

func NewSettingsUsecase(
	tx repo.TransactionManager,
	users repo.UserRepository,
	prefs repo.UserPreferencesRepository,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	log *zap.Logger,
	debug bool,
) *SettingsUsecase {
	return &SettingsUsecase{
		tx:       tx,
		users:    users,
		prefs:    prefs,
		hasher:   hasher,
		verifier: verifier,
		log:      log,
		debug:    debug,
	}
}

type ProfileForm struct {
	Name                 string `form:"name"`
	Surname              string `form:"surname"`
	Phone                string `form:"phone"`
	BusinessName         string `form:"business_name"`
	BusinessRegistration string `form:"business_registration"`
}

type PasswordForm struct {
	Current string `form:"current_password"`
	New     string `form:"new_password"`
	Confirm string `form:"confirm_password"`
}

// チェックボックスは送られてこなければfalse
type PreferencesForm struct {
	Newsletter           string `form:"newsletter"`
	EmailNotifications   string `form:"email_notifications"`
	MessageNotifications string `form:"message_notifications"`
}

type SettingsPage struct {
	User        model.User
	Preferences model.UserPreferences
}

// Loadは設定画面の表示用。設定行が無ければ初期値を返す。
func (u *SettingsUsecase) Load(ctx context.Context, userID int64) (SettingsPage, error) {
	user, err := u.user(ctx, userID)
	if err != nil {
		return SettingsPage{}, err
	}

	p, err := u.prefs.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		p = defaultPreferences(userID)
	} else if err != nil {
		u.log.Error("load preferences failed", zap.Int64("user_id", userID), zap.Error(err))
		return SettingsPage{}, dbError("Could not load settings", err, u.debug)
	}

	user.PasswordHash = ""
	return SettingsPage{User: *user, Preferences: p}, nil
}

func (u *SettingsUsecase) UpdateProfile(ctx context.Context, userID int64, f ProfileForm) error {
	var errs validator.Errors
	name := strings.TrimSpace(f.Name)
	surname := strings.TrimSpace(f.Surname)
	phone := strings.TrimSpace(f.Phone)

	if validator.Len(name) < 2 {
		errs.Add("Name must be at least 2 characters")
	}
	if validator.Len(surname) < 2 {
		errs.Add("Surname must be at least 2 characters")
	}
	if phone != "" && !validator.IsPhone(phone) {
		errs.Add("Phone must be 10-15 digits")
	}
	if len(errs) > 0 {
		return errs
	}

	user, err := u.user(ctx, userID)
	if err != nil {
		return err
	}
	user.Name = name
	user.Surname = surname
	user.Phone = phone
	if user.IsSeller() {
		user.BusinessName = strings.TrimSpace(f.BusinessName)
		user.BusinessRegistration = strings.TrimSpace(f.BusinessRegistration)
	}

	if err := u.users.Update(ctx, user); err != nil {
		u.log.Error("update profile failed", zap.Int64("user_id", userID), zap.Error(err))
		return dbError("Could not save profile", err, u.debug)
	}
	return nil
}

// ChangePasswordは他の端末のログインも切る（token_version+1）。
// 今の端末はハンドラーが返したユーザーでトークンを発行し直す。
func (u *SettingsUsecase) ChangePassword(ctx context.Context, userID int64, f PasswordForm) (model.User, error) {
	user, err := u.user(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	var errs validator.Errors
	if !u.verifier.Verify(f.Current, user.PasswordHash) {
		errs.Add("Current password is incorrect")
	}
	if validator.Len(f.New) < 8 {
		errs.Add("New password must be at least 8 characters")
	} else if f.New != f.Confirm {
		errs.Add("Passwords do not match")
	}
	if len(errs) > 0 {
		return model.User{}, errs
	}

	hash, err := u.hasher.Hash(f.New)
	if err != nil {
		return model.User{}, err
	}
	user.PasswordHash = hash

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}
		return r.Users().IncrementTokenVersion(ctx, userID)
	})
	if err != nil {
		u.log.Error("change password failed", zap.Int64("user_id", userID), zap.Error(err))
		return model.User{}, dbError("Could not change password", err, u.debug)
	}

	out := *user
	out.TokenVersion++
	out.PasswordHash = ""
	return out, nil
}

func (u *SettingsUsecase) UpdatePreferences(ctx context.Context, userID int64, f PreferencesForm) error {
	if userID <= 0 {
		return errUnauthorized
	}

	p, err := u.prefs.FindByUserID(ctx, userID)
	create := errors.Is(err, repo.ErrNotFound)
	if err != nil && !create {
		u.log.Error("load preferences failed", zap.Int64("user_id", userID), zap.Error(err))
		return dbError("Could not save preferences", err, u.debug)
	}
	if create {
		p = defaultPreferences(userID)
	}

	p.Newsletter = validator.Checked(f.Newsletter)
	p.EmailNotifications = validator.Checked(f.EmailNotifications)
	p.MessageNotifications = validator.Checked(f.MessageNotifications)

	if create {
		err = u.prefs.Create(ctx, p)
	} else {
		err = u.prefs.Update(ctx, p)
	}
	if err != nil {
		u.log.Error("save preferences failed", zap.Int64("user_id", userID), zap.Error(err))
		return dbError("Could not save preferences", err, u.debug)
	}
	return nil
}

func (u *SettingsUsecase) user(ctx context.Context, userID int64) (*model.User, error) {
	if userID <= 0 {
		return nil, errUnauthorized
	}
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errUnauthorized
	}
	if err != nil {
		u.log.Error("find user failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, dbError("Could not load your account", err, u.debug)
	}
	return user, nil
}

func defaultPreferences(userID int64) model.UserPreferences {
	return model.UserPreferences{
		UserID:               userID,
		EmailNotifications:   true,
		MessageNotifications: true,
	}
}
