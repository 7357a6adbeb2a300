package repository

import (
	"context"

	"peercart/internal/domain/model"
	domainrepo "peercart/internal/repository"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成。メール重複はErrConflict
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrConflict
		}
		return err
	}
	return nil
}

// emailでユーザーを1件取得
func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&u).Error

	if err != nil {
		if isNotFound(err) {
			return nil, domainrepo.ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error

	if err != nil {
		if isNotFound(err) {
			return nil, domainrepo.ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}

func (r *userGormRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("LOWER(email) = LOWER(?)", email).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userGormRepository) Update(ctx context.Context, user *model.User) error {
	res := r.db.WithContext(ctx).Save(user)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domainrepo.ErrConflict
		}
		return res.Error
	}
	return nil
}

// チェックアウトで入力した住所・電話をプロフィールに書き戻す
func (r *userGormRepository) UpdateContact(ctx context.Context, userID int64, phone string, s model.AddressSnapshot) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"phone":          phone,
			"street_address": s.StreetLine(),
			"suburb":         s.Suburb,
			"city":           s.City,
			"province":       s.Province,
			"postal_code":    s.PostalCode,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}

// token_versionを+1（ログイン中の全トークンを失効）
func (r *userGormRepository) IncrementTokenVersion(ctx context.Context, userID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("token_version", gorm.Expr("token_version + 1"))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}

type preferencesGormRepository struct {
	db *gorm.DB
}

func NewPreferencesGormRepository(db *gorm.DB) domainrepo.UserPreferencesRepository {
	return &preferencesGormRepository{db: db}
}

func (r *preferencesGormRepository) Create(ctx context.Context, prefs model.UserPreferences) error {
	if err := r.db.WithContext(ctx).Create(&prefs).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrConflict
		}
		return err
	}
	return nil
}

func (r *preferencesGormRepository) FindByUserID(ctx context.Context, userID int64) (model.UserPreferences, error) {
	var p model.UserPreferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if isNotFound(err) {
		return model.UserPreferences{}, domainrepo.ErrNotFound
	}
	if err != nil {
		return model.UserPreferences{}, err
	}
	return p, nil
}

func (r *preferencesGormRepository) Update(ctx context.Context, prefs model.UserPreferences) error {
	res := r.db.WithContext(ctx).
		Model(&model.UserPreferences{}).
		Where("user_id = ?", prefs.UserID).
		Updates(map[string]interface{}{
			"newsletter":            prefs.Newsletter,
			"email_notifications":   prefs.EmailNotifications,
			"message_notifications": prefs.MessageNotifications,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}
