package repository

import (
	"context"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"gorm.io/gorm"
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

// 出品者ダッシュボードの操作履歴
func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	base := r.db.WithContext(ctx).Model(&model.AuditLog{}).Scopes(auditConditions(f))

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []model.AuditLog{}, 0, err
	}

	var logs []model.AuditLog
	err := base.Session(&gorm.Session{}).
		Order("created_at desc, id desc").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&logs).Error
	if err != nil {
		return []model.AuditLog{}, 0, err
	}
	return logs, total, nil
}

func auditConditions(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.ActorUserID > 0 {
			db = db.Where("actor_user_id = ?", f.ActorUserID)
		}
		if f.ResourceType != "" {
			db = db.Where("resource_type = ?", f.ResourceType)
		}
		if f.ResourceID > 0 {
			db = db.Where("resource_id = ?", f.ResourceID)
		}
		if f.Action != "" {
			db = db.Where("action = ?", f.Action)
		}
		//期間は [Since, Until)
		if !f.Since.IsZero() {
			db = db.Where("created_at >= ?", f.Since)
		}
		if !f.Until.IsZero() {
			db = db.Where("created_at < ?", f.Until)
		}
		return db
	}
}
