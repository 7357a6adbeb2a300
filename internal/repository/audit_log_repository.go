package repository

import (
	"context"
	"time"

	"peercart/internal/domain/model"
)

// 操作履歴の絞り込み。ゼロ値の項目は条件にしない。
type AuditLogFilter struct {
	ActorUserID  int64
	ResourceType model.AuditResourceType
	ResourceID   int64
	Action       model.AuditAction
	Since        time.Time // この時刻以降
	Until        time.Time // この時刻より前
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error

	// 新しい順。totalは絞り込み後の件数
	List(ctx context.Context, f AuditLogFilter) ([]model.AuditLog, int64, error)
}
