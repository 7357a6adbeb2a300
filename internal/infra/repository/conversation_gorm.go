package repository

import (
	"context"
	"time"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationGormRepository struct {
	db *gorm.DB
}

func NewConversationGormRepository(db *gorm.DB) *ConversationGormRepository {
	return &ConversationGormRepository{db: db}
}

func (r *ConversationGormRepository) FindByID(ctx context.Context, id int64) (model.Conversation, error) {
	var c model.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if isNotFound(err) {
		return model.Conversation{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Conversation{}, err
	}
	return c, nil
}

// (listing, buyer)で1件。無ければ作る。
func (r *ConversationGormRepository) FindOrCreate(ctx context.Context, listingID, buyerID, sellerID int64) (model.Conversation, error) {
	c := model.Conversation{
		ListingID:     listingID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		LastMessageAt: time.Now(),
	}

	//同時作成は一意制約で1件に寄せる
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "listing_id"}, {Name: "buyer_id"}},
			DoNothing: true,
		}).
		Create(&c).Error
	if err != nil {
		return model.Conversation{}, err
	}

	var found model.Conversation
	err = r.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ?", listingID, buyerID).
		First(&found).Error
	if err != nil {
		return model.Conversation{}, err
	}
	return found, nil
}

// 会話一覧（最新メッセージ順）
func (r *ConversationGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.ConversationSummary, error) {
	var rows []model.ConversationSummary

	err := r.db.WithContext(ctx).
		Table("conversations AS c").
		Select(`c.*,
			l.title AS listing_title,
			TRIM(u.name || ' ' || u.surname) AS other_name,
			COALESCE((SELECT m.body FROM messages m WHERE m.conversation_id = c.id ORDER BY m.id DESC LIMIT 1), '') AS last_message,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id AND m.sender_id <> ? AND m.read_at IS NULL) AS unread_count`, userID).
		Joins("JOIN listings l ON l.id = c.listing_id").
		Joins("JOIN users u ON u.id = CASE WHEN c.buyer_id = ? THEN c.seller_id ELSE c.buyer_id END", userID).
		Where("c.buyer_id = ? OR c.seller_id = ?", userID, userID).
		Order("c.last_message_at desc").
		Scan(&rows).Error
	if err != nil {
		return []model.ConversationSummary{}, err
	}
	return rows, nil
}

// 最終メッセージ時刻を更新
func (r *ConversationGormRepository) Touch(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("last_message_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type MessageGormRepository struct {
	db *gorm.DB
}

func NewMessageGormRepository(db *gorm.DB) *MessageGormRepository {
	return &MessageGormRepository{db: db}
}

func (r *MessageGormRepository) Create(ctx context.Context, m model.Message) (model.Message, error) {
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return model.Message{}, err
	}
	return m, nil
}

func (r *MessageGormRepository) ListByConversationID(ctx context.Context, conversationID int64) ([]model.Message, error) {
	var items []model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.Message{}, err
	}
	return items, nil
}

func (r *MessageGormRepository) MarkRead(ctx context.Context, conversationID int64, readerID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, readerID).
		Update("read_at", time.Now()).Error
}

// ヘッダー表示用の未読数
func (r *MessageGormRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Table("messages AS m").
		Joins("JOIN conversations c ON c.id = m.conversation_id").
		Where("(c.buyer_id = ? OR c.seller_id = ?) AND m.sender_id <> ? AND m.read_at IS NULL", userID, userID, userID).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}
