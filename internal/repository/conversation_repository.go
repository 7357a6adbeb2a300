package repository

import (
	"context"

	"peercart/internal/domain/model"
)

type ConversationRepository interface {
	FindByID(ctx context.Context, id int64) (model.Conversation, error)
	FindOrCreate(ctx context.Context, listingID, buyerID, sellerID int64) (model.Conversation, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.ConversationSummary, error)
	Touch(ctx context.Context, id int64) error
}

type MessageRepository interface {
	Create(ctx context.Context, m model.Message) (model.Message, error)
	ListByConversationID(ctx context.Context, conversationID int64) ([]model.Message, error)
	// 相手から来た未読を既読にする
	MarkRead(ctx context.Context, conversationID int64, readerID int64) error
	CountUnread(ctx context.Context, userID int64) (int64, error)
}
