package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"
	"peercart/internal/validator"

	"go.uber.org/zap"
)

const maxMessageLen = 2000

// 出品ごとの買い手・売り手のメッセージ
type MessageUsecase struct {
	convs    repo.ConversationRepository
	messages repo.MessageRepository
	listings repo.ListingRepository
	log      *zap.Logger
	debug    bool
}

func NewMessageUsecase(
	convs repo.ConversationRepository,
	messages repo.MessageRepository,
	listings repo.ListingRepository,
	log *zap.Logger,
	debug bool,
) *MessageUsecase {
	return &MessageUsecase{
		convs:    convs,
		messages: messages,
		listings: listings,
		log:      log,
		debug:    debug,
	}
}

// 会話画面
type ConversationView struct {
	Conversation model.Conversation
	Listing      model.Listing
	Messages     []model.Message
}

// ValidateMessageBodyは本文（前後の空白を除いて1〜2000文字）
func ValidateMessageBody(body string) (string, validator.Errors) {
	var errs validator.Errors
	body = strings.TrimSpace(body)
	if errs.Require(body, "Message cannot be empty") && validator.Len(body) > maxMessageLen {
		errs.Add("Message must be at most 2000 characters")
	}
	return body, errs
}

// Inboxは自分が当事者の会話一覧
func (u *MessageUsecase) Inbox(ctx context.Context, userID int64) ([]model.ConversationSummary, error) {
	if userID <= 0 {
		return nil, errUnauthorized
	}
	items, err := u.convs.ListByUserID(ctx, userID)
	if err != nil {
		u.log.Error("list conversations failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, dbError("Could not load messages", err, u.debug)
	}
	return items, nil
}

// Openは会話を開き、相手からの未読を既読にする
func (u *MessageUsecase) Open(ctx context.Context, userID int64, conversationID int64) (ConversationView, error) {
	c, err := u.conversationFor(ctx, userID, conversationID)
	if err != nil {
		return ConversationView{}, err
	}

	if err := u.messages.MarkRead(ctx, c.ID, userID); err != nil {
		u.log.Warn("mark messages read failed", zap.Int64("conversation_id", c.ID), zap.Error(err))
	}

	msgs, err := u.messages.ListByConversationID(ctx, c.ID)
	if err != nil {
		u.log.Error("list messages failed", zap.Int64("conversation_id", c.ID), zap.Error(err))
		return ConversationView{}, dbError("Could not load messages", err, u.debug)
	}

	//出品が消えていても会話は見られる
	l, err := u.listings.FindByID(ctx, c.ListingID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		u.log.Error("find listing failed", zap.Int64("listing_id", c.ListingID), zap.Error(err))
		return ConversationView{}, dbError("Could not load messages", err, u.debug)
	}

	return ConversationView{Conversation: c, Listing: l, Messages: msgs}, nil
}

// Startは出品ページから買い手が会話を始める。本文があれば送る。
func (u *MessageUsecase) Start(ctx context.Context, buyerID int64, listingID int64, body string) (model.Conversation, error) {
	if buyerID <= 0 {
		return model.Conversation{}, errUnauthorized
	}

	l, err := u.listings.FindByID(ctx, listingID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && l.DeletedAt.Valid) {
		return model.Conversation{}, errNotFound
	}
	if err != nil {
		u.log.Error("find listing failed", zap.Int64("listing_id", listingID), zap.Error(err))
		return model.Conversation{}, dbError("Could not start conversation", err, u.debug)
	}
	if l.SellerID == buyerID {
		return model.Conversation{}, NewHTTPError(http.StatusBadRequest, "You cannot message yourself")
	}

	var text string
	if strings.TrimSpace(body) != "" {
		var errs validator.Errors
		text, errs = ValidateMessageBody(body)
		if len(errs) > 0 {
			return model.Conversation{}, errs
		}
	}

	c, err := u.convs.FindOrCreate(ctx, listingID, buyerID, l.SellerID)
	if err != nil {
		u.log.Error("create conversation failed", zap.Int64("listing_id", listingID), zap.Error(err))
		return model.Conversation{}, dbError("Could not start conversation", err, u.debug)
	}

	if text != "" {
		if _, err := u.send(ctx, c, buyerID, text); err != nil {
			return model.Conversation{}, err
		}
	}
	return c, nil
}

// Sendは会話に1通送る
func (u *MessageUsecase) Send(ctx context.Context, userID int64, conversationID int64, body string) (model.Message, error) {
	text, errs := ValidateMessageBody(body)
	if len(errs) > 0 {
		return model.Message{}, errs
	}

	c, err := u.conversationFor(ctx, userID, conversationID)
	if err != nil {
		return model.Message{}, err
	}
	return u.send(ctx, c, userID, text)
}

// UnreadCountはヘッダー用。失敗しても0を返す。
func (u *MessageUsecase) UnreadCount(ctx context.Context, userID int64) int64 {
	if userID <= 0 {
		return 0
	}
	n, err := u.messages.CountUnread(ctx, userID)
	if err != nil {
		u.log.Warn("count unread failed", zap.Int64("user_id", userID), zap.Error(err))
		return 0
	}
	return n
}

func (u *MessageUsecase) send(ctx context.Context, c model.Conversation, senderID int64, text string) (model.Message, error) {
	m, err := u.messages.Create(ctx, model.Message{
		ConversationID: c.ID,
		SenderID:       senderID,
		Body:           text,
	})
	if err != nil {
		u.log.Error("send message failed", zap.Int64("conversation_id", c.ID), zap.Error(err))
		return model.Message{}, dbError("Could not send message", err, u.debug)
	}
	if err := u.convs.Touch(ctx, c.ID); err != nil {
		u.log.Warn("touch conversation failed", zap.Int64("conversation_id", c.ID), zap.Error(err))
	}
	return m, nil
}

// 当事者でなければ見つからない扱い
func (u *MessageUsecase) conversationFor(ctx context.Context, userID int64, conversationID int64) (model.Conversation, error) {
	if userID <= 0 {
		return model.Conversation{}, errUnauthorized
	}
	c, err := u.convs.FindByID(ctx, conversationID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Conversation{}, errNotFound
	}
	if err != nil {
		u.log.Error("find conversation failed", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return model.Conversation{}, dbError("Could not load messages", err, u.debug)
	}
	if !c.Involves(userID) {
		return model.Conversation{}, errNotFound
	}
	return c, nil
}
