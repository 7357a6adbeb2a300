package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"github.com/redis/go-redis/v9"
)

// DraftStore は会員登録の途中データをTTL付きで保存する。
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DraftStore{client: client, ttl: ttl}
}

func draftKey(id string) string {
	return fmt.Sprintf("registration_draft:%s", id)
}

func (s *DraftStore) Save(ctx context.Context, d model.RegistrationDraft) error {
	if d.ID == "" {
		return errors.New("draft id is empty")
	}
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft failed: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(d.ID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *DraftStore) Find(ctx context.Context, id string) (model.RegistrationDraft, error) {
	b, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.RegistrationDraft{}, repo.ErrNotFound
	}
	if err != nil {
		return model.RegistrationDraft{}, fmt.Errorf("redis get failed: %w", err)
	}

	var d model.RegistrationDraft
	if err := json.Unmarshal(b, &d); err != nil {
		return model.RegistrationDraft{}, fmt.Errorf("unmarshal draft failed: %w", err)
	}
	return d, nil
}

func (s *DraftStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
