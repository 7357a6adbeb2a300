package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	repo "peercart/internal/repository"

	"github.com/redis/go-redis/v9"
)

// ゲストカート（listingId -> 数量）。セッションと同じTTL。
// 追加順はorderのZSETに連番で持つ。

const cartSeqField = "_seq"

func cartOrderKey(sid string) string {
	return fmt.Sprintf("session:%s:cart:order", sid)
}

func (s *RedisStore) ListGuestCart(ctx context.Context, sid string) ([]repo.GuestCartLine, error) {
	var all *redis.MapStringStringCmd
	var order *redis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		all = p.HGetAll(ctx, cartKey(sid))
		order = p.ZRange(ctx, cartOrderKey(sid), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("guest cart get failed: %w", err)
	}

	rank := make(map[string]int, len(order.Val()))
	for i, member := range order.Val() {
		rank[member] = i
	}

	m := all.Val()
	lines := make([]repo.GuestCartLine, 0, len(m))
	ranks := make(map[int64]int, len(m))
	for k, v := range m {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.ParseInt(v, 10, 64)
		if err != nil || qty <= 0 {
			continue
		}
		r, ok := rank[k]
		if !ok {
			r = len(rank)
		}
		ranks[id] = r
		lines = append(lines, repo.GuestCartLine{ListingID: id, Quantity: qty})
	}

	sort.Slice(lines, func(i, j int) bool {
		ri, rj := ranks[lines[i].ListingID], ranks[lines[j].ListingID]
		if ri != rj {
			return ri < rj
		}
		return lines[i].ListingID < lines[j].ListingID
	})
	return lines, nil
}

func (s *RedisStore) AddGuestItem(ctx context.Context, sid string, listingID int64, qty int64) error {
	if qty <= 0 {
		return errors.New("invalid quantity")
	}
	err := s.putGuestItem(ctx, sid, listingID, func(p redis.Pipeliner, k, field string) {
		p.HIncrBy(ctx, k, field, qty)
	})
	if err != nil {
		return fmt.Errorf("guest cart add failed: %w", err)
	}
	return nil
}

func (s *RedisStore) SetGuestItem(ctx context.Context, sid string, listingID int64, qty int64) error {
	if qty <= 0 {
		return s.RemoveGuestItem(ctx, sid, listingID)
	}
	err := s.putGuestItem(ctx, sid, listingID, func(p redis.Pipeliner, k, field string) {
		p.HSet(ctx, k, field, qty)
	})
	if err != nil {
		return fmt.Errorf("guest cart set failed: %w", err)
	}
	return nil
}

// 既にある行は順番を変えない（ZADD NX）
func (s *RedisStore) putGuestItem(ctx context.Context, sid string, listingID int64, write func(p redis.Pipeliner, k, field string)) error {
	k, o := cartKey(sid), cartOrderKey(sid)
	field := strconv.FormatInt(listingID, 10)

	seq, err := s.client.HIncrBy(ctx, k, cartSeqField, 1).Result()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		write(p, k, field)
		p.ZAddNX(ctx, o, redis.Z{Score: float64(seq), Member: field})
		p.Expire(ctx, k, s.ttl)
		p.Expire(ctx, o, s.ttl)
		return nil
	})
	return err
}

func (s *RedisStore) RemoveGuestItem(ctx context.Context, sid string, listingID int64) error {
	field := strconv.FormatInt(listingID, 10)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, cartKey(sid), field)
		p.ZRem(ctx, cartOrderKey(sid), field)
		return nil
	})
	if err != nil {
		return fmt.Errorf("guest cart remove failed: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearGuestCart(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, cartKey(sid), cartOrderKey(sid)).Err(); err != nil {
		return fmt.Errorf("guest cart clear failed: %w", err)
	}
	return nil
}
