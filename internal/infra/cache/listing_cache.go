package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache miss")

// ListingCache は出品の詳細と一覧をRedisに短時間キャッシュする。
// 同じキーの同時ミスはsingleflightで1回の読み込みにまとめる。
type ListingCache struct {
	client  *redis.Client
	baseTTL time.Duration
	log     *zap.Logger
	sfg     singleflight.Group
}

func NewListingCache(client *redis.Client, log *zap.Logger) *ListingCache {
	return &ListingCache{
		client:  client,
		baseTTL: 60 * time.Second,
		log:     log,
	}
}

func detailKey(id int64) string {
	return fmt.Sprintf("listing:%d", id)
}

const browseGenKey = "listings:gen"

func browseKey(gen int64, q repo.ListingListQuery) string {
	min, max := "", ""
	if q.MinPrice != nil {
		min = q.MinPrice.String()
	}
	if q.MaxPrice != nil {
		max = q.MaxPrice.String()
	}
	return fmt.Sprintf("listings:%d:%d:%d:%s:%s:%s:%s:%s", gen, q.Page, q.Limit, q.Q, q.Category, min, max, q.Sort)
}

// Detail はキャッシュになければloadで読み込んで保存する。
func (c *ListingCache) Detail(ctx context.Context, id int64, load func(ctx context.Context) (model.ListingWithSeller, error)) (model.ListingWithSeller, error) {
	key := detailKey(id)

	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		var cached model.ListingWithSeller
		err := c.get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("listing cache get failed", zap.String("key", key), zap.Error(err))
		}

		l, err := load(ctx)
		if err != nil {
			return model.ListingWithSeller{}, err
		}
		c.set(ctx, key, l)
		return l, nil
	})
	if err != nil {
		return model.ListingWithSeller{}, err
	}
	return v.(model.ListingWithSeller), nil
}

// Browse は一覧ページのキャッシュ。世代番号を変えると全ページが無効になる。
func (c *ListingCache) Browse(ctx context.Context, q repo.ListingListQuery, load func(ctx context.Context) (repo.ListingPage, error)) (repo.ListingPage, error) {
	gen, err := c.client.Get(ctx, browseGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("listing cache generation read failed", zap.Error(err))
		return load(ctx)
	}
	key := browseKey(gen, q)

	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		var cached repo.ListingPage
		err := c.get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("listing cache get failed", zap.String("key", key), zap.Error(err))
		}

		p, err := load(ctx)
		if err != nil {
			return repo.ListingPage{}, err
		}
		c.set(ctx, key, p)
		return p, nil
	})
	if err != nil {
		return repo.ListingPage{}, err
	}
	return v.(repo.ListingPage), nil
}

// Invalidate は出品の変更後に呼ぶ。
func (c *ListingCache) Invalidate(ctx context.Context, id int64) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, detailKey(id))
		p.Incr(ctx, browseGenKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

func (c *ListingCache) get(ctx context.Context, key string, dst interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal listing failed: %w", err)
	}
	return nil
}

// 保存の失敗はログだけ（表示は続ける）
func (c *ListingCache) set(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("listing cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	jitter := time.Duration(rand.Intn(10)) * time.Second
	if err := c.client.Set(ctx, key, b, c.baseTTL+jitter).Err(); err != nil {
		c.log.Warn("listing cache set failed", zap.String("key", key), zap.Error(err))
	}
}
