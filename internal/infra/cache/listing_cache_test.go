package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCache(t *testing.T) (*ListingCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewListingCache(client, zap.NewNop()), mr
}

func sampleListing() model.ListingWithSeller {
	return model.ListingWithSeller{
		Listing: model.Listing{
			ID:       42,
			SellerID: 7,
			Title:    "Road bike",
			Price:    decimal.RequireFromString("4500.00"),
			Quantity: 1,
			Status:   model.ListingStatusActive,
		},
		SellerName: "Sipho Dlamini",
	}
}

func TestDetail_LoadsOnceThenServesFromCache(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	var calls int32
	load := func(ctx context.Context) (model.ListingWithSeller, error) {
		atomic.AddInt32(&calls, 1)
		return sampleListing(), nil
	}

	first, err := c.Detail(ctx, 42, load)
	require.NoError(t, err)
	assert.Equal(t, "Road bike", first.Title)
	assert.True(t, mr.Exists("listing:42"))

	second, err := c.Detail(ctx, 42, load)
	require.NoError(t, err)
	assert.Equal(t, "Sipho Dlamini", second.SellerName)
	assert.True(t, first.Price.Equal(second.Price))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDetail_LoadErrorIsNotCached(t *testing.T) {
	c, mr := setupCache(t)

	_, err := c.Detail(context.Background(), 1, func(ctx context.Context) (model.ListingWithSeller, error) {
		return model.ListingWithSeller{}, repo.ErrNotFound
	})
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.False(t, mr.Exists("listing:1"))
}

func TestDetail_ConcurrentMissesShareOneLoad(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) (model.ListingWithSeller, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return sampleListing(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Detail(ctx, 42, load)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBrowse_InvalidateBumpsGeneration(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	q := repo.ListingListQuery{Page: 1, Limit: 20}

	var calls int32
	load := func(ctx context.Context) (repo.ListingPage, error) {
		atomic.AddInt32(&calls, 1)
		return repo.ListingPage{Items: []model.ListingWithSeller{sampleListing()}, Total: 1}, nil
	}

	p, err := c.Browse(ctx, q, load)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Total)

	_, err = c.Browse(ctx, q, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = c.Detail(ctx, 42, func(ctx context.Context) (model.ListingWithSeller, error) {
		return sampleListing(), nil
	})
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, 42))
	assert.False(t, mr.Exists("listing:42"))

	_, err = c.Browse(ctx, q, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBrowse_FallsBackToLoadWhenRedisDown(t *testing.T) {
	c, mr := setupCache(t)
	mr.Close()

	p, err := c.Browse(context.Background(), repo.ListingListQuery{Page: 1}, func(ctx context.Context) (repo.ListingPage, error) {
		return repo.ListingPage{Total: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Total)
}

func TestDetail_CorruptEntryReloads(t *testing.T) {
	c, mr := setupCache(t)
	require.NoError(t, mr.Set("listing:42", "{not json"))

	got, err := c.Detail(context.Background(), 42, func(ctx context.Context) (model.ListingWithSeller, error) {
		return sampleListing(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}
