package session

import (
	"context"
	"testing"
	"time"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestRedisStore_SetGetRefreshesTTL(t *testing.T) {
	client, mr := setupRedis(t)
	s := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid1", repo.SessionKeyDiscountCode, "WELCOME"))

	v, err := s.Get(ctx, "sid1", repo.SessionKeyDiscountCode)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", v)
	assert.Equal(t, time.Hour, mr.TTL("session:sid1"))

	mr.FastForward(59 * time.Minute)
	require.NoError(t, s.Set(ctx, "sid1", repo.SessionKeyCartCount, "2"))
	assert.Equal(t, time.Hour, mr.TTL("session:sid1"))
}

func TestRedisStore_GetMissingIsEmpty(t *testing.T) {
	client, _ := setupRedis(t)
	s := NewRedisStore(client, time.Hour)

	v, err := s.Get(context.Background(), "nobody", repo.SessionKeyFlashMessage)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestRedisStore_PopReadsOnce(t *testing.T) {
	client, _ := setupRedis(t)
	s := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid1", repo.SessionKeyFlashMessage, "Order placed"))

	v, err := s.Pop(ctx, "sid1", repo.SessionKeyFlashMessage)
	require.NoError(t, err)
	assert.Equal(t, "Order placed", v)

	v, err = s.Pop(ctx, "sid1", repo.SessionKeyFlashMessage)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestRedisStore_DestroyRemovesCartToo(t *testing.T) {
	client, mr := setupRedis(t)
	s := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid1", repo.SessionKeyRedirectURL, "/checkout"))
	require.NoError(t, s.AddGuestItem(ctx, "sid1", 5, 1))

	require.NoError(t, s.Destroy(ctx, "sid1"))
	assert.False(t, mr.Exists("session:sid1"))
	assert.False(t, mr.Exists("session:sid1:cart"))
	assert.False(t, mr.Exists("session:sid1:cart:order"))
}

func TestGuestCart_AddAccumulatesAndSetReplaces(t *testing.T) {
	client, _ := setupRedis(t)
	s := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.AddGuestItem(ctx, "sid1", 9, 1))
	require.NoError(t, s.AddGuestItem(ctx, "sid1", 3, 2))
	require.NoError(t, s.AddGuestItem(ctx, "sid1", 9, 2))

	lines, err := s.ListGuestCart(ctx, "sid1")
	require.NoError(t, err)
	assert.Equal(t, []repo.GuestCartLine{
		{ListingID: 9, Quantity: 3},
		{ListingID: 3, Quantity: 2},
	}, lines)

	require.NoError(t, s.SetGuestItem(ctx, "sid1", 9, 1))
	require.NoError(t, s.SetGuestItem(ctx, "sid1", 3, 0))

	lines, err = s.ListGuestCart(ctx, "sid1")
	require.NoError(t, err)
	assert.Equal(t, []repo.GuestCartLine{{ListingID: 9, Quantity: 1}}, lines)
}

func TestGuestCart_KeepsAddOrder(t *testing.T) {
	client, mr := setupRedis(t)
	s := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.AddGuestItem(ctx, "sid1", 40, 1))
	require.NoError(t, s.AddGuestItem(ctx, "sid1", 7, 1))
	require.NoError(t, s.AddGuestItem(ctx, "sid1", 12, 1))
	// 数量を変えても位置は変わらない
	require.NoError(t, s.SetGuestItem(ctx, "sid1", 40, 4))
	require.NoError(t, s.AddGuestItem(ctx, "sid1", 7, 1))

	lines, err := s.ListGuestCart(ctx, "sid1")
	require.NoError(t, err)
	assert.Equal(t, []repo.GuestCartLine{
		{ListingID: 40, Quantity: 4},
		{ListingID: 7, Quantity: 2},
		{ListingID: 12, Quantity: 1},
	}, lines)

	// 消してから入れ直すと最後に並ぶ
	require.NoError(t, s.RemoveGuestItem(ctx, "sid1", 40))
	require.NoError(t, s.AddGuestItem(ctx, "sid1", 40, 1))

	lines, err = s.ListGuestCart(ctx, "sid1")
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 12, 40}, []int64{lines[0].ListingID, lines[1].ListingID, lines[2].ListingID})
	assert.Equal(t, time.Hour, mr.TTL("session:sid1:cart:order"))

	require.NoError(t, s.ClearGuestCart(ctx, "sid1"))
	lines, err = s.ListGuestCart(ctx, "sid1")
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.False(t, mr.Exists("session:sid1:cart:order"))
}

func TestGuestCart_AddRejectsNonPositive(t *testing.T) {
	client, _ := setupRedis(t)
	s := NewRedisStore(client, time.Hour)

	assert.Error(t, s.AddGuestItem(context.Background(), "sid1", 1, 0))
}

func TestDraftStore_RoundTripAndExpiry(t *testing.T) {
	client, mr := setupRedis(t)
	s := NewDraftStore(client, 30*time.Minute)
	ctx := context.Background()

	d := model.RegistrationDraft{
		ID:           "draft-1",
		Step:         1,
		Name:         "Thandi",
		Surname:      "Nkosi",
		Email:        "thandi@example.com",
		PasswordHash: "$2a$10$hash",
		UserType:     model.UserTypeSeller,
		Phone:        "0821234567",
	}
	require.NoError(t, s.Save(ctx, d))

	got, err := s.Find(ctx, "draft-1")
	require.NoError(t, err)
	assert.Equal(t, d.Email, got.Email)
	assert.Equal(t, model.UserTypeSeller, got.UserType)

	mr.FastForward(31 * time.Minute)
	_, err = s.Find(ctx, "draft-1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestDraftStore_SaveRequiresID(t *testing.T) {
	client, _ := setupRedis(t)
	s := NewDraftStore(client, time.Minute)

	assert.Error(t, s.Save(context.Background(), model.RegistrationDraft{}))
}
