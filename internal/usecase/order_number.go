package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	repo "peercart/internal/repository"
)

const (
	orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberRandLen  = 8
	// 衝突したときの再生成回数の上限
	maxOrderNumberAttempts = 50
)

var ErrOrderNumberExhausted = errors.New("could not generate a unique order number")

// 注文番号を作る約束（テストで差し替える）
type OrderNumberGenerator interface {
	Generate(now time.Time) (string, error)
}

// ORD-YYYYMMDD-XXXXXXXX
type RandomOrderNumberGenerator struct{}

func (RandomOrderNumberGenerator) Generate(now time.Time) (string, error) {
	b := make([]byte, orderNumberRandLen)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = orderNumberAlphabet[n.Int64()]
	}
	return "ORD-" + now.Format("20060102") + "-" + string(b), nil
}

// 使われていない番号が出るまで作り直す
func uniqueOrderNumber(ctx context.Context, orders repo.OrderRepository, gen OrderNumberGenerator, now time.Time) (string, error) {
	for i := 0; i < maxOrderNumberAttempts; i++ {
		n, err := gen.Generate(now)
		if err != nil {
			return "", err
		}
		exists, err := orders.ExistsOrderNumber(ctx, n)
		if err != nil {
			return "", err
		}
		if !exists {
			return n, nil
		}
	}
	return "", ErrOrderNumberExhausted
}
