package repository

import (
	"context"

	repo "peercart/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	users       repo.UserRepository
	preferences repo.UserPreferencesRepository
	addresses   repo.AddressRepository
	listings    repo.ListingRepository
	inventory   repo.InventoryRepository
	cartItems   repo.CartItemRepository
	orders      repo.OrderRepository
	orderItems  repo.OrderItemRepository
	auditLogs   repo.AuditLogRepository
}

func (r *txReposGorm) Users() repo.UserRepository                  { return r.users }
func (r *txReposGorm) Preferences() repo.UserPreferencesRepository { return r.preferences }
func (r *txReposGorm) Addresses() repo.AddressRepository           { return r.addresses }
func (r *txReposGorm) Listings() repo.ListingRepository            { return r.listings }
func (r *txReposGorm) Inventory() repo.InventoryRepository         { return r.inventory }
func (r *txReposGorm) CartItems() repo.CartItemRepository          { return r.cartItems }
func (r *txReposGorm) Orders() repo.OrderRepository                { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository        { return r.orderItems }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository          { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			users:       NewUserGormRepository(tx),
			preferences: NewPreferencesGormRepository(tx),
			addresses:   NewAddressGormRepository(tx),
			listings:    NewListingGormRepository(tx),
			inventory:   NewInventoryGormRepository(tx),
			cartItems:   NewCartGormRepository(tx),
			orders:      NewOrderGormRepository(tx),
			orderItems:  NewOrderItemGormRepository(tx),
			auditLogs:   NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
