package auth

import (
	"context"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// Mock: UserRepository
// =====================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateContact(ctx context.Context, userID int64, phone string, snapshot model.AddressSnapshot) error {
	args := m.Called(ctx, userID, phone, snapshot)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ================================
// Mock: UserPreferencesRepository
// ================================

type MockPreferencesRepository struct {
	mock.Mock
}

func (m *MockPreferencesRepository) Create(ctx context.Context, prefs model.UserPreferences) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

func (m *MockPreferencesRepository) FindByUserID(ctx context.Context, userID int64) (model.UserPreferences, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(model.UserPreferences)
	return p, args.Error(1)
}

func (m *MockPreferencesRepository) Update(ctx context.Context, prefs model.UserPreferences) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

// ========================
// Mock: AddressRepository
// ========================

type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) Create(ctx context.Context, a model.Address) (model.Address, error) {
	args := m.Called(ctx, a)
	out, _ := args.Get(0).(model.Address)
	return out, args.Error(1)
}

func (m *MockAddressRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]model.Address)
	return out, args.Error(1)
}

func (m *MockAddressRepository) FindByID(ctx context.Context, id int64) (model.Address, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(model.Address)
	return out, args.Error(1)
}

func (m *MockAddressRepository) FindExact(ctx context.Context, a model.Address) (model.Address, bool, error) {
	args := m.Called(ctx, a)
	out, _ := args.Get(0).(model.Address)
	return out, args.Bool(1), args.Error(2)
}

func (m *MockAddressRepository) Update(ctx context.Context, a model.Address) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAddressRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAddressRepository) IsOwnedByUser(ctx context.Context, addressID, userID int64) (bool, error) {
	args := m.Called(ctx, addressID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAddressRepository) SetDefault(ctx context.Context, userID, addressID int64) error {
	args := m.Called(ctx, userID, addressID)
	return args.Error(0)
}

// =============================
// Mock: RegistrationDraftStore
// =============================

type MockDraftStore struct {
	mock.Mock
}

func (m *MockDraftStore) Save(ctx context.Context, d model.RegistrationDraft) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDraftStore) Find(ctx context.Context, id string) (model.RegistrationDraft, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(model.RegistrationDraft)
	return d, args.Error(1)
}

func (m *MockDraftStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// =====================
// Fake: Transaction
// =====================

type fakeTxRepos struct {
	users     *MockUserRepository
	prefs     *MockPreferencesRepository
	addresses *MockAddressRepository
}

func (r fakeTxRepos) Users() repo.UserRepository                  { return r.users }
func (r fakeTxRepos) Preferences() repo.UserPreferencesRepository { return r.prefs }
func (r fakeTxRepos) Addresses() repo.AddressRepository           { return r.addresses }
func (r fakeTxRepos) Listings() repo.ListingRepository            { return nil }
func (r fakeTxRepos) Inventory() repo.InventoryRepository         { return nil }
func (r fakeTxRepos) CartItems() repo.CartItemRepository          { return nil }
func (r fakeTxRepos) Orders() repo.OrderRepository                { return nil }
func (r fakeTxRepos) OrderItems() repo.OrderItemRepository        { return nil }
func (r fakeTxRepos) AuditLogs() repo.AuditLogRepository          { return nil }

type fakeTx struct {
	repos fakeTxRepos
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	f.calls++
	return fn(f.repos)
}
