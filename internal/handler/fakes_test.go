package handler

import (
	"context"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"
)

// テスト用のインメモリ店舗。WithinTxは巻き戻さない（失敗系はusecaseのテストで見る）。
type shopDB struct {
	users      map[int64]model.User
	listings   map[int64]model.ListingWithSeller
	cart       []model.CartItem
	addresses  []model.Address
	orders     []model.Order
	orderItems []model.OrderItem
	audits     []model.AuditLog
	nextID     int64
}

func newShopDB() *shopDB {
	return &shopDB{
		users:    map[int64]model.User{},
		listings: map[int64]model.ListingWithSeller{},
		nextID:   100,
	}
}

func (d *shopDB) id() int64 {
	d.nextID++
	return d.nextID
}

type shopTx struct{ db *shopDB }

func (t shopTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(shopRepos{t.db})
}

type shopRepos struct{ db *shopDB }

func (r shopRepos) Users() repo.UserRepository                  { return shopUsers{r.db} }
func (r shopRepos) Preferences() repo.UserPreferencesRepository { return nil }
func (r shopRepos) Addresses() repo.AddressRepository           { return shopAddresses{r.db} }
func (r shopRepos) Listings() repo.ListingRepository            { return shopListings{r.db} }
func (r shopRepos) Inventory() repo.InventoryRepository         { return shopInventory{r.db} }
func (r shopRepos) CartItems() repo.CartItemRepository          { return shopCart{r.db} }
func (r shopRepos) Orders() repo.OrderRepository                { return shopOrders{r.db} }
func (r shopRepos) OrderItems() repo.OrderItemRepository        { return shopOrderItems{r.db} }
func (r shopRepos) AuditLogs() repo.AuditLogRepository          { return shopAudits{r.db} }

// --- users ---

type shopUsers struct{ db *shopDB }

func (r shopUsers) Create(ctx context.Context, u *model.User) error {
	u.ID = r.db.id()
	r.db.users[u.ID] = *u
	return nil
}

func (r shopUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := r.db.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r shopUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.db.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r shopUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r shopUsers) Update(ctx context.Context, u *model.User) error {
	r.db.users[u.ID] = *u
	return nil
}

func (r shopUsers) UpdateContact(ctx context.Context, id int64, phone string, s model.AddressSnapshot) error {
	u, ok := r.db.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.Phone = phone
	u.City = s.City
	u.Province = s.Province
	u.PostalCode = s.PostalCode
	r.db.users[id] = u
	return nil
}

func (r shopUsers) IncrementTokenVersion(ctx context.Context, id int64) error {
	u := r.db.users[id]
	u.TokenVersion++
	r.db.users[id] = u
	return nil
}

// --- addresses ---

type shopAddresses struct{ db *shopDB }

func (r shopAddresses) Create(ctx context.Context, a model.Address) (model.Address, error) {
	a.ID = r.db.id()
	r.db.addresses = append(r.db.addresses, a)
	return a, nil
}

func (r shopAddresses) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	out := []model.Address{}
	for _, a := range r.db.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r shopAddresses) FindByID(ctx context.Context, id int64) (model.Address, error) {
	for _, a := range r.db.addresses {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Address{}, repo.ErrNotFound
}

func (r shopAddresses) FindExact(ctx context.Context, a model.Address) (model.Address, bool, error) {
	return model.Address{}, false, nil
}

func (r shopAddresses) Update(ctx context.Context, a model.Address) error { return nil }

func (r shopAddresses) Delete(ctx context.Context, id int64) error { return nil }

func (r shopAddresses) IsOwnedByUser(ctx context.Context, id, userID int64) (bool, error) {
	a, err := r.FindByID(ctx, id)
	if err != nil {
		return false, nil
	}
	return a.UserID == userID, nil
}

func (r shopAddresses) SetDefault(ctx context.Context, userID, id int64) error { return nil }

// --- listings ---

type shopListings struct{ db *shopDB }

func (r shopListings) ListPublic(ctx context.Context, q repo.ListingListQuery) ([]model.ListingWithSeller, int64, error) {
	return nil, 0, nil
}

func (r shopListings) ListBySellerID(ctx context.Context, sellerID int64) ([]model.Listing, error) {
	return nil, nil
}

func (r shopListings) FindByID(ctx context.Context, id int64) (model.Listing, error) {
	l, ok := r.db.listings[id]
	if !ok {
		return model.Listing{}, repo.ErrNotFound
	}
	return l.Listing, nil
}

func (r shopListings) FindWithSeller(ctx context.Context, id int64) (model.ListingWithSeller, error) {
	l, ok := r.db.listings[id]
	if !ok {
		return model.ListingWithSeller{}, repo.ErrNotFound
	}
	return l, nil
}

func (r shopListings) FindByIDs(ctx context.Context, ids []int64) ([]model.ListingWithSeller, error) {
	out := make([]model.ListingWithSeller, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.db.listings[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r shopListings) Create(ctx context.Context, l model.Listing) (model.Listing, error) {
	return l, nil
}

func (r shopListings) Update(ctx context.Context, l model.Listing) error { return nil }

func (r shopListings) UpdateStatus(ctx context.Context, id int64, status model.ListingStatus) error {
	return nil
}

type shopInventory struct{ db *shopDB }

func (r shopInventory) DecreaseStockIfEnough(ctx context.Context, listingID int64, qty int64) (bool, error) {
	l, ok := r.db.listings[listingID]
	if !ok || l.Quantity < qty {
		return false, nil
	}
	l.Quantity -= qty
	r.db.listings[listingID] = l
	return true, nil
}

func (r shopInventory) IncreaseStock(ctx context.Context, listingID int64, qty int64) error {
	l := r.db.listings[listingID]
	l.Quantity += qty
	r.db.listings[listingID] = l
	return nil
}

func (r shopInventory) SetStockWithAdjustment(ctx context.Context, sellerID int64, listingID int64, newStock int64, reason string) (int64, error) {
	return 0, nil
}

// 出品キャッシュ無し
type noCache struct{}

func (noCache) Detail(ctx context.Context, id int64, load func(ctx context.Context) (model.ListingWithSeller, error)) (model.ListingWithSeller, error) {
	return load(ctx)
}

func (noCache) Browse(ctx context.Context, q repo.ListingListQuery, load func(ctx context.Context) (repo.ListingPage, error)) (repo.ListingPage, error) {
	return load(ctx)
}

func (noCache) Invalidate(ctx context.Context, id int64) error { return nil }

// --- cart ---

type shopCart struct{ db *shopDB }

func (r shopCart) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	out := []model.CartItem{}
	for _, it := range r.db.cart {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r shopCart) FindByUserAndListing(ctx context.Context, userID int64, listingID int64) (model.CartItem, error) {
	for _, it := range r.db.cart {
		if it.UserID == userID && it.ListingID == listingID {
			return it, nil
		}
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (r shopCart) UpsertQuantity(ctx context.Context, userID int64, listingID int64, addQty int64) error {
	for i, it := range r.db.cart {
		if it.UserID == userID && it.ListingID == listingID {
			r.db.cart[i].Quantity += addQty
			return nil
		}
	}
	r.db.cart = append(r.db.cart, model.CartItem{ID: r.db.id(), UserID: userID, ListingID: listingID, Quantity: addQty})
	return nil
}

func (r shopCart) SetQuantity(ctx context.Context, userID int64, listingID int64, qty int64) error {
	for i, it := range r.db.cart {
		if it.UserID == userID && it.ListingID == listingID {
			r.db.cart[i].Quantity = qty
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r shopCart) Delete(ctx context.Context, userID int64, listingID int64) error {
	kept := r.db.cart[:0]
	for _, it := range r.db.cart {
		if it.UserID != userID || it.ListingID != listingID {
			kept = append(kept, it)
		}
	}
	r.db.cart = kept
	return nil
}

func (r shopCart) ClearByUserID(ctx context.Context, userID int64) error {
	kept := r.db.cart[:0]
	for _, it := range r.db.cart {
		if it.UserID != userID {
			kept = append(kept, it)
		}
	}
	r.db.cart = kept
	return nil
}

func (r shopCart) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for _, it := range r.db.cart {
		if it.UserID == userID {
			n += it.Quantity
		}
	}
	return n, nil
}

// --- orders ---

type shopOrders struct{ db *shopDB }

func (r shopOrders) FindByID(ctx context.Context, id int64) (model.Order, error) {
	for _, o := range r.db.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r shopOrders) ListByBuyerID(ctx context.Context, buyerID int64, page int, limit int) ([]model.Order, int64, error) {
	return nil, 0, nil
}

func (r shopOrders) Create(ctx context.Context, o model.Order) (int64, error) {
	o.ID = r.db.id()
	r.db.orders = append(r.db.orders, o)
	return o.ID, nil
}

func (r shopOrders) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	return nil
}

func (r shopOrders) ExistsOrderNumber(ctx context.Context, number string) (bool, error) {
	for _, o := range r.db.orders {
		if o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r shopOrders) FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (model.Order, bool, error) {
	for _, o := range r.db.orders {
		if o.BuyerID == buyerID && o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

type shopOrderItems struct{ db *shopDB }

func (r shopOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for _, it := range items {
		it.ID = r.db.id()
		it.OrderID = orderID
		r.db.orderItems = append(r.db.orderItems, it)
	}
	return nil
}

func (r shopOrderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	out := []model.OrderItem{}
	for _, it := range r.db.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r shopOrderItems) ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]repo.SaleRow, int64, error) {
	return nil, 0, nil
}

// 未読は常に0
type noMessages struct{}

func (noMessages) Create(ctx context.Context, m model.Message) (model.Message, error) { return m, nil }

func (noMessages) ListByConversationID(ctx context.Context, conversationID int64) ([]model.Message, error) {
	return nil, nil
}

func (noMessages) MarkRead(ctx context.Context, conversationID int64, readerID int64) error {
	return nil
}

func (noMessages) CountUnread(ctx context.Context, userID int64) (int64, error) { return 0, nil }

// --- audit logs ---

type shopAudits struct{ db *shopDB }

func (r shopAudits) Create(ctx context.Context, l model.AuditLog) error {
	l.ID = r.db.id()
	r.db.audits = append(r.db.audits, l)
	return nil
}

func (r shopAudits) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	out := []model.AuditLog{}
	for i := len(r.db.audits) - 1; i >= 0; i-- {
		l := r.db.audits[i]
		if l.ActorUserID != f.ActorUserID {
			continue
		}
		if f.ResourceType != "" && l.ResourceType != f.ResourceType {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}
