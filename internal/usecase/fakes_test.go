package usecase

import (
	"context"
	"sort"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"
)

// テスト用のインメモリDB。WithinTxはエラーで状態を巻き戻す。
type memDB struct {
	users      map[int64]model.User
	prefs      map[int64]model.UserPreferences
	addresses  []model.Address
	listings   map[int64]model.ListingWithSeller
	cart       []model.CartItem
	orders     []model.Order
	orderItems []model.OrderItem
	audits     []model.AuditLog
	adjusts    []model.InventoryAdjustment
	guest      map[string][]repo.GuestCartLine

	// 在庫減算を失敗させる出品
	soldOut map[int64]bool

	nextID int64

	// 名前で指定した操作を失敗させる
	fail map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[int64]model.User{},
		prefs:    map[int64]model.UserPreferences{},
		listings: map[int64]model.ListingWithSeller{},
		guest:    map[string][]repo.GuestCartLine{},
		soldOut:  map[int64]bool{},
		nextID:   1000,
		fail:     map[string]error{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) failure(op string) error {
	return m.fail[op]
}

type memSnapshot struct {
	users      map[int64]model.User
	prefs      map[int64]model.UserPreferences
	addresses  []model.Address
	listings   map[int64]model.ListingWithSeller
	cart       []model.CartItem
	orders     []model.Order
	orderItems []model.OrderItem
	audits     []model.AuditLog
	adjusts    []model.InventoryAdjustment
}

func (m *memDB) snapshot() memSnapshot {
	s := memSnapshot{
		users:      map[int64]model.User{},
		prefs:      map[int64]model.UserPreferences{},
		listings:   map[int64]model.ListingWithSeller{},
		addresses:  append([]model.Address(nil), m.addresses...),
		cart:       append([]model.CartItem(nil), m.cart...),
		orders:     append([]model.Order(nil), m.orders...),
		orderItems: append([]model.OrderItem(nil), m.orderItems...),
		audits:     append([]model.AuditLog(nil), m.audits...),
		adjusts:    append([]model.InventoryAdjustment(nil), m.adjusts...),
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.prefs {
		s.prefs[k] = v
	}
	for k, v := range m.listings {
		s.listings[k] = v
	}
	return s
}

func (m *memDB) restore(s memSnapshot) {
	m.users = s.users
	m.prefs = s.prefs
	m.addresses = s.addresses
	m.listings = s.listings
	m.cart = s.cart
	m.orders = s.orders
	m.orderItems = s.orderItems
	m.audits = s.audits
	m.adjusts = s.adjusts
}

// --- tx ---

type memTx struct{ db *memDB }

func (t memTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	snap := t.db.snapshot()
	if err := fn(memRepos{db: t.db}); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type memRepos struct{ db *memDB }

func (r memRepos) Users() repo.UserRepository                  { return memUsers{r.db} }
func (r memRepos) Preferences() repo.UserPreferencesRepository { return memPrefs{r.db} }
func (r memRepos) Addresses() repo.AddressRepository           { return memAddresses{r.db} }
func (r memRepos) Listings() repo.ListingRepository            { return memListings{r.db} }
func (r memRepos) Inventory() repo.InventoryRepository         { return memInventory{r.db} }
func (r memRepos) CartItems() repo.CartItemRepository          { return memCart{r.db} }
func (r memRepos) Orders() repo.OrderRepository                { return memOrders{r.db} }
func (r memRepos) OrderItems() repo.OrderItemRepository        { return memOrderItems{r.db} }
func (r memRepos) AuditLogs() repo.AuditLogRepository          { return memAudits{r.db} }

// --- users ---

type memUsers struct{ db *memDB }

func (r memUsers) Create(ctx context.Context, u *model.User) error {
	if err := r.db.failure("users.create"); err != nil {
		return err
	}
	for _, x := range r.db.users {
		if x.Email == u.Email {
			return repo.ErrConflict
		}
	}
	u.ID = r.db.id()
	r.db.users[u.ID] = *u
	return nil
}

func (r memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := r.db.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.db.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := r.FindByEmail(ctx, email)
	return u != nil, nil
}

func (r memUsers) Update(ctx context.Context, u *model.User) error {
	if _, ok := r.db.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	r.db.users[u.ID] = *u
	return nil
}

func (r memUsers) UpdateContact(ctx context.Context, userID int64, phone string, s model.AddressSnapshot) error {
	if err := r.db.failure("users.update_contact"); err != nil {
		return err
	}
	u, ok := r.db.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	u.Phone = phone
	u.StreetAddress = s.StreetLine()
	u.Suburb = s.Suburb
	u.City = s.City
	u.Province = s.Province
	u.PostalCode = s.PostalCode
	r.db.users[userID] = u
	return nil
}

func (r memUsers) IncrementTokenVersion(ctx context.Context, userID int64) error {
	if err := r.db.failure("users.increment_token_version"); err != nil {
		return err
	}
	u, ok := r.db.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	u.TokenVersion++
	r.db.users[userID] = u
	return nil
}

type memPrefs struct{ db *memDB }

func (r memPrefs) Create(ctx context.Context, p model.UserPreferences) error {
	if err := r.db.failure("prefs.create"); err != nil {
		return err
	}
	p.ID = r.db.id()
	r.db.prefs[p.UserID] = p
	return nil
}

func (r memPrefs) FindByUserID(ctx context.Context, userID int64) (model.UserPreferences, error) {
	p, ok := r.db.prefs[userID]
	if !ok {
		return model.UserPreferences{}, repo.ErrNotFound
	}
	return p, nil
}

func (r memPrefs) Update(ctx context.Context, p model.UserPreferences) error {
	if _, ok := r.db.prefs[p.UserID]; !ok {
		return repo.ErrNotFound
	}
	r.db.prefs[p.UserID] = p
	return nil
}

// --- addresses ---

type memAddresses struct{ db *memDB }

func (r memAddresses) Create(ctx context.Context, a model.Address) (model.Address, error) {
	if err := r.db.failure("addresses.create"); err != nil {
		return model.Address{}, err
	}
	a.ID = r.db.id()
	r.db.addresses = append(r.db.addresses, a)
	return a, nil
}

func (r memAddresses) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	out := []model.Address{}
	for _, a := range r.db.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsDefault && !out[j].IsDefault })
	return out, nil
}

func (r memAddresses) FindByID(ctx context.Context, id int64) (model.Address, error) {
	for _, a := range r.db.addresses {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Address{}, repo.ErrNotFound
}

func (r memAddresses) FindExact(ctx context.Context, x model.Address) (model.Address, bool, error) {
	for _, a := range r.db.addresses {
		if a.UserID == x.UserID && a.Snapshot() == x.Snapshot() {
			return a, true, nil
		}
	}
	return model.Address{}, false, nil
}

func (r memAddresses) Update(ctx context.Context, x model.Address) error {
	for i, a := range r.db.addresses {
		if a.ID == x.ID {
			x.UserID = a.UserID
			x.IsDefault = a.IsDefault
			r.db.addresses[i] = x
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r memAddresses) Delete(ctx context.Context, id int64) error {
	for i, a := range r.db.addresses {
		if a.ID == id {
			r.db.addresses = append(r.db.addresses[:i], r.db.addresses[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r memAddresses) IsOwnedByUser(ctx context.Context, id, userID int64) (bool, error) {
	a, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return a.UserID == userID, nil
}

func (r memAddresses) SetDefault(ctx context.Context, userID, id int64) error {
	found := false
	for i, a := range r.db.addresses {
		if a.UserID != userID {
			continue
		}
		r.db.addresses[i].IsDefault = a.ID == id
		if a.ID == id {
			found = true
		}
	}
	if !found {
		return repo.ErrNotFound
	}
	return nil
}

// --- listings / inventory ---

type memListings struct{ db *memDB }

func (r memListings) ListPublic(ctx context.Context, q repo.ListingListQuery) ([]model.ListingWithSeller, int64, error) {
	out := []model.ListingWithSeller{}
	for _, l := range r.db.listings {
		if l.IsAvailable() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memListings) ListBySellerID(ctx context.Context, sellerID int64) ([]model.Listing, error) {
	out := []model.Listing{}
	for _, l := range r.db.listings {
		if l.SellerID == sellerID {
			out = append(out, l.Listing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memListings) FindByID(ctx context.Context, id int64) (model.Listing, error) {
	l, ok := r.db.listings[id]
	if !ok {
		return model.Listing{}, repo.ErrNotFound
	}
	return l.Listing, nil
}

func (r memListings) FindWithSeller(ctx context.Context, id int64) (model.ListingWithSeller, error) {
	l, ok := r.db.listings[id]
	if !ok || l.DeletedAt.Valid {
		return model.ListingWithSeller{}, repo.ErrNotFound
	}
	return l, nil
}

func (r memListings) FindByIDs(ctx context.Context, ids []int64) ([]model.ListingWithSeller, error) {
	if err := r.db.failure("listings.find_by_ids"); err != nil {
		return nil, err
	}
	out := []model.ListingWithSeller{}
	for _, id := range ids {
		if l, ok := r.db.listings[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r memListings) Create(ctx context.Context, l model.Listing) (model.Listing, error) {
	l.ID = r.db.id()
	seller := r.db.users[l.SellerID]
	r.db.listings[l.ID] = model.ListingWithSeller{Listing: l, SellerName: seller.FullName()}
	return l, nil
}

func (r memListings) Update(ctx context.Context, l model.Listing) error {
	cur, ok := r.db.listings[l.ID]
	if !ok || cur.SellerID != l.SellerID {
		return repo.ErrNotFound
	}
	cur.Title = l.Title
	cur.Description = l.Description
	cur.Category = l.Category
	cur.Condition = l.Condition
	cur.Price = l.Price
	cur.ImageURL = l.ImageURL
	r.db.listings[l.ID] = cur
	return nil
}

func (r memListings) UpdateStatus(ctx context.Context, id int64, status model.ListingStatus) error {
	cur, ok := r.db.listings[id]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Status = status
	r.db.listings[id] = cur
	return nil
}

type memInventory struct{ db *memDB }

func (r memInventory) DecreaseStockIfEnough(ctx context.Context, listingID int64, qty int64) (bool, error) {
	l, ok := r.db.listings[listingID]
	if !ok || r.db.soldOut[listingID] || l.Quantity < qty || l.Status != model.ListingStatusActive {
		return false, nil
	}
	l.Quantity -= qty
	r.db.listings[listingID] = l
	return true, nil
}

func (r memInventory) IncreaseStock(ctx context.Context, listingID int64, qty int64) error {
	l, ok := r.db.listings[listingID]
	if !ok {
		return repo.ErrNotFound
	}
	l.Quantity += qty
	r.db.listings[listingID] = l
	return nil
}

func (r memInventory) SetStockWithAdjustment(ctx context.Context, sellerID int64, listingID int64, newStock int64, reason string) (int64, error) {
	l, ok := r.db.listings[listingID]
	if !ok || l.SellerID != sellerID {
		return 0, repo.ErrNotFound
	}
	delta := newStock - l.Quantity
	l.Quantity = newStock
	r.db.listings[listingID] = l
	r.db.adjusts = append(r.db.adjusts, model.InventoryAdjustment{
		ID: r.db.id(), ListingID: listingID, SellerID: sellerID, Delta: delta, Reason: reason,
	})
	return delta, nil
}

// --- cart ---

type memCart struct{ db *memDB }

func (r memCart) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	out := []model.CartItem{}
	for _, c := range r.db.cart {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r memCart) FindByUserAndListing(ctx context.Context, userID int64, listingID int64) (model.CartItem, error) {
	for _, c := range r.db.cart {
		if c.UserID == userID && c.ListingID == listingID {
			return c, nil
		}
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (r memCart) UpsertQuantity(ctx context.Context, userID int64, listingID int64, addQty int64) error {
	for i, c := range r.db.cart {
		if c.UserID == userID && c.ListingID == listingID {
			r.db.cart[i].Quantity += addQty
			return nil
		}
	}
	r.db.cart = append(r.db.cart, model.CartItem{ID: r.db.id(), UserID: userID, ListingID: listingID, Quantity: addQty})
	return nil
}

func (r memCart) SetQuantity(ctx context.Context, userID int64, listingID int64, qty int64) error {
	for i, c := range r.db.cart {
		if c.UserID == userID && c.ListingID == listingID {
			r.db.cart[i].Quantity = qty
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r memCart) Delete(ctx context.Context, userID int64, listingID int64) error {
	for i, c := range r.db.cart {
		if c.UserID == userID && c.ListingID == listingID {
			r.db.cart = append(r.db.cart[:i], r.db.cart[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r memCart) ClearByUserID(ctx context.Context, userID int64) error {
	if err := r.db.failure("cart.clear"); err != nil {
		return err
	}
	kept := []model.CartItem{}
	for _, c := range r.db.cart {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	r.db.cart = kept
	return nil
}

func (r memCart) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for _, c := range r.db.cart {
		if c.UserID == userID {
			n += c.Quantity
		}
	}
	return n, nil
}

// --- guest cart ---

type memGuest struct{ db *memDB }

func (r memGuest) ListGuestCart(ctx context.Context, sid string) ([]repo.GuestCartLine, error) {
	return append([]repo.GuestCartLine{}, r.db.guest[sid]...), nil
}

func (r memGuest) AddGuestItem(ctx context.Context, sid string, listingID int64, qty int64) error {
	lines := r.db.guest[sid]
	for i, l := range lines {
		if l.ListingID == listingID {
			lines[i].Quantity += qty
			return nil
		}
	}
	r.db.guest[sid] = append(lines, repo.GuestCartLine{ListingID: listingID, Quantity: qty})
	return nil
}

func (r memGuest) SetGuestItem(ctx context.Context, sid string, listingID int64, qty int64) error {
	if qty <= 0 {
		return r.RemoveGuestItem(ctx, sid, listingID)
	}
	lines := r.db.guest[sid]
	for i, l := range lines {
		if l.ListingID == listingID {
			lines[i].Quantity = qty
			return nil
		}
	}
	r.db.guest[sid] = append(lines, repo.GuestCartLine{ListingID: listingID, Quantity: qty})
	return nil
}

func (r memGuest) RemoveGuestItem(ctx context.Context, sid string, listingID int64) error {
	lines := r.db.guest[sid]
	for i, l := range lines {
		if l.ListingID == listingID {
			r.db.guest[sid] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r memGuest) ClearGuestCart(ctx context.Context, sid string) error {
	delete(r.db.guest, sid)
	return nil
}

// --- orders ---

type memOrders struct{ db *memDB }

func (r memOrders) FindByID(ctx context.Context, id int64) (model.Order, error) {
	for _, o := range r.db.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r memOrders) ListByBuyerID(ctx context.Context, buyerID int64, page int, limit int) ([]model.Order, int64, error) {
	out := []model.Order{}
	for i := len(r.db.orders) - 1; i >= 0; i-- {
		if r.db.orders[i].BuyerID == buyerID {
			out = append(out, r.db.orders[i])
		}
	}
	return out, int64(len(out)), nil
}

func (r memOrders) Create(ctx context.Context, o model.Order) (int64, error) {
	if err := r.db.failure("orders.create"); err != nil {
		return 0, err
	}
	for _, x := range r.db.orders {
		if x.OrderNumber == o.OrderNumber || (x.BuyerID == o.BuyerID && x.IdempotencyKey == o.IdempotencyKey) {
			return 0, repo.ErrConflict
		}
	}
	o.ID = r.db.id()
	r.db.orders = append(r.db.orders, o)
	return o.ID, nil
}

func (r memOrders) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	for i, o := range r.db.orders {
		if o.ID == id {
			r.db.orders[i].Status = status
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r memOrders) ExistsOrderNumber(ctx context.Context, n string) (bool, error) {
	for _, o := range r.db.orders {
		if o.OrderNumber == n {
			return true, nil
		}
	}
	return false, nil
}

func (r memOrders) FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (model.Order, bool, error) {
	for _, o := range r.db.orders {
		if o.BuyerID == buyerID && o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

type memOrderItems struct{ db *memDB }

func (r memOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if err := r.db.failure("order_items.create"); err != nil {
		return err
	}
	for _, it := range items {
		it.ID = r.db.id()
		it.OrderID = orderID
		r.db.orderItems = append(r.db.orderItems, it)
	}
	return nil
}

func (r memOrderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	out := []model.OrderItem{}
	for _, it := range r.db.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r memOrderItems) ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]repo.SaleRow, int64, error) {
	out := []repo.SaleRow{}
	for _, it := range r.db.orderItems {
		if it.SellerID != sellerID {
			continue
		}
		o, _ := memOrders{r.db}.FindByID(ctx, it.OrderID)
		buyer := r.db.users[o.BuyerID]
		out = append(out, repo.SaleRow{OrderItem: it, OrderNumber: o.OrderNumber, OrderStatus: o.Status, BuyerName: buyer.FullName()})
	}
	return out, int64(len(out)), nil
}

type memAudits struct{ db *memDB }

func (r memAudits) Create(ctx context.Context, l model.AuditLog) error {
	if err := r.db.failure("audit.create"); err != nil {
		return err
	}
	l.ID = r.db.id()
	r.db.audits = append(r.db.audits, l)
	return nil
}

func (r memAudits) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	if err := r.db.failure("audit.list"); err != nil {
		return nil, 0, err
	}
	match := []model.AuditLog{}
	for i := len(r.db.audits) - 1; i >= 0; i-- {
		l := r.db.audits[i]
		switch {
		case f.ActorUserID > 0 && l.ActorUserID != f.ActorUserID,
			f.ResourceType != "" && l.ResourceType != f.ResourceType,
			f.ResourceID > 0 && l.ResourceID != f.ResourceID,
			f.Action != "" && l.Action != f.Action,
			!f.Since.IsZero() && l.CreatedAt.Before(f.Since),
			!f.Until.IsZero() && !l.CreatedAt.Before(f.Until):
			continue
		}
		match = append(match, l)
	}

	total := int64(len(match))
	if f.Offset >= len(match) {
		return []model.AuditLog{}, total, nil
	}
	match = match[f.Offset:]
	if f.Limit > 0 && len(match) > f.Limit {
		match = match[:f.Limit]
	}
	return match, total, nil
}

// --- listing cache ---

// 読み込みをそのまま通し、無効化だけ記録する
type memCache struct {
	invalidated []int64
}

func (c *memCache) Detail(ctx context.Context, id int64, load func(ctx context.Context) (model.ListingWithSeller, error)) (model.ListingWithSeller, error) {
	return load(ctx)
}

func (c *memCache) Browse(ctx context.Context, q repo.ListingListQuery, load func(ctx context.Context) (repo.ListingPage, error)) (repo.ListingPage, error) {
	return load(ctx)
}

func (c *memCache) Invalidate(ctx context.Context, id int64) error {
	c.invalidated = append(c.invalidated, id)
	return nil
}
