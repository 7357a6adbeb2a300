package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"peercart/internal/domain/model"
	"peercart/internal/domain/pricing"
	repo "peercart/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// カートの持ち主。ログイン中はUserID、未ログインはセッションID。
type CartOwner struct {
	UserID    int64
	SessionID string
}

func (o CartOwner) IsGuest() bool {
	return o.UserID <= 0
}

// 画面の1行
type CartLineView struct {
	ListingID int64
	SellerID  int64
	Title     string
	ImageURL  string
	UnitPrice decimal.Decimal
	Quantity  int64
	Stock     int64
	LineTotal decimal.Decimal
	// falseなら削除だけできる（合計には入らない）
	Available bool
	// 在庫より多く入っている（丸めずにそのまま表示）
	OverStock bool
}

func (l CartLineView) StockNote() string {
	switch {
	case !l.Available:
		return "No longer available"
	case l.OverStock:
		return fmt.Sprintf("Only %d left", l.Stock)
	default:
		return ""
	}
}

// 出品者ごとのまとまり
type SellerGroupView struct {
	SellerID   int64
	SellerName string
	Lines      []CartLineView
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
}

type CartView struct {
	Groups      []SellerGroupView
	Unavailable []CartLineView
	Totals      pricing.Totals
	ItemCount   int64
}

func (v CartView) IsEmpty() bool {
	return len(v.Groups) == 0 && len(v.Unavailable) == 0
}

// 計算対象の明細（購入できる行だけ）
func (v CartView) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0)
	for _, g := range v.Groups {
		for _, l := range g.Lines {
			lines = append(lines, pricing.Line{
				ListingID: l.ListingID,
				SellerID:  l.SellerID,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
			})
		}
	}
	return lines
}

// チェックアウトに進めない理由
func (v CartView) Problems() ValidationErrors {
	var errs ValidationErrors
	if len(v.Groups) == 0 {
		errs.Add("Your cart is empty")
	}
	for _, l := range v.Unavailable {
		errs.Add(fmt.Sprintf("%s is no longer available, please remove it", l.Title))
	}
	for _, g := range v.Groups {
		for _, l := range g.Lines {
			if l.OverStock {
				errs.Add(fmt.Sprintf("Only %d left of %s", l.Stock, l.Title))
			}
		}
	}
	return errs
}

type CartUsecase struct {
	cartItems repo.CartItemRepository
	guest     repo.GuestCartStore
	listings  repo.ListingRepository
	log       *zap.Logger
	debug     bool
}

func NewCartUsecase(
	cartItems repo.CartItemRepository,
	guest repo.GuestCartStore,
	listings repo.ListingRepository,
	log *zap.Logger,
	debug bool,
) *CartUsecase {
	return &CartUsecase{
		cartItems: cartItems,
		guest:     guest,
		listings:  listings,
		log:       log,
		debug:     debug,
	}
}

// カートを読み込み、出品情報と合わせて出品者ごとに分ける。
func (u *CartUsecase) Load(ctx context.Context, owner CartOwner) (CartView, error) {
	raw, err := u.rawLines(ctx, owner)
	if err != nil {
		return CartView{}, err
	}
	return u.build(ctx, raw)
}

func (u *CartUsecase) rawLines(ctx context.Context, owner CartOwner) ([]repo.GuestCartLine, error) {
	if owner.IsGuest() {
		if owner.SessionID == "" {
			return []repo.GuestCartLine{}, nil
		}
		lines, err := u.guest.ListGuestCart(ctx, owner.SessionID)
		if err != nil {
			u.log.Error("guest cart load failed", zap.Error(err))
			return nil, dbError("could not load cart", err, u.debug)
		}
		return lines, nil
	}

	items, err := u.cartItems.ListByUserID(ctx, owner.UserID)
	if err != nil {
		u.log.Error("cart load failed", zap.Int64("user_id", owner.UserID), zap.Error(err))
		return nil, dbError("could not load cart", err, u.debug)
	}
	lines := make([]repo.GuestCartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, repo.GuestCartLine{ListingID: it.ListingID, Quantity: it.Quantity})
	}
	return lines, nil
}

func (u *CartUsecase) build(ctx context.Context, raw []repo.GuestCartLine) (CartView, error) {
	view := CartView{
		Groups:      []SellerGroupView{},
		Unavailable: []CartLineView{},
	}
	if len(raw) == 0 {
		view.Totals = pricing.CartTotals(nil)
		return view, nil
	}

	ids := make([]int64, 0, len(raw))
	for _, l := range raw {
		ids = append(ids, l.ListingID)
	}
	listings, err := u.listings.FindByIDs(ctx, ids)
	if err != nil {
		u.log.Error("cart listings load failed", zap.Error(err))
		return CartView{}, dbError("could not load cart", err, u.debug)
	}
	byID := make(map[int64]model.ListingWithSeller, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	//購入できる行だけ計算に回す
	lines := make([]pricing.Line, 0, len(raw))
	views := make(map[int64]CartLineView, len(raw))
	sellerNames := make(map[int64]string)

	for _, r := range raw {
		view.ItemCount += r.Quantity

		l, ok := byID[r.ListingID]
		if !ok {
			view.Unavailable = append(view.Unavailable, CartLineView{
				ListingID: r.ListingID,
				Title:     "Removed listing",
				Quantity:  r.Quantity,
				Available: false,
			})
			continue
		}

		lv := CartLineView{
			ListingID: l.ID,
			SellerID:  l.SellerID,
			Title:     l.Title,
			ImageURL:  l.ImageURL,
			UnitPrice: l.Price,
			Quantity:  r.Quantity,
			Stock:     l.Quantity,
			LineTotal: l.Price.Mul(decimal.NewFromInt(r.Quantity)),
			Available: l.IsAvailable() && l.Quantity > 0,
		}
		if !lv.Available {
			view.Unavailable = append(view.Unavailable, lv)
			continue
		}
		lv.OverStock = r.Quantity > l.Quantity

		views[l.ID] = lv
		sellerNames[l.SellerID] = l.SellerName
		lines = append(lines, pricing.Line{
			ListingID: l.ID,
			SellerID:  l.SellerID,
			Quantity:  r.Quantity,
			UnitPrice: l.Price,
		})
	}

	for _, g := range pricing.GroupBySeller(lines) {
		gv := SellerGroupView{
			SellerID:   g.SellerID,
			SellerName: sellerNames[g.SellerID],
			Subtotal:   g.Subtotal(),
			Shipping:   pricing.SellerShipping(g),
		}
		for _, l := range g.Lines {
			gv.Lines = append(gv.Lines, views[l.ListingID])
		}
		view.Groups = append(view.Groups, gv)
	}
	view.Totals = pricing.CartTotals(lines)

	return view, nil
}

// 購入できる出品か確認して返す
func (u *CartUsecase) purchasable(ctx context.Context, owner CartOwner, listingID int64) (model.Listing, error) {
	if listingID <= 0 {
		return model.Listing{}, NewHTTPError(http.StatusBadRequest, "invalid listing")
	}
	l, err := u.listings.FindByID(ctx, listingID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Listing{}, errNotFound
	}
	if err != nil {
		u.log.Error("listing load failed", zap.Int64("listing_id", listingID), zap.Error(err))
		return model.Listing{}, dbError("could not update cart", err, u.debug)
	}
	if !l.IsAvailable() || l.Quantity <= 0 {
		return model.Listing{}, NewHTTPError(http.StatusBadRequest, "This listing is not available")
	}
	if !owner.IsGuest() && l.SellerID == owner.UserID {
		return model.Listing{}, NewHTTPError(http.StatusBadRequest, "You cannot buy your own listing")
	}
	return l, nil
}

func (u *CartUsecase) currentQuantity(ctx context.Context, owner CartOwner, listingID int64) (int64, error) {
	raw, err := u.rawLines(ctx, owner)
	if err != nil {
		return 0, err
	}
	for _, r := range raw {
		if r.ListingID == listingID {
			return r.Quantity, nil
		}
	}
	return 0, nil
}

// 同じ出品は数量を加算
func (u *CartUsecase) Add(ctx context.Context, owner CartOwner, listingID int64, qty int64) error {
	if qty < 1 {
		return NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	l, err := u.purchasable(ctx, owner, listingID)
	if err != nil {
		return err
	}

	existing, err := u.currentQuantity(ctx, owner, listingID)
	if err != nil {
		return err
	}
	if existing+qty > l.Quantity {
		return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Only %d left", l.Quantity))
	}

	if owner.IsGuest() {
		err = u.guest.AddGuestItem(ctx, owner.SessionID, listingID, qty)
	} else {
		err = u.cartItems.UpsertQuantity(ctx, owner.UserID, listingID, qty)
	}
	if err != nil {
		u.log.Error("cart add failed", zap.Int64("listing_id", listingID), zap.Error(err))
		return dbError("could not update cart", err, u.debug)
	}
	return nil
}

// 数量の上書き。0以下なら行を削除。
func (u *CartUsecase) Update(ctx context.Context, owner CartOwner, listingID int64, qty int64) error {
	if qty <= 0 {
		return u.Remove(ctx, owner, listingID)
	}
	l, err := u.purchasable(ctx, owner, listingID)
	if err != nil {
		return err
	}
	if qty > l.Quantity {
		return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Only %d left", l.Quantity))
	}

	if owner.IsGuest() {
		err = u.guest.SetGuestItem(ctx, owner.SessionID, listingID, qty)
	} else {
		err = u.cartItems.SetQuantity(ctx, owner.UserID, listingID, qty)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound
	}
	if err != nil {
		u.log.Error("cart update failed", zap.Int64("listing_id", listingID), zap.Error(err))
		return dbError("could not update cart", err, u.debug)
	}
	return nil
}

// 削除は出品の状態に関係なくできる
func (u *CartUsecase) Remove(ctx context.Context, owner CartOwner, listingID int64) error {
	var err error
	if owner.IsGuest() {
		err = u.guest.RemoveGuestItem(ctx, owner.SessionID, listingID)
	} else {
		err = u.cartItems.Delete(ctx, owner.UserID, listingID)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		u.log.Error("cart remove failed", zap.Int64("listing_id", listingID), zap.Error(err))
		return dbError("could not update cart", err, u.debug)
	}
	return nil
}

func (u *CartUsecase) Clear(ctx context.Context, owner CartOwner) error {
	var err error
	if owner.IsGuest() {
		err = u.guest.ClearGuestCart(ctx, owner.SessionID)
	} else {
		err = u.cartItems.ClearByUserID(ctx, owner.UserID)
	}
	if err != nil {
		u.log.Error("cart clear failed", zap.Error(err))
		return dbError("could not clear cart", err, u.debug)
	}
	return nil
}

// ヘッダーのカート件数
func (u *CartUsecase) Count(ctx context.Context, owner CartOwner) (int64, error) {
	if !owner.IsGuest() {
		return u.cartItems.CountByUserID(ctx, owner.UserID)
	}
	raw, err := u.rawLines(ctx, owner)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, r := range raw {
		n += r.Quantity
	}
	return n, nil
}

// ログイン・登録直後にゲストカートをユーザーのカートへ移す。
// 数量は合算して在庫で頭打ち。購入できない出品は捨てる。
func (u *CartUsecase) MergeGuestCart(ctx context.Context, sid string, userID int64) error {
	if sid == "" || userID <= 0 {
		return nil
	}

	guest, err := u.guest.ListGuestCart(ctx, sid)
	if err != nil {
		return err
	}
	if len(guest) == 0 {
		return nil
	}

	items, err := u.cartItems.ListByUserID(ctx, userID)
	if err != nil {
		return err
	}
	existing := make(map[int64]int64, len(items))
	for _, it := range items {
		existing[it.ListingID] = it.Quantity
	}

	ids := make([]int64, 0, len(guest))
	for _, g := range guest {
		ids = append(ids, g.ListingID)
	}
	listings, err := u.listings.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]model.ListingWithSeller, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	for _, g := range guest {
		l, ok := byID[g.ListingID]
		if !ok || !l.IsAvailable() || l.SellerID == userID {
			continue
		}
		target := existing[g.ListingID] + g.Quantity
		if target > l.Quantity {
			target = l.Quantity
		}
		add := target - existing[g.ListingID]
		if add <= 0 {
			continue
		}
		if err := u.cartItems.UpsertQuantity(ctx, userID, g.ListingID, add); err != nil {
			return err
		}
	}

	return u.guest.ClearGuestCart(ctx, sid)
}
