package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"
	"peercart/internal/validator"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 出品カテゴリ
var ListingCategories = []string{
	"Electronics",
	"Fashion",
	"Home & Garden",
	"Books",
	"Sports",
	"Toys",
	"Other",
}

// 商品の状態
var ListingConditions = []string{"new", "like_new", "good", "fair"}

const (
	defaultBrowseLimit = 12
	maxBrowseLimit     = 48
	maxTitleLen        = 255
	maxQueryLen        = 100
)

type ListingUsecase struct {
	listings repo.ListingRepository
	tx       repo.TransactionManager
	cache    repo.ListingCache
	log      *zap.Logger
	debug    bool
}

// DI
func NewListingUsecase(
	listings repo.ListingRepository,
	tx repo.TransactionManager,
	cache repo.ListingCache,
	log *zap.Logger,
	debug bool,
) *ListingUsecase {
	return &ListingUsecase{
		listings: listings,
		tx:       tx,
		cache:    cache,
		log:      log,
		debug:    debug,
	}
}

// GET /listings の入力（クエリ文字列のまま受け取る）
type BrowseInput struct {
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
	Q        string `query:"q"`
	Category string `query:"category"`
	MinPrice string `query:"min_price"`
	MaxPrice string `query:"max_price"`
	Sort     string `query:"sort"`
}

type BrowseOutput struct {
	Items []model.ListingWithSeller
	Total int64
	Page  int
	Limit int
	Pages int
	Query BrowseInput
}

func (o BrowseOutput) HasPrev() bool { return o.Page > 1 }
func (o BrowseOutput) HasNext() bool { return o.Page < o.Pages }

func parsePrice(s string, name string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil, NewHTTPError(http.StatusBadRequest, name+" must be a positive amount")
	}
	return &d, nil
}

// Browseは公開中の出品一覧
func (u *ListingUsecase) Browse(ctx context.Context, in BrowseInput) (BrowseOutput, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 {
		in.Limit = defaultBrowseLimit
	}
	if in.Limit > maxBrowseLimit {
		in.Limit = maxBrowseLimit
	}
	in.Q = strings.TrimSpace(in.Q)
	if validator.Len(in.Q) > maxQueryLen {
		return BrowseOutput{}, NewHTTPError(http.StatusBadRequest, "search is too long")
	}

	minPrice, err := parsePrice(in.MinPrice, "min price")
	if err != nil {
		return BrowseOutput{}, err
	}
	maxPrice, err := parsePrice(in.MaxPrice, "max price")
	if err != nil {
		return BrowseOutput{}, err
	}
	if minPrice != nil && maxPrice != nil && minPrice.GreaterThan(*maxPrice) {
		return BrowseOutput{}, NewHTTPError(http.StatusBadRequest, "min price must not exceed max price")
	}

	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "oldest":
	default:
		return BrowseOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	q := repo.ListingListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        in.Q,
		Category: strings.TrimSpace(in.Category),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     in.Sort,
	}
	page, err := u.cache.Browse(ctx, q, func(ctx context.Context) (repo.ListingPage, error) {
		items, total, err := u.listings.ListPublic(ctx, q)
		if err != nil {
			return repo.ListingPage{}, err
		}
		return repo.ListingPage{Items: items, Total: total}, nil
	})
	if err != nil {
		u.log.Error("browse listings failed", zap.Error(err))
		return BrowseOutput{}, dbError("Could not load listings", err, u.debug)
	}

	pages := int((page.Total + int64(in.Limit) - 1) / int64(in.Limit))
	if pages < 1 {
		pages = 1
	}
	return BrowseOutput{
		Items: page.Items,
		Total: page.Total,
		Page:  in.Page,
		Limit: in.Limit,
		Pages: pages,
		Query: in,
	}, nil
}

// Detailは出品詳細。非公開は出品者本人にだけ見せる。
func (u *ListingUsecase) Detail(ctx context.Context, listingID int64, viewerID int64) (model.ListingWithSeller, error) {
	if listingID <= 0 {
		return model.ListingWithSeller{}, errNotFound
	}

	l, err := u.cache.Detail(ctx, listingID, func(ctx context.Context) (model.ListingWithSeller, error) {
		return u.listings.FindWithSeller(ctx, listingID)
	})
	if errors.Is(err, repo.ErrNotFound) {
		return model.ListingWithSeller{}, errNotFound
	}
	if err != nil {
		u.log.Error("listing detail failed", zap.Int64("listing_id", listingID), zap.Error(err))
		return model.ListingWithSeller{}, dbError("Could not load listing", err, u.debug)
	}

	if !l.IsAvailable() && l.SellerID != viewerID {
		return model.ListingWithSeller{}, errNotFound
	}
	return l, nil
}

// SellerListingsは出品者自身の出品（非公開も含む）
func (u *ListingUsecase) SellerListings(ctx context.Context, sellerID int64) ([]model.Listing, error) {
	if sellerID <= 0 {
		return nil, errUnauthorized
	}
	items, err := u.listings.ListBySellerID(ctx, sellerID)
	if err != nil {
		u.log.Error("seller listings failed", zap.Int64("seller_id", sellerID), zap.Error(err))
		return nil, dbError("Could not load your listings", err, u.debug)
	}
	return items, nil
}

// 出品フォーム
type ListingForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Category    string `form:"category"`
	Condition   string `form:"condition"`
	Price       string `form:"price"`
	Quantity    string `form:"quantity"`
	ImageURL    string `form:"image_url"`
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ValidateListingFormは入力を検証して出品に変換する（IDと出品者は呼び出し側）
func ValidateListingForm(f ListingForm) (model.Listing, validator.Errors) {
	var errs validator.Errors
	l := model.Listing{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Category:    strings.TrimSpace(f.Category),
		Condition:   strings.TrimSpace(f.Condition),
		ImageURL:    strings.TrimSpace(f.ImageURL),
	}

	if errs.Require(l.Title, "Title is required") && validator.Len(l.Title) > maxTitleLen {
		errs.Add("Title must be at most 255 characters")
	}
	if l.Category != "" && !contains(ListingCategories, l.Category) {
		errs.Add("Category is not valid")
	}
	if l.Condition != "" && !contains(ListingConditions, l.Condition) {
		errs.Add("Condition is not valid")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil || !price.IsPositive() {
		errs.Add("Price must be greater than 0")
	} else if !price.Equal(price.Round(2)) {
		errs.Add("Price must have at most 2 decimal places")
	}
	l.Price = price

	qty, err := strconv.ParseInt(strings.TrimSpace(f.Quantity), 10, 64)
	if err != nil || qty < 0 {
		errs.Add("Quantity must be 0 or more")
	}
	l.Quantity = qty

	return l, errs
}

// Createは新規出品
func (u *ListingUsecase) Create(ctx context.Context, sellerID int64, f ListingForm) (model.Listing, error) {
	if sellerID <= 0 {
		return model.Listing{}, errUnauthorized
	}
	l, errs := ValidateListingForm(f)
	if len(errs) > 0 {
		return model.Listing{}, errs
	}

	l.SellerID = sellerID
	l.Status = model.ListingStatusActive
	created, err := u.listings.Create(ctx, l)
	if err != nil {
		u.log.Error("create listing failed", zap.Int64("seller_id", sellerID), zap.Error(err))
		return model.Listing{}, dbError("Could not save listing", err, u.debug)
	}

	u.invalidate(ctx, created.ID)
	return created, nil
}

// Updateは出品の編集。在庫が変わったら調整履歴と監査ログも残す。
func (u *ListingUsecase) Update(ctx context.Context, sellerID int64, listingID int64, f ListingForm) error {
	if sellerID <= 0 {
		return errUnauthorized
	}
	l, errs := ValidateListingForm(f)
	if len(errs) > 0 {
		return errs
	}
	l.ID = listingID
	l.SellerID = sellerID

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := u.ownedListing(ctx, r, sellerID, listingID)
		if err != nil {
			return err
		}
		if err := r.Listings().Update(ctx, l); err != nil {
			return err
		}
		if cur.Quantity == l.Quantity {
			return nil
		}
		return u.adjustStock(ctx, r, sellerID, cur, l.Quantity, "listing edited")
	})
	if err != nil {
		return u.writeErr("update listing failed", listingID, err)
	}

	u.invalidate(ctx, listingID)
	return nil
}

// UpdateStockは在庫数だけを変える
func (u *ListingUsecase) UpdateStock(ctx context.Context, sellerID int64, listingID int64, newStock int64, reason string) error {
	if sellerID <= 0 {
		return errUnauthorized
	}
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be 0 or more")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "stock updated"
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := u.ownedListing(ctx, r, sellerID, listingID)
		if err != nil {
			return err
		}
		return u.adjustStock(ctx, r, sellerID, cur, newStock, reason)
	})
	if err != nil {
		return u.writeErr("update stock failed", listingID, err)
	}

	u.invalidate(ctx, listingID)
	return nil
}

// SetStatusは公開・非公開・売り切れの切り替え
func (u *ListingUsecase) SetStatus(ctx context.Context, sellerID int64, listingID int64, status model.ListingStatus) error {
	if sellerID <= 0 {
		return errUnauthorized
	}
	switch status {
	case model.ListingStatusActive, model.ListingStatusInactive, model.ListingStatusSold:
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := u.ownedListing(ctx, r, sellerID, listingID)
		if err != nil {
			return err
		}
		if cur.Status == status {
			return nil
		}
		if err := r.Listings().UpdateStatus(ctx, listingID, status); err != nil {
			return err
		}

		//監査ログ（公開状態）
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  sellerID,
			Action:       model.AuditActionUpdateListingStatus,
			ResourceType: model.AuditResourceListing,
			ResourceID:   listingID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, cur.Status),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, status),
		})
	})
	if err != nil {
		return u.writeErr("update listing status failed", listingID, err)
	}

	u.invalidate(ctx, listingID)
	return nil
}

// 他人の出品は見つからない扱い
func (u *ListingUsecase) ownedListing(ctx context.Context, r repo.TxRepos, sellerID, listingID int64) (model.Listing, error) {
	cur, err := r.Listings().FindByID(ctx, listingID)
	if err != nil {
		return model.Listing{}, err
	}
	if cur.SellerID != sellerID || cur.DeletedAt.Valid {
		return model.Listing{}, repo.ErrNotFound
	}
	return cur, nil
}

func (u *ListingUsecase) adjustStock(ctx context.Context, r repo.TxRepos, sellerID int64, cur model.Listing, newStock int64, reason string) error {
	if _, err := r.Inventory().SetStockWithAdjustment(ctx, sellerID, cur.ID, newStock, reason); err != nil {
		return err
	}

	//監査ログ（在庫更新）
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  sellerID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceListing,
		ResourceID:   cur.ID,
		BeforeJSON:   fmt.Sprintf(`{"quantity":%d}`, cur.Quantity),
		AfterJSON:    fmt.Sprintf(`{"quantity":%d}`, newStock),
	})
}

func (u *ListingUsecase) writeErr(msg string, listingID int64, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound
	}
	u.log.Error(msg, zap.Int64("listing_id", listingID), zap.Error(err))
	return dbError("Could not save listing", err, u.debug)
}

// キャッシュ削除の失敗は表示を止めない（TTLで消える）
func (u *ListingUsecase) invalidate(ctx context.Context, listingID int64) {
	if err := u.cache.Invalidate(ctx, listingID); err != nil {
		u.log.Warn("listing cache invalidate failed", zap.Int64("listing_id", listingID), zap.Error(err))
	}
}
