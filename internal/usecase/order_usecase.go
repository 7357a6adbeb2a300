package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultOrderLimit = 10
	maxOrderLimit     = 100
)

// 購入履歴・売上・注文ステータス更新（ダッシュボード）
type OrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	items  repo.OrderItemRepository
	audits repo.AuditLogRepository
	cache  repo.ListingCache
	log    *zap.Logger
	debug  bool
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	audits repo.AuditLogRepository,
	cache repo.ListingCache,
	log *zap.Logger,
	debug bool,
) *OrderUsecase {
	return &OrderUsecase{
		tx:     tx,
		orders: orders,
		items:  items,
		audits: audits,
		cache:  cache,
		log:    log,
		debug:  debug,
	}
}

// 一覧ページ
type OrderPage struct {
	Orders []model.Order
	Total  int64
	Page   int
	Limit  int
}

type SalesPage struct {
	Rows  []repo.SaleRow
	Total int64
	Page  int
	Limit int
}

// 注文詳細
type OrderDetail struct {
	Order model.Order
	Items []model.OrderItem
	// 出品者（primary）として次に進められるステータス
	NextStatuses []model.OrderStatus
}

func (d OrderDetail) CanUpdate() bool {
	return len(d.NextStatuses) > 0
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultOrderLimit
	}
	if limit > maxOrderLimit {
		limit = maxOrderLimit
	}
	return page, limit
}

// BuyerOrdersは購入履歴（新しい順）
func (u *OrderUsecase) BuyerOrders(ctx context.Context, buyerID int64, page, limit int) (OrderPage, error) {
	if buyerID <= 0 {
		return OrderPage{}, errUnauthorized
	}
	page, limit = normalizePage(page, limit)

	orders, total, err := u.orders.ListByBuyerID(ctx, buyerID, page, limit)
	if err != nil {
		u.log.Error("list buyer orders failed", zap.Int64("buyer_id", buyerID), zap.Error(err))
		return OrderPage{}, dbError("Could not load your orders", err, u.debug)
	}
	return OrderPage{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// SellerSalesは自分が出品した商品の注文明細
func (u *OrderUsecase) SellerSales(ctx context.Context, sellerID int64, page, limit int) (SalesPage, error) {
	if sellerID <= 0 {
		return SalesPage{}, errUnauthorized
	}
	page, limit = normalizePage(page, limit)

	rows, total, err := u.items.ListBySellerID(ctx, sellerID, page, limit)
	if err != nil {
		u.log.Error("list seller sales failed", zap.Int64("seller_id", sellerID), zap.Error(err))
		return SalesPage{}, dbError("Could not load your sales", err, u.debug)
	}
	return SalesPage{Rows: rows, Total: total, Page: page, Limit: limit}, nil
}

// OrderDetailは買い手本人か、明細に出品者として含まれるユーザーだけが見られる。
// 出品者には自分の明細だけを返す。
func (u *OrderUsecase) OrderDetail(ctx context.Context, userID int64, orderID int64) (OrderDetail, error) {
	if userID <= 0 {
		return OrderDetail{}, errUnauthorized
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderDetail{}, errNotFound
	}
	if err != nil {
		u.log.Error("find order failed", zap.Int64("order_id", orderID), zap.Error(err))
		return OrderDetail{}, dbError("Could not load order", err, u.debug)
	}

	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		u.log.Error("list order items failed", zap.Int64("order_id", orderID), zap.Error(err))
		return OrderDetail{}, dbError("Could not load order", err, u.debug)
	}

	if o.BuyerID != userID {
		mine := make([]model.OrderItem, 0, len(items))
		for _, it := range items {
			if it.SellerID == userID {
				mine = append(mine, it)
			}
		}
		if len(mine) == 0 {
			return OrderDetail{}, errNotFound
		}
		items = mine
	}

	d := OrderDetail{Order: o, Items: items}
	if o.PrimarySellerID == userID {
		d.NextStatuses = nextStatuses(o.Status)
	}
	return d, nil
}

var allStatuses = []model.OrderStatus{
	model.OrderStatusProcessing,
	model.OrderStatusShipped,
	model.OrderStatusDelivered,
	model.OrderStatusCancelled,
}

func nextStatuses(s model.OrderStatus) []model.OrderStatus {
	out := []model.OrderStatus{}
	for _, n := range allStatuses {
		if s.CanTransitionTo(n) {
			out = append(out, n)
		}
	}
	return out
}

// UpdateStatusは出品者（primary）によるステータス更新。
// キャンセルなら在庫を戻す。更新ごとに監査ログを残す。
func (u *OrderUsecase) UpdateStatus(ctx context.Context, sellerID int64, orderID int64, status string) error {
	if sellerID <= 0 {
		return errUnauthorized
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid order")
	}

	next := model.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	switch next {
	case model.OrderStatusPending, model.OrderStatusProcessing, model.OrderStatusShipped,
		model.OrderStatusDelivered, model.OrderStatusCancelled:
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var restocked []int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		restocked = nil

		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound
		}
		if err != nil {
			return err
		}
		if o.PrimarySellerID != sellerID {
			return errForbidden
		}

		// すでに同じなら何もしない
		if o.Status == next {
			return nil
		}
		if !o.Status.CanTransitionTo(next) {
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot change order from %s to %s", o.Status, next))
		}

		// キャンセルのときだけ在庫戻し
		if next == model.OrderStatusCancelled {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return err
			}
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ListingID, it.Quantity); err != nil {
					return err
				}
				restocked = append(restocked, it.ListingID)
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, next); err != nil {
			return err
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  sellerID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, o.Status),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, next),
		})
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return err
		}
		u.log.Error("update order status failed", zap.Int64("order_id", orderID), zap.Error(err))
		return dbError("Could not update order", err, u.debug)
	}

	for _, id := range restocked {
		if err := u.cache.Invalidate(ctx, id); err != nil {
			u.log.Warn("listing cache invalidate failed", zap.Int64("listing_id", id), zap.Error(err))
		}
	}
	return nil
}

// 出品者の操作履歴（在庫・公開状態・注文ステータスの変更）の絞り込み
type ActivityQuery struct {
	Resource   string // listing / order
	ResourceID int64
	Action     string
	From       string // YYYY-MM-DD
	To         string // YYYY-MM-DD（その日を含む）
	Page       int
}

type ActivityPage struct {
	Logs  []model.AuditLog
	Total int64
	Page  int
	Limit int
	Query ActivityQuery
}

const (
	activityLimit = 50
	dateLayout    = "2006-01-02"
)

var activityActions = map[model.AuditAction]bool{
	model.AuditActionUpdateStock:         true,
	model.AuditActionUpdateListingStatus: true,
	model.AuditActionUpdateOrderStatus:   true,
}

// filterは入力を整えてrepositoryの条件にする
func (q *ActivityQuery) filter(sellerID int64) (repo.AuditLogFilter, ValidationErrors) {
	var errs ValidationErrors
	f := repo.AuditLogFilter{ActorUserID: sellerID, Limit: activityLimit}

	q.Resource = strings.ToLower(strings.TrimSpace(q.Resource))
	switch model.AuditResourceType(q.Resource) {
	case "":
	case model.AuditResourceListing, model.AuditResourceOrder:
		f.ResourceType = model.AuditResourceType(q.Resource)
	default:
		errs.Add("Unknown activity type")
	}
	if q.ResourceID > 0 {
		f.ResourceID = q.ResourceID
	}

	q.Action = strings.ToUpper(strings.TrimSpace(q.Action))
	if q.Action != "" {
		if !activityActions[model.AuditAction(q.Action)] {
			errs.Add("Unknown activity action")
		} else {
			f.Action = model.AuditAction(q.Action)
		}
	}

	if q.From = strings.TrimSpace(q.From); q.From != "" {
		t, err := time.ParseInLocation(dateLayout, q.From, time.UTC)
		if err != nil {
			errs.Add("From date must look like 2026-01-31")
		}
		f.Since = t
	}
	if q.To = strings.TrimSpace(q.To); q.To != "" {
		t, err := time.ParseInLocation(dateLayout, q.To, time.UTC)
		if err != nil {
			errs.Add("To date must look like 2026-01-31")
		} else {
			f.Until = t.AddDate(0, 0, 1)
		}
	}
	if len(errs) == 0 && !f.Since.IsZero() && !f.Until.IsZero() && !f.Since.Before(f.Until) {
		errs.Add("From date must not be after To date")
	}

	if q.Page <= 0 {
		q.Page = 1
	}
	f.Offset = (q.Page - 1) * activityLimit
	return f, errs
}

func (u *OrderUsecase) SellerActivity(ctx context.Context, sellerID int64, q ActivityQuery) (ActivityPage, error) {
	if sellerID <= 0 {
		return ActivityPage{}, errUnauthorized
	}
	f, errs := q.filter(sellerID)
	if len(errs) > 0 {
		return ActivityPage{}, errs
	}

	logs, total, err := u.audits.List(ctx, f)
	if err != nil {
		u.log.Error("audit log load failed", zap.Int64("seller_id", sellerID), zap.Error(err))
		return ActivityPage{}, dbError("could not load activity", err, u.debug)
	}
	return ActivityPage{Logs: logs, Total: total, Page: q.Page, Limit: activityLimit, Query: q}, nil
}
