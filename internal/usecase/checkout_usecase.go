package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"peercart/internal/domain/model"
	"peercart/internal/domain/pricing"
	repo "peercart/internal/repository"
	"peercart/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// チェックアウトの状態
type CheckoutState string

const (
	CheckoutAwaitingInput    CheckoutState = "AWAITING_INPUT"
	CheckoutValidating       CheckoutState = "VALIDATING"
	CheckoutCommitting       CheckoutState = "COMMITTING"
	CheckoutSucceeded        CheckoutState = "SUCCEEDED"
	CheckoutFailedValidation CheckoutState = "FAILED_VALIDATION"
	CheckoutFailedCommit     CheckoutState = "FAILED_COMMIT"
)

// 失敗したら入力画面に戻る
func (s CheckoutState) Failed() bool {
	return s == CheckoutFailedValidation || s == CheckoutFailedCommit
}

type CheckoutInput struct {
	Shipping validator.AddressForm
	// falseなら請求先は配送先と同じ
	BillingDifferent bool
	Billing          validator.AddressForm
	AcceptTerms      bool
	SkipSaveAddress  bool
	Notes            string
	IdempotencyKey   string
	DiscountCode     string
}

// チェックアウト画面の表示用
type CheckoutPage struct {
	Cart           CartView
	Totals         pricing.Totals
	Problems       ValidationErrors
	IdempotencyKey string
	Prefill        validator.AddressForm
	Addresses      []model.Address
}

type CheckoutResult struct {
	State    CheckoutState
	Order    model.Order
	Items    []model.OrderItem
	Errors   ValidationErrors
	Replayed bool
}

// トランザクション内で起きた、画面にそのまま出せる失敗
type commitError struct {
	msg string
}

func (e *commitError) Error() string { return e.msg }

type CheckoutUsecase struct {
	tx        repo.TransactionManager
	cart      *CartUsecase
	users     repo.UserRepository
	addresses repo.AddressRepository
	orders    repo.OrderRepository
	items     repo.OrderItemRepository
	cache     repo.ListingCache
	numbers   OrderNumberGenerator
	clock     Clock
	log       *zap.Logger
	debug     bool
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	cart *CartUsecase,
	users repo.UserRepository,
	addresses repo.AddressRepository,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	cache repo.ListingCache,
	numbers OrderNumberGenerator,
	clock Clock,
	log *zap.Logger,
	debug bool,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:        tx,
		cart:      cart,
		users:     users,
		addresses: addresses,
		orders:    orders,
		items:     items,
		cache:     cache,
		numbers:   numbers,
		clock:     clock,
		log:       log,
		debug:     debug,
	}
}

// Prepare は入力画面を作る。カートに問題があればProblemsに入れて返す（カート画面へ戻す）。
func (u *CheckoutUsecase) Prepare(ctx context.Context, userID int64, discountCode string) (CheckoutPage, error) {
	if userID <= 0 {
		return CheckoutPage{}, errUnauthorized
	}

	view, err := u.cart.Load(ctx, CartOwner{UserID: userID})
	if err != nil {
		return CheckoutPage{}, err
	}

	page := CheckoutPage{
		Cart:           view,
		Totals:         pricing.CheckoutTotals(view.PricingLines(), discountCode),
		Problems:       view.Problems(),
		IdempotencyKey: uuid.NewString(),
	}
	if len(page.Problems) > 0 {
		return page, nil
	}

	//プロフィールの住所を初期値に
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		u.log.Error("checkout user load failed", zap.Int64("user_id", userID), zap.Error(err))
		return CheckoutPage{}, dbError("could not load checkout", err, u.debug)
	}
	house, street := model.SplitStreetAddress(user.StreetAddress)
	if strings.TrimSpace(user.StreetAddress) == "" {
		house, street = "", ""
	}
	page.Prefill = validator.AddressForm{
		FullName:    user.FullName(),
		Phone:       user.Phone,
		HouseNumber: house,
		StreetName:  street,
		Suburb:      user.Suburb,
		City:        user.City,
		Province:    user.Province,
		PostalCode:  user.PostalCode,
	}

	addrs, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		u.log.Warn("checkout addresses load failed", zap.Int64("user_id", userID), zap.Error(err))
		addrs = []model.Address{}
	}
	page.Addresses = addrs

	return page, nil
}

func (u *CheckoutUsecase) transition(res *CheckoutResult, userID int64, next CheckoutState) {
	u.log.Debug("checkout state",
		zap.Int64("user_id", userID),
		zap.String("from", string(res.State)),
		zap.String("to", string(next)),
	)
	res.State = next
}

// Submit は入力検証から注文確定までを行う。
// 失敗はresのStateとErrorsで返す（errはログイン切れなど）。
func (u *CheckoutUsecase) Submit(ctx context.Context, userID int64, in CheckoutInput) (CheckoutResult, error) {
	res := CheckoutResult{State: CheckoutAwaitingInput}
	if userID <= 0 {
		return res, errUnauthorized
	}

	u.transition(&res, userID, CheckoutValidating)

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		res.Errors = ValidationErrors{"Your checkout form expired, please try again"}
		u.transition(&res, userID, CheckoutFailedValidation)
		return res, nil
	}

	//同じキーで確定済みなら同じ注文を返す
	if done, ok := u.replay(ctx, userID, key); ok {
		done.State = res.State
		u.transition(&done, userID, CheckoutSucceeded)
		return done, nil
	}

	if errs := validateCheckoutInput(in); len(errs) > 0 {
		res.Errors = errs
		u.transition(&res, userID, CheckoutFailedValidation)
		return res, nil
	}

	view, err := u.cart.Load(ctx, CartOwner{UserID: userID})
	if err != nil {
		return res, err
	}
	if problems := view.Problems(); len(problems) > 0 {
		res.Errors = problems
		u.transition(&res, userID, CheckoutFailedValidation)
		return res, nil
	}

	u.transition(&res, userID, CheckoutCommitting)

	order, items, err := u.commit(ctx, userID, key, in)
	if err != nil {
		//同じキーの同時送信で負けた側
		if errors.Is(err, repo.ErrConflict) {
			if done, ok := u.replay(ctx, userID, key); ok {
				done.State = res.State
				u.transition(&done, userID, CheckoutSucceeded)
				return done, nil
			}
		}

		res.Errors = ValidationErrors{u.commitFailureMessage(userID, err)}
		u.transition(&res, userID, CheckoutFailedCommit)
		return res, nil
	}

	//在庫が変わった出品のキャッシュを捨てる
	for _, it := range items {
		if err := u.cache.Invalidate(ctx, it.ListingID); err != nil {
			u.log.Warn("listing cache invalidate failed", zap.Int64("listing_id", it.ListingID), zap.Error(err))
		}
	}

	res.Order = order
	res.Items = items
	u.transition(&res, userID, CheckoutSucceeded)
	u.log.Info("order placed",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return res, nil
}

func (u *CheckoutUsecase) replay(ctx context.Context, userID int64, key string) (CheckoutResult, bool) {
	existing, found, err := u.orders.FindByIdempotencyKey(ctx, userID, key)
	if err != nil || !found {
		return CheckoutResult{}, false
	}
	items, err := u.items.ListByOrderID(ctx, existing.ID)
	if err != nil {
		return CheckoutResult{}, false
	}
	return CheckoutResult{Order: existing, Items: items, Replayed: true}, true
}

func (u *CheckoutUsecase) commitFailureMessage(userID int64, err error) string {
	var ce *commitError
	if errors.As(err, &ce) {
		u.log.Info("checkout rejected", zap.Int64("user_id", userID), zap.String("reason", ce.msg))
		return "Checkout failed: " + ce.msg
	}

	u.log.Error("checkout commit failed", zap.Int64("user_id", userID), zap.Error(err))
	msg := "Checkout failed: could not place your order"
	if u.debug {
		msg += ": " + err.Error()
	}
	return msg
}

func validateCheckoutInput(in CheckoutInput) ValidationErrors {
	errs := validator.ValidateAddress(in.Shipping, "Shipping")
	if in.BillingDifferent {
		errs = append(errs, validator.ValidateAddress(in.Billing, "Billing")...)
	}
	if !in.AcceptTerms {
		errs.Add("You must accept the terms and conditions")
	}
	if len(in.Notes) > 1000 {
		errs.Add("Order notes must be at most 1000 characters")
	}
	return errs
}

// 1つのトランザクションで注文を確定する。どこかで失敗したら全部rollback。
func (u *CheckoutUsecase) commit(ctx context.Context, userID int64, key string, in CheckoutInput) (model.Order, []model.OrderItem, error) {
	shipping := in.Shipping.Snapshot()
	billing := shipping
	if in.BillingDifferent {
		billing = in.Billing.Snapshot()
	}

	var order model.Order
	var orderItems []model.OrderItem

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cartItems, err := r.CartItems().ListByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return &commitError{msg: "your cart is empty"}
		}

		//(1) 在庫を確認しながら減らす
		lines := make([]pricing.Line, 0, len(cartItems))
		titles := make(map[int64]string, len(cartItems))
		for _, ci := range cartItems {
			l, err := r.Listings().FindByID(ctx, ci.ListingID)
			if errors.Is(err, repo.ErrNotFound) {
				return &commitError{msg: "a listing in your cart no longer exists"}
			}
			if err != nil {
				return err
			}
			if !l.IsAvailable() {
				return &commitError{msg: fmt.Sprintf("%s is no longer available", l.Title)}
			}

			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, l.ID, ci.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return &commitError{msg: fmt.Sprintf("insufficient stock for %s (requested %d)", l.Title, ci.Quantity)}
			}

			titles[l.ID] = l.Title
			lines = append(lines, pricing.Line{
				ListingID: l.ID,
				SellerID:  l.SellerID,
				Quantity:  ci.Quantity,
				UnitPrice: l.Price,
			})
		}

		//(2) 注文番号
		now := u.clock.Now()
		number, err := uniqueOrderNumber(ctx, r.Orders(), u.numbers, now)
		if err != nil {
			return err
		}

		//(3) 注文
		totals := pricing.CheckoutTotals(lines, in.DiscountCode)
		groups := pricing.GroupBySeller(lines)

		order = model.Order{
			OrderNumber:     number,
			BuyerID:         userID,
			PrimarySellerID: groups[0].SellerID,
			Status:          model.OrderStatusPending,
			PaymentStatus:   model.PaymentStatusPending,
			Subtotal:        totals.Subtotal,
			VATAmount:       totals.VATAmount,
			ShippingAmount:  totals.ShippingEstimate,
			DiscountAmount:  totals.DiscountAmount,
			TotalAmount:     totals.GrandTotal,
			ShippingAddress: shipping,
			BillingAddress:  billing,
			Notes:           strings.TrimSpace(in.Notes),
			IdempotencyKey:  key,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID

		//(4) 注文明細
		orderItems = make([]model.OrderItem, 0, len(lines))
		for _, l := range lines {
			orderItems = append(orderItems, model.OrderItem{
				ListingID:     l.ListingID,
				SellerID:      l.SellerID,
				TitleSnapshot: titles[l.ListingID],
				Quantity:      l.Quantity,
				UnitPrice:     l.UnitPrice,
				TotalPrice:    l.Total().Round(2),
				VATAmount:     pricing.LineVAT(l),
				CreatedAt:     now,
			})
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return err
		}

		//(5) 住所帳に保存（同じ住所があれば保存しない）
		if !in.SkipSaveAddress {
			if err := saveAddressIfNew(ctx, r.Addresses(), userID, shipping, now); err != nil {
				return err
			}
		}

		//(6) カートを空に
		if err := r.CartItems().ClearByUserID(ctx, userID); err != nil {
			return err
		}

		//(7) プロフィールの連絡先を配送先で上書き
		if err := r.Users().UpdateContact(ctx, userID, shipping.Phone, shipping); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return model.Order{}, nil, err
	}
	return order, orderItems, nil
}

func saveAddressIfNew(ctx context.Context, addresses repo.AddressRepository, userID int64, s model.AddressSnapshot, now time.Time) error {
	a := addressFromSnapshot(userID, s, now)

	_, found, err := addresses.FindExact(ctx, a)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	//最初の住所はデフォルトにする
	existing, err := addresses.ListByUserID(ctx, userID)
	if err != nil {
		return err
	}
	a.IsDefault = len(existing) == 0

	_, err = addresses.Create(ctx, a)
	return err
}
