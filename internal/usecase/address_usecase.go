package usecase

import (
	"context"
	"errors"
	"time"

	"peercart/internal/domain/model"
	repo "peercart/internal/repository"
	"peercart/internal/validator"

	"go.uber.org/zap"
)

// 住所帳（設定画面）
type AddressUsecase struct {
	addresses repo.AddressRepository
	clock     Clock
	log       *zap.Logger
	debug     bool
}

func NewAddressUsecase(addresses repo.AddressRepository, clock Clock, log *zap.Logger, debug bool) *AddressUsecase {
	return &AddressUsecase{addresses: addresses, clock: clock, log: log, debug: debug}
}

// デフォルトが先頭
func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]model.Address, error) {
	if userID <= 0 {
		return nil, errUnauthorized
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		u.log.Error("list addresses failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, dbError("Could not load addresses", err, u.debug)
	}
	return list, nil
}

// 最初の住所はデフォルトになる
func (u *AddressUsecase) Create(ctx context.Context, userID int64, f validator.AddressForm) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, errUnauthorized
	}

	//入力チェック
	if errs := validator.ValidateAddress(f, "Address"); len(errs) > 0 {
		return model.Address{}, errs
	}

	existing, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		u.log.Error("list addresses failed", zap.Int64("user_id", userID), zap.Error(err))
		return model.Address{}, dbError("Could not save address", err, u.debug)
	}

	now := u.clock.Now()
	a := addressFromSnapshot(userID, f.Snapshot(), now)
	a.IsDefault = len(existing) == 0

	created, err := u.addresses.Create(ctx, a)
	if err != nil {
		u.log.Error("create address failed", zap.Int64("user_id", userID), zap.Error(err))
		return model.Address{}, dbError("Could not save address", err, u.debug)
	}
	return created, nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, f validator.AddressForm) error {
	if err := u.checkOwner(ctx, userID, addressID); err != nil {
		return err
	}
	if errs := validator.ValidateAddress(f, "Address"); len(errs) > 0 {
		return errs
	}

	a := addressFromSnapshot(userID, f.Snapshot(), u.clock.Now())
	a.ID = addressID
	if err := u.addresses.Update(ctx, a); err != nil {
		return u.writeErr("update address failed", addressID, err)
	}
	return nil
}

// デフォルトを消したら残りの先頭をデフォルトにする
func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if err := u.checkOwner(ctx, userID, addressID); err != nil {
		return err
	}

	a, err := u.addresses.FindByID(ctx, addressID)
	if err != nil {
		return u.writeErr("find address failed", addressID, err)
	}
	if err := u.addresses.Delete(ctx, addressID); err != nil {
		return u.writeErr("delete address failed", addressID, err)
	}
	if !a.IsDefault {
		return nil
	}

	rest, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil || len(rest) == 0 {
		return nil
	}
	if err := u.addresses.SetDefault(ctx, userID, rest[0].ID); err != nil {
		u.log.Warn("promote default address failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

// user内でdefaultは1つ
func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if err := u.checkOwner(ctx, userID, addressID); err != nil {
		return err
	}
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		return u.writeErr("set default address failed", addressID, err)
	}
	return nil
}

// 他人の住所は見つからない扱い
func (u *AddressUsecase) checkOwner(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return errUnauthorized
	}
	if addressID <= 0 {
		return errNotFound
	}

	owned, err := u.addresses.IsOwnedByUser(ctx, addressID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound
	}
	if err != nil {
		u.log.Error("address owner check failed", zap.Int64("address_id", addressID), zap.Error(err))
		return dbError("Could not load address", err, u.debug)
	}
	if !owned {
		return errNotFound
	}
	return nil
}

func (u *AddressUsecase) writeErr(msg string, addressID int64, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound
	}
	u.log.Error(msg, zap.Int64("address_id", addressID), zap.Error(err))
	return dbError("Could not save address", err, u.debug)
}

func addressFromSnapshot(userID int64, s model.AddressSnapshot, now time.Time) model.Address {
	return model.Address{
		UserID:      userID,
		FullName:    s.FullName,
		Phone:       s.Phone,
		HouseNumber: s.HouseNumber,
		StreetName:  s.StreetName,
		Suburb:      s.Suburb,
		City:        s.City,
		Province:    s.Province,
		PostalCode:  s.PostalCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
