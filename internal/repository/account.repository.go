package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/pg"
)

// ErrInsufficientFunds is returned when a deduction would drive a balance
// negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

type AccountRepository struct {
	*pg.DB
}

func NewAccountRepository(db *pg.DB) *AccountRepository {
	return &AccountRepository{
		db,
	}
}

func (r *AccountRepository) Create(ctx context.Context, a *model.Account) (*model.Account, error) {
	entity := toAccountEntity(a)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toAccountModel(entity), nil
}

func (r *AccountRepository) Get(ctx context.Context, id int64) (*model.Account, error) {
	var entity AccountEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toAccountModel(&entity), nil
}

// Deduct atomically subtracts from the money balance, refusing to go
// negative.
func (r *AccountRepository) Deduct(ctx context.Context, id int64, amount float64) error {
	res := r.Write(ctx).WithContext(ctx).
		Model(&AccountEntity{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// DeductCredits atomically subtracts message credits, refusing to go
// negative.
func (r *AccountRepository) DeductCredits(ctx context.Context, id int64, credits int64) error {
	res := r.Write(ctx).WithContext(ctx).
		Model(&AccountEntity{}).
		Where("id = ? AND credit_balance >= ?", id, credits).
		Update("credit_balance", gorm.Expr("credit_balance - ?", credits))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}
