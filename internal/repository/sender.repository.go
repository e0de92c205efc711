package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/pg"
)

type SenderIDRepository struct {
	*pg.DB
}

func NewSenderIDRepository(db *pg.DB) *SenderIDRepository {
	return &SenderIDRepository{
		db,
	}
}

func (r *SenderIDRepository) Create(ctx context.Context, s *model.SenderID) (*model.SenderID, error) {
	entity := toSenderIDEntity(s)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toSenderIDModel(entity), nil
}

// GetDefault returns the account's default active sender identity, or nil
// when none is configured.
func (r *SenderIDRepository) GetDefault(ctx context.Context, accountID int64) (*model.SenderID, error) {
	var entity SenderIDEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("account_id = ? AND is_default = ? AND active = ?", accountID, true, true).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toSenderIDModel(&entity), nil
}

// FirstActive returns the account's oldest active sender identity, or nil
// when the account has none.
func (r *SenderIDRepository) FirstActive(ctx context.Context, accountID int64) (*model.SenderID, error) {
	var entity SenderIDEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("account_id = ? AND active = ?", accountID, true).
		Order("id ASC").
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toSenderIDModel(&entity), nil
}

// IsApproved reports whether the sender string is an active approved
// identity for the account.
func (r *SenderIDRepository) IsApproved(ctx context.Context, accountID int64, sender string) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&SenderIDEntity{}).
		Where("account_id = ? AND sender = ? AND active = ?", accountID, sender, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
