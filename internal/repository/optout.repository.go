package repository

import (
	"context"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/pg"
)

type OptOutRepository struct {
	*pg.DB
}

func NewOptOutRepository(db *pg.DB) *OptOutRepository {
	return &OptOutRepository{
		db,
	}
}

func (r *OptOutRepository) Create(ctx context.Context, o *model.OptOut) (*model.OptOut, error) {
	entity := toOptOutEntity(o)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toOptOutModel(entity), nil
}

// IsBlocked checks both the global list (account id 0) and the account's
// own list.
func (r *OptOutRepository) IsBlocked(ctx context.Context, accountID int64, number string) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&OptOutEntity{}).
		Where("number = ? AND account_id IN ?", number, []int64{0, accountID}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Remove lifts an account-scoped block. Global blocks stay.
func (r *OptOutRepository) Remove(ctx context.Context, accountID int64, number string) error {
	return r.Write(ctx).WithContext(ctx).
		Where("account_id = ? AND number = ?", accountID, number).
		Delete(&OptOutEntity{}).Error
}
