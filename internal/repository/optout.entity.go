package repository

import (
	"time"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

type OptOutEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	AccountID int64     `db:"account_id" gorm:"column:account_id;not null;default:0;index"`
	Number    string    `db:"number"     gorm:"column:number;not null;index"`
	Reason    string    `db:"reason"     gorm:"column:reason"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (OptOutEntity) TableName() string {
	return "optouts"
}

func toOptOutEntity(o *model.OptOut) *OptOutEntity {
	if o == nil {
		return nil
	}
	return &OptOutEntity{
		ID:        o.ID,
		AccountID: o.AccountID,
		Number:    o.Number,
		Reason:    o.Reason,
		CreatedAt: o.CreatedAt,
	}
}

func toOptOutModel(e *OptOutEntity) *model.OptOut {
	if e == nil {
		return nil
	}
	return &model.OptOut{
		ID:        e.ID,
		AccountID: e.AccountID,
		Number:    e.Number,
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt,
	}
}
