package repository

import (
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

type SenderIDEntity struct {
	ID        int64  `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	AccountID int64  `db:"account_id" gorm:"column:account_id;not null;index"`
	Sender    string `db:"sender"     gorm:"column:sender;not null"`
	IsDefault bool   `db:"is_default" gorm:"column:is_default;not null;default:false"`
	Active    bool   `db:"active"     gorm:"column:active;not null;default:true"`
}

func (SenderIDEntity) TableName() string {
	return "sender_ids"
}

func toSenderIDEntity(s *model.SenderID) *SenderIDEntity {
	if s == nil {
		return nil
	}
	return &SenderIDEntity{
		ID:        s.ID,
		AccountID: s.AccountID,
		Sender:    s.Sender,
		IsDefault: s.IsDefault,
		Active:    s.Active,
	}
}

func toSenderIDModel(e *SenderIDEntity) *model.SenderID {
	if e == nil {
		return nil
	}
	return &model.SenderID{
		ID:        e.ID,
		AccountID: e.AccountID,
		Sender:    e.Sender,
		IsDefault: e.IsDefault,
		Active:    e.Active,
	}
}
