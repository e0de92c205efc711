package repository

import (
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

type AccountEntity struct {
	ID               int64   `db:"id"                 gorm:"primaryKey;autoIncrement;column:id"`
	Balance          float64 `db:"balance"            gorm:"column:balance;default:0"`
	CreditBalance    int64   `db:"credit_balance"     gorm:"column:credit_balance;default:0"`
	BillingMode      string  `db:"billing_mode"       gorm:"column:billing_mode;not null;default:balance"`
	DefaultGatewayID *int64  `db:"default_gateway_id" gorm:"column:default_gateway_id"`
	DefaultSender    string  `db:"default_sender"     gorm:"column:default_sender"`
	Active           bool    `db:"active"             gorm:"column:active;not null;default:true"`
}

func (AccountEntity) TableName() string {
	return "accounts"
}

func toAccountEntity(a *model.Account) *AccountEntity {
	if a == nil {
		return nil
	}
	return &AccountEntity{
		ID:               a.ID,
		Balance:          a.Balance,
		CreditBalance:    a.CreditBalance,
		BillingMode:      string(a.BillingMode),
		DefaultGatewayID: a.DefaultGatewayID,
		DefaultSender:    a.DefaultSender,
		Active:           a.Active,
	}
}

func toAccountModel(e *AccountEntity) *model.Account {
	if e == nil {
		return nil
	}
	return &model.Account{
		ID:               e.ID,
		Balance:          e.Balance,
		CreditBalance:    e.CreditBalance,
		BillingMode:      model.BillingMode(e.BillingMode),
		DefaultGatewayID: e.DefaultGatewayID,
		DefaultSender:    e.DefaultSender,
		Active:           e.Active,
	}
}
