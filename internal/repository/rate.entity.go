package repository

import (
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

type RateEntity struct {
	ID         int64   `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Country    string  `db:"country"     gorm:"column:country;index"`
	Network    string  `db:"network"     gorm:"column:network"`
	Channel    string  `db:"channel"     gorm:"column:channel;not null;default:sms"`
	Rate       float64 `db:"rate"        gorm:"column:rate;not null"`
	CreditCost int     `db:"credit_cost" gorm:"column:credit_cost;not null;default:1"`
}

func (RateEntity) TableName() string {
	return "rates"
}

type PrefixEntity struct {
	ID       int64  `db:"id"       gorm:"primaryKey;autoIncrement;column:id"`
	Prefix   string `db:"prefix"   gorm:"column:prefix;not null;uniqueIndex"`
	Country  string `db:"country"  gorm:"column:country;not null"`
	Operator string `db:"operator" gorm:"column:operator"`
}

func (PrefixEntity) TableName() string {
	return "prefixes"
}

func toRateEntity(r *model.Rate) *RateEntity {
	if r == nil {
		return nil
	}
	return &RateEntity{
		ID:         r.ID,
		Country:    r.Country,
		Network:    r.Network,
		Channel:    string(r.Channel),
		Rate:       r.Rate,
		CreditCost: r.CreditCost,
	}
}

func toRateModel(e *RateEntity) *model.Rate {
	if e == nil {
		return nil
	}
	return &model.Rate{
		ID:         e.ID,
		Country:    e.Country,
		Network:    e.Network,
		Channel:    model.Channel(e.Channel),
		Rate:       e.Rate,
		CreditCost: e.CreditCost,
	}
}

func toPrefixEntity(p *model.Prefix) *PrefixEntity {
	if p == nil {
		return nil
	}
	return &PrefixEntity{
		ID:       p.ID,
		Prefix:   p.Prefix,
		Country:  p.Country,
		Operator: p.Operator,
	}
}

func toPrefixModel(e *PrefixEntity) *model.Prefix {
	if e == nil {
		return nil
	}
	return &model.Prefix{
		ID:       e.ID,
		Prefix:   e.Prefix,
		Country:  e.Country,
		Operator: e.Operator,
	}
}
