package repository

import (
	"time"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

type GatewayEntity struct {
	ID       int64  `db:"id"       gorm:"primaryKey;autoIncrement;column:id"`
	Type     string `db:"type"     gorm:"column:type;not null;index"`
	Name     string `db:"name"     gorm:"column:name;not null"`
	Channels string `db:"channels" gorm:"column:channels;not null;default:sms"`
	Active   bool   `db:"active"   gorm:"column:active;not null;default:true"`

	AccountID *int64 `db:"account_id" gorm:"column:account_id;index"`

	Credentials  string `db:"credentials"   gorm:"column:credentials"`
	Settings     string `db:"settings"      gorm:"column:settings"`
	WebhookToken string `db:"webhook_token" gorm:"column:webhook_token"`

	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (GatewayEntity) TableName() string {
	return "gateways"
}

func toGatewayEntity(g *model.Gateway) *GatewayEntity {
	if g == nil {
		return nil
	}
	return &GatewayEntity{
		ID:           g.ID,
		Type:         g.Type,
		Name:         g.Name,
		Channels:     string(g.Channels),
		Active:       g.Active,
		AccountID:    g.AccountID,
		Credentials:  g.Credentials,
		Settings:     g.Settings,
		WebhookToken: g.WebhookToken,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func toGatewayModel(e *GatewayEntity) *model.Gateway {
	if e == nil {
		return nil
	}
	return &model.Gateway{
		ID:           e.ID,
		Type:         e.Type,
		Name:         e.Name,
		Channels:     model.GatewayChannel(e.Channels),
		Active:       e.Active,
		AccountID:    e.AccountID,
		Credentials:  e.Credentials,
		Settings:     e.Settings,
		WebhookToken: e.WebhookToken,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toGatewayModels(entities []*GatewayEntity) []*model.Gateway {
	if entities == nil {
		return nil
	}
	models := make([]*model.Gateway, len(entities))
	for i, e := range entities {
		models[i] = toGatewayModel(e)
	}
	return models
}
