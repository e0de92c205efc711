package repository

import (
	"time"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

type MessageEntity struct {
	ID        int64  `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	AccountID int64  `db:"account_id" gorm:"column:account_id;not null;index"`
	Channel   string `db:"channel"    gorm:"column:channel;not null;default:sms"`
	Direction string `db:"direction"  gorm:"column:direction;not null;default:outbound"`
	To        string `db:"to_number"  gorm:"column:to_number;not null;index"`
	Sender    string `db:"sender"     gorm:"column:sender"`
	GatewayID int64  `db:"gateway_id" gorm:"column:gateway_id;index"`

	Content  string `db:"content"   gorm:"column:content;not null"`
	MediaURL string `db:"media_url" gorm:"column:media_url"`
	Encoding string `db:"encoding"  gorm:"column:encoding"`
	Length   int    `db:"length"    gorm:"column:length"`
	Segments int    `db:"segments"  gorm:"column:segments"`
	Units    int    `db:"units"     gorm:"column:units"`

	Cost float64 `db:"cost" gorm:"column:cost;default:0"`

	Status            string `db:"status"              gorm:"column:status;not null;index"`
	ProviderMessageID string `db:"provider_message_id" gorm:"column:provider_message_id;index"`
	LastError         string `db:"last_error"          gorm:"column:last_error"`
	ProviderResponse  string `db:"provider_response"   gorm:"column:provider_response"`

	CreatedAt   time.Time  `db:"created_at"   gorm:"column:created_at;autoCreateTime"`
	SentAt      *time.Time `db:"sent_at"      gorm:"column:sent_at"`
	DeliveredAt *time.Time `db:"delivered_at" gorm:"column:delivered_at"`
}

func (MessageEntity) TableName() string {
	return "messages"
}

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	return &MessageEntity{
		ID:                m.ID,
		AccountID:         m.AccountID,
		Channel:           string(m.Channel),
		Direction:         string(m.Direction),
		To:                m.To,
		Sender:            m.Sender,
		GatewayID:         m.GatewayID,
		Content:           m.Content,
		MediaURL:          m.MediaURL,
		Encoding:          m.Encoding,
		Length:            m.Length,
		Segments:          m.Segments,
		Units:             m.Units,
		Cost:              m.Cost,
		Status:            string(m.Status),
		ProviderMessageID: m.ProviderMessageID,
		LastError:         m.LastError,
		ProviderResponse:  m.ProviderResponse,
		CreatedAt:         m.CreatedAt,
		SentAt:            m.SentAt,
		DeliveredAt:       m.DeliveredAt,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	return &model.Message{
		ID:                e.ID,
		AccountID:         e.AccountID,
		Channel:           model.Channel(e.Channel),
		Direction:         model.Direction(e.Direction),
		To:                e.To,
		Sender:            e.Sender,
		GatewayID:         e.GatewayID,
		Content:           e.Content,
		MediaURL:          e.MediaURL,
		Encoding:          e.Encoding,
		Length:            e.Length,
		Segments:          e.Segments,
		Units:             e.Units,
		Cost:              e.Cost,
		Status:            model.MessageStatus(e.Status),
		ProviderMessageID: e.ProviderMessageID,
		LastError:         e.LastError,
		ProviderResponse:  e.ProviderResponse,
		CreatedAt:         e.CreatedAt,
		SentAt:            e.SentAt,
		DeliveredAt:       e.DeliveredAt,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	if entities == nil {
		return nil
	}
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
