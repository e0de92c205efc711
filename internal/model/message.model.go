package model

import "time"

// Channel selects the delivery path for a message.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Direction distinguishes platform-originated messages from inbound ones.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// MessageStatus is the lifecycle state of a message.
//
// queued -> sending -> {sent -> delivered} | failed
// failed -> queued only through an explicit retry.
type MessageStatus string

const (
	MessageStatusQueued    MessageStatus = "queued"
	MessageStatusSending   MessageStatus = "sending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

// SystemAccountID marks admin/system-originated messages; they are never
// billed.
const SystemAccountID int64 = 0

type Message struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Channel   Channel   `json:"channel"`
	Direction Direction `json:"direction"`
	To        string    `json:"to"`
	Sender    string    `json:"sender"`
	GatewayID int64     `json:"gateway_id"`

	Content  string `json:"content"`
	MediaURL string `json:"media_url"`
	Encoding string `json:"encoding"`
	Length   int    `json:"length"`
	Segments int    `json:"segments"`
	Units    int    `json:"units"`

	// Cost stays zero until the message reaches sent and the owning
	// account is billable.
	Cost float64 `json:"cost"`

	Status            MessageStatus `json:"status"`
	ProviderMessageID string        `json:"provider_message_id"`
	LastError         string        `json:"last_error"`
	ProviderResponse  string        `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

// SystemOriginated reports whether the message was created by the platform
// itself rather than a customer account.
func (m *Message) SystemOriginated() bool { return m.AccountID == SystemAccountID }

// MessageFilter narrows List queries.
type MessageFilter struct {
	AccountID *int64
	GatewayID *int64
	Status    *MessageStatus
	Channel   *Channel
	Direction *Direction
	To        *string
	From      *time.Time
	Until     *time.Time

	Limit  int
	Offset int
	Desc   bool
}
