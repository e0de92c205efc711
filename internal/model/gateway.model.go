package model

import "time"

// GatewayChannel declares which channels a configured gateway can carry.
type GatewayChannel string

const (
	GatewayChannelSMS      GatewayChannel = "sms"
	GatewayChannelWhatsApp GatewayChannel = "whatsapp"
	GatewayChannelBoth     GatewayChannel = "both"
)

// Gateway is one configured provider instance. Credentials holds the
// encrypted credential bundle; Settings holds non-secret provider options
// as a JSON object. AccountID, when set, marks the gateway as owned by a
// single customer account and therefore exempt from platform billing.
type Gateway struct {
	ID       int64          `json:"id"`
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	Channels GatewayChannel `json:"channels"`
	Active   bool           `json:"active"`

	AccountID *int64 `json:"account_id"`

	Credentials  string `json:"-"`
	Settings     string `json:"-"`
	WebhookToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountOwned reports whether the gateway is dedicated to one account.
func (g *Gateway) AccountOwned() bool { return g.AccountID != nil }

// SupportsChannel checks the declared capability against a message channel.
func (g *Gateway) SupportsChannel(c Channel) bool {
	switch g.Channels {
	case GatewayChannelBoth:
		return true
	case GatewayChannelSMS:
		return c == ChannelSMS
	case GatewayChannelWhatsApp:
		return c == ChannelWhatsApp
	}
	return false
}
