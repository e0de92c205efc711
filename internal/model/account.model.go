package model

// BillingMode selects how an account pays for traffic.
type BillingMode string

const (
	BillingModeBalance BillingMode = "balance"
	BillingModeCredit  BillingMode = "credit"
)

// Account is the engine's read-mostly view of a customer account: default
// routing preferences plus the balances the Billing collaborator operates
// on.
type Account struct {
	ID               int64       `json:"id"`
	Balance          float64     `json:"balance"`
	CreditBalance    int64       `json:"credit_balance"`
	BillingMode      BillingMode `json:"billing_mode"`
	DefaultGatewayID *int64      `json:"default_gateway_id"`
	DefaultSender    string      `json:"default_sender"`
	Active           bool        `json:"active"`
}
