package model

// SenderID is an approved sender identity (alphanumeric or numeric) for an
// account.
type SenderID struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	Sender    string `json:"sender"`
	IsDefault bool   `json:"is_default"`
	Active    bool   `json:"active"`
}
