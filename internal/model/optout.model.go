package model

import "time"

// OptOut blocks a destination number. AccountID zero means the block is
// global; otherwise it only applies to that account's traffic.
type OptOut struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Number    string    `json:"number"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
