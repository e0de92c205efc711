package model

// Rate prices one segment for a country/network pair. Network may be empty
// for a country-wide rate; country may be empty for the platform fallback.
type Rate struct {
	ID         int64   `json:"id"`
	Country    string  `json:"country"`
	Network    string  `json:"network"`
	Channel    Channel `json:"channel"`
	Rate       float64 `json:"rate"`
	CreditCost int     `json:"credit_cost"`
}

// Prefix maps a numeric dialing prefix to a country and, optionally, a
// mobile operator.
type Prefix struct {
	ID       int64  `json:"id"`
	Prefix   string `json:"prefix"`
	Country  string `json:"country"`
	Operator string `json:"operator"`
}
