package provider

import (
	"context"
	"fmt"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

// DeliveryStatus is the fixed status vocabulary every provider's native
// status strings map into. Unmapped strings become StatusUnknown, never an
// error.
type DeliveryStatus string

const (
	StatusDelivered   DeliveryStatus = "delivered"
	StatusSent        DeliveryStatus = "sent"
	StatusUndelivered DeliveryStatus = "undelivered"
	StatusExpired     DeliveryStatus = "expired"
	StatusRejected    DeliveryStatus = "rejected"
	StatusFailed      DeliveryStatus = "failed"
	StatusSending     DeliveryStatus = "sending"
	StatusQueued      DeliveryStatus = "queued"
	StatusUnknown     DeliveryStatus = "unknown"
)

// NormalizeStatus maps a provider-native status string through the given
// table, falling back to StatusUnknown.
func NormalizeStatus(table map[string]DeliveryStatus, native string) DeliveryStatus {
	if s, ok := table[native]; ok {
		return s
	}
	return StatusUnknown
}

// SendResult is the normalized outcome of a synchronous send call.
// Provider-side rejections are reported here with Success=false, not as Go
// errors.
type SendResult struct {
	Success           bool
	ProviderMessageID string
	ErrorCode         string
	ErrorMessage      string
	RawResponse       string
}

// DLRResult is a normalized delivery receipt.
type DLRResult struct {
	ProviderMessageID string
	Status            DeliveryStatus
	ErrorCode         string
	ErrorMessage      string
}

// InboundResult is a normalized inbound (mobile-originated) message.
type InboundResult struct {
	From     string
	To       string
	Text     string
	MediaURL string
	Channel  model.Channel
}

// ConfigField describes one configuration input a provider requires or
// accepts, for rendering and validating the gateway setup form.
type ConfigField struct {
	Name     string
	Label    string
	Secret   bool
	Validate func(value string) error
}

// ValidateConfig runs the provider's declared field validators against a
// configuration map. Required fields must be present and pass their
// validator; optional fields are checked only when a value is set.
func ValidateConfig(p Provider, config map[string]string) error {
	for _, f := range p.RequiredFields() {
		v := config[f.Name]
		if v == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, f.Name)
		}
		if f.Validate != nil {
			if err := f.Validate(v); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, f.Name, err)
			}
		}
	}
	for _, f := range p.OptionalFields() {
		v := config[f.Name]
		if v == "" || f.Validate == nil {
			continue
		}
		if err := f.Validate(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, f.Name, err)
		}
	}
	return nil
}

// Provider is the contract every delivery backend implements. One dispatch
// pipeline drives all of them through this interface.
type Provider interface {
	// Key is the stable type key the registry resolves.
	Key() string
	Name() string
	Channels() model.GatewayChannel

	RequiredFields() []ConfigField
	OptionalFields() []ConfigField

	// Send performs the provider HTTP call. Ordinary provider rejections
	// come back as SendResult{Success: false}; a non-nil error means the
	// call could not be made at all and is treated as a transport failure.
	Send(ctx context.Context, msg *model.Message) (*SendResult, error)

	// Balance queries the provider account balance. A nil pointer with a
	// nil error means the provider does not support balance queries.
	Balance(ctx context.Context) (*float64, error)

	// ParseDeliveryReceipt maps a webhook payload to a DLRResult, or nil
	// when the payload is not a delivery receipt this provider produces.
	ParseDeliveryReceipt(req *WebhookRequest) *DLRResult

	// ParseInbound maps an inbound-message webhook payload, or nil.
	ParseInbound(req *WebhookRequest) *InboundResult

	// VerifyWebhook authenticates an inbound webhook call before any of
	// its payload is trusted. Missing or unverifiable proof returns false.
	VerifyWebhook(req *WebhookRequest, secret string) bool
}
