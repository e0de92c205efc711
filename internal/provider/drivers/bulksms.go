package drivers

import (
	"context"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const bulkSMSAPIBase = "https://api.bulksms.com/v1"

var bulkSMSStatuses = map[string]provider.DeliveryStatus{
	"ACCEPTED":  provider.StatusQueued,
	"SCHEDULED": provider.StatusQueued,
	"SENT":      provider.StatusSent,
	"DELIVERED": provider.StatusDelivered,
	"UNKNOWN":   provider.StatusUnknown,
	"FAILED":    provider.StatusFailed,
}

type BulkSMS struct {
	provider.Base
}

func NewBulkSMS(config map[string]string) (provider.Provider, error) {
	return &BulkSMS{Base: provider.NewBase(config)}, nil
}

func (b *BulkSMS) Key() string                    { return "bulksms" }
func (b *BulkSMS) Name() string                   { return "BulkSMS" }
func (b *BulkSMS) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (b *BulkSMS) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("username", "Username", false),
		requiredField("password", "Password", true),
	}
}

func (b *BulkSMS) OptionalFields() []provider.ConfigField { return nil }

func (b *BulkSMS) auth() map[string]string {
	return map[string]string{
		"Authorization": basicAuth(b.Config("username"), b.Config("password")),
		"Content-Type":  "application/json",
	}
}

func (b *BulkSMS) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	payload := map[string]any{
		"to":   provider.FormatPhone(msg.To, true),
		"from": msg.Sender,
		"body": msg.Content,
	}

	resp, err := b.DoRequest(ctx, "POST", bulkSMSAPIBase+"/messages", jsonBody(payload), b.auth())
	if err != nil {
		return transportFailure(err), err
	}

	var body []struct {
		ID     string `json:"id"`
		Status struct {
			Type string `json:"type"`
		} `json:"status"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil || len(body) == 0 {
		var apiErr struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		_ = jsonDecode(resp.Body, &apiErr)
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: nonEmpty(apiErr.Detail, nonEmpty(apiErr.Title, "bulksms rejected the message")),
			RawResponse:  string(resp.Body),
		}, nil
	}

	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body[0].ID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (b *BulkSMS) Balance(ctx context.Context) (*float64, error) {
	resp, err := b.DoRequest(ctx, "GET", bulkSMSAPIBase+"/profile", nil, b.auth())
	if err != nil {
		return nil, err
	}
	var body struct {
		Credits struct {
			Balance float64 `json:"balance"`
		} `json:"credits"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	return &body.Credits.Balance, nil
}

func (b *BulkSMS) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	var body []struct {
		ID     string `json:"id"`
		Status struct {
			Type    string `json:"type"`
			Subtype string `json:"subtype"`
		} `json:"status"`
	}
	if err := req.JSON(&body); err != nil || len(body) == 0 || body[0].ID == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: body[0].ID,
		Status:            provider.NormalizeStatus(bulkSMSStatuses, body[0].Status.Type),
		ErrorCode:         body[0].Status.Subtype,
	}
}
