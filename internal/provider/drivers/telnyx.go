package drivers

import (
	"context"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const telnyxAPIBase = "https://api.telnyx.com/v2"

var telnyxStatuses = map[string]provider.DeliveryStatus{
	"queued":               provider.StatusQueued,
	"sending":              provider.StatusSending,
	"sent":                 provider.StatusSent,
	"delivered":            provider.StatusDelivered,
	"sending_failed":       provider.StatusFailed,
	"delivery_failed":      provider.StatusUndelivered,
	"delivery_unconfirmed": provider.StatusUnknown,
	"expired":              provider.StatusExpired,
}

type Telnyx struct {
	provider.Base
}

func NewTelnyx(config map[string]string) (provider.Provider, error) {
	return &Telnyx{Base: provider.NewBase(config)}, nil
}

func (t *Telnyx) Key() string                    { return "telnyx" }
func (t *Telnyx) Name() string                   { return "Telnyx" }
func (t *Telnyx) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (t *Telnyx) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("api_key", "API Key", true),
	}
}

func (t *Telnyx) OptionalFields() []provider.ConfigField {
	return []provider.ConfigField{
		{Name: "messaging_profile_id", Label: "Messaging Profile ID"},
	}
}

func (t *Telnyx) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	payload := map[string]any{
		"from": msg.Sender,
		"to":   provider.FormatPhone(msg.To, true),
		"text": msg.Content,
	}
	if pid := t.Config("messaging_profile_id"); pid != "" {
		payload["messaging_profile_id"] = pid
	}
	if msg.MediaURL != "" {
		payload["media_urls"] = []string{msg.MediaURL}
	}

	resp, err := t.DoRequest(ctx, "POST", telnyxAPIBase+"/messages",
		jsonBody(payload),
		map[string]string{
			"Authorization": "Bearer " + t.Config("api_key"),
			"Content-Type":  "application/json",
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
		Errors []struct {
			Code   string `json:"code"`
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	_ = jsonDecode(resp.Body, &body)

	if !resp.OK() || body.Data.ID == "" {
		res := &provider.SendResult{
			Success:      false,
			ErrorMessage: "telnyx rejected the message",
			RawResponse:  string(resp.Body),
		}
		if len(body.Errors) > 0 {
			res.ErrorCode = body.Errors[0].Code
			res.ErrorMessage = nonEmpty(body.Errors[0].Detail, body.Errors[0].Title)
		}
		return res, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.Data.ID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (t *Telnyx) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	var body struct {
		Data struct {
			EventType string `json:"event_type"`
			Payload   struct {
				ID string `json:"id"`
				To []struct {
					Status string `json:"status"`
				} `json:"to"`
				Errors []struct {
					Code  string `json:"code"`
					Title string `json:"title"`
				} `json:"errors"`
			} `json:"payload"`
		} `json:"data"`
	}
	if err := req.JSON(&body); err != nil || body.Data.Payload.ID == "" {
		return nil
	}
	if body.Data.EventType != "message.sent" && body.Data.EventType != "message.finalized" {
		return nil
	}

	status := ""
	if len(body.Data.Payload.To) > 0 {
		status = body.Data.Payload.To[0].Status
	}
	res := &provider.DLRResult{
		ProviderMessageID: body.Data.Payload.ID,
		Status:            provider.NormalizeStatus(telnyxStatuses, status),
	}
	if len(body.Data.Payload.Errors) > 0 {
		res.ErrorCode = body.Data.Payload.Errors[0].Code
		res.ErrorMessage = body.Data.Payload.Errors[0].Title
	}
	return res
}

func (t *Telnyx) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	var body struct {
		Data struct {
			EventType string `json:"event_type"`
			Payload   struct {
				From struct {
					PhoneNumber string `json:"phone_number"`
				} `json:"from"`
				To []struct {
					PhoneNumber string `json:"phone_number"`
				} `json:"to"`
				Text string `json:"text"`
			} `json:"payload"`
		} `json:"data"`
	}
	if err := req.JSON(&body); err != nil || body.Data.EventType != "message.received" {
		return nil
	}
	to := ""
	if len(body.Data.Payload.To) > 0 {
		to = body.Data.Payload.To[0].PhoneNumber
	}
	return &provider.InboundResult{
		From:    body.Data.Payload.From.PhoneNumber,
		To:      to,
		Text:    body.Data.Payload.Text,
		Channel: model.ChannelSMS,
	}
}
