package drivers

import (
	"context"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const clickatellAPIBase = "https://platform.clickatell.com"

var clickatellStatuses = map[string]provider.DeliveryStatus{
	"QUEUED":                 provider.StatusQueued,
	"SCHEDULED":              provider.StatusQueued,
	"SENT_TO_SUPPLIER":       provider.StatusSent,
	"DELIVERED_TO_GATEWAY":   provider.StatusSent,
	"RECEIVED_BY_RECIPIENT":  provider.StatusDelivered,
	"READ":                   provider.StatusDelivered,
	"EXPIRED":                provider.StatusExpired,
	"STOPPED_BY_USER":        provider.StatusRejected,
	"STOPPED_BY_ADMIN":       provider.StatusRejected,
	"ERROR_DELIVERING":       provider.StatusUndelivered,
	"ERROR_GENERATING":       provider.StatusFailed,
	"DELIVERY_FAILURE":       provider.StatusUndelivered,
	"INSUFFICIENT_ACCOUNT_BALANCE": provider.StatusFailed,
}

type Clickatell struct {
	provider.Base
}

func NewClickatell(config map[string]string) (provider.Provider, error) {
	return &Clickatell{Base: provider.NewBase(config)}, nil
}

func (c *Clickatell) Key() string                    { return "clickatell" }
func (c *Clickatell) Name() string                   { return "Clickatell" }
func (c *Clickatell) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (c *Clickatell) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("api_key", "API Key", true),
	}
}

func (c *Clickatell) OptionalFields() []provider.ConfigField { return nil }

func (c *Clickatell) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	payload := map[string]any{
		"messages": []map[string]any{{
			"channel": "sms",
			"to":      []string{provider.FormatPhone(msg.To, false)},
			"content": msg.Content,
		}},
	}

	resp, err := c.DoRequest(ctx, "POST", clickatellAPIBase+"/messages",
		jsonBody(payload),
		map[string]string{
			"Authorization": c.Config("api_key"),
			"Content-Type":  "application/json",
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		Messages []struct {
			APIMessageID string `json:"apiMessageId"`
			Accepted     bool   `json:"accepted"`
			Error        string `json:"error"`
		} `json:"messages"`
		Error string `json:"error"`
	}
	_ = jsonDecode(resp.Body, &body)

	if len(body.Messages) == 0 || !body.Messages[0].Accepted {
		msgErr := body.Error
		if len(body.Messages) > 0 {
			msgErr = nonEmpty(body.Messages[0].Error, msgErr)
		}
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: nonEmpty(msgErr, "clickatell rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.Messages[0].APIMessageID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (c *Clickatell) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	var body struct {
		MessageID         string `json:"messageId"`
		StatusDescription string `json:"statusDescription"`
		Status            string `json:"status"`
	}
	if err := req.JSON(&body); err != nil || body.MessageID == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: body.MessageID,
		Status:            provider.NormalizeStatus(clickatellStatuses, nonEmpty(body.StatusDescription, body.Status)),
	}
}

func (c *Clickatell) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	var body struct {
		FromNumber string `json:"fromNumber"`
		ToNumber   string `json:"toNumber"`
		Message    string `json:"message"`
	}
	if err := req.JSON(&body); err != nil || body.FromNumber == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    body.FromNumber,
		To:      body.ToNumber,
		Text:    body.Message,
		Channel: model.ChannelSMS,
	}
}
