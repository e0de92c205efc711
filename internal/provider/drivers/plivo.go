package drivers

import (
	"context"
	"fmt"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const plivoAPIBase = "https://api.plivo.com/v1"

var plivoStatuses = map[string]provider.DeliveryStatus{
	"queued":      provider.StatusQueued,
	"sent":        provider.StatusSent,
	"delivered":   provider.StatusDelivered,
	"undelivered": provider.StatusUndelivered,
	"failed":      provider.StatusFailed,
	"rejected":    provider.StatusRejected,
}

type Plivo struct {
	provider.Base
}

func NewPlivo(config map[string]string) (provider.Provider, error) {
	return &Plivo{Base: provider.NewBase(config)}, nil
}

func (p *Plivo) Key() string                    { return "plivo" }
func (p *Plivo) Name() string                   { return "Plivo" }
func (p *Plivo) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (p *Plivo) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("auth_id", "Auth ID", false),
		requiredField("auth_token", "Auth Token", true),
	}
}

func (p *Plivo) OptionalFields() []provider.ConfigField { return nil }

func (p *Plivo) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	authID := p.Config("auth_id")
	payload := map[string]any{
		"src":  msg.Sender,
		"dst":  provider.FormatPhone(msg.To, false),
		"text": msg.Content,
	}

	resp, err := p.DoRequest(ctx, "POST",
		fmt.Sprintf("%s/Account/%s/Message/", plivoAPIBase, authID),
		jsonBody(payload),
		map[string]string{
			"Authorization": basicAuth(authID, p.Config("auth_token")),
			"Content-Type":  "application/json",
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		MessageUUID []string `json:"message_uuid"`
		Error       string   `json:"error"`
	}
	_ = jsonDecode(resp.Body, &body)

	if !resp.OK() || len(body.MessageUUID) == 0 {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: nonEmpty(body.Error, "plivo rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.MessageUUID[0],
		RawResponse:       string(resp.Body),
	}, nil
}

func (p *Plivo) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("MessageUUID")
	status := req.Param("Status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(plivoStatuses, status),
		ErrorCode:         req.Param("ErrorCode"),
	}
}

func (p *Plivo) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	from := req.Param("From")
	if from == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    from,
		To:      req.Param("To"),
		Text:    req.Param("Text"),
		Channel: model.ChannelSMS,
	}
}
