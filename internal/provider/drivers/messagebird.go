package drivers

import (
	"context"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const messageBirdAPIBase = "https://rest.messagebird.com"

var messageBirdStatuses = map[string]provider.DeliveryStatus{
	"scheduled":       provider.StatusQueued,
	"buffered":        provider.StatusSending,
	"sent":            provider.StatusSent,
	"delivered":       provider.StatusDelivered,
	"expired":         provider.StatusExpired,
	"delivery_failed": provider.StatusUndelivered,
}

type MessageBird struct {
	provider.Base
}

func NewMessageBird(config map[string]string) (provider.Provider, error) {
	return &MessageBird{Base: provider.NewBase(config)}, nil
}

func (m *MessageBird) Key() string                    { return "messagebird" }
func (m *MessageBird) Name() string                   { return "MessageBird" }
func (m *MessageBird) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (m *MessageBird) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("access_key", "Access Key", true),
	}
}

func (m *MessageBird) OptionalFields() []provider.ConfigField { return nil }

func (m *MessageBird) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	payload := map[string]any{
		"originator": msg.Sender,
		"recipients": []string{provider.FormatPhone(msg.To, false)},
		"body":       msg.Content,
	}

	resp, err := m.DoRequest(ctx, "POST", messageBirdAPIBase+"/messages",
		jsonBody(payload),
		map[string]string{
			"Authorization": "AccessKey " + m.Config("access_key"),
			"Content-Type":  "application/json",
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		ID     string `json:"id"`
		Errors []struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
	}
	_ = jsonDecode(resp.Body, &body)

	if len(body.Errors) > 0 || body.ID == "" {
		res := &provider.SendResult{
			Success:      false,
			ErrorMessage: "messagebird rejected the message",
			RawResponse:  string(resp.Body),
		}
		if len(body.Errors) > 0 {
			res.ErrorMessage = body.Errors[0].Description
		}
		return res, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.ID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (m *MessageBird) Balance(ctx context.Context) (*float64, error) {
	resp, err := m.DoRequest(ctx, "GET", messageBirdAPIBase+"/balance", nil,
		map[string]string{"Authorization": "AccessKey " + m.Config("access_key")})
	if err != nil {
		return nil, err
	}
	var body struct {
		Amount float64 `json:"amount"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	return &body.Amount, nil
}

func (m *MessageBird) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("id")
	status := req.Param("status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(messageBirdStatuses, status),
		ErrorCode:         req.Param("statusErrorCode"),
	}
}

func (m *MessageBird) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	from := req.Param("originator")
	if from == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    from,
		To:      req.Param("recipient"),
		Text:    req.Param("body"),
		Channel: model.ChannelSMS,
	}
}
