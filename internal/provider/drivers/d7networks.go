package drivers

import (
	"context"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/sms"
)

const d7APIBase = "https://api.d7networks.com"

var d7Statuses = map[string]provider.DeliveryStatus{
	"accepted":    provider.StatusQueued,
	"sent":        provider.StatusSent,
	"delivered":   provider.StatusDelivered,
	"undelivered": provider.StatusUndelivered,
	"expired":     provider.StatusExpired,
	"rejected":    provider.StatusRejected,
	"failed":      provider.StatusFailed,
}

type D7Networks struct {
	provider.Base
}

func NewD7Networks(config map[string]string) (provider.Provider, error) {
	return &D7Networks{Base: provider.NewBase(config)}, nil
}

func (d *D7Networks) Key() string                    { return "d7networks" }
func (d *D7Networks) Name() string                   { return "D7 Networks" }
func (d *D7Networks) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (d *D7Networks) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("api_token", "API Token", true),
	}
}

func (d *D7Networks) OptionalFields() []provider.ConfigField { return nil }

func (d *D7Networks) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	dataCoding := "text"
	if sms.Encoding(msg.Encoding) == sms.EncodingUCS2 {
		dataCoding = "unicode"
	}
	payload := jsonBody(map[string]any{
		"messages": []map[string]any{{
			"channel":     "sms",
			"recipients":  []string{provider.FormatPhone(msg.To, true)},
			"content":     msg.Content,
			"data_coding": dataCoding,
			"originator":  msg.Sender,
		}},
	})

	resp, err := d.DoRequest(ctx, "POST", d7APIBase+"/messages/v1/send", payload,
		map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + d.Config("api_token"),
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		RequestID string `json:"request_id"`
		Detail    string `json:"detail"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "unexpected d7networks response",
			RawResponse:  string(resp.Body),
		}, nil
	}
	if !resp.OK() || body.RequestID == "" {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: nonEmpty(body.Detail, "d7networks rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.RequestID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (d *D7Networks) Balance(ctx context.Context) (*float64, error) {
	resp, err := d.DoRequest(ctx, "GET", d7APIBase+"/messages/v1/balance", nil,
		map[string]string{"Authorization": "Bearer " + d.Config("api_token")})
	if err != nil {
		return nil, err
	}
	var body struct {
		Balance float64 `json:"balance"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	return &body.Balance, nil
}

func (d *D7Networks) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	var body struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
		Error     struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := req.JSON(&body); err != nil || body.RequestID == "" || body.Status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: body.RequestID,
		Status:            provider.NormalizeStatus(d7Statuses, body.Status),
		ErrorCode:         body.Error.Code,
	}
}
