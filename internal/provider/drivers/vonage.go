package drivers

import (
	"context"
	"net/url"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/sms"
)

const vonageAPIBase = "https://rest.nexmo.com"

var vonageStatuses = map[string]provider.DeliveryStatus{
	"delivered": provider.StatusDelivered,
	"accepted":  provider.StatusSent,
	"buffered":  provider.StatusSending,
	"expired":   provider.StatusExpired,
	"failed":    provider.StatusFailed,
	"rejected":  provider.StatusRejected,
	"unknown":   provider.StatusUnknown,
}

type Vonage struct {
	provider.Base
}

func NewVonage(config map[string]string) (provider.Provider, error) {
	return &Vonage{Base: provider.NewBase(config)}, nil
}

func (v *Vonage) Key() string                    { return "vonage" }
func (v *Vonage) Name() string                   { return "Vonage" }
func (v *Vonage) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (v *Vonage) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("api_key", "API Key", false),
		requiredField("api_secret", "API Secret", true),
	}
}

func (v *Vonage) OptionalFields() []provider.ConfigField { return nil }

func (v *Vonage) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	form := url.Values{}
	form.Set("api_key", v.Config("api_key"))
	form.Set("api_secret", v.Config("api_secret"))
	form.Set("to", provider.FormatPhone(msg.To, false))
	form.Set("from", msg.Sender)
	form.Set("text", msg.Content)
	if sms.Encoding(msg.Encoding) == sms.EncodingUCS2 {
		form.Set("type", "unicode")
	}

	resp, err := v.DoRequest(ctx, "POST", vonageAPIBase+"/sms/json",
		[]byte(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		Messages []struct {
			Status    string `json:"status"`
			MessageID string `json:"message-id"`
			ErrorText string `json:"error-text"`
		} `json:"messages"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil || len(body.Messages) == 0 {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "unexpected vonage response",
			RawResponse:  string(resp.Body),
		}, nil
	}

	m := body.Messages[0]
	if m.Status != "0" {
		return &provider.SendResult{
			Success:      false,
			ErrorCode:    m.Status,
			ErrorMessage: nonEmpty(m.ErrorText, "vonage rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: m.MessageID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (v *Vonage) Balance(ctx context.Context) (*float64, error) {
	q := url.Values{}
	q.Set("api_key", v.Config("api_key"))
	q.Set("api_secret", v.Config("api_secret"))
	resp, err := v.DoRequest(ctx, "GET", vonageAPIBase+"/account/get-balance?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Value float64 `json:"value"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	return &body.Value, nil
}

func (v *Vonage) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("messageId")
	status := req.Param("status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(vonageStatuses, status),
		ErrorCode:         req.Param("err-code"),
	}
}

func (v *Vonage) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	from := req.Param("msisdn")
	if from == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    from,
		To:      req.Param("to"),
		Text:    req.Param("text"),
		Channel: model.ChannelSMS,
	}
}
