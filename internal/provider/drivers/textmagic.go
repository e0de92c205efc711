package drivers

import (
	"context"
	"net/url"
	"strconv"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const textMagicAPIBase = "https://rest.textmagic.com/api/v2"

var textMagicStatuses = map[string]provider.DeliveryStatus{
	"q": provider.StatusQueued,
	"s": provider.StatusSending,
	"a": provider.StatusSent,
	"d": provider.StatusDelivered,
	"f": provider.StatusFailed,
	"e": provider.StatusFailed,
	"j": provider.StatusRejected,
	"u": provider.StatusUnknown,
}

type TextMagic struct {
	provider.Base
}

func NewTextMagic(config map[string]string) (provider.Provider, error) {
	return &TextMagic{Base: provider.NewBase(config)}, nil
}

func (t *TextMagic) Key() string                    { return "textmagic" }
func (t *TextMagic) Name() string                   { return "TextMagic" }
func (t *TextMagic) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (t *TextMagic) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("username", "Username", false),
		requiredField("api_key", "API Key", true),
	}
}

func (t *TextMagic) OptionalFields() []provider.ConfigField { return nil }

func (t *TextMagic) authHeaders() map[string]string {
	return map[string]string{
		"X-TM-Username": t.Config("username"),
		"X-TM-Key":      t.Config("api_key"),
	}
}

func (t *TextMagic) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	form := url.Values{}
	form.Set("phones", provider.FormatPhone(msg.To, false))
	form.Set("text", msg.Content)
	if msg.Sender != "" {
		form.Set("from", msg.Sender)
	}

	headers := t.authHeaders()
	headers["Content-Type"] = "application/x-www-form-urlencoded"
	resp, err := t.DoRequest(ctx, "POST", textMagicAPIBase+"/messages",
		[]byte(form.Encode()), headers)
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		ID      int64  `json:"id"`
		Message string `json:"message"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "unexpected textmagic response",
			RawResponse:  string(resp.Body),
		}, nil
	}
	if !resp.OK() || body.ID == 0 {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: nonEmpty(body.Message, "textmagic rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: strconv.FormatInt(body.ID, 10),
		RawResponse:       string(resp.Body),
	}, nil
}

func (t *TextMagic) Balance(ctx context.Context) (*float64, error) {
	resp, err := t.DoRequest(ctx, "GET", textMagicAPIBase+"/user", nil, t.authHeaders())
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

func (t *TextMagic) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("messageId")
	status := req.Param("status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(textMagicStatuses, status),
	}
}

func (t *TextMagic) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	from := req.Param("sender")
	if from == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    from,
		To:      req.Param("receiver"),
		Text:    req.Param("text"),
		Channel: model.ChannelSMS,
	}
}
