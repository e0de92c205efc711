package drivers

import (
	"context"
	"net/url"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const textlocalAPIBase = "https://api.txtlocal.com"

// Textlocal delivery receipts carry single-letter status codes.
var textlocalStatuses = map[string]provider.DeliveryStatus{
	"D": provider.StatusDelivered,
	"U": provider.StatusUndelivered,
	"P": provider.StatusSending,
	"I": provider.StatusRejected,
	"E": provider.StatusExpired,
	"?": provider.StatusUnknown,
}

type Textlocal struct {
	provider.Base
}

func NewTextlocal(config map[string]string) (provider.Provider, error) {
	return &Textlocal{Base: provider.NewBase(config)}, nil
}

func (t *Textlocal) Key() string                    { return "textlocal" }
func (t *Textlocal) Name() string                   { return "Textlocal" }
func (t *Textlocal) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (t *Textlocal) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("api_key", "API Key", true),
	}
}

func (t *Textlocal) OptionalFields() []provider.ConfigField { return nil }

func (t *Textlocal) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	form := url.Values{}
	form.Set("apikey", t.Config("api_key"))
	form.Set("numbers", provider.FormatPhone(msg.To, false))
	form.Set("message", msg.Content)
	form.Set("sender", msg.Sender)

	resp, err := t.DoRequest(ctx, "POST", textlocalAPIBase+"/send/",
		[]byte(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		Status   string `json:"status"`
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	_ = jsonDecode(resp.Body, &body)

	if body.Status != "success" {
		res := &provider.SendResult{
			Success:      false,
			ErrorMessage: "textlocal rejected the message",
			RawResponse:  string(resp.Body),
		}
		if len(body.Errors) > 0 {
			res.ErrorMessage = body.Errors[0].Message
		}
		return res, nil
	}

	var id string
	if len(body.Messages) > 0 {
		id = body.Messages[0].ID
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: id,
		RawResponse:       string(resp.Body),
	}, nil
}

func (t *Textlocal) Balance(ctx context.Context) (*float64, error) {
	form := url.Values{}
	form.Set("apikey", t.Config("api_key"))
	resp, err := t.DoRequest(ctx, "POST", textlocalAPIBase+"/balance/",
		[]byte(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if err != nil {
		return nil, err
	}
	var body struct {
		Balance struct {
			SMS float64 `json:"sms"`
		} `json:"balance"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	return &body.Balance.SMS, nil
}

func (t *Textlocal) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("customID")
	status := req.Param("status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(textlocalStatuses, status),
	}
}

func (t *Textlocal) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	from := req.Param("sender")
	if from == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    from,
		To:      req.Param("inNumber"),
		Text:    req.Param("content"),
		Channel: model.ChannelSMS,
	}
}
