package drivers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

var exotelStatuses = map[string]provider.DeliveryStatus{
	"queued":     provider.StatusQueued,
	"sending":    provider.StatusSending,
	"submitted":  provider.StatusSent,
	"sent":       provider.StatusDelivered,
	"failed":     provider.StatusFailed,
	"failed-dnd": provider.StatusRejected,
}

type Exotel struct {
	provider.Base
}

func NewExotel(config map[string]string) (provider.Provider, error) {
	return &Exotel{Base: provider.NewBase(config)}, nil
}

func (e *Exotel) Key() string                    { return "exotel" }
func (e *Exotel) Name() string                   { return "Exotel" }
func (e *Exotel) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (e *Exotel) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("account_sid", "Account SID", false),
		requiredField("api_key", "API Key", false),
		requiredField("api_token", "API Token", true),
	}
}

func (e *Exotel) OptionalFields() []provider.ConfigField { return nil }

func (e *Exotel) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	form := url.Values{}
	form.Set("From", msg.Sender)
	form.Set("To", provider.FormatPhone(msg.To, true))
	form.Set("Body", msg.Content)

	endpoint := fmt.Sprintf("https://api.exotel.com/v1/Accounts/%s/Sms/send.json",
		e.Config("account_sid"))
	resp, err := e.DoRequest(ctx, "POST", endpoint,
		[]byte(form.Encode()),
		map[string]string{
			"Content-Type":  "application/x-www-form-urlencoded",
			"Authorization": basicAuth(e.Config("api_key"), e.Config("api_token")),
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		SMSMessage struct {
			Sid    string `json:"Sid"`
			Status string `json:"Status"`
		} `json:"SMSMessage"`
		RestException struct {
			Message string `json:"Message"`
		} `json:"RestException"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "unexpected exotel response",
			RawResponse:  string(resp.Body),
		}, nil
	}
	if !resp.OK() || body.SMSMessage.Sid == "" {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: nonEmpty(body.RestException.Message, "exotel rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.SMSMessage.Sid,
		RawResponse:       string(resp.Body),
	}, nil
}

func (e *Exotel) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("SmsSid")
	status := req.Param("Status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(exotelStatuses, status),
		ErrorCode:         req.Param("DetailedStatusCode"),
	}
}
