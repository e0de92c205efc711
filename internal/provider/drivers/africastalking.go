package drivers

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const africasTalkingAPIBase = "https://api.africastalking.com/version1"

var africasTalkingStatuses = map[string]provider.DeliveryStatus{
	"Submitted": provider.StatusSent,
	"Buffered":  provider.StatusSending,
	"Sent":      provider.StatusSent,
	"Success":   provider.StatusDelivered,
	"Rejected":  provider.StatusRejected,
	"Failed":    provider.StatusFailed,
	"Expired":   provider.StatusExpired,
}

type AfricasTalking struct {
	provider.Base
}

func NewAfricasTalking(config map[string]string) (provider.Provider, error) {
	return &AfricasTalking{Base: provider.NewBase(config)}, nil
}

func (a *AfricasTalking) Key() string                    { return "africastalking" }
func (a *AfricasTalking) Name() string                   { return "Africa's Talking" }
func (a *AfricasTalking) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (a *AfricasTalking) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("username", "Username", false),
		requiredField("api_key", "API Key", true),
	}
}

func (a *AfricasTalking) OptionalFields() []provider.ConfigField { return nil }

func (a *AfricasTalking) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	form := url.Values{}
	form.Set("username", a.Config("username"))
	form.Set("to", provider.FormatPhone(msg.To, true))
	form.Set("message", msg.Content)
	if msg.Sender != "" {
		form.Set("from", msg.Sender)
	}

	resp, err := a.DoRequest(ctx, "POST", africasTalkingAPIBase+"/messaging",
		[]byte(form.Encode()),
		map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Accept":       "application/json",
			"apiKey":       a.Config("api_key"),
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		SMSMessageData struct {
			Recipients []struct {
				Status    string `json:"status"`
				MessageID string `json:"messageId"`
			} `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil || len(body.SMSMessageData.Recipients) == 0 {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "unexpected africastalking response",
			RawResponse:  string(resp.Body),
		}, nil
	}

	r := body.SMSMessageData.Recipients[0]
	if r.Status != "Success" {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: r.Status,
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: r.MessageID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (a *AfricasTalking) Balance(ctx context.Context) (*float64, error) {
	q := url.Values{}
	q.Set("username", a.Config("username"))
	resp, err := a.DoRequest(ctx, "GET",
		africasTalkingAPIBase+"/user?"+q.Encode(), nil,
		map[string]string{"Accept": "application/json", "apiKey": a.Config("api_key")})
	if err != nil {
		return nil, err
	}
	var body struct {
		UserData struct {
			Balance string `json:"balance"` // "KES 1234.50"
		} `json:"UserData"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	parts := strings.Fields(body.UserData.Balance)
	if len(parts) == 0 {
		return nil, nil
	}
	f, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (a *AfricasTalking) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("id")
	status := req.Param("status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(africasTalkingStatuses, status),
		ErrorCode:         req.Param("failureReason"),
	}
}

func (a *AfricasTalking) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	from := req.Param("from")
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
