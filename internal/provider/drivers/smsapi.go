package drivers

import (
	"context"
	"net/url"
	"strconv"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const smsapiAPIBase = "https://api.smsapi.com"

var smsapiStatuses = map[string]provider.DeliveryStatus{
	"QUEUE":       provider.StatusQueued,
	"SENT":        provider.StatusSent,
	"DELIVERED":   provider.StatusDelivered,
	"UNDELIVERED": provider.StatusUndelivered,
	"EXPIRED":     provider.StatusExpired,
	"REJECTED":    provider.StatusRejected,
	"FAILED":      provider.StatusFailed,
}

type SMSAPI struct {
	provider.Base
}

func NewSMSAPI(config map[string]string) (provider.Provider, error) {
	return &SMSAPI{Base: provider.NewBase(config)}, nil
}

func (s *SMSAPI) Key() string                    { return "smsapi" }
func (s *SMSAPI) Name() string                   { return "SMSAPI" }
func (s *SMSAPI) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (s *SMSAPI) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("access_token", "OAuth Access Token", true),
	}
}

func (s *SMSAPI) OptionalFields() []provider.ConfigField { return nil }

func (s *SMSAPI) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	form := url.Values{}
	form.Set("to", provider.FormatPhone(msg.To, false))
	form.Set("from", msg.Sender)
	form.Set("message", msg.Content)
	form.Set("format", "json")

	resp, err := s.DoRequest(ctx, "POST", smsapiAPIBase+"/sms.do",
		[]byte(form.Encode()),
		map[string]string{
			"Content-Type":  "application/x-www-form-urlencoded",
			"Authorization": "Bearer " + s.Config("access_token"),
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		List []struct {
			ID string `json:"id"`
		} `json:"list"`
		Error   int    `json:"error"`
		Message string `json:"message"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "unexpected smsapi response",
			RawResponse:  string(resp.Body),
		}, nil
	}
	if body.Error != 0 || len(body.List) == 0 {
		return &provider.SendResult{
			Success:      false,
			ErrorCode:    strconv.Itoa(body.Error),
			ErrorMessage: nonEmpty(body.Message, "smsapi rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.List[0].ID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (s *SMSAPI) Balance(ctx context.Context) (*float64, error) {
	resp, err := s.DoRequest(ctx, "GET", smsapiAPIBase+"/profile", nil,
		map[string]string{"Authorization": "Bearer " + s.Config("access_token")})
	if err != nil {
		return nil, err
	}
	var body struct {
		Points float64 `json:"points"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	return &body.Points, nil
}

func (s *SMSAPI) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("MsgId")
	status := req.Param("status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(smsapiStatuses, status),
	}
}

func (s *SMSAPI) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	from := req.Param("sms_from")
	if from == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    from,
		To:      req.Param("sms_to"),
		Text:    req.Param("sms_text"),
		Channel: model.ChannelSMS,
	}
}
