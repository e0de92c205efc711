package drivers

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const smsGlobalAPIBase = "https://api.smsglobal.com/http-api.php"

var smsGlobalStatuses = map[string]provider.DeliveryStatus{
	"DELIVRD": provider.StatusDelivered,
	"UNDELIV": provider.StatusUndelivered,
	"EXPIRED": provider.StatusExpired,
	"REJECTD": provider.StatusRejected,
	"ACKED":   provider.StatusSent,
}

// SMSGlobal speaks the legacy plain-text HTTP API: responses are
// "OK: 0; Sent queued message ID: <id> ..." or "ERROR: <reason>".
type SMSGlobal struct {
	provider.Base
}

func NewSMSGlobal(config map[string]string) (provider.Provider, error) {
	return &SMSGlobal{Base: provider.NewBase(config)}, nil
}

func (s *SMSGlobal) Key() string                    { return "smsglobal" }
func (s *SMSGlobal) Name() string                   { return "SMSGlobal" }
func (s *SMSGlobal) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (s *SMSGlobal) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("user", "API Username", false),
		requiredField("password", "API Password", true),
	}
}

func (s *SMSGlobal) OptionalFields() []provider.ConfigField { return nil }

func (s *SMSGlobal) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	form := url.Values{}
	form.Set("action", "sendsms")
	form.Set("user", s.Config("user"))
	form.Set("password", s.Config("password"))
	form.Set("from", msg.Sender)
	form.Set("to", provider.FormatPhone(msg.To, false))
	form.Set("text", msg.Content)

	resp, err := s.DoRequest(ctx, "POST", smsGlobalAPIBase,
		[]byte(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if err != nil {
		return transportFailure(err), err
	}

	raw := strings.TrimSpace(string(resp.Body))
	if !strings.HasPrefix(raw, "OK") {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: nonEmpty(raw, "smsglobal rejected the message"),
			RawResponse:  raw,
		}, nil
	}

	var id string
	if i := strings.Index(raw, "ID:"); i >= 0 {
		id = strings.Fields(raw[i+len("ID:"):])[0]
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: id,
		RawResponse:       raw,
	}, nil
}

func (s *SMSGlobal) Balance(ctx context.Context) (*float64, error) {
	q := url.Values{}
	q.Set("action", "balancesms")
	q.Set("user", s.Config("user"))
	q.Set("password", s.Config("password"))
	resp, err := s.DoRequest(ctx, "GET", smsGlobalAPIBase+"?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	// "BALANCE: 1234.0; USER: ..."
	raw := strings.TrimSpace(string(resp.Body))
	i := strings.Index(raw, "BALANCE:")
	if i < 0 {
		return nil, nil
	}
	fields := strings.FieldsFunc(raw[i+len("BALANCE:"):], func(r rune) bool {
		return r == ' ' || r == ';'
	})
	if len(fields) == 0 {
		return nil, nil
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *SMSGlobal) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("msgid")
	status := req.Param("dlrstatus")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(smsGlobalStatuses, status),
	}
}

func (s *SMSGlobal) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	from := req.Param("from")
	if from == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    from,
		To:      req.Param("to"),
		Text:    req.Param("msg"),
		Channel: model.ChannelSMS,
	}
}
