package drivers

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const msg91APIBase = "https://control.msg91.com"

// MSG91 reports numeric delivery codes.
var msg91Statuses = map[string]provider.DeliveryStatus{
	"1":  provider.StatusDelivered,
	"2":  provider.StatusFailed,
	"3":  provider.StatusUndelivered,
	"5":  provider.StatusSending,
	"6":  provider.StatusQueued,
	"16": provider.StatusRejected,
	"17": provider.StatusRejected, // blocked by NDNC registry
	"25": provider.StatusExpired,
}

type MSG91 struct {
	provider.Base
}

func NewMSG91(config map[string]string) (provider.Provider, error) {
	return &MSG91{Base: provider.NewBase(config)}, nil
}

func (m *MSG91) Key() string                    { return "msg91" }
func (m *MSG91) Name() string                   { return "MSG91" }
func (m *MSG91) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (m *MSG91) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("auth_key", "Auth Key", true),
	}
}

func (m *MSG91) OptionalFields() []provider.ConfigField {
	return []provider.ConfigField{
		{Name: "route", Label: "Route (1 promotional, 4 transactional)"},
	}
}

func (m *MSG91) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	payload := map[string]any{
		"sender": msg.Sender,
		"route":  m.ConfigDefault("route", "4"),
		"sms": []map[string]any{{
			"message": msg.Content,
			"to":      []string{provider.FormatPhone(msg.To, false)},
		}},
	}

	resp, err := m.DoRequest(ctx, "POST", msg91APIBase+"/api/v2/sendsms",
		jsonBody(payload),
		map[string]string{
			"authkey":      m.Config("auth_key"),
			"Content-Type": "application/json",
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	_ = jsonDecode(resp.Body, &body)

	if body.Type != "success" {
		return &provider.SendResult{
			Success:      false,
			ErrorCode:    body.Code,
			ErrorMessage: nonEmpty(body.Message, "msg91 rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	// on success the message field carries the request id
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.Message,
		RawResponse:       string(resp.Body),
	}, nil
}

func (m *MSG91) Balance(ctx context.Context) (*float64, error) {
	resp, err := m.DoRequest(ctx, "GET",
		msg91APIBase+"/api/balance.php?type=4&authkey="+m.Config("auth_key"), nil, nil)
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(resp.Body)), 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (m *MSG91) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("requestId")
	status := req.Param("status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(msg91Statuses, status),
	}
}
