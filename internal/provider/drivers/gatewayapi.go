package drivers

import (
	"context"
	"strconv"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const gatewayAPIBase = "https://gatewayapi.com/rest"

var gatewayAPIStatuses = map[string]provider.DeliveryStatus{
	"DELIVERED":     provider.StatusDelivered,
	"ACCEPTED":      provider.StatusSent,
	"ENROUTE":       provider.StatusSending,
	"BUFFERED":      provider.StatusSending,
	"EXPIRED":       provider.StatusExpired,
	"UNDELIVERABLE": provider.StatusUndelivered,
	"REJECTED":      provider.StatusRejected,
	"SKIPPED":       provider.StatusFailed,
}

type GatewayAPI struct {
	provider.Base
}

func NewGatewayAPI(config map[string]string) (provider.Provider, error) {
	return &GatewayAPI{Base: provider.NewBase(config)}, nil
}

func (g *GatewayAPI) Key() string                    { return "gatewayapi" }
func (g *GatewayAPI) Name() string                   { return "GatewayAPI" }
func (g *GatewayAPI) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (g *GatewayAPI) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("api_token", "API Token", true),
	}
}

func (g *GatewayAPI) OptionalFields() []provider.ConfigField { return nil }

func (g *GatewayAPI) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	msisdn, err := strconv.ParseUint(provider.FormatPhone(msg.To, false), 10, 64)
	if err != nil {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "destination is not a numeric MSISDN",
		}, nil
	}

	payload := jsonBody(map[string]any{
		"sender":     msg.Sender,
		"message":    msg.Content,
		"recipients": []map[string]any{{"msisdn": msisdn}},
	})

	resp, err := g.DoRequest(ctx, "POST", gatewayAPIBase+"/mtsms", payload,
		map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Token " + g.Config("api_token"),
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		IDs     []int64 `json:"ids"`
		Message string  `json:"message"`
		Code    string  `json:"code"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "unexpected gatewayapi response",
			RawResponse:  string(resp.Body),
		}, nil
	}
	if !resp.OK() || len(body.IDs) == 0 {
		return &provider.SendResult{
			Success:      false,
			ErrorCode:    body.Code,
			ErrorMessage: nonEmpty(body.Message, "gatewayapi rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: strconv.FormatInt(body.IDs[0], 10),
		RawResponse:       string(resp.Body),
	}, nil
}

func (g *GatewayAPI) Balance(ctx context.Context) (*float64, error) {
	resp, err := g.DoRequest(ctx, "GET", gatewayAPIBase+"/me", nil,
		map[string]string{"Authorization": "Token " + g.Config("api_token")})
	if err != nil {
		return nil, err
	}
	var body struct {
		Credit float64 `json:"credit"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	return &body.Credit, nil
}

func (g *GatewayAPI) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	var body struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := req.JSON(&body); err != nil || body.ID == 0 || body.Status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: strconv.FormatInt(body.ID, 10),
		Status:            provider.NormalizeStatus(gatewayAPIStatuses, body.Status),
		ErrorCode:         body.Error,
	}
}

func (g *GatewayAPI) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	var body struct {
		MSISDN   int64  `json:"msisdn"`
		Receiver int64  `json:"receiver"`
		Message  string `json:"message"`
	}
	if err := req.JSON(&body); err != nil || body.MSISDN == 0 {
		return nil
	}
	return &provider.InboundResult{
		From:    strconv.FormatInt(body.MSISDN, 10),
		To:      strconv.FormatInt(body.Receiver, 10),
		Text:    body.Message,
		Channel: model.ChannelSMS,
	}
}
