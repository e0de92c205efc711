package drivers

import (
	"context"
	"fmt"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

var sinchStatuses = map[string]provider.DeliveryStatus{
	"Queued":     provider.StatusQueued,
	"Dispatched": provider.StatusSending,
	"Delivered":  provider.StatusDelivered,
	"Failed":     provider.StatusFailed,
	"Expired":    provider.StatusExpired,
	"Rejected":   provider.StatusRejected,
	"Aborted":    provider.StatusFailed,
}

type Sinch struct {
	provider.Base
}

func NewSinch(config map[string]string) (provider.Provider, error) {
	return &Sinch{Base: provider.NewBase(config)}, nil
}

func (s *Sinch) Key() string                    { return "sinch" }
func (s *Sinch) Name() string                   { return "Sinch" }
func (s *Sinch) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (s *Sinch) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("service_plan_id", "Service Plan ID", false),
		requiredField("api_token", "API Token", true),
	}
}

func (s *Sinch) OptionalFields() []provider.ConfigField {
	return []provider.ConfigField{
		{Name: "region", Label: "API region (default us)"},
	}
}

func (s *Sinch) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	payload := jsonBody(map[string]any{
		"from": msg.Sender,
		"to":   []string{provider.FormatPhone(msg.To, true)},
		"body": msg.Content,
	})

	endpoint := fmt.Sprintf("https://%s.sms.api.sinch.com/xms/v1/%s/batches",
		s.ConfigDefault("region", "us"), s.Config("service_plan_id"))
	resp, err := s.DoRequest(ctx, "POST", endpoint, payload,
		map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + s.Config("api_token"),
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		ID   string `json:"id"`
		Code string `json:"code"`
		Text string `json:"text"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "unexpected sinch response",
			RawResponse:  string(resp.Body),
		}, nil
	}
	if !resp.OK() || body.ID == "" {
		return &provider.SendResult{
			Success:      false,
			ErrorCode:    body.Code,
			ErrorMessage: nonEmpty(body.Text, "sinch rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.ID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (s *Sinch) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	var body struct {
		Type    string `json:"type"`
		BatchID string `json:"batch_id"`
		Status  string `json:"status"`
		Code    int    `json:"code"`
	}
	if err := req.JSON(&body); err != nil || body.BatchID == "" || body.Status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: body.BatchID,
		Status:            provider.NormalizeStatus(sinchStatuses, body.Status),
		ErrorCode:         fmt.Sprintf("%d", body.Code),
	}
}

func (s *Sinch) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
		Body string `json:"body"`
	}
	if err := req.JSON(&body); err != nil || body.From == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    body.From,
		To:      body.To,
		Text:    body.Body,
		Channel: model.ChannelSMS,
	}
}
