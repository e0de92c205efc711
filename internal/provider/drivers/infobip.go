package drivers

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

var infobipStatuses = map[string]provider.DeliveryStatus{
	"PENDING":       provider.StatusSending,
	"DELIVERED":     provider.StatusDelivered,
	"UNDELIVERABLE": provider.StatusUndelivered,
	"EXPIRED":       provider.StatusExpired,
	"REJECTED":      provider.StatusRejected,
}

type Infobip struct {
	provider.Base
}

func NewInfobip(config map[string]string) (provider.Provider, error) {
	return &Infobip{Base: provider.NewBase(config)}, nil
}

func (i *Infobip) Key() string                    { return "infobip" }
func (i *Infobip) Name() string                   { return "Infobip" }
func (i *Infobip) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (i *Infobip) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("base_url", "Base URL", false),
		requiredField("api_key", "API Key", true),
	}
}

func (i *Infobip) OptionalFields() []provider.ConfigField { return nil }

func (i *Infobip) baseURL() string {
	return strings.TrimSuffix(i.Config("base_url"), "/")
}

func (i *Infobip) headers() map[string]string {
	return map[string]string{
		"Authorization": "App " + i.Config("api_key"),
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
}

func (i *Infobip) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	payload := map[string]any{
		"messages": []map[string]any{{
			"from":         msg.Sender,
			"destinations": []map[string]string{{"to": provider.FormatPhone(msg.To, false)}},
			"text":         msg.Content,
		}},
	}

	resp, err := i.DoRequest(ctx, "POST", i.baseURL()+"/sms/2/text/advanced",
		jsonBody(payload), i.headers())
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		Messages []struct {
			MessageID string `json:"messageId"`
			Status    struct {
				GroupName   string `json:"groupName"`
				ID          int    `json:"id"`
				Description string `json:"description"`
			} `json:"status"`
		} `json:"messages"`
		RequestError struct {
			ServiceException struct {
				Text string `json:"text"`
			} `json:"serviceException"`
		} `json:"requestError"`
	}
	_ = jsonDecode(resp.Body, &body)

	if !resp.OK() || len(body.Messages) == 0 {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: nonEmpty(body.RequestError.ServiceException.Text, "infobip rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}

	m := body.Messages[0]
	if m.Status.GroupName == "REJECTED" {
		return &provider.SendResult{
			Success:      false,
			ErrorCode:    strconv.Itoa(m.Status.ID),
			ErrorMessage: nonEmpty(m.Status.Description, "infobip rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: m.MessageID,
		RawResponse:       string(resp.Body),
	}, nil
}

func (i *Infobip) Balance(ctx context.Context) (*float64, error) {
	resp, err := i.DoRequest(ctx, "GET", i.baseURL()+"/account/1/balance", nil, i.headers())
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

func (i *Infobip) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	var body struct {
		Results []struct {
			MessageID string `json:"messageId"`
			Status    struct {
				GroupName   string `json:"groupName"`
				ID          int    `json:"id"`
				Description string `json:"description"`
			} `json:"status"`
			Error struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"error"`
		} `json:"results"`
	}
	if err := req.JSON(&body); err != nil || len(body.Results) == 0 {
		return nil
	}

	r := body.Results[0]
	if r.MessageID == "" {
		return nil
	}
	res := &provider.DLRResult{
		ProviderMessageID: r.MessageID,
		Status:            provider.NormalizeStatus(infobipStatuses, r.Status.GroupName),
	}
	if r.Error.ID != 0 {
		res.ErrorCode = strconv.Itoa(r.Error.ID)
		res.ErrorMessage = r.Error.Name
	}
	return res
}

func (i *Infobip) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	var body struct {
		Results []struct {
			From      string `json:"from"`
			To        string `json:"to"`
			Text      string `json:"text"`
			CleanText string `json:"cleanText"`
		} `json:"results"`
	}
	if err := req.JSON(&body); err != nil || len(body.Results) == 0 {
		return nil
	}
	r := body.Results[0]
	if r.From == "" {
		return nil
	}
	return &provider.InboundResult{
		From:    r.From,
		To:      r.To,
		Text:    nonEmpty(r.CleanText, r.Text),
		Channel: model.ChannelSMS,
	}
}
