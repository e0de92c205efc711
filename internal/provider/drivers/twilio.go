package drivers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

var twilioStatuses = map[string]provider.DeliveryStatus{
	"queued":      provider.StatusQueued,
	"accepted":    provider.StatusQueued,
	"sending":     provider.StatusSending,
	"sent":        provider.StatusSent,
	"delivered":   provider.StatusDelivered,
	"read":        provider.StatusDelivered,
	"undelivered": provider.StatusUndelivered,
	"failed":      provider.StatusFailed,
	"canceled":    provider.StatusFailed,
}

type Twilio struct {
	provider.Base
}

func NewTwilio(config map[string]string) (provider.Provider, error) {
	return &Twilio{Base: provider.NewBase(config)}, nil
}

func (t *Twilio) Key() string                      { return "twilio" }
func (t *Twilio) Name() string                     { return "Twilio" }
func (t *Twilio) Channels() model.GatewayChannel   { return model.GatewayChannelBoth }

func (t *Twilio) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("account_sid", "Account SID", false),
		requiredField("auth_token", "Auth Token", true),
	}
}

func (t *Twilio) OptionalFields() []provider.ConfigField {
	return []provider.ConfigField{
		{Name: "status_callback", Label: "Status Callback URL"},
	}
}

func (t *Twilio) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	sid := t.Config("account_sid")

	to := provider.FormatPhone(msg.To, true)
	from := msg.Sender
	if msg.Channel == model.ChannelWhatsApp {
		to = "whatsapp:" + to
		from = "whatsapp:" + from
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", msg.Content)
	if msg.MediaURL != "" {
		form.Set("MediaUrl", msg.MediaURL)
	}
	if cb := t.Config("status_callback"); cb != "" {
		form.Set("StatusCallback", cb)
	}

	resp, err := t.DoRequest(ctx, "POST",
		fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPIBase, sid),
		[]byte(form.Encode()),
		map[string]string{
			"Authorization": basicAuth(sid, t.Config("auth_token")),
			"Content-Type":  "application/x-www-form-urlencoded",
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		Sid     string `json:"sid"`
		Status  string `json:"status"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	_ = jsonDecode(resp.Body, &body)

	if !resp.OK() || body.Sid == "" {
		return &provider.SendResult{
			Success:      false,
			ErrorCode:    strconv.Itoa(body.Code),
			ErrorMessage: nonEmpty(body.Message, "twilio rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}

	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.Sid,
		RawResponse:       string(resp.Body),
	}, nil
}

func (t *Twilio) Balance(ctx context.Context) (*float64, error) {
	sid := t.Config("account_sid")
	resp, err := t.DoRequest(ctx, "GET",
		fmt.Sprintf("%s/Accounts/%s/Balance.json", twilioAPIBase, sid), nil,
		map[string]string{"Authorization": basicAuth(sid, t.Config("auth_token"))})
	if err != nil {
		return nil, err
	}
	var body struct {
		Balance string `json:"balance"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	v, err := strconv.ParseFloat(body.Balance, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *Twilio) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	form := req.Form()
	sid := form.Get("MessageSid")
	status := form.Get("MessageStatus")
	if sid == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: sid,
		Status:            provider.NormalizeStatus(twilioStatuses, status),
		ErrorCode:         form.Get("ErrorCode"),
	}
}

func (t *Twilio) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	form := req.Form()
	from := form.Get("From")
	if from == "" || form.Get("MessageSid") == "" {
		return nil
	}
	channel := model.ChannelSMS
	if len(from) > 9 && from[:9] == "whatsapp:" {
		channel = model.ChannelWhatsApp
		from = from[9:]
	}
	to := form.Get("To")
	if len(to) > 9 && to[:9] == "whatsapp:" {
		to = to[9:]
	}
	return &provider.InboundResult{
		From:     from,
		To:       to,
		Text:     form.Get("Body"),
		MediaURL: form.Get("MediaUrl0"),
		Channel:  channel,
	}
}

// VerifyWebhook checks the X-Twilio-Signature header: base64 of the
// HMAC-SHA1 over the request URL with the sorted form parameters appended,
// keyed by the auth token.
func (t *Twilio) VerifyWebhook(req *provider.WebhookRequest, secret string) bool {
	if secret == "" {
		return false
	}
	presented := req.HeaderValue("X-Twilio-Signature")
	if presented == "" {
		return false
	}

	form := req.Form()
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := req.URL
	for _, k := range keys {
		payload += k + form.Get(k)
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
