package drivers

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

func formRequest(values url.Values) *provider.WebhookRequest {
	return &provider.WebhookRequest{
		Method: "POST",
		Header: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Query:  url.Values{},
		Body:   []byte(values.Encode()),
	}
}

func TestRegisterBuiltins(t *testing.T) {
	r := provider.NewRegistry(nil, nil)
	RegisterBuiltins(r)

	keys := []string{
		"twilio", "vonage", "plivo", "messagebird", "infobip", "clickatell",
		"bulksms", "textlocal", "msg91", "telnyx", "gatewayapi",
		"africastalking", "smsglobal", "exotel", "kavenegar", "sinch",
		"smsapi", "textmagic", "d7networks", "whatsapp_cloud", "generic_http",
	}
	for _, key := range keys {
		p, err := r.Create(key, map[string]string{})
		require.NoError(t, err, key)
		assert.Equal(t, key, p.Key())
		assert.NotEmpty(t, p.Name())
	}

	_, err := r.Create("nonexistent", nil)
	assert.ErrorIs(t, err, provider.ErrUnknownGatewayType)
}

func TestTwilio_ParseDeliveryReceipt(t *testing.T) {
	tw, err := NewTwilio(map[string]string{})
	require.NoError(t, err)

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("MessageStatus", "delivered")

	dlr := tw.ParseDeliveryReceipt(formRequest(form))
	require.NotNil(t, dlr)
	assert.Equal(t, "SM123", dlr.ProviderMessageID)
	assert.Equal(t, provider.StatusDelivered, dlr.Status)

	t.Run("unknown native status maps to unknown", func(t *testing.T) {
		form.Set("MessageStatus", "teleported")
		dlr := tw.ParseDeliveryReceipt(formRequest(form))
		require.NotNil(t, dlr)
		assert.Equal(t, provider.StatusUnknown, dlr.Status)
	})

	t.Run("missing sid yields nil", func(t *testing.T) {
		assert.Nil(t, tw.ParseDeliveryReceipt(formRequest(url.Values{})))
	})
}

func TestTwilio_ParseInbound(t *testing.T) {
	tw, _ := NewTwilio(map[string]string{})

	form := url.Values{}
	form.Set("MessageSid", "SM9")
	form.Set("From", "whatsapp:+15551234567")
	form.Set("To", "whatsapp:+15559876543")
	form.Set("Body", "hi there")

	in := tw.ParseInbound(formRequest(form))
	require.NotNil(t, in)
	assert.Equal(t, "+15551234567", in.From)
	assert.Equal(t, "+15559876543", in.To)
	assert.Equal(t, "hi there", in.Text)
	assert.Equal(t, model.ChannelWhatsApp, in.Channel)

	t.Run("plain sms keeps channel", func(t *testing.T) {
		form.Set("From", "+15551234567")
		form.Set("To", "+15559876543")
		in := tw.ParseInbound(formRequest(form))
		require.NotNil(t, in)
		assert.Equal(t, model.ChannelSMS, in.Channel)
	})
}

func TestTwilio_VerifyWebhook(t *testing.T) {
	tw, _ := NewTwilio(map[string]string{})
	authToken := "secret-token"

	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("MessageStatus", "sent")

	reqURL := "https://example.com/webhooks/dlr/1"
	// Twilio signs URL + concatenated sorted params.
	payload := reqURL + "MessageSid" + "SM1" + "MessageStatus" + "sent"
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := formRequest(form)
	req.URL = reqURL
	req.Header["X-Twilio-Signature"] = sig

	assert.True(t, tw.VerifyWebhook(req, authToken))
	assert.False(t, tw.VerifyWebhook(req, "wrong-token"))

	req.Header["X-Twilio-Signature"] = "tampered"
	assert.False(t, tw.VerifyWebhook(req, authToken))
}

func TestWhatsAppCloud_Webhook(t *testing.T) {
	wa, err := NewWhatsAppCloud(map[string]string{})
	require.NoError(t, err)

	statusBody := []byte(`{"entry":[{"changes":[{"value":{
		"metadata":{"display_phone_number":"15550001111"},
		"statuses":[{"id":"wamid.X","status":"read"}]}}]}]}`)
	dlr := wa.ParseDeliveryReceipt(&provider.WebhookRequest{Body: statusBody})
	require.NotNil(t, dlr)
	assert.Equal(t, "wamid.X", dlr.ProviderMessageID)
	assert.Equal(t, provider.StatusDelivered, dlr.Status)

	inboundBody := []byte(`{"entry":[{"changes":[{"value":{
		"metadata":{"display_phone_number":"15550001111"},
		"messages":[{"from":"15552223333","type":"text","text":{"body":"hola"}}]}}]}]}`)
	in := wa.ParseInbound(&provider.WebhookRequest{Body: inboundBody})
	require.NotNil(t, in)
	assert.Equal(t, "15552223333", in.From)
	assert.Equal(t, "15550001111", in.To)
	assert.Equal(t, "hola", in.Text)
	assert.Equal(t, model.ChannelWhatsApp, in.Channel)

	assert.Nil(t, wa.ParseDeliveryReceipt(&provider.WebhookRequest{Body: inboundBody}))
	assert.Nil(t, wa.ParseInbound(&provider.WebhookRequest{Body: statusBody}))
}

func TestWhatsAppCloud_VerifyWebhook(t *testing.T) {
	wa, _ := NewWhatsAppCloud(map[string]string{"app_secret": "app-secret"})
	body := []byte(`{"entry":[]}`)

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	req := &provider.WebhookRequest{
		Header: map[string]string{"X-Hub-Signature-256": sig},
		Body:   body,
	}
	assert.True(t, wa.VerifyWebhook(req, ""))

	req.Header["X-Hub-Signature-256"] = "sha256=deadbeef"
	assert.False(t, wa.VerifyWebhook(req, ""))
}

func TestGenericHTTP_Mappings(t *testing.T) {
	t.Run("applyMapping routes by location and omits unset", func(t *testing.T) {
		query := url.Values{}
		body := url.Values{}
		applyMapping(query, body, "to", "15551234", "query")
		applyMapping(query, body, "text", "hello", "body")
		applyMapping(query, body, "", "ignored", "query")

		assert.Equal(t, "15551234", query.Get("to"))
		assert.Equal(t, "hello", body.Get("text"))
		assert.Len(t, query, 1)
		assert.Len(t, body, 1)
	})

	t.Run("delivery receipt uses configured param names", func(t *testing.T) {
		g, err := NewGenericHTTP(map[string]string{
			"dlr_id_param":     "ref",
			"dlr_status_param": "state",
		})
		require.NoError(t, err)

		q := url.Values{}
		q.Set("ref", "abc-1")
		q.Set("state", "DELIVRD")
		dlr := g.ParseDeliveryReceipt(&provider.WebhookRequest{Query: q})
		require.NotNil(t, dlr)
		assert.Equal(t, "abc-1", dlr.ProviderMessageID)
		assert.Equal(t, provider.StatusDelivered, dlr.Status)
	})
}

func TestLookupPath(t *testing.T) {
	var data any
	require.NoError(t, jsonDecode([]byte(`{
		"messages":[{"id":"m-1","status":{"group":"DELIVERED"}}],
		"balance":"12.5"
	}`), &data))

	v, ok := lookupPath(data, "messages.0.id")
	require.True(t, ok)
	assert.Equal(t, "m-1", stringify(v))

	v, ok = lookupPath(data, "messages.0.status.group")
	require.True(t, ok)
	assert.Equal(t, "DELIVERED", stringify(v))

	_, ok = lookupPath(data, "messages.3.id")
	assert.False(t, ok)

	_, ok = lookupPath(data, "missing.path")
	assert.False(t, ok)
}
