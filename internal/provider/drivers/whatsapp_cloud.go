package drivers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

const whatsAppGraphBase = "https://graph.facebook.com/v19.0"

var whatsAppStatuses = map[string]provider.DeliveryStatus{
	"sent":      provider.StatusSent,
	"delivered": provider.StatusDelivered,
	"read":      provider.StatusDelivered,
	"failed":    provider.StatusFailed,
	"deleted":   provider.StatusFailed,
}

// WhatsAppCloud drives Meta's WhatsApp Cloud API (Graph).
type WhatsAppCloud struct {
	provider.Base
}

func NewWhatsAppCloud(config map[string]string) (provider.Provider, error) {
	return &WhatsAppCloud{Base: provider.NewBase(config)}, nil
}

func (w *WhatsAppCloud) Key() string                    { return "whatsapp_cloud" }
func (w *WhatsAppCloud) Name() string                   { return "WhatsApp Cloud API" }
func (w *WhatsAppCloud) Channels() model.GatewayChannel { return model.GatewayChannelWhatsApp }

func (w *WhatsAppCloud) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("phone_number_id", "Phone Number ID", false),
		requiredField("access_token", "Access Token", true),
	}
}

func (w *WhatsAppCloud) OptionalFields() []provider.ConfigField {
	return []provider.ConfigField{
		{Name: "app_secret", Label: "App Secret (webhook signatures)", Secret: true},
	}
}

func (w *WhatsAppCloud) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                provider.FormatPhone(msg.To, false),
	}
	if msg.MediaURL != "" {
		payload["type"] = "image"
		payload["image"] = map[string]string{"link": msg.MediaURL, "caption": msg.Content}
	} else {
		payload["type"] = "text"
		payload["text"] = map[string]string{"body": msg.Content}
	}

	resp, err := w.DoRequest(ctx, "POST",
		fmt.Sprintf("%s/%s/messages", whatsAppGraphBase, w.Config("phone_number_id")),
		jsonBody(payload),
		map[string]string{
			"Authorization": "Bearer " + w.Config("access_token"),
			"Content-Type":  "application/json",
		})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = jsonDecode(resp.Body, &body)

	if len(body.Messages) == 0 {
		return &provider.SendResult{
			Success:      false,
			ErrorCode:    fmt.Sprintf("%d", body.Error.Code),
			ErrorMessage: nonEmpty(body.Error.Message, "whatsapp cloud api rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: body.Messages[0].ID,
		RawResponse:       string(resp.Body),
	}, nil
}

type whatsAppWebhook struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
				} `json:"metadata"`
				Statuses []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
					Errors []struct {
						Code  int    `json:"code"`
						Title string `json:"title"`
					} `json:"errors"`
				} `json:"statuses"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Image struct {
						Link string `json:"link"`
					} `json:"image"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (w *WhatsAppCloud) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	var body whatsAppWebhook
	if err := req.JSON(&body); err != nil {
		return nil
	}
	for _, e := range body.Entry {
		for _, ch := range e.Changes {
			for _, st := range ch.Value.Statuses {
				res := &provider.DLRResult{
					ProviderMessageID: st.ID,
					Status:            provider.NormalizeStatus(whatsAppStatuses, st.Status),
				}
				if len(st.Errors) > 0 {
					res.ErrorCode = fmt.Sprintf("%d", st.Errors[0].Code)
					res.ErrorMessage = st.Errors[0].Title
				}
				return res
			}
		}
	}
	return nil
}

func (w *WhatsAppCloud) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	var body whatsAppWebhook
	if err := req.JSON(&body); err != nil {
		return nil
	}
	for _, e := range body.Entry {
		for _, ch := range e.Changes {
			for _, m := range ch.Value.Messages {
				return &provider.InboundResult{
					From:     m.From,
					To:       ch.Value.Metadata.DisplayPhoneNumber,
					Text:     m.Text.Body,
					MediaURL: m.Image.Link,
					Channel:  model.ChannelWhatsApp,
				}
			}
		}
	}
	return nil
}

// VerifyWebhook checks the X-Hub-Signature-256 header, an HMAC-SHA256 of
// the raw body keyed by the app secret. Falls back to the shared-token
// check when no app secret is configured.
func (w *WhatsAppCloud) VerifyWebhook(req *provider.WebhookRequest, secret string) bool {
	appSecret := w.Config("app_secret")
	if appSecret == "" {
		return w.VerifyToken(req, secret)
	}

	sig := req.HeaderValue("X-Hub-Signature-256")
	sig = strings.TrimPrefix(sig, "sha256=")
	if sig == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(req.Body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}
