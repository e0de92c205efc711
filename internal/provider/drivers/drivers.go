// Package drivers holds the built-in delivery provider implementations.
// Each driver maps the internal message onto one third-party wire format
// and maps that provider's responses and webhooks back into the normalized
// result types.
package drivers

import (
	"encoding/base64"
	"encoding/json"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

// RegisterBuiltins registers every built-in driver on the registry.
// Intended to run exactly once at assembly time; external drivers register
// themselves the same way afterwards.
func RegisterBuiltins(r *provider.Registry) {
	r.Register("twilio", NewTwilio)
	r.Register("vonage", NewVonage)
	r.Register("plivo", NewPlivo)
	r.Register("messagebird", NewMessageBird)
	r.Register("infobip", NewInfobip)
	r.Register("clickatell", NewClickatell)
	r.Register("bulksms", NewBulkSMS)
	r.Register("textlocal", NewTextlocal)
	r.Register("msg91", NewMSG91)
	r.Register("telnyx", NewTelnyx)
	r.Register("gatewayapi", NewGatewayAPI)
	r.Register("africastalking", NewAfricasTalking)
	r.Register("smsglobal", NewSMSGlobal)
	r.Register("exotel", NewExotel)
	r.Register("kavenegar", NewKavenegar)
	r.Register("sinch", NewSinch)
	r.Register("smsapi", NewSMSAPI)
	r.Register("textmagic", NewTextMagic)
	r.Register("d7networks", NewD7Networks)
	r.Register("whatsapp_cloud", NewWhatsAppCloud)
	r.Register("generic_http", NewGenericHTTP)
}

func jsonDecode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func jsonBody(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// transportFailure wraps a transport-level error into a failed SendResult
// so callers always get the uniform shape alongside the error.
func transportFailure(err error) *provider.SendResult {
	return &provider.SendResult{
		Success:      false,
		ErrorMessage: err.Error(),
	}
}

func requiredField(name, label string, secret bool) provider.ConfigField {
	return provider.ConfigField{
		Name:   name,
		Label:  label,
		Secret: secret,
		Validate: func(v string) error {
			if v == "" {
				return errEmptyField(name)
			}
			return nil
		},
	}
}

type fieldError struct{ name string }

func (e fieldError) Error() string { return e.name + " is required" }

func errEmptyField(name string) error { return fieldError{name: name} }
