package provider

import (
	"encoding/json"
	"net/url"
	"strings"
)

// WebhookRequest is a transport-agnostic view of an inbound webhook call.
// Providers read whichever representation their wire format uses.
type WebhookRequest struct {
	Method string
	// URL is the full request URL as the provider signed it, where
	// applicable.
	URL    string
	Header map[string]string
	Query  url.Values
	Body   []byte
}

// HeaderValue is a case-insensitive header lookup.
func (r *WebhookRequest) HeaderValue(name string) string {
	for k, v := range r.Header {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Form parses the body as application/x-www-form-urlencoded. Returns an
// empty set on malformed input.
func (r *WebhookRequest) Form() url.Values {
	vals, err := url.ParseQuery(string(r.Body))
	if err != nil {
		return url.Values{}
	}
	return vals
}

// JSON unmarshals the body into v.
func (r *WebhookRequest) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Param looks the name up in the query string first, then the form body.
func (r *WebhookRequest) Param(name string) string {
	if v := r.Query.Get(name); v != "" {
		return v
	}
	return r.Form().Get(name)
}
