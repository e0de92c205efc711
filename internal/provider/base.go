package provider

import (
	"context"
	"crypto/subtle"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
)

// RequestTimeout bounds every provider HTTP call. A timeout is a transport
// failure, never an unhandled fault.
const RequestTimeout = 30 * time.Second

// HTTPResponse is the raw outcome of a provider HTTP call.
type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

func (r *HTTPResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Base carries the pieces shared by every concrete provider: the merged
// gateway configuration, an HTTP client with a hard deadline, credential
// redaction for diagnostics, and the default webhook-token check.
type Base struct {
	config map[string]string
	client *fasthttp.Client
}

func NewBase(config map[string]string) Base {
	return Base{
		config: config,
		client: &fasthttp.Client{
			ReadTimeout:         RequestTimeout,
			WriteTimeout:        RequestTimeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

// Config returns a configuration value, empty when unset.
func (b *Base) Config(key string) string { return b.config[key] }

func (b *Base) ConfigDefault(key, def string) string {
	if v, ok := b.config[key]; ok && v != "" {
		return v
	}
	return def
}

// DoRequest performs one HTTP call with the provider deadline. The request
// is logged with credential-bearing fields redacted.
func (b *Base) DoRequest(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (*HTTPResponse, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	req.Header.SetMethod(method)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok || deadline.After(time.Now().Add(RequestTimeout)) {
		deadline = time.Now().Add(RequestTimeout)
	}

	start := time.Now()
	err := b.client.DoDeadline(req, resp, deadline)
	latency := time.Since(start)

	if err != nil {
		logger.Warn("provider request failed",
			"method", method, "url", RedactURL(rawURL), "latency", latency.String(), "error", err)
		return nil, err
	}

	logger.Debug("provider request",
		"method", method, "url", RedactURL(rawURL), "status", resp.StatusCode(), "latency", latency.String())

	out := &HTTPResponse{StatusCode: resp.StatusCode()}
	out.Body = append(out.Body, resp.Body()...)
	return out, nil
}

// VerifyToken is the default webhook check: a shared token carried in the
// "token" query/form parameter or the X-Webhook-Token header, compared in
// constant time. No secret configured means nothing can be verified.
func (b *Base) VerifyToken(req *WebhookRequest, secret string) bool {
	if secret == "" {
		return false
	}
	presented := req.Param("token")
	if presented == "" {
		presented = req.HeaderValue("X-Webhook-Token")
	}
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1
}

// VerifyWebhook is the default for providers without a signature scheme.
func (b *Base) VerifyWebhook(req *WebhookRequest, secret string) bool {
	return b.VerifyToken(req, secret)
}

// Balance is the default "not supported" implementation.
func (b *Base) Balance(ctx context.Context) (*float64, error) { return nil, nil }

// ParseInbound is the default for providers without an inbound channel.
func (b *Base) ParseInbound(req *WebhookRequest) *InboundResult { return nil }

var sensitiveParams = []string{
	"password", "pass", "secret", "api_key", "apikey", "api_secret",
	"token", "access_token", "auth_token", "key", "hash",
}

func sensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveParams {
		if lower == s {
			return true
		}
	}
	return false
}

// RedactURL masks credential-bearing query parameters and any userinfo
// before a URL reaches a log line.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	q := u.Query()
	changed := false
	for name := range q {
		if sensitiveParam(name) {
			q.Set(name, "***")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// RedactValues masks credential-bearing fields in a parameter map.
func RedactValues(values url.Values) url.Values {
	out := url.Values{}
	for name, vals := range values {
		if sensitiveParam(name) {
			out.Set(name, "***")
			continue
		}
		out[name] = vals
	}
	return out
}

// FormatPhone strips every non-digit from a number, optionally keeping a
// leading plus.
func FormatPhone(number string, withPlus bool) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if withPlus && digits != "" {
		return "+" + digits
	}
	return digits
}
