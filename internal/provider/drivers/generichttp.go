package drivers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

// Statuses seen across ad-hoc HTTP gateways, lowercased.
var genericStatuses = map[string]provider.DeliveryStatus{
	"delivered":   provider.StatusDelivered,
	"delivrd":     provider.StatusDelivered,
	"sent":        provider.StatusSent,
	"accepted":    provider.StatusSent,
	"undelivered": provider.StatusUndelivered,
	"undeliv":     provider.StatusUndelivered,
	"expired":     provider.StatusExpired,
	"rejected":    provider.StatusRejected,
	"rejectd":     provider.StatusRejected,
	"failed":      provider.StatusFailed,
	"sending":     provider.StatusSending,
	"queued":      provider.StatusQueued,
	"buffered":    provider.StatusQueued,
}

// GenericHTTP is the configuration-only driver: an operator maps parameter
// names, values and locations (request body vs. URL query) for the sender,
// destination, message, authentication and up to three free-form fields,
// plus dot-path expressions for pulling a message id, an error message and
// a balance out of the response. Providers without a dedicated driver are
// onboarded through this one.
type GenericHTTP struct {
	provider.Base
}

func NewGenericHTTP(config map[string]string) (provider.Provider, error) {
	return &GenericHTTP{Base: provider.NewBase(config)}, nil
}

func (g *GenericHTTP) Key() string                    { return "generic_http" }
func (g *GenericHTTP) Name() string                   { return "Generic HTTP" }
func (g *GenericHTTP) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (g *GenericHTTP) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("url", "Request URL", false),
		requiredField("to_param", "Destination parameter name", false),
		requiredField("message_param", "Message parameter name", false),
	}
}

func (g *GenericHTTP) OptionalFields() []provider.ConfigField {
	fields := []provider.ConfigField{
		{Name: "method", Label: "HTTP method (default POST)"},
		{Name: "from_param", Label: "Sender parameter name"},
		{Name: "to_in", Label: "Destination location (body|query)"},
		{Name: "from_in", Label: "Sender location (body|query)"},
		{Name: "message_in", Label: "Message location (body|query)"},
		{Name: "auth_param", Label: "Auth parameter name"},
		{Name: "auth_value", Label: "Auth parameter value", Secret: true},
		{Name: "auth_in", Label: "Auth location (body|query)"},
		{Name: "response_id_path", Label: "Response path: message id"},
		{Name: "response_error_path", Label: "Response path: error message"},
		{Name: "response_balance_path", Label: "Response path: balance"},
		{Name: "balance_url", Label: "Balance URL"},
		{Name: "dlr_id_param", Label: "DLR message-id parameter (default id)"},
		{Name: "dlr_status_param", Label: "DLR status parameter (default status)"},
	}
	for i := 1; i <= 3; i++ {
		fields = append(fields,
			provider.ConfigField{Name: fmt.Sprintf("custom%d_param", i), Label: fmt.Sprintf("Custom field %d name", i)},
			provider.ConfigField{Name: fmt.Sprintf("custom%d_value", i), Label: fmt.Sprintf("Custom field %d value", i)},
			provider.ConfigField{Name: fmt.Sprintf("custom%d_in", i), Label: fmt.Sprintf("Custom field %d location", i)},
		)
	}
	return fields
}

// applyMapping places one configured parameter into the query or the body
// set. Unset mappings are omitted entirely.
func applyMapping(query, body url.Values, name, value, location string) {
	if name == "" {
		return
	}
	if location == "query" {
		query.Set(name, value)
		return
	}
	body.Set(name, value)
}

func (g *GenericHTTP) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	query := url.Values{}
	body := url.Values{}

	applyMapping(query, body, g.Config("to_param"), provider.FormatPhone(msg.To, false), g.Config("to_in"))
	applyMapping(query, body, g.Config("from_param"), msg.Sender, g.Config("from_in"))
	applyMapping(query, body, g.Config("message_param"), msg.Content, g.Config("message_in"))
	applyMapping(query, body, g.Config("auth_param"), g.Config("auth_value"), g.Config("auth_in"))
	for i := 1; i <= 3; i++ {
		applyMapping(query, body,
			g.Config(fmt.Sprintf("custom%d_param", i)),
			g.Config(fmt.Sprintf("custom%d_value", i)),
			g.Config(fmt.Sprintf("custom%d_in", i)))
	}

	method := strings.ToUpper(g.ConfigDefault("method", "POST"))
	reqURL := g.Config("url")
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(reqURL, "?") {
			sep = "&"
		}
		reqURL += sep + query.Encode()
	}

	var reqBody []byte
	headers := map[string]string{}
	if method != "GET" && len(body) > 0 {
		reqBody = []byte(body.Encode())
		headers["Content-Type"] = "application/x-www-form-urlencoded"
	}

	resp, err := g.DoRequest(ctx, method, reqURL, reqBody, headers)
	if err != nil {
		return transportFailure(err), err
	}

	res := &provider.SendResult{RawResponse: string(resp.Body)}

	var parsed any
	jsonOK := json.Unmarshal(resp.Body, &parsed) == nil

	if path := g.Config("response_error_path"); path != "" && jsonOK {
		if v, ok := lookupPath(parsed, path); ok {
			if s := stringify(v); s != "" {
				res.Success = false
				res.ErrorMessage = s
				return res, nil
			}
		}
	}

	if !resp.OK() {
		res.Success = false
		res.ErrorMessage = fmt.Sprintf("provider returned HTTP %d", resp.StatusCode)
		return res, nil
	}

	res.Success = true
	if path := g.Config("response_id_path"); path != "" && jsonOK {
		if v, ok := lookupPath(parsed, path); ok {
			res.ProviderMessageID = stringify(v)
		}
	}
	return res, nil
}

func (g *GenericHTTP) Balance(ctx context.Context) (*float64, error) {
	balURL := g.Config("balance_url")
	path := g.Config("response_balance_path")
	if balURL == "" || path == "" {
		return nil, nil
	}
	resp, err := g.DoRequest(ctx, "GET", balURL, nil, nil)
	if err != nil {
		return nil, err
	}
	var parsed any
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, err
	}
	v, ok := lookupPath(parsed, path)
	if !ok {
		return nil, fmt.Errorf("balance path %q not found in response", path)
	}
	f, err := strconv.ParseFloat(stringify(v), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (g *GenericHTTP) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param(g.ConfigDefault("dlr_id_param", "id"))
	status := req.Param(g.ConfigDefault("dlr_status_param", "status"))
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(genericStatuses, strings.ToLower(status)),
	}
}

// lookupPath walks a decoded JSON value along a dot path. Numeric path
// elements index arrays.
func lookupPath(data any, path string) (any, bool) {
	cur := data
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
