package drivers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
)

// Kavenegar reports delivery state as numeric codes.
var kavenegarStatuses = map[string]provider.DeliveryStatus{
	"1":  provider.StatusQueued,
	"2":  provider.StatusSending,
	"4":  provider.StatusSent,
	"5":  provider.StatusSent,
	"6":  provider.StatusFailed,
	"10": provider.StatusDelivered,
	"11": provider.StatusUndelivered,
	"13": provider.StatusRejected,
	"14": provider.StatusRejected,
}

type Kavenegar struct {
	provider.Base
}

func NewKavenegar(config map[string]string) (provider.Provider, error) {
	return &Kavenegar{Base: provider.NewBase(config)}, nil
}

func (k *Kavenegar) Key() string                    { return "kavenegar" }
func (k *Kavenegar) Name() string                   { return "Kavenegar" }
func (k *Kavenegar) Channels() model.GatewayChannel { return model.GatewayChannelSMS }

func (k *Kavenegar) RequiredFields() []provider.ConfigField {
	return []provider.ConfigField{
		requiredField("api_key", "API Key", true),
	}
}

func (k *Kavenegar) OptionalFields() []provider.ConfigField { return nil }

func (k *Kavenegar) endpoint(path string) string {
	return fmt.Sprintf("https://api.kavenegar.com/v1/%s/%s", k.Config("api_key"), path)
}

func (k *Kavenegar) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	form := url.Values{}
	form.Set("receptor", provider.FormatPhone(msg.To, false))
	form.Set("sender", msg.Sender)
	form.Set("message", msg.Content)

	resp, err := k.DoRequest(ctx, "POST", k.endpoint("sms/send.json"),
		[]byte(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if err != nil {
		return transportFailure(err), err
	}

	var body struct {
		Return struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"return"`
		Entries []struct {
			MessageID int64 `json:"messageid"`
		} `json:"entries"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return &provider.SendResult{
			Success:      false,
			ErrorMessage: "unexpected kavenegar response",
			RawResponse:  string(resp.Body),
		}, nil
	}
	if body.Return.Status != 200 || len(body.Entries) == 0 {
		return &provider.SendResult{
			Success:      false,
			ErrorCode:    strconv.Itoa(body.Return.Status),
			ErrorMessage: nonEmpty(body.Return.Message, "kavenegar rejected the message"),
			RawResponse:  string(resp.Body),
		}, nil
	}
	return &provider.SendResult{
		Success:           true,
		ProviderMessageID: strconv.FormatInt(body.Entries[0].MessageID, 10),
		RawResponse:       string(resp.Body),
	}, nil
}

func (k *Kavenegar) Balance(ctx context.Context) (*float64, error) {
	resp, err := k.DoRequest(ctx, "GET", k.endpoint("account/info.json"), nil, nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Entries struct {
			RemainCredit float64 `json:"remaincredit"`
		} `json:"entries"`
	}
	if err := jsonDecode(resp.Body, &body); err != nil {
		return nil, err
	}
	return &body.Entries.RemainCredit, nil
}

func (k *Kavenegar) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	id := req.Param("messageid")
	status := req.Param("status")
	if id == "" || status == "" {
		return nil
	}
	return &provider.DLRResult{
		ProviderMessageID: id,
		Status:            provider.NormalizeStatus(kavenegarStatuses, status),
	}
}
