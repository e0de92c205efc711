// Package dispatch drives the outbound message lifecycle: validation,
// routing, billing, persistence and the provider send itself.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/billing"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/sms"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/prom"
)

var (
	ErrInvalidRecipient    = errors.New("invalid recipient number")
	ErrEmptyMessage        = errors.New("message text cannot be empty")
	ErrBlocked             = errors.New("destination is opted out")
	ErrNoGatewayConfigured = errors.New("no gateway configured for channel")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotQueued           = errors.New("message is not in queued state")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected the message")
)

// minRecipientDigits is the shortest destination the engine accepts after
// normalization.
const minRecipientDigits = 7

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	Update(ctx context.Context, msg *model.Message) error
	Get(ctx context.Context, id int64) (*model.Message, error)
	GetByProviderID(ctx context.Context, gatewayID int64, providerMessageID string) (*model.Message, error)
}

type GatewayRepository interface {
	GetGateway(ctx context.Context, id int64) (*model.Gateway, error)
	ListActive(ctx context.Context, channel model.Channel) ([]*model.Gateway, error)
}

type AccountRepository interface {
	Get(ctx context.Context, id int64) (*model.Account, error)
}

type SenderIDRepository interface {
	GetDefault(ctx context.Context, accountID int64) (*model.SenderID, error)
	FirstActive(ctx context.Context, accountID int64) (*model.SenderID, error)
}

type OptOutRepository interface {
	IsBlocked(ctx context.Context, accountID int64, number string) (bool, error)
	Create(ctx context.Context, o *model.OptOut) (*model.OptOut, error)
}

// ProviderResolver is the registry surface the engine needs.
type ProviderResolver interface {
	Resolve(ctx context.Context, gatewayID int64) (provider.Provider, error)
}

// Billing prices traffic and applies deductions. Consulted before
// persistence (can the account pay) and after a successful send (pay).
type Billing interface {
	CalculateCost(ctx context.Context, accountID int64, segments int, channel model.Channel, gatewayID int64, country, network string) (float64, error)
	HasBalance(ctx context.Context, accountID int64, cost float64) (bool, error)
	Deduct(ctx context.Context, accountID, messageID int64, cost float64, segments int) error
	DeductCredits(ctx context.Context, accountID int64, credits int64, memo billing.CreditMemo) error
	CreditCost(ctx context.Context, country, network string) int
	BillingMode(ctx context.Context, accountID int64) (model.BillingMode, error)
}

type NetworkLookup interface {
	ExtractCountryCode(ctx context.Context, phone string) (string, bool)
	DetectNetwork(ctx context.Context, phone string, countryCode string) (string, bool)
}

type TemplateRenderer interface {
	Render(template string, data map[string]string) string
}

// SubmitRequest carries one outbound message submission.
type SubmitRequest struct {
	AccountID int64
	To        string
	Text      string

	Channel   model.Channel
	GatewayID int64
	Sender    string
	MediaURL  string

	// TemplateData, when non-nil, triggers template rendering before
	// segmentation and billing.
	TemplateData map[string]string

	// Immediate dispatches synchronously instead of leaving the row
	// queued for a worker.
	Immediate bool
}

// SubmitResult is the uniform outcome of Submit and ProcessMessage.
type SubmitResult struct {
	Success           bool   `json:"success"`
	MessageID         int64  `json:"message_id,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Segments          int    `json:"segments,omitempty"`
	Encoding          string `json:"encoding,omitempty"`
	Error             string `json:"error,omitempty"`
}

type Engine struct {
	messages MessageRepository
	gateways GatewayRepository
	accounts AccountRepository
	senders  SenderIDRepository
	optouts  OptOutRepository
	registry ProviderResolver
	billing  Billing
	lookup   NetworkLookup
	renderer TemplateRenderer
}

func NewEngine(
	messages MessageRepository,
	gateways GatewayRepository,
	accounts AccountRepository,
	senders SenderIDRepository,
	optouts OptOutRepository,
	registry ProviderResolver,
	billingSvc Billing,
	lookup NetworkLookup,
	renderer TemplateRenderer,
) *Engine {
	return &Engine{
		messages: messages,
		gateways: gateways,
		accounts: accounts,
		senders:  senders,
		optouts:  optouts,
		registry: registry,
		billing:  billingSvc,
		lookup:   lookup,
		renderer: renderer,
	}
}

func failure(err error) (*SubmitResult, error) {
	return &SubmitResult{Success: false, Error: err.Error()}, err
}

// Submit validates, routes, prices and persists one outbound message.
// Validation and policy failures happen before persistence; no partial row
// is ever written. With Immediate set the provider send runs synchronously
// and its outcome is returned.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	to := provider.FormatPhone(req.To, false)
	if len(to) < minRecipientDigits {
		return failure(ErrInvalidRecipient)
	}

	text := req.Text
	if req.TemplateData != nil && e.renderer != nil {
		text = e.renderer.Render(text, req.TemplateData)
	}
	if text == "" {
		return failure(ErrEmptyMessage)
	}

	blocked, err := e.optouts.IsBlocked(ctx, req.AccountID, to)
	if err != nil {
		return failure(err)
	}
	if blocked {
		return failure(ErrBlocked)
	}

	channel := req.Channel
	if channel == "" {
		channel = model.ChannelSMS
	}

	var account *model.Account
	if req.AccountID != model.SystemAccountID {
		account, err = e.accounts.Get(ctx, req.AccountID)
		if err != nil {
			return failure(err)
		}
	}

	gateway, err := e.resolveGateway(ctx, req.GatewayID, account, channel)
	if err != nil {
		return failure(err)
	}

	sender, err := e.resolveSender(ctx, req.Sender, account, req.AccountID)
	if err != nil {
		return failure(err)
	}

	seg := sms.Count(text, channel)

	msg := &model.Message{
		AccountID: req.AccountID,
		Channel:   channel,
		Direction: model.DirectionOutbound,
		To:        to,
		Sender:    sender,
		GatewayID: gateway.ID,
		Content:   text,
		MediaURL:  req.MediaURL,
		Encoding:  string(seg.Encoding),
		Length:    seg.Length,
		Segments:  seg.Segments,
		Units:     seg.Billable,
		Status:    model.MessageStatusQueued,
	}

	// System messages and account-owned gateways bypass platform billing.
	if e.billable(msg, gateway) {
		country, _ := e.lookup.ExtractCountryCode(ctx, to)
		network, _ := e.lookup.DetectNetwork(ctx, to, country)
		cost, err := e.billing.CalculateCost(ctx, req.AccountID, seg.Billable, channel, gateway.ID, country, network)
		if err != nil {
			return failure(err)
		}
		ok, err := e.billing.HasBalance(ctx, req.AccountID, cost)
		if err != nil {
			return failure(err)
		}
		if !ok {
			return failure(ErrInsufficientBalance)
		}
	}

	created, err := e.messages.Create(ctx, msg)
	if err != nil {
		return failure(err)
	}

	if req.Immediate {
		return e.ProcessMessage(ctx, created.ID)
	}

	return &SubmitResult{
		Success:   true,
		MessageID: created.ID,
		Segments:  created.Segments,
		Encoding:  created.Encoding,
	}, nil
}

// ProcessMessage advances one queued message through the provider send.
// Whatever happens, the row never stays in sending: every exit path lands
// it in sent or failed.
func (e *Engine) ProcessMessage(ctx context.Context, id int64) (*SubmitResult, error) {
	msg, err := e.messages.Get(ctx, id)
	if err != nil {
		return failure(err)
	}
	if msg.Status != model.MessageStatusQueued {
		return failure(ErrNotQueued)
	}

	msg.Status = model.MessageStatusSending
	if err := e.messages.Update(ctx, msg); err != nil {
		return failure(err)
	}

	p, err := e.registry.Resolve(ctx, msg.GatewayID)
	if err != nil {
		return e.fail(ctx, msg, err)
	}

	start := time.Now()
	res, err := p.Send(ctx, msg)
	prom.ObserveProviderSend(p.Key(), time.Since(start).Seconds())
	if err != nil {
		logger.Warn("provider transport failure",
			"message_id", msg.ID, "gateway_id", msg.GatewayID, "error", err)
		if res != nil {
			msg.ProviderResponse = res.RawResponse
		}
		return e.fail(ctx, msg, errors.Join(ErrProviderUnavailable, err))
	}
	if !res.Success {
		msg.ProviderResponse = res.RawResponse
		msg.LastError = res.ErrorMessage
		return e.fail(ctx, msg, ErrProviderRejected)
	}

	now := time.Now()
	msg.Status = model.MessageStatusSent
	msg.SentAt = &now
	msg.ProviderMessageID = res.ProviderMessageID
	msg.ProviderResponse = res.RawResponse
	msg.LastError = ""

	if err := e.applyBilling(ctx, msg); err != nil {
		// Send already happened; record the billing failure without
		// touching the message state.
		logger.Error("billing deduction failed after send",
			"message_id", msg.ID, "account_id", msg.AccountID, "error", err)
	}

	if err := e.messages.Update(ctx, msg); err != nil {
		return failure(err)
	}

	prom.AddMessageDispatched(p.Key(), string(msg.Channel), string(msg.Status))
	return &SubmitResult{
		Success:           true,
		MessageID:         msg.ID,
		ProviderMessageID: msg.ProviderMessageID,
		Segments:          msg.Segments,
		Encoding:          msg.Encoding,
	}, nil
}

// UpdateStatus applies a delivery receipt. Unknown provider ids are logged
// and reported as false, never raised.
func (e *Engine) UpdateStatus(ctx context.Context, gatewayID int64, providerMessageID string, status provider.DeliveryStatus, errText string) bool {
	msg, err := e.messages.GetByProviderID(ctx, gatewayID, providerMessageID)
	if err != nil {
		logger.Warn("delivery receipt for unknown message",
			"gateway_id", gatewayID, "provider_message_id", providerMessageID,
			"status", status, "error", err)
		return false
	}

	switch status {
	case provider.StatusDelivered:
		now := time.Now()
		msg.Status = model.MessageStatusDelivered
		msg.DeliveredAt = &now
	case provider.StatusFailed, provider.StatusRejected,
		provider.StatusUndelivered, provider.StatusExpired:
		// No billing reversal here: cost reflects provider acceptance,
		// not final delivery.
		msg.Status = model.MessageStatusFailed
	case provider.StatusSent:
		msg.Status = model.MessageStatusSent
	default:
		// interim or unknown states leave the row as-is
		prom.AddDeliveryReceipt(string(status))
		return true
	}
	if errText != "" {
		msg.LastError = errText
	}

	if err := e.messages.Update(ctx, msg); err != nil {
		logger.Error("delivery receipt update failed",
			"message_id", msg.ID, "error", err)
		return false
	}
	prom.AddDeliveryReceipt(string(status))
	return true
}

// Retry re-queues a failed message, clearing everything the previous
// attempt recorded. Billing is re-evaluated by the next ProcessMessage.
func (e *Engine) Retry(ctx context.Context, id int64) (*SubmitResult, error) {
	msg, err := e.messages.Get(ctx, id)
	if err != nil {
		return failure(err)
	}
	if msg.Status != model.MessageStatusFailed {
		return failure(ErrNotQueued)
	}

	msg.Status = model.MessageStatusQueued
	msg.ProviderMessageID = ""
	msg.LastError = ""
	msg.ProviderResponse = ""
	msg.SentAt = nil
	msg.DeliveredAt = nil

	if err := e.messages.Update(ctx, msg); err != nil {
		return failure(err)
	}
	return &SubmitResult{Success: true, MessageID: msg.ID}, nil
}

// stopKeywords opt the sender out when they arrive as an inbound body.
var stopKeywords = map[string]struct{}{
	"STOP": {}, "STOPALL": {}, "UNSUBSCRIBE": {}, "CANCEL": {}, "END": {}, "QUIT": {},
}

// HandleInbound persists a mobile-originated message and maintains the
// opt-out list on stop keywords.
func (e *Engine) HandleInbound(ctx context.Context, gatewayID int64, in *provider.InboundResult) (*model.Message, error) {
	from := provider.FormatPhone(in.From, false)
	msg := &model.Message{
		AccountID: model.SystemAccountID,
		Channel:   in.Channel,
		Direction: model.DirectionInbound,
		To:        provider.FormatPhone(in.To, false),
		Sender:    from,
		GatewayID: gatewayID,
		Content:   in.Text,
		MediaURL:  in.MediaURL,
		Status:    model.MessageStatusDelivered,
	}

	created, err := e.messages.Create(ctx, msg)
	if err != nil {
		return nil, err
	}
	prom.AddInboundMessage(string(in.Channel))

	if _, stop := stopKeywords[normalizeKeyword(in.Text)]; stop {
		if _, err := e.optouts.Create(ctx, &model.OptOut{
			AccountID: 0,
			Number:    from,
			Reason:    "stop keyword",
		}); err != nil {
			logger.Error("opt-out insert failed", "number", from, "error", err)
		} else {
			logger.Info("number opted out via stop keyword", "number", from)
		}
	}
	return created, nil
}

// fail lands a message in failed state with the error recorded. Used for
// every dispatch-time failure so a row can never be left in sending.
func (e *Engine) fail(ctx context.Context, msg *model.Message, cause error) (*SubmitResult, error) {
	msg.Status = model.MessageStatusFailed
	if msg.LastError == "" {
		msg.LastError = cause.Error()
	}
	if err := e.messages.Update(ctx, msg); err != nil {
		logger.Error("failed to record message failure",
			"message_id", msg.ID, "error", err)
	}
	prom.AddMessageDispatched("", string(msg.Channel), string(model.MessageStatusFailed))
	return &SubmitResult{
		Success:   false,
		MessageID: msg.ID,
		Segments:  msg.Segments,
		Encoding:  msg.Encoding,
		Error:     msg.LastError,
	}, cause
}

func (e *Engine) billable(msg *model.Message, gateway *model.Gateway) bool {
	return !msg.SystemOriginated() && !gateway.AccountOwned()
}

// applyBilling deducts cost (and credits, for credit-mode accounts) after
// a successful send.
func (e *Engine) applyBilling(ctx context.Context, msg *model.Message) error {
	gateway, err := e.gateways.GetGateway(ctx, msg.GatewayID)
	if err != nil {
		return err
	}
	if gateway == nil || !e.billable(msg, gateway) {
		return nil
	}

	country, _ := e.lookup.ExtractCountryCode(ctx, msg.To)
	network, _ := e.lookup.DetectNetwork(ctx, msg.To, country)

	cost, err := e.billing.CalculateCost(ctx, msg.AccountID, msg.Units, msg.Channel, msg.GatewayID, country, network)
	if err != nil {
		return err
	}
	if err := e.billing.Deduct(ctx, msg.AccountID, msg.ID, cost, msg.Units); err != nil {
		return err
	}
	msg.Cost = cost

	mode, err := e.billing.BillingMode(ctx, msg.AccountID)
	if err != nil {
		return err
	}
	if mode == model.BillingModeCredit {
		credits := int64(e.billing.CreditCost(ctx, country, network) * msg.Units)
		return e.billing.DeductCredits(ctx, msg.AccountID, credits, billing.CreditMemo{
			Memo:        "message dispatch",
			MessageID:   msg.ID,
			Sender:      msg.Sender,
			Destination: msg.To,
			Network:     network,
		})
	}
	return nil
}

func (e *Engine) resolveGateway(ctx context.Context, explicit int64, account *model.Account, channel model.Channel) (*model.Gateway, error) {
	if explicit != 0 {
		gw, err := e.gateways.GetGateway(ctx, explicit)
		if err != nil {
			return nil, err
		}
		if gw == nil || !gw.Active || !gw.SupportsChannel(channel) {
			return nil, ErrNoGatewayConfigured
		}
		return gw, nil
	}

	if account != nil && account.DefaultGatewayID != nil {
		gw, err := e.gateways.GetGateway(ctx, *account.DefaultGatewayID)
		if err != nil {
			return nil, err
		}
		if gw != nil && gw.Active && gw.SupportsChannel(channel) {
			return gw, nil
		}
	}

	active, err := e.gateways.ListActive(ctx, channel)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, ErrNoGatewayConfigured
	}
	return active[0], nil
}

func (e *Engine) resolveSender(ctx context.Context, explicit string, account *model.Account, accountID int64) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if account != nil && account.DefaultSender != "" {
		return account.DefaultSender, nil
	}
	def, err := e.senders.GetDefault(ctx, accountID)
	if err != nil {
		return "", err
	}
	if def != nil {
		return def.Sender, nil
	}
	first, err := e.senders.FirstActive(ctx, accountID)
	if err != nil {
		return "", err
	}
	if first != nil {
		return first.Sender, nil
	}
	// empty sender is legal for providers that assign one
	return "", nil
}

func normalizeKeyword(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}
