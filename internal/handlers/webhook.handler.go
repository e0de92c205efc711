package handlers

import (
	"context"
	"net/url"

	"github.com/fasthttp/router"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	xhttp "github.com/jmsperu/sms-suite-whmcs-sub001/pkg/http"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
)

type GatewayStore interface {
	GetGateway(ctx context.Context, id int64) (*model.Gateway, error)
}

type ProviderResolver interface {
	Resolve(ctx context.Context, gatewayID int64) (provider.Provider, error)
}

// ReceiptSink is the engine surface fed by provider callbacks.
type ReceiptSink interface {
	UpdateStatus(ctx context.Context, gatewayID int64, providerMessageID string, status provider.DeliveryStatus, errText string) bool
	HandleInbound(ctx context.Context, gatewayID int64, in *provider.InboundResult) (*model.Message, error)
}

// WebhookHandler terminates provider callbacks. Every payload is
// authenticated with the provider's VerifyWebhook before it is parsed.
type WebhookHandler struct {
	gateways GatewayStore
	registry ProviderResolver
	engine   ReceiptSink
}

func NewWebhookHandler(gateways GatewayStore, registry ProviderResolver, engine ReceiptSink) *WebhookHandler {
	return &WebhookHandler{
		gateways: gateways,
		registry: registry,
		engine:   engine,
	}
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.ANY("/{gateway_id}/dlr", h.DeliveryReceipt)
	e.ANY("/{gateway_id}/inbound", h.Inbound)
}

// webhookRequest flattens the fasthttp call into the transport-agnostic
// form the providers consume.
func webhookRequest(ctx *xhttp.RequestCtx) *provider.WebhookRequest {
	headers := make(map[string]string)
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		headers[string(k)] = string(v)
	})

	query, err := url.ParseQuery(string(ctx.URI().QueryString()))
	if err != nil {
		query = url.Values{}
	}

	body := make([]byte, len(ctx.PostBody()))
	copy(body, ctx.PostBody())

	return &provider.WebhookRequest{
		Method: string(ctx.Method()),
		URL:    ctx.URI().String(),
		Header: headers,
		Query:  query,
		Body:   body,
	}
}

// resolve authenticates the call and returns the provider instance. A nil
// provider means the response has already been written.
func (h *WebhookHandler) resolve(ctx *xhttp.RequestCtx, req *provider.WebhookRequest) (provider.Provider, int64) {
	gatewayID, err := pathInt64(ctx, "gateway_id")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusNotFound, "unknown gateway")
		return nil, 0
	}

	gw, err := h.gateways.GetGateway(ctx, gatewayID)
	if err != nil || gw == nil {
		xhttp.WriteError(ctx, xhttp.StatusNotFound, "unknown gateway")
		return nil, 0
	}

	p, err := h.registry.Resolve(ctx, gatewayID)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusNotFound, "gateway unavailable")
		return nil, 0
	}

	if !p.VerifyWebhook(req, gw.WebhookToken) {
		logger.Warn("webhook signature verification failed",
			"gateway_id", gatewayID, "remote", ctx.RemoteAddr().String())
		xhttp.WriteError(ctx, xhttp.StatusForbidden, "verification failed")
		return nil, 0
	}

	return p, gatewayID
}

func (h *WebhookHandler) DeliveryReceipt(ctx *xhttp.RequestCtx) {
	req := webhookRequest(ctx)
	p, gatewayID := h.resolve(ctx, req)
	if p == nil {
		return
	}

	dlr := p.ParseDeliveryReceipt(req)
	if dlr == nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "not a delivery receipt")
		return
	}

	applied := h.engine.UpdateStatus(ctx, gatewayID, dlr.ProviderMessageID, dlr.Status, dlr.ErrorMessage)
	xhttp.WriteJSON(ctx, xhttp.StatusOK, map[string]any{
		"success": true,
		"applied": applied,
	})
}

func (h *WebhookHandler) Inbound(ctx *xhttp.RequestCtx) {
	req := webhookRequest(ctx)
	p, gatewayID := h.resolve(ctx, req)
	if p == nil {
		return
	}

	// subscription handshake: echo the challenge back in plain text
	if req.Method == "GET" {
		if challenge := req.Param("hub.challenge"); challenge != "" {
			ctx.SetStatusCode(xhttp.StatusOK)
			ctx.SetBodyString(challenge)
			return
		}
	}

	in := p.ParseInbound(req)
	if in == nil {
		// some providers post receipts and inbound traffic to one URL
		if dlr := p.ParseDeliveryReceipt(req); dlr != nil {
			applied := h.engine.UpdateStatus(ctx, gatewayID, dlr.ProviderMessageID, dlr.Status, dlr.ErrorMessage)
			xhttp.WriteJSON(ctx, xhttp.StatusOK, map[string]any{"success": true, "applied": applied})
			return
		}
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "not an inbound message")
		return
	}

	msg, err := h.engine.HandleInbound(ctx, gatewayID, in)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusInternalServerError, "inbound persist failed")
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, map[string]any{
		"success":    true,
		"message_id": msg.ID,
	})
}
