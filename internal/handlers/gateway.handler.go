package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/fasthttp/router"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	xhttp "github.com/jmsperu/sms-suite-whmcs-sub001/pkg/http"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/secrets"
)

type GatewayWriter interface {
	GatewayStore
	Create(ctx context.Context, gw *model.Gateway) (*model.Gateway, error)
	Update(ctx context.Context, gw *model.Gateway) error
}

// GatewayRegistry is the registry surface the admin API needs: field
// validation through Create plus cache invalidation after edits.
type GatewayRegistry interface {
	Create(typeKey string, config map[string]string) (provider.Provider, error)
	Resolve(ctx context.Context, gatewayID int64) (provider.Provider, error)
	ClearCache(gatewayID int64)
}

type GatewayHandler struct {
	gateways GatewayWriter
	registry GatewayRegistry
	cipher   *secrets.Cipher
}

func NewGatewayHandler(gateways GatewayWriter, registry GatewayRegistry, cipher *secrets.Cipher) *GatewayHandler {
	return &GatewayHandler{
		gateways: gateways,
		registry: registry,
		cipher:   cipher,
	}
}

func RegisterGatewayRoutes(e *router.Group, h *GatewayHandler) {
	e.POST("/gateways", h.CreateGateway)
	e.PUT("/gateways/{id}", h.UpdateGateway)
	e.GET("/gateways/{id}", h.GetGateway)
	e.GET("/gateways/{id}/balance", h.GetBalance)
}

type gatewayRequest struct {
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	Channels    string            `json:"channels,omitempty"`
	Active      *bool             `json:"active,omitempty"`
	AccountID   *int64            `json:"account_id,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
	Settings    map[string]any    `json:"settings,omitempty"`
}

type gatewayResponse struct {
	*model.Gateway
	WebhookToken string `json:"webhook_token,omitempty"`
}

func (h *GatewayHandler) CreateGateway(ctx *xhttp.RequestCtx) {
	var req gatewayRequest
	if err := readJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Name == "" {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "gateway name is required")
		return
	}

	// instantiating validates both the type key and the credential fields
	p, err := h.registry.Create(req.Type, req.Credentials)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusUnprocessableEntity, err.Error())
		return
	}

	creds, err := h.encryptCredentials(req.Credentials)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusInternalServerError, "credential encryption failed")
		return
	}

	channels := model.GatewayChannel(req.Channels)
	if channels == "" {
		channels = p.Channels()
	}

	gw := &model.Gateway{
		Type:         req.Type,
		Name:         req.Name,
		Channels:     channels,
		Active:       req.Active == nil || *req.Active,
		AccountID:    req.AccountID,
		Credentials:  creds,
		Settings:     marshalSettings(req.Settings),
		WebhookToken: newWebhookToken(),
	}

	created, err := h.gateways.Create(ctx, gw)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	// the token is returned once, on creation
	xhttp.WriteJSON(ctx, xhttp.StatusCreated, gatewayResponse{
		Gateway:      created,
		WebhookToken: created.WebhookToken,
	})
}

func (h *GatewayHandler) UpdateGateway(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid gateway id")
		return
	}
	gw, err := h.gateways.GetGateway(ctx, id)
	if err != nil || gw == nil {
		xhttp.WriteError(ctx, xhttp.StatusNotFound, "gateway not found")
		return
	}

	var req gatewayRequest
	if err := readJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if req.Name != "" {
		gw.Name = req.Name
	}
	if req.Channels != "" {
		gw.Channels = model.GatewayChannel(req.Channels)
	}
	if req.Active != nil {
		gw.Active = *req.Active
	}
	if req.Credentials != nil {
		if _, err := h.registry.Create(gw.Type, req.Credentials); err != nil {
			xhttp.WriteError(ctx, xhttp.StatusUnprocessableEntity, err.Error())
			return
		}
		creds, err := h.encryptCredentials(req.Credentials)
		if err != nil {
			xhttp.WriteError(ctx, xhttp.StatusInternalServerError, "credential encryption failed")
			return
		}
		gw.Credentials = creds
	}
	if req.Settings != nil {
		gw.Settings = marshalSettings(req.Settings)
	}

	if err := h.gateways.Update(ctx, gw); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	// drop the cached instance so the next send sees the new config
	h.registry.ClearCache(id)
	xhttp.WriteJSON(ctx, xhttp.StatusOK, gw)
}

func (h *GatewayHandler) GetGateway(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid gateway id")
		return
	}
	gw, err := h.gateways.GetGateway(ctx, id)
	if err != nil || gw == nil {
		xhttp.WriteError(ctx, xhttp.StatusNotFound, "gateway not found")
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, gw)
}

func (h *GatewayHandler) GetBalance(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid gateway id")
		return
	}
	p, err := h.registry.Resolve(ctx, id)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusNotFound, "gateway unavailable")
		return
	}

	balance, err := p.Balance(ctx)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadGateway, err.Error())
		return
	}
	if balance == nil {
		xhttp.WriteJSON(ctx, xhttp.StatusOK, map[string]any{"supported": false})
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, map[string]any{
		"supported": true,
		"balance":   *balance,
	})
}

func (h *GatewayHandler) encryptCredentials(creds map[string]string) (string, error) {
	if creds == nil {
		creds = map[string]string{}
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}
	return h.cipher.Encrypt(raw)
}

func marshalSettings(settings map[string]any) string {
	if settings == nil {
		return "{}"
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func newWebhookToken() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
