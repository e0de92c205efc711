package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider/drivers"
	xhttp "github.com/jmsperu/sms-suite-whmcs-sub001/pkg/http"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/secrets"
)

type fakeGatewayWriter struct {
	fakeGatewayStore
	nextID int64
}

func (f *fakeGatewayWriter) Create(ctx context.Context, gw *model.Gateway) (*model.Gateway, error) {
	f.nextID++
	gw.ID = f.nextID
	f.gateways[gw.ID] = gw
	return gw, nil
}

func (f *fakeGatewayWriter) Update(ctx context.Context, gw *model.Gateway) error {
	f.gateways[gw.ID] = gw
	return nil
}

func setupGatewayHandler(t *testing.T) (*GatewayHandler, *fakeGatewayWriter) {
	t.Helper()
	cipher, err := secrets.NewCipher("gateway-handler-test-secret")
	require.NoError(t, err)

	store := &fakeGatewayWriter{fakeGatewayStore: fakeGatewayStore{gateways: map[int64]*model.Gateway{}}}
	registry := provider.NewRegistry(store, cipher)
	drivers.RegisterBuiltins(registry)
	return NewGatewayHandler(store, registry, cipher), store
}

func TestGatewayHandler_CreateGateway(t *testing.T) {
	t.Run("valid credentials accepted", func(t *testing.T) {
		handler, store := setupGatewayHandler(t)

		body, _ := json.Marshal(gatewayRequest{
			Type: "twilio",
			Name: "Primary",
			Credentials: map[string]string{
				"account_sid": "AC123",
				"auth_token":  "tok-456",
			},
		})
		ctx := setupTestContext("POST", "/gateways", body)
		handler.CreateGateway(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())

		var res gatewayResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.NotEmpty(t, res.WebhookToken)
		assert.Equal(t, model.GatewayChannelBoth, store.gateways[res.ID].Channels)
	})

	t.Run("empty credential bundle rejected", func(t *testing.T) {
		handler, store := setupGatewayHandler(t)

		body, _ := json.Marshal(gatewayRequest{Type: "twilio", Name: "Broken"})
		ctx := setupTestContext("POST", "/gateways", body)
		handler.CreateGateway(ctx)

		assert.Equal(t, xhttp.StatusUnprocessableEntity, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "account_sid")
		assert.Empty(t, store.gateways)
	})

	t.Run("missing required field rejected", func(t *testing.T) {
		handler, store := setupGatewayHandler(t)

		body, _ := json.Marshal(gatewayRequest{
			Type:        "twilio",
			Name:        "Broken",
			Credentials: map[string]string{"account_sid": "AC123"},
		})
		ctx := setupTestContext("POST", "/gateways", body)
		handler.CreateGateway(ctx)

		assert.Equal(t, xhttp.StatusUnprocessableEntity, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "auth_token")
		assert.Empty(t, store.gateways)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		handler, _ := setupGatewayHandler(t)

		body, _ := json.Marshal(gatewayRequest{Type: "nope", Name: "Broken"})
		ctx := setupTestContext("POST", "/gateways", body)
		handler.CreateGateway(ctx)

		assert.Equal(t, xhttp.StatusUnprocessableEntity, ctx.Response.StatusCode())
	})
}

func TestGatewayHandler_UpdateGateway(t *testing.T) {
	handler, store := setupGatewayHandler(t)

	body, _ := json.Marshal(gatewayRequest{
		Type: "twilio",
		Name: "Primary",
		Credentials: map[string]string{
			"account_sid": "AC123",
			"auth_token":  "tok-456",
		},
	})
	ctx := setupTestContext("POST", "/gateways", body)
	handler.CreateGateway(ctx)
	require.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())

	t.Run("incomplete replacement credentials rejected", func(t *testing.T) {
		body, _ := json.Marshal(gatewayRequest{
			Credentials: map[string]string{"account_sid": "AC999"},
		})
		ctx := setupTestContext("PUT", "/gateways/1", body)
		ctx.SetUserValue("id", "1")
		handler.UpdateGateway(ctx)

		assert.Equal(t, xhttp.StatusUnprocessableEntity, ctx.Response.StatusCode())
		assert.Equal(t, "Primary", store.gateways[1].Name)
	})

	t.Run("valid replacement credentials accepted", func(t *testing.T) {
		body, _ := json.Marshal(gatewayRequest{
			Name: "Renamed",
			Credentials: map[string]string{
				"account_sid": "AC999",
				"auth_token":  "tok-999",
			},
		})
		ctx := setupTestContext("PUT", "/gateways/1", body)
		ctx.SetUserValue("id", "1")
		handler.UpdateGateway(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		assert.Equal(t, "Renamed", store.gateways[1].Name)
	})
}
