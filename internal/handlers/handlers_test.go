package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/dispatch"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	xhttp "github.com/jmsperu/sms-suite-whmcs-sub001/pkg/http"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Submit(ctx context.Context, req dispatch.SubmitRequest) (*dispatch.SubmitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.SubmitResult), args.Error(1)
}

func (m *MockDispatcher) ProcessMessage(ctx context.Context, id int64) (*dispatch.SubmitResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.SubmitResult), args.Error(1)
}

func (m *MockDispatcher) Retry(ctx context.Context, id int64) (*dispatch.SubmitResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.SubmitResult), args.Error(1)
}

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Get(ctx context.Context, id int64) (*model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageStore) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Message), args.Get(1).(int64), args.Error(2)
}

type fakeQueue struct {
	enqueued []int64
}

func (f *fakeQueue) Enqueue(ctx context.Context, messageID int64, metadata map[string]string) (string, error) {
	f.enqueued = append(f.enqueued, messageID)
	return "0-1", nil
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func TestMessageHandler_CreateMessage(t *testing.T) {
	t.Run("accepted message is queued for dispatch", func(t *testing.T) {
		engine := new(MockDispatcher)
		queue := &fakeQueue{}
		handler := NewMessageHandler(engine, new(MockMessageStore), queue)

		body, _ := json.Marshal(createMessageRequest{
			AccountID: 7,
			To:        "+15551234567",
			Text:      "Test message",
		})

		engine.On("Submit", mock.Anything, mock.MatchedBy(func(req dispatch.SubmitRequest) bool {
			return req.AccountID == 7 && req.To == "+15551234567" && !req.Immediate
		})).Return(&dispatch.SubmitResult{Success: true, MessageID: 123, Segments: 1}, nil)

		ctx := setupTestContext("POST", "/messages", body)
		handler.CreateMessage(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
		assert.Equal(t, []int64{123}, queue.enqueued)

		var res dispatch.SubmitResult
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.True(t, res.Success)
		assert.Equal(t, int64(123), res.MessageID)
	})

	t.Run("express message dispatches synchronously", func(t *testing.T) {
		engine := new(MockDispatcher)
		queue := &fakeQueue{}
		handler := NewMessageHandler(engine, new(MockMessageStore), queue)

		body, _ := json.Marshal(createMessageRequest{AccountID: 7, To: "+15551234567", Text: "hi"})

		engine.On("Submit", mock.Anything, mock.MatchedBy(func(req dispatch.SubmitRequest) bool {
			return req.Immediate
		})).Return(&dispatch.SubmitResult{Success: true, MessageID: 9, ProviderMessageID: "pm-1"}, nil)

		ctx := setupTestContext("POST", "/messages/express", body)
		handler.CreateExpressMessage(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
		assert.Empty(t, queue.enqueued)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewMessageHandler(new(MockDispatcher), new(MockMessageStore), nil)
		ctx := setupTestContext("POST", "/messages", []byte("{not json"))
		handler.CreateMessage(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("engine errors map onto status codes", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
		}{
			{dispatch.ErrInvalidRecipient, xhttp.StatusBadRequest},
			{dispatch.ErrBlocked, xhttp.StatusForbidden},
			{dispatch.ErrInsufficientBalance, xhttp.StatusPaymentRequired},
			{dispatch.ErrNoGatewayConfigured, xhttp.StatusBadRequest},
			{dispatch.ErrProviderUnavailable, xhttp.StatusBadGateway},
		}
		for _, tc := range cases {
			engine := new(MockDispatcher)
			handler := NewMessageHandler(engine, new(MockMessageStore), nil)
			engine.On("Submit", mock.Anything, mock.Anything).
				Return(&dispatch.SubmitResult{Success: false, Error: tc.err.Error()}, tc.err)

			body, _ := json.Marshal(createMessageRequest{AccountID: 1, To: "+15551234567", Text: "x"})
			ctx := setupTestContext("POST", "/messages", body)
			handler.CreateMessage(ctx)
			assert.Equal(t, tc.status, ctx.Response.StatusCode(), tc.err.Error())
		}
	})
}

func TestMessageHandler_ListMessages(t *testing.T) {
	store := new(MockMessageStore)
	handler := NewMessageHandler(new(MockDispatcher), store, nil)

	store.On("List", mock.Anything, mock.MatchedBy(func(f model.MessageFilter) bool {
		return f.AccountID != nil && *f.AccountID == 7 &&
			f.Status != nil && *f.Status == model.MessageStatusSent &&
			f.Limit == 25 && f.Desc
	})).Return([]*model.Message{{ID: 1}, {ID: 2}}, int64(2), nil)

	ctx := setupTestContext("GET", "/messages?account_id=7&status=sent&limit=25&order=desc", nil)
	handler.ListMessages(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())

	var res listResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
	assert.Len(t, res.Items, 2)
	assert.Equal(t, int64(2), res.Total)
}

func TestMessageHandler_GetMessage(t *testing.T) {
	store := new(MockMessageStore)
	handler := NewMessageHandler(new(MockDispatcher), store, nil)

	t.Run("found", func(t *testing.T) {
		store.On("Get", mock.Anything, int64(5)).Return(&model.Message{ID: 5}, nil)

		ctx := setupTestContext("GET", "/messages/5", nil)
		ctx.SetUserValue("id", "5")
		handler.GetMessage(ctx)
		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	})

	t.Run("bad id", func(t *testing.T) {
		ctx := setupTestContext("GET", "/messages/abc", nil)
		ctx.SetUserValue("id", "abc")
		handler.GetMessage(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestMessageHandler_RetryMessage(t *testing.T) {
	engine := new(MockDispatcher)
	queue := &fakeQueue{}
	handler := NewMessageHandler(engine, new(MockMessageStore), queue)

	engine.On("Retry", mock.Anything, int64(8)).
		Return(&dispatch.SubmitResult{Success: true, MessageID: 8}, nil)

	ctx := setupTestContext("POST", "/messages/8/retry", nil)
	ctx.SetUserValue("id", "8")
	handler.RetryMessage(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, []int64{8}, queue.enqueued)
}

/* ------------------------------- Webhooks ---------------------------------- */

type fakeGatewayStore struct {
	gateways map[int64]*model.Gateway
}

func (f *fakeGatewayStore) GetGateway(ctx context.Context, id int64) (*model.Gateway, error) {
	return f.gateways[id], nil
}

// hookProvider returns canned parse results and authenticates with the
// default token check.
type hookProvider struct {
	provider.Base
	dlr     *provider.DLRResult
	inbound *provider.InboundResult
}

func (p *hookProvider) Key() string                                    { return "hook" }
func (p *hookProvider) Name() string                                   { return "Hook" }
func (p *hookProvider) Channels() model.GatewayChannel                 { return model.GatewayChannelBoth }
func (p *hookProvider) RequiredFields() []provider.ConfigField         { return nil }
func (p *hookProvider) OptionalFields() []provider.ConfigField         { return nil }
func (p *hookProvider) Send(ctx context.Context, msg *model.Message) (*provider.SendResult, error) {
	return nil, nil
}
func (p *hookProvider) ParseDeliveryReceipt(req *provider.WebhookRequest) *provider.DLRResult {
	return p.dlr
}
func (p *hookProvider) ParseInbound(req *provider.WebhookRequest) *provider.InboundResult {
	return p.inbound
}

type fakeRegistry struct {
	provider provider.Provider
	err      error
}

func (f *fakeRegistry) Resolve(ctx context.Context, gatewayID int64) (provider.Provider, error) {
	return f.provider, f.err
}

type MockReceiptSink struct {
	mock.Mock
}

func (m *MockReceiptSink) UpdateStatus(ctx context.Context, gatewayID int64, providerMessageID string, status provider.DeliveryStatus, errText string) bool {
	args := m.Called(ctx, gatewayID, providerMessageID, status, errText)
	return args.Bool(0)
}

func (m *MockReceiptSink) HandleInbound(ctx context.Context, gatewayID int64, in *provider.InboundResult) (*model.Message, error) {
	args := m.Called(ctx, gatewayID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func setupWebhook(dlr *provider.DLRResult, inbound *provider.InboundResult) (*WebhookHandler, *MockReceiptSink) {
	gateways := &fakeGatewayStore{gateways: map[int64]*model.Gateway{
		4: {ID: 4, Type: "hook", Active: true, WebhookToken: "hook-secret"},
	}}
	registry := &fakeRegistry{provider: &hookProvider{dlr: dlr, inbound: inbound}}
	sink := new(MockReceiptSink)
	return NewWebhookHandler(gateways, registry, sink), sink
}

func TestWebhookHandler_DeliveryReceipt(t *testing.T) {
	t.Run("receipt applied", func(t *testing.T) {
		handler, sink := setupWebhook(&provider.DLRResult{
			ProviderMessageID: "pm-1",
			Status:            provider.StatusDelivered,
		}, nil)
		sink.On("UpdateStatus", mock.Anything, int64(4), "pm-1", provider.StatusDelivered, "").Return(true)

		ctx := setupTestContext("POST", "/webhooks/4/dlr?token=hook-secret", nil)
		ctx.SetUserValue("gateway_id", "4")
		handler.DeliveryReceipt(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		sink.AssertExpectations(t)
	})

	t.Run("wrong token is rejected before parsing", func(t *testing.T) {
		handler, sink := setupWebhook(&provider.DLRResult{ProviderMessageID: "pm-1"}, nil)

		ctx := setupTestContext("POST", "/webhooks/4/dlr?token=wrong", nil)
		ctx.SetUserValue("gateway_id", "4")
		handler.DeliveryReceipt(ctx)

		assert.Equal(t, xhttp.StatusForbidden, ctx.Response.StatusCode())
		sink.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown gateway", func(t *testing.T) {
		handler, _ := setupWebhook(nil, nil)

		ctx := setupTestContext("POST", "/webhooks/9/dlr?token=hook-secret", nil)
		ctx.SetUserValue("gateway_id", "9")
		handler.DeliveryReceipt(ctx)
		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("payload that is not a receipt", func(t *testing.T) {
		handler, _ := setupWebhook(nil, nil)

		ctx := setupTestContext("POST", "/webhooks/4/dlr?token=hook-secret", nil)
		ctx.SetUserValue("gateway_id", "4")
		handler.DeliveryReceipt(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestWebhookHandler_Inbound(t *testing.T) {
	t.Run("inbound message persisted", func(t *testing.T) {
		in := &provider.InboundResult{From: "+15552223333", Text: "hello", Channel: model.ChannelSMS}
		handler, sink := setupWebhook(nil, in)
		sink.On("HandleInbound", mock.Anything, int64(4), in).
			Return(&model.Message{ID: 77, Direction: model.DirectionInbound}, nil)

		ctx := setupTestContext("POST", "/webhooks/4/inbound?token=hook-secret", nil)
		ctx.SetUserValue("gateway_id", "4")
		handler.Inbound(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		sink.AssertExpectations(t)
	})

	t.Run("subscription challenge echoed", func(t *testing.T) {
		handler, _ := setupWebhook(nil, nil)

		ctx := setupTestContext("GET", "/webhooks/4/inbound?token=hook-secret&hub.challenge=12345", nil)
		ctx.SetUserValue("gateway_id", "4")
		handler.Inbound(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		assert.Equal(t, "12345", string(ctx.Response.Body()))
	})

	t.Run("receipt posted to the inbound URL still applies", func(t *testing.T) {
		handler, sink := setupWebhook(&provider.DLRResult{
			ProviderMessageID: "pm-2",
			Status:            provider.StatusSent,
		}, nil)
		sink.On("UpdateStatus", mock.Anything, int64(4), "pm-2", provider.StatusSent, "").Return(true)

		ctx := setupTestContext("POST", "/webhooks/4/inbound?token=hook-secret", nil)
		ctx.SetUserValue("gateway_id", "4")
		handler.Inbound(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		sink.AssertExpectations(t)
	})
}

func TestWebhookRequest_Flattening(t *testing.T) {
	ctx := setupTestContext("POST", "http://api.example.com/webhooks/4/dlr?token=abc", []byte("MessageSid=SM1&MessageStatus=sent"))
	ctx.Request.Header.Set("X-Twilio-Signature", "sig")
	ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")

	req := webhookRequest(ctx)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "abc", req.Query.Get("token"))
	assert.Equal(t, "sig", req.HeaderValue("x-twilio-signature"))
	assert.Equal(t, "SM1", req.Form().Get("MessageSid"))
	assert.Contains(t, req.URL, "/webhooks/4/dlr")
}
