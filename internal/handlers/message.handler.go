package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/dispatch"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	xhttp "github.com/jmsperu/sms-suite-whmcs-sub001/pkg/http"
)

// Dispatcher is the engine surface the message API needs.
type Dispatcher interface {
	Submit(ctx context.Context, req dispatch.SubmitRequest) (*dispatch.SubmitResult, error)
	ProcessMessage(ctx context.Context, id int64) (*dispatch.SubmitResult, error)
	Retry(ctx context.Context, id int64) (*dispatch.SubmitResult, error)
}

type MessageStore interface {
	Get(ctx context.Context, id int64) (*model.Message, error)
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
}

// DispatchQueue hands accepted messages to the worker pool.
type DispatchQueue interface {
	Enqueue(ctx context.Context, messageID int64, metadata map[string]string) (string, error)
}

type MessageHandler struct {
	engine   Dispatcher
	messages MessageStore
	queue    DispatchQueue
}

func NewMessageHandler(engine Dispatcher, messages MessageStore, queue DispatchQueue) *MessageHandler {
	return &MessageHandler{
		engine:   engine,
		messages: messages,
		queue:    queue,
	}
}

func RegisterMessageRoutes(e *router.Group, h *MessageHandler) {
	e.POST("/messages", h.CreateMessage)
	e.POST("/messages/express", h.CreateExpressMessage)
	e.GET("/messages", h.ListMessages)
	e.GET("/messages/{id}", h.GetMessage)
	e.POST("/messages/{id}/retry", h.RetryMessage)
}

type createMessageRequest struct {
	AccountID    int64             `json:"account_id"`
	To           string            `json:"to"`
	Text         string            `json:"text"`
	Channel      string            `json:"channel,omitempty"`
	GatewayID    int64             `json:"gateway_id,omitempty"`
	Sender       string            `json:"sender,omitempty"`
	MediaURL     string            `json:"media_url,omitempty"`
	TemplateData map[string]string `json:"template_data,omitempty"`
}

type listResponse struct {
	Items []*model.Message `json:"items"`
	Total int64            `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *MessageHandler) CreateMessage(ctx *xhttp.RequestCtx) {
	h.create(ctx, false)
}

// CreateExpressMessage dispatches synchronously instead of queueing; the
// provider outcome comes back in the response.
func (h *MessageHandler) CreateExpressMessage(ctx *xhttp.RequestCtx) {
	h.create(ctx, true)
}

func (h *MessageHandler) create(ctx *xhttp.RequestCtx, express bool) {
	var req createMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := h.engine.Submit(ctx, dispatch.SubmitRequest{
		AccountID:    req.AccountID,
		To:           req.To,
		Text:         req.Text,
		Channel:      model.Channel(req.Channel),
		GatewayID:    req.GatewayID,
		Sender:       req.Sender,
		MediaURL:     req.MediaURL,
		TemplateData: req.TemplateData,
		Immediate:    express,
	})
	if err != nil {
		xhttp.WriteJSON(ctx, submitErrorStatus(err), res)
		return
	}

	if !express && h.queue != nil {
		if _, qerr := h.queue.Enqueue(ctx, res.MessageID, map[string]string{
			"channel": req.Channel,
		}); qerr != nil {
			// the row is queued either way; a worker sweep will pick it up
			xhttp.WriteJSON(ctx, xhttp.StatusAccepted, res)
			return
		}
	}

	xhttp.WriteJSON(ctx, xhttp.StatusCreated, res)
}

func (h *MessageHandler) GetMessage(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid message id")
		return
	}
	msg, err := h.messages.Get(ctx, id)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusNotFound, "message not found")
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, msg)
}

func (h *MessageHandler) RetryMessage(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid message id")
		return
	}
	res, err := h.engine.Retry(ctx, id)
	if err != nil {
		xhttp.WriteJSON(ctx, submitErrorStatus(err), res)
		return
	}
	if h.queue != nil {
		_, _ = h.queue.Enqueue(ctx, id, nil)
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, res)
}

func (h *MessageHandler) ListMessages(ctx *xhttp.RequestCtx) {
	var f model.MessageFilter

	if v := query(ctx, "account_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.AccountID = &id
		}
	}
	if v := query(ctx, "gateway_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.GatewayID = &id
		}
	}
	if v := query(ctx, "status"); v != "" {
		s := model.MessageStatus(v)
		f.Status = &s
	}
	if v := query(ctx, "channel"); v != "" {
		c := model.Channel(v)
		f.Channel = &c
	}
	if v := query(ctx, "direction"); v != "" {
		d := model.Direction(v)
		f.Direction = &d
	}
	if v := query(ctx, "to"); v != "" {
		f.To = &v
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "until"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.Until = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.messages.List(ctx, f)
	if err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, listResponse{Items: items, Total: total})
}

// submitErrorStatus maps engine errors onto HTTP status codes.
func submitErrorStatus(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrInvalidRecipient),
		errors.Is(err, dispatch.ErrEmptyMessage),
		errors.Is(err, dispatch.ErrNoGatewayConfigured),
		errors.Is(err, dispatch.ErrNotQueued):
		return xhttp.StatusBadRequest
	case errors.Is(err, dispatch.ErrBlocked):
		return xhttp.StatusForbidden
	case errors.Is(err, dispatch.ErrInsufficientBalance):
		return xhttp.StatusPaymentRequired
	case errors.Is(err, dispatch.ErrProviderUnavailable),
		errors.Is(err, dispatch.ErrProviderRejected):
		return xhttp.StatusBadGateway
	default:
		return xhttp.StatusInternalServerError
	}
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
