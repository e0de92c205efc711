package handlers

import (
	"github.com/fasthttp/router"

	xhttp "github.com/jmsperu/sms-suite-whmcs-sub001/pkg/http"
)

type HealthService interface {
	Get() error
}

type HealthHandler struct {
	svc HealthService
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(svc HealthService) *HealthHandler {
	return &HealthHandler{svc: svc}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	if h.svc != nil {
		if err := h.svc.Get(); err != nil {
			xhttp.WriteError(ctx, xhttp.StatusInternalServerError, "unhealthy")
			return
		}
	}
	ctx.Response.SetBodyString("success")
}
