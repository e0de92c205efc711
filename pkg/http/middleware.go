package xhttp

import (
	"strings"
	"time"

	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
	"github.com/valyala/fasthttp"
)

const slowThreshold = 500 * time.Millisecond

var skipPaths = []string{"/health", "/metrics"}

type MiddlewareFunc func(next RequestHandler) RequestHandler

func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.TimeoutWithCodeHandler(next, timeout, StatusText(StatusRequestTimeout), StatusRequestTimeout)
	}
}

func RecoverMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		defer func() {
			if err := recover(); err != nil {
				ctx.Error(StatusText(StatusInternalServerError), StatusInternalServerError)
				logger.Error("[xhttp] panic recovered", "error", err, "path", string(ctx.Path()))
			}
		}()
		next(ctx)
	}
}

func RequestLoggerMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		path := string(ctx.Path())
		if shouldSkip(path) {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)
		latency := time.Since(start)

		fields := []any{
			"method", string(ctx.Method()),
			"path", path,
			"status", ctx.Response.StatusCode(),
			"latency", latency.String(),
			"ip", ctx.RemoteIP().String(),
		}
		if latency > slowThreshold {
			logger.Warn("[xhttp] slow request", fields...)
			return
		}
		logger.Info("[xhttp] request", fields...)
	}
}

func shouldSkip(p string) bool {
	for _, s := range skipPaths {
		if strings.HasPrefix(p, s) {
			return true
		}
	}
	return false
}
