package xhttp

import (
	"time"

	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
	"github.com/valyala/fasthttp"
)

type RequestCtx = fasthttp.RequestCtx
type RequestHandler = fasthttp.RequestHandler
type Server = fasthttp.Server

const (
	StatusOK                  = fasthttp.StatusOK
	StatusCreated             = fasthttp.StatusCreated
	StatusAccepted            = fasthttp.StatusAccepted
	StatusBadRequest          = fasthttp.StatusBadRequest
	StatusUnauthorized        = fasthttp.StatusUnauthorized
	StatusForbidden           = fasthttp.StatusForbidden
	StatusNotFound            = fasthttp.StatusNotFound
	StatusConflict            = fasthttp.StatusConflict
	StatusUnprocessableEntity = fasthttp.StatusUnprocessableEntity
	StatusPaymentRequired     = fasthttp.StatusPaymentRequired
	StatusInternalServerError = fasthttp.StatusInternalServerError
	StatusBadGateway          = fasthttp.StatusBadGateway
	StatusRequestTimeout      = fasthttp.StatusRequestTimeout
)

func StatusText(code int) string { return fasthttp.StatusMessage(code) }

// Engine bundles a fasthttp server with a router and a middleware chain.
// Middleware registered with Use wraps the router handler outermost-first.
type Engine struct {
	Server     *fasthttp.Server
	Router     *Router
	middleware []MiddlewareFunc
}

type ServerOption struct {
	Name               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxRequestBodySize int
	Concurrency        int
	ReadBufferSize     int
	WriteBufferSize    int
}

var DefaultServerOption = ServerOption{
	ReadTimeout:        10 * time.Second,
	WriteTimeout:       10 * time.Second,
	IdleTimeout:        10 * time.Second,
	MaxRequestBodySize: 4 * 1024 * 1024,
	Concurrency:        30_000,
	ReadBufferSize:     1024 * 8,
	WriteBufferSize:    1024 * 8,
}

func NewServer(opt ServerOption) *Engine {
	s := &fasthttp.Server{
		Name:                  opt.Name,
		ReadTimeout:           opt.ReadTimeout,
		WriteTimeout:          opt.WriteTimeout,
		IdleTimeout:           opt.IdleTimeout,
		MaxRequestBodySize:    opt.MaxRequestBodySize,
		Concurrency:           opt.Concurrency,
		ReadBufferSize:        opt.ReadBufferSize,
		WriteBufferSize:       opt.WriteBufferSize,
		NoDefaultServerHeader: true,
		NoDefaultContentType:  true,
		CloseOnShutdown:       true,
		Logger:                logger.GetLogger(),
	}
	return &Engine{Server: s, Router: CreateDefaultRouter()}
}

func (e *Engine) Use(m MiddlewareFunc) {
	e.middleware = append(e.middleware, m)
}

func (e *Engine) ListenAndServe(addr string) error {
	h := e.Router.Handler
	for i := len(e.middleware) - 1; i >= 0; i-- {
		h = e.middleware[i](h)
	}
	e.Server.Handler = h
	logger.Info("[xhttp] listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

func (e *Engine) Shutdown() {
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("[xhttp] shutdown", "error", err)
	}
}
