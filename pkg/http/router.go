package xhttp

import (
	"encoding/json"

	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router with sane not-found/method handling.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = NotFoundHandler
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	ctx.Error(StatusText(StatusNotFound), StatusNotFound)
}

// WriteJSON serializes v onto the response with the given status code.
func WriteJSON(ctx *RequestCtx, code int, v any) {
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json; charset=utf-8")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		ctx.Error(StatusText(StatusInternalServerError), StatusInternalServerError)
	}
}

// WriteError writes a uniform {success:false, error:...} body.
func WriteError(ctx *RequestCtx, code int, msg string) {
	WriteJSON(ctx, code, map[string]any{"success": false, "error": msg})
}
