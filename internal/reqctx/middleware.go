package reqctx

import (
	"context"
	"net/http"
)

// Middleware binds Extract(r) into the request's context before calling
// next, so every downstream handler observes exactly this request's
// header-derived values and nothing from any concurrent request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithValues(r.Context(), Extract(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HTTPContextFunc adapts Extract to the shape mcp-go's streamable HTTP
// server expects (server.WithHTTPContextFunc) for binding request-derived
// values onto the context passed to every tool handler.
func HTTPContextFunc(ctx context.Context, r *http.Request) context.Context {
	return WithValues(ctx, Extract(r))
}
