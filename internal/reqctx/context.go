// Package reqctx binds per-request header values (credentials, user,
// request id) into a context.Context that flows into tool handlers through
// the MCP server's HTTP context hook. Values never leak across requests:
// each incoming HTTP request gets its own derived context.
package reqctx

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// Values holds the per-request data extracted from inbound headers.
type Values struct {
	GraphToken     string
	GitHubUsername string
	RequestID      string
}

// WithValues returns a new context carrying v.
func WithValues(ctx context.Context, v Values) context.Context {
	return context.WithValue(ctx, contextKey{}, v)
}

// FromContext returns the Values bound to ctx, or the zero Values if none
// were bound (e.g. a handler invoked outside an HTTP request).
func FromContext(ctx context.Context) Values {
	v, _ := ctx.Value(contextKey{}).(Values)
	return v
}

// Extract reads the header set specified by the request-context component
// (Authorization bearer as fallback credential, the Graph token headers in
// precedence order, GitHub username, and request id) from r.
func Extract(r *http.Request) Values {
	bearer := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		bearer = strings.TrimSpace(auth[len("bearer "):])
	}

	graphToken := r.Header.Get("X-Microsoft-Graph-Token")
	if graphToken == "" {
		graphToken = r.Header.Get("X-Graph-Token")
	}
	if graphToken == "" {
		graphToken = bearer
	}

	return Values{
		GraphToken:     graphToken,
		GitHubUsername: r.Header.Get("X-GitHub-Username"),
		RequestID:      r.Header.Get("X-Request-Id"),
	}
}
