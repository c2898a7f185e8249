// Package mcpserver wires the registered tool set onto two HTTP-mounted MCP
// surfaces: a full surface exposing execute_code, and a restricted surface
// for sessions that must not run arbitrary code.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/sandboxd/sandboxd/internal/reqctx"
	"github.com/sandboxd/sandboxd/internal/sandbox"
	"github.com/sandboxd/sandboxd/internal/tools"
)

const (
	serviceName    = "sandboxd"
	serviceVersion = "1.0.0"
)

// Server hosts the MCP HTTP surfaces plus operational endpoints
// (/health, /tools) on a single mux.
type Server struct {
	pool   *sandbox.Pool
	mcpURL string
	mux    *http.ServeMux
}

// New builds the full and restricted MCP surfaces and mounts them, along
// with /health and /tools, onto a fresh http.ServeMux. mcpURL is the base
// URL this server is reachable at (reported by /health); when apiKey is
// non-empty, every mounted surface except /health requires a matching
// "Authorization: Bearer <apiKey>" header.
func New(deps tools.Deps, apiKey, mcpURL string) *Server {
	full := buildSurface(tools.FullSurface(deps))
	restricted := buildSurface(tools.RestrictedSurface(deps))

	mux := http.NewServeMux()
	mux.Handle("/mcp", withAuth(apiKey, withLogging("full", withContext(full))))
	mux.Handle("/mcp-no-code-execute", withAuth(apiKey, withLogging("restricted", withContext(restricted))))
	mux.HandleFunc("/health", handleHealth(deps.Pool, mcpURL))
	mux.Handle("/tools", withAuth(apiKey, http.HandlerFunc(handleListTools(deps))))
	mux.Handle("/mcp/session", withAuth(apiKey, http.HandlerFunc(handleSession(deps.Pool))))

	return &Server{pool: deps.Pool, mcpURL: mcpURL, mux: mux}
}

// withAuth rejects requests lacking a matching bearer token. A blank apiKey
// disables the check, matching a deployment that trusts its network perimeter.
func withAuth(apiKey string, h http.Handler) http.Handler {
	if apiKey == "" {
		return h
	}
	want := "Bearer " + apiKey
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "missing or invalid API key"})
			return
		}
		h.ServeHTTP(w, r)
	})
}

// Handler returns the combined http.Handler for all mounted routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func buildSurface(regs []tools.Registration) *server.StreamableHTTPServer {
	mcpSrv := server.NewMCPServer(
		serviceName,
		serviceVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, r := range regs {
		mcpSrv.AddTool(r.Tool, r.Handler)
	}
	return server.NewStreamableHTTPServer(mcpSrv,
		server.WithHTTPContextFunc(reqctx.HTTPContextFunc),
		server.WithStateLess(true),
	)
}

func withContext(h http.Handler) http.Handler {
	return reqctx.Middleware(h)
}

func withLogging(surface string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		log.Info().
			Str("surface", surface).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("mcp request")
	})
}

func handleHealth(pool *sandbox.Pool, mcpURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := pool.Healthy(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error(), "mcp_url": mcpURL})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "mcp_url": mcpURL})
	}
}

func handleListTools(deps tools.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		full := tools.FullSurface(deps)
		list := make([]mcp.Tool, 0, len(full))
		for _, reg := range full {
			list = append(list, reg.Tool)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"tools": list})
	}
}
