// Package proxy implements the authenticating reverse proxy that forwards
// sandboxed requests to Microsoft Graph and GitHub. The sandbox container
// never holds a real credential: it sends an opaque X-Proxy-ID, which this
// proxy exchanges for a bearer token via the KV store.
package proxy

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sandboxd/sandboxd/internal/kvstore"
)

const (
	defaultGraphBaseURL  = "https://graph.microsoft.com/v1.0"
	defaultGitHubBaseURL = "https://api.github.com"
)

const (
	unknownRequestBody = "unknown request, cannot continue!"
	invalidProxyIDBody = "invalid proxy ID, cannot continue!"
)

// Options configures a Proxy.
type Options struct {
	Store           kvstore.Store
	HTTPClient      *http.Client
	GitHubToken     string
	UpstreamTimeout time.Duration

	// GraphBaseURL and GitHubBaseURL override the upstream base URLs.
	// Empty means the real Microsoft Graph / GitHub APIs.
	GraphBaseURL  string
	GitHubBaseURL string
}

// Proxy forwards authenticated requests to upstream third-party APIs.
type Proxy struct {
	store           kvstore.Store
	client          *http.Client
	githubToken     string
	upstreamTimeout time.Duration
	graphBaseURL    string
	githubBaseURL   string
}

// New builds a Proxy and its gorilla/mux router.
func New(opts Options) (*Proxy, http.Handler) {
	p := &Proxy{
		store:           opts.Store,
		client:          opts.HTTPClient,
		githubToken:     opts.GitHubToken,
		upstreamTimeout: opts.UpstreamTimeout,
		graphBaseURL:    opts.GraphBaseURL,
		githubBaseURL:   opts.GitHubBaseURL,
	}
	if p.client == nil {
		p.client = http.DefaultClient
	}
	if p.upstreamTimeout <= 0 {
		p.upstreamTimeout = 30 * time.Second
	}
	if p.graphBaseURL == "" {
		p.graphBaseURL = defaultGraphBaseURL
	}
	if p.githubBaseURL == "" {
		p.githubBaseURL = defaultGitHubBaseURL
	}

	r := mux.NewRouter()
	r.PathPrefix("/graph/").Methods(http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete).HandlerFunc(p.handleGraph)
	r.PathPrefix("/github/").Methods(http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete).HandlerFunc(p.handleGitHub)
	return p, r
}

// handleGraph requires a valid X-Proxy-ID bound to a token in the KV store.
func (p *Proxy) handleGraph(w http.ResponseWriter, r *http.Request) {
	proxyID := r.Header.Get("X-Proxy-ID")
	if proxyID == "" {
		writePlainText(w, http.StatusUnauthorized, unknownRequestBody)
		return
	}

	token, ok, err := p.store.Get(r.Context(), proxyID)
	if err != nil {
		log.Error().Err(err).Msg("kv store lookup failed")
		http.Error(w, "credential lookup failed", http.StatusBadGateway)
		return
	}
	if !ok {
		writePlainText(w, http.StatusUnauthorized, invalidProxyIDBody)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/graph/")
	p.forward(w, r, p.graphBaseURL, path, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// handleGitHub forwards with the deployment's static GitHub token, if any.
// Unlike Graph, there is no per-request credential: the token (or its
// absence, for public API access) is fixed per deployment.
func (p *Proxy) handleGitHub(w http.ResponseWriter, r *http.Request) {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if p.githubToken != "" {
		headers["Authorization"] = "token " + p.githubToken
	}

	path := strings.TrimPrefix(r.URL.Path, "/github/")
	p.forward(w, r, p.githubBaseURL, path, headers)
}

func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, baseURL, path string, headers map[string]string) {
	target := baseURL + "/" + path
	if rq := r.URL.RawQuery; rq != "" {
		target += "?" + rq
	}

	ctx, cancel := context.WithTimeout(r.Context(), p.upstreamTimeout)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = strings.NewReader(string(body))
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, r.Method, target, reqBody)
	if err != nil {
		http.Error(w, "failed to build upstream request", http.StatusInternalServerError)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		upstreamReq.Header.Set("Content-Type", ct)
	}
	for k, v := range headers {
		upstreamReq.Header.Set(k, v)
	}

	log.Info().Str("method", r.Method).Str("target", target).Msg("proxying request")

	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		log.Error().Err(err).Str("target", target).Msg("upstream request failed")
		http.Error(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func writePlainText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
