package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sandboxd/sandboxd/internal/reqctx"
)

// graphToken resolves the bearer token to use for a Graph call, in
// precedence order: (a) an explicit "token" tool argument, (b) the
// credential bound to this request's context, (c) the GRAPH_TOKEN
// process environment variable.
func graphToken(ctx context.Context, args map[string]interface{}) string {
	if tok, _ := args["token"].(string); tok != "" {
		return tok
	}
	if tok := reqctx.FromContext(ctx).GraphToken; tok != "" {
		return tok
	}
	return os.Getenv("GRAPH_TOKEN")
}

const noGraphCredentialMsg = "no Microsoft Graph credential available: " +
	"pass a token argument, bind one to this session, or set GRAPH_TOKEN"

// GraphRequestTool returns the registration for graph_request: a thin
// wrapper over the Microsoft Graph REST API, authenticated with a token
// resolved per the tool-argument / request-context / environment precedence.
func GraphRequestTool(deps Deps) (mcp.Tool, server.ToolHandlerFunc) {
	t := mcp.NewTool("graph_request",
		mcp.WithDescription("Call the Microsoft Graph API. Returns the raw response body and status code."),
		mcp.WithString("method", mcp.Description("HTTP method: GET, POST, PATCH, PUT, DELETE. Defaults to GET.")),
		mcp.WithString("path", mcp.Description("Graph path relative to the v1.0 root, e.g. 'me' or 'me/messages'."), mcp.Required()),
		mcp.WithString("body", mcp.Description("Optional raw JSON request body.")),
		mcp.WithString("token", mcp.Description("Explicit bearer token. Overrides the session-bound credential and GRAPH_TOKEN.")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		token := graphToken(ctx, args)
		if token == "" {
			return mcp.NewToolResultError(noGraphCredentialMsg), nil
		}

		method, _ := args["method"].(string)
		if method == "" {
			method = http.MethodGet
		}
		path, _ := args["path"].(string)
		if path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}
		body, _ := args["body"].(string)

		url := strings.TrimRight(deps.GraphBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
		return doThirdPartyRequest(ctx, deps, method, url, "Bearer "+token, body)
	}

	return t, handler
}

// GraphWhoamiTool returns the registration for graph_whoami: a convenience
// wrapper equivalent to graph_request(GET, "me").
func GraphWhoamiTool(deps Deps) (mcp.Tool, server.ToolHandlerFunc) {
	t := mcp.NewTool("graph_whoami",
		mcp.WithDescription("Return the Microsoft Graph profile (GET /me) of the identity bound to this session."),
		mcp.WithString("token", mcp.Description("Explicit bearer token. Overrides the session-bound credential and GRAPH_TOKEN.")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token := graphToken(ctx, req.GetArguments())
		if token == "" {
			return mcp.NewToolResultError(noGraphCredentialMsg), nil
		}

		url := strings.TrimRight(deps.GraphBaseURL, "/") + "/me"
		return doThirdPartyRequest(ctx, deps, http.MethodGet, url, "Bearer "+token, "")
	}

	return t, handler
}

// GitHubRequestTool returns the registration for github_request: a thin
// wrapper over the GitHub REST API, authenticated with the service's
// configured GitHub token (GitHub access in this system is scoped per
// deployment, not per request, unlike Graph).
func GitHubRequestTool(deps Deps) (mcp.Tool, server.ToolHandlerFunc) {
	t := mcp.NewTool("github_request",
		mcp.WithDescription("Call the GitHub REST API. Returns the raw response body and status code."),
		mcp.WithString("method", mcp.Description("HTTP method: GET, POST, PATCH, PUT, DELETE. Defaults to GET.")),
		mcp.WithString("path", mcp.Description("GitHub API path, e.g. 'user' or 'repos/owner/repo/issues'."), mcp.Required()),
		mcp.WithString("body", mcp.Description("Optional raw JSON request body.")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.GitHubToken == "" {
			return mcp.NewToolResultError("no GitHub token is configured for this deployment"), nil
		}

		args := req.GetArguments()
		method, _ := args["method"].(string)
		if method == "" {
			method = http.MethodGet
		}
		path, _ := args["path"].(string)
		if path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}
		body, _ := args["body"].(string)

		url := strings.TrimRight(deps.GitHubBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
		return doThirdPartyRequest(ctx, deps, method, url, "token "+deps.GitHubToken, body)
	}

	return t, handler
}

func doThirdPartyRequest(ctx context.Context, deps Deps, method, url, authHeader, body string) (*mcp.CallToolResult, error) {
	reqCtx, cancel := contextWithTimeout(ctx, deps.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, strings.ToUpper(method), url, reader)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid request: %v", err)), nil
	}
	httpReq.Header.Set("Authorization", authHeader)
	httpReq.Header.Set("Accept", "application/json")
	if body != "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := deps.HTTPClient.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("upstream request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read upstream response: %v", err)), nil
	}

	text := fmt.Sprintf("[status] %d\n%s", resp.StatusCode, string(respBody))
	if resp.StatusCode >= 400 {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}
