// Package tools defines the MCP tool surface exposed to agents: sandbox
// code execution and file access, plus thin wrappers over Microsoft Graph
// (using a per-call, request-bound or environment credential) and GitHub
// (using the deployment's configured token).
package tools

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sandboxd/sandboxd/internal/sandbox"
)

// Deps is the shared dependency set every tool handler closes over.
type Deps struct {
	Pool *sandbox.Pool

	HTTPClient     *http.Client
	GraphBaseURL   string
	GitHubBaseURL  string
	GitHubToken    string
	RequestTimeout time.Duration
}

// ExecuteCodeTool returns the registration for execute_code: runs a snippet
// of source text inside a pooled sandbox container and returns its output.
func ExecuteCodeTool(deps Deps) (mcp.Tool, server.ToolHandlerFunc) {
	t := mcp.NewTool("execute_code",
		mcp.WithDescription("Execute a snippet of code inside an isolated sandbox container and return its stdout, stderr and exit code. Supported languages: python, bash, sh, node, javascript."),
		mcp.WithString("code", mcp.Description("Source code to execute."), mcp.Required()),
		mcp.WithString("language", mcp.Description("Language the code is written in (python, bash, sh, node, javascript)."), mcp.Required()),
		mcp.WithNumber("timeout", mcp.Description("Optional execution timeout in seconds, overriding the service default.")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		code, _ := args["code"].(string)
		if code == "" {
			return mcp.NewToolResultError("code parameter is required"), nil
		}
		language, _ := args["language"].(string)
		if language == "" {
			return mcp.NewToolResultError("language parameter is required"), nil
		}

		var timeoutOverride *time.Duration
		if secs, ok := args["timeout"].(float64); ok && secs > 0 {
			d := time.Duration(secs * float64(time.Second))
			timeoutOverride = &d
		}

		handle, err := deps.Pool.Acquire(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("no sandbox container available: %v", err)), nil
		}
		defer deps.Pool.Release(handle)

		result, err := deps.Pool.ExecCode(ctx, handle, code, language, timeoutOverride)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("execution failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatExecResult(result)), nil
	}

	return t, handler
}

func formatExecResult(r sandbox.ExecResult) string {
	out := fmt.Sprintf("[stdout]\n%s\n[stderr]\n%s\n[exit_code] %d", r.Stdout, r.Stderr, r.ExitCode)
	if r.Truncated {
		out += "\n[note] Output was truncated due to size limits."
	}
	return out
}
