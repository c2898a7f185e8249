package tools

import (
	"context"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandboxd/sandboxd/internal/reqctx"
)

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestExecuteCodeToolMissingArgs(t *testing.T) {
	_, handler := ExecuteCodeTool(Deps{})
	res := callTool(t, handler, map[string]interface{}{"language": "python"})
	require.NotNil(t, res)
	assert.True(t, res.IsError)
}

func TestGraphRequestToolMissingCredential(t *testing.T) {
	t.Setenv("GRAPH_TOKEN", "")
	_, handler := GraphRequestTool(Deps{GraphBaseURL: "https://graph.microsoft.com/v1.0", HTTPClient: http.DefaultClient})
	res := callTool(t, handler, map[string]interface{}{"path": "me"})
	require.NotNil(t, res)
	assert.True(t, res.IsError)
}

func TestGraphTokenPrecedence(t *testing.T) {
	t.Setenv("GRAPH_TOKEN", "env-token")
	assert.Equal(t, "env-token", graphToken(context.Background(), map[string]interface{}{}))

	ctxWithBound := reqctx.WithValues(context.Background(), reqctx.Values{GraphToken: "bound-token"})
	assert.Equal(t, "bound-token", graphToken(ctxWithBound, map[string]interface{}{}))

	assert.Equal(t, "arg-token", graphToken(ctxWithBound, map[string]interface{}{"token": "arg-token"}))
}

func TestGitHubRequestToolMissingToken(t *testing.T) {
	_, handler := GitHubRequestTool(Deps{GitHubBaseURL: "https://api.github.com", HTTPClient: http.DefaultClient})
	res := callTool(t, handler, map[string]interface{}{"path": "user"})
	require.NotNil(t, res)
	assert.True(t, res.IsError)
}

func TestFullSurfaceIncludesExecuteCode(t *testing.T) {
	regs := FullSurface(Deps{})
	names := make(map[string]bool)
	for _, r := range regs {
		names[r.Tool.Name] = true
	}
	assert.True(t, names["execute_code"])
	assert.True(t, names["sandbox_read_file"])
}

func TestRestrictedSurfaceExcludesExecuteCode(t *testing.T) {
	regs := RestrictedSurface(Deps{})
	for _, r := range regs {
		assert.NotEqual(t, "execute_code", r.Tool.Name)
	}
}
