package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Registration pairs an mcp.Tool definition with its handler, ready to be
// added to any number of server.MCPServer instances.
type Registration struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// FullSurface returns every tool an unrestricted agent session may call.
func FullSurface(deps Deps) []Registration {
	regs := RestrictedSurface(deps)
	add := func(t mcp.Tool, h server.ToolHandlerFunc) {
		regs = append(regs, Registration{Tool: t, Handler: h})
	}

	add(ExecuteCodeTool(deps))
	add(ReadFileTool(deps))
	add(WriteFileTool(deps))
	add(ListFilesTool(deps))

	return regs
}

// RestrictedSurface returns the tool set available to sessions that must
// not run arbitrary code: third-party API wrappers only, with no sandbox
// code execution or file access.
func RestrictedSurface(deps Deps) []Registration {
	var regs []Registration
	add := func(t mcp.Tool, h server.ToolHandlerFunc) {
		regs = append(regs, Registration{Tool: t, Handler: h})
	}

	add(GraphRequestTool(deps))
	add(GraphWhoamiTool(deps))
	add(GitHubRequestTool(deps))

	return regs
}

func contextWithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(ctx, d)
}
