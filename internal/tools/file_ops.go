package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sandboxd/sandboxd/internal/sandbox"
)

// ReadFileTool returns the registration for sandbox_read_file.
func ReadFileTool(deps Deps) (mcp.Tool, server.ToolHandlerFunc) {
	t := mcp.NewTool("sandbox_read_file",
		mcp.WithDescription("Read a text file from the sandbox workspace."),
		mcp.WithString("path", mcp.Description("Path to the file, absolute or relative to /workspace."), mcp.Required()),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		rawPath, _ := args["path"].(string)
		if rawPath == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}

		resolved, err := sandbox.ResolvePath(rawPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		handle, err := deps.Pool.Acquire(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("no sandbox container available: %v", err)), nil
		}
		defer deps.Pool.Release(handle)

		data, err := deps.Pool.FileRead(ctx, handle, resolved)
		if err != nil {
			if errors.Is(err, sandbox.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("file not found: %s", rawPath)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("read failed: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}

	return t, handler
}

// WriteFileTool returns the registration for sandbox_write_file.
func WriteFileTool(deps Deps) (mcp.Tool, server.ToolHandlerFunc) {
	t := mcp.NewTool("sandbox_write_file",
		mcp.WithDescription("Write (creating or overwriting) a text file in the sandbox workspace, creating parent directories as needed."),
		mcp.WithString("path", mcp.Description("Path to the file, absolute or relative to /workspace."), mcp.Required()),
		mcp.WithString("content", mcp.Description("Text content to write."), mcp.Required()),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		rawPath, _ := args["path"].(string)
		if rawPath == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}
		content, _ := args["content"].(string)

		resolved, err := sandbox.ResolvePath(rawPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		handle, err := deps.Pool.Acquire(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("no sandbox container available: %v", err)), nil
		}
		defer deps.Pool.Release(handle)

		n, err := deps.Pool.FileWrite(ctx, handle, resolved, []byte(content))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("write failed: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Wrote %d bytes to %s", n, resolved)), nil
	}

	return t, handler
}

// ListFilesTool returns the registration for sandbox_list_files.
func ListFilesTool(deps Deps) (mcp.Tool, server.ToolHandlerFunc) {
	t := mcp.NewTool("sandbox_list_files",
		mcp.WithDescription("List the contents of a directory in the sandbox workspace."),
		mcp.WithString("path", mcp.Description("Directory to list, absolute or relative to /workspace. Defaults to /workspace.")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		rawPath, _ := args["path"].(string)
		if rawPath == "" {
			rawPath = sandbox.Workspace
		}

		resolved, err := sandbox.ResolvePath(rawPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		handle, err := deps.Pool.Acquire(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("no sandbox container available: %v", err)), nil
		}
		defer deps.Pool.Release(handle)

		listing, err := deps.Pool.FileList(ctx, handle, resolved)
		if err != nil {
			if errors.Is(err, sandbox.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("path not found: %s", rawPath)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}

		return mcp.NewToolResultText(listing), nil
	}

	return t, handler
}
