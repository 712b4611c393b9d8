// Package mcp exposes sandbox execution and preview hosting as MCP tools
// over stdio, for use by agent hosts.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/drydock-dev/drydock/internal/sandbox"
)

// Server wires sandbox operations into MCP tools.
type Server struct {
	executor *sandbox.Executor
	manager  *sandbox.Manager
	registry *sandbox.Registry
	logger   *slog.Logger
	version  string
}

// New creates an MCP tool server over the given sandbox components.
func New(version string, ex *sandbox.Executor, mgr *sandbox.Manager, reg *sandbox.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		executor: ex,
		manager:  mgr,
		registry: reg,
		logger:   logger,
		version:  version,
	}
}

// Serve registers the tools and blocks serving stdio until EOF.
func (s *Server) Serve() error {
	srv := server.NewMCPServer("drydock", s.version)

	filesSchema := map[string]any{
		"type":        "object",
		"description": "Code bundle: relative file path to text content",
		"additionalProperties": map[string]any{
			"type": "string",
		},
	}
	languageSchema := map[string]any{
		"type":        "string",
		"description": "Declared language hint (python, node, typescript)",
	}
	frameworkSchema := map[string]any{
		"type":        "string",
		"description": "Declared framework hint (fastapi, flask, express, ...)",
	}
	sessionSchema := map[string]any{
		"type":        "string",
		"description": "Session id owning the preview",
	}
	containerSchema := map[string]any{
		"type":        "string",
		"description": "Preview container id",
	}

	srv.AddTool(mcp.Tool{
		Name:        "run_sandbox",
		Description: "Execute a code bundle once in an isolated Docker sandbox. Installs dependencies with the network up, then runs with the network cut and the code read-only. Python and Node.js only.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"files":     filesSchema,
				"language":  languageSchema,
				"framework": frameworkSchema,
			},
			Required: []string{"files"},
		},
	}, s.handleRunSandbox)

	srv.AddTool(mcp.Tool{
		Name:        "start_preview",
		Description: "Host a web application bundle behind a preview URL. The preview lives until its TTL lapses or it is stopped.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"files":      filesSchema,
				"session_id": sessionSchema,
				"ttl_minutes": map[string]any{
					"type":        "number",
					"description": "Preview lifetime in minutes (default 15)",
				},
				"language":  languageSchema,
				"framework": frameworkSchema,
			},
			Required: []string{"files"},
		},
	}, s.handleStartPreview)

	srv.AddTool(mcp.Tool{
		Name:        "preview_status",
		Description: "Check whether the session's preview is ready, still starting, or stopped. Includes recent container logs.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionSchema,
			},
			Required: []string{"session_id"},
		},
	}, s.handlePreviewStatus)

	srv.AddTool(mcp.Tool{
		Name:        "stop_preview",
		Description: "Stop a preview container and release its port.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"container_id": containerSchema,
			},
			Required: []string{"container_id"},
		},
	}, s.handleStopPreview)

	srv.AddTool(mcp.Tool{
		Name:        "get_logs",
		Description: "Fetch recent output from a preview container.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"container_id": containerSchema,
				"tail": map[string]any{
					"type":        "number",
					"description": "Number of trailing log lines (default 100)",
				},
			},
			Required: []string{"container_id"},
		},
	}, s.handleGetLogs)

	return server.ServeStdio(srv)
}

func (s *Server) handleRunSandbox(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return errResult("invalid arguments"), nil
	}

	bundle, err := bundleArg(args)
	if err != nil {
		return errResult(err.Error()), nil
	}

	result := s.executor.Run(ctx, bundle, planArg(args))
	isError := result.Status == sandbox.ExecError || result.Status == sandbox.ExecTimeout
	return jsonResult(result, isError), nil
}

func (s *Server) handleStartPreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return errResult("invalid arguments"), nil
	}

	bundle, err := bundleArg(args)
	if err != nil {
		return errResult(err.Error()), nil
	}

	sessionID, _ := args["session_id"].(string)
	ttl := 0
	if v, ok := args["ttl_minutes"].(float64); ok {
		ttl = int(v)
	}

	outcome := s.manager.Start(ctx, bundle, planArg(args), sessionID, ttl)
	return jsonResult(outcome, previewFailed(outcome)), nil
}

func (s *Server) handlePreviewStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return errResult("invalid arguments"), nil
	}

	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return errResult("'session_id' is required"), nil
	}

	outcome, ok := s.manager.Status(ctx, sessionID)
	if !ok {
		return jsonResult(map[string]string{
			"status":  "none",
			"message": "No active preview for this session.",
		}, false), nil
	}
	return jsonResult(outcome, previewFailed(outcome)), nil
}

func (s *Server) handleStopPreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return errResult("invalid arguments"), nil
	}

	containerID, _ := args["container_id"].(string)
	if containerID == "" {
		return errResult("'container_id' is required"), nil
	}

	outcome := s.manager.Stop(ctx, containerID)
	return jsonResult(outcome, false), nil
}

func (s *Server) handleGetLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return errResult("invalid arguments"), nil
	}

	containerID, _ := args["container_id"].(string)
	if containerID == "" {
		return errResult("'container_id' is required"), nil
	}

	tail := 0
	if v, ok := args["tail"].(float64); ok {
		tail = int(v)
	}

	logs := s.manager.Logs(ctx, containerID, tail)
	return textResult(logs, false), nil
}

// bundleArg extracts the files map into a Bundle.
func bundleArg(args map[string]any) (sandbox.Bundle, error) {
	raw, ok := args["files"].(map[string]any)
	if !ok || len(raw) == 0 {
		return sandbox.Bundle{}, fmt.Errorf("'files' is required")
	}

	files := make(map[string]string, len(raw))
	for path, content := range raw {
		text, ok := content.(string)
		if !ok {
			return sandbox.Bundle{}, fmt.Errorf("file %q content must be a string", path)
		}
		files[path] = text
	}
	return sandbox.Bundle{Files: files}, nil
}

// planArg extracts the optional language/framework hints.
func planArg(args map[string]any) *sandbox.Plan {
	lang, _ := args["language"].(string)
	fw, _ := args["framework"].(string)
	if lang == "" && fw == "" {
		return nil
	}
	return &sandbox.Plan{Language: lang, Framework: fw}
}

func previewFailed(out sandbox.PreviewOutcome) bool {
	return out.Status == sandbox.PreviewError || out.Status == sandbox.PreviewUnsupported
}

// jsonResult renders v as a JSON text content block.
func jsonResult(v any, isError bool) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("marshal result: %v", err))
	}
	return textResult(string(data), isError)
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: isError,
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "error: " + text}},
		IsError: true,
	}
}
