// Package mcpserver exposes the indexing and retrieval operations as MCP
// tools over stdio, for code-assistant clients.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/codegraph/api"
	"github.com/agentic-research/codegraph/internal/indexer"
	"github.com/agentic-research/codegraph/internal/retriever"
)

// Version reported in the MCP handshake.
const Version = "0.1.0"

// Server bundles the engine behind MCP tool handlers.
type Server struct {
	mcp       *server.MCPServer
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
}

// New creates the MCP server with all five tools registered.
func New(ix *indexer.Indexer, ret *retriever.Retriever) *Server {
	s := &Server{
		mcp:       server.NewMCPServer("codegraph", Version, server.WithToolCapabilities(false)),
		indexer:   ix,
		retriever: ret,
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("repo_index",
		mcp.WithDescription("Index a repository into the code graph (full or incremental)."),
		mcp.WithString("repo_path", mcp.Required(), mcp.Description("Absolute path to the repository root")),
		mcp.WithString("mode", mcp.Description("full (default) or incremental")),
	), s.handleIndex)

	s.mcp.AddTool(mcp.NewTool("repo_status",
		mcp.WithDescription("Report whether a repository is indexed, with file/symbol/edge counts."),
		mcp.WithString("repo_path", mcp.Required(), mcp.Description("Absolute path to the repository root")),
	), s.handleStatus)

	s.mcp.AddTool(mcp.NewTool("repo_search",
		mcp.WithDescription("Ranked full-text search over indexed files, symbols, and modules."),
		mcp.WithString("repo_path", mcp.Required(), mcp.Description("Absolute path to the repository root")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text query")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("repo_snippet",
		mcp.WithDescription("Extract a clamped line range from a repository file."),
		mcp.WithString("repo_path", mcp.Required(), mcp.Description("Absolute path to the repository root")),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Repo-relative file path")),
		mcp.WithNumber("start_line", mcp.Description("First line, 1-based")),
		mcp.WithNumber("end_line", mcp.Description("Last line, inclusive")),
	), s.handleSnippet)

	s.mcp.AddTool(mcp.NewTool("repo_context_get",
		mcp.WithDescription("Assemble a ranked, budget-bounded context bundle for a task."),
		mcp.WithString("repo_path", mcp.Required(), mcp.Description("Absolute path to the repository root")),
		mcp.WithString("task", mcp.Required(), mcp.Description("Natural-language task description")),
		mcp.WithNumber("budget", mcp.Description("Token budget, clamped to [1000..32000] (default 8000)")),
		mcp.WithArray("paths", mcp.Description("Path hints")),
		mcp.WithArray("symbols", mcp.Description("Symbol hints")),
		mcp.WithString("lang", mcp.Description("Language hint")),
	), s.handleContextGet)
}

func (s *Server) handleIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repoPath, err = filepath.Abs(repoPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := s.indexer.Index(ctx, repoPath, req.GetString("mode", indexer.ModeFull))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summary), nil
}

func (s *Server) handleStatus(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repoPath, err = filepath.Abs(repoPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := s.retriever.Status(repoPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(status), nil
}

func (s *Server) handleSearch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repoPath, err = filepath.Abs(repoPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.retriever.Search(repoPath, query, req.GetInt("limit", 20))
	if errors.Is(err, retriever.ErrNotIndexed) {
		return jsonResult(api.RetrievalError{Error: err.Error(), Suggestion: "repo_index"}), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) handleSnippet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filePath, err := req.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repoPath, err = filepath.Abs(repoPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snippet, err := s.retriever.Snippet(repoPath, filePath, req.GetInt("start_line", 0), req.GetInt("end_line", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(snippet), nil
}

func (s *Server) handleContextGet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task, err := req.RequireString("task")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repoPath, err = filepath.Abs(repoPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	budget := req.GetInt("budget", 0)
	if budget < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("negative budget %d", budget)), nil
	}
	hints := &api.Hints{
		Paths:   req.GetStringSlice("paths", nil),
		Symbols: req.GetStringSlice("symbols", nil),
		Lang:    req.GetString("lang", ""),
	}
	bundle, err := s.retriever.Retrieve(repoPath, task, budget, hints)
	if errors.Is(err, retriever.ErrNotIndexed) {
		return jsonResult(api.RetrievalError{Error: err.Error(), Suggestion: "repo_index"}), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(bundle), nil
}

func jsonResult(v any) *mcp.CallToolResult {
	return mcp.NewToolResultText(oj.JSON(v, 2))
}
