package mcpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/metadata"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
)

const (
	serverName    = "f1-penalty-rag"
	serverVersion = "1.0.0"

	toolParseMetadata  = "parse_metadata"
	toolAnalyzePenalty = "analyze_penalty"
)

// Server exposes metadata parsing and penalty analysis as MCP tools.
type Server struct {
	analyzer ports.PenaltyAnalyzer
	mcp      *server.MCPServer
}

func NewServer(analyzer ports.PenaltyAnalyzer) *Server {
	s := &Server{
		analyzer: analyzer,
		mcp:      server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool(toolParseMetadata,
		mcp.WithDescription("Extract year, location, document type and car numbers from F1 stewards' text"),
		mcp.WithString("text", mcp.Required(), mcp.Description("decision text or a question about an incident")),
	), s.handleParseMetadata)

	s.mcp.AddTool(mcp.NewTool(toolAnalyzePenalty,
		mcp.WithDescription("Assess the fairness of an F1 penalty using stewards' decisions and FIA regulations"),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("question, optionally with a decision document URL")),
		mcp.WithString("llm_choice", mcp.Description("default or finetuned"), mcp.Enum("default", "finetuned")),
	), s.handleAnalyzePenalty)
}

// ServeStdio blocks until ctx is done or stdin closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("mcp_server_started", "transport", "stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) handleParseMetadata(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := metadata.NormalizeText(raw)
	if text == "" {
		return mcp.NewToolResultError("text is empty"), nil
	}
	return jsonResult(metadata.Parse(text))
}

func (s *Server) handleAnalyzePenalty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	choice, err := domain.ParseModelChoice(req.GetString("llm_choice", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	analysis, err := s.analyzer.Answer(ctx, prompt, choice)
	if err != nil {
		slog.Warn("mcp_analyze_failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(analysis.Answer), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
