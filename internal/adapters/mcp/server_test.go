package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

type analyzerFake struct {
	err    error
	choice domain.ModelChoice
}

func (f *analyzerFake) Answer(_ context.Context, prompt string, choice domain.ModelChoice) (*domain.Analysis, error) {
	f.choice = choice
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Analysis{Answer: "fair: " + prompt, Model: choice}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("expected tool content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestParseMetadataTool(t *testing.T) {
	s := NewServer(&analyzerFake{})

	result, err := s.handleParseMetadata(context.Background(), callRequest(toolParseMetadata, map[string]any{
		"text": "Decision: Car 30 speeding in the pit lane, 2024",
	}))
	if err != nil {
		t.Fatalf("parse metadata: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var meta domain.DocumentMetadata
	if err := json.Unmarshal([]byte(resultText(t, result)), &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.Year != "2024" || meta.CarNum != "30" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestParseMetadataToolRequiresText(t *testing.T) {
	s := NewServer(&analyzerFake{})

	result, err := s.handleParseMetadata(context.Background(), callRequest(toolParseMetadata, map[string]any{}))
	if err != nil {
		t.Fatalf("expected tool error result, got %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error result for missing text")
	}
}

func TestAnalyzePenaltyTool(t *testing.T) {
	analyzer := &analyzerFake{}
	s := NewServer(analyzer)

	result, err := s.handleAnalyzePenalty(context.Background(), callRequest(toolAnalyzePenalty, map[string]any{
		"prompt":     "car 1 at monaco",
		"llm_choice": "finetuned",
	}))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got := resultText(t, result); got != "fair: car 1 at monaco" {
		t.Fatalf("unexpected answer %q", got)
	}
	if analyzer.choice != domain.ModelFinetuned {
		t.Fatalf("expected finetuned model, got %q", analyzer.choice)
	}
}

func TestAnalyzePenaltyToolReportsFailures(t *testing.T) {
	s := NewServer(&analyzerFake{err: domain.WrapError(domain.ErrCollectionUnavailable, "compose", errors.New("empty"))})

	result, err := s.handleAnalyzePenalty(context.Background(), callRequest(toolAnalyzePenalty, map[string]any{"prompt": "x"}))
	if err != nil {
		t.Fatalf("expected tool error result, got %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error result")
	}

	result, _ = s.handleAnalyzePenalty(context.Background(), callRequest(toolAnalyzePenalty, map[string]any{"prompt": "x", "llm_choice": "gpt"}))
	if !result.IsError {
		t.Fatalf("expected error result for unknown model")
	}
}
