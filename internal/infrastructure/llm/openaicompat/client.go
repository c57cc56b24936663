// Package openaicompat talks to any OpenAI-compatible endpoint (OpenAI,
// vLLM, LiteLLM, Gemini's compatibility layer) for embeddings and chat.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/resilience"
)

type Options struct {
	BaseURL        string
	APIKey         string
	GenModel       string
	FinetunedModel string
	EmbedModel     string
	Dimension      int
	Executor       *resilience.Executor
}

type Client struct {
	api  *openai.Client
	opts Options
}

func New(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if base := strings.TrimRight(opts.BaseURL, "/"); base != "" {
		cfg.BaseURL = base
	}
	return &Client{api: openai.NewClientWithConfig(cfg), opts: opts}
}

func (c *Client) modelFor(choice domain.ModelChoice) string {
	if choice == domain.ModelFinetuned && c.opts.FinetunedModel != "" {
		return c.opts.FinetunedModel
	}
	return c.opts.GenModel
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	request := openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(e.client.opts.EmbedModel),
		Input:      texts,
		Dimensions: e.client.opts.Dimension,
	}

	resp, err := resilience.Call(ctx, e.client.opts.Executor, "openai_embed", func(ctx context.Context) (openai.EmbeddingResponse, error) {
		return e.client.api.CreateEmbeddings(ctx, request)
	}, classifyOpenAIError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "openai embed", wrapTemporaryIfNeeded(err))
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "openai embed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	out := make([][]float32, len(texts))
	for i, item := range resp.Data {
		idx := item.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		v := make([]float32, len(item.Embedding))
		for j := range item.Embedding {
			v[j] = float32(item.Embedding[j])
		}
		out[idx] = v
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Generator sends the prompt as a user message after a fixed system
// message.
type Generator struct {
	client *Client
	system string
}

func NewGenerator(client *Client, system string) *Generator {
	return &Generator{client: client, system: system}
}

func (g *Generator) GenerateText(ctx context.Context, model domain.ModelChoice, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if g.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: g.system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	request := openai.ChatCompletionRequest{
		Model:    g.client.modelFor(model),
		Messages: messages,
	}

	resp, err := resilience.Call(ctx, g.client.opts.Executor, "openai_chat", func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return g.client.api.CreateChatCompletion(ctx, request)
	}, classifyOpenAIError)
	if err != nil {
		return "", domain.WrapError(domain.ErrGenerationService, "openai chat", wrapTemporaryIfNeeded(err))
	}
	if len(resp.Choices) == 0 {
		return "", domain.WrapError(domain.ErrGenerationService, "openai chat", errors.New("no choices returned"))
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", domain.WrapError(domain.ErrGenerationService, "openai chat", fmt.Errorf("empty response from %s", request.Model))
	}
	return answer, nil
}

// statusCode extracts the HTTP status carried by go-openai errors.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if code := statusCode(err); code != 0 {
		retryable := resilience.IsRetryableHTTPStatus(code)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}
	return resilience.ClassifyHTTPError(err)
}

func wrapTemporaryIfNeeded(err error) error {
	if classifyOpenAIError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, "openai", err)
	}
	return err
}
