package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/resilience"
)

type Client struct {
	baseURL        string
	genModel       string
	finetunedModel string
	embedModel     string
	dimension      int
	httpClient     *http.Client
	executor       *resilience.Executor
}

type Options struct {
	// FinetunedModel serves domain.ModelFinetuned; empty falls back to the
	// generation model.
	FinetunedModel string
	// Dimension requests truncated embeddings when above zero.
	Dimension int
	Timeout   time.Duration
	Executor  *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return NewWithOptions(baseURL, genModel, embedModel, Options{})
}

func NewWithOptions(baseURL, genModel, embedModel string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		genModel:       genModel,
		finetunedModel: opts.FinetunedModel,
		embedModel:     embedModel,
		dimension:      opts.Dimension,
		httpClient:     &http.Client{Timeout: timeout},
		executor:       opts.Executor,
	}
}

// ModelFor maps the user's model choice to an Ollama model name.
func (c *Client) ModelFor(choice domain.ModelChoice) string {
	if choice == domain.ModelFinetuned && c.finetunedModel != "" {
		return c.finetunedModel
	}
	return c.genModel
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Truncate   bool     `json:"truncate"`
	Dimensions int      `json:"dimensions,omitempty"`
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := embedRequest{
		Model:      e.client.embedModel,
		Input:      texts,
		Truncate:   true,
		Dimensions: e.client.dimension,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "ollama embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingService, "ollama embed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Embeddings)))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Generator answers prompts under a fixed system instruction.
type Generator struct {
	client *Client
	system string
}

func NewGenerator(client *Client, system string) *Generator {
	return &Generator{client: client, system: system}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

func (g *Generator) GenerateText(ctx context.Context, model domain.ModelChoice, prompt string) (string, error) {
	request := generateRequest{
		Model:  g.client.ModelFor(model),
		Prompt: prompt,
		System: g.system,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.postJSON(ctx, "/api/generate", request, &response, "generate"); err != nil {
		return "", domain.WrapError(domain.ErrGenerationService, "ollama generate", err)
	}
	answer := strings.TrimSpace(response.Response)
	if answer == "" {
		return "", domain.WrapError(domain.ErrGenerationService, "ollama generate", fmt.Errorf("empty response from %s", request.Model))
	}
	return answer, nil
}
