// Package llm wraps the OpenAI API for level summaries and text embeddings.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config selects models and the request budget shared by all calls.
type Config struct {
	APIKey            string
	BaseURL           string // optional, for compatible gateways
	Model             string
	EmbeddingModel    string
	RequestsPerSecond float64
	MaxTokens         int
}

// Client issues rate-limited OpenAI requests. It is safe for concurrent use.
type Client struct {
	api     *openai.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient returns a Client. A zero RequestsPerSecond disables limiting.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	logger.Info("initializing openai client",
		zap.String("model", cfg.Model),
		zap.String("embedding_model", cfg.EmbeddingModel))
	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}, nil
}

const summaryPrompt = `You summarise groups of related knowledge objects.
Write two or three sentences describing what the items below have in common
and how they relate to "%s". Do not list the items one by one.

%s`

// Summarize implements network.SummarySource.
func (c *Client) Summarize(ctx context.Context, snippets []string, contextTitle string) (string, error) {
	if len(snippets) == 0 {
		return "", nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, s := range snippets {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteByte('\n')
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a concise analyst."},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(summaryPrompt, contextTitle, b.String())},
		},
		Temperature: 0.2,
	}
	if c.cfg.MaxTokens > 0 {
		req.MaxCompletionTokens = c.cfg.MaxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("openai summary failed", zap.Error(err))
		return "", fmt.Errorf("openai summary: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai summary: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed implements source.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("openai embedding: empty text")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai embedding: no vectors returned")
	}
	return resp.Data[0].Embedding, nil
}
