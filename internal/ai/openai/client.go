// internal/ai/openai/client.go
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"prompt-retrieval/internal/common/config"
	"prompt-retrieval/internal/common/errors"
	"prompt-retrieval/internal/common/logger"
)

const defaultSystemPrompt = "You write a single, clear assessment prompt for the question you are given. " +
	"Respond with the prompt text only, no preamble and no markdown."

// Client provides question embedding and prompt generation against any
// OpenAI-compatible endpoint. It satisfies the embedder interface of the
// search client and the generator interface of the dynamic prompt stage.
type Client struct {
	llm          *openai.LLM
	embedder     embeddings.Embedder
	systemPrompt string
	temperature  float64
	maxTokens    int
	timeout      time.Duration
	logger       logger.Logger
}

func New(cfg config.AIConfig, log logger.Logger) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.CompletionModel),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, errors.NewConfigurationInvalidError("openai client: " + err.Error())
	}

	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, errors.NewConfigurationInvalidError("openai embedder: " + err.Error())
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	return &Client{
		llm:          llm,
		embedder:     embedder,
		systemPrompt: systemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		timeout:      time.Duration(cfg.Timeout) * time.Millisecond,
		logger:       log.WithFields(map[string]interface{}{"component": "openai"}),
	}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

// EmbedQuery generates the question's dense vector.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	vector, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		c.logger.Error("embedding failed", map[string]interface{}{"error": err.Error()})
		return nil, errors.NewEmbeddingFailedError(err)
	}
	return vector, nil
}

// Generate asks the completion model to write a prompt for the question.
func (c *Client) Generate(ctx context.Context, questionText string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(c.systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(questionText)},
		},
	}

	response, err := c.llm.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.NewGenerationTimeoutError()
		}
		c.logger.Error("generation failed", map[string]interface{}{"error": err.Error()})
		return "", errors.NewGenerationFailedError(err)
	}

	if len(response.Choices) == 0 {
		return "", errors.NewGenerationFailedError(fmt.Errorf("model returned no choices"))
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
