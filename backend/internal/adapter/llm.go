package adapter

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "cybergraph/backend/pkg/errors"
	"cybergraph/backend/pkg/logger"
)

const maxRetries = 3

// LLMAdapter talks to an OpenAI-compatible chat endpoint (LiteLLM, Ollama).
type LLMAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
	mu          sync.RWMutex // Protects model field for concurrent access
	backoff     time.Duration
	logger      *zap.Logger
}

// SetModel updates the model used by this adapter
func (a *LLMAdapter) SetModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.model = model
		a.mu.Unlock()
		a.logger.Debug("LLM adapter model updated", zap.String("model", model))
	}
}

// GetModel returns the current model
func (a *LLMAdapter) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// NewLLMAdapter creates a new LLM adapter. baseURL is the server root; the
// OpenAI-compatible API is expected under /v1.
func NewLLMAdapter(baseURL, apiKey, modelID string, temperature float32) *LLMAdapter {
	// Local gateways accept any key
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"

	return &LLMAdapter{
		client:      openai.NewClientWithConfig(config),
		model:       modelID,
		temperature: temperature,
		backoff:     time.Second,
		logger:      logger.Named("llm"),
	}
}

// Complete sends one system + user exchange and returns the reply text.
// Transient failures are retried with linear backoff; 4xx responses are not.
func (a *LLMAdapter) Complete(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	currentModel := a.GetModel()

	req := openai.ChatCompletionRequest{
		Model: currentModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		Temperature: a.temperature,
	}

	var resp openai.ChatCompletionResponse
	var err error
	attempts := 0
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * a.backoff
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", apperrors.NewContextCancelled("llm completion", ctx.Err())
			case <-time.After(backoff):
			}
		}

		attempts++
		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", currentModel),
		)
		if !retryable(err) {
			break
		}
	}

	if err != nil {
		return "", apperrors.NewLLMFailed(currentModel, attempts, retryable(err), err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.ErrLLMNoResponse
	}

	content := resp.Choices[0].Message.Content
	a.logger.Debug("LLM response generated",
		zap.String("model", currentModel),
		zap.Int("chars", len(content)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return content, nil
}

// retryable treats client errors (bad model, bad request, auth) as permanent.
func retryable(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 0 || apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return true
}
