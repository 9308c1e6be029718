package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Zmugha1/sandi-bot/pkg/errors"
	"github.com/Zmugha1/sandi-bot/pkg/logger"
)

// Completer is the external text-generation collaborator. Its internals
// are out of scope; the grounding contract around it is not.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// ModelAdapter talks to a local OpenAI-compatible model server (llama.cpp,
// Ollama) with deterministic sampling: temperature 0 and a fixed seed.
type ModelAdapter struct {
	client *openai.Client
	model  string
	seed   int
	logger *zap.Logger
}

// NewModelAdapter creates an adapter for the local model endpoint
func NewModelAdapter(baseURL, apiKey, modelID string, seed int) *ModelAdapter {
	// local servers ignore the key but the client requires one
	if apiKey == "" {
		apiKey = "local"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"

	return &ModelAdapter{
		client: openai.NewClientWithConfig(config),
		model:  modelID,
		seed:   seed,
		logger: logger.Get(),
	}
}

// Complete sends one chat completion request. Inference on a local model
// blocks for its full duration; there is no streaming contract here.
func (a *ModelAdapter) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	seed := a.seed
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0,
		Seed:        &seed,
		MaxTokens:   maxTokens,
	}

	var resp openai.ChatCompletionResponse
	var err error
	maxRetries := 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			a.logger.Warn("Retrying model request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			time.Sleep(backoff)
		}

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		a.logger.Error("Model request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", a.model),
		)
	}
	if err != nil {
		return "", errors.NewModelFailed(a.model, maxRetries, err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.NewModelFailed(a.model, 1, fmt.Errorf("no choices in model response"))
	}
	return resp.Choices[0].Message.Content, nil
}
