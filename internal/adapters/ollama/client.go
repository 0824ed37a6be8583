// Package ollama completes prompts against an Ollama server through its
// OpenAI-compatible /v1 API.
package ollama

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"staybook/internal/adapters/observability"
)

type Client struct {
	c     *openai.Client
	model string
}

func New(baseURL, model string) *Client {
	cfg := openai.DefaultConfig("ollama") // Ollama ignores the key but the header must be present
	cfg.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	if model == "" {
		model = "llama3"
	}
	return &Client{c: openai.NewClientWithConfig(cfg), model: model}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a local travel guide. Answer with JSON only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	status := 200
	if err != nil {
		status = 0
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.HTTPStatusCode
		}
	}
	observability.ObserveExternal(ctx, "ollama", "chat", status, time.Since(start))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ollama: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
