package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"go-apartment-scout/internal/models"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openAIClient talks to any OpenAI-compatible chat completions API.
type openAIClient struct {
	client        *openai.Client
	provider      string
	configured    bool
	model         string
	maxInputChars int
}

func NewOpenAIClient(apiKey, model string, maxInputChars int) Client {
	if model == "" {
		model = defaultOpenAIModel
	}
	c := newOpenAIClientWithConfig(openai.DefaultConfig(apiKey), model)
	c.configured = apiKey != ""
	c.maxInputChars = maxInputChars
	return c
}

func newOpenAIClientWithConfig(cfg openai.ClientConfig, model string) *openAIClient {
	return &openAIClient{
		client:     openai.NewClientWithConfig(cfg),
		provider:   "OpenAI",
		configured: true,
		model:      model,
	}
}

func (c *openAIClient) ParseListing(ctx context.Context, text string) (*models.AIParseResult, error) {
	if !c.configured {
		return nil, fmt.Errorf("%s API key not configured", c.provider)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(text, c.maxInputChars),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s API returned no choices", c.provider)
	}

	return decodeListing(resp.Choices[0].Message.Content)
}
