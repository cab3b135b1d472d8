package ai

import (
	openai "github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	defaultGroqModel = "llama-3.3-70b-versatile"
)

// NewGroqClient creates a client for Groq's OpenAI-compatible chat completions API
func NewGroqClient(apiKey, model string, maxInputChars int) Client {
	return newGroqClient(apiKey, model, groqBaseURL, maxInputChars)
}

func newGroqClient(apiKey, model, baseURL string, maxInputChars int) *openAIClient {
	if model == "" {
		model = defaultGroqModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	c := newOpenAIClientWithConfig(cfg, model)
	c.provider = "Groq"
	c.configured = apiKey != ""
	c.maxInputChars = maxInputChars
	return c
}
