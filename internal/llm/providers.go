// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Provider describes one text-generation API shape. Adding a provider is a
// pure-data change: a new entry in the table below, no new client logic.
type Provider struct {
	// Name is the lookup key used in configuration.
	Name string

	// BaseURL and Endpoint combine into the request URL; BaseURL can be
	// overridden per run for proxies and local servers.
	BaseURL  string
	Endpoint string

	// KeyEnv is the environment variable consulted when no API key is
	// configured. Empty means no key is required (local servers).
	KeyEnv string

	// DefaultModel is used when configuration names none.
	DefaultModel string

	// MaxTokens is the completion budget sent with each request.
	MaxTokens int

	// BuildHeaders returns the request headers for this provider.
	BuildHeaders func(apiKey, model string) map[string]string

	// BuildBody returns the request body for this provider.
	BuildBody func(prompt, model string, maxTokens int) map[string]any

	// ExtractText pulls the completion text out of a response body.
	ExtractText func(body []byte) (string, error)
}

// openAIHeaders is the header shape shared by every OpenAI-compatible API.
func openAIHeaders(apiKey, _ string) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if apiKey != "" {
		h["Authorization"] = "Bearer " + apiKey
	}
	return h
}

// openAIBody is the chat-completions body shared by OpenAI-compatible APIs.
func openAIBody(prompt, model string, maxTokens int) map[string]any {
	return map[string]any{
		"model":       model,
		"max_tokens":  maxTokens,
		"temperature": 0.3,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
}

// openAIText extracts choices[0].message.content.
func openAIText(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// anthropicText extracts content[0].text from a Messages API response.
func anthropicText(body []byte) (string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("response has no text content")
}

// providers is the registry of supported API shapes.
var providers = map[string]Provider{
	"anthropic": {
		Name:         "anthropic",
		BaseURL:      "https://api.anthropic.com/v1",
		Endpoint:     "/messages",
		KeyEnv:       "ANTHROPIC_API_KEY",
		DefaultModel: "claude-opus-4-5-20251101",
		MaxTokens:    4096,
		BuildHeaders: func(apiKey, _ string) map[string]string {
			return map[string]string{
				"Content-Type":      "application/json",
				"x-api-key":         apiKey,
				"anthropic-version": "2023-06-01",
			}
		},
		BuildBody: func(prompt, model string, maxTokens int) map[string]any {
			return map[string]any{
				"model":      model,
				"max_tokens": maxTokens,
				"messages": []map[string]string{
					{"role": "user", "content": prompt},
				},
			}
		},
		ExtractText: anthropicText,
	},
	"openrouter": {
		Name:         "openrouter",
		BaseURL:      "https://openrouter.ai/api/v1",
		Endpoint:     "/chat/completions",
		KeyEnv:       "OPENROUTER_API_KEY",
		DefaultModel: "meta-llama/llama-2-70b-chat-hf",
		MaxTokens:    4096,
		BuildHeaders: openAIHeaders,
		BuildBody:    openAIBody,
		ExtractText:  openAIText,
	},
	"together": {
		Name:         "together",
		BaseURL:      "https://api.together.xyz/v1",
		Endpoint:     "/chat/completions",
		KeyEnv:       "TOGETHER_API_KEY",
		DefaultModel: "meta-llama/Llama-2-70b-chat-hf",
		MaxTokens:    4096,
		BuildHeaders: openAIHeaders,
		BuildBody:    openAIBody,
		ExtractText:  openAIText,
	},
	"groq": {
		Name:         "groq",
		BaseURL:      "https://api.groq.com/openai/v1",
		Endpoint:     "/chat/completions",
		KeyEnv:       "GROQ_API_KEY",
		DefaultModel: "mixtral-8x7b-32768",
		MaxTokens:    8192,
		BuildHeaders: openAIHeaders,
		BuildBody:    openAIBody,
		ExtractText:  openAIText,
	},
	"local": {
		Name:         "local",
		BaseURL:      "http://localhost:11434/v1",
		Endpoint:     "/chat/completions",
		KeyEnv:       "",
		DefaultModel: "llama2",
		MaxTokens:    2048,
		BuildHeaders: openAIHeaders,
		BuildBody:    openAIBody,
		ExtractText:  openAIText,
	},
}

// LookupProvider returns the provider entry for name.
func LookupProvider(name string) (Provider, bool) {
	p, ok := providers[name]
	return p, ok
}

// ProviderNames returns the sorted list of supported provider names.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
