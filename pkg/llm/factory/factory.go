package factory

import (
	"fmt"

	"t3chat-be/pkg/llm"
	"t3chat-be/pkg/llm/ollama"
	"t3chat-be/pkg/llm/openrouter"
)

// NewLLMProvider selects the configured backend. OpenRouter is the default;
// Ollama exists for local development without an API key.
func NewLLMProvider(provider, openRouterURL, openRouterKey, ollamaBaseURL, ollamaModel string) (llm.LLMProvider, error) {
	switch provider {
	case "openrouter":
		if openRouterKey == "" {
			return nil, fmt.Errorf("openrouter provider requires OPENROUTER_API_KEY")
		}
		return openrouter.NewOpenRouterProvider(openRouterURL, openRouterKey, ""), nil
	case "ollama":
		return ollama.NewOllamaProvider(ollamaBaseURL, ollamaModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
