package title

import (
	"context"
	"fmt"
	"strings"

	"t3chat-be/pkg/llm"
)

const systemPrompt = "You generate short chat titles. Reply with a title of " +
	"2 to 4 words summarizing the user's message. No quotes, no punctuation, " +
	"no explanation."

// Generator derives a short label for a chat from its first user message.
// Derivation is best effort; callers treat a failure as "leave the title
// null" rather than an error worth surfacing.
type Generator struct {
	provider llm.LLMProvider
	model    string
}

func NewGenerator(provider llm.LLMProvider, model string) *Generator {
	return &Generator{provider: provider, model: model}
}

func (g *Generator) Derive(ctx context.Context, firstUserMessage string) (string, error) {
	firstUserMessage = strings.TrimSpace(firstUserMessage)
	if firstUserMessage == "" {
		return "", fmt.Errorf("cannot derive a title from an empty message")
	}

	out, err := g.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: firstUserMessage},
	}, llm.WithModel(g.model), llm.WithTemperature(0.3), llm.WithMaxTokens(16))
	if err != nil {
		return "", fmt.Errorf("title derivation failed: %w", err)
	}

	title := strings.Trim(strings.TrimSpace(out), `"'`)
	if title == "" {
		return "", fmt.Errorf("model returned an empty title")
	}
	return title, nil
}
