package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format. Parts
// beyond plain text (inlined attachments) ride along as typed payloads.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
	Files   []File
}

// File is an inline attachment payload resolved before dispatch.
type File struct {
	MimeType string
	Data     []byte
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// ChunkFunc receives streamed completion chunks in arrival order. Returning
// an error aborts the stream.
type ChunkFunc func(chunk string) error

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the full response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatStream sends a chat history and delivers the response
	// incrementally through onChunk. Returns after the stream ends; a
	// cancelled ctx stops the stream without error so partial output can be
	// kept.
	ChatStream(ctx context.Context, history []Message, onChunk ChunkFunc, options ...Option) (string, error)
}
