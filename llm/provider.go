package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripmesh/tripmesh/config"
)

// Message is one turn of the chat exchange sent to the generation model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FallbackAnswer is returned when generation cannot proceed, typically on
// exhausted rate limits or with both retrieval backends down.
const FallbackAnswer = "I'm sorry, I'm having trouble reaching my knowledge sources right now. Please try again in a moment."

// Provider generates an answer from the assembled chat messages.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	ModelVersion() string
}

func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
