package llm

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/tripmesh/tripmesh/common/logger"
	"github.com/tripmesh/tripmesh/schema"
)

const systemPrompt = `You are a knowledgeable Vietnam travel assistant. Answer using the
provided context from the travel knowledge base. Mention specific places by
name when the context supports them, and say so plainly when the context does
not cover the question. Keep answers concise and practical.`

const (
	maxVectorSnippets = 10
	maxGraphFacts     = 20
)

// PromptBuilder assembles the bounded chat prompt from fused retrieval
// context. Snippets are capped per source before the token budget trims
// from the bottom of the context block.
type PromptBuilder struct {
	maxContextTokens int
	encoding         *tiktoken.Tiktoken
}

func NewPromptBuilder(model string, maxContextTokens int) *PromptBuilder {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warnf("prompt: no encoding for model %s, using cl100k_base: %v", model, err)
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	return &PromptBuilder{maxContextTokens: maxContextTokens, encoding: enc}
}

// Build returns the system and user messages for a query with its fused
// context. History carries prior conversation turns and is placed between
// the system message and the final user message.
func (b *PromptBuilder) Build(query schema.Query, fused schema.FusedContext, history []Message) []Message {
	context := b.contextBlock(fused)

	var user strings.Builder
	if context != "" {
		user.WriteString("Context from the travel knowledge base:\n")
		user.WriteString(context)
		user.WriteString("\n\n")
	}
	user.WriteString("Question: ")
	user.WriteString(query.Raw)

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: user.String()})
	return messages
}

func (b *PromptBuilder) contextBlock(fused schema.FusedContext) string {
	var snippets, facts []string
	for _, c := range fused.Candidates {
		switch c.Source {
		case schema.SourceVector:
			if len(snippets) < maxVectorSnippets {
				snippets = append(snippets, fmt.Sprintf("%s [relevance: %.3f]", c.Snippet, c.Combined))
			}
		case schema.SourceGraph:
			if len(facts) < maxGraphFacts {
				facts = append(facts, c.Snippet)
			}
		}
	}

	var lines []string
	if len(snippets) > 0 {
		lines = append(lines, "Top matching places:")
		lines = append(lines, snippets...)
	}
	if len(facts) > 0 {
		lines = append(lines, "Related knowledge graph facts:")
		lines = append(lines, facts...)
	}
	return b.trimToBudget(lines)
}

// trimToBudget drops lines from the bottom until the block fits the token
// budget. Without an encoding it falls back to a 4-chars-per-token estimate.
func (b *PromptBuilder) trimToBudget(lines []string) string {
	if b.maxContextTokens <= 0 {
		return strings.Join(lines, "\n")
	}
	for len(lines) > 0 {
		block := strings.Join(lines, "\n")
		if b.countTokens(block) <= b.maxContextTokens {
			return block
		}
		lines = lines[:len(lines)-1]
	}
	return ""
}

func (b *PromptBuilder) countTokens(s string) int {
	if b.encoding == nil {
		return len(s) / 4
	}
	return len(b.encoding.Encode(s, nil, nil))
}
