package llm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/tripmesh/schema"
)

func TestBuildPromptLayout(t *testing.T) {
	b := &PromptBuilder{}
	query := schema.NewQuery("Best beaches near Da Nang?", "")
	fused := schema.FusedContext{Candidates: []schema.RetrievalCandidate{
		{ID: "attr1", Source: schema.SourceVector, Combined: 0.6, Snippet: "[attr1] My Khe Beach (beach) in Da Nang: long sandy beach"},
		{ID: "f1", Source: schema.SourceGraph, Combined: 0.4, Snippet: "[city1] --HAS_ATTRACTION--> [attr1] My Khe Beach"},
	}}
	history := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello, where are you headed?"},
	}

	messages := b.Build(query, fused, history)
	require.Len(t, messages, 4)
	assert.Equal(t, RoleSystem, messages[0].Role)
	assert.Equal(t, RoleUser, messages[1].Role)
	assert.Equal(t, RoleAssistant, messages[2].Role)

	final := messages[3]
	assert.Equal(t, RoleUser, final.Role)
	assert.Contains(t, final.Content, "My Khe Beach (beach) in Da Nang")
	assert.Contains(t, final.Content, "[relevance: 0.600]")
	assert.Contains(t, final.Content, "--HAS_ATTRACTION-->")
	assert.Contains(t, final.Content, "Question: Best beaches near Da Nang?")
}

func TestBuildPromptEmptyContext(t *testing.T) {
	b := &PromptBuilder{}
	messages := b.Build(schema.NewQuery("q", ""), schema.FusedContext{}, nil)
	require.Len(t, messages, 2)
	assert.NotContains(t, messages[1].Content, "Context from the travel knowledge base")
	assert.Contains(t, messages[1].Content, "Question: q")
}

func TestBuildPromptCapsPerSource(t *testing.T) {
	b := &PromptBuilder{}
	var candidates []schema.RetrievalCandidate
	for i := 0; i < 15; i++ {
		candidates = append(candidates, schema.RetrievalCandidate{
			ID: fmt.Sprintf("v%d", i), Source: schema.SourceVector,
			Snippet: fmt.Sprintf("[v%d] place", i),
		})
	}
	for i := 0; i < 25; i++ {
		candidates = append(candidates, schema.RetrievalCandidate{
			ID: fmt.Sprintf("g%d", i), Source: schema.SourceGraph,
			Snippet: fmt.Sprintf("[g%d] fact", i),
		})
	}

	messages := b.Build(schema.NewQuery("q", ""), schema.FusedContext{Candidates: candidates}, nil)
	content := messages[len(messages)-1].Content
	assert.Equal(t, maxVectorSnippets, strings.Count(content, "] place"))
	assert.Equal(t, maxGraphFacts, strings.Count(content, "] fact"))
}

func TestTrimToBudgetDropsFromBottom(t *testing.T) {
	// nil encoding falls back to the 4-chars-per-token estimate
	b := &PromptBuilder{maxContextTokens: 10}
	lines := []string{
		strings.Repeat("a", 20), // ~5 tokens
		strings.Repeat("b", 20), // ~5 tokens, pushes over with separator
		strings.Repeat("c", 20),
	}
	got := b.trimToBudget(lines)
	assert.Contains(t, got, "a")
	assert.NotContains(t, got, "c")
}

func TestTrimToBudgetUnlimitedWhenZero(t *testing.T) {
	b := &PromptBuilder{}
	lines := []string{"one", "two", "three"}
	assert.Equal(t, "one\ntwo\nthree", b.trimToBudget(lines))
}
