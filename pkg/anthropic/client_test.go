package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponse_Text(t *testing.T) {
	r := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "hello "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "hello world", r.Text())

	empty := &MessageResponse{}
	assert.Empty(t, empty.Text())
}

func TestSupportsTemperature(t *testing.T) {
	assert.True(t, SupportsTemperature("claude-haiku-4-5-20251001"))
	assert.True(t, SupportsTemperature("unknown-model"))
	assert.False(t, SupportsTemperature("claude-opus-4-6-thinking"))
}

func TestTokenUsage_EstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)

	assert.Zero(t, TokenUsage{InputTokens: 500}.EstimateCost("unknown-model"))
	assert.Zero(t, TokenUsage{}.EstimateCost("claude-haiku-4-5-20251001"))
}
