package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/submission-intake/internal/config"
	"github.com/sells-group/submission-intake/internal/prompt"
	"github.com/sells-group/submission-intake/pkg/anthropic"
)

// fakeClient records the last request and returns a canned response.
type fakeClient struct {
	lastReq anthropic.MessageRequest
	resp    *anthropic.MessageResponse
	err     error
	delay   time.Duration
}

func (f *fakeClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func testConfig() config.AnthropicConfig {
	return config.AnthropicConfig{
		Model:          "claude-haiku-4-5-20251001",
		MaxTokens:      1024,
		TimeoutSecs:    5,
		RequestsPerSec: 100,
	}
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 40},
	}
}

func payload() prompt.Payload {
	return prompt.Payload{
		SystemInstructions: prompt.SystemInstructions,
		SchemaDescription:  prompt.SchemaDescription,
		EmailText:          "body",
		Model:              "claude-haiku-4-5-20251001",
	}
}

func TestGateway_Infer_Success(t *testing.T) {
	client := &fakeClient{resp: textResponse(`{"broker_name":"Jane"}`)}
	g := New(client, testConfig())

	resp, err := g.Infer(context.Background(), payload())
	require.NoError(t, err)
	assert.Equal(t, `{"broker_name":"Jane"}`, resp.RawText)
	assert.Equal(t, 100, resp.Usage.PromptTokens)
	assert.Equal(t, 40, resp.Usage.CompletionTokens)
	assert.Equal(t, 140, resp.Usage.TotalTokens)
	assert.GreaterOrEqual(t, resp.LatencyMS, 0.0)

	// The request carries system instructions and a pinned zero temperature.
	require.Len(t, client.lastReq.System, 1)
	assert.Equal(t, prompt.SystemInstructions, client.lastReq.System[0].Text)
	require.NotNil(t, client.lastReq.Temperature)
	assert.Zero(t, *client.lastReq.Temperature)
	assert.Equal(t, int64(1024), client.lastReq.MaxTokens)
}

func TestGateway_Infer_Timeout(t *testing.T) {
	client := &fakeClient{resp: textResponse("x"), delay: 200 * time.Millisecond}
	g := New(client, testConfig())
	g.timeout = 10 * time.Millisecond

	_, err := g.Infer(context.Background(), payload())
	require.Error(t, err)
	assert.Equal(t, "timeout", Categorize(err))
}

func TestGateway_Infer_ProviderError(t *testing.T) {
	client := &fakeClient{err: eris.New("boom")}
	g := New(client, testConfig())

	_, err := g.Infer(context.Background(), payload())
	require.Error(t, err)
	assert.Equal(t, "provider_error", Categorize(err))
}

func TestGateway_Infer_EmptyResponse(t *testing.T) {
	client := &fakeClient{resp: &anthropic.MessageResponse{}}
	g := New(client, testConfig())

	_, err := g.Infer(context.Background(), payload())
	require.Error(t, err)
	assert.Equal(t, "empty_response", Categorize(err))
}

func TestGateway_TemperatureOmittedForRestrictedModels(t *testing.T) {
	client := &fakeClient{resp: textResponse("{}")}
	g := New(client, testConfig())

	p := payload()
	p.Model = "claude-opus-4-6-thinking"
	_, err := g.Infer(context.Background(), p)
	require.NoError(t, err)
	assert.Nil(t, client.lastReq.Temperature)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, "timeout", Categorize(ErrTimeout))
	assert.Equal(t, "empty_response", Categorize(ErrEmpty))
	assert.Equal(t, "provider_error", Categorize(ErrProvider))
	assert.Equal(t, "provider_error", Categorize(eris.New("anything else")))
}
