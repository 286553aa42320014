// Package gateway adapts the Anthropic client to the pipeline's model
// boundary: one bounded, rate-limited inference call with categorized
// failures and latency accounting.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/submission-intake/internal/config"
	"github.com/sells-group/submission-intake/internal/model"
	"github.com/sells-group/submission-intake/internal/prompt"
	"github.com/sells-group/submission-intake/pkg/anthropic"
)

// Error categories surfaced to the pipeline. The pipeline does not retry;
// it maps these to an Error-status result.
var (
	ErrTimeout  = eris.New("gateway: model call exceeded deadline")
	ErrProvider = eris.New("gateway: provider request failed")
	ErrEmpty    = eris.New("gateway: provider returned empty response")
)

// Categorize maps a gateway error to its message tag.
func Categorize(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrEmpty):
		return "empty_response"
	default:
		return "provider_error"
	}
}

// Response is the raw outcome of one inference call.
type Response struct {
	RawText   string
	Usage     model.Usage
	LatencyMS float64
}

// Inferrer is the model boundary consumed by the pipeline.
type Inferrer interface {
	Infer(ctx context.Context, p prompt.Payload) (*Response, error)
}

// Gateway implements Inferrer over an anthropic.Client.
type Gateway struct {
	client    anthropic.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	maxTokens int64
}

// New creates a Gateway from config.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Gateway {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2.0
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Gateway{
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		timeout:   timeout,
		maxTokens: maxTokens,
	}
}

// Infer sends the payload and returns raw model text plus usage and latency.
// Once the provider call is in flight it runs to its own completion or
// deadline; a cancelled caller discards the result.
func (g *Gateway) Infer(ctx context.Context, p prompt.Payload) (*Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "gateway: rate limit wait")
	}

	user, err := p.UserMessage()
	if err != nil {
		return nil, err
	}

	req := anthropic.MessageRequest{
		Model:     p.Model,
		MaxTokens: g.maxTokens,
		System:    []anthropic.SystemBlock{{Text: p.SystemInstructions}},
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	}
	// Some models reject sampling parameters outright; for the rest, pin
	// temperature to zero for reproducible extractions.
	if anthropic.SupportsTemperature(p.Model) {
		zero := 0.0
		req.Temperature = &zero
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateMessage(callCtx, req)
	latency := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return nil, eris.Wrap(ErrTimeout, err.Error())
		}
		return nil, eris.Wrap(ErrProvider, err.Error())
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmpty
	}

	resp.Usage.LogCost(p.Model, "extract")

	return &Response{
		RawText: text,
		Usage: model.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		LatencyMS: latency,
	}, nil
}
