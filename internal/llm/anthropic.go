package llm

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gap-assessment/internal/resilience"
)

// messages is the subset of the SDK messages service the client uses,
// extracted so tests can stub the API.
type messages interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements Provider on the official SDK with bounded
// blocking retry. Rate limit and overload responses surface as QuotaError
// once retries are exhausted.
type AnthropicClient struct {
	messages    messages
	model       string
	maxTokens   int64
	temperature float64
	retryCfg    resilience.RetryConfig
}

// AnthropicOption configures the client.
type AnthropicOption func(*AnthropicClient)

// WithMessages replaces the SDK messages service (for testing).
func WithMessages(m messages) AnthropicOption {
	return func(c *AnthropicClient) {
		c.messages = m
	}
}

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) AnthropicOption {
	return func(c *AnthropicClient) {
		c.retryCfg = cfg
	}
}

// NewAnthropic creates a generation client.
func NewAnthropic(apiKey, model string, maxTokens int64, temperature float64, opts ...AnthropicOption) *AnthropicClient {
	client := sdk.NewClient(
		option.WithAPIKey(apiKey),
		// Retries are handled here, with quota classification.
		option.WithMaxRetries(0),
	)
	c := &AnthropicClient{
		messages:    &client.Messages,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		retryCfg:    resilience.DefaultRetryConfig(),
	}
	c.retryCfg.OnRetry = resilience.RetryLogger("anthropic", "generate")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	msg, err := resilience.DoVal(ctx, c.retryCfg, func(ctx context.Context) (*sdk.Message, error) {
		msg, err := c.messages.New(ctx, sdk.MessageNewParams{
			Model:       sdk.Model(c.model),
			MaxTokens:   c.maxTokens,
			Temperature: sdk.Float(c.temperature),
			Messages: []sdk.MessageParam{
				sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return nil, classifyAPIError(err)
		}
		return msg, nil
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: generate")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	zap.L().Debug("generation complete",
		zap.String("model", c.model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b.String(), nil
}

// classifyAPIError maps SDK errors onto the resilience taxonomy so retry and
// quota handling see through them.
func classifyAPIError(err error) error {
	var apierr *sdk.Error
	if !errors.As(err, &apierr) {
		return err
	}

	switch apierr.StatusCode {
	case 429, 529:
		var retryAfter time.Duration
		if apierr.Response != nil {
			if secs, convErr := strconv.Atoi(apierr.Response.Header.Get("Retry-After")); convErr == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return resilience.NewQuotaError(err, apierr.StatusCode, retryAfter)
	default:
		if resilience.IsTransientHTTPStatus(apierr.StatusCode) {
			return resilience.NewTransientError(err, apierr.StatusCode)
		}
		return err
	}
}
