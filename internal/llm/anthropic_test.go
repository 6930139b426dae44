package llm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gap-assessment/internal/resilience"
)

type stubMessages struct {
	calls     int
	responses []func() (*sdk.Message, error)
}

func (s *stubMessages) New(_ context.Context, _ sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	fn := s.responses[min(s.calls, len(s.responses)-1)]
	s.calls++
	return fn()
}

// apiErr builds an SDK error with both request and response attached; the
// SDK's Error() method dereferences them when rendering the message.
func apiErr(status int) *sdk.Error {
	return &sdk.Error{
		StatusCode: status,
		Request: &http.Request{
			Method: http.MethodPost,
			URL:    &url.URL{Scheme: "https", Host: "api.anthropic.com", Path: "/v1/messages"},
		},
		Response: &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
		},
	}
}

func TestAPIErrorMessageRenders(t *testing.T) {
	for _, status := range []int{400, 429, 503, 529} {
		msg := classifyAPIError(apiErr(status)).Error()
		assert.NotEmpty(t, msg, "status %d", status)
	}
}

func textMessage(text string) *sdk.Message {
	return &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: text}},
	}
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func newStubClient(stub *stubMessages) *AnthropicClient {
	return NewAnthropic("key", "claude-haiku-4-5-20251001", 8192, 0.7,
		WithMessages(stub), WithRetryConfig(fastRetry()))
}

func TestGenerate_Success(t *testing.T) {
	stub := &stubMessages{responses: []func() (*sdk.Message, error){
		func() (*sdk.Message, error) { return textMessage("the answer"), nil },
	}}
	c := newStubClient(stub)

	out, err := c.Generate(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)
	assert.Equal(t, 1, stub.calls)
}

func TestGenerate_ConcatenatesTextBlocks(t *testing.T) {
	stub := &stubMessages{responses: []func() (*sdk.Message, error){
		func() (*sdk.Message, error) {
			return &sdk.Message{Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "part one "},
				{Type: "thinking", Thinking: "ignored"},
				{Type: "text", Text: "part two"},
			}}, nil
		},
	}}
	c := newStubClient(stub)

	out, err := c.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", out)
}

func TestGenerate_RetriesRateLimitThenSucceeds(t *testing.T) {
	stub := &stubMessages{responses: []func() (*sdk.Message, error){
		func() (*sdk.Message, error) { return nil, apiErr(429) },
		func() (*sdk.Message, error) { return textMessage("recovered"), nil },
	}}
	c := newStubClient(stub)

	out, err := c.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 2, stub.calls)
}

func TestGenerate_QuotaExhaustion(t *testing.T) {
	stub := &stubMessages{responses: []func() (*sdk.Message, error){
		func() (*sdk.Message, error) { return nil, apiErr(429) },
	}}
	c := newStubClient(stub)

	_, err := c.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, resilience.IsQuota(err))
	assert.Equal(t, 3, stub.calls)
}

func TestGenerate_OverloadedIsQuota(t *testing.T) {
	stub := &stubMessages{responses: []func() (*sdk.Message, error){
		func() (*sdk.Message, error) { return nil, apiErr(529) },
	}}
	c := newStubClient(stub)

	_, err := c.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, resilience.IsQuota(err))
}

func TestGenerate_PermanentErrorNotRetried(t *testing.T) {
	stub := &stubMessages{responses: []func() (*sdk.Message, error){
		func() (*sdk.Message, error) { return nil, apiErr(400) },
	}}
	c := newStubClient(stub)

	_, err := c.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.False(t, resilience.IsQuota(err))
}

func TestClassifyAPIError_PassThrough(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")
	if got := classifyAPIError(plain); got != plain {
		t.Errorf("expected pass-through, got %v", got)
	}
}

func TestClassifyAPIError_ServerErrorTransient(t *testing.T) {
	err := classifyAPIError(apiErr(503))
	if !resilience.IsTransient(err) {
		t.Error("expected 503 to be transient")
	}
	if resilience.IsQuota(err) {
		t.Error("503 should not be a quota condition")
	}
}
