package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/gap-assessment/internal/resilience"
)

// maxBatchSize caps texts per embeddings request.
const maxBatchSize = 100

// Option configures the Jina client.
type Option func(*JinaClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *JinaClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *JinaClient) {
		c.http = hc
	}
}

// WithRateLimit throttles requests to n per second.
func WithRateLimit(n float64) Option {
	return func(c *JinaClient) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(n), 1)
		}
	}
}

// JinaClient implements Provider against the Jina embeddings API.
type JinaClient struct {
	apiKey    string
	baseURL   string
	model     string
	dimension int
	http      *http.Client
	limiter   *rate.Limiter
	retryCfg  resilience.RetryConfig
}

// NewJina creates an embeddings client.
func NewJina(apiKey, model string, dimension int, opts ...Option) *JinaClient {
	c := &JinaClient{
		apiKey:    apiKey,
		baseURL:   "https://api.jina.ai/v1",
		model:     model,
		dimension: dimension,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retryCfg: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
			OnRetry:        resilience.RetryLogger("jina", "embeddings"),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *JinaClient) Dimension() int {
	return c.dimension
}

func (c *JinaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *JinaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(texts))
		batch, err := c.embedRequest(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *JinaClient) embedRequest(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embeddingsRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, eris.Wrap(err, "embed: marshal request")
	}

	return resilience.DoVal(ctx, c.retryCfg, func(ctx context.Context) ([][]float32, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "embed: rate limiter")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/embeddings", bytes.NewReader(payload))
		if err != nil {
			return nil, eris.Wrap(err, "embed: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, eris.Wrap(readErr, "embed: read response body")
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, resilience.NewQuotaError(
				eris.Errorf("embed: status 429: %s", string(body)),
				resp.StatusCode,
				parseRetryAfter(resp.Header.Get("Retry-After")),
			)
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("embed: status %d: %s", resp.StatusCode, string(body)),
				resp.StatusCode,
			)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("embed: unexpected status %d: %s", resp.StatusCode, string(body))
		}

		var parsed embeddingsResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, eris.Wrap(err, "embed: unmarshal response")
		}
		if len(parsed.Data) != len(texts) {
			return nil, eris.Errorf("embed: got %d embeddings for %d inputs",
				len(parsed.Data), len(texts))
		}

		vectors := make([][]float32, len(texts))
		for _, d := range parsed.Data {
			if d.Index < 0 || d.Index >= len(vectors) {
				return nil, eris.Errorf("embed: embedding index %d out of range", d.Index)
			}
			vectors[d.Index] = d.Embedding
		}
		for i, v := range vectors {
			if len(v) != c.dimension {
				return nil, eris.Errorf("embed: embedding %d has dimension %d, expected %d",
					i, len(v), c.dimension)
			}
		}
		return vectors, nil
	})
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
