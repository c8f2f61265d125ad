package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/resilience"
)

// DefaultHFURL is the hosted inference endpoint for the corpus model.
const DefaultHFURL = "https://router.huggingface.co/hf-inference/models/sentence-transformers/all-MiniLM-L6-v2/pipeline/feature-extraction"

// HFOpts configures the remote client's retry and timeout policy.
type HFOpts struct {
	// MaxAttempts is the total retry budget per embed call.
	MaxAttempts int
	// RetryWait is the base pause between failed attempts; doubled each
	// retry with jitter, capped at MaxWait.
	RetryWait time.Duration
	MaxWait   time.Duration
	// WarmupWait is the fallback pause when the service reports it is
	// loading without an estimate. Warm-up pauses do not grow the backoff.
	WarmupWait time.Duration
	// CallTimeout bounds each HTTP attempt.
	CallTimeout time.Duration
}

// DefaultHFOpts mirrors the serving deployment's settings.
var DefaultHFOpts = HFOpts{
	MaxAttempts: 5,
	RetryWait:   2 * time.Second,
	MaxWait:     30 * time.Second,
	WarmupWait:  10 * time.Second,
	CallTimeout: 30 * time.Second,
}

// HFClient is a Provider backed by the Hugging Face inference API.
type HFClient struct {
	url     string
	token   string
	dims    int
	opts    HFOpts
	client  *http.Client
	limiter *resilience.Limiter
	breaker *resilience.Breaker
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error // for testing
}

// NewHFClient creates a Hugging Face embedding client. An empty url selects
// the default endpoint; zero-valued opts fields take their defaults.
func NewHFClient(url, token string, opts HFOpts, logger *slog.Logger) *HFClient {
	if url == "" {
		url = DefaultHFURL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultHFOpts.MaxAttempts
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = DefaultHFOpts.RetryWait
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultHFOpts.MaxWait
	}
	if opts.WarmupWait <= 0 {
		opts.WarmupWait = DefaultHFOpts.WarmupWait
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultHFOpts.CallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HFClient{
		url:     url,
		token:   token,
		dims:    domain.EmbeddingDim,
		opts:    opts,
		client:  &http.Client{},
		limiter: resilience.NewLimiter(resilience.LimiterOpts{Rate: 5, Burst: 5}),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Dimensions returns the model's output dimension.
func (c *HFClient) Dimensions() int { return c.dims }

// Model identifies the remote model version.
func (c *HFClient) Model() string { return "hf:sentence-transformers/all-MiniLM-L6-v2" }

type hfRequest struct {
	Inputs string `json:"inputs"`
}

// hfStatus is the shape of error and warm-up objects. A warm-up response
// carries an estimated wait; a plain error carries only the message.
type hfStatus struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// Embed requests a vector with bounded retry. Warm-up responses pause for
// the service-suggested duration without growing the backoff; transport and
// API errors back off exponentially. After the budget is spent it fails
// with domain.ErrServiceUnavailable.
func (c *HFClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}

	wait := c.opts.RetryWait
	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		vec, warmup, err := c.attempt(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if attempt == c.opts.MaxAttempts {
			break
		}

		if warmup > 0 {
			// Model still loading: wait it out without consuming a
			// backoff escalation.
			c.logger.Info("embed service warming up", "wait", warmup, "attempt", attempt)
			if serr := c.sleep(ctx, warmup); serr != nil {
				return nil, serr
			}
			continue
		}

		c.logger.Warn("embed attempt failed", "attempt", attempt, "err", err)
		sleepDur := time.Duration(float64(wait) * (0.5 + rand.Float64()))
		if sleepDur > c.opts.MaxWait {
			sleepDur = c.opts.MaxWait
		}
		if serr := c.sleep(ctx, sleepDur); serr != nil {
			return nil, serr
		}
		wait *= 2
		if wait > c.opts.MaxWait {
			wait = c.opts.MaxWait
		}
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, lastErr)
}

// attempt performs one rate-limited, breaker-guarded HTTP call. A non-zero
// warmup return means the service asked us to wait that long and retry.
func (c *HFClient) attempt(ctx context.Context, text string) (vec []float32, warmup time.Duration, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	err = c.breaker.Call(ctx, func(ctx context.Context) error {
		var innerWarmup time.Duration
		vec, innerWarmup, err = c.post(ctx, text)
		warmup = innerWarmup
		if warmup > 0 {
			// A warming model is not a service failure; don't trip the breaker.
			return nil
		}
		return err
	})
	if warmup > 0 {
		return nil, warmup, fmt.Errorf("model loading")
	}
	return vec, 0, err
}

func (c *HFClient) post(ctx context.Context, text string) ([]float32, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	body, _ := json.Marshal(hfRequest{Inputs: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("hf embed: %w", err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("hf embed decode: %w", err)
	}

	// Error and warm-up responses are objects; vectors are arrays.
	if len(raw) > 0 && raw[0] == '{' {
		var status hfStatus
		if err := json.Unmarshal(raw, &status); err != nil {
			return nil, 0, fmt.Errorf("hf embed status decode: %w", err)
		}
		if status.EstimatedTime > 0 {
			return nil, time.Duration(status.EstimatedTime * float64(time.Second)), nil
		}
		if status.Error != "" {
			return nil, 0, fmt.Errorf("hf embed api: %s", status.Error)
		}
		return nil, 0, fmt.Errorf("hf embed: unrecognized response")
	}

	vec, err := flattenVector(raw)
	if err != nil {
		return nil, 0, err
	}
	if len(vec) != c.dims {
		return nil, 0, fmt.Errorf("hf embed: got %d dims, want %d", len(vec), c.dims)
	}
	return vec, 0, nil
}

// flattenVector accepts both the flat [f, ...] and nested [[f, ...]] shapes
// the API returns, normalizing to a flat vector at this boundary so the
// ranking layers never see the wrapping.
func flattenVector(raw json.RawMessage) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, fmt.Errorf("hf embed: empty nested vector")
		}
		return nested[0], nil
	}
	return nil, fmt.Errorf("hf embed: unexpected vector shape")
}

// EmbedBatch embeds texts one at a time, preserving order. The inference
// endpoint meters single inputs; the limiter spaces the calls.
func (c *HFClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
