// Package contentgen implements the client for the external content
// generation collaborator. The collaborator turns a learner's form answers
// into personalized tips and dialogue snippets; the engine only transports
// and caches the result, never interprets it.
package contentgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/circuitbreaker"
	"github.com/makerpath/progress-hub/pkg/logger"
	"github.com/makerpath/progress-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the generation client.
type ClientConfig struct {
	// BaseURL is the collaborator's base URL
	BaseURL string

	// APIKey authenticates the engine against the collaborator
	APIKey string

	// Timeout is the HTTP request timeout. Generation is slow; keep this
	// well above typical API timeouts.
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Disabled short-circuits all calls, for dev environments without a key
	Disabled bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           60 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ErrGenerationDisabled is returned when the client is configured off.
var ErrGenerationDisabled = errors.New("contentgen: generation disabled")

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client calls the generation collaborator with rate limiting, retries and
// a circuit breaker.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	log         *logger.Logger
	rateLimiter *RateLimiter
	retrier     *retry.Retrier
	breaker     *circuitbreaker.CircuitBreaker
}

// NewClient creates a new generation client.
func NewClient(config ClientConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.String("component", "contentgen"))

	breaker := circuitbreaker.ContentGenBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		log:         log,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		retrier:     retry.ContentGenRetrier(),
		breaker:     breaker,
	}
}

// Generate produces tips and dialogue for one (account, unit) form
// submission. The blob it returns is what gets cached and attached to the
// permanent form response.
func (c *Client) Generate(ctx context.Context, accountID shared.AccountID, unitIndex int, answers map[string]string) (json.RawMessage, error) {
	if c.config.Disabled {
		return nil, ErrGenerationDisabled
	}

	request := GenerateRequestDTO{
		AccountID: accountID.String(),
		UnitIndex: unitIndex,
		Answers:   answers,
	}

	var response GenerateResponseDTO
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
			return c.doRequest(ctx, http.MethodPost, "/v1/generate", request, &response)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("generate content for %s unit %d: %w", accountID, unitIndex, err)
	}

	return response.Blob()
}

// IsHealthy checks if the collaborator is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	if c.config.Disabled {
		return false
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/health", nil, nil) == nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP plumbing
// ─────────────────────────────────────────────────────────────────────────────

// doRequest performs a single HTTP request. Errors are classified for the
// retrier: rate limits and server errors retryable, everything else
// permanent.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal body: %w", err))
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.rateLimiter.RecordRateLimitHit()
		retryAfter := 60 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return retry.Retryable(&RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		})
	}

	if resp.StatusCode >= 400 {
		var apiErr APIErrorDTO
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Message != "" {
			if apiErr.Retryable() {
				return retry.Retryable(&apiErr)
			}
			return retry.Permanent(&apiErr)
		}
		if resp.StatusCode >= 500 {
			return retry.Retryable(fmt.Errorf("api error: status %d", resp.StatusCode))
		}
		return retry.Permanent(fmt.Errorf("api error: status %d", resp.StatusCode))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHED GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// ContentCache is the cache the generator reads before calling out.
// Satisfied by the redis ContentCache.
type ContentCache interface {
	Get(ctx context.Context, accountID shared.AccountID, unitIndex int) (json.RawMessage, error)
	Set(ctx context.Context, accountID shared.AccountID, unitIndex int, blob json.RawMessage) error
}

// CachedGenerator fronts the client with the generated-content cache.
// Regeneration for the same (account, unit) only happens after the cache
// entry expires or is invalidated.
type CachedGenerator struct {
	client *Client
	cache  ContentCache
	log    *logger.Logger
}

// NewCachedGenerator creates a CachedGenerator.
func NewCachedGenerator(client *Client, cache ContentCache, log *logger.Logger) *CachedGenerator {
	if log == nil {
		log = logger.Default()
	}
	return &CachedGenerator{client: client, cache: cache, log: log}
}

// Generate returns the cached artifact when present, otherwise calls the
// collaborator and caches the result. A cache write failure is logged and
// swallowed: the artifact is already in hand.
func (g *CachedGenerator) Generate(ctx context.Context, accountID shared.AccountID, unitIndex int, answers map[string]string) (json.RawMessage, error) {
	if g.cache != nil {
		blob, err := g.cache.Get(ctx, accountID, unitIndex)
		if err != nil {
			g.log.Warn("content cache read failed", logger.Err(err))
		} else if blob != nil {
			return blob, nil
		}
	}

	blob, err := g.client.Generate(ctx, accountID, unitIndex, answers)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, accountID, unitIndex, blob); err != nil {
			g.log.Warn("content cache write failed", logger.Err(err))
		}
	}
	return blob, nil
}
