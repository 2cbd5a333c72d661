package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jordanurbs/aicaptains-api/internal/config"
	"github.com/jordanurbs/aicaptains-api/internal/middleware"
	"github.com/jordanurbs/aicaptains-api/internal/models"
	"github.com/jordanurbs/aicaptains-api/internal/services/cache"
	"github.com/jordanurbs/aicaptains-api/pkg/textutil"
)

// Service produces a motivational response for a goal/excuse pair.
type Service interface {
	Generate(ctx context.Context, goal, excuse string, preset bool) (*models.GenerateResult, error)
}

// Client calls an OpenAI-compatible chat-completions endpoint with bounded
// retries, degrading to a canned fallback when generation cannot succeed.
type Client struct {
	cfg        *config.UpstreamConfig
	cache      cache.Service
	httpClient *http.Client
	metrics    *middleware.Metrics
	logger     *logrus.Logger
	sleep      func(time.Duration)
}

// Option customizes a Client.
type Option func(*Client)

// WithSleep replaces the backoff sleep between retries.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithHTTPClient replaces the HTTP client used for upstream calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a new generation client.
func NewClient(cfg *config.Config, cacheService cache.Service, metrics *middleware.Metrics, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		cfg:        &cfg.Upstream,
		cache:      cacheService,
		httpClient: &http.Client{},
		metrics:    metrics,
		logger:     logger,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns a {response, cta} pair for the input triple. Transient
// upstream failures are absorbed by the fallback selector; only the missing
// credential and the empty-completion conditions propagate as errors.
func (c *Client) Generate(ctx context.Context, goal, excuse string, preset bool) (*models.GenerateResult, error) {
	// Checked at call time so the key can be provisioned without a restart.
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	if result, found := c.cache.Get(ctx, goal, excuse, preset); found {
		c.metrics.RecordCacheHit()
		return result, nil
	}
	c.metrics.RecordCacheMiss()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		result, err := c.attempt(ctx, goal, excuse, preset, attempt)
		if err == nil {
			if cacheErr := c.cache.Set(ctx, goal, excuse, preset, result); cacheErr != nil {
				c.logger.WithError(cacheErr).Warn("Failed to cache generated response")
			}
			return result, nil
		}

		if errors.Is(err, ErrEmptyCompletion) {
			return nil, err
		}

		lastErr = err

		var attemptErr *AttemptError
		if !errors.As(err, &attemptErr) || !attemptErr.Retryable() {
			// A bad status or unparseable content won't get better on a
			// retry; break straight to the fallback.
			break
		}

		if attempt < c.cfg.MaxAttempts {
			wait := time.Duration(attempt) * time.Second
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"wait":    wait.String(),
				"error":   err.Error(),
			}).Warn("Upstream request failed, retrying")
			c.sleep(wait)
		}
	}

	c.logger.WithError(lastErr).Warn("Generation failed, serving fallback response")
	c.metrics.RecordFallbackServed()
	return SelectFallback(goal, excuse), nil
}

// attempt performs a single upstream call.
func (c *Client) attempt(ctx context.Context, goal, excuse string, preset bool, attempt int) (*models.GenerateResult, error) {
	reqBody := map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []models.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(goal, excuse, preset)},
		},
		"temperature": c.cfg.Temperature,
		"top_p":       c.cfg.TopP,
		"max_tokens":  c.cfg.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/chat/completions", strings.TrimSuffix(c.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.WithFields(logrus.Fields{
		"model":   c.cfg.Model,
		"attempt": attempt,
	}).Debug("Sending generation request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest("network_error", time.Since(start))
		return nil, &AttemptError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamRequest("network_error", time.Since(start))
		return nil, &AttemptError{Kind: KindNetwork, Err: err}
	}
	c.metrics.RecordUpstreamRequest(strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"attempt": attempt,
		}).Error("Upstream request failed")
		return nil, &AttemptError{
			Kind:   KindStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("upstream returned status %d", resp.StatusCode),
		}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, &AttemptError{Kind: KindParse, Err: fmt.Errorf("failed to decode upstream response: %w", err)}
	}

	if completion.Error.Message != "" {
		return nil, &AttemptError{Kind: KindStatus, Err: fmt.Errorf("upstream error: %s", completion.Error.Message)}
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}

	result, ok := parseCompletion(completion.Choices[0].Message.Content)
	if !ok {
		return nil, &AttemptError{Kind: KindParse, Err: fmt.Errorf("upstream content missing response/cta fields")}
	}

	result.Response = strings.TrimSpace(textutil.Flatten(result.Response))
	result.CTA = strings.TrimSpace(textutil.Flatten(result.CTA))

	return result, nil
}
