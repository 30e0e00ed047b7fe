package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ModerationResult is the verdict for one piece of content.
type ModerationResult struct {
	Flagged        bool               `json:"flagged"`
	Categories     map[string]bool    `json:"categories"`
	CategoryScores map[string]float64 `json:"category_scores"`
}

// Moderator screens content for policy violations.
type Moderator interface {
	Moderate(ctx context.Context, text string) (*ModerationResult, error)
}

// ModeratorFunc adapts a plain function to the Moderator interface.
type ModeratorFunc func(ctx context.Context, text string) (*ModerationResult, error)

// Moderate implements Moderator.
func (f ModeratorFunc) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	return f(ctx, text)
}

// Moderation calls an OpenAI-compatible /moderations endpoint, throttled
// by a sliding-window rate limiter so bulk review filtering stays inside
// provider quotas.
type Moderation struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rateLimiter
}

// ModerationOption configures the moderation client.
type ModerationOption func(*Moderation)

// NewModeration creates a moderation client. The default limit of 60
// calls per minute matches the provider's free-tier quota.
func NewModeration(apiKey string, opts ...ModerationOption) *Moderation {
	m := &Moderation{
		baseURL:    "https://api.openai.com/v1",
		apiKey:     apiKey,
		model:      "omni-moderation-latest",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    newRateLimiter(60, time.Minute),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithModerationBaseURL points the client at a compatible endpoint.
func WithModerationBaseURL(url string) ModerationOption {
	return func(m *Moderation) { m.baseURL = url }
}

// WithModerationModel sets the moderation model.
func WithModerationModel(model string) ModerationOption {
	return func(m *Moderation) { m.model = model }
}

// WithModerationLimit overrides the rate limit.
func WithModerationLimit(calls int, window time.Duration) ModerationOption {
	return func(m *Moderation) { m.limiter = newRateLimiter(calls, window) }
}

// WithModerationHTTPClient replaces the underlying HTTP client.
func WithModerationHTTPClient(hc *http.Client) ModerationOption {
	return func(m *Moderation) { m.httpClient = hc }
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		Categories     map[string]bool    `json:"categories"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Moderate implements Moderator. Blocks until the rate limiter admits the
// call or the context is done.
func (m *Moderation) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	if err := m.limiter.wait(ctx); err != nil {
		return nil, NewError("moderate", err, false)
	}

	payload, err := json.Marshal(map[string]string{"model": m.model, "input": text})
	if err != nil {
		return nil, NewError("moderate", fmt.Errorf("encode request: %w", err), false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/moderations", bytes.NewReader(payload))
	if err != nil {
		return nil, NewError("moderate", err, false)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError("moderate", ctx.Err(), false)
		}
		return nil, NewError("moderate", err, retryable(0, err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError("moderate", fmt.Errorf("read response: %w", err), false)
	}

	var parsed moderationResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, NewError("moderate", fmt.Errorf("decode response: %w", err), false)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, NewError("moderate",
			fmt.Errorf("status %d: %s", resp.StatusCode, msg),
			retryable(resp.StatusCode, msg))
	}
	if len(parsed.Results) == 0 {
		return nil, NewError("moderate", fmt.Errorf("response has no results"), false)
	}

	r := parsed.Results[0]
	return &ModerationResult{
		Flagged:        r.Flagged,
		Categories:     r.Categories,
		CategoryScores: r.CategoryScores,
	}, nil
}

// rateLimiter admits at most maxCalls within a sliding window.
type rateLimiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time
}

func newRateLimiter(maxCalls int, window time.Duration) *rateLimiter {
	return &rateLimiter{maxCalls: maxCalls, window: window}
}

// wait blocks until a call is admitted or ctx is done.
func (l *rateLimiter) wait(ctx context.Context) error {
	for {
		delay, ok := l.tryAcquire()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// tryAcquire records a call if under the limit, otherwise returns the
// time to wait for the oldest call to leave the window.
func (l *rateLimiter) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	live := l.calls[:0]
	for _, t := range l.calls {
		if now.Sub(t) < l.window {
			live = append(live, t)
		}
	}
	l.calls = live

	if len(l.calls) < l.maxCalls {
		l.calls = append(l.calls, now)
		return 0, true
	}
	return l.window - now.Sub(l.calls[0]), false
}
