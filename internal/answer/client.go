// Package answer talks to the external service that answers questions.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rg/neetbot/internal/metrics"
)

const (
	ModeShort    = "short"
	ModeDetailed = "detailed"

	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
)

type Result struct {
	Success     bool   `json:"success"`
	ShortAnswer string `json:"short_answer"`
	DetailedURL string `json:"detailed_url"`
	SolutionID  string `json:"solution_id"`
}

type request struct {
	Question string `json:"q"`
	ImageURL string `json:"image_url,omitempty"`
	UserID   int64  `json:"uid"`
	Mode     string `json:"mode"`
}

type Config struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client posts questions to the answer service, retrying with linear backoff
// and falling back to canned answers when the service stays unavailable. With
// no URL configured every answer comes from the mock.
type Client struct {
	cfg   Config
	http  *http.Client
	mock  *Mock
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		mock:  NewMock(),
		sleep: sleepContext,
	}
}

func (c *Client) UsesMock() bool {
	return c.cfg.URL == ""
}

// Answer returns the answer to question.
func (c *Client) Answer(ctx context.Context, question string, uid int64, mode string) (*Result, error) {
	return c.ask(ctx, request{Question: question, UserID: uid, Mode: mode})
}

// ImageAnswer answers a question sent as a photo reachable at fileURL.
func (c *Client) ImageAnswer(ctx context.Context, fileURL string, uid int64) (*Result, error) {
	return c.ask(ctx, request{ImageURL: fileURL, UserID: uid, Mode: ModeShort})
}

// Reset drops pooled connections so the next request dials afresh.
func (c *Client) Reset() {
	c.http.CloseIdleConnections()
	slog.Info("Answer client connections reset")
}

func (c *Client) ask(ctx context.Context, req request) (*Result, error) {
	if c.UsesMock() {
		metrics.AnswerRequests.WithLabelValues("mock", "success").Inc()
		if req.ImageURL != "" {
			return c.mock.ImageAnswer(), nil
		}
		return c.mock.Answer(), nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * 2 * time.Second
			slog.Info("Retrying answer request", "attempt", attempt+1, "wait", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		result, err := c.post(ctx, req)
		if err == nil {
			metrics.AnswerRequests.WithLabelValues("api", "success").Inc()
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		metrics.AnswerRequests.WithLabelValues("api", "error").Inc()
		slog.Warn("Answer request failed", "attempt", attempt+1, "user_id", req.UserID, "error", err)
	}

	slog.Warn("Answer service unavailable, falling back to mock", "error", lastErr)
	metrics.AnswerRequests.WithLabelValues("mock", "fallback").Inc()
	if req.ImageURL != "" {
		return c.mock.ImageAnswer(), nil
	}
	return c.mock.Answer(), nil
}

func (c *Client) post(ctx context.Context, req request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call answer service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("answer service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode answer: %w", err)
	}
	return &result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
