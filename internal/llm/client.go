package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"dormguide/internal/domain"
	"dormguide/internal/log"
)

// Config configures the OpenAI-compatible chat client.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	MaxTokens         int
	Temperature       float32
	RequestsPerSecond float64
}

// Client is an OpenAI-compatible chat completion client implementing domain.Generator.
type Client struct {
	api        *openai.Client
	model      string
	maxRetries int
	maxTokens  int
	temp       float32
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// NewClient creates a chat client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing API key for the language model")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		api:        openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		maxTokens:  cfg.MaxTokens,
		temp:       cfg.Temperature,
		limiter:    rate.NewLimiter(limit, 1),
		sleep:      sleepCtx,
		logger:     log.NewModuleLogger("llm", "client"),
	}, nil
}

// Generate sends prompt as a single user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temp,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			for _, ch := range resp.Choices {
				if text := strings.TrimSpace(ch.Message.Content); text != "" {
					return text, nil
				}
			}
			return "", domain.ErrEmptyCompletion
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) || attempt == c.maxRetries {
			break
		}
		d := retryDelay(attempt)
		c.logger.Warn("Chat completion failed, retrying",
			"attempt", attempt+1,
			"delay", d,
			"error", err,
		)
		if err := c.sleep(ctx, d); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("chat completion: %w", lastErr)
}

// retryable reports whether err is a rate limit, a server error or a transport failure.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second || d <= 0 {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
