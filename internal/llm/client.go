// Package llm is the chat completion boundary used for feedback analysis.
// Retries are handled here, not by the SDK.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/naka-gawa/github-feedback/internal/apperr"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

const (
	defaultModel       = "default-model"
	defaultTemperature = 0.3
)

// Options configures a Client.
type Options struct {
	// Endpoint is the API root, e.g. http://localhost:8000/v1. A full
	// .../chat/completions URL is accepted as well.
	Endpoint string
	Model    string
	APIKey   string
	// Timeout bounds a single attempt.
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	Temperature float64
	Metrics     *Metrics
}

// Client sends chat completions with a bounded number of retries.
type Client struct {
	api    openai.Client
	opts   Options
	logger *log.Logger
}

// NewClient creates a new Client instance.
func NewClient(opts Options, logger *log.Logger) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("llm endpoint is not configured")
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	reqOpts := []option.RequestOption{
		option.WithBaseURL(baseURL(opts.Endpoint)),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(opts.Timeout),
	}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	return &Client{
		api:    openai.NewClient(reqOpts...),
		opts:   opts,
		logger: logger,
	}, nil
}

// baseURL turns an endpoint into the root the SDK appends paths to.
func baseURL(endpoint string) string {
	u := strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	return u + "/"
}

// Message is one chat message.
type Message struct {
	Role    string
	Content string
}

// System returns a system message.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: "user", Content: content} }

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			out = append(out, openai.SystemMessage(m.Content))
			continue
		}
		out = append(out, openai.UserMessage(m.Content))
	}
	return out
}

// Complete sends messages and returns the trimmed content of the first
// choice. Transient failures are retried up to MaxRetries times with an
// exponential backoff of RetryDelay * 2^attempt. Permission errors and other
// 4xx responses are returned immediately, as is the end of ctx.
func (c *Client) Complete(ctx context.Context, operation string, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.opts.Model),
		Messages:    toParams(messages),
		Temperature: param.NewOpt(c.opts.Temperature),
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		content, err := c.completeOnce(ctx, params)
		if err == nil {
			if attempt > 0 {
				c.logger.Printf("LLM %s succeeded on attempt %d", operation, attempt+1)
			}
			c.opts.Metrics.recordAttempt(ctx, operation, outcomeOK)
			return content, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			c.opts.Metrics.recordAttempt(ctx, operation, outcomeFailed)
			return "", apperr.New(apperr.KindOf(ctx.Err()), operation, ctx.Err())
		}
		if !Retryable(err) {
			c.logger.Printf("LLM %s failed with a non-retryable error: %v", operation, err)
			c.opts.Metrics.recordAttempt(ctx, operation, outcomeFailed)
			return "", err
		}
		if attempt == c.opts.MaxRetries {
			c.opts.Metrics.recordAttempt(ctx, operation, outcomeFailed)
			break
		}

		c.opts.Metrics.recordAttempt(ctx, operation, outcomeRetry)
		delay := c.opts.RetryDelay * time.Duration(1<<attempt)
		c.logger.Printf("LLM %s failed (attempt %d/%d): %v. Retrying in %s...", operation, attempt+1, c.opts.MaxRetries+1, err, delay)
		if err := sleep(ctx, delay); err != nil {
			return "", apperr.New(apperr.KindOf(err), operation, err)
		}
	}
	return "", fmt.Errorf("LLM %s failed after %d attempts: %w", operation, c.opts.MaxRetries+1, lastErr)
}

func (c *Client) completeOnce(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	const op = "POST chat/completions"
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(op, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindValidation, op, errors.New("response did not contain choices"))
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", apperr.New(apperr.KindValidation, op, errors.New("response did not contain content"))
	}
	return content, nil
}

// classify converts an SDK failure into the closed error taxonomy.
func classify(op string, err error) error {
	var apiErr *openai.Error
	switch {
	case errors.Is(err, context.Canceled):
		return apperr.New(apperr.KindCanceled, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.New(apperr.KindTimeout, op, err)
	case errors.As(err, &apiErr):
		return apperr.NewHTTP(op, apiErr.StatusCode, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperr.New(apperr.KindTimeout, op, err)
		}
		return apperr.NewHTTP(op, 0, err)
	}
	// Anything else is a body the SDK could not decode.
	return apperr.New(apperr.KindValidation, op, err)
}

// Retryable reports whether a failed completion may succeed when repeated:
// timeouts, network errors, 408, 429, 5xx and malformed responses.
func Retryable(err error) bool {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case apperr.KindTimeout, apperr.KindValidation:
		return true
	case apperr.KindHTTP:
		switch {
		case e.Status == 0:
			return true
		case e.Status == http.StatusRequestTimeout, e.Status == http.StatusTooManyRequests:
			return true
		case e.Status >= 500:
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
