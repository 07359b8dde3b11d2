package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
)

// Role values of a chat-completion message.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config configures an OpenAI-compatible chat-completion endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// MaxRetries bounds retries of rate-limited or failed calls.
	MaxRetries uint64

	// Transport overrides the HTTP transport, e.g. for tracing.
	Transport http.RoundTripper
}

// Client calls a chat-completion endpoint.
type Client struct {
	cfg    Config
	openai *openai.Client
}

// NewClient creates a client. BaseURL defaults to the OpenAI API.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport}

	return &Client{cfg: cfg, openai: openai.NewClientWithConfig(oc)}
}

// StatusError is a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("assistant: endpoint returned %d: %s", e.StatusCode, e.Message)
}

// ErrEmptyCompletion is returned when the endpoint answers without content.
var ErrEmptyCompletion = errors.New("assistant: empty completion")

// Complete sends messages and returns the first choice's content.
// Rate limits, server errors and transport failures are retried with
// exponential backoff.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: 0.4,
		MaxTokens:   500,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	backoff := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(250*time.Millisecond))

	var content string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := c.do(ctx, req)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.StatusCode != http.StatusTooManyRequests && se.StatusCode < 500 {
				return err
			}
			if errors.Is(err, ErrEmptyCompletion) || ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		content = out
		return nil
	})
	return content, err
}

func (c *Client) do(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.openai.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", statusError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// statusError maps SDK errors carrying an HTTP status onto StatusError.
func statusError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.HTTPStatusCode)
		}
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Message: msg}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode)}
	}
	return err
}
