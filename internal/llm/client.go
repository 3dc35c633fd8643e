package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const userAgent = "go-spotify-playlist-curator/1.0"

// Sentinel errors.
var (
	// ErrRequestFailed is returned when the API answers with a non-2xx status
	// or cannot be reached.
	ErrRequestFailed = errors.New("model request failed")

	// ErrEmptyResponse is returned when the API answers without any choices.
	ErrEmptyResponse = errors.New("model returned no choices")
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request describes a completion.
type Request struct {
	System   string
	Messages []Message
	// JSON asks the model for a single JSON object.
	JSON bool
	// MaxTokens overrides the client default when positive.
	MaxTokens int
}

// Client calls a chat completion endpoint. It is safe for concurrent use.
type Client struct {
	http      *resty.Client
	model     string
	maxTokens int
}

// NewClient creates a new client from the provided configuration.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("User-Agent", userAgent).
		SetTimeout(cfg.Timeout)
	return &Client{
		http:      http,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model               string          `json:"model"`
	Messages            []Message       `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the request and returns the text of the first choice.
// The text may be empty; callers decide what an empty answer means.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body := completionRequest{
		Model:               c.model,
		MaxCompletionTokens: c.maxTokens,
	}
	if req.MaxTokens > 0 {
		body.MaxCompletionTokens = req.MaxTokens
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if req.System != "" {
		body.Messages = append(body.Messages, Message{Role: RoleSystem, Content: req.System})
	}
	body.Messages = append(body.Messages, req.Messages...)

	var result completionResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	if resp.IsError() {
		detail := apiErr.Error.Message
		if detail == "" {
			detail = resp.String()
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode(), detail)
	}

	if len(result.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return result.Choices[0].Message.Content, nil
}
