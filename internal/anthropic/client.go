// Package anthropic is a minimal messages-API client for the text
// classification workflows.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/21draw/ugc-finder/internal/httpx"
)

const (
	messagesURL = "https://api.anthropic.com/v1/messages"
	apiVersion  = "2023-06-01"
)

// Client calls the Claude messages API.
type Client struct {
	apiKey string
	model  string
	http   *httpx.Client
}

// NewClient creates a text-model client. Overload responses (529) ride the
// shared 5xx retry policy.
func NewClient(apiKey, model string, http *httpx.Client) *Client {
	return &Client{apiKey: apiKey, model: model, http: http}
}

// Model returns the configured model id, recorded alongside every audit log.
func (c *Client) Model() string { return c.model }

// Result is one completed model call.
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// TotalTokens is the token count recorded in audit logs.
func (r Result) TotalTokens() int { return r.InputTokens + r.OutputTokens }

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a single-turn user prompt and returns the text reply.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (Result, error) {
	body := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	}

	resp, err := c.http.Do(ctx, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetHeader("x-api-key", c.apiKey).
			SetHeader("anthropic-version", apiVersion).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(messagesURL)
	})
	if err != nil {
		return Result{}, fmt.Errorf("calling messages API: %w", err)
	}

	var decoded messagesResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return Result{}, fmt.Errorf("decoding messages response: %w", err)
	}
	if resp.IsError() {
		if decoded.Error != nil {
			return Result{}, fmt.Errorf("messages API %d: %s: %s", resp.StatusCode(), decoded.Error.Type, decoded.Error.Message)
		}
		return Result{}, fmt.Errorf("messages API status %d", resp.StatusCode())
	}

	var text string
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return Result{}, fmt.Errorf("messages API returned no text content")
	}

	return Result{
		Text:         text,
		InputTokens:  decoded.Usage.InputTokens,
		OutputTokens: decoded.Usage.OutputTokens,
	}, nil
}
