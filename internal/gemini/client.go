// Package gemini wraps the video model: uploading reel files, waiting for
// processing, and generating the structured video analysis.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Client calls the Gemini API for video understanding. All calls are strictly
// sequential; the free-tier rate limits do not tolerate parallel requests.
type Client struct {
	client *genai.Client
	model  string

	pollInterval time.Duration
	cooldown     time.Duration
}

// NewClient connects to the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{
		client:       client,
		model:        model,
		pollInterval: 2 * time.Second,
		cooldown:     30 * time.Second,
	}, nil
}

// Model returns the configured model id, recorded alongside every audit log.
func (c *Client) Model() string { return c.model }

// maxPollAttempts bounds the processing wait. A file still in PROCESSING
// after 30 polls is declared stuck so its profile fails instead of hanging
// the sequential pipeline.
const maxPollAttempts = 30

// UploadVideo uploads raw video bytes and blocks until the file is processed
// and usable in a generation request.
func (c *Client) UploadVideo(ctx context.Context, data []byte) (*genai.File, error) {
	file, err := c.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType: "video/mp4",
	})
	if err != nil {
		return nil, fmt.Errorf("uploading video: %w", err)
	}
	return waitActive(ctx, file, c.pollInterval, func(name string) (*genai.File, error) {
		return c.client.Files.Get(ctx, name, nil)
	})
}

func waitActive(ctx context.Context, file *genai.File, interval time.Duration, get func(name string) (*genai.File, error)) (*genai.File, error) {
	for attempt := 0; file.State == genai.FileStateProcessing; attempt++ {
		if attempt >= maxPollAttempts {
			return nil, fmt.Errorf("file %s still processing after %d polls", file.Name, maxPollAttempts)
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		next, err := get(file.Name)
		if err != nil {
			return nil, fmt.Errorf("polling uploaded file %s: %w", file.Name, err)
		}
		file = next
	}
	if file.State != genai.FileStateActive {
		return nil, fmt.Errorf("uploaded file %s ended in state %s", file.Name, file.State)
	}
	return file, nil
}

// DeleteFile removes an uploaded file. Failures are logged, not returned; the
// provider expires files on its own after two days.
func (c *Client) DeleteFile(ctx context.Context, file *genai.File) {
	if file == nil {
		return
	}
	if _, err := c.client.Files.Delete(ctx, file.Name, nil); err != nil {
		logrus.Warnf("could not delete uploaded file %s: %v", file.Name, err)
	}
}

// Result is one completed generation.
type Result struct {
	Text       string
	TokensUsed int
}

// Generate runs one prompt over the given uploaded videos. On rate-limit
// errors it cools down for 30 seconds and retries once before giving up.
func (c *Client) Generate(ctx context.Context, prompt string, files []*genai.File) (Result, error) {
	parts := make([]*genai.Part, 0, len(files)+1)
	for _, f := range files {
		parts = append(parts, genai.NewPartFromURI(f.URI, f.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
		if err != nil {
			if attempt == 0 && isRateLimited(err) {
				logrus.Warnf("video model rate limited, cooling down %v", c.cooldown)
				select {
				case <-time.After(c.cooldown):
				case <-ctx.Done():
					return Result{}, ctx.Err()
				}
				continue
			}
			return Result{}, fmt.Errorf("generating video analysis: %w", err)
		}

		text := resp.Text()
		if text == "" {
			return Result{}, fmt.Errorf("video model returned no text")
		}
		result := Result{Text: text}
		if resp.UsageMetadata != nil {
			result.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
		}
		return result, nil
	}
}

func isRateLimited(err error) bool {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	return strings.Contains(err.Error(), "Resource exhausted")
}
