// Package apify is the scrape-job provider client. It only ever reads run
// listings and datasets during recovery; starting new runs is reserved for the
// video re-acquisition pipeline.
package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/21draw/ugc-finder/internal/httpx"
)

const baseURL = "https://api.apify.com/v2"

// Run is one actor run as listed by the provider.
type Run struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	StartedAt        time.Time `json:"startedAt"`
	DefaultDatasetID string    `json:"defaultDatasetId"`
}

// Succeeded reports whether the run finished successfully.
func (r Run) Succeeded() bool { return r.Status == "SUCCEEDED" }

// Terminal reports whether the run has stopped for any reason.
func (r Run) Terminal() bool {
	switch r.Status {
	case "SUCCEEDED", "FAILED", "ABORTED", "TIMED-OUT":
		return true
	}
	return false
}

// Client talks to the Apify REST API.
type Client struct {
	token string
	base  string
	http  *httpx.Client
}

// NewClient creates a provider client sharing the standard retry policy.
func NewClient(token string, http *httpx.Client) *Client {
	return &Client{token: token, base: baseURL, http: http}
}

type runListResponse struct {
	Data struct {
		Items []Run `json:"items"`
	} `json:"data"`
}

// ListRunsOnDate pages through an actor's run history (newest first) and
// returns the successful runs started on the given day (YYYY-MM-DD). Paging
// stops as soon as a page contributes no matching runs, since runs are listed
// in descending start order.
func (c *Client) ListRunsOnDate(ctx context.Context, actorID, date string) ([]Run, error) {
	const pageSize = 1000
	var matched []Run
	offset := 0

	for {
		u := fmt.Sprintf("%s/acts/%s/runs?token=%s&desc=true&limit=%d&offset=%d",
			c.base, url.PathEscape(actorID), c.token, pageSize, offset)
		resp, err := c.http.Get(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("listing runs for %s: %w", actorID, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("listing runs for %s: status %d", actorID, resp.StatusCode())
		}

		var page runListResponse
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			return nil, fmt.Errorf("decoding run list: %w", err)
		}

		pageMatches := 0
		for _, run := range page.Data.Items {
			if run.Succeeded() && run.StartedAt.Format("2006-01-02") == date {
				matched = append(matched, run)
				pageMatches++
			}
		}

		if len(page.Data.Items) < pageSize || pageMatches == 0 {
			break
		}
		offset += pageSize
	}

	return matched, nil
}

// RunInputURL returns the first direct URL from a run's input, used to
// attribute tagged-post runs to the competitor account they scraped.
func (c *Client) RunInputURL(ctx context.Context, runID string) (string, error) {
	u := fmt.Sprintf("%s/actor-runs/%s?token=%s", c.base, runID, c.token)
	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return "", fmt.Errorf("fetching run %s: %w", runID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetching run %s: status %d", runID, resp.StatusCode())
	}
	return gjson.GetBytes(resp.Body(), "data.input.directUrls.0").String(), nil
}

// DatasetItems downloads a run's dataset into out, which must be a pointer to
// a slice.
func (c *Client) DatasetItems(ctx context.Context, datasetID string, out interface{}) error {
	u := fmt.Sprintf("%s/datasets/%s/items?token=%s", c.base, datasetID, c.token)
	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return fmt.Errorf("downloading dataset %s: %w", datasetID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("downloading dataset %s: status %d", datasetID, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decoding dataset %s: %w", datasetID, err)
	}
	return nil
}

// StartProfileScrape starts a profile-scraper run for the given usernames and
// returns the new run.
func (c *Client) StartProfileScrape(ctx context.Context, actorID string, usernames []string) (Run, error) {
	input := map[string]interface{}{
		"usernames":    usernames,
		"resultsType":  "details",
		"resultsLimit": len(usernames),
	}

	u := fmt.Sprintf("%s/acts/%s/runs?token=%s", c.base, url.PathEscape(actorID), c.token)
	resp, err := c.http.Do(ctx, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(input).
			Post(u)
	})
	if err != nil {
		return Run{}, fmt.Errorf("starting scrape run: %w", err)
	}
	if resp.IsError() {
		return Run{}, fmt.Errorf("starting scrape run: status %d", resp.StatusCode())
	}

	var started struct {
		Data Run `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &started); err != nil {
		return Run{}, fmt.Errorf("decoding started run: %w", err)
	}
	if started.Data.ID == "" {
		return Run{}, fmt.Errorf("provider returned no run id")
	}
	return started.Data, nil
}

// WaitForRun polls a run every interval until it reaches a terminal state.
// Polling is strictly sequential; the provider processes one job at a time.
func (c *Client) WaitForRun(ctx context.Context, runID string, interval time.Duration) (Run, error) {
	for {
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return Run{}, ctx.Err()
		}

		u := fmt.Sprintf("%s/actor-runs/%s?token=%s", c.base, runID, c.token)
		resp, err := c.http.Get(ctx, u)
		if err != nil {
			return Run{}, fmt.Errorf("polling run %s: %w", runID, err)
		}

		var detail struct {
			Data Run `json:"data"`
		}
		if err := json.Unmarshal(resp.Body(), &detail); err != nil {
			return Run{}, fmt.Errorf("decoding run status: %w", err)
		}

		if detail.Data.Terminal() {
			if !detail.Data.Succeeded() {
				return detail.Data, fmt.Errorf("run %s ended with status %s", runID, detail.Data.Status)
			}
			return detail.Data, nil
		}
		logrus.Debugf("run %s still %s", runID, detail.Data.Status)
	}
}

// DownloadFile fetches raw bytes from a CDN URL, following redirects.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	resp, err := c.http.Get(ctx, fileURL)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", fileURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("downloading %s: status %d", fileURL, resp.StatusCode())
	}
	return resp.Body(), nil
}
