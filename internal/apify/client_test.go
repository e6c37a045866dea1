package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/21draw/ugc-finder/internal/httpx"
)

func testApify(url string) *Client {
	c := NewClient("tok", httpx.New(httpx.Policy{MaxRetries: 1, BaseDelay: time.Millisecond, Timeout: 5 * time.Second}))
	c.base = url
	return c
}

func TestListRunsOnDateFiltersByDayAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"items": []map[string]interface{}{
					{"id": "r1", "status": "SUCCEEDED", "startedAt": "2025-08-20T09:00:00Z", "defaultDatasetId": "d1"},
					{"id": "r2", "status": "FAILED", "startedAt": "2025-08-20T08:00:00Z", "defaultDatasetId": "d2"},
					{"id": "r3", "status": "SUCCEEDED", "startedAt": "2025-08-19T23:00:00Z", "defaultDatasetId": "d3"},
				},
			},
		})
	}))
	defer srv.Close()

	runs, err := testApify(srv.URL).ListRunsOnDate(context.Background(), "apify~instagram-scraper", "2025-08-20")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
	assert.Equal(t, "d1", runs[0].DefaultDatasetID)
}

func TestRunInputURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"input": {"directUrls": ["https://www.instagram.com/competitor_a/tagged/"]}}}`)
	}))
	defer srv.Close()

	u, err := testApify(srv.URL).RunInputURL(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "https://www.instagram.com/competitor_a/tagged/", u)
}

func TestRunInputURLMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"input": {}}}`)
	}))
	defer srv.Close()

	u, err := testApify(srv.URL).RunInputURL(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestStartProfileScrape(t *testing.T) {
	var gotInput map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotInput))
		fmt.Fprint(w, `{"data": {"id": "run9", "status": "RUNNING"}}`)
	}))
	defer srv.Close()

	run, err := testApify(srv.URL).StartProfileScrape(context.Background(), "actor1", []string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, "run9", run.ID)
	assert.Equal(t, "details", gotInput["resultsType"])
	assert.Equal(t, []interface{}{"alice", "bob"}, gotInput["usernames"])
}

func TestWaitForRun(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls < 3 {
			fmt.Fprint(w, `{"data": {"id": "r1", "status": "RUNNING"}}`)
			return
		}
		fmt.Fprint(w, `{"data": {"id": "r1", "status": "SUCCEEDED", "defaultDatasetId": "d1"}}`)
	}))
	defer srv.Close()

	run, err := testApify(srv.URL).WaitForRun(context.Background(), "r1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "d1", run.DefaultDatasetID)
	assert.Equal(t, 3, polls)
}

func TestWaitForRunFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"id": "r1", "status": "ABORTED"}}`)
	}))
	defer srv.Close()

	_, err := testApify(srv.URL).WaitForRun(context.Background(), "r1", time.Millisecond)
	assert.Error(t, err)
}

func TestRunTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		"SUCCEEDED": true,
		"FAILED":    true,
		"ABORTED":   true,
		"TIMED-OUT": true,
		"RUNNING":   false,
		"READY":     false,
	} {
		assert.Equal(t, terminal, Run{Status: status}.Terminal(), status)
	}
}
