package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/21draw/ugc-finder/internal/httpx"
)

func testClient() *httpx.Client {
	return httpx.New(httpx.Policy{MaxRetries: 1, BaseDelay: time.Millisecond, Timeout: 5 * time.Second})
}

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotUpsert string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "secret", "reel-videos", testClient())
	err := s.Upload(context.Background(), "alice/reel_1.mp4", []byte("video bytes"), "video/mp4")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/reel-videos/alice/reel_1.mp4", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, []byte("video bytes"), gotBody)
}

func TestUploadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "secret", "reel-videos", testClient())
	err := s.Upload(context.Background(), "alice/reel_1.mp4", []byte("x"), "video/mp4")
	assert.Error(t, err)
}

func TestRemoveBatches(t *testing.T) {
	var mu sync.Mutex
	var batches [][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prefixes []string `json:"prefixes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		batches = append(batches, body.Prefixes)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	paths := make([]string, 120)
	for i := range paths {
		paths[i] = fmt.Sprintf("user%d/reel_1.mp4", i)
	}

	s := NewSupabaseStorage(srv.URL, "secret", "reel-videos", testClient())
	removed, err := s.Remove(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 120, removed)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 50)
	assert.Len(t, batches[1], 50)
	assert.Len(t, batches[2], 20)
}

func TestRemoveToleratesFailedBatch(t *testing.T) {
	var mu sync.Mutex
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		call++
		fail := call == 1
		mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	paths := make([]string, 60)
	for i := range paths {
		paths[i] = fmt.Sprintf("user%d/reel_1.mp4", i)
	}

	s := NewSupabaseStorage(srv.URL, "secret", "reel-videos", testClient())
	removed, err := s.Remove(context.Background(), paths)
	assert.Error(t, err)
	assert.Equal(t, 10, removed)
}

func TestPublicURL(t *testing.T) {
	s := NewSupabaseStorage("https://proj.supabase.co/", "secret", "reel-videos", testClient())
	assert.Equal(t,
		"https://proj.supabase.co/storage/v1/object/public/reel-videos/alice/reel_1.mp4",
		s.PublicURL("alice/reel_1.mp4"))
}
