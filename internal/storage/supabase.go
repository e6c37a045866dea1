// Package storage is the Supabase Storage client holding downloaded reel
// videos. Paths inside the bucket are <username>/reel_<n>.mp4.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/21draw/ugc-finder/internal/httpx"
)

// removeBatchSize caps one delete request. The storage API rejects oversized
// prefix lists.
const removeBatchSize = 50

// StorageInterface defines the contract for the video bucket.
type StorageInterface interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Remove(ctx context.Context, paths []string) (int, error)
	List(ctx context.Context, prefix string) ([]string, error)
	PublicURL(path string) string
}

// SupabaseStorage implements StorageInterface against the Supabase Storage
// REST API.
type SupabaseStorage struct {
	baseURL    string
	serviceKey string
	bucket     string
	http       *httpx.Client
}

var _ StorageInterface = (*SupabaseStorage)(nil)

// NewSupabaseStorage creates a bucket client.
func NewSupabaseStorage(projectURL, serviceKey, bucket string, http *httpx.Client) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(projectURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		http:       http,
	}
}

// Upload writes an object, overwriting any existing object at the same path.
func (s *SupabaseStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, path)
	resp, err := s.http.Do(ctx, func() (*resty.Response, error) {
		return s.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+s.serviceKey).
			SetHeader("Content-Type", contentType).
			SetHeader("x-upsert", "true").
			SetBody(data).
			Post(u)
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("uploading %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
	return nil
}

// Remove deletes objects in batches. A failed batch is logged and skipped so
// one bad object cannot block the rest of a cleanup run; the count of removed
// objects and the last batch error are returned.
func (s *SupabaseStorage) Remove(ctx context.Context, paths []string) (int, error) {
	u := fmt.Sprintf("%s/storage/v1/object/%s", s.baseURL, s.bucket)
	removed := 0
	var lastErr error

	for start := 0; start < len(paths); start += removeBatchSize {
		end := start + removeBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		resp, err := s.http.Do(ctx, func() (*resty.Response, error) {
			return s.http.R().
				SetContext(ctx).
				SetHeader("Authorization", "Bearer "+s.serviceKey).
				SetHeader("Content-Type", "application/json").
				SetBody(map[string][]string{"prefixes": batch}).
				Delete(u)
		})
		if err != nil {
			lastErr = fmt.Errorf("removing batch of %d: %w", len(batch), err)
			logrus.Warnf("%v", lastErr)
			continue
		}
		if resp.IsError() {
			lastErr = fmt.Errorf("removing batch of %d: status %d", len(batch), resp.StatusCode())
			logrus.Warnf("%v", lastErr)
			continue
		}
		removed += len(batch)
	}

	return removed, lastErr
}

// List returns object names under a prefix.
func (s *SupabaseStorage) List(ctx context.Context, prefix string) ([]string, error) {
	u := fmt.Sprintf("%s/storage/v1/object/list/%s", s.baseURL, s.bucket)
	resp, err := s.http.Do(ctx, func() (*resty.Response, error) {
		return s.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+s.serviceKey).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]interface{}{"prefix": prefix, "limit": 1000}).
			Post(u)
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", prefix, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing %s: status %d", prefix, resp.StatusCode())
	}

	var objects []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.Body(), &objects); err != nil {
		return nil, fmt.Errorf("decoding object list: %w", err)
	}
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Name)
	}
	return names, nil
}

// PublicURL returns the public CDN URL for an object. The bucket is public
// read; the review UI embeds these directly.
func (s *SupabaseStorage) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path)
}
