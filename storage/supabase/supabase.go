// Package supabase stores objects through the Supabase Storage REST API,
// using the restkit HTTP client for transport, auth and negotiation.
package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderSupabase, func(cfg storage.Config, log *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg, httpclient.WithLogger(log))
	})
}

// Storage implements storage.Storage on Supabase Storage.
type Storage struct {
	client *httpclient.Adapter
	bucket string
}

// NewStorage creates a Supabase storage client for cfg.URL and cfg.Bucket,
// authenticating with cfg.SecretKey as a bearer token.
func NewStorage(cfg storage.Config, opts ...httpclient.Option) (*Storage, error) {
	client, err := httpclient.New(httpclient.Config{
		Name:    "supabase-storage",
		BaseURL: strings.TrimRight(cfg.URL, "/") + "/storage/v1",
		Timeout: 5 * time.Minute,
		Auth:    httpclient.BearerAuth(cfg.SecretKey),
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Storage{client: client, bucket: cfg.Bucket}, nil
}

// objectPath returns the API path of key under kind ("" for plain object
// operations, "public" or "sign").
func (s *Storage) objectPath(kind, key string) (string, error) {
	k, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	p := "/object/"
	if kind != "" {
		p += kind + "/"
	}
	return p + s.bucket + "/" + k, nil
}

// Upload streams reader to the object at key, replacing any existing object.
func (s *Storage) Upload(ctx context.Context, key string, reader io.Reader) error {
	p, err := s.objectPath("", key)
	if err != nil {
		return err
	}
	_, err = s.client.Do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        p,
		Body:        reader,
		ContentType: storage.ContentTypeFor(p),
		Headers:     map[string]string{"x-upsert": "true"},
	})
	if err != nil {
		return fmt.Errorf("storage: supabase upload: %w", err)
	}
	return nil
}

// Download returns the live object body. The caller must close it.
func (s *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.objectPath("", key)
	if err != nil {
		return nil, err
	}
	sr, err := s.client.DoStream(ctx, httpclient.Request{Method: http.MethodGet, Path: p})
	if err != nil {
		if httpclient.IsNotFound(err) {
			return nil, storage.NotFound(key)
		}
		return nil, fmt.Errorf("storage: supabase download: %w", err)
	}
	rc, err := sr.Body.Stream("download object")
	if err != nil {
		_ = sr.Close()
		return nil, err
	}
	return rc, nil
}

// Delete removes an object. Returns nil if the object does not exist.
func (s *Storage) Delete(ctx context.Context, key string) error {
	p, err := s.objectPath("", key)
	if err != nil {
		return err
	}
	_, err = s.client.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: p})
	if err != nil && !httpclient.IsNotFound(err) {
		return fmt.Errorf("storage: supabase delete: %w", err)
	}
	return nil
}

// Exists checks whether an object exists.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.objectPath("", key)
	if err != nil {
		return false, err
	}
	_, err = s.client.Do(ctx, httpclient.Request{Method: http.MethodHead, Path: p})
	switch {
	case err == nil:
		return true, nil
	case httpclient.IsNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("storage: supabase exists: %w", err)
	}
}

// URL returns the public URL of the object.
func (s *Storage) URL(_ context.Context, key string) (string, error) {
	p, err := s.objectPath("public", key)
	if err != nil {
		return "", err
	}
	return s.client.GetConfig().BaseURL + p, nil
}

type listRequest struct {
	Prefix string `json:"prefix"`
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit"`
}

type listItem struct {
	Name     string `json:"name"`
	Metadata struct {
		Size        int64  `json:"size"`
		ContentType string `json:"mimetype"`
	} `json:"metadata"`
	UpdatedAt time.Time `json:"updated_at"`
}

// List returns metadata for all objects whose path starts with prefix.
func (s *Storage) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	folder, search := "", prefix
	if idx := strings.LastIndex(prefix, "/"); idx >= 0 {
		folder, search = prefix[:idx+1], prefix[idx+1:]
	}

	resp, err := httpclient.Post[[]listItem](s.client, ctx, "/object/list/"+s.bucket,
		listRequest{Prefix: folder, Search: search, Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("storage: supabase list: %w", err)
	}

	files := make([]storage.FileInfo, 0, len(resp.Data))
	for _, item := range resp.Data {
		files = append(files, storage.FileInfo{
			Path:         folder + item.Name,
			Size:         item.Metadata.Size,
			ContentType:  item.Metadata.ContentType,
			LastModified: item.UpdatedAt,
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// SignedURL returns a pre-signed URL valid for the specified duration.
func (s *Storage) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	p, err := s.objectPath("sign", key)
	if err != nil {
		return "", err
	}
	resp, err := httpclient.Post[struct {
		SignedURL string `json:"signedURL"`
	}](s.client, ctx, p,
		map[string]int{"expiresIn": int(expiry.Seconds())})
	if err != nil {
		return "", fmt.Errorf("storage: supabase sign: %w", err)
	}
	signed := resp.Data.SignedURL
	if signed == "" {
		return "", fmt.Errorf("storage: supabase sign returned empty URL")
	}
	// Supabase answers with a path relative to the storage API.
	if !strings.HasPrefix(signed, "http") {
		signed = s.client.GetConfig().BaseURL + signed
	}
	return signed, nil
}

var (
	_ storage.Storage           = (*Storage)(nil)
	_ storage.SignedURLProvider = (*Storage)(nil)
)
