// Package hosting uploads image payloads to public file hosts so the relay
// can reference them by URL. Uploads are best-effort: one attempt against
// the primary host, one against the fallback, no retry loops.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds the two host endpoints.
type Config struct {
	PrimaryURL  string // tmpfiles.org-style upload endpoint
	FallbackURL string // file.io-style upload endpoint
	Timeout     time.Duration
}

// Uploader uploads binary payloads and returns public URLs.
type Uploader struct {
	client      *resty.Client
	primaryURL  string
	fallbackURL string
	log         *slog.Logger
}

// NewUploader creates an Uploader. Timeout covers each individual upload.
func NewUploader(cfg Config, log *slog.Logger) *Uploader {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 45 * time.Second
	}
	return &Uploader{
		client:      resty.New().SetTimeout(timeout),
		primaryURL:  cfg.PrimaryURL,
		fallbackURL: cfg.FallbackURL,
		log:         log,
	}
}

// Upload pushes the payload to the primary host, falling back to the
// secondary on any failure. It returns an error only when both hosts
// failed; callers drop the asset and carry on.
func (u *Uploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	url, primaryErr := u.uploadPrimary(ctx, filename, data)
	if primaryErr == nil {
		return url, nil
	}
	u.log.Warn("primary host upload failed, trying fallback",
		"filename", filename, "error", primaryErr.Error())

	url, fallbackErr := u.uploadFallback(ctx, filename, data)
	if fallbackErr == nil {
		return url, nil
	}
	return "", fmt.Errorf("both hosts failed: primary: %v; fallback: %w", primaryErr, fallbackErr)
}

// tmpFilesResponse is the primary host's upload response.
type tmpFilesResponse struct {
	Status string `json:"status"`
	Data   struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (u *Uploader) uploadPrimary(ctx context.Context, filename string, data []byte) (string, error) {
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data)).
		Post(u.primaryURL)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("upload failed with status %d", resp.StatusCode())
	}

	var decoded tmpFilesResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return "", fmt.Errorf("malformed response body: %w", err)
	}
	if decoded.Status != "success" || decoded.Data.URL == "" {
		return "", fmt.Errorf("unexpected response status %q", decoded.Status)
	}
	return directDownloadURL(decoded.Data.URL), nil
}

// directDownloadURL rewrites https://host/XXXX/file.ext into
// https://host/dl/XXXX/file.ext, the form that serves the raw bytes.
func directDownloadURL(url string) string {
	if strings.Contains(url, "/dl/") {
		return url
	}
	parts := strings.Split(url, "/")
	if len(parts) < 4 {
		return url
	}
	parts = append(parts[:3], append([]string{"dl"}, parts[3:]...)...)
	return strings.Join(parts, "/")
}

// fileIOResponse is the fallback host's upload response.
type fileIOResponse struct {
	Success bool   `json:"success"`
	Link    string `json:"link"`
}

func (u *Uploader) uploadFallback(ctx context.Context, filename string, data []byte) (string, error) {
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data)).
		SetFormData(map[string]string{"expires": "1d"}).
		Post(u.fallbackURL)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("upload failed with status %d", resp.StatusCode())
	}

	var decoded fileIOResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return "", fmt.Errorf("malformed response body: %w", err)
	}
	if !decoded.Success || decoded.Link == "" {
		return "", fmt.Errorf("host reported failure")
	}
	return decoded.Link, nil
}
