// Package relay rehosts image binaries to public URLs, assembles the final
// payload and posts it to the downstream automation webhook.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"whimsy/internal/core"
)

// maxDetailBytes bounds how much of a downstream error body is surfaced.
const maxDetailBytes = 200

// Uploader rehosts one binary payload to a public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// DownstreamError is an explicit rejection from the downstream webhook.
// The upstream status code and a truncated body are preserved for the
// caller.
type DownstreamError struct {
	StatusCode int
	Detail     string
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("webhook error (%d): %s", e.StatusCode, e.Detail)
}

// Config holds the downstream webhook configuration.
type Config struct {
	WebhookURL string
	UserAgent  string
	Timeout    time.Duration
}

// Relay builds and delivers relay payloads.
type Relay struct {
	uploader   Uploader
	client     *resty.Client
	webhookURL string
	userAgent  string
	log        *slog.Logger
}

// New creates a Relay.
func New(uploader Uploader, cfg Config, log *slog.Logger) *Relay {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Relay{
		uploader:   uploader,
		client:     resty.New().SetTimeout(timeout),
		webhookURL: cfg.WebhookURL,
		userAgent:  cfg.UserAgent,
		log:        log,
	}
}

// BuildPayload rehosts every inline binary in the request and assembles the
// outbound payload. Upload failures drop the affected asset's URL and
// binary but never fail the build: the payload is always structurally
// complete and free of base64 data.
func (r *Relay) BuildPayload(ctx context.Context, req *core.RelayRequest) core.RelayPayload {
	productURL := req.Product.ImageURL
	imageURLs := make([]string, len(req.GeneratedContent.Images))

	g, ctx := errgroup.WithContext(ctx)

	if productURL == "" && req.Product.ImageBase64 != "" {
		g.Go(func() error {
			if url, ok := r.rehost(ctx, "product-image.png", req.Product.ImageBase64); ok {
				productURL = url
			}
			return nil
		})
	}

	for i, img := range req.GeneratedContent.Images {
		if strings.HasPrefix(img.DataURL, "http") {
			// Already hosted; nothing to upload.
			imageURLs[i] = img.DataURL
			continue
		}
		g.Go(func() error {
			filename := fmt.Sprintf("generated-%d-%s.png", i, uuid.NewString()[:8])
			if url, ok := r.rehost(ctx, filename, img.DataURL); ok {
				imageURLs[i] = url
			}
			return nil
		})
	}
	_ = g.Wait()

	hosted := make([]string, 0, len(imageURLs)+1)
	if strings.HasPrefix(productURL, "http") {
		hosted = append(hosted, productURL)
	}
	relayImages := make([]core.RelayImage, 0, len(req.GeneratedContent.Images))
	for i, img := range req.GeneratedContent.Images {
		if strings.HasPrefix(imageURLs[i], "http") {
			hosted = append(hosted, imageURLs[i])
		}
		relayImages = append(relayImages, core.RelayImage{
			URL:         imageURLs[i],
			Label:       img.Label,
			AspectRatio: img.AspectRatio,
		})
	}

	// The blog HTML can embed the same data URLs in img tags. Swap them for
	// the hosted URLs so the payload carries no base64 anywhere. A dropped
	// asset falls back to the product image, matching the in-article repair.
	blogHTML := req.GeneratedContent.BlogHTML
	if req.Product.ImageBase64 != "" && strings.HasPrefix(productURL, "http") {
		blogHTML = strings.ReplaceAll(blogHTML, req.Product.ImageBase64, productURL)
	}
	for i, img := range req.GeneratedContent.Images {
		if !strings.HasPrefix(img.DataURL, "data:") {
			continue
		}
		replacement := imageURLs[i]
		if replacement == "" {
			replacement = productURL
		}
		blogHTML = strings.ReplaceAll(blogHTML, img.DataURL, replacement)
	}

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	year := req.Year
	if year == 0 {
		year = time.Now().UTC().Year()
	}

	return core.RelayPayload{
		Product: core.RelayProduct{
			Title:       req.Product.Title,
			URL:         req.Product.URL,
			ContentType: req.Product.ContentType,
			ImageURL:    productURL,
		},
		GeneratedContent: core.RelayContent{
			BlogHTML:       blogHTML,
			PinterestPack:  req.GeneratedContent.PinterestPack,
			StructuredPins: req.GeneratedContent.StructuredPins,
			BlogData:       req.GeneratedContent.BlogData,
			Images:         relayImages,
		},
		TempOrgFiles:  hosted,
		Timestamp:     timestamp,
		Year:          year,
		SchemaVersion: core.RelaySchemaVersion,
	}
}

// rehost decodes one data-URL payload and uploads it, reporting success.
func (r *Relay) rehost(ctx context.Context, filename, dataURL string) (string, bool) {
	img, err := core.ParseDataURL(dataURL)
	if err != nil {
		r.log.Warn("skipping undecodable image payload", "filename", filename, "error", err.Error())
		return "", false
	}
	url, err := r.uploader.Upload(ctx, filename, img.Data)
	if err != nil {
		r.log.Warn("dropping asset after upload failure", "filename", filename, "error", err.Error())
		return "", false
	}
	return url, true
}

// Send posts the payload to the downstream webhook. An explicit downstream
// rejection comes back as *DownstreamError; transport failures come back as
// a plain error.
func (r *Relay) Send(ctx context.Context, payload core.RelayPayload) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", r.userAgent).
		SetBody(payload).
		Post(r.webhookURL)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}

	if resp.IsSuccess() {
		r.log.Info("webhook relay successful", "status", resp.StatusCode())
		return nil
	}

	detail := strings.TrimSpace(string(resp.Body()))
	if len(detail) > maxDetailBytes {
		detail = detail[:maxDetailBytes]
	}
	return &DownstreamError{StatusCode: resp.StatusCode(), Detail: detail}
}

// Process is the full relay flow: rehost, assemble, deliver.
func (r *Relay) Process(ctx context.Context, req *core.RelayRequest) (core.RelayPayload, error) {
	payload := r.BuildPayload(ctx, req)
	if err := r.Send(ctx, payload); err != nil {
		return payload, err
	}
	return payload, nil
}
