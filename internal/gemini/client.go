// Package gemini is a thin typed client over the Gemini API for the two
// calls the pipeline needs: text generation and image generation.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"whimsy/internal/core"
)

// DefaultBaseURL is the REST endpoint used for image generation calls.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// ErrMissingAPIKey is returned when no Gemini credential is configured.
// Callers surface it immediately; it is never retried.
var ErrMissingAPIKey = errors.New("gemini API key is not configured")

// ErrNoImage is returned by GenerateImage when the model answered without
// an image part. It is an expected outcome, not a transport failure; the
// caller decides whether to retry with a different model.
var ErrNoImage = errors.New("response contained no image payload")

// APIError is a failed upstream call, carrying the upstream HTTP status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error (status %d): %s", e.StatusCode, e.Message)
}

// Config holds the client configuration.
type Config struct {
	APIKey      string
	TextModel   string
	Temperature float32
	Timeout     time.Duration
	BaseURL     string       // REST base URL, overridable in tests
	HTTPClient  *http.Client // optional; a timeout client is built when nil
}

// Client talks to the Gemini API. Text generation goes through the official
// SDK; image generation goes through the REST endpoint directly because the
// per-request aspect-ratio image config is only expressible there.
type Client struct {
	textModel   string
	temperature float32
	apiKey      string
	baseURL     string
	gClient     *genai.Client
	httpClient  *http.Client
}

// NewClient creates a Gemini client or fails fast on a missing credential.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		textModel:   cfg.TextModel,
		temperature: cfg.Temperature,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		gClient:     gClient,
		httpClient:  httpClient,
	}, nil
}

// GenerateText runs one text-generation call with a system instruction and
// an optional attached product image.
func (c *Client) GenerateText(ctx context.Context, systemInstruction, promptText string, image *core.InlineImage) (string, error) {
	var parts []*genai.Part
	if image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: image.MIMEType, Data: image.Data},
		})
	}
	parts = append(parts, &genai.Part{Text: promptText})

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.textModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", c.textModel)
	}
	return text, nil
}

// GenerateImage runs one image-generation attempt against the given model
// variant. It returns ErrNoImage when the model answered without an image
// part, and *APIError on upstream failure.
func (c *Client) GenerateImage(ctx context.Context, promptText string, aspect core.AspectRatio, model string) (core.InlineImage, error) {
	req := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: promptText}}},
		},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig:        &imageConfig{AspectRatio: string(aspect)},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return core.InlineImage{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return core.InlineImage{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.InlineImage{}, fmt.Errorf("request %s: %w", model, err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return core.InlineImage{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return core.InlineImage{}, &APIError{
			StatusCode: httpResp.StatusCode,
			Message:    strings.TrimSpace(string(rawBody)),
		}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return core.InlineImage{}, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return core.InlineImage{}, &APIError{
			StatusCode: decoded.Error.Code,
			Message:    decoded.Error.Message,
		}
	}

	for _, cand := range decoded.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return core.InlineImage{}, fmt.Errorf("decode image payload: %w", err)
			}
			mime := p.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return core.InlineImage{MIMEType: mime, Data: data}, nil
		}
	}

	return core.InlineImage{}, ErrNoImage
}

// Wire types for the REST image path. The SDK is bypassed here on purpose;
// see the Client doc comment.

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiStatus  `json:"error,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
