package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"whimsy/internal/config"
	"whimsy/internal/core"
	"whimsy/internal/gemini"
	"whimsy/internal/logger"
	"whimsy/internal/pipeline"
	"whimsy/internal/prompt"
	"whimsy/internal/relay"
)

type fakeText struct {
	response string
	err      error
}

func (f *fakeText) GenerateText(_ context.Context, _, _ string, _ *core.InlineImage) (string, error) {
	return f.response, f.err
}

type fakeImages struct {
	assets []core.ImageAsset
}

func (f *fakeImages) Generate(_ context.Context, _ []prompt.ImageSpec) []core.ImageAsset {
	return f.assets
}

type fakeRelay struct {
	err error
}

func (f *fakeRelay) Process(_ context.Context, _ *core.RelayRequest) (core.RelayPayload, error) {
	return core.RelayPayload{}, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{
			Host:         "127.0.0.1",
			Port:         3000,
			ReadTimeout:  time.Minute,
			WriteTimeout: time.Minute,
			MaxBodyBytes: 1 << 20,
		},
		AI: config.AI{Gemini: config.GeminiConfig{
			TextModel:   "gemini-2.0-flash",
			ImageModels: []string{"gemini-2.5-flash-image"},
		}},
		Relay: config.Relay{WebhookURL: "https://hooks.example/wf"},
	}
}

func newTestServer(text pipeline.TextGenerator, images pipeline.ImageGenerator, rly WebhookRelay) *Server {
	if images == nil {
		images = &fakeImages{}
	}
	if rly == nil {
		rly = &fakeRelay{}
	}
	return New(pipeline.New(text, images, logger.Get()), rly, testConfig())
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeText{}, nil, nil), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Service != "whimsy" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleStatusReportsMissingKey(t *testing.T) {
	rec := doRequest(t, newTestServer(nil, nil, nil), http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Checks["gemini"] != "missing api key" {
		t.Errorf("gemini check = %q, want missing api key", body.Checks["gemini"])
	}
	if body.Checks["webhook"] != "configured" {
		t.Errorf("webhook check = %q, want configured", body.Checks["webhook"])
	}
	if body.Models.Text != "gemini-2.0-flash" {
		t.Errorf("text model = %q", body.Models.Text)
	}
}

func TestHandleGenerate(t *testing.T) {
	lifestyle := core.InlineImage{MIMEType: "image/png", Data: []byte("life")}.DataURL()
	raw := `<article class="pwn-review"><p><img src="{{PRODUCT_IMAGE_URL}}"></p>` +
		`<p>Rating: 4.5 / 5</p><h2>Final Verdict</h2><p>Lovely.</p>` +
		`<p><img src="{{LIFESTYLE_IMAGE_URL}}"></p></article>` +
		"|||SEPARATOR|||" +
		"PINTEREST_PACK:\nPIN 1:\nPinterest Title: Glow\nPinterest Description: Shiny nails\nHashtags: #nails"

	s := newTestServer(
		&fakeText{response: raw},
		&fakeImages{assets: []core.ImageAsset{
			{DataURL: lifestyle, Label: prompt.LabelLifestyle, AspectRatio: core.AspectLandscape},
		}},
		nil,
	)

	reqBody := `{"title":"Glow Strips","url":"https://example.com/p/glow","imageUrl":"https://cdn.example/p.png"}`
	rec := doRequest(t, s, http.MethodPost, "/api/generate", reqBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var bundle core.GeneratedBundle
	if err := json.Unmarshal(rec.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if strings.Contains(bundle.BlogHTML, "{{PRODUCT_IMAGE_URL}}") ||
		strings.Contains(bundle.BlogHTML, "{{LIFESTYLE_IMAGE_URL}}") {
		t.Errorf("placeholders not replaced: %s", bundle.BlogHTML)
	}
	if !strings.Contains(bundle.BlogHTML, "https://cdn.example/p.png") {
		t.Errorf("product image source missing: %s", bundle.BlogHTML)
	}
	if len(bundle.StructuredPins) != 1 || bundle.StructuredPins[0].Title != "Glow" {
		t.Errorf("pins = %+v", bundle.StructuredPins)
	}
	if bundle.BlogData.Rating != "4.5" || bundle.BlogData.Verdict != "Lovely." {
		t.Errorf("blog data = %+v", bundle.BlogData)
	}
	if len(bundle.Images) != 1 {
		t.Errorf("images = %+v", bundle.Images)
	}
}

func TestHandleGenerateWithoutSeparator(t *testing.T) {
	s := newTestServer(&fakeText{response: "<article>only a blog</article>"}, nil, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/generate",
		`{"title":"T","url":"https://example.com/p","imageUrl":"https://cdn.example/p.png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var bundle core.GeneratedBundle
	if err := json.Unmarshal(rec.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if bundle.BlogHTML == "" {
		t.Error("blog html should carry the whole response")
	}
	if bundle.PinterestPack != "" || len(bundle.StructuredPins) != 0 {
		t.Errorf("pin pack should be empty: %q %+v", bundle.PinterestPack, bundle.StructuredPins)
	}
}

func TestHandleGenerateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"title":`},
		{"missing title", `{"url":"https://example.com","imageUrl":"https://cdn.example/p.png"}`},
		{"missing image source", `{"title":"T","url":"https://example.com"}`},
		{"both image sources", `{"title":"T","url":"https://example.com","imageUrl":"https://a","imageBase64":"data:image/png;base64,aGk="}`},
		{"relative url", `{"title":"T","url":"/p/glow","imageUrl":"https://cdn.example/p.png"}`},
	}

	s := newTestServer(&fakeText{response: "x"}, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/generate", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleGenerateMissingAPIKey(t *testing.T) {
	s := newTestServer(nil, nil, nil)
	rec := doRequest(t, s, http.MethodPost, "/api/generate",
		`{"title":"T","url":"https://example.com/p","imageUrl":"https://cdn.example/p.png"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "Server configuration error" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestHandleGenerateUpstreamFailure(t *testing.T) {
	s := newTestServer(&fakeText{err: &gemini.APIError{StatusCode: 429, Message: "quota exceeded"}}, nil, nil)
	rec := doRequest(t, s, http.MethodPost, "/api/generate",
		`{"title":"T","url":"https://example.com/p","imageUrl":"https://cdn.example/p.png"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Detail != "quota exceeded" {
		t.Errorf("detail = %q", body.Detail)
	}
}

func TestHandleWebhook(t *testing.T) {
	validBody := `{"product":{"title":"T","url":"https://example.com/p"}}`

	t.Run("success", func(t *testing.T) {
		rec := doRequest(t, newTestServer(nil, nil, &fakeRelay{}), http.MethodPost, "/api/webhook", validBody)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var body WebhookResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if !body.Success {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("downstream rejection mirrors status", func(t *testing.T) {
		rly := &fakeRelay{err: &relay.DownstreamError{StatusCode: http.StatusNotFound, Detail: "workflow not found"}}
		rec := doRequest(t, newTestServer(nil, nil, rly), http.MethodPost, "/api/webhook", validBody)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		var body WebhookResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Success || body.Detail != "workflow not found" {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		rly := &fakeRelay{err: context.DeadlineExceeded}
		rec := doRequest(t, newTestServer(nil, nil, rly), http.MethodPost, "/api/webhook", validBody)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		rec := doRequest(t, newTestServer(nil, nil, &fakeRelay{}), http.MethodPost, "/api/webhook", `{"product":{}}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(&fakeText{response: "x"}, nil, nil)
	s.config.Server.MaxBodyBytes = 64

	oversized := `{"title":"` + strings.Repeat("x", 128) + `","url":"https://example.com","imageUrl":"https://a"}`
	rec := doRequest(t, s, http.MethodPost, "/api/generate", oversized)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for oversized body", rec.Code)
	}
}
