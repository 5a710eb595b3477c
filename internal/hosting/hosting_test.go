package hosting

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"whimsy/internal/logger"
)

func newUploader(t *testing.T, primary, fallback http.HandlerFunc) (*Uploader, *int, *int) {
	t.Helper()
	primaryCalls, fallbackCalls := 0, 0

	primarySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls++
		primary(w, r)
	}))
	fallbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackCalls++
		fallback(w, r)
	}))
	t.Cleanup(primarySrv.Close)
	t.Cleanup(fallbackSrv.Close)

	u := NewUploader(Config{PrimaryURL: primarySrv.URL, FallbackURL: fallbackSrv.URL}, logger.Get())
	return u, &primaryCalls, &fallbackCalls
}

func TestUploadPrimarySuccess(t *testing.T) {
	u, _, fallbackCalls := newUploader(t,
		func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("expected multipart form: %v", err)
			}
			if _, _, err := r.FormFile("file"); err != nil {
				t.Errorf("missing file field: %v", err)
			}
			fmt.Fprint(w, `{"status":"success","data":{"url":"https://tmpfiles.org/1234/generated-0.png"}}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("fallback should not be called")
		},
	)

	url, err := u.Upload(context.Background(), "generated-0.png", []byte("pixels"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://tmpfiles.org/dl/1234/generated-0.png" {
		t.Errorf("Upload() = %q, want direct download form", url)
	}
	if *fallbackCalls != 0 {
		t.Errorf("fallback called %d times, want 0", *fallbackCalls)
	}
}

func TestUploadFallsBackOnPrimary500(t *testing.T) {
	u, primaryCalls, fallbackCalls := newUploader(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		func(w http.ResponseWriter, r *http.Request) {
			if got := r.FormValue("expires"); got != "1d" {
				t.Errorf("expires = %q, want 1d", got)
			}
			fmt.Fprint(w, `{"success":true,"link":"https://file.io/abc123"}`)
		},
	)

	url, err := u.Upload(context.Background(), "generated-1.png", []byte("pixels"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://file.io/abc123" {
		t.Errorf("Upload() = %q, want fallback link", url)
	}
	if *primaryCalls != 1 || *fallbackCalls != 1 {
		t.Errorf("calls = %d/%d, want one attempt each", *primaryCalls, *fallbackCalls)
	}
}

func TestUploadFallsBackOnMalformedPrimaryBody(t *testing.T) {
	u, _, _ := newUploader(t,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>not json</html>`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success":true,"link":"https://file.io/xyz"}`)
		},
	)

	url, err := u.Upload(context.Background(), "p.png", []byte("pixels"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://file.io/xyz" {
		t.Errorf("Upload() = %q, want fallback link", url)
	}
}

func TestUploadBothHostsFail(t *testing.T) {
	u, primaryCalls, fallbackCalls := newUploader(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success":false}`)
		},
	)

	_, err := u.Upload(context.Background(), "p.png", []byte("pixels"))
	if err == nil {
		t.Fatal("Upload() error = nil, want error when both hosts fail")
	}
	if *primaryCalls != 1 || *fallbackCalls != 1 {
		t.Errorf("calls = %d/%d, want exactly one attempt each (no retries)", *primaryCalls, *fallbackCalls)
	}
}

func TestDirectDownloadURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://tmpfiles.org/1234/file.png", "https://tmpfiles.org/dl/1234/file.png"},
		{"https://tmpfiles.org/dl/1234/file.png", "https://tmpfiles.org/dl/1234/file.png"},
		{"https://tmpfiles.org", "https://tmpfiles.org"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := directDownloadURL(tt.in); got != tt.want {
				t.Errorf("directDownloadURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUploadPrimaryNonSuccessStatusField(t *testing.T) {
	u, _, _ := newUploader(t,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"error","data":{}}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success":true,"link":"https://file.io/fb"}`)
		},
	)

	url, err := u.Upload(context.Background(), "p.png", []byte("pixels"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(url, "https://file.io/") {
		t.Errorf("Upload() = %q, want fallback link", url)
	}
}
