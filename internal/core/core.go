package core

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ContentType selects the blog structure the model is asked to produce.
type ContentType string

const (
	ContentTypeReview  ContentType = "Review"
	ContentTypeArticle ContentType = "Article"
)

// AspectRatio is the image aspect ratio passed to the image models.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

// GenerationRequest is the inbound request for one content generation run.
// Exactly one of ImageBase64 and ImageURL must be set.
type GenerationRequest struct {
	Title       string      `json:"title"`                 // Product title
	URL         string      `json:"url"`                   // Destination (affiliate) URL
	ContentType ContentType `json:"contentType"`           // Review or Article
	ImageBase64 string      `json:"imageBase64,omitempty"` // Product image as data URL or bare base64
	ImageURL    string      `json:"imageUrl,omitempty"`    // Product image as a public URL
}

// Validate checks the invariants the pipeline relies on. An empty content
// type is normalized to Review.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(r.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("url %q is not a valid absolute URL", r.URL)
	}
	if r.ImageBase64 == "" && r.ImageURL == "" {
		return fmt.Errorf("either imageBase64 or imageUrl is required")
	}
	if r.ImageBase64 != "" && r.ImageURL != "" {
		return fmt.Errorf("imageBase64 and imageUrl are mutually exclusive")
	}
	switch r.ContentType {
	case ContentTypeReview, ContentTypeArticle:
	case "":
		r.ContentType = ContentTypeReview
	default:
		return fmt.Errorf("contentType %q is not supported", r.ContentType)
	}
	return nil
}

// ProductImageSrc returns the value substituted for the product image
// placeholder: the public URL when one was supplied, else the inline data.
func (r *GenerationRequest) ProductImageSrc() string {
	if r.ImageURL != "" {
		return r.ImageURL
	}
	return r.ImageBase64
}

// InlineImage is a decoded binary image with its MIME type.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// DataURL encodes the image as a data: URL suitable for JSON transport.
func (img InlineImage) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
}

// ParseDataURL decodes a data: URL, or a bare base64 string, into an
// InlineImage. Bare payloads default to image/png.
func ParseDataURL(s string) (InlineImage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return InlineImage{}, fmt.Errorf("empty image payload")
	}
	mime := "image/png"
	payload := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return InlineImage{}, fmt.Errorf("malformed data URL")
		}
		header := s[len("data:"):comma]
		payload = s[comma+1:]
		if semi := strings.IndexByte(header, ';'); semi >= 0 {
			header = header[:semi]
		}
		if header != "" {
			mime = header
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return InlineImage{}, fmt.Errorf("decode base64 image: %w", err)
	}
	return InlineImage{MIMEType: mime, Data: data}, nil
}

// ImageAsset is one generated image. Assets are identified by Label, never
// by position: a failed generation is omitted from the bundle entirely.
type ImageAsset struct {
	DataURL     string      `json:"dataUrl"`     // Image payload as a data: URL
	Label       string      `json:"label"`       // Fixed identity, e.g. "Editorial Banner"
	AspectRatio AspectRatio `json:"aspectRatio"` // 16:9 or 9:16
}

// PinRecord is one parsed Pinterest pin.
type PinRecord struct {
	ID          int    `json:"id"`          // Emission order, starting at 1
	Title       string `json:"title"`       // Pin title, may be empty
	Description string `json:"description"` // Pin description, may be empty
	Hashtags    string `json:"hashtags"`    // Raw hashtag line, may be empty
}

// BlogData carries the structured fields extracted from the blog HTML.
type BlogData struct {
	Rating  string `json:"rating"`  // Numeric rating label, defaults to "5.0"
	Verdict string `json:"verdict"` // Final verdict paragraph with markup stripped
}

// GeneratedBundle is the complete artifact set returned for one request.
type GeneratedBundle struct {
	BlogHTML       string       `json:"blogHtml"`
	PinterestPack  string       `json:"pinterestPack"`
	StructuredPins []PinRecord  `json:"structuredPins"`
	BlogData       BlogData     `json:"blogData"`
	Images         []ImageAsset `json:"images"`
}

// RelayRequest is the inbound body of the webhook relay flow. The client
// sends back the product fields plus the bundle it received from generation.
type RelayRequest struct {
	Product          GenerationRequest `json:"product"`
	GeneratedContent GeneratedBundle   `json:"generatedContent"`
	Timestamp        string            `json:"timestamp"`
	Year             int               `json:"year"`
}

// RelaySchemaVersion tags outbound relay payloads so downstream automations
// can detect shape changes.
const RelaySchemaVersion = "1.0"

// RelayProduct is the product block of the outbound relay payload. It never
// carries inline image data.
type RelayProduct struct {
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	ContentType ContentType `json:"contentType"`
	ImageURL    string      `json:"imageUrl,omitempty"`
}

// RelayImage replaces an ImageAsset once its payload has been rehosted.
// URL is empty when both file hosts failed for the asset.
type RelayImage struct {
	URL         string      `json:"url,omitempty"`
	Label       string      `json:"label"`
	AspectRatio AspectRatio `json:"aspectRatio"`
}

// RelayContent mirrors GeneratedBundle with hosted URLs instead of binaries.
type RelayContent struct {
	BlogHTML       string       `json:"blogHtml"`
	PinterestPack  string       `json:"pinterestPack"`
	StructuredPins []PinRecord  `json:"structuredPins"`
	BlogData       BlogData     `json:"blogData"`
	Images         []RelayImage `json:"images"`
}

// RelayPayload is the final JSON document posted to the downstream
// automation webhook. Invariant: no field contains base64 image data.
type RelayPayload struct {
	Product          RelayProduct `json:"product"`
	GeneratedContent RelayContent `json:"generatedContent"`
	TempOrgFiles     []string     `json:"tempOrgFiles"` // Every externally hosted URL in the payload
	Timestamp        string       `json:"timestamp"`
	Year             int          `json:"year"`
	SchemaVersion    string       `json:"schemaVersion"`
}
