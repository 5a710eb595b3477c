// Package repair post-processes the raw text-model output: section
// splitting, hyperlink enforcement, placeholder substitution and structured
// field extraction. Everything here is best-effort textual repair over
// model output, not a real markup parser; each step has a defined fallback
// so a malformed response still yields a structurally valid bundle.
package repair

import (
	"fmt"
	"regexp"
	"strings"

	"whimsy/internal/core"
	"whimsy/internal/prompt"
)

// seoKeywords is the fixed vocabulary the link enforcer scans for. The
// model is instructed to hyperlink these itself; this is the fallback for
// when it does not comply.
var seoKeywords = []string{
	"salon-quality", "aesthetic finish", "manicure kit", "ohora strips", "beauty trends",
	"durable finish", "nail care", "bestie manicure", "editorial nails", "premium aesthetic",
	"gel nail strips", "high-end", "luxury brand", "Pinterest style",
}

var keywordPatterns = compileKeywordPatterns()

func compileKeywordPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(seoKeywords))
	for _, kw := range seoKeywords {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return patterns
}

// Split divides the raw model response at the first occurrence of the
// delimiter. When the delimiter is absent the whole response is treated as
// the article and the pin pack is empty; this mirrors the upstream
// behavior and never hard-fails.
func Split(raw, delimiter string) (article, pinPack string) {
	idx := strings.Index(raw, delimiter)
	if idx < 0 {
		return strings.TrimSpace(raw), ""
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+len(delimiter):])
}

// EnforceLinks wraps every unlinked occurrence of the keyword vocabulary in
// an anchor pointing at destURL, marked nofollow/sponsored and opened in a
// new tab. Occurrences already inside an anchor, or inside a tag, are left
// alone, which also makes the operation idempotent.
func EnforceLinks(html, destURL string) string {
	for _, pattern := range keywordPatterns {
		html = wrapMatches(html, pattern, destURL)
	}
	return html
}

func wrapMatches(html string, pattern *regexp.Regexp, destURL string) string {
	matches := pattern.FindAllStringIndex(html, -1)
	if matches == nil {
		return html
	}

	var b strings.Builder
	b.Grow(len(html) + len(matches)*80)
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if insideAnchor(html, start, end) || insideTag(html, start) {
			continue
		}
		b.WriteString(html[last:start])
		fmt.Fprintf(&b, `<a href="%s" target="_blank" rel="nofollow sponsored noopener">%s</a>`,
			destURL, html[start:end])
		last = end
	}
	b.WriteString(html[last:])
	return b.String()
}

// anchorOpenPattern matches an opening anchor tag but not <article>.
var anchorOpenPattern = regexp.MustCompile(`(?i)<a[\s>]`)

// insideAnchor reports whether the span [start,end) already sits between an
// opening <a> and its closing </a>. It checks both sides of the span, the
// textual equivalent of the lookaround exclusion the repair contract asks
// for.
func insideAnchor(html string, start, end int) bool {
	before := strings.ToLower(html[:start])
	lastOpen := -1
	if opens := anchorOpenPattern.FindAllStringIndex(before, -1); opens != nil {
		lastOpen = opens[len(opens)-1][0]
	}
	lastClose := strings.LastIndex(before, "</a>")
	if lastOpen < 0 || lastClose > lastOpen {
		return false
	}
	// An anchor is open before the span; it encloses the span if the next
	// anchor token after it is a close.
	after := strings.ToLower(html[end:])
	nextClose := strings.Index(after, "</a>")
	if nextClose < 0 {
		return false
	}
	nextOpen := len(after)
	if loc := anchorOpenPattern.FindStringIndex(after); loc != nil {
		nextOpen = loc[0]
	}
	return nextClose < nextOpen
}

// insideTag reports whether position start falls inside an HTML tag, i.e.
// between an unclosed '<' and its '>'. Keywords inside attribute values
// must never be wrapped.
func insideTag(html string, start int) bool {
	before := html[:start]
	lastLt := strings.LastIndexByte(before, '<')
	lastGt := strings.LastIndexByte(before, '>')
	return lastLt > lastGt
}

// ReplacePlaceholders substitutes the two fixed image placeholder tokens.
// A missing lifestyle image falls back to the product image source so no
// token ever survives to the final output.
func ReplacePlaceholders(html, productSrc, lifestyleSrc string) string {
	if lifestyleSrc == "" {
		lifestyleSrc = productSrc
	}
	html = strings.ReplaceAll(html, prompt.ProductImagePlaceholder, productSrc)
	html = strings.ReplaceAll(html, prompt.LifestyleImagePlaceholder, lifestyleSrc)
	return html
}

var (
	ratingPattern  = regexp.MustCompile(`(?i)Rating:\s*([\d.]+)`)
	verdictPattern = regexp.MustCompile(`(?is)<h2>Final Verdict</h2>\s*<p>(.*?)</p>`)
	tagPattern     = regexp.MustCompile(`<[^>]*>?`)
)

// DefaultRating is used when no rating can be extracted from the article.
const DefaultRating = "5.0"

// ExtractBlogData pulls the rating label and the verdict paragraph out of
// the article text. Both are optional: the rating defaults to
// DefaultRating and the verdict to the empty string.
func ExtractBlogData(articleHTML string) core.BlogData {
	data := core.BlogData{Rating: DefaultRating}

	if m := ratingPattern.FindStringSubmatch(articleHTML); m != nil {
		data.Rating = m[1]
	}
	if m := verdictPattern.FindStringSubmatch(articleHTML); m != nil {
		data.Verdict = strings.TrimSpace(tagPattern.ReplaceAllString(m[1], ""))
	}
	return data
}
