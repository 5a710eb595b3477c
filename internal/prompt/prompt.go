// Package prompt builds the text-generation prompt and the five image
// prompts for one generation request. It performs no network calls.
package prompt

import (
	"fmt"
	"strings"

	"whimsy/internal/core"
)

// Separator splits the model's text response into the blog HTML and the
// Pinterest pack. The system instruction and the user prompt both restate it.
const Separator = "|||SEPARATOR|||"

// Placeholder tokens the model is instructed to emit verbatim. The repair
// pipeline replaces them with real URLs.
const (
	ProductImagePlaceholder   = "{{PRODUCT_IMAGE_URL}}"
	LifestyleImagePlaceholder = "{{LIFESTYLE_IMAGE_URL}}"
)

// SystemInstruction is the fixed brand/system prompt for text generation.
const SystemInstruction = `
CRITICAL SEO LINKING RULES (HIGHEST PRIORITY - TARGET #1 GOOGLE RANKING)
- Your goal is to RANK NUMBER 1 ON GOOGLE for trending long-tail keywords.
- You MUST hyperlink AT LEAST 20-30 different words and phrases throughout the blog post.
- These links MUST point to the provided product link.
- DO NOT just link generic words like "Amazon" or "click here".
- LINK DESCRIPTIVE BEAUTY TERMS: "editorial nails", "aesthetic finish", "manicure kit", "ohora gel strips", "beauty trends", "salon-quality", "durable finish", "nail care", "bestie manicure", "premium aesthetic".
- A link MUST appear every 2-3 sentences. THIS IS NON-NEGOTIABLE.

You are a premium SEO product review writer and Pinterest affiliate content expert for the beauty, lifestyle, and aesthetic product niche.

Brand identity (fixed):
PolishedWhimsyNails

Your writing must reflect a polished, aesthetic, and trustworthy brand voice, but keep it chill, breezy, and conversational. Avoid being overly formal or stiff. Sounds like a real bestie reviewer.

OUTPUT REQUIREMENTS (CRITICAL)

You MUST output TWO SECTIONS ONLY, in this exact order, separated by the delimiter "|||SEPARATOR|||":

1. BLOG_HTML (valid, clean, copy-paste HTML)
2. PINTEREST_PACK (plain text only)

No extra commentary. No markdown code fences around the HTML block specifically (just raw HTML). No explanations.

1) BLOG_HTML (STRICT)

- Output must start with: <article class="pwn-review">
- Output must end with: </article>
- Use only these HTML tags: article, header, h1, h2, h3, p, ul, li, a, figure, img, figcaption, strong, em, section, hr
- Use the provided product URL in links (with target="_blank" rel="nofollow sponsored noopener")
- DO NOT use emojis in BLOG_HTML
- Main product image uses src placeholder {{PRODUCT_IMAGE_URL}} at the top of the post, wrapped in an <a> tag pointing to the product URL.
- Lifestyle image uses src placeholder {{LIFESTYLE_IMAGE_URL}} at the bottom of the post, before the disclaimer, also wrapped in an <a> tag.
- Include "Rating: 5.0 / 5", a <h2>Final Verdict</h2> section with one persuasive paragraph, and a final affiliate CTA link.
- If Content Type = Article, add a section "What to Look for When Buying" after the main review section.
- End with <hr> and a disclaimer.

2) PINTEREST_PACK (PLAIN TEXT ONLY)

After the separator, output a plain-text section that starts EXACTLY with:

PINTEREST_PACK:

Then three pins, each in this shape:

PIN 1:
Pinterest Title: [Catchy Title]
Pinterest Description: [2-3 friendly, SEO-rich paragraphs]
Hashtags: [Minimum 25 relevant hashtags]

IMAGE TRUTHFULNESS:
Describe ONLY what is visible (color, finish, shape, texture, packaging). Do NOT claim features you cannot infer from the image.
`

// textPromptTemplate restates the link-density requirement ahead of the
// product fields; the model weights the leading block most heavily.
const textPromptTemplate = `CRITICAL SEO REQUIREMENT: You MUST HYPERLINK AT LEAST 20-30 beauty-related words/phrases throughout the blog to the product link: %s
Link keywords like: "salon-quality", "aesthetic nails", "ohora strips", "durable finish", "bestie manicure", "nail care trends".
Ensure a link appears every 2-3 sentences.

Product Title: %s
Product URL: %s
Content Type: %s

Please generate the BLOG_HTML and PINTEREST_PACK according to the system instructions.

Ensure that BOTH the Main Product Image (%s) AND the Lifestyle Image (%s) are wrapped in <a> tags linking to: %s

The Lifestyle Image MUST be the absolute last visual element before the disclaimer.

Separate sections with %s.`

// BuildTextPrompt renders the user prompt for the text-generation call.
func BuildTextPrompt(req *core.GenerationRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.URL) == "" {
		return "", fmt.Errorf("title and url are required to build a prompt")
	}
	return fmt.Sprintf(textPromptTemplate,
		req.URL,
		req.Title,
		req.URL,
		req.ContentType,
		ProductImagePlaceholder,
		LifestyleImagePlaceholder,
		req.URL,
		Separator,
	), nil
}

// ImageSpec describes one of the five supplementary images.
type ImageSpec struct {
	Label       string           // Fixed identity carried through to the bundle
	AspectRatio core.AspectRatio // 16:9 for blog visuals, 9:16 for pins
	Prompt      string           // Natural-language generation prompt
}

// Fixed labels for the five generated assets, in bundle order.
const (
	LabelBanner    = "Editorial Banner"
	LabelLifestyle = "Lifestyle Context"
	LabelPin1      = "Pin 1"
	LabelPin2      = "Pin 2"
	LabelPin3      = "Pin 3"
)

// ImageSpecs returns the five image prompts for a product title, in the
// fixed bundle order: banner, lifestyle, pin 1-3.
func ImageSpecs(title string) []ImageSpec {
	return []ImageSpec{
		{
			Label:       LabelBanner,
			AspectRatio: core.AspectLandscape,
			Prompt:      fmt.Sprintf("Premium high-end editorial nail polish photography, luxury brand aesthetic, commercial studio lighting, 16:9 aspect, %s", title),
		},
		{
			Label:       LabelLifestyle,
			AspectRatio: core.AspectLandscape,
			Prompt:      fmt.Sprintf("Aesthetic lifestyle shot of two beautiful women showing off their gorgeous nails, happy, trendy, 16:9 aspect, %s", title),
		},
		{
			Label:       LabelPin1,
			AspectRatio: core.AspectPortrait,
			Prompt:      fmt.Sprintf("Pinterest vertical aesthetic pin, fashion blog style, 9:16 aspect, %s", title),
		},
		{
			Label:       LabelPin2,
			AspectRatio: core.AspectPortrait,
			Prompt:      fmt.Sprintf("Close-up detail shot of beautiful nails, trendy color and texture, vertical 9:16 aspect, %s", title),
		},
		{
			Label:       LabelPin3,
			AspectRatio: core.AspectPortrait,
			Prompt:      "Flatlay composition of nail accessories and beauty products, chic aesthetic, vertical 9:16 aspect",
		},
	}
}
