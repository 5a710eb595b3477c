// Package pipeline runs one generation request end to end: prompt assembly,
// concurrent text and image generation, output repair and pin parsing. Both
// the HTTP server and the one-shot CLI drive the same pipeline.
package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"whimsy/internal/core"
	"whimsy/internal/pins"
	"whimsy/internal/prompt"
	"whimsy/internal/repair"
)

// TextGenerator produces the combined blog/pin text response.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemInstruction, promptText string, image *core.InlineImage) (string, error)
}

// ImageGenerator produces the supplementary image assets.
type ImageGenerator interface {
	Generate(ctx context.Context, specs []prompt.ImageSpec) []core.ImageAsset
}

// Pipeline turns a validated generation request into a content bundle.
type Pipeline struct {
	text   TextGenerator
	images ImageGenerator
	log    *slog.Logger
}

// New creates a Pipeline. A nil TextGenerator is allowed so callers can
// boot without an API key; Ready reports whether Run can succeed.
func New(text TextGenerator, images ImageGenerator, log *slog.Logger) *Pipeline {
	return &Pipeline{text: text, images: images, log: log}
}

// Ready reports whether the text generator is configured.
func (p *Pipeline) Ready() bool {
	return p.text != nil
}

// Run executes the full pipeline. Text generation failure aborts the run
// with the generator's error; image generation never fails the run, it just
// yields fewer assets. The request must already be validated.
func (p *Pipeline) Run(ctx context.Context, req *core.GenerationRequest) (core.GeneratedBundle, error) {
	promptText, err := prompt.BuildTextPrompt(req)
	if err != nil {
		return core.GeneratedBundle{}, err
	}

	var inline *core.InlineImage
	if req.ImageBase64 != "" {
		img, err := core.ParseDataURL(req.ImageBase64)
		if err != nil {
			return core.GeneratedBundle{}, err
		}
		inline = &img
	}

	var (
		raw    string
		assets []core.ImageAsset
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		raw, err = p.text.GenerateText(gctx, prompt.SystemInstruction, promptText, inline)
		return err
	})
	g.Go(func() error {
		assets = p.images.Generate(gctx, prompt.ImageSpecs(req.Title))
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.GeneratedBundle{}, err
	}

	blogHTML, pinPack := repair.Split(raw, prompt.Separator)
	blogHTML = repair.EnforceLinks(blogHTML, req.URL)
	blogHTML = repair.ReplacePlaceholders(blogHTML, req.ProductImageSrc(), lifestyleSrc(assets))

	bundle := core.GeneratedBundle{
		BlogHTML:       blogHTML,
		PinterestPack:  pinPack,
		StructuredPins: pins.Parse(pinPack),
		BlogData:       repair.ExtractBlogData(blogHTML),
		Images:         assets,
	}

	p.log.Info("generation pipeline completed",
		"title", req.Title, "images", len(assets), "pins", len(bundle.StructuredPins))
	return bundle, nil
}

// lifestyleSrc picks the lifestyle asset's source for the in-article
// placeholder. Missing lifestyle falls back to the product image inside
// ReplacePlaceholders, so empty is fine here.
func lifestyleSrc(assets []core.ImageAsset) string {
	for _, a := range assets {
		if a.Label == prompt.LabelLifestyle {
			return a.DataURL
		}
	}
	return ""
}
