// Package images fans out the five supplementary image generations, each
// with its own bounded model-rotation retry loop.
package images

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"whimsy/internal/core"
	"whimsy/internal/prompt"
)

// maxAttempts bounds the retry loop per asset. Each attempt picks the next
// model in the rotation, so three attempts cover the whole rotation once.
const maxAttempts = 3

// Generator is the one gateway call the orchestrator needs.
type Generator interface {
	GenerateImage(ctx context.Context, promptText string, aspect core.AspectRatio, model string) (core.InlineImage, error)
}

// Orchestrator runs the per-asset retry loops concurrently.
type Orchestrator struct {
	gen    Generator
	models []string
	log    *slog.Logger
}

// New creates an orchestrator over the given model rotation.
func New(gen Generator, models []string, log *slog.Logger) *Orchestrator {
	return &Orchestrator{gen: gen, models: models, log: log}
}

// Generate produces zero to five assets for the given specs. Assets whose
// retry budget is exhausted are omitted, never null-padded, so the output
// order is the spec order minus the failures. A failing asset never aborts
// the others.
func (o *Orchestrator) Generate(ctx context.Context, specs []prompt.ImageSpec) []core.ImageAsset {
	results := make([]*core.ImageAsset, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			img, ok := o.generateWithRetry(ctx, spec)
			if ok {
				results[i] = &core.ImageAsset{
					DataURL:     img.DataURL(),
					Label:       spec.Label,
					AspectRatio: spec.AspectRatio,
				}
			}
			return nil
		})
	}
	// The goroutines only ever return nil; Wait is a join point.
	_ = g.Wait()

	assets := make([]core.ImageAsset, 0, len(specs))
	for _, r := range results {
		if r != nil {
			assets = append(assets, *r)
		}
	}
	return assets
}

// generateWithRetry tries up to maxAttempts model variants and reports
// whether any produced a payload. Exhaustion is an expected outcome, not an
// error.
func (o *Orchestrator) generateWithRetry(ctx context.Context, spec prompt.ImageSpec) (core.InlineImage, bool) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		model := o.models[attempt%len(o.models)]

		img, err := o.gen.GenerateImage(ctx, spec.Prompt, spec.AspectRatio, model)
		if err == nil {
			o.log.Info("image generated",
				"label", spec.Label, "model", model, "attempt", attempt+1)
			return img, true
		}

		o.log.Warn("image attempt failed",
			"label", spec.Label, "model", model, "attempt", attempt+1, "error", err.Error())

		if ctx.Err() != nil {
			break
		}
	}

	o.log.Warn("image generation exhausted all attempts", "label", spec.Label)
	return core.InlineImage{}, false
}
