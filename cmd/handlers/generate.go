package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"whimsy/internal/config"
	"whimsy/internal/core"
	"whimsy/internal/logger"
)

// NewGenerateCmd creates the generate command for one-shot CLI generation
func NewGenerateCmd() *cobra.Command {
	var (
		title       string
		productURL  string
		imageFile   string
		imageURL    string
		contentType string
		output      string
		sendWebhook bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a content bundle for one product without the server",
		Long: `Run the full generation pipeline once from the command line.

Examples:
  # Generate from a hosted product image
  whimsy generate --title "Ohora Gel Strips" --url https://amzn.to/xyz --image-url https://cdn.example/p.png

  # Generate from a local screenshot and relay the result downstream
  whimsy generate --title "Ohora Gel Strips" --url https://amzn.to/xyz --image product.png --relay`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), generateOptions{
				title:       title,
				productURL:  productURL,
				imageFile:   imageFile,
				imageURL:    imageURL,
				contentType: contentType,
				output:      output,
				sendWebhook: sendWebhook,
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Product title (required)")
	cmd.Flags().StringVar(&productURL, "url", "", "Product affiliate URL (required)")
	cmd.Flags().StringVar(&imageFile, "image", "", "Path to a local product image")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "URL of a hosted product image")
	cmd.Flags().StringVar(&contentType, "content-type", "Review", "Content type: Review or Article")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the bundle JSON to a file instead of stdout")
	cmd.Flags().BoolVar(&sendWebhook, "relay", false, "Relay the generated bundle to the configured webhook")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

type generateOptions struct {
	title       string
	productURL  string
	imageFile   string
	imageURL    string
	contentType string
	output      string
	sendWebhook bool
}

func runGenerate(ctx context.Context, opts generateOptions) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	req := core.GenerationRequest{
		Title:       opts.title,
		URL:         opts.productURL,
		ContentType: core.ContentType(opts.contentType),
		ImageURL:    opts.imageURL,
	}
	if opts.imageFile != "" {
		data, err := os.ReadFile(opts.imageFile)
		if err != nil {
			return fmt.Errorf("failed to read product image: %w", err)
		}
		req.ImageBase64 = "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	pl, rly, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	if !pl.Ready() {
		return fmt.Errorf("Gemini API key is not configured")
	}

	log.Info("Generating content bundle", "title", req.Title)

	bundle, err := pl.Run(ctx, &req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	encoded, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, encoded, 0644); err != nil {
			return fmt.Errorf("failed to write bundle: %w", err)
		}
		log.Info("Bundle written", "path", opts.output, "images", len(bundle.Images))
	} else {
		fmt.Println(string(encoded))
	}

	if opts.sendWebhook {
		if cfg.Relay.WebhookURL == "" {
			return fmt.Errorf("relay.webhook_url is not configured")
		}
		log.Info("Relaying bundle to automation webhook")
		if _, err := rly.Process(ctx, &core.RelayRequest{
			Product:          req,
			GeneratedContent: bundle,
		}); err != nil {
			return fmt.Errorf("webhook relay failed: %w", err)
		}
		log.Info("Bundle relayed successfully")
	}

	return nil
}
