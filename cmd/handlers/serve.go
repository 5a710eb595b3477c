package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"whimsy/internal/config"
	"whimsy/internal/gemini"
	"whimsy/internal/hosting"
	"whimsy/internal/images"
	"whimsy/internal/logger"
	"whimsy/internal/pipeline"
	"whimsy/internal/relay"
	"whimsy/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the content generation HTTP server",
		Long: `Start the whimsy HTTP server.

The server provides:
  • POST /api/generate  - full content bundle generation
  • POST /api/webhook   - relay a bundle to the automation workflow
  • GET  /api/health    - liveness check
  • GET  /api/status    - configuration and uptime

Examples:
  # Start server on default port 3000
  whimsy serve

  # Start on custom port
  whimsy serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 3000)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override server config from flags if provided
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	pl, rly, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(pl, rly, cfg)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", cfg.Server.Host, cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}

// buildPipeline wires the generation and relay components from config. A
// missing Gemini API key leaves the pipeline not ready so the server can
// still boot and report the problem per request.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, server.WebhookRelay, error) {
	log := logger.Get()

	var text pipeline.TextGenerator
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.AI.Gemini.APIKey,
		TextModel:   cfg.AI.Gemini.TextModel,
		Temperature: cfg.AI.Gemini.Temperature,
		Timeout:     cfg.AI.Gemini.Timeout,
	})
	switch {
	case err == nil:
		text = client
	case errors.Is(err, gemini.ErrMissingAPIKey):
		log.Warn("Gemini API key is not configured, generation requests will fail until it is set")
	default:
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	orchestrator := images.New(client, cfg.AI.Gemini.ImageModels, log)

	uploader := hosting.NewUploader(hosting.Config{
		PrimaryURL:  cfg.Hosting.PrimaryURL,
		FallbackURL: cfg.Hosting.FallbackURL,
		Timeout:     cfg.Hosting.Timeout,
	}, log)

	rly := relay.New(uploader, relay.Config{
		WebhookURL: cfg.Relay.WebhookURL,
		UserAgent:  cfg.Relay.UserAgent,
		Timeout:    cfg.Relay.Timeout,
	}, log)

	return pipeline.New(text, orchestrator, log), rly, nil
}
