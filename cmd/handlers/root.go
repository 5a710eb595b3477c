package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"whimsy/internal/config"
	"whimsy/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "whimsy",
		Short: "Whimsy generates affiliate review content and relays it to an automation workflow.",
		Long: `Whimsy turns one product link and screenshot into a full content bundle:
an SEO-repaired review blog post, a three-pin Pinterest pack and five
supplementary images, generated with Google Gemini. The bundle can be
relayed to a downstream automation webhook with all binaries rehosted
as public URLs.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.whimsy.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewGenerateCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads configuration and initializes the logger from it.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
}
