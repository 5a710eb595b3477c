package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     App     `mapstructure:"app"`
	Server  Server  `mapstructure:"server"`
	AI      AI      `mapstructure:"ai"`
	Hosting Hosting `mapstructure:"hosting"`
	Relay   Relay   `mapstructure:"relay"`
	Logging Logging `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	TextModel   string        `mapstructure:"text_model"`
	ImageModels []string      `mapstructure:"image_models"` // Fixed rotation tried on successive attempts
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Hosting holds public file host configuration for image rehosting
type Hosting struct {
	PrimaryURL  string        `mapstructure:"primary_url"`
	FallbackURL string        `mapstructure:"fallback_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Relay holds downstream automation webhook configuration
type Relay struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from .env, config file, environment
// variables and defaults, in the usual viper precedence order.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".whimsy")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)

	// Server defaults. The write timeout is generous on purpose: one
	// generation request fans out into up to 16 upstream model calls.
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.read_timeout", "2m")
	viper.SetDefault("server.write_timeout", "5m")
	viper.SetDefault("server.max_body_bytes", 200<<20)

	// AI defaults
	viper.SetDefault("ai.gemini.text_model", "gemini-2.0-flash")
	viper.SetDefault("ai.gemini.image_models", []string{
		"gemini-2.5-flash-image",
		"gemini-3-pro-image-preview",
		"gemini-2.0-flash-exp-image-generation",
	})
	viper.SetDefault("ai.gemini.temperature", 0.8)
	viper.SetDefault("ai.gemini.timeout", "120s")

	// Hosting defaults
	viper.SetDefault("hosting.primary_url", "https://tmpfiles.org/api/v1/upload")
	viper.SetDefault("hosting.fallback_url", "https://file.io")
	viper.SetDefault("hosting.timeout", "45s")

	// Relay defaults
	viper.SetDefault("relay.user_agent", "PolishedWhimsy-Server/1.0")
	viper.SetDefault("relay.timeout", "60s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Gemini API key - support multiple formats, including the bare
	// API_KEY the original deployment used
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"API_KEY",
	})

	bindEnvKeys("relay.webhook_url", []string{
		"WEBHOOK_URL",
		"N8N_WEBHOOK_URL",
	})

	bindEnvKeys("server.port", []string{
		"PORT",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"WHIMSY_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if _, ok := os.LookupEnv(envKey); ok {
			_ = viper.BindEnv(viperKey, envKey)
			return
		}
	}
	// Bind the primary name anyway so later exports are picked up
	if len(envKeys) > 0 {
		_ = viper.BindEnv(viperKey, envKeys[0])
	}
}

// validateConfig checks structural configuration problems. A missing Gemini
// API key is deliberately not fatal here: the server boots and surfaces the
// missing credential per request instead.
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", config.Server.Port)
	}
	if len(config.AI.Gemini.ImageModels) == 0 {
		return fmt.Errorf("ai.gemini.image_models must list at least one model")
	}
	if config.Hosting.PrimaryURL == "" || config.Hosting.FallbackURL == "" {
		return fmt.Errorf("hosting.primary_url and hosting.fallback_url are required")
	}
	return nil
}

// Reset clears the cached global configuration. Intended for tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}
