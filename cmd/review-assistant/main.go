// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the review-assistant CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-assistant/internal/llm"
	"github.com/pdiddy/review-assistant/internal/logging"
	"github.com/pdiddy/review-assistant/internal/secrets"
	"github.com/pdiddy/review-assistant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the review-assistant CLI.
var rootCmd = &cobra.Command{
	Use:   "review-assistant",
	Short: "LLM-assisted systematic literature reviews over PubMed exports",
	Long: `review-assistant runs a systematic literature review as a resumable
pipeline: plan generation, PubMed download, screening, data extraction,
quality assessment, thematic synthesis, and report generation.

Each stage checkpoints its results into the working directory, so an
interrupted run picks up where it stopped and re-running a finished
review makes no model calls.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./review-assistant.yaml or ~/.config/review-assistant/config.yaml)")
	rootCmd.PersistentFlags().String("workdir", "review", "working directory for the review")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider: anthropic, openrouter, together, groq, local")
	rootCmd.PersistentFlags().String("model", "", "model identifier (provider default when empty)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: json or console")

	viper.BindPFlag("workdir", rootCmd.PersistentFlags().Lookup("workdir"))
	viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	viper.SetDefault("workdir", "review")
	viper.SetDefault("llm.provider", "anthropic")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "console")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("review-assistant")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "review-assistant"))
		}
	}

	viper.SetEnvPrefix("REVIEW_ASSISTANT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// rootLogger builds the process logger from the resolved configuration.
func rootLogger() zerolog.Logger {
	return logging.New(viper.GetString("log_level"), viper.GetString("log_format"))
}

func workdir() string {
	return viper.GetString("workdir")
}

// llmConfig assembles the client configuration from config file, flags,
// and stored secrets. The client itself falls back to the provider's
// environment variable when no key is found here.
func llmConfig() types.LLMConfig {
	provider := viper.GetString("llm.provider")

	apiKey := viper.GetString("llm.api_key")
	if apiKey == "" {
		apiKey = secrets.ProviderKey(loadedSecrets, provider)
	}

	return types.LLMConfig{
		Provider:    provider,
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		APIKey:      apiKey,
		Timeout:     viper.GetDuration("llm.timeout"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		MaxRequests: viper.GetInt("llm.max_requests"),
		RatePeriod:  viper.GetDuration("llm.rate_period"),
	}
}

func newLLMClient(log zerolog.Logger) (*llm.Client, error) {
	return llm.New(llmConfig(), log)
}

func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Workdir:         workdir(),
		CheckpointEvery: viper.GetInt("pipeline.checkpoint_every"),
		CheckpointPause: viper.GetDuration("pipeline.checkpoint_pause"),
		StrictCache:     viper.GetBool("pipeline.strict_cache"),
		RouteUncertain:  viper.GetBool("pipeline.route_uncertain"),
	}
}

func downloadConfig() types.DownloadConfig {
	apiKey := viper.GetString("download.api_key")
	if apiKey == "" {
		apiKey = loadedSecrets[secrets.NCBIKeyFile]
	}
	delay := viper.GetDuration("download.batch_delay")
	if delay == 0 {
		delay = 500 * time.Millisecond
	}
	return types.DownloadConfig{
		APIKey:     apiKey,
		BatchSize:  viper.GetInt("download.batch_size"),
		BatchDelay: delay,
		Timeout:    viper.GetDuration("download.timeout"),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
