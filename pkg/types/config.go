// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// LLMConfig holds settings for the text-generation client. Built once at
// process start and passed into the client constructor; never mutated.
type LLMConfig struct {
	// Provider selects the API shape: anthropic, openrouter, together,
	// groq, or local.
	Provider string `json:"provider" yaml:"provider"`

	// Model is the model identifier (provider default when empty).
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// BaseURL overrides the provider's default API base URL.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey is the authentication key (env-var fallback per provider).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout is the per-request HTTP timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the attempt budget for a single call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxRequests and RatePeriod bound the outbound request rate: at most
	// MaxRequests calls within any trailing RatePeriod window.
	MaxRequests int           `json:"max_requests" yaml:"max_requests"`
	RatePeriod  time.Duration `json:"rate_period" yaml:"rate_period"`
}

// PipelineConfig holds settings for the review pipeline.
type PipelineConfig struct {
	// Workdir is the working directory holding the plan, the input file,
	// and all stage caches.
	Workdir string `json:"workdir" yaml:"workdir"`

	// CheckpointEvery is the number of newly processed items between cache
	// rewrites (default 10).
	CheckpointEvery int `json:"checkpoint_every" yaml:"checkpoint_every"`

	// CheckpointPause is the courtesy delay after each checkpoint write.
	CheckpointPause time.Duration `json:"checkpoint_pause" yaml:"checkpoint_pause"`

	// StrictCache makes an unreadable cache file fatal instead of falling
	// back to reprocessing the whole stage.
	StrictCache bool `json:"strict_cache" yaml:"strict_cache"`

	// RouteUncertain sends UNCERTAIN screening decisions into the
	// extraction stage alongside the INCLUDEs.
	RouteUncertain bool `json:"route_uncertain" yaml:"route_uncertain"`
}

// DownloadConfig holds settings for the PubMed download stage.
type DownloadConfig struct {
	// APIKey is an optional NCBI E-utilities key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BatchSize is the number of PMIDs fetched per EFetch request
	// (default and maximum 200).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// BatchDelay is the courtesy delay between batch requests.
	BatchDelay time.Duration `json:"batch_delay" yaml:"batch_delay"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// StoreConfig holds settings for the review store.
type StoreConfig struct {
	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Config groups all component configurations.
type Config struct {
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Download DownloadConfig `json:"download" yaml:"download"`
	Store    StoreConfig    `json:"store" yaml:"store"`

	// LogLevel and LogFormat configure the zerolog sink.
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
}
