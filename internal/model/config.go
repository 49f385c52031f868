package model

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the complete tempora configuration
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Annotate  AnnotateConfig  `yaml:"annotate" mapstructure:"annotate"`
	DateTag   DateTagConfig   `yaml:"datetag" mapstructure:"datetag"`
	KB        KBConfig        `yaml:"kb" mapstructure:"kb"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Wikipedia WikipediaConfig `yaml:"wikipedia" mapstructure:"wikipedia"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// AnnotateConfig controls temporal value annotation
type AnnotateConfig struct {
	Method        string `yaml:"method" mapstructure:"method"`                 // regex, sutime, sutime_regex
	ReferenceTime string `yaml:"reference_time" mapstructure:"reference_time"` // Default reference date, empty = today
	TieBreak      string `yaml:"tie_break" mapstructure:"tie_break"`           // later or earlier
	Workers       int    `yaml:"workers" mapstructure:"workers"`
}

// DateTagConfig points at the external date-tagging service
type DateTagConfig struct {
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxAttempts   int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Backoff       time.Duration `yaml:"backoff" mapstructure:"backoff"`
	RatePerSecond float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// KBConfig points at the KB service and controls retrieval
type KBConfig struct {
	BaseURL             string            `yaml:"base_url" mapstructure:"base_url"`
	Timeout             time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	SearchSpaceAttempts int               `yaml:"search_space_attempts" mapstructure:"search_space_attempts"`
	SearchSpaceBackoff  time.Duration     `yaml:"search_space_backoff" mapstructure:"search_space_backoff"`
	LookupAttempts      int               `yaml:"lookup_attempts" mapstructure:"lookup_attempts"`
	LookupBackoff       time.Duration     `yaml:"lookup_backoff" mapstructure:"lookup_backoff"`
	MaxEntities         int               `yaml:"max_entities" mapstructure:"max_entities"`               // Evidences referencing more entities are dropped
	FrequencyThreshold  int               `yaml:"frequency_threshold" mapstructure:"frequency_threshold"` // Items at or above this are too frequent
	NeighborhoodP       int               `yaml:"neighborhood_p" mapstructure:"neighborhood_p"`
	RatePerSecond       float64           `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Params              map[string]string `yaml:"params" mapstructure:"params"` // Passed through to search-space requests
}

// CacheConfig controls the search-space cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // file or sqlite
	Path      string        `yaml:"path" mapstructure:"path"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
}

// WikipediaConfig controls Wikipedia evidence retrieval
type WikipediaConfig struct {
	Enabled              bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL              string        `yaml:"base_url" mapstructure:"base_url"`         // https://en.wikipedia.org
	WikidataURL          string        `yaml:"wikidata_url" mapstructure:"wikidata_url"` // https://www.wikidata.org/w/api.php
	UserAgent            string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout              time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBytes             int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	RatePerSecond        float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RespectRobots        bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	SkipFrequentEntities bool          `yaml:"skip_frequent_entities" mapstructure:"skip_frequent_entities"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"` // Prefer env vars
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig controls the outer question answering pipeline
type PipelineConfig struct {
	Sources         []string `yaml:"sources" mapstructure:"sources"`
	TopKAnswers     int      `yaml:"topk_answers" mapstructure:"topk_answers"`
	MaxDepth        int      `yaml:"max_depth" mapstructure:"max_depth"`
	ResolveImplicit bool     `yaml:"resolve_implicit" mapstructure:"resolve_implicit"`
	Workers         int      `yaml:"workers" mapstructure:"workers"`
	MaxEvidences    int      `yaml:"max_evidences" mapstructure:"max_evidences"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Annotate: AnnotateConfig{
			Method:   MethodRegex,
			TieBreak: "later",
			Workers:  5,
		},
		DateTag: DateTagConfig{
			BaseURL:       "http://localhost:7780",
			Timeout:       30 * time.Second,
			MaxAttempts:   3,
			Backoff:       time.Second,
			RatePerSecond: 20,
		},
		KB: KBConfig{
			BaseURL:             "http://localhost:7779",
			Timeout:             60 * time.Second,
			SearchSpaceAttempts: 5,
			SearchSpaceBackoff:  time.Second,
			LookupAttempts:      5,
			LookupBackoff:       3 * time.Second,
			MaxEntities:         20,
			FrequencyThreshold:  1_000_000,
			NeighborhoodP:       1000,
			RatePerSecond:       10,
			Params:              map[string]string{},
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "file",
			Path:      "~/.tempora/cache",
			MemoryTTL: 24 * time.Hour,
		},
		Wikipedia: WikipediaConfig{
			Enabled:              true,
			BaseURL:              "https://en.wikipedia.org",
			WikidataURL:          "https://www.wikidata.org/w/api.php",
			UserAgent:            "tempora/0.1 (+https://github.com/ppiankov/tempora)",
			Timeout:              20 * time.Second,
			MaxBytes:             5 * 1024 * 1024,
			RatePerSecond:        2,
			RespectRobots:        true,
			SkipFrequentEntities: true,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 256,
		},
		Pipeline: PipelineConfig{
			Sources:         []string{"kb", "text", "table", "info"},
			TopKAnswers:     1,
			MaxDepth:        2,
			ResolveImplicit: true,
			Workers:         5,
			MaxEvidences:    1000,
		},
	}
}

// Validate checks enums and ranges
func (c *Config) Validate() error {
	switch c.Annotate.Method {
	case MethodRegex, MethodSUTime, MethodSUTimeRegex:
	default:
		return fmt.Errorf("annotate.method: unknown method %q (supported: regex, sutime, sutime_regex)", c.Annotate.Method)
	}
	switch strings.ToLower(c.Annotate.TieBreak) {
	case "later", "earlier":
	default:
		return fmt.Errorf("annotate.tie_break: must be later or earlier, got %q", c.Annotate.TieBreak)
	}
	switch c.Cache.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("cache.backend: must be file or sqlite, got %q", c.Cache.Backend)
	}
	if _, err := NewSourceSet(c.Pipeline.Sources...); err != nil {
		return fmt.Errorf("pipeline.sources: %w", err)
	}
	if c.Pipeline.MaxDepth < 0 {
		return fmt.Errorf("pipeline.max_depth: must be >= 0, got %d", c.Pipeline.MaxDepth)
	}
	if c.Pipeline.TopKAnswers < 1 {
		return fmt.Errorf("pipeline.topk_answers: must be >= 1, got %d", c.Pipeline.TopKAnswers)
	}
	if c.Annotate.Workers < 1 || c.Pipeline.Workers < 1 {
		return fmt.Errorf("workers: must be >= 1")
	}
	if c.KB.SearchSpaceAttempts < 1 || c.KB.LookupAttempts < 1 || c.DateTag.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts: must be >= 1")
	}
	return nil
}
