package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request client timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "answer-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds transport-level retries on throttling and gateway
	// errors (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ChatProviderName selects the chat-completion backend.
type ChatProviderName string

const (
	ProviderAnthropic ChatProviderName = "anthropic"
	ProviderOpenAI    ChatProviderName = "openai"
)

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Provider selects the API flavour: anthropic or openai (OpenAI-compatible).
	Provider ChatProviderName `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint (e.g. a local Ollama server).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens caps the completion length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EmbeddingConfig holds settings for the embedding client.
type EmbeddingConfig struct {
	Model   string `json:"model" yaml:"model" mapstructure:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BatchSize is the number of texts sent per embedding request during ingestion.
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
}

// ResearchConfig holds settings for the research fan-out.
type ResearchConfig struct {
	// Depth selects the depth profile: quick, standard, or deep.
	Depth string `json:"depth" yaml:"depth" mapstructure:"depth"`

	// MaxDistance is the cosine distance cutoff for vector search (default 0.8).
	MaxDistance float64 `json:"max_distance" yaml:"max_distance" mapstructure:"max_distance"`

	// FallbackThreshold is the best-distance cutoff of the legacy fallback
	// rule (default 0.5).
	FallbackThreshold float64 `json:"fallback_threshold" yaml:"fallback_threshold" mapstructure:"fallback_threshold"`

	// AlwaysWebSearch runs tiered web search alongside retrieval on every run.
	AlwaysWebSearch bool `json:"always_web_search" yaml:"always_web_search" mapstructure:"always_web_search"`

	// TavilyAPIKey authenticates the web search client.
	TavilyAPIKey string `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty" mapstructure:"tavily_api_key"`

	// TiersFile optionally overrides the built-in tier table with a YAML file.
	TiersFile string `json:"tiers_file,omitempty" yaml:"tiers_file,omitempty" mapstructure:"tiers_file"`

	// FillSummaries fetches result pages to fill empty web summaries.
	FillSummaries bool `json:"fill_summaries" yaml:"fill_summaries" mapstructure:"fill_summaries"`
}

// StoreConfig holds settings for the local SQLite database.
type StoreConfig struct {
	// Path is the SQLite database file (default "data/answer-engine.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// ChunkSize and ChunkOverlap control ingestion chunking, in characters.
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
}

// TimeoutConfig holds the per-call deadlines applied to external calls.
type TimeoutConfig struct {
	Embed        time.Duration `json:"embed" yaml:"embed" mapstructure:"embed"`
	VectorSearch time.Duration `json:"vector_search" yaml:"vector_search" mapstructure:"vector_search"`
	WebSearch    time.Duration `json:"web_search" yaml:"web_search" mapstructure:"web_search"`
	Chat         time.Duration `json:"chat" yaml:"chat" mapstructure:"chat"`
}

// RetryLimits bounds the stage-level retry counters.
type RetryLimits struct {
	Generate  int `json:"generate" yaml:"generate" mapstructure:"generate"`
	Structure int `json:"structure" yaml:"structure" mapstructure:"structure"`
	Compile   int `json:"compile" yaml:"compile" mapstructure:"compile"`
	Enrich    int `json:"enrich" yaml:"enrich" mapstructure:"enrich"`
	Polish    int `json:"polish" yaml:"polish" mapstructure:"polish"`
}

// Temperatures holds the sampling temperature used by each generating stage.
type Temperatures struct {
	Technical float64 `json:"technical" yaml:"technical" mapstructure:"technical"`
	Structure float64 `json:"structure" yaml:"structure" mapstructure:"structure"`
	Compiler  float64 `json:"compiler" yaml:"compiler" mapstructure:"compiler"`
	Narrative float64 `json:"narrative" yaml:"narrative" mapstructure:"narrative"`
	Polish    float64 `json:"polish" yaml:"polish" mapstructure:"polish"`
}

// StagesConfig selects the optional stages and their gates.
type StagesConfig struct {
	EnableStructure bool `json:"enable_structure" yaml:"enable_structure" mapstructure:"enable_structure"`
	EnableCompile   bool `json:"enable_compile" yaml:"enable_compile" mapstructure:"enable_compile"`
	EnableEnrich    bool `json:"enable_enrich" yaml:"enable_enrich" mapstructure:"enable_enrich"`

	// EnablePolish adds a brand polish pass after enrichment.
	EnablePolish bool `json:"enable_polish" yaml:"enable_polish" mapstructure:"enable_polish"`

	// LegacyMode runs a single generate/evaluate stage and applies the
	// retrieval fallback rule to decide on web search.
	LegacyMode bool `json:"legacy_mode" yaml:"legacy_mode" mapstructure:"legacy_mode"`

	MaxRetries   RetryLimits  `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	Temperatures Temperatures `json:"temperatures" yaml:"temperatures" mapstructure:"temperatures"`

	// QualityDegradationTolerance is how many technical-rubric points the
	// enriched answer may lose against the draft before the run aborts.
	QualityDegradationTolerance float64 `json:"quality_degradation_tolerance" yaml:"quality_degradation_tolerance" mapstructure:"quality_degradation_tolerance"`

	// Complexity is the narrative complexity level: simple, standard, or
	// critical. "auto" classifies each question.
	Complexity string `json:"complexity" yaml:"complexity" mapstructure:"complexity"`

	// EnrichRubric gates the enrich stage: narrative or brand.
	EnrichRubric string `json:"enrich_rubric" yaml:"enrich_rubric" mapstructure:"enrich_rubric"`

	// EnrichmentQualityThreshold lets a simple question skip enrichment
	// when its draft scored at least this much (default 90, 0 disables).
	EnrichmentQualityThreshold float64 `json:"enrichment_quality_threshold" yaml:"enrichment_quality_threshold" mapstructure:"enrichment_quality_threshold"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	HTTP      HTTPConfig      `json:"http" yaml:"http" mapstructure:"http"`
	Chat      AIConfig        `json:"chat" yaml:"chat" mapstructure:"chat"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Research  ResearchConfig  `json:"research" yaml:"research" mapstructure:"research"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Timeouts  TimeoutConfig   `json:"timeouts" yaml:"timeouts" mapstructure:"timeouts"`
	Stages    StagesConfig    `json:"stages" yaml:"stages" mapstructure:"stages"`
}

// DefaultPipelineConfig returns the configuration used when no file or
// environment value overrides a key.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		HTTP: HTTPConfig{
			Timeout:    60 * time.Second,
			UserAgent:  "answer-engine/0.1",
			MaxRetries: 3,
		},
		Chat: AIConfig{
			Provider:  ProviderAnthropic,
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 4096,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			BatchSize: 32,
		},
		Research: ResearchConfig{
			Depth:             "standard",
			MaxDistance:       0.8,
			FallbackThreshold: 0.5,
			AlwaysWebSearch:   true,
		},
		Store: StoreConfig{
			Path:         "data/answer-engine.db",
			ChunkSize:    1200,
			ChunkOverlap: 200,
		},
		Timeouts: TimeoutConfig{
			Embed:        30 * time.Second,
			VectorSearch: 10 * time.Second,
			WebSearch:    20 * time.Second,
			Chat:         120 * time.Second,
		},
		Stages: StagesConfig{
			EnableStructure: true,
			EnableCompile:   true,
			EnableEnrich:    true,
			MaxRetries: RetryLimits{
				Generate:  5,
				Structure: 2,
				Compile:   2,
				Enrich:    1,
				Polish:    1,
			},
			Temperatures: Temperatures{
				Technical: 0.3,
				Structure: 0.2,
				Compiler:  0.4,
				Narrative: 0.7,
				Polish:    0.7,
			},
			QualityDegradationTolerance: 5,
			Complexity:                  "auto",
			EnrichRubric:                "narrative",
			EnrichmentQualityThreshold:  90,
		},
	}
}
