package types

import "time"

// HTTPConfig holds shared HTTP settings used by the source adapters.
type HTTPConfig struct {
	// Timeout bounds a single adapter HTTP call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request
	// (e.g. "paper-analyzer/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceConfig holds per-source adapter settings.
type SourceConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults caps the number of candidate records fetched per relation
	// from one source (default 100).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MinInterval is the per-source polite delay between consecutive
	// requests to the same provider (default 1s).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval"`

	// SemanticScholarAPIKey raises Semantic Scholar rate limits when set.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// CrossrefMailto is sent to Crossref for polite-pool access.
	CrossrefMailto string `json:"crossref_mailto,omitempty" yaml:"crossref_mailto,omitempty"`

	// OpenAlexEmail is sent as the OpenAlex mailto parameter.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// EnableGoogleScholar controls whether the scraping adapter is used.
	// Off by default: scraping is slow and the provider blocks aggressively.
	EnableGoogleScholar bool `json:"enable_google_scholar" yaml:"enable_google_scholar"`
}

// ResolverConfig holds the identity resolution policy knobs.
type ResolverConfig struct {
	// MergeThreshold is the title similarity above which records merge when
	// the year and first-author checks also pass (default 0.90).
	MergeThreshold float64 `json:"merge_threshold" yaml:"merge_threshold"`

	// AmbiguousThreshold is the similarity above which two unmerged records
	// are flagged as a possible duplicate (default 0.75).
	AmbiguousThreshold float64 `json:"ambiguous_threshold" yaml:"ambiguous_threshold"`

	// SourcePriority orders sources for merge tie-breaking, highest first.
	// Defaults to semantic_scholar, crossref, openalex, google_scholar.
	SourcePriority []string `json:"source_priority" yaml:"source_priority"`
}

// NetworkConfig holds settings for one network-build operation.
type NetworkConfig struct {
	// OverallTimeout bounds the whole aggregation; on expiry, completed
	// source results are kept and in-flight ones are recorded as
	// unavailable (default 5m).
	OverallTimeout time.Duration `json:"overall_timeout" yaml:"overall_timeout"`

	// MaxConcurrent bounds the worker pool over (source, relation) tasks
	// (default 4).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
}

// StoreConfig holds settings for the network storage layer.
type StoreConfig struct {
	// DataDir is the base directory for persisted networks; the SQLite
	// database lives at DataDir/networks.db and YAML snapshots under
	// DataDir/snapshots/.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// AnalyzerConfig groups every stage configuration.
type AnalyzerConfig struct {
	Source   SourceConfig   `json:"source" yaml:"source"`
	Resolver ResolverConfig `json:"resolver" yaml:"resolver"`
	Network  NetworkConfig  `json:"network" yaml:"network"`
	Store    StoreConfig    `json:"store" yaml:"store"`
}
