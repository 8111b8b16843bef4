package planner

import (
	"errors"
	"flag"
)

const (
	DefaultMaxResultCount    = 10000
	DefaultDeleteConcurrency = 8
)

// Config for a query planner.
type Config struct {
	AllowInefficientQueries bool `yaml:"allow_inefficient_queries"`
	// MaxResultCount caps the rows held in memory when a query falls back.
	MaxResultCount    int `yaml:"max_result_count"`
	DeleteConcurrency int `yaml:"delete_concurrency"`
	FetchSize         int `yaml:"fetch_size"`
}

// RegisterFlagsAndApplyDefaults registers the flags.
func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.BoolVar(&cfg.AllowInefficientQueries, prefix+".allow-inefficient-queries", false, "Evaluate filters and ordering the store cannot handle in memory instead of failing the query.")
	f.IntVar(&cfg.MaxResultCount, prefix+".max-result-count", DefaultMaxResultCount, "Maximum number of rows held in memory for a query that falls back.")
	f.IntVar(&cfg.DeleteConcurrency, prefix+".delete-concurrency", DefaultDeleteConcurrency, "Number of concurrent delete-by-key requests.")
	f.IntVar(&cfg.FetchSize, prefix+".fetch-size", 0, "Page size requested from the store, 0 for the store default.")
}

func (cfg *Config) Validate() error {
	if cfg.MaxResultCount <= 0 {
		return errors.New("max_result_count must be greater than 0")
	}
	if cfg.DeleteConcurrency <= 0 {
		return errors.New("delete_concurrency must be greater than 0")
	}
	if cfg.FetchSize < 0 {
		return errors.New("fetch_size must not be negative")
	}
	return nil
}

// ConfigWarning bundles message and explanation strings in one structure.
type ConfigWarning struct {
	Message string
	Explain string
}

var (
	warnInefficientQueriesAllowed = ConfigWarning{
		Message: "allow_inefficient_queries is enabled for every table.",
		Explain: "Queries that cannot be pushed down scan whole partitions or tables. Prefer enabling it per table.",
	}
	warnMaxResultCountHigh = ConfigWarning{
		Message: "max_result_count is above 100000.",
		Explain: "Fallback queries hold up to max_result_count rows in memory.",
	}
	warnFetchSizeAboveMaxResult = ConfigWarning{
		Message: "fetch_size is larger than max_result_count.",
		Explain: "Pages larger than the in-memory ceiling are fetched but never fully used by fallback queries.",
	}
)

// CheckConfig returns warnings for settings that are valid but risky.
func (cfg *Config) CheckConfig() []ConfigWarning {
	var warnings []ConfigWarning
	if cfg.AllowInefficientQueries {
		warnings = append(warnings, warnInefficientQueriesAllowed)
	}
	if cfg.MaxResultCount > 100000 {
		warnings = append(warnings, warnMaxResultCountHigh)
	}
	if cfg.FetchSize > cfg.MaxResultCount {
		warnings = append(warnings, warnFetchSizeAboveMaxResult)
	}
	return warnings
}
