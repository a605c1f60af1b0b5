// Package config carries the extraction configuration as one immutable
// value threaded through every component at construction. There are no
// process-wide mutable flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chagge/phrasal/pkg/phrasal/internalerr"
)

// Defaults.
const (
	DefaultPhiFilter = 1e-4
	DefaultLexFilter = 0.0
	DefaultLexFloor  = 1e-5

	DefaultMaxPhraseLen = 7
)

// Config holds every knob of the extraction engine.
type Config struct {
	// Exact reserves phrase counting for a dedicated final pass, so every
	// marginal denominator reflects the whole corpus. With Exact false the
	// engine runs a single pass and phrase marginals depend on discovery
	// order; an accepted approximation, not a bug.
	Exact bool `yaml:"exact"`

	// IBMLexModel selects the max-based lexical weight, which needs no
	// intra-phrase alignment. Mutually exclusive with the default
	// link-averaged weight.
	IBMLexModel bool `yaml:"ibm_lex_model"`

	// PhiOnly emits only the two relative-frequency features.
	PhiOnly bool `yaml:"phi_only"`

	// PrintCounts appends the three raw counts to the feature vector.
	PrintCounts bool `yaml:"print_counts"`

	// PhiFilter rejects candidates with phi(e|f) below it. Only the e|f
	// direction is ever checked.
	PhiFilter float64 `yaml:"phi_filter"`

	// LexFilter rejects candidates with lex(e|f) below it. Only the e|f
	// direction is ever checked. Zero disables the filter.
	LexFilter float64 `yaml:"lex_filter"`

	// LexFloor replaces an exactly-zero per-position lexical probability
	// before it enters the multiplicative phrase weight.
	LexFloor float64 `yaml:"lex_floor"`

	// DebugLevel gates diagnostic logging: 1 per-phrase weight traces,
	// 2 per-increment traces.
	DebugLevel int `yaml:"debug_level"`

	// Workers shards the counting passes. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// MaxPhraseLen bounds candidate phrase length during collection.
	MaxPhraseLen int `yaml:"max_phrase_len"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Exact:        true,
		PhiFilter:    DefaultPhiFilter,
		LexFilter:    DefaultLexFilter,
		LexFloor:     DefaultLexFloor,
		MaxPhraseLen: DefaultMaxPhraseLen,
	}
}

// Load reads a YAML config file over the defaults, so absent keys keep
// their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Passes returns the number of corpus passes the configuration requires.
func (c Config) Passes() int {
	if c.Exact {
		return 2
	}
	return 1
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.LexFloor <= 0 {
		return fmt.Errorf("lex_floor must be positive, got %g: %w", c.LexFloor, internalerr.ErrInvalidConfig)
	}
	if c.PhiFilter < 0 {
		return fmt.Errorf("phi_filter must be non-negative, got %g: %w", c.PhiFilter, internalerr.ErrInvalidConfig)
	}
	if c.LexFilter < 0 {
		return fmt.Errorf("lex_filter must be non-negative, got %g: %w", c.LexFilter, internalerr.ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d: %w", c.Workers, internalerr.ErrInvalidConfig)
	}
	if c.MaxPhraseLen < 1 {
		return fmt.Errorf("max_phrase_len must be at least 1, got %d: %w", c.MaxPhraseLen, internalerr.ErrInvalidConfig)
	}
	return nil
}
