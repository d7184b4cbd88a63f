/*
Package config manages the TOML config for MelodyMatch services.
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/himanishpuri/MelodyMatch/pkg/logger"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/index"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/match"
	"github.com/himanishpuri/MelodyMatch/pkg/utils"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "melodymatch.toml"

// Config holds the entire config structure
type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Match   MatchConfig   `toml:"match"`
	Search  SearchConfig  `toml:"search"`
	Predict PredictConfig `toml:"predict"`
	Server  ServerConfig  `toml:"server"`
}

// CatalogConfig selects the store and the indices built over it.
type CatalogConfig struct {
	DBPath       string `toml:"db_path"`
	OrderedIndex string `toml:"ordered_index"`
	PrefixIndex  string `toml:"prefix_index"`
	IndexKey     string `toml:"index_key"`
}

// MatchConfig holds ranking options.
type MatchConfig struct {
	DefaultTopK       int `toml:"default_top_k"`
	MaxTopK           int `toml:"max_top_k"`
	Workers           int `toml:"workers"`
	ParallelThreshold int `toml:"parallel_threshold"`
}

// SearchConfig holds name search options.
type SearchConfig struct {
	DefaultMaxResults int `toml:"default_max_results"`
	MaxResults        int `toml:"max_results"`
}

// PredictConfig holds the tolerance widening policy.
type PredictConfig struct {
	DefaultTolerance float64 `toml:"default_tolerance"`
	MinCandidates    int     `toml:"min_candidates"`
	WidenFactor      float64 `toml:"widen_factor"`
}

// ServerConfig has HTTP server options.
type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			DBPath:       "melodymatch.sqlite3",
			OrderedIndex: melodymatch.OrderedIndexBST,
			PrefixIndex:  melodymatch.PrefixIndexTrie,
			IndexKey:     "first",
		},
		Match: MatchConfig{
			DefaultTopK:       melodymatch.DefaultTopK,
			MaxTopK:           melodymatch.DefaultMaxTopK,
			Workers:           0,
			ParallelThreshold: match.DefaultParallelThreshold,
		},
		Search: SearchConfig{
			DefaultMaxResults: melodymatch.DefaultMaxResults,
			MaxResults:        melodymatch.DefaultMaxSearch,
		},
		Predict: PredictConfig{
			DefaultTolerance: melodymatch.DefaultTolerance,
			MinCandidates:    melodymatch.DefaultMinCandidates,
			WidenFactor:      melodymatch.DefaultWidenFactor,
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
	}
}

func configLogger() *logger.Logger {
	return logger.GetLogger().With("component", "config")
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. MELODY_CONFIG environment variable
// 3. melodymatch.toml in the working directory
// 4. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	log := configLogger()
	candidates := []string{customConfigPath, os.Getenv("MELODY_CONFIG"), DefaultConfigFile}
	for i, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if i < 2 {
				log.Warnf("Config file not found at %s: %v. Trying next location...", path, err)
			}
			continue
		}
		cfg, err := LoadConfig(path)
		if err != nil {
			return nil, path, err
		}
		log.Debugf("Loaded config from %s", path)
		return cfg, path, nil
	}
	log.Debugf("No config file found, using built-in defaults")
	return DefaultConfig(), "", nil
}

// LoadConfig loads from a TOML file. Missing keys keep their defaults;
// unknown keys are reported and ignored.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", configPath, err)
	}
	for _, key := range md.Undecoded() {
		configLogger().Warnf("Ignoring unknown config key %q in %s", key.String(), configPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to configPath as TOML, creating parent directories.
func SaveConfig(cfg *Config, configPath string) error {
	return utils.WriteFileAtomic(configPath, func(w io.Writer) error {
		if err := toml.NewEncoder(w).Encode(cfg); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return nil
	})
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Catalog.OrderedIndex) {
	case melodymatch.OrderedIndexBST, melodymatch.OrderedIndexSorted:
	default:
		errs = append(errs, fmt.Errorf("catalog.ordered_index: unknown index %q", c.Catalog.OrderedIndex))
	}
	switch strings.ToLower(c.Catalog.PrefixIndex) {
	case melodymatch.PrefixIndexTrie, melodymatch.PrefixIndexPatricia:
	default:
		errs = append(errs, fmt.Errorf("catalog.prefix_index: unknown index %q", c.Catalog.PrefixIndex))
	}
	if _, err := index.KeyFuncByName(c.Catalog.IndexKey); err != nil {
		errs = append(errs, fmt.Errorf("catalog.index_key: %w", err))
	}

	if c.Match.DefaultTopK < 1 {
		errs = append(errs, errors.New("match.default_top_k must be at least 1"))
	}
	if c.Match.MaxTopK < c.Match.DefaultTopK {
		errs = append(errs, errors.New("match.max_top_k must be at least match.default_top_k"))
	}
	if c.Match.Workers < 0 {
		errs = append(errs, errors.New("match.workers must not be negative"))
	}

	if c.Search.DefaultMaxResults < 1 {
		errs = append(errs, errors.New("search.default_max_results must be at least 1"))
	}
	if c.Search.MaxResults < c.Search.DefaultMaxResults {
		errs = append(errs, errors.New("search.max_results must be at least search.default_max_results"))
	}

	if c.Predict.DefaultTolerance < 0 {
		errs = append(errs, errors.New("predict.default_tolerance must not be negative"))
	}
	if c.Predict.MinCandidates < 0 {
		errs = append(errs, errors.New("predict.min_candidates must not be negative"))
	}
	if c.Predict.WidenFactor < 1 {
		errs = append(errs, errors.New("predict.widen_factor must be at least 1"))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// ServiceOptions translates the config into service options.
func (c *Config) ServiceOptions() ([]melodymatch.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	keyFn, err := index.KeyFuncByName(c.Catalog.IndexKey)
	if err != nil {
		return nil, err
	}

	matcher := match.NewMatcher(match.WithParallelism(c.Match.Workers, c.Match.ParallelThreshold))

	return []melodymatch.Option{
		melodymatch.WithDBPath(c.Catalog.DBPath),
		melodymatch.WithOrderedIndex(c.Catalog.OrderedIndex),
		melodymatch.WithPrefixIndex(c.Catalog.PrefixIndex),
		melodymatch.WithKeyFunc(keyFn),
		melodymatch.WithMatcher(matcher),
		melodymatch.WithDefaults(melodymatch.Defaults{
			TopK:       c.Match.DefaultTopK,
			MaxTopK:    c.Match.MaxTopK,
			MaxResults: c.Search.DefaultMaxResults,
			MaxSearch:  c.Search.MaxResults,
			Tolerance:  c.Predict.DefaultTolerance,
		}),
		melodymatch.WithPredictPolicy(c.Predict.MinCandidates, c.Predict.WidenFactor),
	}, nil
}
