package melodymatch

import (
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/index"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/match"
)

const (
	OrderedIndexBST     = "bst"
	OrderedIndexSorted  = "sorted"
	PrefixIndexTrie     = "trie"
	PrefixIndexPatricia = "patricia"
)

const (
	DefaultTopK          = 5
	DefaultMaxTopK       = 100
	DefaultMaxResults    = 10
	DefaultMaxSearch     = 100
	DefaultTolerance     = 0.1
	DefaultMinCandidates = 3
	DefaultWidenFactor   = 2.0
)

// Defaults are the values the outer layers apply when a caller omits a
// parameter, and the upper bounds they clamp to.
type Defaults struct {
	TopK       int
	MaxTopK    int
	MaxResults int
	MaxSearch  int
	Tolerance  float64
}

type Config struct {
	DBPath        string
	Logger        Logger
	Storage       Storage
	KeyFunc       index.KeyFunc
	OrderedIndex  string
	PrefixIndex   string
	Defaults      Defaults
	MinCandidates int
	WidenFactor   float64
	Matcher       *match.Matcher
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithKeyFunc selects the feature the ordered index and predictions are
// keyed on.
func WithKeyFunc(fn index.KeyFunc) Option {
	return func(c *Config) {
		c.KeyFunc = fn
	}
}

// WithOrderedIndex selects "bst" or "sorted".
func WithOrderedIndex(kind string) Option {
	return func(c *Config) {
		c.OrderedIndex = kind
	}
}

// WithPrefixIndex selects "trie" or "patricia".
func WithPrefixIndex(kind string) Option {
	return func(c *Config) {
		c.PrefixIndex = kind
	}
}

func WithDefaults(d Defaults) Option {
	return func(c *Config) {
		c.Defaults = d
	}
}

// WithPredictPolicy sets when PredictSimilar widens its tolerance: a
// second, wider attempt runs when the first yields fewer than
// minCandidates candidates.
func WithPredictPolicy(minCandidates int, widenFactor float64) Option {
	return func(c *Config) {
		c.MinCandidates = minCandidates
		c.WidenFactor = widenFactor
	}
}

func WithMatcher(m *match.Matcher) Option {
	return func(c *Config) {
		c.Matcher = m
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:       "melodymatch.sqlite3",
		KeyFunc:      index.FirstFeature,
		OrderedIndex: OrderedIndexBST,
		PrefixIndex:  PrefixIndexTrie,
		Defaults: Defaults{
			TopK:       DefaultTopK,
			MaxTopK:    DefaultMaxTopK,
			MaxResults: DefaultMaxResults,
			MaxSearch:  DefaultMaxSearch,
			Tolerance:  DefaultTolerance,
		},
		MinCandidates: DefaultMinCandidates,
		WidenFactor:   DefaultWidenFactor,
	}
}

// ClampTopK applies the default for an omitted (zero) topK, raises
// negative values to 1 and caps the result at MaxTopK.
func (d Defaults) ClampTopK(topK int) int {
	switch {
	case topK == 0:
		topK = d.TopK
	case topK < 0:
		topK = 1
	}
	if d.MaxTopK > 0 && topK > d.MaxTopK {
		topK = d.MaxTopK
	}
	return topK
}

// ClampResults applies the default for a non-positive search limit and
// caps it at MaxSearch.
func (d Defaults) ClampResults(limit int) int {
	if limit <= 0 {
		limit = d.MaxResults
	}
	if d.MaxSearch > 0 && limit > d.MaxSearch {
		limit = d.MaxSearch
	}
	return limit
}
