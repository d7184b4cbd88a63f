// Package index holds the in-memory catalog indices: ordered key indices for
// point and range lookups and prefix indices for name search.
//
// Indices are built once and then only read. They carry no locks: concurrent
// readers are safe as long as no Insert runs at the same time.
package index

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

// OrderedIndex maps float keys to songs and answers point and range queries.
type OrderedIndex interface {
	Insert(key float64, song models.Song)
	// Search returns the song stored under key, or false when absent.
	Search(key float64) (models.Song, bool)
	// RangeSearch returns every song with minKey <= key <= maxKey in
	// ascending key order.
	RangeSearch(minKey, maxKey float64) []models.Song
	InorderDump() []models.IndexEntry
	Len() int
}

// PrefixIndex answers case-insensitive name lookups.
type PrefixIndex interface {
	Insert(song models.Song)
	// SearchPrefix returns up to maxResults songs whose lowercase name
	// starts with prefix, in insertion order.
	SearchPrefix(prefix string, maxResults int) []models.Song
	// Lookup returns the songs whose lowercase name equals name.
	Lookup(name string) []models.Song
	Len() int
}

// KeyFunc derives the ordered index key of a song.
type KeyFunc func(models.Song) float64

// FirstFeature keys songs by the first element of their feature vector.
// Songs without features key to 0.
func FirstFeature(s models.Song) float64 {
	if len(s.Features) == 0 {
		return 0
	}
	return s.Features[0]
}

// FeatureAt keys songs by the i-th feature. Shorter vectors key to 0.
func FeatureAt(i int) KeyFunc {
	return func(s models.Song) float64 {
		if i < 0 || i >= len(s.Features) {
			return 0
		}
		return s.Features[i]
	}
}

// MeanFeature keys songs by the mean of their features.
func MeanFeature(s models.Song) float64 {
	if len(s.Features) == 0 {
		return 0
	}
	var sum float64
	for _, f := range s.Features {
		sum += f
	}
	return sum / float64(len(s.Features))
}

// KeyFuncByName resolves a key function name: "first", "mean" or
// "feature:N" for the N-th feature.
func KeyFuncByName(name string) (KeyFunc, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); {
	case n == "" || n == "first":
		return FirstFeature, nil
	case n == "mean":
		return MeanFeature, nil
	case strings.HasPrefix(n, "feature:"):
		i, err := strconv.Atoi(strings.TrimPrefix(n, "feature:"))
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid feature index in key %q", name)
		}
		return FeatureAt(i), nil
	default:
		return nil, fmt.Errorf("unknown index key %q", name)
	}
}

// BuildOrderedIndex inserts songs into a new Tree in slice order.
func BuildOrderedIndex(songs []models.Song, keyFn KeyFunc) *Tree {
	t := NewTree()
	for _, s := range songs {
		t.Insert(keyFn(s), s)
	}
	return t
}

// BuildSortedIndex inserts songs into a new SortedIndex in slice order.
func BuildSortedIndex(songs []models.Song, keyFn KeyFunc) *SortedIndex {
	idx := NewSortedIndex(len(songs))
	for _, s := range songs {
		idx.Insert(keyFn(s), s)
	}
	return idx
}

// BuildTrieIndex inserts songs into a new Trie in slice order.
func BuildTrieIndex(songs []models.Song) *Trie {
	t := NewTrie()
	for _, s := range songs {
		t.Insert(s)
	}
	return t
}

// BuildPatriciaIndex inserts songs into a new PatriciaIndex in slice order.
func BuildPatriciaIndex(songs []models.Song) *PatriciaIndex {
	p := NewPatriciaIndex()
	for _, s := range songs {
		p.Insert(s)
	}
	return p
}
