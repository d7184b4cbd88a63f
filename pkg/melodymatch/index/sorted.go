package index

import (
	"sort"

	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

// SortedIndex is an OrderedIndex over a slice kept sorted by key.
//
// Lookups are O(log n) regardless of insertion order; inserts are O(n)
// because of the shift. Equal keys keep insertion order, matching Tree.
type SortedIndex struct {
	entries []models.IndexEntry
}

// NewSortedIndex returns an empty index with room for capacity entries.
func NewSortedIndex(capacity int) *SortedIndex {
	if capacity < 0 {
		capacity = 0
	}
	return &SortedIndex{entries: make([]models.IndexEntry, 0, capacity)}
}

// Insert adds song after any existing entries with the same key.
func (s *SortedIndex) Insert(key float64, song models.Song) {
	i := s.upperBound(key)
	s.entries = append(s.entries, models.IndexEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = models.IndexEntry{Key: key, Song: song}
}

// Search returns the earliest inserted song stored under key.
func (s *SortedIndex) Search(key float64) (models.Song, bool) {
	i := s.lowerBound(key)
	if i < len(s.entries) && s.entries[i].Key == key {
		return s.entries[i].Song, true
	}
	return models.Song{}, false
}

// RangeSearch returns all songs with minKey <= key <= maxKey, ascending.
func (s *SortedIndex) RangeSearch(minKey, maxKey float64) []models.Song {
	results := []models.Song{}
	if !(minKey <= maxKey) {
		return results
	}
	start := s.lowerBound(minKey)
	end := s.upperBound(maxKey)
	for _, e := range s.entries[start:end] {
		results = append(results, e.Song)
	}
	return results
}

// InorderDump returns a copy of all entries in ascending key order.
func (s *SortedIndex) InorderDump() []models.IndexEntry {
	out := make([]models.IndexEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *SortedIndex) Len() int {
	return len(s.entries)
}

// lowerBound is the first position whose key is >= key.
func (s *SortedIndex) lowerBound(key float64) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Key >= key
	})
}

// upperBound is the first position whose key is > key.
func (s *SortedIndex) upperBound(key float64) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Key > key
	})
}
