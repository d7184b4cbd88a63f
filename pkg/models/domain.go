package models

// Song is a catalog entry described by an ordered feature vector.
// Songs are treated as immutable once they enter an index.
type Song struct {
	ID       string    // Catalog ID (UUID)
	Name     string    // Song title
	Artist   string    // Artist name
	Features []float64 // Normalized feature vector
}

// Dimension returns the length of the feature vector.
func (s Song) Dimension() int {
	return len(s.Features)
}

// Clone returns a copy of the song that shares no memory with s.
func (s Song) Clone() Song {
	out := s
	if s.Features != nil {
		out.Features = make([]float64, len(s.Features))
		copy(out.Features, s.Features)
	}
	return out
}

// ScoredSong pairs a song with its similarity to a query.
type ScoredSong struct {
	Score float64
	Song  Song
}

// IndexEntry is a single key/value pair of an ordered index dump.
type IndexEntry struct {
	Key  float64
	Song Song
}

// MatchResult represents a ranked song with metadata and scoring.
type MatchResult struct {
	SongID     string  // Catalog ID of the matched song
	Name       string  // Song title
	Artist     string  // Artist name
	Similarity float64 // Cosine similarity to the target, in [-1, 1]
}

// ToMatchResults flattens ranked songs into match results, preserving order.
func ToMatchResults(scored []ScoredSong) []MatchResult {
	results := make([]MatchResult, len(scored))
	for i, s := range scored {
		results[i] = MatchResult{
			SongID:     s.Song.ID,
			Name:       s.Song.Name,
			Artist:     s.Song.Artist,
			Similarity: s.Score,
		}
	}
	return results
}
