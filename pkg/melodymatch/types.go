package melodymatch

import (
	"errors"
	"time"

	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

var (
	// ErrSongNotFound is returned by lookups of an unknown song ID.
	ErrSongNotFound = errors.New("song not found")
	// ErrInvalidSong is returned when a song cannot enter the catalog.
	ErrInvalidSong = errors.New("invalid song")
)

// Prediction is the result of PredictSimilar.
type Prediction struct {
	Matches    []models.MatchResult // Ranked best first
	Tolerance  float64              // Tolerance of the attempt that produced Matches
	Widened    bool                 // True when the first attempt found too few candidates
	Candidates int                  // Candidates scored by the final attempt
}

// Stats describes the published catalog snapshot.
type Stats struct {
	Songs         int
	Dimension     int
	OrderedIndex  string
	PrefixIndex   string
	IndexHeight   int // Only reported for the bst index
	BuiltAt       time.Time
	BuildDuration time.Duration
}
