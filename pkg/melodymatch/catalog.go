package melodymatch

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/index"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/match"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

// catalog is an immutable snapshot of the song collection and the indices
// built over it. A published catalog is never modified.
type catalog struct {
	songs     []models.Song
	byID      map[string]int
	ordered   index.OrderedIndex
	prefix    index.PrefixIndex
	predictor *match.Predictor
	dimension int

	builtAt       time.Time
	buildDuration time.Duration
}

func buildCatalog(songs []models.Song, cfg *Config, matcher *match.Matcher) (*catalog, error) {
	start := time.Now()

	c := &catalog{
		songs: songs,
		byID:  make(map[string]int, len(songs)),
	}
	for i, s := range songs {
		c.byID[s.ID] = i
		if c.dimension == 0 {
			c.dimension = s.Dimension()
		}
	}

	switch cfg.OrderedIndex {
	case OrderedIndexBST:
		c.ordered = index.BuildOrderedIndex(songs, cfg.KeyFunc)
	case OrderedIndexSorted:
		c.ordered = index.BuildSortedIndex(songs, cfg.KeyFunc)
	default:
		return nil, fmt.Errorf("unknown ordered index %q", cfg.OrderedIndex)
	}

	switch cfg.PrefixIndex {
	case PrefixIndexTrie:
		c.prefix = index.BuildTrieIndex(songs)
	case PrefixIndexPatricia:
		c.prefix = index.BuildPatriciaIndex(songs)
	default:
		return nil, fmt.Errorf("unknown prefix index %q", cfg.PrefixIndex)
	}

	c.predictor = match.NewPredictor(c.ordered, cfg.KeyFunc, matcher)
	c.builtAt = time.Now()
	c.buildDuration = c.builtAt.Sub(start)
	return c, nil
}

func (c *catalog) song(songID string) (models.Song, bool) {
	i, ok := c.byID[songID]
	if !ok {
		return models.Song{}, false
	}
	return c.songs[i], true
}

// others returns every song except the one with songID, in catalog order.
func (c *catalog) others(songID string) []models.Song {
	out := make([]models.Song, 0, len(c.songs))
	for _, s := range c.songs {
		if s.ID != songID {
			out = append(out, s)
		}
	}
	return out
}

// validateSong checks that song can join a catalog whose vectors have
// dimension dim (0 for an empty catalog).
func validateSong(song models.Song, dim int) error {
	if strings.TrimSpace(song.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSong)
	}
	if len(song.Features) == 0 {
		return fmt.Errorf("%w: features are required", ErrInvalidSong)
	}
	for i, f := range song.Features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: feature %d is not finite", ErrInvalidSong, i)
		}
	}
	if dim > 0 && len(song.Features) != dim {
		return fmt.Errorf("%w: expected %d features, got %d", ErrInvalidSong, dim, len(song.Features))
	}
	return nil
}

func cloneSongs(songs []models.Song) []models.Song {
	out := make([]models.Song, len(songs))
	for i, s := range songs {
		out[i] = s.Clone()
	}
	return out
}
