package melodymatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/himanishpuri/MelodyMatch/pkg/logger"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/index"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/match"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/similarity"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/storage"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

// melodyService is the default implementation of the Service interface.
//
// Queries read the currently published catalog snapshot without locking.
// Writes are serialised by mu: they persist to storage, rebuild the indices
// from the stored songs and publish the new snapshot.
type melodyService struct {
	storage Storage
	log     Logger
	config  *Config
	matcher *match.Matcher

	mu   sync.Mutex
	snap atomic.Pointer[catalog]
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = index.FirstFeature
	}
	cfg.OrderedIndex = strings.ToLower(cfg.OrderedIndex)
	cfg.PrefixIndex = strings.ToLower(cfg.PrefixIndex)

	matcher := cfg.Matcher
	if matcher == nil {
		matcher = match.NewMatcher()
	}

	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	s := &melodyService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
		matcher: matcher,
	}
	if err := s.rebuild(); err != nil {
		if cfg.Storage == nil {
			stor.Close()
		}
		return nil, err
	}
	return s, nil
}

// rebuild loads every song from storage and publishes a fresh catalog.
// Callers other than NewService must hold s.mu.
func (s *melodyService) rebuild() error {
	songs, err := s.storage.ListSongs()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	c, err := buildCatalog(songs, s.config, s.matcher)
	if err != nil {
		return err
	}
	s.snap.Store(c)
	s.log.Debugf("Catalog rebuilt: %d songs (%s/%s) in %s",
		len(c.songs), s.config.OrderedIndex, s.config.PrefixIndex, c.buildDuration)
	return nil
}

func (s *melodyService) current() *catalog {
	return s.snap.Load()
}

// AddSong validates and stores a song, then republishes the catalog.
func (s *melodyService) AddSong(ctx context.Context, name, artist string, features []float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	song := models.Song{Name: strings.TrimSpace(name), Artist: strings.TrimSpace(artist), Features: features}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateSong(song, s.current().dimension); err != nil {
		return "", err
	}

	s.log.Infof("Adding song: %s by %s (%d features)", song.Name, song.Artist, len(features))
	songID, err := s.storage.RegisterSong(song.Name, song.Artist, song.Clone().Features)
	if err != nil {
		return "", fmt.Errorf("failed to register song: %w", err)
	}

	if err := s.rebuild(); err != nil {
		return "", err
	}
	s.log.Infof("Successfully added song ID=%s", songID)
	return songID, nil
}

// ImportSongs stores songs keeping their IDs where given and returns how
// many rows were written. Songs whose name and artist already exist under
// another ID are skipped and not counted. Songs that fail validation abort
// the import; those stored before the failure are kept.
func (s *melodyService) ImportSongs(ctx context.Context, songs []models.Song) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.current().dimension
	imported, skipped := 0, 0
	var importErr error
	for _, song := range songs {
		if err := ctx.Err(); err != nil {
			importErr = err
			break
		}
		song.Name = strings.TrimSpace(song.Name)
		song.Artist = strings.TrimSpace(song.Artist)
		if err := validateSong(song, dim); err != nil {
			importErr = fmt.Errorf("song %q: %w", song.Name, err)
			break
		}
		if dim == 0 {
			dim = len(song.Features)
		}
		id, written, err := s.storage.SaveSong(song.Clone())
		if err != nil {
			importErr = fmt.Errorf("failed to save song %q: %w", song.Name, err)
			break
		}
		if !written {
			skipped++
			s.log.Debugf("Skipped %q by %q: already stored as %s", song.Name, song.Artist, id)
			continue
		}
		imported++
	}

	if imported > 0 {
		if err := s.rebuild(); err != nil {
			return imported, errors.Join(importErr, err)
		}
	}
	s.log.Infof("Imported %d/%d songs (%d duplicates skipped)", imported, len(songs), skipped)
	return imported, importErr
}

func (s *melodyService) GetSongByID(songID string) (*models.Song, error) {
	song, ok := s.current().song(songID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, songID)
	}
	out := song.Clone()
	return &out, nil
}

// ListSongs returns all songs in insertion order.
func (s *melodyService) ListSongs() ([]models.Song, error) {
	return cloneSongs(s.current().songs), nil
}

func (s *melodyService) DeleteSong(songID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.DeleteSongByID(songID); err != nil {
		if errors.Is(err, storage.ErrSongNotFound) && !errors.Is(err, ErrSongNotFound) {
			return fmt.Errorf("%w: %s", ErrSongNotFound, songID)
		}
		return err
	}
	s.log.Infof("Deleted song ID=%s", songID)
	return s.rebuild()
}

func (s *melodyService) Similarity(a, b []float64) (float64, error) {
	return similarity.Cosine(a, b)
}

// Match ranks caller-supplied candidates against target. The catalog is
// not consulted.
func (s *melodyService) Match(ctx context.Context, target models.Song, candidates []models.Song, topK int) ([]models.MatchResult, error) {
	scored, err := s.matcher.Match(ctx, target, candidates, topK)
	if err != nil {
		return nil, err
	}
	return models.ToMatchResults(scored), nil
}

// MatchCatalog ranks every other catalog song against the song with songID.
func (s *melodyService) MatchCatalog(ctx context.Context, songID string, topK int) ([]models.MatchResult, error) {
	c := s.current()
	target, ok := c.song(songID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, songID)
	}

	scored, err := s.matcher.Match(ctx, target, c.others(songID), topK)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Matched %s against %d songs", songID, len(c.songs)-1)
	return models.ToMatchResults(scored), nil
}

// PredictSimilar ranks the songs whose index key lies within tolerance of
// the target's. When fewer than MinCandidates songs fall in range, one more
// attempt is made with the tolerance multiplied by WidenFactor.
func (s *melodyService) PredictSimilar(ctx context.Context, songID string, tolerance float64, topK int) (*Prediction, error) {
	c := s.current()
	target, ok := c.song(songID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, songID)
	}

	attempts := []float64{tolerance}
	if widenedTol := tolerance * s.config.WidenFactor; s.config.MinCandidates > 0 && s.config.WidenFactor > 1 && widenedTol > tolerance {
		attempts = append(attempts, widenedTol)
	}

	var candidates []models.Song
	used, widened := tolerance, false
	for i, tol := range attempts {
		used, widened = tol, i > 0
		candidates = c.predictor.Candidates(target, tol)
		s.log.Debugf("Predict %s attempt %d: %d candidates within %.4f", songID, i+1, len(candidates), tol)
		if len(candidates) >= s.config.MinCandidates {
			break
		}
		if i+1 < len(attempts) {
			s.log.Infof("Only %d candidates within %.4f of %s, widening to %.4f",
				len(candidates), tol, songID, attempts[i+1])
		}
	}

	scored, err := s.matcher.Match(ctx, target, candidates, topK)
	if err != nil {
		return nil, err
	}
	return &Prediction{
		Matches:    models.ToMatchResults(scored),
		Tolerance:  used,
		Widened:    widened,
		Candidates: len(candidates),
	}, nil
}

func (s *melodyService) SearchByName(prefix string, maxResults int) []models.Song {
	return cloneSongs(s.current().prefix.SearchPrefix(prefix, maxResults))
}

func (s *melodyService) LookupByName(name string) []models.Song {
	return cloneSongs(s.current().prefix.Lookup(name))
}

func (s *melodyService) LookupByKey(key float64) (models.Song, bool) {
	song, ok := s.current().ordered.Search(key)
	if !ok {
		return models.Song{}, false
	}
	return song.Clone(), true
}

func (s *melodyService) SongsInRange(minKey, maxKey float64) []models.Song {
	return cloneSongs(s.current().ordered.RangeSearch(minKey, maxKey))
}

func (s *melodyService) Defaults() Defaults {
	return s.config.Defaults
}

func (s *melodyService) Stats() Stats {
	c := s.current()
	st := Stats{
		Songs:         len(c.songs),
		Dimension:     c.dimension,
		OrderedIndex:  s.config.OrderedIndex,
		PrefixIndex:   s.config.PrefixIndex,
		BuiltAt:       c.builtAt,
		BuildDuration: c.buildDuration,
	}
	if t, ok := c.ordered.(*index.Tree); ok {
		st.IndexHeight = t.Height()
	}
	return st
}

// ExportCatalog writes the current catalog as a msgpack dump.
func (s *melodyService) ExportCatalog(w io.Writer) error {
	c := s.current()
	if err := storage.EncodeCatalog(w, c.songs); err != nil {
		return err
	}
	s.log.Infof("Exported %d songs", len(c.songs))
	return nil
}

// Close releases all resources held by the service.
func (s *melodyService) Close() error {
	return s.storage.Close()
}
