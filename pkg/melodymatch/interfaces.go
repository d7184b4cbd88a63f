package melodymatch

import (
	"context"
	"io"

	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

type Service interface {
	AddSong(ctx context.Context, name, artist string, features []float64) (string, error)
	ImportSongs(ctx context.Context, songs []models.Song) (int, error)
	GetSongByID(songID string) (*models.Song, error)
	ListSongs() ([]models.Song, error)
	DeleteSong(songID string) error

	Similarity(a, b []float64) (float64, error)
	Match(ctx context.Context, target models.Song, candidates []models.Song, topK int) ([]models.MatchResult, error)
	MatchCatalog(ctx context.Context, songID string, topK int) ([]models.MatchResult, error)
	PredictSimilar(ctx context.Context, songID string, tolerance float64, topK int) (*Prediction, error)

	SearchByName(prefix string, maxResults int) []models.Song
	LookupByName(name string) []models.Song
	LookupByKey(key float64) (models.Song, bool)
	SongsInRange(minKey, maxKey float64) []models.Song

	Defaults() Defaults
	Stats() Stats
	ExportCatalog(w io.Writer) error
	Close() error
}

type Storage interface {
	RegisterSong(name, artist string, features []float64) (string, error)
	SaveSong(song models.Song) (string, bool, error)
	DeleteSongByID(songID string) error
	GetSongByID(songID string) (*models.Song, error)
	ListSongs() ([]models.Song, error)
	SongCount() (int64, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
