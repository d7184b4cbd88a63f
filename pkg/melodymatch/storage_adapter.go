package melodymatch

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/storage"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func notFound(songID string, err error) error {
	if errors.Is(err, storage.ErrSongNotFound) {
		return fmt.Errorf("%w: %s", ErrSongNotFound, songID)
	}
	return err
}

func (s *storageAdapter) RegisterSong(name, artist string, features []float64) (string, error) {
	return s.db.RegisterSong(name, artist, features)
}

func (s *storageAdapter) SaveSong(song models.Song) (string, bool, error) {
	return s.db.SaveSong(song)
}

func (s *storageAdapter) DeleteSongByID(songID string) error {
	return notFound(songID, s.db.DeleteSongByID(songID))
}

func (s *storageAdapter) GetSongByID(songID string) (*models.Song, error) {
	song, err := s.db.GetSongByID(songID)
	if err != nil {
		return nil, notFound(songID, err)
	}
	return song, nil
}

func (s *storageAdapter) ListSongs() ([]models.Song, error) {
	return s.db.ListSongs()
}

func (s *storageAdapter) SongCount() (int64, error) {
	return s.db.SongCount()
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}
