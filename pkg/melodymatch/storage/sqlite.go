//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
	"github.com/himanishpuri/MelodyMatch/pkg/utils"
	"github.com/vmihailenco/msgpack/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "melodymatch.sqlite3"
const errDBClientNil = "db client is nil"

// ErrSongNotFound is returned when no song has the requested ID.
var ErrSongNotFound = errors.New("song not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Song is the persisted catalog row. Features are msgpack-encoded.
type Song struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"uniqueIndex:idx_song_unique,priority:1;index:idx_song_name" json:"name"`
	Artist    string `gorm:"uniqueIndex:idx_song_unique,priority:2" json:"artist"`
	Features  []byte `json:"-"`
	Dimension int    `json:"dimension"`
	CreatedAt time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("MELODY_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if err := utils.MakeParentDir(dbPath); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RegisterSong stores a new song and returns its ID. A song with the same
// name and artist is not duplicated: its existing ID is returned instead.
func (c *DBClient) RegisterSong(name, artist string, features []float64) (string, error) {
	id, _, err := c.registerSong(name, artist, features)
	return id, err
}

func (c *DBClient) registerSong(name, artist string, features []float64) (string, bool, error) {
	if c == nil || c.DB == nil {
		return "", false, errors.New(errDBClientNil)
	}

	var row Song
	err := c.DB.Where("name = ? AND artist = ?", name, artist).First(&row).Error
	if err == nil {
		return row.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, fmt.Errorf("querying existing song: %w", err)
	}

	return c.createSong(uuid.NewString(), name, artist, features)
}

// SaveSong stores song under its own ID, updating the row when the ID is
// already known. Songs without an ID are registered. The returned flag is
// false when nothing was written because a song with the same name and
// artist already exists under another ID.
func (c *DBClient) SaveSong(song models.Song) (string, bool, error) {
	if c == nil || c.DB == nil {
		return "", false, errors.New(errDBClientNil)
	}
	if song.ID == "" {
		return c.registerSong(song.Name, song.Artist, song.Features)
	}

	encoded, err := encodeFeatures(song.Features)
	if err != nil {
		return "", false, err
	}

	var existing Song
	err = c.DB.Where("id = ?", song.ID).First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"name":      song.Name,
			"artist":    song.Artist,
			"features":  encoded,
			"dimension": len(song.Features),
		}
		if err := c.DB.Model(&existing).Updates(updates).Error; err != nil {
			return "", false, fmt.Errorf("updating song %s: %w", song.ID, err)
		}
		return song.ID, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return "", false, fmt.Errorf("querying song %s: %w", song.ID, err)
	}

	var byName Song
	err = c.DB.Where("name = ? AND artist = ?", song.Name, song.Artist).First(&byName).Error
	if err == nil {
		return byName.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, fmt.Errorf("querying existing song: %w", err)
	}

	return c.createSong(song.ID, song.Name, song.Artist, song.Features)
}

func (c *DBClient) createSong(id, name, artist string, features []float64) (string, bool, error) {
	encoded, err := encodeFeatures(features)
	if err != nil {
		return "", false, err
	}

	row := Song{ID: id, Name: name, Artist: artist, Features: encoded, Dimension: len(features)}
	err = c.DB.Create(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "constraint failed") {
			if fetchErr := c.DB.Where("name = ? AND artist = ?", name, artist).First(&row).Error; fetchErr != nil {
				return "", false, fmt.Errorf("fetching song after constraint violation: %w", fetchErr)
			}
			return row.ID, false, nil
		}
		return "", false, fmt.Errorf("creating song: %w", err)
	}
	return row.ID, true, nil
}

func (c *DBClient) DeleteSongByID(songID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Where("id = ?", songID).Delete(&Song{})
	if res.Error != nil {
		return fmt.Errorf("deleting song %s: %w", songID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSongNotFound
	}
	return nil
}

func (c *DBClient) GetSongByID(songID string) (*models.Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row Song
	if err := c.DB.Where("id = ?", songID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSongNotFound
		}
		return nil, fmt.Errorf("querying song %s: %w", songID, err)
	}
	song, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &song, nil
}

// ListSongs returns every song in insertion order.
func (c *DBClient) ListSongs() ([]models.Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Song
	if err := c.DB.Order("rowid").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}

	songs := make([]models.Song, 0, len(rows))
	for _, r := range rows {
		s, err := r.toModel()
		if err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}
	return songs, nil
}

func (c *DBClient) SongCount() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.Model(&Song{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting songs: %w", err)
	}
	return count, nil
}

func (r Song) toModel() (models.Song, error) {
	features, err := decodeFeatures(r.Features)
	if err != nil {
		return models.Song{}, fmt.Errorf("decoding features of song %s: %w", r.ID, err)
	}
	return models.Song{ID: r.ID, Name: r.Name, Artist: r.Artist, Features: features}, nil
}

func encodeFeatures(features []float64) ([]byte, error) {
	if features == nil {
		features = []float64{}
	}
	b, err := msgpack.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encoding features: %w", err)
	}
	return b, nil
}

func decodeFeatures(b []byte) ([]float64, error) {
	if len(b) == 0 {
		return []float64{}, nil
	}
	var features []float64
	if err := msgpack.Unmarshal(b, &features); err != nil {
		return nil, err
	}
	if features == nil {
		features = []float64{}
	}
	return features, nil
}
