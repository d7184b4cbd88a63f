package storage

import (
	"fmt"
	"io"

	"github.com/himanishpuri/MelodyMatch/pkg/models"
	"github.com/vmihailenco/msgpack/v5"
)

// CatalogDumpVersion is written into every catalog dump.
const CatalogDumpVersion = 1

type dumpSong struct {
	ID       string    `msgpack:"id"`
	Name     string    `msgpack:"name"`
	Artist   string    `msgpack:"artist"`
	Features []float64 `msgpack:"features"`
}

type catalogDump struct {
	Version int        `msgpack:"version"`
	Songs   []dumpSong `msgpack:"songs"`
}

// EncodeCatalog writes songs to w as a msgpack catalog dump.
func EncodeCatalog(w io.Writer, songs []models.Song) error {
	dump := catalogDump{Version: CatalogDumpVersion, Songs: make([]dumpSong, len(songs))}
	for i, s := range songs {
		dump.Songs[i] = dumpSong{ID: s.ID, Name: s.Name, Artist: s.Artist, Features: s.Features}
	}
	if err := msgpack.NewEncoder(w).Encode(&dump); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	return nil
}

// DecodeCatalog reads a msgpack catalog dump written by EncodeCatalog.
func DecodeCatalog(r io.Reader) ([]models.Song, error) {
	var dump catalogDump
	if err := msgpack.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if dump.Version != CatalogDumpVersion {
		return nil, fmt.Errorf("unsupported catalog dump version %d", dump.Version)
	}

	songs := make([]models.Song, len(dump.Songs))
	for i, s := range dump.Songs {
		songs[i] = models.Song{ID: s.ID, Name: s.Name, Artist: s.Artist, Features: s.Features}
	}
	return songs, nil
}
