package index

import (
	"sort"
	"strings"

	"github.com/himanishpuri/MelodyMatch/pkg/logger"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
	"github.com/tchap/go-patricia/v2/patricia"
)

type seqSong struct {
	seq  int
	song models.Song
}

// bucket holds every song indexed under one lowercase name.
type bucket struct {
	songs []seqSong
}

// PatriciaIndex is a PrefixIndex that stores each song once, under its full
// lowercase name, in a compressed radix tree. Prefix queries collect the
// matching subtree and restore insertion order by sequence number, so results
// are identical to Trie at the cost of a subtree scan per query.
type PatriciaIndex struct {
	trie *patricia.Trie
	seq  int
}

// NewPatriciaIndex returns an empty index.
func NewPatriciaIndex() *PatriciaIndex {
	return &PatriciaIndex{trie: patricia.NewTrie()}
}

// Insert indexes song under its lowercase name.
func (p *PatriciaIndex) Insert(song models.Song) {
	entry := seqSong{seq: p.seq, song: song}
	p.seq++

	key := strings.ToLower(song.Name)
	if key == "" {
		// The empty name matches no non-empty prefix.
		return
	}

	if item := p.trie.Get(patricia.Prefix(key)); item != nil {
		b := item.(*bucket)
		b.songs = append(b.songs, entry)
		return
	}
	p.trie.Insert(patricia.Prefix(key), &bucket{songs: []seqSong{entry}})
}

// SearchPrefix returns up to maxResults songs whose lowercase name starts
// with the lowercase prefix, in insertion order.
func (p *PatriciaIndex) SearchPrefix(prefix string, maxResults int) []models.Song {
	lower := strings.ToLower(prefix)
	if lower == "" || maxResults <= 0 {
		return []models.Song{}
	}

	var collected []seqSong
	err := p.trie.VisitSubtree(patricia.Prefix(lower), func(_ patricia.Prefix, item patricia.Item) error {
		collected = append(collected, item.(*bucket).songs...)
		return nil
	})
	if err != nil {
		logger.GetLogger().With("component", "index").Errorf("Error visiting name index subtree: %v", err)
		return []models.Song{}
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].seq < collected[j].seq
	})

	if len(collected) > maxResults {
		collected = collected[:maxResults]
	}
	out := make([]models.Song, len(collected))
	for i, e := range collected {
		out[i] = e.song
	}
	return out
}

// Lookup returns the songs whose lowercase name equals the lowercase name.
func (p *PatriciaIndex) Lookup(name string) []models.Song {
	out := []models.Song{}
	lower := strings.ToLower(name)
	if lower == "" {
		return out
	}
	item := p.trie.Get(patricia.Prefix(lower))
	if item == nil {
		return out
	}
	for _, e := range item.(*bucket).songs {
		out = append(out, e.song)
	}
	return out
}

// Len returns the number of inserted songs.
func (p *PatriciaIndex) Len() int {
	return p.seq
}
