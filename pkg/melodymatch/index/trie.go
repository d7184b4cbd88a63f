package index

import (
	"strings"

	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

type trieNode struct {
	children map[rune]*trieNode
	terminal bool
	songs    []models.Song
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// Trie is a prefix index over lowercase song names.
//
// Every node on a name's path stores the song, so a prefix query is a walk of
// len(prefix) steps with no subtree scan. Memory grows with the total name
// length times the songs sharing each prefix. The root is never descended
// into and keeps an empty list, so the empty prefix matches nothing.
type Trie struct {
	root *trieNode
	size int
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{root: newTrieNode()}
}

// Insert indexes song under its lowercase name.
func (t *Trie) Insert(song models.Song) {
	node := t.root
	for _, r := range strings.ToLower(song.Name) {
		child, ok := node.children[r]
		if !ok {
			child = newTrieNode()
			node.children[r] = child
		}
		node = child
		node.songs = append(node.songs, song)
	}
	node.terminal = true
	t.size++
}

// SearchPrefix returns up to maxResults songs whose lowercase name starts
// with the lowercase prefix. Results are in insertion order, not relevance
// order, and are not de-duplicated.
func (t *Trie) SearchPrefix(prefix string, maxResults int) []models.Song {
	node := t.walk(strings.ToLower(prefix))
	if node == nil || maxResults <= 0 {
		return []models.Song{}
	}

	n := len(node.songs)
	if n > maxResults {
		n = maxResults
	}
	out := make([]models.Song, n)
	copy(out, node.songs[:n])
	return out
}

// Lookup returns the songs whose lowercase name equals the lowercase name.
func (t *Trie) Lookup(name string) []models.Song {
	lower := strings.ToLower(name)
	node := t.walk(lower)
	out := []models.Song{}
	if node == nil || !node.terminal {
		return out
	}
	for _, s := range node.songs {
		if strings.ToLower(s.Name) == lower {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of inserted songs.
func (t *Trie) Len() int {
	return t.size
}

func (t *Trie) walk(lowerPrefix string) *trieNode {
	node := t.root
	for _, r := range lowerPrefix {
		child, ok := node.children[r]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}
