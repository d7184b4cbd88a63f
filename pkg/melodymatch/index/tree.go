package index

import "github.com/himanishpuri/MelodyMatch/pkg/models"

type treeNode struct {
	key   float64
	song  models.Song
	left  *treeNode
	right *treeNode
}

// Tree is an unbalanced binary search tree keyed by float64.
//
// Keys in a node's left subtree are strictly less than the node key and keys
// in its right subtree are greater than or equal to it: equal keys route
// right, so duplicates are kept in insertion order.
//
// The tree never rebalances. Its height depends on insertion order and
// degrades to a linked list (O(n) per operation) when keys arrive sorted.
// Use SortedIndex when the insertion order is not known to be random.
type Tree struct {
	root *treeNode
	size int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Insert adds song under key.
func (t *Tree) Insert(key float64, song models.Song) {
	n := &treeNode{key: key, song: song}
	t.size++

	if t.root == nil {
		t.root = n
		return
	}

	cur := t.root
	for {
		if key < cur.key {
			if cur.left == nil {
				cur.left = n
				return
			}
			cur = cur.left
		} else {
			if cur.right == nil {
				cur.right = n
				return
			}
			cur = cur.right
		}
	}
}

// Search returns the first song found under key on the descent path, which
// is the earliest inserted among equal keys.
func (t *Tree) Search(key float64) (models.Song, bool) {
	cur := t.root
	for cur != nil {
		if cur.key == key {
			return cur.song, true
		}
		if key < cur.key {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	return models.Song{}, false
}

// RangeSearch returns all songs with minKey <= key <= maxKey, ascending.
func (t *Tree) RangeSearch(minKey, maxKey float64) []models.Song {
	results := []models.Song{}
	if !(minKey <= maxKey) {
		return results
	}
	rangeCollect(t.root, minKey, maxKey, &results)
	return results
}

func rangeCollect(n *treeNode, minKey, maxKey float64, out *[]models.Song) {
	if n == nil {
		return
	}
	// Left keys are < n.key, so nothing there can reach minKey unless n.key > minKey.
	if n.key > minKey {
		rangeCollect(n.left, minKey, maxKey, out)
	}
	if minKey <= n.key && n.key <= maxKey {
		*out = append(*out, n.song)
	}
	// Right keys are >= n.key; duplicates of maxKey live there.
	if n.key <= maxKey {
		rangeCollect(n.right, minKey, maxKey, out)
	}
}

// InorderDump returns every entry in ascending key order.
func (t *Tree) InorderDump() []models.IndexEntry {
	out := make([]models.IndexEntry, 0, t.size)
	inorder(t.root, &out)
	return out
}

func inorder(n *treeNode, out *[]models.IndexEntry) {
	if n == nil {
		return
	}
	inorder(n.left, out)
	*out = append(*out, models.IndexEntry{Key: n.key, Song: n.song})
	inorder(n.right, out)
}

// Len returns the number of entries.
func (t *Tree) Len() int {
	return t.size
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Height() int {
	return height(t.root)
}

func height(n *treeNode) int {
	if n == nil {
		return 0
	}
	l, r := height(n.left), height(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}
