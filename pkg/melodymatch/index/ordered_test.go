package index

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/himanishpuri/MelodyMatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderedImpls() map[string]func() OrderedIndex {
	return map[string]func() OrderedIndex{
		"Tree":        func() OrderedIndex { return NewTree() },
		"SortedIndex": func() OrderedIndex { return NewSortedIndex(0) },
	}
}

func songWithKey(id string, key float64) models.Song {
	return models.Song{ID: id, Name: "song " + id, Features: []float64{key}}
}

func ids(songs []models.Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.ID
	}
	return out
}

func TestOrderedRangeSearchScenario(t *testing.T) {
	for name, newIndex := range orderedImpls() {
		t.Run(name, func(t *testing.T) {
			idx := newIndex()
			for _, k := range []float64{5, 3, 8, 1, 4} {
				idx.Insert(k, songWithKey(fmt.Sprintf("k%g", k), k))
			}

			got := idx.RangeSearch(2, 6)
			assert.Equal(t, []string{"k3", "k4", "k5"}, ids(got))
		})
	}
}

func TestOrderedRangeSearchBoundariesInclusive(t *testing.T) {
	for name, newIndex := range orderedImpls() {
		t.Run(name, func(t *testing.T) {
			idx := newIndex()
			for _, k := range []float64{5, 3, 8, 1, 4, 6, 7} {
				idx.Insert(k, songWithKey(fmt.Sprintf("k%g", k), k))
			}

			assert.Equal(t, []string{"k3", "k4", "k5", "k6"}, ids(idx.RangeSearch(3, 6)))
			assert.Equal(t, []string{"k5"}, ids(idx.RangeSearch(5, 5)))
			assert.Equal(t, []string{"k1"}, ids(idx.RangeSearch(0, 1)))
			assert.Equal(t, []string{"k8"}, ids(idx.RangeSearch(8, 100)))
			assert.Empty(t, idx.RangeSearch(8.5, 100))
		})
	}
}

func TestOrderedDuplicateKeys(t *testing.T) {
	for name, newIndex := range orderedImpls() {
		t.Run(name, func(t *testing.T) {
			idx := newIndex()
			idx.Insert(5, songWithKey("a", 5))
			idx.Insert(3, songWithKey("b", 3))
			idx.Insert(5, songWithKey("c", 5))
			idx.Insert(5, songWithKey("d", 5))
			idx.Insert(7, songWithKey("e", 7))

			// Duplicates equal to the upper bound must not be pruned.
			assert.Equal(t, []string{"b", "a", "c", "d"}, ids(idx.RangeSearch(0, 5)))
			assert.Equal(t, []string{"a", "c", "d", "e"}, ids(idx.RangeSearch(5, 10)))

			found, ok := idx.Search(5)
			require.True(t, ok)
			assert.Equal(t, "a", found.ID)
		})
	}
}

func TestOrderedSearch(t *testing.T) {
	for name, newIndex := range orderedImpls() {
		t.Run(name, func(t *testing.T) {
			idx := newIndex()

			_, ok := idx.Search(1)
			assert.False(t, ok, "empty index must report absence")

			for _, k := range []float64{0.5, 0.25, 0.75} {
				idx.Insert(k, songWithKey(fmt.Sprintf("k%g", k), k))
			}

			s, ok := idx.Search(0.25)
			require.True(t, ok)
			assert.Equal(t, "k0.25", s.ID)

			_, ok = idx.Search(0.3)
			assert.False(t, ok)
		})
	}
}

func TestOrderedEmptyAndInvertedRange(t *testing.T) {
	for name, newIndex := range orderedImpls() {
		t.Run(name, func(t *testing.T) {
			idx := newIndex()
			assert.NotNil(t, idx.RangeSearch(0, 1))
			assert.Empty(t, idx.RangeSearch(0, 1))
			assert.Empty(t, idx.InorderDump())

			idx.Insert(1, songWithKey("x", 1))
			assert.Empty(t, idx.RangeSearch(2, 0))
			assert.Empty(t, idx.RangeSearch(math.NaN(), 2))
		})
	}
}

func TestOrderedFullRangeMatchesInorderDump(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for name, newIndex := range orderedImpls() {
		t.Run(name, func(t *testing.T) {
			for round := 0; round < 20; round++ {
				idx := newIndex()
				n := rng.Intn(200)
				for i := 0; i < n; i++ {
					// Small key space forces duplicates.
					k := float64(rng.Intn(25)) / 4
					idx.Insert(k, songWithKey(fmt.Sprintf("%d-%d", round, i), k))
				}

				dump := idx.InorderDump()
				require.Len(t, dump, n)
				assert.Equal(t, n, idx.Len())
				assert.True(t, sort.SliceIsSorted(dump, func(i, j int) bool {
					return dump[i].Key < dump[j].Key
				}))

				values := make([]models.Song, len(dump))
				for i, e := range dump {
					values[i] = e.Song
				}
				assert.Equal(t, ids(values), ids(idx.RangeSearch(math.Inf(-1), math.Inf(1))))

				lo := float64(rng.Intn(25)) / 4
				hi := lo + float64(rng.Intn(10))/4
				for _, s := range idx.RangeSearch(lo, hi) {
					key := s.Features[0]
					assert.True(t, lo <= key && key <= hi, "key %g outside [%g,%g]", key, lo, hi)
				}

				var want []string
				for _, e := range dump {
					if lo <= e.Key && e.Key <= hi {
						want = append(want, e.Song.ID)
					}
				}
				got := ids(idx.RangeSearch(lo, hi))
				if want == nil {
					want = []string{}
				}
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestTreeHeightDependsOnInsertionOrder(t *testing.T) {
	sorted := NewTree()
	for i := 0; i < 64; i++ {
		sorted.Insert(float64(i), songWithKey(fmt.Sprint(i), float64(i)))
	}
	assert.Equal(t, 64, sorted.Height(), "sorted input degenerates to a list")

	balanced := NewTree()
	var insert func(lo, hi int)
	insert = func(lo, hi int) {
		if lo > hi {
			return
		}
		mid := (lo + hi) / 2
		balanced.Insert(float64(mid), songWithKey(fmt.Sprint(mid), float64(mid)))
		insert(lo, mid-1)
		insert(mid+1, hi)
	}
	insert(0, 62)
	assert.Equal(t, 6, balanced.Height())

	assert.Equal(t, ids(entriesSongs(sorted.InorderDump()))[:63], ids(entriesSongs(balanced.InorderDump())))
}

func entriesSongs(entries []models.IndexEntry) []models.Song {
	out := make([]models.Song, len(entries))
	for i, e := range entries {
		out[i] = e.Song
	}
	return out
}

func TestBuildOrderedIndexWithKeyFuncs(t *testing.T) {
	songs := []models.Song{
		{ID: "a", Features: []float64{0.9, 0.1}},
		{ID: "b", Features: []float64{0.2, 0.6}},
		{ID: "c", Features: []float64{0.5, 0.5}},
		{ID: "d"},
	}

	byFirst := BuildOrderedIndex(songs, FirstFeature)
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids(byFirst.RangeSearch(math.Inf(-1), math.Inf(1))))

	bySecond := BuildSortedIndex(songs, FeatureAt(1))
	assert.Equal(t, []string{"d", "a", "c", "b"}, ids(bySecond.RangeSearch(math.Inf(-1), math.Inf(1))))

	byMean := BuildOrderedIndex(songs, MeanFeature)
	assert.Equal(t, []string{"b", "a", "c"}, ids(byMean.RangeSearch(0.3, 1)))
	assert.Equal(t, 0.0, MeanFeature(models.Song{}))
	assert.Equal(t, 0.0, FeatureAt(-1)(songs[0]))
}

func TestKeyFuncByName(t *testing.T) {
	s := models.Song{Features: []float64{0.2, 0.4, 0.9}}

	for name, want := range map[string]float64{
		"":          0.2,
		"first":     0.2,
		"MEAN":      0.5,
		"feature:2": 0.9,
	} {
		fn, err := KeyFuncByName(name)
		require.NoError(t, err, name)
		assert.InDelta(t, want, fn(s), 1e-12, name)
	}

	for _, bad := range []string{"median", "feature:x", "feature:-1"} {
		_, err := KeyFuncByName(bad)
		assert.Error(t, err, bad)
	}
}
