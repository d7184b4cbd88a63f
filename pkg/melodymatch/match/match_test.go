package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/index"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/similarity"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func song(id string, features ...float64) models.Song {
	return models.Song{ID: id, Name: "song " + id, Artist: "artist", Features: features}
}

func rankedIDs(scored []models.ScoredSong) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Song.ID
	}
	return out
}

func TestMatchScenario(t *testing.T) {
	a := song("A", 1, 0)
	b := song("B", 0.9, 0.1)
	c := song("C", 0, 1)

	got, err := NewMatcher().Match(context.Background(), a, []models.Song{b, c}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Song.ID)
	assert.InDelta(t, 0.9939, got[0].Score, 1e-4)
}

func TestMatchHugeTopK(t *testing.T) {
	a := song("A", 1, 0)
	b := song("B", 0.9, 0.1)
	c := song("C", 0, 1)

	got, err := NewMatcher().Match(context.Background(), a, []models.Song{b, c}, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, rankedIDs(got))
}

func TestMatchOrderAndLength(t *testing.T) {
	target := song("t", 1, 1, 0)
	candidates := []models.Song{
		song("x", 0, 0, 1),
		song("y", 1, 1, 0.1),
		song("z", 1, 0, 0),
		song("w", 0.5, 0.5, 0),
	}

	m := NewMatcher()
	for _, k := range []int{-1, 0, 1, 2, 4, 10} {
		got, err := m.Match(context.Background(), target, candidates, k)
		require.NoError(t, err)

		want := max(1, k)
		if want > len(candidates) {
			want = len(candidates)
		}
		assert.Len(t, got, want, "topK=%d", k)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
		}
	}

	all, err := m.Match(context.Background(), target, candidates, 10)
	require.NoError(t, err)
	assert.Equal(t, "w", all[0].Song.ID)
	assert.Equal(t, "x", all[3].Song.ID)
}

func TestMatchEmptyCandidates(t *testing.T) {
	got, err := NewMatcher().Match(context.Background(), song("t", 1), nil, 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMatchDimensionMismatch(t *testing.T) {
	candidates := []models.Song{song("ok", 1, 0), song("bad", 1, 0, 0)}

	_, err := NewMatcher().Match(context.Background(), song("t", 1, 0), candidates, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, similarity.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), `"bad"`)
}

func TestMatchTiesResolveByCandidateOrder(t *testing.T) {
	target := song("t", 1, 0)
	candidates := []models.Song{
		song("first", 2, 0),
		song("second", 3, 0),
		song("third", 4, 0),
	}

	got, err := NewMatcher().Match(context.Background(), target, candidates, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first", "second"}, rankedIDs(got))

	again, err := NewMatcher().Match(context.Background(), target, candidates, 2)
	require.NoError(t, err)
	assert.Equal(t, rankedIDs(got), rankedIDs(again))
}

func randomCatalog(rng *rand.Rand, n, dim int) []models.Song {
	songs := make([]models.Song, n)
	for i := range songs {
		f := make([]float64, dim)
		for j := range f {
			// Coarse values produce plenty of exact ties.
			f[j] = float64(rng.Intn(4)) / 4
		}
		songs[i] = song(fmt.Sprintf("s%d", i), f...)
	}
	return songs
}

func TestMatchParallelEqualsSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	candidates := randomCatalog(rng, 5000, 3)
	target := song("t", 0.5, 0.25, 1)

	seq := NewMatcher(WithParallelism(1, 0))
	par := NewMatcher(WithParallelism(8, 100))

	want, err := seq.Match(context.Background(), target, candidates, 25)
	require.NoError(t, err)
	got, err := par.Match(context.Background(), target, candidates, 25)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestMatchParallelReportsLowestIndexError(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	candidates := randomCatalog(rng, 1000, 2)
	candidates[100] = song("early", 1)
	candidates[900] = song("late", 1)

	m := NewMatcher(WithParallelism(4, 10))
	for i := 0; i < 10; i++ {
		_, err := m.Match(context.Background(), song("t", 1, 1), candidates, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"early"`)
	}
}

func TestMatchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMatcher().Match(ctx, song("t", 1), []models.Song{song("a", 1)}, 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMatchCustomScorer(t *testing.T) {
	negDistance := func(a, b []float64) (float64, error) {
		return -abs(a[0] - b[0]), nil
	}
	m := NewMatcher(WithScorer(negDistance))

	got, err := m.Match(context.Background(), song("t", 10), []models.Song{song("far", 1), song("near", 9)}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"near"}, rankedIDs(got))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func predictorCatalog() []models.Song {
	return []models.Song{
		song("a", 0.10, 0.9),
		song("b", 0.20, 0.8),
		song("c", 0.25, 0.1),
		song("d", 0.30, 0.7),
		song("e", 0.80, 0.2),
	}
}

func TestPredictorCandidatesExcludeTarget(t *testing.T) {
	catalog := predictorCatalog()
	p := NewPredictor(index.BuildOrderedIndex(catalog, index.FirstFeature), index.FirstFeature, nil)

	got := p.Candidates(catalog[1], 0.11)
	assert.Equal(t, []string{"a", "c", "d"}, songIDs(got))

	assert.Empty(t, p.Candidates(catalog[4], 0.1))
}

func songIDs(songs []models.Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.ID
	}
	return out
}

func TestPredictSimilar(t *testing.T) {
	catalog := predictorCatalog()
	for name, idx := range map[string]index.OrderedIndex{
		"Tree":   index.BuildOrderedIndex(catalog, index.FirstFeature),
		"Sorted": index.BuildSortedIndex(catalog, index.FirstFeature),
	} {
		t.Run(name, func(t *testing.T) {
			p := NewPredictor(idx, index.FirstFeature, NewMatcher())

			got, err := p.PredictSimilar(context.Background(), catalog[1], 0.11, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "d"}, rankedIDs(got))

			none, err := p.PredictSimilar(context.Background(), catalog[4], 0.1, 2)
			require.NoError(t, err)
			assert.Empty(t, none)

			wide, err := p.PredictSimilar(context.Background(), catalog[4], 1, 10)
			require.NoError(t, err)
			assert.Len(t, wide, 4)
		})
	}
}

func TestPredictSimilarNegativeTolerance(t *testing.T) {
	catalog := predictorCatalog()
	p := NewPredictor(index.BuildOrderedIndex(catalog, index.FirstFeature), nil, nil)

	got, err := p.PredictSimilar(context.Background(), catalog[0], -0.5, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
