package match

import (
	"context"

	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/index"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

// Predictor finds songs near a target along one key dimension and ranks
// them by similarity.
//
// Predictor performs a single range lookup per call. Widening the tolerance
// when too few candidates come back is the caller's decision.
type Predictor struct {
	index   index.OrderedIndex
	keyFn   index.KeyFunc
	matcher *Matcher
}

// NewPredictor returns a Predictor over idx, whose keys must have been
// produced by keyFn.
func NewPredictor(idx index.OrderedIndex, keyFn index.KeyFunc, matcher *Matcher) *Predictor {
	if keyFn == nil {
		keyFn = index.FirstFeature
	}
	if matcher == nil {
		matcher = NewMatcher()
	}
	return &Predictor{index: idx, keyFn: keyFn, matcher: matcher}
}

// Candidates returns the songs whose key lies within tolerance of the
// target's key, excluding songs with the target's ID, in ascending key order.
func (p *Predictor) Candidates(target models.Song, tolerance float64) []models.Song {
	key := p.keyFn(target)
	found := p.index.RangeSearch(key-tolerance, key+tolerance)

	out := found[:0]
	for _, s := range found {
		if target.ID != "" && s.ID == target.ID {
			continue
		}
		out = append(out, s)
	}
	return out
}

// PredictSimilar ranks the candidates within tolerance of target, best first.
func (p *Predictor) PredictSimilar(ctx context.Context, target models.Song, tolerance float64, topK int) ([]models.ScoredSong, error) {
	return p.matcher.Match(ctx, target, p.Candidates(target, tolerance), topK)
}
