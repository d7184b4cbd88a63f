// Package match ranks candidate songs against a target.
package match

import (
	"context"
	"fmt"
	"runtime"

	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/similarity"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/topk"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelThreshold is the candidate count from which scoring is
// spread over several goroutines.
const DefaultParallelThreshold = 4096

// Matcher scores candidates against a target and keeps the best k.
// A Matcher holds no per-query state and is safe for concurrent use.
type Matcher struct {
	scorer    similarity.Scorer
	workers   int
	threshold int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithScorer replaces cosine similarity.
func WithScorer(scorer similarity.Scorer) Option {
	return func(m *Matcher) {
		if scorer != nil {
			m.scorer = scorer
		}
	}
}

// WithParallelism sets the worker count and the candidate count from which
// scoring runs in parallel. A threshold <= 0 disables parallel scoring.
func WithParallelism(workers, threshold int) Option {
	return func(m *Matcher) {
		if workers > 0 {
			m.workers = workers
		}
		m.threshold = threshold
	}
}

// NewMatcher returns a Matcher using cosine similarity by default.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		scorer:    similarity.Cosine,
		workers:   runtime.GOMAXPROCS(0),
		threshold: DefaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns the topK candidates most similar to target, best first.
//
// topK below 1 is treated as 1. Scores are offered to the selector in
// candidate order, so equal scores at the cut-off resolve to the earliest
// candidates and the result is reproducible for a fixed input. A dimension
// mismatch with any candidate fails the whole call.
func (m *Matcher) Match(ctx context.Context, target models.Song, candidates []models.Song, topK int) ([]models.ScoredSong, error) {
	if len(candidates) == 0 {
		return []models.ScoredSong{}, nil
	}

	scores, err := m.scoreAll(ctx, target, candidates)
	if err != nil {
		return nil, err
	}

	sel := topk.New[models.Song](min(max(1, topK), len(candidates)))
	for i, c := range candidates {
		sel.Insert(scores[i], c)
	}

	ranked := sel.DrainDescending()
	out := make([]models.ScoredSong, len(ranked))
	for i, it := range ranked {
		out[i] = models.ScoredSong{Score: it.Score, Song: it.Value}
	}
	return out, nil
}

func (m *Matcher) scoreAll(ctx context.Context, target models.Song, candidates []models.Song) ([]float64, error) {
	scores := make([]float64, len(candidates))

	if m.threshold <= 0 || len(candidates) < m.threshold || m.workers < 2 {
		if err := m.scoreRange(ctx, target, candidates, scores, 0, len(candidates)); err != nil {
			return nil, err
		}
		return scores, nil
	}

	chunk := (len(candidates) + m.workers - 1) / m.workers
	errs := make([]error, m.workers)

	// Chunks are not cancelled on a sibling's failure: each runs to its own
	// first error so the lowest-index error can be reported.
	var g errgroup.Group
	for w := 0; w < m.workers; w++ {
		start := w * chunk
		if start >= len(candidates) {
			break
		}
		end := min(start+chunk, len(candidates))
		g.Go(func() error {
			errs[w] = m.scoreRange(ctx, target, candidates, scores, start, end)
			return errs[w]
		})
	}
	if err := g.Wait(); err != nil {
		for _, e := range errs {
			if e != nil {
				return nil, e
			}
		}
		return nil, err
	}
	return scores, nil
}

func (m *Matcher) scoreRange(ctx context.Context, target models.Song, candidates []models.Song, scores []float64, start, end int) error {
	for i := start; i < end; i++ {
		if (i-start)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		score, err := m.scorer(target.Features, candidates[i].Features)
		if err != nil {
			return fmt.Errorf("scoring candidate %q: %w", candidates[i].ID, err)
		}
		scores[i] = score
	}
	return nil
}
