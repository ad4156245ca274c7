package match

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"talentmatch/internal/config"
	"talentmatch/internal/errors"
	"talentmatch/internal/types"
)

// ErrorMode controls what an oracle failure means for a ranking run.
type ErrorMode string

const (
	// FailBatch aborts the whole batch on the first oracle error.
	FailBatch ErrorMode = "fail"
	// DegradeCandidate scores the affected candidate 0 and keeps going.
	DegradeCandidate ErrorMode = "degrade"
)

// Ranker scores a batch of candidates against a search query and
// returns them ordered by match percentage. Scoring calls fan out
// concurrently up to a configured limit; results keep their input
// positions until the final sort, so equal scores preserve input
// order.
type Ranker struct {
	scorer        Scorer
	maxBatch      int
	maxConcurrent int
	errorMode     ErrorMode
	logger        *errors.Logger
}

// NewRanker creates a ranker over the given similarity backend.
func NewRanker(scorer Scorer, cfg config.OracleConfig, logger *errors.Logger) *Ranker {
	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 20
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	errorMode := ErrorMode(cfg.OnError)
	if errorMode != DegradeCandidate {
		errorMode = FailBatch
	}

	return &Ranker{
		scorer:        scorer,
		maxBatch:      maxBatch,
		maxConcurrent: maxConcurrent,
		errorMode:     errorMode,
		logger:        logger,
	}
}

// Rank scores query against every candidate and returns the batch
// sorted by descending match. Batches beyond the cap are silently
// truncated. Entries that are not JSON objects cannot be projected and
// come back as a bare zero match.
func (r *Ranker) Rank(ctx context.Context, q types.MatchQuery) ([]types.ScoredCandidate, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, errors.NewValidationError(
			errors.ErrCodeInvalidRequest,
			"query is required",
			nil,
		)
	}

	candidates := q.Candidates
	if len(candidates) > r.maxBatch {
		if r.logger != nil {
			r.logger.Warn("Candidate batch exceeds cap, truncating",
				"batch_size", len(candidates),
				"cap", r.maxBatch)
		}
		candidates = candidates[:r.maxBatch]
	}

	query := strings.ToLower(q.Query)
	job := query
	if q.Job != "" {
		job = strings.ToLower(q.Job)
	}

	scored := make([]types.ScoredCandidate, len(candidates))

	scoreCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, r.maxConcurrent)
		errOnce  sync.Once
		batchErr error
	)

	for i, entry := range candidates {
		raw, ok := entry.(map[string]any)
		if !ok {
			// Non-object entries pass through unscored.
			scored[i] = types.ScoredCandidate{Match: 0}
			continue
		}
		rec := types.Record(raw)

		wg.Add(1)
		go func(i int, rec types.Record) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-scoreCtx.Done():
				scored[i] = types.ScoredCandidate{Record: rec, Match: 0}
				return
			}

			resume := strings.ToLower(ProjectText(rec))
			score, err := r.scorer.Score(scoreCtx, query, resume, job)
			if err != nil {
				if r.errorMode == DegradeCandidate {
					if r.logger != nil {
						r.logger.Warn("Scoring failed for candidate, degrading to 0",
							"candidate", rec.String(types.KeyName),
							"error", err.Error())
					}
					scored[i] = types.ScoredCandidate{Record: rec, Match: 0}
					return
				}
				errOnce.Do(func() {
					batchErr = err
					cancel()
				})
				return
			}

			scored[i] = types.ScoredCandidate{Record: rec, Match: matchPercent(score)}
		}(i, rec)
	}

	wg.Wait()

	if batchErr != nil {
		return nil, batchErr
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Match > scored[b].Match
	})

	return scored, nil
}

// matchPercent converts an oracle similarity in [0,1] to a whole
// percentage. Negative scores clamp to 0; scores above 1 are passed
// through, trusting the backend contract.
func matchPercent(score float64) int {
	return int(math.Round(math.Max(0, score*100)))
}
