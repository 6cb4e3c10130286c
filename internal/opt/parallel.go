package opt

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// solveParallel runs cfg.Runs independent searches seeded seed, seed+1, ...
// and keeps the best. Ties go to the lowest run index. All runs share one
// deadline, so queued runs get whatever budget is left.
func (e *Engine) solveParallel(ctx context.Context, seed int64, deadline time.Time) (*Result, error) {
	results := make([]*Result, e.cfg.Runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range results {
		g.Go(func() error {
			r, err := e.run(gctx, i, seed+int64(i), deadline)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	best := results[0]
	scores := make([]Score, len(results))
	for i, r := range results {
		scores[i] = r.Score
		if r.Score.Less(best.Score) {
			best = r
		}
	}
	best.RunScores = scores
	return best, nil
}
