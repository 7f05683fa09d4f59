package enrich

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/herba/internal/logger"
	"github.com/cognicore/herba/pkg/remedy"
)

// Runner fans a stage out over a bounded number of workers.
type Runner struct {
	Workers int
	Log     *logger.Logger
	// OnResult, when set, is called once per successful item, never
	// concurrently. An error aborts the run.
	OnResult func(remedy.Record) error
}

// Run applies fn to every item. Items that fail are logged and skipped;
// context cancellation and OnResult errors abort the run. Results keep the
// input order.
func Run[T any](ctx context.Context, r Runner, items []T, name func(T) string, fn func(context.Context, T) (remedy.Record, error)) ([]remedy.Record, error) {
	log := r.Log
	if log == nil {
		log = logger.Nop()
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	results := make([]*remedy.Record, len(items))
	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log.Info("processing", "item", i+1, "total", len(items), "name", name(item))
			rec, err := fn(gctx, item)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("skipping item", "name", name(item), "error", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			results[i] = &rec
			if r.OnResult != nil {
				return r.OnResult(rec)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]remedy.Record, 0, len(items))
	for _, rec := range results {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}
