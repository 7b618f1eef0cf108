// internal/scanreport/batch.go
//
// Parallel id__in lookups.
//
// Context
// -------
// Reference entities (data partners, authors) are looked up by id list.
// The list is chunked first, then every chunk is requested at once through
// an errgroup.  The stage succeeds only when every chunk succeeds; on the
// first failure the group context is cancelled and the chunks that already
// arrived are discarded.
//
// Notes
// -----
//   - Result order follows chunk order, not completion order.
//   - Oxford commas, two spaces after periods.
package scanreport

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/scanconsole/internal/metrics"
)

// FetchFunc reads the entities whose ids are listed.
type FetchFunc[T any] func(ctx context.Context, ids []int) ([]T, error)

// FetchBatches issues one fetch per batch concurrently and flattens the
// results.  The stage label only feeds logs and metrics.
func FetchBatches[T any](ctx context.Context, stage string, batches [][]int, fetch FetchFunc[T]) ([]T, error) {
	if len(batches) == 0 {
		return nil, nil
	}

	results := make([][]T, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			metrics.BatchRequestsTotal.WithLabelValues(stage).Inc()
			got, err := fetch(gctx, batch)
			if err != nil {
				metrics.BatchFailuresTotal.WithLabelValues(stage).Inc()
				return fmt.Errorf("%s batch %d/%d: %w", stage, i+1, len(batches), err)
			}
			results[i] = got
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		zap.S().Warnw("batch stage failed", "stage", stage, "batches", len(batches), "err", err)
		return nil, err
	}

	n := 0
	for _, r := range results {
		n += len(r)
	}
	out := make([]T, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	zap.S().Debugw("batch stage done", "stage", stage, "batches", len(batches), "items", n)
	return out, nil
}
