// internal/scanreport/loader.go
//
// Three-stage load of the enriched collection.
//
// Context
// -------
// Stages run strictly in order because each join needs the previous one:
//
//  1. Reports, then partners and authors by chunked id__in lookups (both
//     reference kinds in flight together).  Reports are published only
//     once both joins are done.
//  2. Tables, one bulk listing, attached by scan_report.
//  3. Fields, one bulk listing, attached through each report's tables.
//
// A failure in stage 1 leaves nothing new published.  A failure in stage 2
// or 3 leaves the reports visible with their counts still nil, and the
// store's LoadState carries the error and the phase reached.
//
// Notes
// -----
//   - Concurrent Load calls share one run through singleflight.
//   - Oxford commas, two spaces after periods.
package scanreport

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/scanconsole/internal/metrics"
)

// Source is the read side of the REST API.
type Source interface {
	ListReports(ctx context.Context) ([]Report, error)
	DataPartners(ctx context.Context, ids []int) ([]DataPartner, error)
	Authors(ctx context.Context, ids []int) ([]Author, error)
	Tables(ctx context.Context) ([]Table, error)
	Fields(ctx context.Context) ([]Field, error)
}

// Loader fills a Store from a Source.
type Loader struct {
	src       Source
	store     *Store
	batchSize int
	sfg       singleflight.Group
}

// NewLoader returns a loader; batchSize < 1 selects DefaultBatchSize.
func NewLoader(src Source, store *Store, batchSize int) *Loader {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Loader{src: src, store: store, batchSize: batchSize}
}

// Load runs all three stages.  The returned error is also recorded in the
// store's LoadState.
func (l *Loader) Load(ctx context.Context) error {
	_, err, shared := l.sfg.Do("load", func() (any, error) {
		return nil, l.load(ctx)
	})
	if shared {
		zap.S().Debugw("scan report load joined in-flight run")
	}
	return err
}

func (l *Loader) load(ctx context.Context) error {
	start := time.Now()
	l.store.BeginLoad()

	reports, err := l.loadReferences(ctx)
	if err != nil {
		return l.fail("load scan reports", err)
	}
	l.store.Replace(reports)
	zap.S().Infow("scan reports loaded", "count", len(reports))

	tables, err := l.src.Tables(ctx)
	if err != nil {
		return l.fail("count tables", err)
	}
	l.store.enrich(PhaseTables, func(rs []Report) { AttachTables(rs, tables) })

	fields, err := l.src.Fields(ctx)
	if err != nil {
		return l.fail("count fields", err)
	}
	l.store.enrich(PhaseComplete, func(rs []Report) { AttachFields(rs, fields) })

	metrics.LoadDuration.Observe(time.Since(start).Seconds())
	zap.S().Infow("scan report enrichment complete",
		"tables", len(tables), "fields", len(fields), "took", time.Since(start))
	return nil
}

// loadReferences fetches reports and resolves partners and authors.
func (l *Loader) loadReferences(ctx context.Context) ([]Report, error) {
	reports, err := l.src.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].ID > reports[j].ID })

	partnerIDs, authorIDs := referencedIDs(reports)

	var (
		partners []DataPartner
		authors  []Author
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		partners, err = FetchBatches(gctx, "datapartners", ChunkIDs(partnerIDs, l.batchSize), l.src.DataPartners)
		return err
	})
	g.Go(func() error {
		var err error
		authors, err = FetchBatches(gctx, "authors", ChunkIDs(authorIDs, l.batchSize), l.src.Authors)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	JoinDataPartners(reports, partners)
	JoinAuthors(reports, authors)
	return reports, nil
}

func (l *Loader) fail(stage string, err error) error {
	err = fmt.Errorf("%s: %w", stage, err)
	metrics.LoadFailuresTotal.Inc()
	zap.S().Errorw("scan report load failed", "err", err)
	l.store.Fail(err)
	return err
}
