// Package pipeline builds index entries for a catalog slice with bounded
// concurrency and merges them into the previous snapshot.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/constants"
	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/service/store"
	"github.com/kapu/palette-index-go/internal/util"
)

// ItemBuilder builds one entry. reused is true when existing was returned
// without network work.
type ItemBuilder interface {
	Build(ctx context.Context, ref domain.CatalogItemRef, existing *domain.IndexEntry) (entry *domain.IndexEntry, reused bool, err error)
}

type Options struct {
	Concurrency   int
	ProgressEvery int
}

// Stats summarizes one run.
type Stats struct {
	Total    int
	Built    int64
	Reused   int64
	Failed   int64
	Duration time.Duration
}

type Pipeline struct {
	builder       ItemBuilder
	concurrency   int
	progressEvery int
	now           func() time.Time
	logger        *zap.Logger
}

func New(builder ItemBuilder, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = constants.PipelineConfig.Concurrency
	}
	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = constants.PipelineConfig.ProgressEvery
	}
	return &Pipeline{
		builder:       builder,
		concurrency:   opts.Concurrency,
		progressEvery: opts.ProgressEvery,
		now:           time.Now,
		logger:        util.OrNop(logger),
	}
}

// Run builds every ref and returns the merged snapshot. A failing item is
// logged and skipped; its previous entry, if any, survives the merge.
func (p *Pipeline) Run(ctx context.Context, refs []domain.CatalogItemRef, existing domain.IndexSnapshot) (domain.IndexSnapshot, Stats) {
	startedAt := p.now()
	previous := existing.EntriesByName()
	total := len(refs)

	var (
		completed atomic.Int64
		built     atomic.Int64
		reused    atomic.Int64
		failed    atomic.Int64
	)

	// each task owns results[idx]; wp.Wait orders the writes before the merge
	results := make([]*domain.IndexEntry, total)

	wp := pool.New().WithMaxGoroutines(p.concurrency)
	for idx, ref := range refs {
		idx, ref := idx, ref
		wp.Go(func() {
			entry, wasReused, err := p.builder.Build(ctx, ref, previous[ref.Name])
			if err != nil {
				failed.Add(1)
				p.logger.Warn("Failed to process item",
					zap.String("name", ref.Name),
					zap.Error(err),
				)
			} else if entry != nil {
				if wasReused {
					reused.Add(1)
				} else {
					built.Add(1)
				}
				results[idx] = entry
			}

			done := completed.Add(1)
			if done%int64(p.progressEvery) == 0 || done == int64(total) {
				p.logger.Info("Processed entries",
					zap.Int64("completed", done),
					zap.Int("total", total),
					zap.String("elapsed", p.now().Sub(startedAt).Round(100*time.Millisecond).String()),
				)
			}
		})
	}
	wp.Wait()

	entries := store.Merge(existing.Entries, results)
	stats := Stats{
		Total:    total,
		Built:    built.Load(),
		Reused:   reused.Load(),
		Failed:   failed.Load(),
		Duration: p.now().Sub(startedAt),
	}

	return domain.IndexSnapshot{
		GeneratedAt: p.now().UTC(),
		Count:       len(entries),
		Entries:     entries,
	}, stats
}
