package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leadscout/leadscout/config"
	"github.com/leadscout/leadscout/models"
)

// ItemFunc processes a single target and returns its records.
type ItemFunc func(ctx context.Context, target models.TargetDescriptor) ([]models.Record, error)

// Orchestrator runs targets in fixed-size concurrent windows: the next
// window starts only after every item of the current one finished. Item
// failures downgrade that item to Failed; they never abort the batch.
type Orchestrator struct {
	concurrency int
	delay       time.Duration
	stats       *models.RunStats

	// OnWindow, when set, observes each completed window: its 1-based
	// index and the items it processed. Used for partial export.
	OnWindow func(window int, items []models.BatchItem)
}

// NewOrchestrator derives window size and pacing from the crawl config.
func NewOrchestrator(cfg config.CrawlConfig, stats *models.RunStats) *Orchestrator {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		concurrency: concurrency,
		delay:       cfg.InterBatchDelay,
		stats:       stats,
	}
}

// Run processes all targets and returns one BatchItem per target, in
// input order. Cancellation stops scheduling new windows; items that
// never ran keep OutcomePending so the caller can tell them apart from
// failures.
func (o *Orchestrator) Run(ctx context.Context, targets []models.TargetDescriptor, fn ItemFunc) []models.BatchItem {
	items := make([]models.BatchItem, len(targets))
	for i, target := range targets {
		items[i] = models.BatchItem{Target: target, Outcome: models.OutcomePending}
	}

	window := 0
	for start := 0; start < len(items); start += o.concurrency {
		if ctx.Err() != nil {
			slog.Warn("batch interrupted, skipping remaining windows",
				"completedWindows", window, "remaining", len(items)-start)
			break
		}

		end := start + o.concurrency
		if end > len(items) {
			end = len(items)
		}
		window++
		slog.Info("starting window", "window", window,
			"items", end-start, "offset", start)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(item *models.BatchItem) {
				defer wg.Done()
				o.processItem(ctx, item, fn)
			}(&items[i])
		}
		wg.Wait()

		if o.stats != nil {
			o.stats.SampleMemory()
		}
		if o.OnWindow != nil {
			o.OnWindow(window, items[start:end])
		}

		if end < len(items) && !o.pause(ctx) {
			slog.Warn("batch interrupted during inter-window pause",
				"completedWindows", window)
			break
		}
	}
	return items
}

// processItem runs one target, converting errors and panics into a
// Failed outcome on the item.
func (o *Orchestrator) processItem(ctx context.Context, item *models.BatchItem, fn ItemFunc) {
	defer func() {
		if r := recover(); r != nil {
			item.Fail(models.NewCrawlError(models.ErrCodeInternal,
				fmt.Sprintf("panic while processing target: %v", r), nil))
			slog.Error("target processing panicked",
				"url", item.Target.URL, "panic", r)
		}
	}()

	records, err := fn(ctx, item.Target)
	if err != nil {
		item.Fail(err)
		slog.Warn("target failed", "url", item.Target.URL,
			"code", item.ErrCode, "error", err)
		return
	}

	item.Succeed(records)
	if o.stats != nil {
		o.stats.ItemsProcessed.Add(1)
	}
	slog.Debug("target finished", "url", item.Target.URL, "records", len(records))
}

// pause sleeps the inter-window delay, returning false on cancellation.
func (o *Orchestrator) pause(ctx context.Context) bool {
	if o.delay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(o.delay):
		return true
	}
}
