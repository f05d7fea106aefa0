// Package loader drives progressive content reveal on pages that lazily
// render more results as the viewport approaches the bottom.
package loader

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/leadscout/leadscout/browser"
	"github.com/leadscout/leadscout/config"
)

const (
	measureJS = `() => document.body.scrollHeight`
	scrollJS  = `() => window.scrollTo(0, document.body.scrollHeight)`
)

// Loader scrolls a page to the bottom in steps until the document stops
// growing. Expansion never fails: worst case it stops early with the
// content that has already stabilized.
type Loader struct {
	cfg config.ScrollConfig
	// rng drives the humanization jitter; seeded per loader so tests can
	// stay deterministic by disabling humanization.
	rng *rand.Rand
}

// New creates a Loader with the given scroll configuration.
func New(cfg config.ScrollConfig) *Loader {
	return &Loader{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Expand scrolls until two consecutive extent measurements are equal or
// the configured step cap is reached. The backward-scroll humanization
// never feeds the termination measurement: extents are always read after
// re-scrolling to the bottom.
func (l *Loader) Expand(ctx context.Context, page browser.Page) {
	prev, ok := l.measure(page)
	if !ok {
		return
	}

	for step := 1; l.cfg.MaxSteps <= 0 || step <= l.cfg.MaxSteps; step++ {
		if _, err := page.Eval(scrollJS); err != nil {
			slog.Debug("scroll step failed, stopping expansion", "step", step, "error", err)
			return
		}

		if !l.settle(ctx) {
			return
		}

		if l.cfg.Humanize {
			l.humanize(ctx, page)
		}

		next, ok := l.measure(page)
		if !ok {
			return
		}
		if next == prev {
			slog.Debug("content stabilized", "steps", step, "extent", next)
			return
		}
		prev = next
	}
	slog.Warn("scroll step cap reached before content stabilized",
		"maxSteps", l.cfg.MaxSteps, "extent", prev)
}

// measure reads the current document extent.
func (l *Loader) measure(page browser.Page) (int, bool) {
	v, err := page.Eval(measureJS)
	if err != nil {
		slog.Debug("extent measurement failed", "error", err)
		return 0, false
	}
	return v.Int(), true
}

// settle waits the configured delay so lazily loaded content can render.
// Returns false when the context is gone.
func (l *Loader) settle(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(l.cfg.SettleDelay):
		return true
	}
}

// humanize occasionally scrolls back up a small, randomized amount and
// pauses, then returns to the bottom. Purely cosmetic against behavioral
// detection; the next extent measurement happens after the re-scroll so
// termination is unaffected.
func (l *Loader) humanize(ctx context.Context, page browser.Page) {
	if l.rng.Intn(3) != 0 { // roughly every third step
		return
	}

	back := float64(200 + l.rng.Intn(400))
	if err := page.Scroll(ctx, -back); err != nil {
		return
	}

	pause := time.Duration(150+l.rng.Intn(450)) * time.Millisecond
	select {
	case <-ctx.Done():
		return
	case <-time.After(pause):
	}

	_, _ = page.Eval(scrollJS)
}
