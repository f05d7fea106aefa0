// Package crawler ties the session state machine, the incremental
// loader, the extractors and the deduplicator into a windowed batch run.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/leadscout/leadscout/auth"
	"github.com/leadscout/leadscout/browser"
	"github.com/leadscout/leadscout/config"
	"github.com/leadscout/leadscout/dedup"
	"github.com/leadscout/leadscout/extract"
	"github.com/leadscout/leadscout/loader"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/session"
)

// seeMoreSelector expands the truncated about section on profile pages.
const seeMoreSelector = "button.inline-show-more-text__button"

// PageSource hands out automation pages. *browser.Browser satisfies it;
// tests substitute scripted fakes.
type PageSource interface {
	NewPage() (browser.Page, error)
}

// Crawler executes authenticated crawl runs.
type Crawler struct {
	cfg     *config.Config
	pages   PageSource
	auth    *auth.Authenticator
	loader  *loader.Loader
	stats   *models.RunStats
	limiter *rate.Limiter
	engines map[models.RecordKind]*extract.Engine

	mu        sync.Mutex
	dedups    map[string]*dedup.Deduplicator // keyed by dedup scope
	emitted   int
	rng       *rand.Rand
	windowObs WindowObserver
}

// New wires a Crawler from its parts. The session store feeds the
// authenticator; everything else derives from config.
func New(cfg *config.Config, pages PageSource, store *session.Store, stats *models.RunStats) *Crawler {
	limit := rate.Inf
	if cfg.Crawl.NavPerSecond > 0 {
		limit = rate.Limit(cfg.Crawl.NavPerSecond)
	}
	burst := cfg.Crawl.NavBurst
	if burst < 1 {
		burst = 1
	}

	return &Crawler{
		cfg:     cfg,
		pages:   pages,
		auth:    auth.New(cfg.Platform, cfg.Auth, cfg.Crawl, store),
		loader:  loader.New(cfg.Scroll),
		stats:   stats,
		limiter: rate.NewLimiter(limit, burst),
		engines: map[models.RecordKind]*extract.Engine{
			models.KindSearchProfile:   extract.MustEngine(extract.SearchProfileSchema()),
			models.KindJobListing:      extract.MustEngine(extract.JobListingSchema()),
			models.KindDetailedProfile: extract.MustEngine(extract.DetailedProfileSchema()),
		},
		dedups: make(map[string]*dedup.Deduplicator),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SearchPeople crawls the people-search surface for each query.
func (c *Crawler) SearchPeople(ctx context.Context, queries []string) ([]models.BatchItem, error) {
	targets := make([]models.TargetDescriptor, 0, len(queries))
	for _, q := range queries {
		targets = append(targets, models.TargetDescriptor{
			URL:   c.searchURL(c.cfg.Platform.PeopleSearchPath, q),
			Query: q,
			Kind:  models.KindSearchProfile,
		})
	}
	return c.Run(ctx, targets)
}

// SearchJobs crawls the jobs-search surface for each query.
func (c *Crawler) SearchJobs(ctx context.Context, queries []string) ([]models.BatchItem, error) {
	targets := make([]models.TargetDescriptor, 0, len(queries))
	for _, q := range queries {
		targets = append(targets, models.TargetDescriptor{
			URL:   c.searchURL(c.cfg.Platform.JobsSearchPath, q),
			Query: q,
			Kind:  models.KindJobListing,
		})
	}
	return c.Run(ctx, targets)
}

// VisitProfiles crawls individual profile pages.
func (c *Crawler) VisitProfiles(ctx context.Context, urls []string) ([]models.BatchItem, error) {
	targets := make([]models.TargetDescriptor, 0, len(urls))
	for _, u := range urls {
		targets = append(targets, models.TargetDescriptor{
			URL:  u,
			Kind: models.KindDetailedProfile,
		})
	}
	return c.Run(ctx, targets)
}

// Run authenticates once, then processes the targets in windows. A login
// failure aborts the whole batch before any target runs; per-target
// failures only downgrade their own item.
func (c *Crawler) Run(ctx context.Context, targets []models.TargetDescriptor) ([]models.BatchItem, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	orch := NewOrchestrator(c.cfg.Crawl, c.stats)
	orch.OnWindow = c.onWindow
	items := orch.Run(ctx, targets, c.processTarget)
	return items, nil
}

// WindowObserver receives each completed window.
type WindowObserver func(window int, items []models.BatchItem)

func (c *Crawler) onWindow(window int, items []models.BatchItem) {
	c.mu.Lock()
	obs := c.windowObs
	c.mu.Unlock()
	if obs != nil {
		obs(window, items)
	}
}

// SetWindowObserver registers a callback invoked after every window,
// with the items that window processed. Used for partial export so an
// interrupted run keeps everything already crawled.
func (c *Crawler) SetWindowObserver(obs WindowObserver) {
	c.mu.Lock()
	c.windowObs = obs
	c.mu.Unlock()
}

// ensureSession performs the login state machine on a dedicated page.
func (c *Crawler) ensureSession(ctx context.Context) error {
	page, err := c.pages.NewPage()
	if err != nil {
		return models.NewCrawlError(models.ErrCodeBrowserCrash,
			"failed to open page for session bootstrap", err)
	}
	defer page.Close()
	return c.auth.EnsureLoggedIn(ctx, page)
}

// processTarget is the per-item pipeline: throttle, navigate, expand,
// extract, dedup.
func (c *Crawler) processTarget(ctx context.Context, target models.TargetDescriptor) ([]models.Record, error) {
	if c.budgetExhausted() {
		slog.Debug("record budget reached, skipping target", "url", target.URL)
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewCrawlError(models.ErrCodeInterrupted,
			"canceled while waiting for navigation slot", err)
	}
	if target.Kind == models.KindDetailedProfile {
		if err := c.thinkDelay(ctx); err != nil {
			return nil, err
		}
	}

	page, err := c.pages.NewPage()
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash,
			"failed to acquire page", err)
	}
	defer page.Close()

	records, err := c.crawlPage(ctx, page, target)
	if err != nil && c.cfg.Debug.DumpOnError {
		c.dumpFailure(page, target)
	}
	return records, err
}

func (c *Crawler) crawlPage(ctx context.Context, page browser.Page, target models.TargetDescriptor) ([]models.Record, error) {
	navCtx, cancel := context.WithTimeout(ctx, c.cfg.Crawl.NavTimeout)
	defer cancel()
	if err := page.Navigate(navCtx, target.URL); err != nil {
		return nil, err
	}

	if sel := c.waitSelector(target.Kind); sel != "" {
		if err := page.WaitVisible(ctx, sel, c.cfg.Crawl.WaitTimeout); err != nil {
			return nil, err
		}
	}

	c.loader.Expand(ctx, page)

	if target.Kind == models.KindDetailedProfile {
		c.expandAboutSection(ctx, page)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeMalformed,
			"failed to read rendered page", err)
	}

	pageURL := target.URL
	if current, err := page.URL(); err == nil && current != "" {
		pageURL = current
	}

	engine := c.engines[target.Kind]
	records, skipped, err := engine.Extract(html, pageURL, target.Query)
	if err != nil {
		return nil, err
	}
	c.stats.RecordsSkipped.Add(int64(skipped))

	kept := c.filterNew(target, records)
	c.stats.RecordsExtracted.Add(int64(len(kept)))
	c.stats.RecordsDuplicate.Add(int64(len(records) - len(kept)))

	slog.Info("target crawled", "url", target.URL, "kind", string(target.Kind),
		"extracted", len(records), "kept", len(kept), "skipped", skipped)
	return kept, nil
}

// filterNew keeps first sightings only and enforces the record budget.
func (c *Crawler) filterNew(target models.TargetDescriptor, records []models.Record) []models.Record {
	scope := ""
	if c.cfg.Crawl.DedupPerQuery {
		scope = target.Query
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.dedups[scope]
	if !ok {
		d = dedup.New()
		c.dedups[scope] = d
	}

	kept := records[:0]
	for _, rec := range records {
		if !d.IsNew(rec.Key) {
			continue
		}
		if c.cfg.Crawl.MaxRecords > 0 && c.emitted >= c.cfg.Crawl.MaxRecords {
			break
		}
		c.emitted++
		kept = append(kept, rec)
	}
	return kept
}

// budgetExhausted reports whether MaxRecords has been reached.
func (c *Crawler) budgetExhausted() bool {
	if c.cfg.Crawl.MaxRecords <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emitted >= c.cfg.Crawl.MaxRecords
}

// waitSelector is the element that signals the target surface rendered.
func (c *Crawler) waitSelector(kind models.RecordKind) string {
	switch kind {
	case models.KindSearchProfile:
		return c.cfg.Platform.ResultsSelector
	case models.KindJobListing:
		return c.engines[models.KindJobListing].ContainerSelector()
	case models.KindDetailedProfile:
		return "h1"
	}
	return ""
}

// expandAboutSection clicks the about-section expander when present.
// This is the one place a click is retried: the button reflows while
// lazy content settles, so a missed click is transient, unlike the
// strictly single-attempt login submission.
func (c *Crawler) expandAboutSection(ctx context.Context, page browser.Page) {
	has, err := page.Has(seeMoreSelector)
	if err != nil || !has {
		return
	}
	for attempt := 1; attempt <= 3; attempt++ {
		if err := page.Click(ctx, seeMoreSelector); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(300 * time.Millisecond):
		}
	}
	slog.Debug("about-section expander never became clickable")
}

// thinkDelay pauses a randomized interval before a profile visit.
func (c *Crawler) thinkDelay(ctx context.Context) error {
	min, max := c.cfg.Crawl.ThinkDelayMin, c.cfg.Crawl.ThinkDelayMax
	if max <= min {
		max = min
	}
	if min <= 0 && max <= 0 {
		return nil
	}

	c.mu.Lock()
	span := max - min
	d := min
	if span > 0 {
		d += time.Duration(c.rng.Int63n(int64(span)))
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return models.NewCrawlError(models.ErrCodeInterrupted,
			"canceled during pre-visit pause", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// dumpFailure writes a screenshot and the rendered HTML of a failed page
// for postmortems.
func (c *Crawler) dumpFailure(page browser.Page, target models.TargetDescriptor) {
	if err := os.MkdirAll(c.cfg.Debug.Dir, 0o755); err != nil {
		slog.Warn("failed to create debug directory", "dir", c.cfg.Debug.Dir, "error", err)
		return
	}
	stamp := time.Now().Format("20060102_150405")
	base := filepath.Join(c.cfg.Debug.Dir,
		fmt.Sprintf("%s_%s", stamp, sanitizeForFilename(target.URL)))

	if err := page.Screenshot(base + ".png"); err != nil {
		slog.Debug("debug screenshot failed", "error", err)
	}
	if html, err := page.HTML(); err == nil {
		if werr := os.WriteFile(base+".html", []byte(html), 0o644); werr != nil {
			slog.Debug("debug html dump failed", "error", werr)
		}
	}
	slog.Info("failure artifacts written", "base", base)
}

// searchURL builds a search surface URL with the escaped query.
func (c *Crawler) searchURL(path, query string) string {
	return c.cfg.Platform.BaseURL + path + "?keywords=" + url.QueryEscape(query)
}

// sanitizeForFilename reduces a URL to a safe filename fragment.
func sanitizeForFilename(s string) string {
	mapper := func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}
	out := strings.Map(mapper, s)
	if len(out) > 80 {
		out = out[:80]
	}
	return out
}
