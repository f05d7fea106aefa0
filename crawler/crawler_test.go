package crawler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"github.com/leadscout/leadscout/browser"
	"github.com/leadscout/leadscout/config"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/session"
)

// fakeBrowser is a shared cookie jar plus per-URL page fixtures. Pages
// handed out by NewPage all see the same session state, like tabs of one
// browser.
type fakeBrowser struct {
	mu          sync.Mutex
	validCookie string
	cookies     []models.Cookie
	htmlByQuery map[string]string // keyword substring -> rendered HTML
}

func (b *fakeBrowser) NewPage() (browser.Page, error) {
	return &fakeTab{browser: b}, nil
}

func (b *fakeBrowser) authenticated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.cookies {
		if c.Value == b.validCookie && b.validCookie != "" {
			return true
		}
	}
	return false
}

type fakeTab struct {
	browser    *fakeBrowser
	currentURL string
}

func (t *fakeTab) Navigate(_ context.Context, url string) error {
	if t.browser.authenticated() {
		t.currentURL = url
	} else {
		t.currentURL = "https://www.linkedin.com/login"
	}
	return nil
}

func (t *fakeTab) URL() (string, error) { return t.currentURL, nil }

func (t *fakeTab) WaitVisible(context.Context, string, time.Duration) error { return nil }
func (t *fakeTab) Has(string) (bool, error)                                 { return false, nil }
func (t *fakeTab) Click(context.Context, string) error                      { return nil }
func (t *fakeTab) Type(context.Context, string, string) error               { return nil }

func (t *fakeTab) Eval(js string) (gson.JSON, error) {
	if strings.Contains(js, "scrollTo") {
		return gson.New(nil), nil
	}
	return gson.New(1000), nil // stable extent, loader finishes in one step
}

func (t *fakeTab) HTML() (string, error) {
	t.browser.mu.Lock()
	defer t.browser.mu.Unlock()
	for keyword, html := range t.browser.htmlByQuery {
		if strings.Contains(t.currentURL, keyword) {
			return html, nil
		}
	}
	return "<html><body></body></html>", nil
}

func (t *fakeTab) Scroll(context.Context, float64) error { return nil }
func (t *fakeTab) Screenshot(string) error               { return nil }

func (t *fakeTab) Cookies() ([]models.Cookie, error) {
	t.browser.mu.Lock()
	defer t.browser.mu.Unlock()
	return t.browser.cookies, nil
}

func (t *fakeTab) SetCookies(cookies []models.Cookie) error {
	t.browser.mu.Lock()
	defer t.browser.mu.Unlock()
	t.browser.cookies = cookies
	return nil
}

func (t *fakeTab) Close() error { return nil }

func card(name, slug, subtitle string) string {
	return `<li class="reusable-search__result-container">
  <span class="entity-result__title-text">
    <a class="app-aware-link" href="https://www.linkedin.com/in/` + slug + `?trk=search">
      <span aria-hidden="true">` + name + `</span>
    </a>
  </span>
  <div class="entity-result__primary-subtitle">` + subtitle + `</div>
</li>`
}

func resultsPage(cards ...string) string {
	return `<div class="search-results-container"><ul>` +
		strings.Join(cards, "\n") + `</ul></div>`
}

func crawlerConfig() *config.Config {
	return &config.Config{
		Platform: config.PlatformConfig{
			BaseURL:          "https://www.linkedin.com",
			LandingPath:      "/feed/",
			LandingMarkers:   []string{"/feed", "/mynetwork"},
			LoginPath:        "/login",
			UserSelector:     "#username",
			PassSelector:     "#password",
			SubmitSelector:   `button[type="submit"]`,
			PeopleSearchPath: "/search/results/people/",
			ResultsSelector:  ".search-results-container",
			JobsSearchPath:   "/jobs/search/",
		},
		Crawl: config.CrawlConfig{
			Concurrency:  2,
			NavTimeout:   time.Second,
			WaitTimeout:  100 * time.Millisecond,
			LoginTimeout: 50 * time.Millisecond,
		},
		Scroll: config.ScrollConfig{SettleDelay: time.Millisecond, MaxSteps: 3},
		Auth:   config.AuthConfig{Username: "u", Password: "p", Profile: "default"},
	}
}

func seededStore(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewStore(t.TempDir(), "default")
	require.NoError(t, store.SaveCookies([]models.Cookie{{Name: "li_at", Value: "live-token"}}))
	return store
}

func TestSearchPeople_DeduplicatesAcrossQueries(t *testing.T) {
	fb := &fakeBrowser{
		validCookie: "live-token",
		htmlByQuery: map[string]string{
			"hr+manager": resultsPage(
				card("Jane Doe", "jane", "HR Manager at Acme"),
				card("John Roe", "john", "Recruiter at Initech"),
			),
			"talent+lead": resultsPage(
				card("Jane Doe", "jane", "HR Manager at Acme"), // same person again
				card("Mary Major", "mary", "Talent Lead at Hooli"),
			),
		},
	}

	stats := models.NewRunStats()
	c := New(crawlerConfig(), fb, seededStore(t), stats)

	items, err := c.SearchPeople(context.Background(), []string{"hr manager", "talent lead"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	total := 0
	keys := map[string]bool{}
	for _, item := range items {
		require.Equal(t, models.OutcomeSuccess, item.Outcome)
		total += len(item.Records)
		for _, rec := range item.Records {
			require.False(t, keys[rec.Key], "duplicate key emitted: %s", rec.Key)
			keys[rec.Key] = true
		}
	}
	// Jane appears under both queries but is emitted once.
	require.Equal(t, 3, total)
	require.Equal(t, int64(3), stats.RecordsExtracted.Load())
	require.Equal(t, int64(1), stats.RecordsDuplicate.Load())
}

func TestSearchPeople_PerQueryDedupScope(t *testing.T) {
	fb := &fakeBrowser{
		validCookie: "live-token",
		htmlByQuery: map[string]string{
			"hr+manager":  resultsPage(card("Jane Doe", "jane", "HR Manager at Acme")),
			"talent+lead": resultsPage(card("Jane Doe", "jane", "HR Manager at Acme")),
		},
	}

	cfg := crawlerConfig()
	cfg.Crawl.DedupPerQuery = true
	c := New(cfg, fb, seededStore(t), models.NewRunStats())

	items, err := c.SearchPeople(context.Background(), []string{"hr manager", "talent lead"})
	require.NoError(t, err)

	total := 0
	for _, item := range items {
		total += len(item.Records)
	}
	// Same profile, but each query keeps its own sighting.
	require.Equal(t, 2, total)
}

func TestRun_LoginFailureAbortsBatch(t *testing.T) {
	// No valid cookie and the login form never authenticates.
	fb := &fakeBrowser{htmlByQuery: map[string]string{}}

	store := session.NewStore(t.TempDir(), "default")
	c := New(crawlerConfig(), fb, store, models.NewRunStats())

	items, err := c.SearchPeople(context.Background(), []string{"hr manager"})
	require.Error(t, err)
	require.Nil(t, items)

	var ce *models.CrawlError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, models.ErrCodeLoginFailed, ce.Code)
}

func TestRun_RecordBudgetCapsOutput(t *testing.T) {
	fb := &fakeBrowser{
		validCookie: "live-token",
		htmlByQuery: map[string]string{
			"hr+manager": resultsPage(
				card("Jane Doe", "jane", "HR Manager at Acme"),
				card("John Roe", "john", "Recruiter at Initech"),
				card("Mary Major", "mary", "Talent Lead at Hooli"),
			),
		},
	}

	cfg := crawlerConfig()
	cfg.Crawl.MaxRecords = 2
	c := New(cfg, fb, seededStore(t), models.NewRunStats())

	items, err := c.SearchPeople(context.Background(), []string{"hr manager"})
	require.NoError(t, err)

	total := 0
	for _, item := range items {
		total += len(item.Records)
	}
	require.Equal(t, 2, total)
}
