// Package websearch finds platform profiles through a public search
// engine. It needs no login: pages are fetched over plain HTTP with a
// browser TLS fingerprint, converted to markdown, and mined for profile
// links.
package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/leadscout/leadscout/config"
	"github.com/leadscout/leadscout/extract"
	"github.com/leadscout/leadscout/models"
)

// Searcher runs login-free profile discovery.
type Searcher struct {
	cfg     config.WebSearchConfig
	fetcher *fetcher
	stats   *models.RunStats
}

// New creates a Searcher using the real fetcher and converter.
func New(cfg config.WebSearchConfig, stats *models.RunStats) *Searcher {
	return &Searcher{
		cfg:     cfg,
		fetcher: newFetcher(cfg.Proxy),
		stats:   stats,
	}
}

// Run fetches every configured results page for each query and returns
// the deduplicated profile records. Individual page failures are logged
// and skipped; the run continues with the remaining pages.
func (s *Searcher) Run(ctx context.Context, queries []string) ([]models.Record, error) {
	return s.run(ctx, queries, s.fetchMarkdown)
}

// run is the engine behind Run, parameterized on the page source.
func (s *Searcher) run(ctx context.Context, queries []string, fetchPage func(context.Context, string) (string, error)) ([]models.Record, error) {
	seen := make(map[string]struct{})
	var records []models.Record

	for _, query := range queries {
		siteQuery := fmt.Sprintf(`site:linkedin.com/in/ %s`, query)

		for _, offset := range s.cfg.PageOffsets {
			if err := ctx.Err(); err != nil {
				return records, models.NewCrawlError(models.ErrCodeInterrupted,
					"search interrupted", err)
			}

			pageURL := s.resultsURL(siteQuery, offset)
			markdown, err := fetchPage(ctx, pageURL)
			if err != nil {
				slog.Warn("results page skipped", "url", pageURL, "error", err)
				continue
			}

			found, skipped := extract.ProfilesFromMarkdown(markdown, query)
			if s.stats != nil {
				s.stats.RecordsSkipped.Add(int64(skipped))
			}
			for _, rec := range found {
				if _, dup := seen[rec.Key]; dup {
					if s.stats != nil {
						s.stats.RecordsDuplicate.Add(1)
					}
					continue
				}
				seen[rec.Key] = struct{}{}
				records = append(records, rec)
			}
			slog.Info("results page mined", "query", query, "offset", offset,
				"found", len(found), "total", len(records))

			if !s.pause(ctx) {
				return records, models.NewCrawlError(models.ErrCodeInterrupted,
					"search interrupted during pause", ctx.Err())
			}
		}
		if s.stats != nil {
			s.stats.ItemsProcessed.Add(1)
			s.stats.SampleMemory()
		}
	}

	if s.stats != nil {
		s.stats.RecordsExtracted.Add(int64(len(records)))
	}
	return records, nil
}

// fetchMarkdown retrieves one results page and converts it to markdown.
func (s *Searcher) fetchMarkdown(ctx context.Context, pageURL string) (string, error) {
	body, err := s.fetcher.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if looksBlocked(body) {
		return "", models.NewCrawlError(models.ErrCodeNavUnreachable,
			"search engine served a challenge page", nil)
	}

	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Scheme + "://" + u.Host
	}
	return extract.HTMLToMarkdown(extract.NewMarkdownConverter(), string(body), domain)
}

// resultsURL builds one results page URL for the query and offset.
func (s *Searcher) resultsURL(query string, offset int) string {
	return fmt.Sprintf("%s?q=%s&first=%d", s.cfg.BaseURL, url.QueryEscape(query), offset)
}

// pause applies the inter-fetch politeness delay.
func (s *Searcher) pause(ctx context.Context) bool {
	if s.cfg.Delay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.cfg.Delay):
		return true
	}
}
