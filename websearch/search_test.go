package websearch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/config"
	"github.com/leadscout/leadscout/models"
)

func searchConfig() config.WebSearchConfig {
	return config.WebSearchConfig{
		BaseURL:     "https://www.bing.com/search",
		PageOffsets: []int{1, 11},
		Delay:       0,
	}
}

func TestRun_MinesProfilesAcrossPages(t *testing.T) {
	pageOne := "[Jane Doe](https://r/<https://www.linkedin.com/in/jane>)\n" +
		"## [**Jane Doe** - **HR Manager at Acme**]\n500+ connections"
	pageTwo := "[Jane Doe](https://r/<https://www.linkedin.com/in/jane?trk=x>)\n" +
		"## [**Jane Doe** - **HR Manager at Acme**]\nagain\n" +
		"[John Roe](https://r/<https://www.linkedin.com/in/john>)\n" +
		"## [**John Roe** - **Recruiter at Initech**]\n200 connections"

	stats := models.NewRunStats()
	s := New(searchConfig(), stats)

	var fetched []string
	records, err := s.run(context.Background(), []string{"hr manager"},
		func(_ context.Context, pageURL string) (string, error) {
			fetched = append(fetched, pageURL)
			if strings.HasSuffix(pageURL, "first=1") {
				return pageOne, nil
			}
			return pageTwo, nil
		})
	require.NoError(t, err)

	// Both offsets were fetched with the site-scoped query.
	require.Len(t, fetched, 2)
	require.Contains(t, fetched[0], "first=1")
	require.Contains(t, fetched[0], "site%3Alinkedin.com%2Fin%2F")
	require.Contains(t, fetched[1], "first=11")

	// Jane shows up on both pages but is emitted once.
	require.Len(t, records, 2)
	require.Equal(t, "https://www.linkedin.com/in/jane", records[0].Key)
	require.Equal(t, "https://www.linkedin.com/in/john", records[1].Key)
	require.Equal(t, int64(2), stats.RecordsExtracted.Load())
	require.Equal(t, int64(1), stats.RecordsDuplicate.Load())
}

func TestRun_PageFailureSkipsNotAborts(t *testing.T) {
	page := "[John Roe](https://r/<https://www.linkedin.com/in/john>)\n" +
		"## [**John Roe**]\n"

	s := New(searchConfig(), models.NewRunStats())

	records, err := s.run(context.Background(), []string{"recruiter"},
		func(_ context.Context, pageURL string) (string, error) {
			if strings.Contains(pageURL, "first=1&") || strings.HasSuffix(pageURL, "first=1") {
				return "", errors.New("challenge page")
			}
			return page, nil
		})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestRun_CancellationReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	page := "[Jane Doe](https://r/<https://www.linkedin.com/in/jane>)\n" +
		"## [**Jane Doe**]\n"

	s := New(searchConfig(), models.NewRunStats())

	records, err := s.run(ctx, []string{"hr"},
		func(_ context.Context, _ string) (string, error) {
			cancel() // interrupt after the first fetch
			return page, nil
		})
	require.Error(t, err)

	var ce *models.CrawlError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, models.ErrCodeInterrupted, ce.Code)
	require.Len(t, records, 1, "results gathered before the interrupt survive")
}

func TestLooksBlocked(t *testing.T) {
	challenge := []byte(`<html><body><p>Please verify you are a human ` +
		strings.Repeat("to continue using this service. ", 10) + `</p></body></html>`)
	require.True(t, looksBlocked(challenge))

	sparse := []byte(`<html><body><div id="root"></div></body></html>`)
	require.True(t, looksBlocked(sparse))

	results := []byte(`<html><body><ol>` +
		strings.Repeat(`<li>A search result with a perfectly ordinary snippet of text.</li>`, 10) +
		`</ol></body></html>`)
	require.False(t, looksBlocked(results))
}
