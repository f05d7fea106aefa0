package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/models"
)

func profileRecord(name, slug, query string) models.Record {
	key := "https://www.linkedin.com/in/" + slug
	return models.Record{
		Kind: models.KindSearchProfile,
		Key:  key,
		Fields: map[string]string{
			models.FieldName:        name,
			models.FieldDesignation: "HR Manager at Acme",
			models.FieldCompany:     "Acme",
			models.FieldConnections: "500+",
			models.FieldURL:         key,
			models.FieldDescription: "Hiring, people ops",
			models.FieldQuery:       query,
		},
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriter_HeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, models.KindSearchProfile)
	require.NoError(t, err)

	require.NoError(t, w.Append([]models.Record{
		profileRecord("Jane Doe", "jane", "hr manager"),
	}))
	require.NoError(t, w.Close())

	rows := readRows(t, w.Path())
	require.Len(t, rows, 2)
	require.Equal(t, []string{"Name", "Designation", "Company", "Connections", "URL", "Description", "SearchQuery"}, rows[0])
	require.Equal(t, []string{
		"Jane Doe", "HR Manager at Acme", "Acme", "500+",
		"https://www.linkedin.com/in/jane", "Hiring, people ops", "hr manager",
	}, rows[1])

	require.True(t, strings.HasPrefix(filepath.Base(w.Path()), "leadscout_profiles_"))
	require.True(t, strings.HasSuffix(w.Path(), ".csv"))
}

func TestWriter_RowsSurviveWithoutClose(t *testing.T) {
	// Append flushes, so a run killed mid-batch still keeps its rows.
	dir := t.TempDir()
	w, err := NewWriter(dir, models.KindSearchProfile)
	require.NoError(t, err)

	require.NoError(t, w.Append([]models.Record{
		profileRecord("Jane Doe", "jane", "q"),
		profileRecord("John Roe", "john", "q"),
	}))

	rows := readRows(t, w.Path())
	require.Len(t, rows, 3, "header plus two flushed records")
}

func TestWriter_AppendItemsSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, models.KindSearchProfile)
	require.NoError(t, err)

	items := []models.BatchItem{
		{Outcome: models.OutcomeSuccess, Records: []models.Record{profileRecord("Jane Doe", "jane", "q")}},
		{Outcome: models.OutcomeFailed, ErrCode: models.ErrCodeNavTimeout},
		{Outcome: models.OutcomePending},
	}
	require.NoError(t, w.AppendItems(items))
	require.NoError(t, w.Close())

	rows := readRows(t, w.Path())
	require.Len(t, rows, 2)
	require.Equal(t, 1, w.Rows())
}

func TestWriter_JobListingColumns(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, models.KindJobListing)
	require.NoError(t, err)

	rec := models.Record{
		Kind: models.KindJobListing,
		Key:  "https://www.linkedin.com/jobs/view/4001",
		Fields: map[string]string{
			models.FieldName:      "Senior Go Engineer",
			models.FieldCompany:   "Initech",
			models.FieldLocation:  "Remote, EU",
			models.FieldInsight:   "Actively recruiting",
			models.FieldEasyApply: "true",
			models.FieldURL:       "https://www.linkedin.com/jobs/view/4001",
			models.FieldQuery:     "go engineer",
		},
	}
	require.NoError(t, w.Append([]models.Record{rec}))
	require.NoError(t, w.Close())

	rows := readRows(t, w.Path())
	require.Equal(t, []string{"Title", "Company", "Location", "Insight", "EasyApply", "URL", "SearchQuery"}, rows[0])
	require.Equal(t, "Senior Go Engineer", rows[1][0])
	require.True(t, strings.HasPrefix(filepath.Base(w.Path()), "leadscout_jobs_"))
}
