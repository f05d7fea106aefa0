// Package export writes crawl results to timestamped CSV files. The
// writer appends and flushes per window so an interrupted run keeps
// everything already crawled.
package export

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leadscout/leadscout/models"
)

// header is the fixed output column order.
var header = []string{"Name", "Designation", "Company", "Connections", "URL", "Description", "SearchQuery"}

// jobsHeader is the column order for job listings.
var jobsHeader = []string{"Title", "Company", "Location", "Insight", "EasyApply", "URL", "SearchQuery"}

// Writer is a crash-tolerant CSV sink: every Append flushes to disk.
type Writer struct {
	file *os.File
	csv  *csv.Writer
	kind models.RecordKind
	path string
	rows int
}

// NewWriter creates a timestamped CSV in dir and writes the header for
// the record kind.
func NewWriter(dir string, kind models.RecordKind) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, models.NewCrawlError(models.ErrCodePersistFailed,
			"failed to create output directory "+dir, err)
	}

	name := "leadscout_" + fileTag(kind) + "_" + time.Now().Format("20060102_150405") + ".csv"
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodePersistFailed,
			"failed to create "+path, err)
	}

	w := &Writer{file: file, csv: csv.NewWriter(file), kind: kind, path: path}
	if err := w.csv.Write(w.columns()); err != nil {
		file.Close()
		return nil, models.NewCrawlError(models.ErrCodePersistFailed,
			"failed to write header", err)
	}
	w.csv.Flush()
	return w, w.flushErr()
}

// Path reports the file being written.
func (w *Writer) Path() string { return w.path }

// Rows reports how many records have been written.
func (w *Writer) Rows() int { return w.rows }

// Append writes the records and flushes so they survive a crash.
func (w *Writer) Append(records []models.Record) error {
	for _, rec := range records {
		if err := w.csv.Write(w.row(rec)); err != nil {
			return models.NewCrawlError(models.ErrCodePersistFailed,
				"failed to write record "+rec.Key, err)
		}
		w.rows++
	}
	w.csv.Flush()
	return w.flushErr()
}

// AppendItems writes the records of every successful item in a window.
func (w *Writer) AppendItems(items []models.BatchItem) error {
	for _, item := range items {
		if item.Outcome != models.OutcomeSuccess {
			continue
		}
		if err := w.Append(item.Records); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.csv.Flush()
	flushErr := w.flushErr()
	closeErr := w.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return models.NewCrawlError(models.ErrCodePersistFailed,
			"failed to close "+w.path, closeErr)
	}
	slog.Info("export finished", "path", w.path, "rows", w.rows)
	return nil
}

func (w *Writer) flushErr() error {
	if err := w.csv.Error(); err != nil {
		return models.NewCrawlError(models.ErrCodePersistFailed,
			"failed to flush "+w.path, err)
	}
	return nil
}

func (w *Writer) columns() []string {
	if w.kind == models.KindJobListing {
		return jobsHeader
	}
	return header
}

func (w *Writer) row(rec models.Record) []string {
	if w.kind == models.KindJobListing {
		return []string{
			rec.Get(models.FieldName),
			rec.Get(models.FieldCompany),
			rec.Get(models.FieldLocation),
			rec.Get(models.FieldInsight),
			rec.Get(models.FieldEasyApply),
			rec.Get(models.FieldURL),
			rec.Get(models.FieldQuery),
		}
	}
	return []string{
		rec.Get(models.FieldName),
		rec.Get(models.FieldDesignation),
		rec.Get(models.FieldCompany),
		rec.Get(models.FieldConnections),
		rec.Get(models.FieldURL),
		rec.Get(models.FieldDescription),
		rec.Get(models.FieldQuery),
	}
}

func fileTag(kind models.RecordKind) string {
	switch kind {
	case models.KindJobListing:
		return "jobs"
	case models.KindDetailedProfile:
		return "profile_details"
	default:
		return "profiles"
	}
}
