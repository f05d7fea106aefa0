// Package session persists login credentials (cookie sets) between runs
// so a crawl can skip the login form when a previous session is still
// valid.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leadscout/leadscout/models"
)

const credentialFile = "cookies.json"

// Store reads and writes the credential file for one account profile.
// The credential file is the only cross-run shared mutable resource, so
// writes are atomic (temp file + rename); a crash mid-write can never
// leave a torn file for the next run.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir/profile.
func NewStore(dir, profile string) *Store {
	return &Store{dir: filepath.Join(dir, profile)}
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, credentialFile)
}

// Load reads the stored credential. A missing file is not an error; it
// just means no session has been captured yet.
func (s *Store) Load() (*models.SessionCredential, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, models.NewCrawlError(models.ErrCodePersistFailed, "read credential file", err)
	}

	var cred models.SessionCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		// Legacy format: a bare JSON array of cookie records.
		var cookies []models.Cookie
		if arrErr := json.Unmarshal(data, &cookies); arrErr == nil {
			return &models.SessionCredential{Cookies: cookies}, nil
		}
		return nil, models.NewCrawlError(models.ErrCodePersistFailed, "decode credential file", err)
	}
	return &cred, nil
}

// Save atomically replaces the stored credential.
func (s *Store) Save(cred *models.SessionCredential) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return models.NewCrawlError(models.ErrCodePersistFailed, "create session directory", err)
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return models.NewCrawlError(models.ErrCodePersistFailed, "encode credential", err)
	}

	tmp, err := os.CreateTemp(s.dir, credentialFile+".tmp-*")
	if err != nil {
		return models.NewCrawlError(models.ErrCodePersistFailed, "create temp credential file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return models.NewCrawlError(models.ErrCodePersistFailed, "write temp credential file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return models.NewCrawlError(models.ErrCodePersistFailed, "close temp credential file", err)
	}

	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return models.NewCrawlError(models.ErrCodePersistFailed, "replace credential file", err)
	}
	return nil
}

// SaveCookies captures a fresh credential from the given cookie set and
// persists it.
func (s *Store) SaveCookies(cookies []models.Cookie) error {
	return s.Save(&models.SessionCredential{
		Cookies:    cookies,
		CapturedAt: time.Now().UTC(),
	})
}

// Invalidate marks the stored credential unusable without deleting it.
// No stored credential is a no-op.
func (s *Store) Invalidate() error {
	cred, err := s.Load()
	if err != nil || cred == nil {
		return err
	}
	if cred.Invalidated {
		return nil
	}
	cred.Invalidated = true
	if err := s.Save(cred); err != nil {
		return fmt.Errorf("invalidate credential: %w", err)
	}
	slog.Info("session credential invalidated", "path", s.Path())
	return nil
}
