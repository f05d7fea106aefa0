// Package auth drives the login state machine: bootstrap from a stored
// cookie credential when one exists, fall back to a single form login,
// and persist the fresh credential on success.
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/leadscout/leadscout/browser"
	"github.com/leadscout/leadscout/config"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/session"
)

// Authenticator implements the session state machine:
//
//	Start → CheckingSession → {Authenticated | NeedsLogin}
//	NeedsLogin → LoggingIn → {Authenticated | LoginFailed}
//
// Login is attempted once per run; LoginFailed is terminal and the
// caller decides whether to abort the batch.
type Authenticator struct {
	platform config.PlatformConfig
	creds    config.AuthConfig
	timeouts config.CrawlConfig
	store    *session.Store
}

// New creates an Authenticator backed by the given session store.
func New(platform config.PlatformConfig, creds config.AuthConfig, timeouts config.CrawlConfig, store *session.Store) *Authenticator {
	return &Authenticator{
		platform: platform,
		creds:    creds,
		timeouts: timeouts,
		store:    store,
	}
}

// EnsureLoggedIn leaves the page in an authenticated state or returns a
// LOGIN_FAILED error. Side effects: page navigation and, on a fresh
// login, a credential write to the session store.
func (a *Authenticator) EnsureLoggedIn(ctx context.Context, page browser.Page) error {
	state := a.checkSession(ctx, page)
	if state == StateAuthenticated {
		slog.Info("session restored from stored credential")
		return nil
	}

	slog.Info("no valid session, performing login", "state", state.String())
	state = a.login(ctx, page)
	if state != StateAuthenticated {
		return models.NewCrawlError(models.ErrCodeLoginFailed,
			"login attempt did not reach an authenticated landing", nil)
	}
	return nil
}

// checkSession injects the stored credential (if any) and classifies the
// landing. A stale credential is invalidated in the store, not deleted.
func (a *Authenticator) checkSession(ctx context.Context, page browser.Page) State {
	cred, err := a.store.Load()
	if err != nil {
		slog.Warn("failed to load stored credential", "error", err)
		return StateUnknown
	}
	if !cred.Usable() {
		return StateUnauthenticated
	}

	if err := page.SetCookies(cred.Cookies); err != nil {
		slog.Warn("failed to inject stored cookies", "error", err)
		return StateUnknown
	}
	slog.Debug("injected stored cookies", "count", len(cred.Cookies),
		"capturedAt", cred.CapturedAt)

	state := a.classify(ctx, page)
	if state != StateAuthenticated {
		slog.Info("stored credential is stale", "state", state.String())
		if invErr := a.store.Invalidate(); invErr != nil {
			slog.Warn("failed to invalidate stale credential", "error", invErr)
		}
	}
	return state
}

// login submits the configured credentials once and classifies the
// result. On success the fresh cookie set is persisted; a persistence
// failure is logged and otherwise ignored (the session just won't be
// reusable next run).
func (a *Authenticator) login(ctx context.Context, page browser.Page) State {
	loginURL := a.platform.BaseURL + a.platform.LoginPath
	if err := page.Navigate(ctx, loginURL); err != nil {
		slog.Error("failed to reach login surface", "url", loginURL, "error", err)
		return StateLoginFailed
	}

	if err := page.WaitVisible(ctx, a.platform.UserSelector, a.timeouts.WaitTimeout); err != nil {
		slog.Error("login form did not appear", "selector", a.platform.UserSelector, "error", err)
		return StateLoginFailed
	}

	if err := page.Type(ctx, a.platform.UserSelector, a.creds.Username); err != nil {
		slog.Error("failed to fill username", "error", err)
		return StateLoginFailed
	}
	if err := page.Type(ctx, a.platform.PassSelector, a.creds.Password); err != nil {
		slog.Error("failed to fill password", "error", err)
		return StateLoginFailed
	}
	if err := page.Click(ctx, a.platform.SubmitSelector); err != nil {
		slog.Error("failed to submit login form", "error", err)
		return StateLoginFailed
	}

	// Bounded wait for the post-submit navigation to land somewhere
	// classifiable. Challenge/captcha pages classify as LoginFailed.
	state := a.awaitLanding(ctx, page)
	if state != StateAuthenticated {
		return StateLoginFailed
	}

	cookies, err := page.Cookies()
	if err != nil {
		slog.Warn("login succeeded but cookies could not be read", "error", err)
		return StateAuthenticated
	}
	if err := a.store.SaveCookies(cookies); err != nil {
		slog.Warn("failed to persist session credential", "error", err)
	} else {
		slog.Info("session credential saved", "cookies", len(cookies))
	}
	return StateAuthenticated
}

// classify navigates to the authenticated-only landing surface and runs
// the landing check.
func (a *Authenticator) classify(ctx context.Context, page browser.Page) State {
	landingURL := a.platform.BaseURL + a.platform.LandingPath
	if err := page.Navigate(ctx, landingURL); err != nil {
		slog.Warn("landing navigation failed", "url", landingURL, "error", err)
		return StateUnknown
	}
	return a.classifyCurrent(page)
}

// classifyCurrent applies the landing heuristics to wherever the page is
// now, without navigating.
func (a *Authenticator) classifyCurrent(page browser.Page) State {
	current, err := page.URL()
	if err != nil {
		return StateUnknown
	}
	hasMarker := false
	if a.platform.AuthMarkerSelector != "" {
		hasMarker, _ = page.Has(a.platform.AuthMarkerSelector)
	}
	return ClassifyLanding(current, a.platform.LandingMarkers, hasMarker)
}

// awaitLanding polls the landing check until it passes or LoginTimeout
// elapses. Form submission redirects asynchronously, so a single
// immediate check races the navigation.
func (a *Authenticator) awaitLanding(ctx context.Context, page browser.Page) State {
	deadline := time.Now().Add(a.timeouts.LoginTimeout)
	for {
		if state := a.classifyCurrent(page); state == StateAuthenticated {
			return state
		}
		if time.Now().After(deadline) {
			return StateLoginFailed
		}
		select {
		case <-ctx.Done():
			return StateLoginFailed
		case <-time.After(500 * time.Millisecond):
		}
	}
}
