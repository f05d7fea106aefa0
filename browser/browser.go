// Package browser owns the headless browser lifecycle and hands out
// pages through a bounded pool. One page per batch item; login,
// navigation, and extraction on a single page run sequentially while
// independent pages progress concurrently.
package browser

import (
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/leadscout/leadscout/config"
	"github.com/leadscout/leadscout/models"
)

// Browser manages the global browser lifecycle and the page pool.
// It is safe for concurrent use.
type Browser struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	cfg         config.BrowserConfig
	activePages atomic.Int32
}

// Launch starts a browser with detection-resistant flags and initialises
// the reusable page pool.
func Launch(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	pool := rod.NewPagePool(cfg.MaxPages)
	slog.Debug("page pool created", "maxPages", cfg.MaxPages)

	return &Browser{
		browser:  b,
		pagePool: pool,
		cfg:      cfg,
	}, nil
}

// NewPage borrows a page from the pool (creating one on demand) and
// applies the viewport, user agent, and stealth script. Stealth JS must
// be installed before the first navigation to take effect.
func (b *Browser) NewPage() (Page, error) {
	page, err := b.pagePool.Get(func() (*rod.Page, error) {
		p, createErr := b.browser.Page(proto.TargetCreateTarget{})
		if createErr != nil {
			return nil, createErr
		}

		if vpErr := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.cfg.ViewportWidth,
			Height:            b.cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}); vpErr != nil {
			slog.Warn("failed to set viewport", "error", vpErr)
		}

		if b.cfg.UserAgent != "" {
			if uaErr := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
				UserAgent: b.cfg.UserAgent,
			}); uaErr != nil {
				slog.Warn("failed to override user agent", "error", uaErr)
			}
		}

		return p, nil
	})
	if err != nil {
		return nil, models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			err,
		)
	}

	if b.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	b.activePages.Add(1)
	return &rodPage{page: page, owner: b}, nil
}

// release parks the page and returns it to the pool. Navigating to
// about:blank drops the old DOM so pooled tabs don't leak memory.
func (b *Browser) release(page *rod.Page) error {
	defer b.activePages.Add(-1)
	if err := page.Navigate("about:blank"); err != nil {
		slog.Warn("cleanup: failed to navigate to about:blank", "error", err)
	}
	b.pagePool.Put(page)
	return nil
}

// ActivePages reports how many pages are currently checked out.
func (b *Browser) ActivePages() int {
	return int(b.activePages.Load())
}

// Close drains the page pool and kills the browser process. Call this on
// every exit path, including interrupts, to prevent zombie Chrome
// processes.
func (b *Browser) Close() {
	slog.Info("browser shutting down: draining page pool")
	b.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	b.browser.MustClose()
	slog.Info("browser shutdown complete")
}
