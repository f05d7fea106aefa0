package browser

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/leadscout/leadscout/models"
)

// Page is the automation capability the crawl engine consumes. It hides
// the concrete browser so the session state machine, the incremental
// loader, and the extractors can be exercised against stubs.
//
// Every blocking operation takes a context; navigation and waits are
// cooperative suspension points and never block sibling pages.
type Page interface {
	// Navigate loads the URL and waits for the DOM to stabilize.
	Navigate(ctx context.Context, url string) error

	// URL reports the page's current location.
	URL() (string, error)

	// WaitVisible blocks until at least one element matches selector, or
	// the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Has reports whether any element currently matches selector.
	Has(selector string) (bool, error)

	// Click finds the first element matching selector and clicks it.
	Click(ctx context.Context, selector string) error

	// Type fills the first element matching selector with text.
	Type(ctx context.Context, selector, text string) error

	// Eval runs a JS function expression in the page and returns its value.
	Eval(js string) (gson.JSON, error)

	// HTML returns the rendered document markup.
	HTML() (string, error)

	// Scroll moves the mouse wheel by deltaY pixels (negative = up).
	Scroll(ctx context.Context, deltaY float64) error

	// Screenshot writes a full-page capture to path.
	Screenshot(path string) error

	// Cookies returns the cookies visible to this page's context.
	Cookies() ([]models.Cookie, error)

	// SetCookies injects cookies into the browser context before
	// navigation.
	SetCookies(cookies []models.Cookie) error

	// Close releases the page back to the pool.
	Close() error
}

// rodPage adapts a *rod.Page to the Page capability.
type rodPage struct {
	page  *rod.Page
	owner *Browser
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	bound := p.page.Context(ctx)
	if err := bound.Navigate(url); err != nil {
		return categorizeNavError(err, "navigation to "+url+" failed")
	}
	if err := bound.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		// A DOM that never converges is still usable; proceed with what
		// rendered so far unless the caller's deadline is gone.
		if ctx.Err() != nil {
			return categorizeNavError(ctx.Err(), "navigation to "+url+" timed out")
		}
	}
	return nil
}

func (p *rodPage) URL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.page.Context(waitCtx).WaitElementsMoreThan(selector, 0); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.NewCrawlError(models.ErrCodeSelectorMissing,
				"element "+selector+" did not appear", err)
		}
		return err
	}
	return nil
}

func (p *rodPage) Has(selector string) (bool, error) {
	has, _, err := p.page.Has(selector)
	return has, err
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return models.NewCrawlError(models.ErrCodeSelectorMissing,
			"element "+selector+" not found", err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) Type(ctx context.Context, selector, text string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return models.NewCrawlError(models.ErrCodeSelectorMissing,
			"element "+selector+" not found", err)
	}
	// Clear any prefilled value before typing.
	_ = el.SelectAllText()
	return el.Input(text)
}

func (p *rodPage) Eval(js string) (gson.JSON, error) {
	res, err := p.page.Eval(js)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}

func (p *rodPage) Scroll(ctx context.Context, deltaY float64) error {
	return p.page.Context(ctx).Mouse.Scroll(0, deltaY, 1)
}

func (p *rodPage) Screenshot(path string) error {
	data, err := p.page.Screenshot(true, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (p *rodPage) Cookies() ([]models.Cookie, error) {
	raw, err := p.page.Cookies(nil)
	if err != nil {
		return nil, err
	}
	cookies := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return cookies, nil
}

func (p *rodPage) SetCookies(cookies []models.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	return p.page.SetCookies(params)
}

// Close parks the page on about:blank to release its DOM and returns it
// to the pool.
func (p *rodPage) Close() error {
	return p.owner.release(p.page)
}

// categorizeNavError wraps raw navigation errors into typed CrawlErrors so
// the orchestrator can report per-item failure kinds.
func categorizeNavError(err error, msg string) *models.CrawlError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCrawlError(models.ErrCodeNavTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCrawlError(models.ErrCodeInterrupted, "navigation canceled", err)
	default:
		return models.NewCrawlError(models.ErrCodeNavUnreachable, msg, err)
	}
}
