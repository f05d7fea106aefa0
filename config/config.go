package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Platform  PlatformConfig
	Browser   BrowserConfig
	Crawl     CrawlConfig
	Scroll    ScrollConfig
	Auth      AuthConfig
	Session   SessionConfig
	Export    ExportConfig
	WebSearch WebSearchConfig
	Debug     DebugConfig
	Log       LogConfig
}

// PlatformConfig describes the target platform's surfaces and the
// selectors used to classify login state. Defaults match LinkedIn but
// every heuristic is overridable so UI churn is a config change.
type PlatformConfig struct {
	// BaseURL is the platform origin.
	BaseURL string // default: "https://www.linkedin.com"

	// LandingPath is the authenticated-only surface used to classify
	// login state after cookie injection or form submission.
	LandingPath string // default: "/feed/"

	// LandingMarkers are URL path substrings that indicate an
	// authenticated landing (any match counts).
	LandingMarkers []string // default: ["/feed", "/mynetwork"]

	// AuthMarkerSelector is an authenticated-only element checked when
	// the URL heuristic is inconclusive.
	AuthMarkerSelector string // default: ".feed-identity-module"

	// LoginPath is the login form surface.
	LoginPath string // default: "/login"

	// UserSelector, PassSelector, SubmitSelector identify the login form.
	UserSelector   string // default: "#username"
	PassSelector   string // default: "#password"
	SubmitSelector string // default: "button[type=\"submit\"]"

	// PeopleSearchPath is the people-search results surface; the keywords
	// query parameter carries the search text.
	PeopleSearchPath string // default: "/search/results/people/"

	// ResultsSelector is the container that signals search results loaded.
	ResultsSelector string // default: ".search-results-container"

	// JobsSearchPath is the jobs-search results surface.
	JobsSearchPath string // default: "/jobs/search/"
}

// BrowserConfig controls the browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 4

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// UserAgent overrides the browser user agent.
	UserAgent string // default: desktop Chrome UA

	// ViewportWidth/ViewportHeight fix the window size.
	ViewportWidth  int // default: 1920
	ViewportHeight int // default: 1080

	// Stealth toggles stealth JS injection on every new page.
	Stealth bool // default: true
}

// CrawlConfig controls batch orchestration.
type CrawlConfig struct {
	// Concurrency is the window size: targets dispatched at once.
	Concurrency int // default: 3

	// InterBatchDelay is the pause between windows. This throttling is a
	// deliberate politeness measure, not a correctness requirement.
	InterBatchDelay time.Duration // default: 2s

	// NavTimeout bounds a single navigation.
	NavTimeout time.Duration // default: 30s

	// WaitTimeout bounds waits for result containers and login fields.
	WaitTimeout time.Duration // default: 10s

	// LoginTimeout bounds the post-submit navigation wait.
	LoginTimeout time.Duration // default: 30s

	// MaxRecords stops a run after this many deduplicated records
	// (0 = unlimited).
	MaxRecords int // default: 0

	// NavPerSecond is the sustained navigation rate across all pages.
	NavPerSecond float64 // default: 0.5

	// NavBurst is the navigation rate limiter burst.
	NavBurst int // default: 2

	// ThinkDelayMin/ThinkDelayMax bound the randomized pause between
	// detailed-profile visits.
	ThinkDelayMin time.Duration // default: 3s
	ThinkDelayMax time.Duration // default: 5s

	// DedupPerQuery scopes deduplication to each search query instead of
	// the whole run.
	DedupPerQuery bool // default: false
}

// ScrollConfig controls the incremental content loader.
type ScrollConfig struct {
	// SettleDelay is the pause after each scroll step before re-measuring
	// the document extent.
	SettleDelay time.Duration // default: 500ms

	// MaxSteps caps the scroll loop so an infinite-growth page cannot
	// wedge a run. 0 means unbounded, matching the legacy behavior.
	MaxSteps int // default: 60

	// Humanize enables occasional small backward scrolls with randomized
	// magnitude and delay.
	Humanize bool // default: false
}

// AuthConfig carries the platform credentials.
type AuthConfig struct {
	Username string // env: LEADSCOUT_USERNAME
	Password string // env: LEADSCOUT_PASSWORD

	// Profile names the account; the session store keys its credential
	// file by it.
	Profile string // default: "default"
}

// SessionConfig controls session credential persistence.
type SessionConfig struct {
	// Dir is the root of the per-profile credential directories.
	// Empty means "~/.leadscout".
	Dir string
}

// ExportConfig controls the CSV sink.
type ExportConfig struct {
	// Dir is the output directory for CSV files.
	Dir string // default: "output"
}

// WebSearchConfig controls the login-free search engine variant.
type WebSearchConfig struct {
	// BaseURL is the search engine endpoint.
	BaseURL string // default: "https://www.bing.com/search"

	// PageOffsets are the values of the pagination parameter fetched per
	// query.
	PageOffsets []int // default: [1, 11, 21]

	// Delay is the politeness pause between fetches.
	Delay time.Duration // default: 2s

	// Proxy overrides BrowserConfig.Proxy for plain HTTP fetches.
	Proxy string
}

// DebugConfig controls failure artifacts.
type DebugConfig struct {
	// Dir receives screenshots and HTML dumps of failed pages.
	Dir string // default: "debug_output"

	// DumpOnError toggles artifact capture for failed items.
	DumpOnError bool // default: false
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Platform: PlatformConfig{
			BaseURL:            envOr("LEADSCOUT_BASE_URL", "https://www.linkedin.com"),
			LandingPath:        envOr("LEADSCOUT_LANDING_PATH", "/feed/"),
			LandingMarkers:     envSliceOr("LEADSCOUT_LANDING_MARKERS", []string{"/feed", "/mynetwork"}),
			AuthMarkerSelector: envOr("LEADSCOUT_AUTH_MARKER", ".feed-identity-module"),
			LoginPath:          envOr("LEADSCOUT_LOGIN_PATH", "/login"),
			UserSelector:       envOr("LEADSCOUT_USER_SELECTOR", "#username"),
			PassSelector:       envOr("LEADSCOUT_PASS_SELECTOR", "#password"),
			SubmitSelector:     envOr("LEADSCOUT_SUBMIT_SELECTOR", `button[type="submit"]`),
			PeopleSearchPath:   envOr("LEADSCOUT_PEOPLE_SEARCH_PATH", "/search/results/people/"),
			ResultsSelector:    envOr("LEADSCOUT_RESULTS_SELECTOR", ".search-results-container"),
			JobsSearchPath:     envOr("LEADSCOUT_JOBS_SEARCH_PATH", "/jobs/search/"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("LEADSCOUT_HEADLESS", true),
			MaxPages:       envIntOr("LEADSCOUT_MAX_PAGES", 4),
			NoSandbox:      envBoolOr("LEADSCOUT_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("LEADSCOUT_BROWSER_BIN"),
			Proxy:          os.Getenv("LEADSCOUT_PROXY"),
			UserAgent:      envOr("LEADSCOUT_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
			ViewportWidth:  envIntOr("LEADSCOUT_VIEWPORT_WIDTH", 1920),
			ViewportHeight: envIntOr("LEADSCOUT_VIEWPORT_HEIGHT", 1080),
			Stealth:        envBoolOr("LEADSCOUT_STEALTH", true),
		},
		Crawl: CrawlConfig{
			Concurrency:     envIntOr("LEADSCOUT_CONCURRENCY", 3),
			InterBatchDelay: envDurationOr("LEADSCOUT_INTER_BATCH_DELAY", 2*time.Second),
			NavTimeout:      envDurationOr("LEADSCOUT_NAV_TIMEOUT", 30*time.Second),
			WaitTimeout:     envDurationOr("LEADSCOUT_WAIT_TIMEOUT", 10*time.Second),
			LoginTimeout:    envDurationOr("LEADSCOUT_LOGIN_TIMEOUT", 30*time.Second),
			MaxRecords:      envIntOr("LEADSCOUT_MAX_RECORDS", 0),
			NavPerSecond:    envFloatOr("LEADSCOUT_NAV_RPS", 0.5),
			NavBurst:        envIntOr("LEADSCOUT_NAV_BURST", 2),
			ThinkDelayMin:   envDurationOr("LEADSCOUT_THINK_DELAY_MIN", 3*time.Second),
			ThinkDelayMax:   envDurationOr("LEADSCOUT_THINK_DELAY_MAX", 5*time.Second),
			DedupPerQuery:   envBoolOr("LEADSCOUT_DEDUP_PER_QUERY", false),
		},
		Scroll: ScrollConfig{
			SettleDelay: envDurationOr("LEADSCOUT_SCROLL_SETTLE", 500*time.Millisecond),
			MaxSteps:    envIntOr("LEADSCOUT_SCROLL_MAX_STEPS", 60),
			Humanize:    envBoolOr("LEADSCOUT_SCROLL_HUMANIZE", false),
		},
		Auth: AuthConfig{
			Username: os.Getenv("LEADSCOUT_USERNAME"),
			Password: os.Getenv("LEADSCOUT_PASSWORD"),
			Profile:  envOr("LEADSCOUT_PROFILE", "default"),
		},
		Session: SessionConfig{
			Dir: os.Getenv("LEADSCOUT_SESSION_DIR"),
		},
		Export: ExportConfig{
			Dir: envOr("LEADSCOUT_OUTPUT_DIR", "output"),
		},
		WebSearch: WebSearchConfig{
			BaseURL:     envOr("LEADSCOUT_WEBSEARCH_URL", "https://www.bing.com/search"),
			PageOffsets: envIntSliceOr("LEADSCOUT_WEBSEARCH_OFFSETS", []int{1, 11, 21}),
			Delay:       envDurationOr("LEADSCOUT_WEBSEARCH_DELAY", 2*time.Second),
			Proxy:       os.Getenv("LEADSCOUT_WEBSEARCH_PROXY"),
		},
		Debug: DebugConfig{
			Dir:         envOr("LEADSCOUT_DEBUG_DIR", "debug_output"),
			DumpOnError: envBoolOr("LEADSCOUT_DEBUG_DUMP", false),
		},
		Log: LogConfig{
			Level:  envOr("LEADSCOUT_LOG_LEVEL", "info"),
			Format: envOr("LEADSCOUT_LOG_FORMAT", "text"),
		},
	}
}

// SessionDir resolves the session root, defaulting to ~/.leadscout.
func (c *Config) SessionDir() string {
	if c.Session.Dir != "" {
		return c.Session.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".leadscout"
	}
	return filepath.Join(home, ".leadscout")
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envIntSliceOr(key string, fallback []int) []int {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]int, 0, len(parts))
		for _, p := range parts {
			if i, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
				result = append(result, i)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
