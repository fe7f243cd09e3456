package clubsite

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/warpclub/clubsite/mediastore"
)

// SiteConfig holds all configuration for a club site.
type SiteConfig struct {
	Name        string // Site name (default "WarP Computer Club")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path when no Backend option is given (default "data/club.db")

	AnalyticsEnabled       bool   // Enable page-view analytics
	AnalyticsDatabasePath  string // Analytics SQLite path (default "data/analytics.db")
	AnalyticsRetentionDays int    // default 365

	AdminEmail    string // Bootstrap admin account, created at startup if missing
	AdminPassword string
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	ContentCacheTTL time.Duration // Content list cache TTL (default 5min)
	BlogPageSize    int           // Posts per "load more" step (default 6)
	FeedbackPage    int           // Testimonials per "load more" step (default 4)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "WarP Computer Club"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/club.db"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AnalyticsRetentionDays == 0 {
		c.AnalyticsRetentionDays = 365
	}
	if c.ContentCacheTTL == 0 {
		c.ContentCacheTTL = 5 * time.Minute
	}
	if c.BlogPageSize == 0 {
		c.BlogPageSize = 6
	}
	if c.FeedbackPage == 0 {
		c.FeedbackPage = 4
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithBackend replaces the default SQLite store, e.g. with a pgstore.Store
// pointed at a hosted Supabase database.
func WithBackend(b Backend) Option {
	return func(a *App) {
		a.Backend = b
	}
}

// WithMediaStore sets where uploaded images go (default: local uploads dir).
func WithMediaStore(m mediastore.Store) Option {
	return func(a *App) {
		a.media = m
	}
}

// WithLogger sets the application logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithClubInfo sets the club profile shown on the site and used by the chat assistant.
func WithClubInfo(ci ClubInfo) Option {
	return func(a *App) {
		a.SetClubInfo(ci)
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for site-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
