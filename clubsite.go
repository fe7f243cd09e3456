// Package clubsite is the WarP computer club website: a landing page, an
// events / blog / feedback content system and an admin panel, built with
// Echo and templ components.
//
// Markup lives outside this package and is plugged in through ViewFuncs;
// clubsite owns the handlers, middleware, sessions and storage.
package clubsite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/warpclub/clubsite/analytics"
	"github.com/warpclub/clubsite/mediastore"
)

// App is the central application. It wires together the backend, cache,
// handlers, middleware and the view functions.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Backend Backend
	Cache   *ContentCache
	Views   ViewFuncs
	Log     zerolog.Logger

	club  atomic.Pointer[ClubInfo]
	media mediastore.Store

	loginLimiter     *LoginLimiter
	analyticsStore   *analytics.Store
	analyticsHandler *analytics.Handler
	recorder         *analytics.Recorder
	stopCleanup      func()
	customRoutes     []func(*App)
	staticDir        string
	ownsBackend      bool
	setupDone        bool
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		Log:       zerolog.New(os.Stderr).With().Timestamp().Logger(),
		staticDir: "public",
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	if a.club.Load() == nil {
		a.SetClubInfo(DefaultClubInfo())
	}
	return a
}

// Club returns the current club profile.
func (a *App) Club() ClubInfo {
	return *a.club.Load()
}

// SetClubInfo swaps the club profile. Safe to call while serving.
func (a *App) SetClubInfo(ci ClubInfo) {
	if ci.Name == "" {
		ci.Name = a.Config.Name
	}
	members := make([]Member, len(ci.Members))
	copy(members, ci.Members)
	for i := range members {
		members[i].Skills = FilterEmpty(members[i].Skills)
	}
	ci.Members = members
	ci.Activities = FilterEmpty(ci.Activities)
	ci.FocusAreas = FilterEmpty(ci.FocusAreas)
	a.club.Store(&ci)
}

// Setup opens storage and registers middleware and routes. Start calls it;
// tests call it directly and drive a.Echo with httptest.
func (a *App) Setup() error {
	if a.setupDone {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return errors.New("clubsite: SessionSecret is required")
	}

	if a.Backend == nil {
		if dir := filepath.Dir(a.Config.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("clubsite: create data dir: %w", err)
			}
		}
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("clubsite: init store: %w", err)
		}
		a.Backend = store
		a.ownsBackend = true
	}
	if a.media == nil {
		a.media = mediastore.NewLocal(filepath.Join(a.staticDir, uploadsSubdir), "public/"+uploadsSubdir)
	}

	if a.Config.AdminEmail != "" && a.Config.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := EnsureAdmin(ctx, a.Backend, a.Config.AdminEmail, a.Config.AdminPassword)
		cancel()
		if err != nil {
			return fmt.Errorf("clubsite: bootstrap admin: %w", err)
		}
		if created {
			a.Log.Info().Str("email", a.Config.AdminEmail).Msg("created admin account")
		}
	}

	a.Cache = NewContentCache(a.Backend, a.Config.ContentCacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if a.Config.AnalyticsEnabled {
		if dir := filepath.Dir(a.Config.AnalyticsDatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("clubsite: create analytics dir: %w", err)
			}
		}
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("clubsite: init analytics: %w", err)
		}
		a.analyticsStore = store
		a.analyticsHandler = analytics.NewHandler(store, a.Log)
		a.recorder = analytics.NewRecorder(store, hostOf(a.Config.URL), 512, a.Log)
		a.stopCleanup = store.StartCleanupScheduler(a.Config.AnalyticsRetentionDays, 24*time.Hour, a.Log)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.setupDone = true
	return nil
}

// Start sets the app up and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Log.Info().Str("addr", a.Config.Addr).Str("url", a.Config.URL).Msg("starting server")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	var errs []error
	if a.analyticsStore != nil {
		errs = append(errs, a.analyticsStore.Close())
		a.analyticsStore = nil
	}
	if a.ownsBackend && a.Backend != nil {
		errs = append(errs, a.Backend.Close())
		a.ownsBackend = false
	}
	return errors.Join(errs...)
}
