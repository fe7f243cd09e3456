package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/warpclub/clubsite"
	"github.com/warpclub/clubsite/views"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `serve starts the website and blocks until SIGINT or SIGTERM.

Edits to the club section of the config file (about text, roster, contact
details) are picked up without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address, e.g. :8080")
	_ = c.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func (c *cli) newApp(ctx context.Context) (*clubsite.App, func(), error) {
	if c.cfg.SessionSecret == "" {
		return nil, nil, errors.New("session_secret is not set (CLUBSITE_SESSION_SECRET)")
	}
	v, err := views.New()
	if err != nil {
		return nil, nil, fmt.Errorf("load templates: %w", err)
	}

	opts := []clubsite.Option{
		clubsite.WithLogger(c.log),
		clubsite.WithClubInfo(c.cfg.Club),
		clubsite.WithStaticDir(c.cfg.StaticDir),
	}
	cleanup := func() {}

	backend, err := openBackend(ctx, c.cfg, c.log)
	if err != nil {
		return nil, nil, err
	}
	if backend != nil {
		opts = append(opts, clubsite.WithBackend(backend))
		cleanup = func() {
			if err := backend.Close(); err != nil {
				c.log.Error().Err(err).Msg("close backend")
			}
		}
		c.log.Info().Str("driver", c.cfg.Database.Driver).Msg("using external database")
	}

	media, err := openMedia(ctx, c.cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if media != nil {
		opts = append(opts, clubsite.WithMediaStore(media))
		c.log.Info().Str("bucket", c.cfg.Media.Bucket).Msg("storing uploads in object storage")
	}

	return clubsite.New(c.cfg.SiteConfig(), v, opts...), cleanup, nil
}

func (c *cli) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := c.newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	c.watchClub(app)

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		if cerr := app.Close(); err == nil {
			err = cerr
		}
		return err
	case <-ctx.Done():
	}

	c.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

// watchClub reloads the club profile whenever the config file changes.
func (c *cli) watchClub(app *clubsite.App) {
	if c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c.reloadClub(app)
	})
	c.v.WatchConfig()
}

func (c *cli) reloadClub(app *clubsite.App) {
	cfg, err := decodeConfig(c.v)
	if err != nil {
		c.log.Error().Err(err).Msg("reload config")
		return
	}
	app.SetClubInfo(cfg.Club)
	c.log.Info().Int("members", len(cfg.Club.Members)).Msg("club info reloaded")
}
