package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/anomredux/claude-relay/internal/api"
	"github.com/anomredux/claude-relay/internal/server"
	"github.com/anomredux/claude-relay/internal/watcher"
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the relay HTTP server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	a.logStartup(ctx)

	if a.cfg.Cache.Watch {
		w := watcher.New(a.cfg.DataDirs(), watcher.Options{
			Log: a.log.With().Str("component", "watcher").Logger(),
		}, func([]string) {
			a.reports.Invalidate()
		})
		n := w.Snapshot()
		if err := w.Start(); err != nil {
			a.log.Warn().Err(err).Msg("log watcher unavailable")
		} else {
			a.log.Info().Int("files", n).Msg("watching logs for changes")
			defer w.Stop()
		}
	}

	router := server.NewRouter(server.Deps{
		Reports:     a.reports,
		Usage:       a.usage,
		Weather:     a.weather,
		Plan:        a.plan,
		WeatherCity: a.cfg.Weather.Location,
		Location:    a.loc,
		Metrics:     a.metrics.Handler(),
		Observer:    a.metrics,
		RateLimit:   a.cfg.Server.RateLimit,
		Log:         a.log.With().Str("component", "http").Logger(),
	})
	return server.New(a.cfg.Addr(), router, a.log).Run(ctx)
}

func (a *app) logStartup(ctx context.Context) {
	a.log.Info().
		Str("plan", a.plan).
		Bool("api", a.cfg.API.Enabled).
		Strs("data_dirs", a.cfg.DataDirs()).
		Msg("claude relay starting")

	if a.cfg.API.Enabled {
		cred, err := a.resolver.Resolve(ctx)
		switch {
		case err == nil:
			a.log.Info().
				Str("subscription", orUnknown(cred.SubscriptionType)).
				Str("tier", orUnknown(cred.RateLimitTier)).
				Msg("oauth connected")
		case errors.Is(err, api.ErrCredentialUnavailable):
			a.log.Warn().Msg("oauth credentials not found, using JSONL only; ensure Claude Code is logged in")
		default:
			a.log.Warn().Err(err).Msg("oauth lookup failed")
		}
	}

	if !a.cfg.Weather.Enabled {
		return
	}
	// Pre-warm the weather cache so the first device request is fast.
	location := a.cfg.Weather.Location
	if location == "" {
		location = "auto (GeoIP)"
	}
	wx := a.weather.Get(ctx, a.cfg.Weather.Location)
	if wx.Failed() {
		a.log.Warn().Str("location", location).Str("error", wx.Error).Msg("weather unavailable")
		return
	}
	ev := a.log.Info().Str("location", location).Str("city", wx.City).Str("condition", wx.Condition)
	if wx.TempC != nil {
		ev = ev.Float64("temp_c", *wx.TempC)
	}
	ev.Msg("weather ready")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
