package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/anomredux/claude-relay/internal/api"
	"github.com/anomredux/claude-relay/internal/config"
	"github.com/anomredux/claude-relay/internal/logger"
	"github.com/anomredux/claude-relay/internal/metrics"
	"github.com/anomredux/claude-relay/internal/parser"
	"github.com/anomredux/claude-relay/internal/pricing"
	"github.com/anomredux/claude-relay/internal/report"
	"github.com/anomredux/claude-relay/internal/weather"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	loc      *time.Location
	plan     string
	metrics  *metrics.Metrics
	resolver *api.Resolver
	usage    *api.Client
	weather  *weather.Service
	builder  *report.Builder
	reports  *report.Cache
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	table, err := loadPricing(cfg.Usage.PricingFile)
	if err != nil {
		return nil, err
	}
	calc := pricing.NewCalculator(table, pricing.CostMode(cfg.Usage.CostMode))

	m := metrics.New()
	ingester := parser.NewIngester(cfg.DataDirs(), calc, log.With().Str("component", "parser").Logger())
	builder := report.NewBuilder(ingester, report.BuilderOptions{
		Location: loc,
		Observer: m,
		Log:      log.With().Str("component", "report").Logger(),
	})

	home, _ := os.UserHomeDir()
	resolver := api.NewResolver(api.DefaultSources(home), nil, log.With().Str("component", "credentials").Logger())
	usage := api.NewClient(resolver, api.ClientOptions{
		TTL:      cfg.APITTL(),
		Enabled:  cfg.API.Enabled,
		Log:      log.With().Str("component", "usage-api").Logger(),
		Observer: m.ObserveRemote,
	})

	wx, err := weather.New(weather.Options{
		Enabled: cfg.Weather.Enabled,
		Log:     log.With().Str("component", "weather").Logger(),
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		loc:      loc,
		metrics:  m,
		resolver: resolver,
		usage:    usage,
		weather:  wx,
		builder:  builder,
		reports:  report.NewCache(builder, cfg.ReportTTL()),
	}
	a.plan = a.resolvePlan(ctx, home)
	return a, nil
}

func (a *app) Close() {
	a.weather.Close()
}

func loadPricing(path string) (pricing.Table, error) {
	if path == "" {
		return pricing.LoadDefault()
	}
	table, err := pricing.LoadFile(path)
	if err != nil {
		return table, fmt.Errorf("load pricing file: %w", err)
	}
	return table, nil
}

// resolvePlan returns the configured plan, detecting it when set to auto.
func (a *app) resolvePlan(ctx context.Context, home string) string {
	if a.cfg.Usage.Plan != config.PlanAuto {
		return a.cfg.Usage.Plan
	}
	var cred *api.Credential
	if c, err := a.resolver.Resolve(ctx); err == nil {
		cred = &c
	} else if !errors.Is(err, api.ErrCredentialUnavailable) {
		a.log.Warn().Err(err).Msg("credential lookup failed")
	}
	plan := api.DetectPlan(cred, filepath.Join(home, ".claude", "settings.json"))
	a.log.Info().Str("plan", plan).Msg("auto-detected plan")
	return plan
}

// response builds one full usage response, as GET /api/usage would.
func (a *app) response(ctx context.Context) report.Response {
	now := time.Now().In(a.loc)
	m := a.reports.Get(ctx, a.plan)
	u := api.BuildUtilization(a.usage.Fetch(ctx), now, a.loc)
	return report.Assemble(m, u, report.NewClock(now), a.weather.Get(ctx, a.cfg.Weather.Location))
}
