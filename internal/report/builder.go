// Package report turns ingested usage records into the report served to the
// display, and caches it.
package report

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/anomredux/claude-relay/internal/domain"
	"github.com/anomredux/claude-relay/internal/parser"
)

// sessionLookback covers the longest span an active 5h block can reach back.
const sessionLookback = 10 * time.Hour

// Ingester is the log source. *parser.Ingester satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, cutoff time.Time) parser.Result
}

// Observer receives build and cache statistics. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveBuild(stats parser.Stats, elapsed time.Duration)
	ObserveCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveBuild(parser.Stats, time.Duration) {}
func (nopObserver) ObserveCache(bool)                       {}

// Builder runs one ingest and aggregation pass.
type Builder struct {
	ingester Ingester
	loc      *time.Location
	now      func() time.Time
	observer Observer
	log      zerolog.Logger
}

type BuilderOptions struct {
	// Location sets the calendar day for daily totals. Nil means time.Local.
	Location *time.Location
	Now      func() time.Time
	Observer Observer
	Log      zerolog.Logger
}

func NewBuilder(ingester Ingester, opts BuilderOptions) *Builder {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Builder{
		ingester: ingester,
		loc:      opts.Location,
		now:      opts.Now,
		observer: opts.Observer,
		log:      opts.Log,
	}
}

// Build ingests everything needed for the active session and today's totals
// and aggregates it for plan. It never fails: a missing or broken log tree
// yields zero-valued totals.
func (b *Builder) Build(ctx context.Context, plan string) Metrics {
	start := time.Now()
	now := b.now()

	dayStart := domain.DayStart(now, b.loc)
	cutoff := now.Add(-sessionLookback)
	if dayStart.Before(cutoff) {
		cutoff = dayStart
	}

	res := b.ingester.Ingest(ctx, cutoff)
	session, remaining := domain.DetectActiveSession(res.Records, now)
	daily := domain.FilterSince(res.Records, dayStart)
	m := newMetrics(plan, now, session, remaining, daily)

	elapsed := time.Since(start)
	b.observer.ObserveBuild(res.Stats, elapsed)
	b.log.Debug().
		Int("files", res.Stats.Files).
		Int("files_old", res.Stats.FilesOld).
		Int("files_unreadable", res.Stats.FilesUnreadable).
		Int("lines", res.Stats.Lines).
		Int("kept", res.Stats.Kept).
		Int("skipped", res.Stats.SkippedTotal()).
		Int("session_messages", m.Session.MessagesSent).
		Dur("elapsed", elapsed).
		Msg("report built")
	return m
}

// Blocks returns the session blocks of the last window, oldest first.
func (b *Builder) Blocks(ctx context.Context, window time.Duration) []domain.SessionBlock {
	res := b.ingester.Ingest(ctx, b.now().Add(-window))
	return domain.BuildBlocks(res.Records)
}
