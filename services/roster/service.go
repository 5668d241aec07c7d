package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/berkinory/Nobetcim/lib/regions"
	"github.com/berkinory/Nobetcim/lib/scrapers/eczane"
	"github.com/berkinory/Nobetcim/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("services/roster")

// FormatDate renders the store key for a duty date.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// RegionScraper runs the fetch pipeline for one (region, date) pair.
type RegionScraper interface {
	Scrape(ctx context.Context, region int, date string) eczane.Outcome
}

type ServiceOptions struct {
	// forward-looking window of dates per sweep, defaults to 2
	Days int
	// fixed pause between regions regardless of outcome, defaults
	// to 2s
	RegionPause time.Duration
	// daemon sweep interval, defaults to 6h
	Interval time.Duration
	// daemon pause after a sweep that errored out, defaults to 10m
	Cooldown time.Duration
}

// Service drives the scrape pipeline across all regions and dates and
// owns nothing beyond what the store exposes: every invocation is
// re-entrant.
type Service struct {
	store   Store
	scraper RegionScraper
	opts    ServiceOptions
}

func NewService(store Store, scraper RegionScraper, opts ServiceOptions) Service {
	if opts.Days <= 0 {
		opts.Days = 2
	}
	if opts.RegionPause <= 0 {
		opts.RegionPause = time.Second * 2
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Hour * 6
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = time.Minute * 10
	}
	return Service{store: store, scraper: scraper, opts: opts}
}

// Sweep processes the date window once: dates whose record already
// looks complete are skipped, the rest get a full region pass.
func (s Service) Sweep(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Sweep")
	defer span.End()

	today := timezone.Now()
	for offset := 0; offset < s.opts.Days; offset++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		date := FormatDate(today.AddDate(0, 0, offset))
		if s.store.HasComplete(ctx, date) {
			slog.InfoContext(ctx, "date already collected, skipping", "date", date)
			continue
		}

		slog.InfoContext(ctx, "collecting date", "date", date)
		succeeded, failed := s.sweepDate(ctx, date)
		slog.InfoContext(ctx, "date sweep finished",
			"date", date, "succeeded", succeeded, "failed", failed)
	}
	return ctx.Err()
}

// sweepDate runs the pipeline over every region code in ascending
// order. a failed region is counted and left behind, never aborts the
// pass.
func (s Service) sweepDate(ctx context.Context, date string) (succeeded, failed int) {
	ctx, span := tracer.Start(ctx, "sweepDate", trace.WithAttributes(
		attribute.String("date", date),
	))
	defer span.End()

	for code := regions.Min; code <= regions.Max; code++ {
		if ctx.Err() != nil {
			return succeeded, failed
		}

		out := s.scraper.Scrape(ctx, code, date)
		if out.Success && len(out.Entries) > 0 {
			saved := s.store.Merge(ctx, date, code, out.Entries)
			slog.InfoContext(ctx, "region collected",
				"region", code, "city", regions.Name(code),
				"count", out.Count, "took", out.Took, "saved", saved)
			succeeded++
		} else {
			slog.WarnContext(ctx, "region yielded nothing",
				"region", code, "city", regions.Name(code),
				"success", out.Success, "took", out.Took)
			failed++
		}

		s.wait(ctx, s.opts.RegionPause)
	}
	return succeeded, failed
}

// Daemon sweeps on a fixed interval until the context dies. an error
// escaping a sweep is logged and followed by a shorter cooldown
// instead of the full interval.
func (s Service) Daemon(ctx context.Context) {
	for {
		delay := s.opts.Interval

		slog.InfoContext(ctx, "starting sweep", "at", timezone.Now().Format(time.DateTime))
		err := s.Sweep(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "sweep failed", "err", err)
			delay = s.opts.Cooldown
		} else {
			slog.InfoContext(ctx, "sweep complete", "next_in", delay)
		}

		if !s.wait(ctx, delay) {
			return
		}
	}
}

func (s Service) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
