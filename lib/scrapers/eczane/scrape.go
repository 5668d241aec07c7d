package eczane

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/berkinory/Nobetcim/lib/regions"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scrapers/eczane")

// Entry is one on-duty pharmacy as extracted from the result table and
// enriched with coordinates. Lat/Lon stay nil when the map endpoint
// never gave them up.
type Entry struct {
	Name     string
	District string
	Phone    string
	Address  string
	Lat      *float64
	Lon      *float64
}

// Outcome is the terminal result of one (region, date) scrape.
// Success=false means a hard failure and never carries partial
// entries. Success=true with Count=0 means the result table stayed
// empty through every retry.
type Outcome struct {
	Success bool
	Took    time.Duration
	Count   int
	Entries []Entry
}

const minCoordCoverage = 50.0

type ScraperOptions struct {
	BaseUrl string
	// per-request timeout, defaults to 6s
	Timeout time.Duration
	// whole-attempt retries, defaults to 3
	MaxAttempts int
	// per-row coordinate lookup retries, defaults to 3
	CoordAttempts int
	// fixed pacing between requests, defaults to 1s. this is rate
	// limiting, not backoff: it applies on success too.
	StepPause time.Duration
	// region-level backoff unit, attempt N waits N times this.
	// defaults to 5s.
	RetryBackoffUnit time.Duration
	// coordinate-lookup backoff unit, attempt N waits N times this.
	// defaults to 2s.
	CoordBackoffUnit time.Duration
}

type Scraper struct {
	opts ScraperOptions
}

func NewScraper(opts ScraperOptions) *Scraper {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.CoordAttempts <= 0 {
		opts.CoordAttempts = 3
	}
	if opts.StepPause <= 0 {
		opts.StepPause = time.Second
	}
	if opts.RetryBackoffUnit <= 0 {
		opts.RetryBackoffUnit = time.Second * 5
	}
	if opts.CoordBackoffUnit <= 0 {
		opts.CoordBackoffUnit = time.Second * 2
	}
	return &Scraper{opts: opts}
}

// verdict tags the result of one attempt so the retry loop can
// dispatch on it instead of catching error types.
type verdict int

const (
	// the result is trustworthy enough to keep
	verdictAccept verdict = iota
	// the quality gate distrusts the result: retry, but take it at
	// face value once attempts run out
	verdictSuspicious
	// transport or parse failure: retry, report failure once
	// attempts run out
	verdictBroken
)

// Scrape runs the full token -> submit -> extract -> enrich pipeline
// for one (region, date) pair, retrying whole attempts with escalating
// backoff. it always returns a well-formed Outcome and never makes a
// network call for an out-of-range region code.
func (s *Scraper) Scrape(ctx context.Context, region int, date string) Outcome {
	ctx, span := tracer.Start(ctx, "Scrape", trace.WithAttributes(
		attribute.Int("region", region),
		attribute.String("date", date),
	))
	defer span.End()

	start := time.Now()

	if !regions.Valid(region) {
		span.SetStatus(codes.Error, "region code out of range")
		return Outcome{}
	}

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		entries, v := s.attempt(ctx, region, date)
		last := attempt == s.opts.MaxAttempts

		switch v {
		case verdictAccept:
			return Outcome{
				Success: true,
				Took:    time.Since(start),
				Count:   len(entries),
				Entries: entries,
			}
		case verdictSuspicious:
			if last {
				// the source has no reliable "genuinely empty"
				// signal, after exhausting retries the result is
				// taken as-is
				return Outcome{
					Success: true,
					Took:    time.Since(start),
					Count:   len(entries),
					Entries: entries,
				}
			}
			slog.WarnContext(ctx, "suspicious result, retrying",
				"region", region, "date", date,
				"attempt", attempt, "entries", len(entries))
		case verdictBroken:
			if last {
				span.SetStatus(codes.Error, "attempts exhausted")
				return Outcome{Took: time.Since(start)}
			}
			slog.WarnContext(ctx, "attempt failed, retrying",
				"region", region, "date", date, "attempt", attempt)
		}

		if !s.pause(ctx, time.Duration(attempt)*s.opts.RetryBackoffUnit) {
			span.SetStatus(codes.Error, "interrupted")
			return Outcome{Took: time.Since(start)}
		}
	}

	return Outcome{Took: time.Since(start)}
}

// attempt runs one pass of the pipeline on a fresh session. the token
// is bound to server-side session state, so even retries must not
// share a cookie jar.
func (s *Scraper) attempt(ctx context.Context, region int, date string) ([]Entry, verdict) {
	client, err := NewClient(ClientOptions{
		BaseUrl: s.opts.BaseUrl,
		Timeout: s.opts.Timeout,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to construct client", "err", err)
		return nil, verdictBroken
	}

	token, err := client.FetchToken(ctx)
	if err != nil {
		slog.WarnContext(ctx, "token handshake failed", "region", region, "err", err)
		return nil, verdictBroken
	}
	if !s.pause(ctx, s.opts.StepPause) {
		return nil, verdictBroken
	}

	err = client.SubmitQuery(ctx, region, date, token)
	if err != nil {
		slog.WarnContext(ctx, "query submission failed", "region", region, "err", err)
		return nil, verdictBroken
	}
	if !s.pause(ctx, s.opts.StepPause) {
		return nil, verdictBroken
	}

	rows, err := client.FetchRosterRows(ctx)
	if err != nil {
		slog.WarnContext(ctx, "roster extraction failed", "region", region, "err", err)
		return nil, verdictBroken
	}

	var entries []Entry
	for idx, cols := range rows {
		// placeholder and malformed rows come through with fewer cells
		if len(cols) < 4 {
			continue
		}
		entry := Entry{
			Name:     cols[0],
			District: firstField(cols[1]),
			Phone:    NormalizePhone(cols[2]),
			Address:  cols[3],
		}
		// the map endpoint indexes into the session's result table,
		// so the original row index is what it wants
		lat, lon, ok := s.resolveCoordinates(ctx, client, idx)
		if ok {
			entry.Lat, entry.Lon = &lat, &lon
		}
		entries = append(entries, entry)
	}

	return entries, gateVerdict(entries)
}

// resolveCoordinates retries the per-row lookup with linear backoff and
// absorbs exhaustion into a missing-coordinate marker. a row without
// coordinates is a permanent gap, never a pipeline failure.
func (s *Scraper) resolveCoordinates(ctx context.Context, client *Client, index int) (float64, float64, bool) {
	for attempt := 1; attempt <= s.opts.CoordAttempts; attempt++ {
		lat, lon, err := client.FetchCoordinates(ctx, index)
		if err == nil {
			s.pause(ctx, s.opts.StepPause)
			return lat, lon, true
		}
		slog.DebugContext(ctx, "coordinate lookup failed",
			"index", index, "attempt", attempt, "err", err)

		if attempt < s.opts.CoordAttempts {
			if !s.pause(ctx, time.Duration(attempt)*s.opts.CoordBackoffUnit) {
				break
			}
		}
	}
	return 0, 0, false
}

// gateVerdict is the heuristic trust threshold on an assembled result.
// an empty table is always suspicious: the source renders the same
// page for "no duty pharmacies" and for a dropped session. a non-empty
// table is suspicious when coordinate coverage came out under half.
func gateVerdict(entries []Entry) verdict {
	if len(entries) == 0 {
		return verdictSuspicious
	}
	if coordCoverage(entries) < minCoordCoverage {
		return verdictSuspicious
	}
	return verdictAccept
}

func coordCoverage(entries []Entry) float64 {
	missing := 0
	for _, e := range entries {
		if e.Lat == nil {
			missing++
		}
	}
	return float64(len(entries)-missing) / float64(len(entries)) * 100
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// pause sleeps unless the context dies first, reporting whether the
// full delay elapsed.
func (s *Scraper) pause(ctx context.Context, d time.Duration) bool {
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
