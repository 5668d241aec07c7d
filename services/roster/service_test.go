package roster

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/berkinory/Nobetcim/lib/regions"
	"github.com/berkinory/Nobetcim/lib/scrapers/eczane"
	"github.com/berkinory/Nobetcim/lib/timezone"

	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	mu      sync.Mutex
	calls   []int
	outcome func(region int) eczane.Outcome
}

func (f *fakeScraper) Scrape(ctx context.Context, region int, date string) eczane.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, region)
	f.mu.Unlock()
	return f.outcome(region)
}

func successOutcome(region int) eczane.Outcome {
	lat, lon := 39.9, 32.8
	return eczane.Outcome{
		Success: true,
		Count:   1,
		Entries: []eczane.Entry{{
			Name:     "Eczane " + regions.Name(region),
			District: "Merkez",
			Phone:    "05551234567",
			Address:  "Adres",
			Lat:      &lat,
			Lon:      &lon,
		}},
	}
}

func testService(store Store, scraper RegionScraper, days int) Service {
	return NewService(store, scraper, ServiceOptions{
		Days:        days,
		RegionPause: time.Millisecond,
	})
}

func TestSweepCollectsAllRegions(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMemoryKV())
	scraper := &fakeScraper{outcome: successOutcome}

	svc := testService(store, scraper, 1)
	require.NoError(t, svc.Sweep(ctx))

	require.Len(t, scraper.calls, regions.Max)
	require.Equal(t, regions.Min, scraper.calls[0])
	require.Equal(t, regions.Max, scraper.calls[len(scraper.calls)-1])

	date := FormatDate(timezone.Now())
	record, err := store.Record(ctx, date)
	require.NoError(t, err)
	require.Len(t, record, regions.Max)
	require.True(t, store.HasComplete(ctx, date))
}

func TestSweepContinuesAfterRegionFailure(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMemoryKV())
	scraper := &fakeScraper{outcome: func(region int) eczane.Outcome {
		switch region {
		case 2:
			return eczane.Outcome{} // hard failure
		case 3:
			return eczane.Outcome{Success: true} // accepted empty
		default:
			return successOutcome(region)
		}
	}}

	svc := testService(store, scraper, 1)
	require.NoError(t, svc.Sweep(ctx))

	// every region was still visited
	require.Len(t, scraper.calls, regions.Max)

	record, err := store.Record(ctx, FormatDate(timezone.Now()))
	require.NoError(t, err)
	require.Len(t, record, regions.Max-2)

	cities := map[string]bool{}
	for _, entry := range record {
		cities[entry.City] = true
	}
	require.True(t, cities["Adana"])
	require.True(t, cities["Düzce"])
	require.False(t, cities[regions.Name(2)])
	require.False(t, cities[regions.Name(3)])
}

func TestSweepSkipsCompleteDate(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMemoryKV())
	date := FormatDate(timezone.Now())
	for _, code := range []int{1, 34, 81} {
		require.True(t, store.Merge(ctx, date, code, entriesFor("Eczane "+regions.Name(code))))
	}

	scraper := &fakeScraper{outcome: successOutcome}
	svc := testService(store, scraper, 1)
	require.NoError(t, svc.Sweep(ctx))

	require.Empty(t, scraper.calls)
}

func TestSweepDuplicatesPartialDate(t *testing.T) {
	// a date with partial data is NOT complete, so the sweep runs
	// again and append-duplicates the regions that were already
	// merged. this asserts the documented idempotence limitation.
	ctx := context.Background()
	store := NewStore(newMemoryKV())
	date := FormatDate(timezone.Now())
	require.True(t, store.Merge(ctx, date, 1, entriesFor("Eczane Adana")))

	scraper := &fakeScraper{outcome: successOutcome}
	svc := testService(store, scraper, 1)
	require.NoError(t, svc.Sweep(ctx))

	record, err := store.Record(ctx, date)
	require.NoError(t, err)

	adana := 0
	for _, entry := range record {
		if entry.City == "Adana" {
			adana++
		}
	}
	require.Equal(t, 2, adana)
}

func TestSweepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewStore(newMemoryKV())

	scraper := &fakeScraper{}
	scraper.outcome = func(region int) eczane.Outcome {
		if region == 5 {
			cancel()
		}
		return successOutcome(region)
	}

	svc := testService(store, scraper, 1)
	err := svc.Sweep(ctx)
	require.Error(t, err)
	require.Less(t, len(scraper.calls), regions.Max)
}
