package roster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/berkinory/Nobetcim/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestActiveDate(t *testing.T) {
	day := func(hour, minute int) time.Time {
		return time.Date(2025, time.March, 15, hour, minute, 0, 0, timezone.Location)
	}

	// before the morning rollover yesterday's roster is still on duty
	require.Equal(t, 14, ActiveDate(day(0, 0)).Day())
	require.Equal(t, 14, ActiveDate(day(8, 29)).Day())
	require.Equal(t, 15, ActiveDate(day(8, 30)).Day())
	require.Equal(t, 15, ActiveDate(day(23, 59)).Day())
}

func TestActiveDateConvertsZone(t *testing.T) {
	// 04:00 UTC is 07:00 in UTC+3, still before rollover
	utc := time.Date(2025, time.March, 15, 4, 0, 0, 0, time.UTC)
	require.Equal(t, 14, ActiveDate(utc).Day())
}

func apiService(kv KV) (Service, *http.ServeMux) {
	svc := NewService(NewStore(kv), &fakeScraper{outcome: successOutcome}, ServiceOptions{})
	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	return svc, mux
}

func TestPharmacyHandlerNoData(t *testing.T) {
	_, mux := apiService(newMemoryKV())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pharmacy", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Contains(t, body.Error, "No pharmacy data found")
}

func TestPharmacyHandlerServesActiveDate(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := NewStore(kv)

	date := FormatDate(ActiveDate(timezone.Now()))
	require.True(t, store.Merge(ctx, date, 6, entriesFor("Eczane A")))

	_, mux := apiService(kv)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pharmacy", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Cache-Control"), "s-maxage=3600")

	var body apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Len(t, body.Data, 1)
	require.Equal(t, "Ankara", body.Data[0].City)
	require.Equal(t, "Eczane A", body.Data[0].Name)
}
