package roster

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/berkinory/Nobetcim/lib/timezone"
)

// pharmacy shifts roll over in the morning, not at midnight: until
// 08:30 UTC+3 the roster still on duty is yesterday's.
const rolloverHour = 8
const rolloverMinute = 30

// ActiveDate returns the duty date currently in effect for the given
// wall-clock time.
func ActiveDate(now time.Time) time.Time {
	now = now.In(timezone.Location)
	rollover := time.Date(
		now.Year(), now.Month(), now.Day(),
		rolloverHour, rolloverMinute, 0, 0,
		timezone.Location,
	)
	if now.Before(rollover) {
		return now.AddDate(0, 0, -1)
	}
	return now
}

type apiResponse struct {
	Success bool          `json:"success"`
	Data    []StoredEntry `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
	Message string        `json:"message,omitempty"`
}

// RegisterRoutes mounts the read API on the given mux.
func (s Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/pharmacy", s.handlePharmacy)
}

func (s Service) handlePharmacy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := FormatDate(ActiveDate(timezone.Now()))

	entries, err := s.store.Record(ctx, date)
	if err != nil {
		slog.ErrorContext(ctx, "pharmacy api store read failed", "date", date, "err", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{
			Success: false,
			Error:   "Internal server error",
			Message: "Failed to fetch pharmacy data",
		})
		return
	}
	if entries == nil {
		writeJSON(w, http.StatusOK, apiResponse{
			Success: false,
			Error:   "No pharmacy data found for " + date,
		})
		return
	}

	w.Header().Set("Cache-Control", "public, s-maxage=3600, stale-while-revalidate=3600")
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data:    entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("failed to encode api response", "err", err)
	}
}
