package roster

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/berkinory/Nobetcim/lib/regions"
	"github.com/berkinory/Nobetcim/lib/scrapers/eczane"

	"github.com/redis/go-redis/v9"
)

// RecordTTL is how long a duty date's record survives in the store.
const RecordTTL = 7 * 24 * time.Hour

// sentinel regions checked by HasComplete: first, mid-range and last
// plate codes. a cheap proxy for "the full sweep already ran" without
// scanning all 81 regions.
var sentinelRegions = [...]int{regions.Min, 34, regions.Max}

// KV is the minimal key-value contract the store needs. Get returns
// (nil, nil) for an absent key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisKV adapts a go-redis client to the KV contract.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) RedisKV {
	return RedisKV{client: client}
}

func (r RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return value, err
}

func (r RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// StoredEntry is the wire shape of one pharmacy inside a date record.
type StoredEntry struct {
	City     string   `json:"city"`
	District string   `json:"district"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Address  string   `json:"address"`
	Lat      *float64 `json:"lat"`
	Long     *float64 `json:"long"`
}

// Store accumulates region scrape results into per-date records. one
// record per date key, merges are append-only: re-merging a region
// that is already present appends duplicates, which is accepted, the
// sweep-level completeness check exists to avoid doing that.
type Store struct {
	kv KV
}

func NewStore(kv KV) Store {
	return Store{kv: kv}
}

// Record returns the stored entries for a date, or nil when the key
// is absent.
func (s Store) Record(ctx context.Context, date string) ([]StoredEntry, error) {
	raw, err := s.kv.Get(ctx, date)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var entries []StoredEntry
	err = json.Unmarshal(raw, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// HasComplete reports whether a date already holds a full sweep's
// worth of data, judged by the presence of all sentinel regions'
// city names.
func (s Store) HasComplete(ctx context.Context, date string) bool {
	entries, err := s.Record(ctx, date)
	if err != nil {
		slog.WarnContext(ctx, "failed to read date record", "date", date, "err", err)
		return false
	}
	if len(entries) == 0 {
		return false
	}

	cities := map[string]bool{}
	for _, entry := range entries {
		cities[entry.City] = true
	}
	for _, code := range sentinelRegions {
		if !cities[regions.Name(code)] {
			return false
		}
	}
	return true
}

// Merge tags the entries with the region's city name and appends them
// to the date's record, refreshing the retention window. storage
// trouble is absorbed into the return value, a lost merge must never
// take the sweep down.
func (s Store) Merge(ctx context.Context, date string, region int, entries []eczane.Entry) bool {
	existing, err := s.Record(ctx, date)
	if err != nil {
		slog.WarnContext(ctx, "failed to read date record for merge", "date", date, "err", err)
		return false
	}

	city := regions.Name(region)
	for _, entry := range entries {
		existing = append(existing, StoredEntry{
			City:     city,
			District: entry.District,
			Name:     entry.Name,
			Phone:    entry.Phone,
			Address:  entry.Address,
			Lat:      entry.Lat,
			Long:     entry.Lon,
		})
	}

	raw, err := json.Marshal(existing)
	if err != nil {
		slog.WarnContext(ctx, "failed to marshal date record", "date", date, "err", err)
		return false
	}
	err = s.kv.Set(ctx, date, raw, RecordTTL)
	if err != nil {
		slog.WarnContext(ctx, "failed to write date record", "date", date, "err", err)
		return false
	}
	return true
}
