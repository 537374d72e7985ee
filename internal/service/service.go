// Package service is the entry point the route handlers use: given a query
// and filters it returns a page of normalized, classified bills, preferring
// cache, falling back to the upstream API, and populating the cache on
// success.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/civicpulse/billtracker/internal/bills"
	"github.com/civicpulse/billtracker/internal/cache"
	"github.com/civicpulse/billtracker/internal/congress"
	"github.com/civicpulse/billtracker/internal/paginate"
	"github.com/civicpulse/billtracker/internal/telemetry"
	"github.com/civicpulse/billtracker/models"
)

// ErrNotFound is returned when a bill id is absent both in cache and upstream.
var ErrNotFound = errors.New("service: bill not found")

// Upstream is the slice of the congress client the orchestrator depends on.
type Upstream interface {
	FetchList(ctx context.Context, query, chamber string, offset, limit int) ([]congress.RawBill, int, error)
	FetchDetail(ctx context.Context, billID string) (congress.RawBill, error)
}

// Options tunes the orchestration policy. Zero values fall back to the
// documented defaults.
type Options struct {
	ListTTL      time.Duration // default 30m, matching the documented cache window
	DetailTTL    time.Duration // default 6h; detail data changes less often
	PageLimit    int           // upstream page size per request, default 50
	MaxAggregate int           // cap on records aggregated per cache miss, default 250
	Retries      int           // retries for rate-limit/timeout failures, default 2
	Backoff      time.Duration // base backoff between retries, default 500ms
	Pagination   paginate.Limits
}

func (o Options) withDefaults() Options {
	if o.ListTTL <= 0 {
		o.ListTTL = 30 * time.Minute
	}
	if o.DetailTTL <= 0 {
		o.DetailTTL = 6 * time.Hour
	}
	if o.PageLimit <= 0 {
		o.PageLimit = 50
	}
	if o.MaxAggregate <= 0 {
		o.MaxAggregate = 250
	}
	if o.Retries < 0 {
		o.Retries = 0
	} else if o.Retries == 0 {
		o.Retries = 2
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
	if len(o.Pagination.Allowed) == 0 {
		o.Pagination = paginate.DefaultLimits()
	}
	return o
}

// Query describes one listing request.
type Query struct {
	Text    string // free-text search forwarded upstream; part of the cache key
	Chamber string // "house", "senate" or "" / "both"
	Topic   string // topic tag filter applied to the cached set; not part of the key
	Page    int
	PerPage int
}

// Service orchestrates cache, upstream fetch, normalization, classification
// and pagination. It is safe for concurrent use.
type Service struct {
	upstream Upstream
	cache    cache.Store
	opts     Options
	engine   paginate.Engine
	metrics  *telemetry.Metrics
	logger   *log.Logger
	flight   singleflight.Group
}

func New(upstream Upstream, store cache.Store, metrics *telemetry.Metrics, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		upstream: upstream,
		cache:    store,
		opts:     opts,
		engine:   paginate.NewEngine(opts.Pagination),
		metrics:  metrics,
		logger:   log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
	}
}

// listKey derives the cache key for a listing request. Page and topic
// parameters are excluded: pagination and topic filtering slice one cached
// full result set, so the upstream fetch happens at most once per TTL window
// regardless of how many pages are browsed.
func listKey(q Query) string {
	chamber := strings.ToLower(strings.TrimSpace(q.Chamber))
	if chamber == "both" {
		chamber = ""
	}
	return cache.Key("list", strings.ToLower(strings.TrimSpace(q.Text)), chamber)
}

func detailKey(billID string) string {
	return cache.Key("detail", billID)
}

// GetPage returns one page of bills matching the query. On a cache miss the
// full result set is fetched, normalized, classified and cached; on upstream
// failure an expired entry is served when one exists, with the result marked
// stale.
func (s *Service) GetPage(ctx context.Context, q Query) (models.PageResult, error) {
	records, stale, err := s.listRecords(ctx, q)
	if err != nil {
		return models.PageResult{}, err
	}

	if q.Topic != "" {
		records = filterByTopic(records, q.Topic)
	}

	page := s.engine.Page(records, q.Page, q.PerPage)
	page.Stale = stale
	return page, nil
}

func (s *Service) listRecords(ctx context.Context, q Query) ([]models.BillRecord, bool, error) {
	key := listKey(q)

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var records []models.BillRecord
		if uerr := json.Unmarshal(raw, &records); uerr == nil {
			s.metrics.CacheHits.WithLabelValues("list").Inc()
			return records, false, nil
		}
		s.logger.Printf("undecodable list entry, refetching: key=%s", key)
	} else if !errors.Is(err, cache.ErrMiss) {
		// A broken cache degrades to a miss, never fails the request.
		s.logger.Printf("cache read error, treating as miss: %v", err)
	}
	s.metrics.CacheMisses.WithLabelValues("list").Inc()

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		records, ferr := s.fetchFullList(ctx, q)
		if ferr != nil {
			return nil, ferr
		}
		s.storeRecords(ctx, key, records, s.opts.ListTTL)
		return records, nil
	})
	if err != nil {
		if stale, serr := s.staleRecords(ctx, key); serr == nil {
			s.metrics.StaleServes.WithLabelValues("list").Inc()
			s.logger.Printf("upstream failed, serving stale list: %v", err)
			return stale, true, nil
		}
		return nil, false, err
	}
	return v.([]models.BillRecord), false, nil
}

// fetchFullList aggregates upstream pages until the upstream signals no more
// results or the configured maximum aggregate count is reached.
func (s *Service) fetchFullList(ctx context.Context, q Query) ([]models.BillRecord, error) {
	var records []models.BillRecord
	offset := 0
	for {
		var (
			raws  []congress.RawBill
			total int
		)
		err := s.withRetry(ctx, func() error {
			var ferr error
			raws, total, ferr = s.instrumentedList(ctx, q, offset)
			return ferr
		})
		if err != nil {
			return nil, err
		}

		for _, raw := range raws {
			records = append(records, bills.Normalize(raw, false))
		}

		offset += len(raws)
		if len(raws) == 0 || offset >= total || len(records) >= s.opts.MaxAggregate {
			break
		}
	}
	if len(records) > s.opts.MaxAggregate {
		records = records[:s.opts.MaxAggregate]
	}
	return records, nil
}

// GetDetail returns the full record for one bill, keyed directly by bill id.
// The detail result is authoritative and fully replaces any cached partial
// record with the same id.
func (s *Service) GetDetail(ctx context.Context, billID string) (models.BillRecord, error) {
	key := detailKey(billID)

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var rec models.BillRecord
		if uerr := json.Unmarshal(raw, &rec); uerr == nil {
			s.metrics.CacheHits.WithLabelValues("detail").Inc()
			return rec, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Printf("cache read error, treating as miss: %v", err)
	}
	s.metrics.CacheMisses.WithLabelValues("detail").Inc()

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		var raw congress.RawBill
		ferr := s.withRetry(ctx, func() error {
			var e error
			raw, e = s.instrumentedDetail(ctx, billID)
			return e
		})
		if ferr != nil {
			return nil, ferr
		}
		rec := bills.Normalize(raw, true)
		s.storeRecord(ctx, key, rec, s.opts.DetailTTL)
		return rec, nil
	})
	if err != nil {
		if errors.Is(err, congress.ErrNotFound) {
			return models.BillRecord{}, fmt.Errorf("%w: %s", ErrNotFound, billID)
		}
		if raw, serr := s.cache.GetStale(ctx, key); serr == nil {
			var rec models.BillRecord
			if uerr := json.Unmarshal(raw, &rec); uerr == nil {
				s.metrics.StaleServes.WithLabelValues("detail").Inc()
				s.logger.Printf("upstream failed, serving stale detail for %s: %v", billID, err)
				return rec, nil
			}
		}
		return models.BillRecord{}, err
	}
	return v.(models.BillRecord), nil
}

// Warm refreshes the cache entry for the given listing query if it has
// expired, and sweeps retired entries when the backend supports it. Used by
// the refresh daemon.
func (s *Service) Warm(ctx context.Context, q Query) error {
	q.Page = 1
	q.PerPage = 0
	if _, err := s.GetPage(ctx, q); err != nil {
		return err
	}
	if sweeper, ok := s.cache.(cache.Sweeper); ok {
		if removed, err := sweeper.Sweep(ctx); err != nil {
			s.logger.Printf("cache sweep failed: %v", err)
		} else if removed > 0 {
			s.logger.Printf("cache sweep removed %d retired entries", removed)
		}
	}
	return nil
}

func (s *Service) instrumentedList(ctx context.Context, q Query, offset int) ([]congress.RawBill, int, error) {
	start := time.Now()
	raws, total, err := s.upstream.FetchList(ctx, q.Text, q.Chamber, offset, s.opts.PageLimit)
	s.metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	s.metrics.UpstreamCalls.WithLabelValues(outcomeLabel(err)).Inc()
	return raws, total, err
}

func (s *Service) instrumentedDetail(ctx context.Context, billID string) (congress.RawBill, error) {
	start := time.Now()
	raw, err := s.upstream.FetchDetail(ctx, billID)
	s.metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	s.metrics.UpstreamCalls.WithLabelValues(outcomeLabel(err)).Inc()
	return raw, err
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, congress.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, congress.ErrTimeout):
		return "timeout"
	case errors.Is(err, congress.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// withRetry retries rate-limit and timeout failures a bounded number of
// times with a short linear backoff. Other failures surface immediately.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.opts.Backoff):
			}
		}
		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	return errors.Is(err, congress.ErrRateLimited) || errors.Is(err, congress.ErrTimeout)
}

func (s *Service) storeRecords(ctx context.Context, key string, records []models.BillRecord, ttl time.Duration) {
	raw, err := json.Marshal(records)
	if err != nil {
		s.logger.Printf("encoding cache value: %v", err)
		return
	}
	// A failed cache write must not fail the request that produced the data.
	if err := s.cache.Put(ctx, key, raw, ttl); err != nil {
		s.logger.Printf("cache write failed: %v", err)
	}
}

func (s *Service) storeRecord(ctx context.Context, key string, rec models.BillRecord, ttl time.Duration) {
	raw, err := json.Marshal(rec)
	if err != nil {
		s.logger.Printf("encoding cache value: %v", err)
		return
	}
	if err := s.cache.Put(ctx, key, raw, ttl); err != nil {
		s.logger.Printf("cache write failed: %v", err)
	}
}

func (s *Service) staleRecords(ctx context.Context, key string) ([]models.BillRecord, error) {
	raw, err := s.cache.GetStale(ctx, key)
	if err != nil {
		return nil, err
	}
	var records []models.BillRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func filterByTopic(records []models.BillRecord, topic string) []models.BillRecord {
	out := make([]models.BillRecord, 0, len(records))
	for _, rec := range records {
		for _, t := range rec.Topics {
			if strings.EqualFold(t, topic) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}
