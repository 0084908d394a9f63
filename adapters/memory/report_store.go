package memory

import (
	"context"
	"sort"

	"clinstat/domain/core"
	"clinstat/domain/report"
	"clinstat/internal/errors"
	"clinstat/ports"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ReportStore keeps the most recently saved reports in memory. The oldest run is
// evicted once the capacity is reached.
type ReportStore struct {
	cache *lru.Cache[core.RunID, *report.Report]
}

var _ ports.ReportStore = (*ReportStore)(nil)

// NewReportStore creates a store holding at most size reports
func NewReportStore(size int) (*ReportStore, error) {
	cache, err := lru.New[core.RunID, *report.Report](size)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to create report cache"))
	}
	return &ReportStore{cache: cache}, nil
}

// Save stores a report under its run id
func (s *ReportStore) Save(_ context.Context, r *report.Report) error {
	if r.RunID() == "" {
		return errors.InvalidInput("cannot store a report without a run id")
	}
	s.cache.Add(r.RunID(), r)
	return nil
}

// Get returns a stored report
func (s *ReportStore) Get(_ context.Context, id core.RunID) (*report.Report, error) {
	r, ok := s.cache.Get(id)
	if !ok {
		return nil, errors.NotFound("run " + id.String())
	}
	return r, nil
}

// List summarizes stored reports, most recent first
func (s *ReportStore) List(_ context.Context, limit int) ([]ports.RunSummary, error) {
	reports := s.cache.Values()
	runs := make([]ports.RunSummary, 0, len(reports))
	for _, r := range reports {
		summary, err := ports.SummarizeReport(r)
		if err != nil {
			return nil, err
		}
		runs = append(runs, summary)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Len returns the number of stored reports
func (s *ReportStore) Len() int {
	return s.cache.Len()
}

// CachingStore is a read-through cache in front of a slower store
type CachingStore struct {
	backing ports.ReportStore
	cache   *lru.Cache[core.RunID, *report.Report]
}

var _ ports.ReportStore = (*CachingStore)(nil)

// NewCachingStore wraps backing with an LRU of the given size
func NewCachingStore(backing ports.ReportStore, size int) (*CachingStore, error) {
	cache, err := lru.New[core.RunID, *report.Report](size)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to create report cache"))
	}
	return &CachingStore{backing: backing, cache: cache}, nil
}

// Save writes through to the backing store, then caches
func (c *CachingStore) Save(ctx context.Context, r *report.Report) error {
	if err := c.backing.Save(ctx, r); err != nil {
		return err
	}
	c.cache.Add(r.RunID(), r)
	return nil
}

// Get serves from the cache and fills it on a miss
func (c *CachingStore) Get(ctx context.Context, id core.RunID) (*report.Report, error) {
	if r, ok := c.cache.Get(id); ok {
		return r, nil
	}
	r, err := c.backing.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, r)
	return r, nil
}

// List always asks the backing store
func (c *CachingStore) List(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	return c.backing.List(ctx, limit)
}
