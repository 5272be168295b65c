package cache

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"moviehub/internal/catalog"
	"moviehub/internal/metrics"
	"moviehub/internal/omdb"
	"moviehub/pkg/models"
)

// Upstream is the slice of the OMDb client the cache needs.
type Upstream interface {
	SearchTitles(ctx context.Context, query string, page int) (*omdb.SearchPage, error)
	GetDetails(ctx context.Context, imdbID string) (*omdb.Details, error)
}

var _ Upstream = (*omdb.Client)(nil)

// detailWorkers bounds the concurrent detail lookups per search page.
const detailWorkers = 4

// Service fronts the upstream movie API with the catalog store: fresh
// rows are served straight from SQLite, stale or missing ones are
// fetched, converted and upserted before returning.
type Service struct {
	Upstream Upstream
	Repo     *catalog.Repo
	TTL      time.Duration

	// OnRefresh, when set, runs after every successful upstream refresh.
	// The API server hooks UDP announcements here.
	OnRefresh func(*models.Movie)
}

func NewService(upstream Upstream, repo *catalog.Repo, ttl time.Duration) *Service {
	return &Service{Upstream: upstream, Repo: repo, TTL: ttl}
}

// GetOrRefresh returns the cached canonical record for an upstream id,
// refreshing it first when the TTL has lapsed. Returns (nil, nil) when
// the upstream has no such title or cannot be reached; a stale cached
// row stays in the store untouched so the next lookup can try again.
func (s *Service) GetOrRefresh(ctx context.Context, imdbID string) (*models.Movie, error) {
	cached, err := s.Repo.GetByIMDbID(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	if cached != nil && IsFresh(cached.UpdatedAt, s.TTL, time.Now()) {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	if cached == nil {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.CacheLookupsTotal.WithLabelValues("refresh").Inc()
	}

	details, err := s.Upstream.GetDetails(ctx, imdbID)
	if err != nil {
		log.Printf("[cache] refresh %s failed: %v", imdbID, err)
		return nil, nil
	}
	if details == nil {
		return nil, nil
	}

	stored, err := s.Repo.UpsertByIMDbID(ctx, omdb.ToMovie(details))
	if err != nil {
		return nil, err
	}
	if s.OnRefresh != nil {
		s.OnRefresh(stored)
	}
	return stored, nil
}

// Search runs a paged upstream title search and resolves every hit
// through GetOrRefresh, keeping the upstream's ordering. Items whose
// detail lookup fails or that vanished upstream are dropped from the
// page; the total is the upstream's count across all pages.
func (s *Service) Search(ctx context.Context, query string, page int) ([]models.Movie, int, error) {
	res, err := s.Upstream.SearchTitles(ctx, query, page)
	if err != nil {
		return nil, 0, catalog.Wrap(catalog.ErrUpstreamUnavailable, err.Error())
	}

	slots := make([]*models.Movie, len(res.Items))
	var g errgroup.Group
	g.SetLimit(detailWorkers)
	for i, item := range res.Items {
		g.Go(func() error {
			m, err := s.GetOrRefresh(ctx, item.IMDbID)
			if err != nil {
				log.Printf("[cache] search detail %s: %v", item.IMDbID, err)
				return nil
			}
			slots[i] = m
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.Movie, 0, len(slots))
	for _, m := range slots {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, res.Total, nil
}
