package search

import (
	"context"
	"strings"

	"moviehub/internal/cache"
	"moviehub/internal/catalog"
	"moviehub/pkg/models"
)

// Orchestrator merges upstream search pages with the caller's own
// custom movies into a single result list.
type Orchestrator struct {
	Cache   *cache.Service
	Catalog *catalog.Service
}

func NewOrchestrator(c *cache.Service, cat *catalog.Service) *Orchestrator {
	return &Orchestrator{Cache: c, Catalog: cat}
}

// Search returns one page of results for the query. Anonymous callers
// get the upstream page as-is; authenticated callers get their own
// fuzzy-matched custom movies prepended, with upstream rows carrying
// the same title dropped so an entry never shows up twice.
//
// Total is an approximation: the upstream's cross-page count plus the
// custom match count. Counting exactly would mean walking every
// upstream page per query.
func (o *Orchestrator) Search(ctx context.Context, userID, query string, page int) (*models.SearchResult, error) {
	upstream, total, err := o.Cache.Search(ctx, query, page)
	if err != nil {
		return nil, err
	}

	res := &models.SearchResult{Page: page, Total: total}
	if userID == "" {
		res.Items = canonicalViews(upstream)
		return res, nil
	}

	custom, err := o.Catalog.SearchCustomMovies(ctx, userID, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(custom))
	for i := range custom {
		seen[strings.ToLower(custom[i].Title)] = struct{}{}
	}

	items := make([]models.EffectiveMovie, 0, len(custom)+len(upstream))
	items = append(items, custom...)
	for i := range upstream {
		if _, dup := seen[strings.ToLower(upstream[i].Title)]; dup {
			continue
		}
		items = append(items, catalog.MergeView(&upstream[i], nil))
	}

	res.Items = items
	res.Total = total + len(custom)
	res.IncludesCustomMovies = len(custom) > 0
	return res, nil
}

func canonicalViews(movies []models.Movie) []models.EffectiveMovie {
	out := make([]models.EffectiveMovie, 0, len(movies))
	for i := range movies {
		out = append(out, catalog.MergeView(&movies[i], nil))
	}
	return out
}
