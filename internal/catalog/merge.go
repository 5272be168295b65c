package catalog

import "moviehub/pkg/models"

// MergeView layers a user's overrides on top of the canonical record.
// Every field is override-if-set, canonical otherwise; the poster is
// never overridable and always comes from the canonical side. The
// Overrides block in the output carries the raw override values so
// clients can tell which fields differ. A nil link yields the plain
// canonical view.
func MergeView(m *models.Movie, l *models.UserMovieLink) models.EffectiveMovie {
	out := models.EffectiveMovie{
		ID:             m.ID,
		IMDbID:         m.IMDbID,
		Title:          m.Title,
		Year:           m.Year,
		RuntimeMinutes: m.RuntimeMinutes,
		Genres:         m.Genres,
		Directors:      m.Directors,
		PosterURL:      m.PosterURL,
		Source:         m.Source,
		UpdatedAt:      m.UpdatedAt,
	}
	if l == nil {
		return out
	}

	out.IsFavorite = l.IsFavorite
	out.UpdatedAt = l.UpdatedAt
	out.Overrides = models.Overrides{
		Title:          l.TitleOverride,
		Year:           l.YearOverride,
		RuntimeMinutes: l.RuntimeOverride,
		Genres:         l.GenresOverride,
		Directors:      l.DirectorsOverride,
	}

	if l.TitleOverride != nil {
		out.Title = *l.TitleOverride
	}
	if l.YearOverride != nil {
		out.Year = l.YearOverride
	}
	if l.RuntimeOverride != nil {
		out.RuntimeMinutes = l.RuntimeOverride
	}
	if l.GenresOverride != nil {
		out.Genres = l.GenresOverride
	}
	if l.DirectorsOverride != nil {
		out.Directors = l.DirectorsOverride
	}
	return out
}
